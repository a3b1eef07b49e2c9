// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package workflow drives a linear multi-step form over an opaque draft.
// Steps are validated locally before anything is sent, optional enrichment
// runs in a pending state that lasts at least a minimum duration, every
// transition saves the draft in the background, and only the final submit
// decides whether the workflow is complete.
package workflow

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "loxtr/console/internal/errors"
)

// Phase is the driver's coarse state.
type Phase string

const (
	PhaseEditing   Phase = "editing"
	PhasePending   Phase = "pending"
	PhaseCompleted Phase = "completed"
)

// Errors returned for transitions that are not allowed right now.
var (
	ErrBusy      = stderrors.New("workflow: a transition is already pending")
	ErrCompleted = stderrors.New("workflow: already completed")
	ErrLocked    = stderrors.New("workflow: earlier steps are incomplete")
)

// FieldError names the field that blocks leaving a step.
type FieldError struct {
	Step    int
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("step %d: %s: %s", e.Step+1, e.Field, e.Message)
}

// Enricher produces an updated draft after a step is accepted.
type Enricher[D any] func(ctx context.Context, draft D) (D, error)

// Step describes one stage of the workflow.
type Step[D any] struct {
	Name string
	// Validate returns a *FieldError (or any error) when the draft cannot
	// leave this step. It must not perform I/O.
	Validate func(draft D) error
	// Enrich runs after validation, inside the pending state. A failure
	// aborts the transition; enrichers that can degrade should do so
	// themselves and return nil.
	Enrich Enricher[D]
	// MinPending is the least time the pending state lasts when Enrich is set.
	MinPending time.Duration
}

// Driver runs the steps over a draft of type D.
type Driver[D any] struct {
	steps   []Step[D]
	persist func(ctx context.Context, draft D) error
	submit  func(ctx context.Context, draft D) error
	logger  zerolog.Logger
	timer   Timer

	mu         sync.Mutex
	draft      D
	current    int
	completed  map[int]bool
	phase      Phase
	saveFailed bool

	saves    sync.WaitGroup
	saveMu   sync.Mutex
	saveSeq  uint64
	savedSeq uint64
}

// Option configures a Driver.
type Option[D any] func(*Driver[D])

// WithPersist sets the best-effort draft saver run after every transition.
func WithPersist[D any](fn func(ctx context.Context, draft D) error) Option[D] {
	return func(d *Driver[D]) { d.persist = fn }
}

// WithSubmit sets the authoritative final submit.
func WithSubmit[D any](fn func(ctx context.Context, draft D) error) Option[D] {
	return func(d *Driver[D]) { d.submit = fn }
}

// WithLogger sets the logger.
func WithLogger[D any](l zerolog.Logger) Option[D] {
	return func(d *Driver[D]) { d.logger = l }
}

// WithTimer replaces the clock used by the minimum-duration wait.
func WithTimer[D any](t Timer) Option[D] {
	return func(d *Driver[D]) {
		if t != nil {
			d.timer = t
		}
	}
}

// New creates a driver positioned on step 0.
func New[D any](steps []Step[D], draft D, opts ...Option[D]) (*Driver[D], error) {
	if len(steps) == 0 {
		return nil, stderrors.New("workflow: no steps")
	}
	d := &Driver[D]{
		steps:     steps,
		draft:     draft,
		completed: map[int]bool{},
		phase:     PhaseEditing,
		logger:    zerolog.Nop(),
		timer:     RealTimer,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Len returns the number of steps.
func (d *Driver[D]) Len() int { return len(d.steps) }

// StepName returns the name of step i.
func (d *Driver[D]) StepName(i int) string {
	if i < 0 || i >= len(d.steps) {
		return ""
	}
	return d.steps[i].Name
}

// Current returns the active step.
func (d *Driver[D]) Current() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Phase returns the driver phase.
func (d *Driver[D]) Phase() Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase
}

// Draft returns the current draft.
func (d *Driver[D]) Draft() D {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draft
}

// Update edits the draft. It fails while a transition is pending or after completion.
func (d *Driver[D]) Update(fn func(draft *D)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.phase {
	case PhasePending:
		return ErrBusy
	case PhaseCompleted:
		return ErrCompleted
	}
	fn(&d.draft)
	return nil
}

// IsComplete reports whether step i has been completed.
func (d *Driver[D]) IsComplete(i int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.completed[i]
}

// CanEnter reports whether every step before i is complete.
func (d *Driver[D]) CanEnter(i int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.canEnterLocked(i)
}

func (d *Driver[D]) canEnterLocked(i int) bool {
	if i < 0 || i >= len(d.steps) {
		return false
	}
	for j := 0; j < i; j++ {
		if !d.completed[j] {
			return false
		}
	}
	return true
}

// SavePending reports whether the last background save failed and will be retried.
func (d *Driver[D]) SavePending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saveFailed
}

// Resume marks the steps the server reports complete and moves to the first
// incomplete one. When every step is complete the driver is Completed.
func (d *Driver[D]) Resume(complete []bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.completed = map[int]bool{}
	first := -1
	for i := range d.steps {
		if i < len(complete) && complete[i] {
			d.completed[i] = true
			continue
		}
		if first < 0 {
			first = i
		}
	}
	if first < 0 {
		d.current = len(d.steps) - 1
		d.phase = PhaseCompleted
		return
	}
	d.current = first
	d.phase = PhaseEditing
}

// GoTo moves to step i when all its predecessors are complete, or back to
// a completed step at or before the current one. Completion flags are kept.
func (d *Driver[D]) GoTo(i int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.phase {
	case PhasePending:
		return ErrBusy
	case PhaseCompleted:
		return ErrCompleted
	}
	if i < 0 || i >= len(d.steps) {
		return fmt.Errorf("workflow: no step %d", i)
	}
	back := i <= d.current && d.completed[i]
	if !back && !d.canEnterLocked(i) {
		return ErrLocked
	}
	d.current = i
	return nil
}

// Back moves to the previous step.
func (d *Driver[D]) Back() error {
	return d.GoTo(d.Current() - 1)
}

// Advance validates the current step and moves forward. On the last step it
// submits instead; only a successful submit completes the workflow and a
// failed one is returned unchanged with the step not advanced.
func (d *Driver[D]) Advance(ctx context.Context) error {
	d.mu.Lock()
	switch d.phase {
	case PhasePending:
		d.mu.Unlock()
		return ErrBusy
	case PhaseCompleted:
		d.mu.Unlock()
		return ErrCompleted
	}
	idx := d.current
	step := d.steps[idx]
	draft := d.draft
	if step.Validate != nil {
		if err := step.Validate(draft); err != nil {
			d.mu.Unlock()
			return apperrors.Wrap(apperrors.ValidationFailed, fmt.Sprintf("%s is incomplete", step.Name), err)
		}
	}
	last := idx == len(d.steps)-1
	if last && !d.canEnterLocked(idx) {
		d.mu.Unlock()
		return ErrLocked
	}
	if !last && step.Enrich == nil {
		d.completed[idx] = true
		d.current = idx + 1
		d.mu.Unlock()
		d.saveInBackground(ctx, draft)
		return nil
	}
	d.phase = PhasePending
	d.mu.Unlock()

	if last {
		return d.finish(ctx, idx, draft)
	}

	enrich := WithMinimumDuration(step.MinPending, d.timer, step.Enrich)
	next, err := enrich(ctx, draft)

	d.mu.Lock()
	d.phase = PhaseEditing
	if err != nil {
		d.mu.Unlock()
		return fmt.Errorf("%s: %w", step.Name, err)
	}
	d.draft = next
	d.completed[idx] = true
	d.current = idx + 1
	d.mu.Unlock()

	d.saveInBackground(ctx, next)
	return nil
}

func (d *Driver[D]) finish(ctx context.Context, idx int, draft D) error {
	var err error
	if d.submit != nil {
		err = d.submit(ctx, draft)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.phase = PhaseEditing
		return err
	}
	d.completed[idx] = true
	d.phase = PhaseCompleted
	return nil
}

// saveInBackground persists a snapshot of the draft without blocking the
// transition. Saves are serialized and a snapshot older than one already
// saved is skipped.
func (d *Driver[D]) saveInBackground(ctx context.Context, draft D) {
	if d.persist == nil {
		return
	}
	d.saveMu.Lock()
	d.saveSeq++
	seq := d.saveSeq
	d.saveMu.Unlock()

	ctx = context.WithoutCancel(ctx)
	d.saves.Add(1)
	go func() {
		defer d.saves.Done()
		d.saveMu.Lock()
		defer d.saveMu.Unlock()
		if seq <= d.savedSeq {
			return
		}
		err := d.persist(ctx, draft)
		d.mu.Lock()
		d.saveFailed = err != nil
		d.mu.Unlock()
		if err != nil {
			d.logger.Warn().Err(err).Msg("draft save failed, retrying on next step")
			return
		}
		d.savedSeq = seq
	}()
}

// Wait blocks until background saves finish.
func (d *Driver[D]) Wait() { d.saves.Wait() }
