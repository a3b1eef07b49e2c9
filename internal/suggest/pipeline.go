// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package suggest turns keystrokes into typeahead suggestions without ever
// showing results for text the user has already replaced. Input is debounced
// on the trailing edge, lookups run in two tiers (a fast index first, an AI
// fallback when it finds nothing), and every reply is checked against the
// latest input before it is applied.
package suggest

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bep/debounce"
	"github.com/rs/zerolog"

	apperrors "loxtr/console/internal/errors"
	"loxtr/console/internal/logging"
)

// Debounce windows and the minimum query length used by the console.
const (
	FastDebounce     = 300 * time.Millisecond
	AIDebounce       = 800 * time.Millisecond
	DefaultMinLength = 2
)

// Lookup fetches suggestions for query.
type Lookup[T any] func(ctx context.Context, query string) ([]T, error)

// Query is the marker of one input change. Seq grows with every change, so
// clearing a field and retyping the same text still yields a new marker.
type Query struct {
	Text string
	Seq  uint64
}

// ShouldApply reports whether a reply issued for resp may be shown while
// current is the latest input.
func ShouldApply(resp, current Query) bool {
	return resp.Seq == current.Seq && resp.Text == current.Text
}

// Handlers receive pipeline output. Both run while the pipeline holds its
// lock and must not call back into it synchronously.
type Handlers[T any] struct {
	// OnResult receives the suggestions for the current input. An empty
	// slice means "nothing to suggest" and is a valid final state.
	OnResult func(items []T)
	// OnLoading reports whether a lookup for the current input is running.
	OnLoading func(loading bool)
}

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	window    time.Duration
	minLength int
	logger    zerolog.Logger
	ctx       context.Context
}

// WithDebounce sets the trailing-edge debounce window.
func WithDebounce(d time.Duration) Option { return func(o *options) { o.window = d } }

// WithMinLength sets the shortest query that triggers a lookup.
func WithMinLength(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.minLength = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.logger = l } }

// WithContext sets the parent context of every lookup.
func WithContext(ctx context.Context) Option { return func(o *options) { o.ctx = ctx } }

// Pipeline is one suggestion field.
type Pipeline[T any] struct {
	fast     Lookup[T]
	fallback Lookup[T]
	out      Handlers[T]
	opts     options
	debounce func(func())
	cancel   context.CancelFunc
	ctx      context.Context

	mu      sync.Mutex
	current Query
	closed  bool
}

// New creates a pipeline. fallback may be nil for single-tier fields.
func New[T any](fast, fallback Lookup[T], out Handlers[T], opts ...Option) *Pipeline[T] {
	o := options{window: FastDebounce, minLength: DefaultMinLength, logger: zerolog.Nop(), ctx: context.Background()}
	for _, opt := range opts {
		opt(&o)
	}
	ctx, cancel := context.WithCancel(o.ctx)
	return &Pipeline[T]{
		fast:     fast,
		fallback: fallback,
		out:      out,
		opts:     o,
		debounce: debounce.New(o.window),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// OnInputChange records text as the latest input and schedules a lookup.
// Text shorter than the minimum length clears the suggestions at once.
func (p *Pipeline[T]) OnInputChange(text string) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.current = Query{Text: text, Seq: p.current.Seq + 1}
	q := p.current
	if utf8.RuneCountInString(strings.TrimSpace(text)) < p.opts.minLength {
		p.emit(nil)
		p.loading(false)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	p.debounce(func() { p.run(q) })
}

// Current returns the latest input marker.
func (p *Pipeline[T]) Current() Query {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Close drops in-flight lookups; later input is ignored.
func (p *Pipeline[T]) Close() {
	p.mu.Lock()
	p.closed = true
	p.current.Seq++
	p.mu.Unlock()
	p.cancel()
}

func (p *Pipeline[T]) run(q Query) {
	p.mu.Lock()
	if !ShouldApply(q, p.current) {
		p.mu.Unlock()
		return
	}
	p.loading(true)
	p.mu.Unlock()

	text := strings.TrimSpace(q.Text)
	items, err := p.fast(p.ctx, text)
	if err != nil {
		p.opts.logger.Debug().Str("query", logging.Mask(text)).Err(err).Msg("fast lookup failed")
	}
	if (err != nil || len(items) == 0) && p.fallback != nil {
		if !p.stillCurrent(q) {
			return
		}
		items, err = p.fallback(p.ctx, text)
		if err != nil {
			p.opts.logger.Debug().Str("query", logging.Mask(text)).Err(err).Msg("fallback lookup failed")
		}
	}
	if err != nil {
		items = nil
	}
	p.apply(q, items)
}

func (p *Pipeline[T]) stillCurrent(q Query) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ShouldApply(q, p.current) {
		return true
	}
	p.discarded(q)
	return false
}

// apply delivers items only while q is still the latest input. A stale reply
// leaves both the suggestions and the loading state alone.
func (p *Pipeline[T]) apply(q Query, items []T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !ShouldApply(q, p.current) {
		p.discarded(q)
		return
	}
	p.emit(items)
	p.loading(false)
}

func (p *Pipeline[T]) discarded(q Query) {
	p.opts.logger.Debug().
		Str("kind", string(apperrors.StaleResponseDiscarded)).
		Uint64("seq", q.Seq).
		Uint64("current", p.current.Seq).
		Msg("suggestion reply superseded")
}

func (p *Pipeline[T]) emit(items []T) {
	if p.out.OnResult == nil {
		return
	}
	if items == nil {
		items = []T{}
	}
	p.out.OnResult(items)
}

func (p *Pipeline[T]) loading(v bool) {
	if p.out.OnLoading != nil {
		p.out.OnLoading(v)
	}
}
