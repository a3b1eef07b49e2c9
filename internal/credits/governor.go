// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package credits governs the account's credit balance. The Governor keeps
// the last server snapshot, checks costs locally before any billable call,
// settles consumption with the server and keeps itself fresh on a schedule
// and whenever a consumption is announced.
package credits

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	apperrors "loxtr/console/internal/errors"
	"loxtr/console/internal/logging"
	"loxtr/console/internal/signal"
)

// DefaultRefreshInterval is the scheduled refresh period.
const DefaultRefreshInterval = 5 * time.Minute

// Settler is the remote side of the governor.
type Settler interface {
	FetchBalance(ctx context.Context) (Balance, error)
	// Consume settles amount for action and returns the server's new balance.
	Consume(ctx context.Context, amount int, action Action) (int, error)
}

// Governor owns the balance snapshot. All mutations replace the whole
// snapshot under the lock; readers always get a copy.
type Governor struct {
	api      Settler
	logger   zerolog.Logger
	interval time.Duration
	now      func() time.Time
	consumed *signal.Hub[signal.CreditConsumed]

	upgrades signal.Hub[UpgradePrompt]
	failures signal.Hub[error]
	changes  signal.Hub[Balance]
	warnLog  rate.Sometimes

	mu      sync.RWMutex
	snap    *Balance
	lastErr error
	issued  uint64
	applied uint64

	life   sync.Mutex
	sched  *cron.Cron
	cancel context.CancelFunc
	unsub  func()
	wg     sync.WaitGroup
}

// Option configures a Governor.
type Option func(*Governor)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(g *Governor) { g.logger = l } }

// WithRefreshInterval overrides the scheduled refresh period.
func WithRefreshInterval(d time.Duration) Option {
	return func(g *Governor) {
		if d > 0 {
			g.interval = d
		}
	}
}

// WithConsumedHub shares the credit-consumed topic with other components.
func WithConsumedHub(h *signal.Hub[signal.CreditConsumed]) Option {
	return func(g *Governor) {
		if h != nil {
			g.consumed = h
		}
	}
}

// NewGovernor creates an unloaded governor.
func NewGovernor(api Settler, opts ...Option) *Governor {
	g := &Governor{
		api:      api,
		logger:   zerolog.Nop(),
		interval: DefaultRefreshInterval,
		now:      time.Now,
		consumed: &signal.Hub[signal.CreditConsumed]{},
		warnLog:  rate.Sometimes{First: 1, Interval: time.Minute},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Balance returns a copy of the last snapshot. ok is false until the first
// successful refresh.
func (g *Governor) Balance() (b Balance, ok bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.snap == nil {
		return Balance{}, false
	}
	return *g.snap, true
}

// LastError returns the error of the latest failed refresh, cleared by the
// next successful one.
func (g *Governor) LastError() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lastErr
}

// HasEnough reports whether the held balance covers amount. It never calls the server.
func (g *Governor) HasEnough(amount int) bool {
	b, ok := g.Balance()
	return ok && b.Current >= amount
}

// ConsumedHub is the credit-consumed topic the governor listens to and publishes on.
func (g *Governor) ConsumedHub() *signal.Hub[signal.CreditConsumed] { return g.consumed }

// OnUpgradePrompt subscribes to upgrade prompts.
func (g *Governor) OnUpgradePrompt(fn func(UpgradePrompt)) (unsubscribe func()) {
	return g.upgrades.Subscribe(fn)
}

// OnFailure subscribes to settlement and refresh failures that should be shown.
func (g *Governor) OnFailure(fn func(error)) (unsubscribe func()) {
	return g.failures.Subscribe(fn)
}

// OnChange subscribes to snapshot replacements.
func (g *Governor) OnChange(fn func(Balance)) (unsubscribe func()) {
	return g.changes.Subscribe(fn)
}

func (g *Governor) ticket() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.issued++
	return g.issued
}

// Refresh fetches the balance and replaces the snapshot. On failure the
// previous snapshot stays and LastError is set. A refresh that completes after
// a newer refresh or settlement has been applied is dropped.
func (g *Governor) Refresh(ctx context.Context) error {
	seq := g.ticket()
	b, err := g.api.FetchBalance(ctx)
	if err == nil {
		err = b.Validate()
	}

	g.mu.Lock()
	if seq <= g.applied {
		g.mu.Unlock()
		g.logger.Debug().Uint64("seq", seq).Str("kind", string(apperrors.StaleResponseDiscarded)).Msg("balance refresh superseded")
		if err != nil {
			return fmt.Errorf("refresh balance: %w", err)
		}
		return nil
	}
	if err != nil {
		g.lastErr = err
		g.mu.Unlock()
		g.warnLog.Do(func() {
			g.logger.Warn().Str("error", logging.Mask(err.Error())).Msg("credit balance refresh failed")
		})
		return fmt.Errorf("refresh balance: %w", err)
	}
	g.applied = seq
	g.snap = &b
	g.lastErr = nil
	g.mu.Unlock()

	g.changes.Publish(b)
	return nil
}

// Consume reports whether amount was settled for action. Failures are
// surfaced to OnUpgradePrompt and OnFailure subscribers; see Settle.
func (g *Governor) Consume(ctx context.Context, amount int, action Action) bool {
	return g.Settle(ctx, amount, action) == nil
}

// Settle spends amount credits on action.
//
// With no snapshot it fails with Unloaded and makes no call. When the held
// balance is below amount it raises the upgrade prompt and fails with
// InsufficientBalance, again without a call. Otherwise it settles with the
// server, adopts the server's new balance verbatim and announces the
// consumption. A 402 from the server raises the upgrade prompt; any other
// failure, or a new balance outside 0..Limit, leaves the snapshot untouched.
// Only billable actions are settled. Nothing is retried.
func (g *Governor) Settle(ctx context.Context, amount int, action Action) error {
	if amount <= 0 {
		return apperrors.New(apperrors.ValidationFailed, fmt.Sprintf("amount must be positive, got %d", amount))
	}
	if !action.Billable() {
		return apperrors.New(apperrors.ValidationFailed, fmt.Sprintf("%q is not a billable action", action))
	}
	b, ok := g.Balance()
	if !ok {
		err := apperrors.New(apperrors.Unloaded, "credit balance not loaded yet")
		g.failures.Publish(err)
		return err
	}
	if b.Current < amount {
		p := g.RaiseUpgradePrompt(amount)
		return apperrors.New(apperrors.InsufficientBalance, p.Message)
	}

	newBalance, err := g.api.Consume(ctx, amount, action)
	if err != nil {
		if apperrors.IsKind(err, apperrors.InsufficientBalance) {
			p := g.RaiseUpgradePrompt(amount)
			return apperrors.Wrap(apperrors.InsufficientBalance, p.Message, err)
		}
		g.failures.Publish(err)
		return fmt.Errorf("consume %d for %s: %w", amount, action, err)
	}

	g.mu.Lock()
	next := *g.snap
	next.Current = newBalance
	next.Stats.UsedToday += amount
	next.Stats.UsedThisWeek += amount
	next.Stats.UsedThisMonth += amount
	next.Stats.RemainingThisMonth -= amount
	next.Warnings.ZeroBalance = newBalance == 0
	if err := next.Validate(); err != nil {
		g.mu.Unlock()
		err = fmt.Errorf("settlement for %s rejected: %w", action, err)
		g.failures.Publish(err)
		return err
	}
	g.issued++
	g.applied = g.issued
	g.snap = &next
	g.mu.Unlock()

	g.logger.Info().Int("amount", amount).Str("action", string(action)).Int("balance", newBalance).Msg("credits consumed")
	g.changes.Publish(next)
	g.consumed.Publish(signal.CreditConsumed{Amount: amount, Action: string(action), At: g.now()})
	return nil
}

// RaiseUpgradePrompt notifies subscribers that required credits exceed the
// held balance and returns the prompt it sent.
func (g *Governor) RaiseUpgradePrompt(required int) UpgradePrompt {
	b, _ := g.Balance()
	p := NewUpgradePrompt(required, b.Current)
	g.upgrades.Publish(p)
	return p
}

// Start refreshes once, then every refresh interval and after every
// credit-consumed event until Stop. Refresh failures wait for the next trigger.
func (g *Governor) Start(ctx context.Context) error {
	g.life.Lock()
	defer g.life.Unlock()
	if g.sched != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	sched := cron.New()
	if _, err := sched.AddFunc("@every "+g.interval.String(), func() { _ = g.Refresh(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("schedule balance refresh: %w", err)
	}

	_ = g.Refresh(runCtx)

	g.unsub = g.consumed.Subscribe(func(signal.CreditConsumed) {
		if runCtx.Err() != nil {
			return
		}
		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			_ = g.Refresh(runCtx)
		}()
	})
	sched.Start()
	g.sched = sched
	g.cancel = cancel
	return nil
}

// Stop halts scheduled and event-driven refreshes and waits for in-flight ones.
func (g *Governor) Stop() {
	g.life.Lock()
	sched, cancel, unsub := g.sched, g.cancel, g.unsub
	g.sched, g.cancel, g.unsub = nil, nil, nil
	g.life.Unlock()

	if sched == nil {
		return
	}
	unsub()
	cancel()
	<-sched.Stop().Done()
	g.wg.Wait()
}
