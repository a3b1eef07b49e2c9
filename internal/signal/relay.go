// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Relay mirrors CreditConsumed events between console processes over a redis
// pub/sub channel, so several consoles converge on the same balance the way
// several browser tabs of one account do.
type Relay struct {
	client  *redis.Client
	channel string
	hub     *Hub[CreditConsumed]
	origin  string
	logger  zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	unsub  func()
}

// outboxSize bounds the local events waiting to be published.
const outboxSize = 64

type wireEvent struct {
	CreditConsumed
	Sender string `json:"sender"`
}

// NewRelay binds hub to channel on client.
func NewRelay(client *redis.Client, channel string, hub *Hub[CreditConsumed], logger zerolog.Logger) *Relay {
	return &Relay{
		client:  client,
		channel: channel,
		hub:     hub,
		origin:  uuid.NewString(),
		logger:  logger,
	}
}

// Origin identifies this process on the channel.
func (r *Relay) Origin() string { return r.origin }

// Start subscribes to the channel, waits for the subscription to be confirmed,
// then forwards local events out and remote events in until Stop or ctx ends.
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	ps := r.client.Subscribe(ctx, r.channel)
	if _, err := ps.Receive(ctx); err != nil {
		cancel()
		_ = ps.Close()
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	outbox := make(chan CreditConsumed, outboxSize)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.unsub = r.hub.Subscribe(func(ev CreditConsumed) {
		if !ev.Local() {
			return
		}
		select {
		case outbox <- ev:
		default:
			r.logger.Warn().Int("amount", ev.Amount).Msg("relay outbox full, event not forwarded")
		}
	})

	go r.loop(ctx, ps, outbox)
	return nil
}

// loop publishes local events from outbox and delivers remote ones to the hub.
func (r *Relay) loop(ctx context.Context, ps *redis.PubSub, outbox <-chan CreditConsumed) {
	defer close(r.done)
	defer ps.Close()

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-outbox:
			if err := r.publish(ctx, ev); err != nil {
				r.logger.Warn().Err(err).Msg("relay publish failed")
			}
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev wireEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				r.logger.Debug().Err(err).Msg("relay dropped malformed event")
				continue
			}
			if ev.Sender == r.origin {
				continue
			}
			out := ev.CreditConsumed
			out.Origin = ev.Sender
			r.hub.Publish(out)
		}
	}
}

func (r *Relay) publish(ctx context.Context, ev CreditConsumed) error {
	b, err := json.Marshal(wireEvent{CreditConsumed: ev, Sender: r.origin})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, b).Err()
}

// Stop detaches from the hub and closes the subscription.
func (r *Relay) Stop() {
	r.mu.Lock()
	cancel, done, unsub := r.cancel, r.done, r.unsub
	r.cancel, r.done, r.unsub = nil, nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	unsub()
	cancel()
	<-done
}
