// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package signal carries the console's cross-component notifications.
// Each topic is a typed Hub with explicit subscribers; there is no ambient
// broadcast channel.
package signal

import (
	"sort"
	"sync"
	"time"
)

// Hub fans a value out to its subscribers in subscription order.
// Handlers run synchronously on the publishing goroutine and must not block.
type Hub[T any] struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(T)
}

// Subscribe registers fn and returns the function that removes it.
func (h *Hub[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[int]func(T))
	}
	id := h.next
	h.next++
	h.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Publish delivers v to every current subscriber.
func (h *Hub[T]) Publish(v T) {
	h.mu.RLock()
	ids := make([]int, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, h.subs[id])
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len returns the number of subscribers.
func (h *Hub[T]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// CreditConsumed announces that a settlement went through somewhere.
// Origin is empty for events raised in this process.
type CreditConsumed struct {
	Amount int       `json:"amount"`
	Action string    `json:"action"`
	At     time.Time `json:"at"`
	Origin string    `json:"origin,omitempty"`
}

// Local reports whether the event was raised in this process.
func (e CreditConsumed) Local() bool { return e.Origin == "" }
