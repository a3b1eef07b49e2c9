// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package enrich holds machine-suggested candidates until the user accepts
// or rejects them. Nothing in a Draft reaches the profile until it is read
// back through Accepted.
package enrich

import (
	"strings"
	"sync"

	"github.com/samber/lo"

	"loxtr/console/internal/backend"
)

// Source names where candidates came from.
type Source string

const (
	SourceSearch         Source = "search"
	SourceScrape         Source = "scrape"
	SourceRecommendation Source = "recommendation"
	SourceFallback       Source = "fallback"
)

// Draft is a set of candidates with the user's accept/reject choices.
type Draft[T comparable] struct {
	mu         sync.RWMutex
	source     Source
	candidates []T
	accepted   map[T]bool
}

// NewDraft creates a draft; preselected candidates start accepted.
func NewDraft[T comparable](source Source, candidates []T, preselected ...T) *Draft[T] {
	d := &Draft[T]{
		source:     source,
		candidates: lo.Uniq(candidates),
		accepted:   map[T]bool{},
	}
	for _, v := range preselected {
		if lo.Contains(d.candidates, v) {
			d.accepted[v] = true
		}
	}
	return d
}

// Source returns where the candidates came from.
func (d *Draft[T]) Source() Source {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.source
}

// Candidates returns every candidate in suggestion order.
func (d *Draft[T]) Candidates() []T {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]T(nil), d.candidates...)
}

// Accept marks v accepted, adding it as a candidate when new.
func (d *Draft[T]) Accept(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !lo.Contains(d.candidates, v) {
		d.candidates = append(d.candidates, v)
	}
	d.accepted[v] = true
}

// Reject unmarks v.
func (d *Draft[T]) Reject(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.accepted, v)
}

// Toggle flips v and reports the new state.
func (d *Draft[T]) Toggle(v T) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.accepted[v] {
		delete(d.accepted, v)
		return false
	}
	if !lo.Contains(d.candidates, v) {
		d.candidates = append(d.candidates, v)
	}
	d.accepted[v] = true
	return true
}

// IsAccepted reports whether v is accepted.
func (d *Draft[T]) IsAccepted(v T) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.accepted[v]
}

// Accepted returns the accepted candidates in suggestion order.
func (d *Draft[T]) Accepted() []T {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return lo.Filter(d.candidates, func(v T, _ int) bool { return d.accepted[v] })
}

// Merge appends new candidates, skipping ones already present.
func (d *Draft[T]) Merge(more []T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.candidates = lo.Uniq(append(d.candidates, more...))
}

// MergeProducts appends scraped product names that are not already in the
// portfolio, comparing names case-insensitively.
func MergeProducts(existing []backend.Product, names []string) []backend.Product {
	seen := lo.SliceToMap(existing, func(p backend.Product) (string, bool) {
		return strings.ToLower(strings.TrimSpace(p.Name)), true
	})
	out := append([]backend.Product(nil), existing...)
	for _, n := range names {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, backend.Product{Name: n, Certificates: []string{}})
	}
	return out
}

// UnionFold merges b into a keeping the first spelling of each value,
// comparing case-insensitively.
func UnionFold(a, b []string) []string {
	return lo.UniqBy(lo.Filter(append(append([]string(nil), a...), b...), func(s string, _ int) bool {
		return strings.TrimSpace(s) != ""
	}), func(s string) string { return strings.ToLower(strings.TrimSpace(s)) })
}
