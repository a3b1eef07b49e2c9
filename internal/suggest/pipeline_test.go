package suggest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sink struct {
	mu      sync.Mutex
	results [][]string
	loading []bool
}

func (s *sink) handlers() Handlers[string] {
	return Handlers[string]{
		OnResult: func(items []string) {
			s.mu.Lock()
			s.results = append(s.results, append([]string(nil), items...))
			s.mu.Unlock()
		},
		OnLoading: func(v bool) {
			s.mu.Lock()
			s.loading = append(s.loading, v)
			s.mu.Unlock()
		},
	}
}

func (s *sink) snapshot() ([][]string, []bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.results...), append([]bool(nil), s.loading...)
}

type lookup struct {
	mu      sync.Mutex
	calls   []string
	delay   map[string]time.Duration
	results map[string][]string
	err     error
}

func (l *lookup) fn(ctx context.Context, q string) ([]string, error) {
	l.mu.Lock()
	n := len(l.calls)
	l.calls = append(l.calls, q)
	d := l.delay[q]
	res, err := l.results[q], l.err
	l.mu.Unlock()

	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return append([]string{fmt.Sprintf("call-%d", n)}, res...), nil
}

func (l *lookup) seen() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func TestShouldApply(t *testing.T) {
	tests := []struct {
		name    string
		resp    Query
		current Query
		want    bool
	}{
		{"same marker", Query{"paint", 3}, Query{"paint", 3}, true},
		{"newer input", Query{"pain", 2}, Query{"paint", 3}, false},
		{"retyped same text", Query{"paint", 1}, Query{"paint", 3}, false},
		{"cleared", Query{"paint", 3}, Query{"", 4}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldApply(tt.resp, tt.current))
		})
	}
}

func TestDebounceIssuesOneCallForBurst(t *testing.T) {
	fast := &lookup{results: map[string][]string{"paints": {"3208.10"}}}
	out := &sink{}
	p := New(fast.fn, nil, out.handlers(), WithDebounce(FastDebounce))
	defer p.Close()

	p.OnInputChange("paint")
	time.Sleep(100 * time.Millisecond)
	p.OnInputChange("paints")

	require.Eventually(t, func() bool {
		res, _ := out.snapshot()
		return len(res) == 1
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(FastDebounce)

	assert.Equal(t, []string{"paints"}, fast.seen())
}

func TestStaleReplyIsDiscarded(t *testing.T) {
	fast := &lookup{
		delay:   map[string]time.Duration{"ab": 250 * time.Millisecond, "abc": 10 * time.Millisecond},
		results: map[string][]string{"ab": {"old"}, "abc": {"new"}},
	}
	out := &sink{}
	p := New(fast.fn, nil, out.handlers(), WithDebounce(10*time.Millisecond))
	defer p.Close()

	p.OnInputChange("ab")
	require.Eventually(t, func() bool { return len(fast.seen()) == 1 }, time.Second, time.Millisecond)
	p.OnInputChange("abc")

	time.Sleep(500 * time.Millisecond)
	res, loading := out.snapshot()
	require.Len(t, res, 1)
	assert.Equal(t, []string{"call-1", "new"}, res[0])
	assert.Equal(t, []string{"ab", "abc"}, fast.seen())
	assert.Equal(t, []bool{true, true, false}, loading, "the stale reply must not clear loading")
}

func TestShortInputClearsWithoutCall(t *testing.T) {
	fast := &lookup{results: map[string][]string{"pa": {"x"}}}
	out := &sink{}
	p := New(fast.fn, nil, out.handlers(), WithDebounce(20*time.Millisecond))
	defer p.Close()

	p.OnInputChange("pa")
	p.OnInputChange("p")

	res, loading := out.snapshot()
	require.Len(t, res, 1)
	assert.Empty(t, res[0])
	assert.Equal(t, []bool{false}, loading)

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, fast.seen(), "pending debounced call must be neutralised")
}

func TestClearThenRetypeDoesNotResurrectReply(t *testing.T) {
	fast := &lookup{
		delay:   map[string]time.Duration{"paint": 150 * time.Millisecond},
		results: map[string][]string{"paint": {"hit"}},
	}
	out := &sink{}
	p := New(fast.fn, nil, out.handlers(), WithDebounce(10*time.Millisecond))
	defer p.Close()

	p.OnInputChange("paint")
	require.Eventually(t, func() bool { return len(fast.seen()) == 1 }, time.Second, time.Millisecond)
	p.OnInputChange("")
	p.OnInputChange("paint")

	time.Sleep(500 * time.Millisecond)
	res, _ := out.snapshot()
	require.Len(t, res, 2)
	assert.Empty(t, res[0])
	assert.Equal(t, []string{"call-1", "hit"}, res[1], "only the reply to the retyped text is shown")
}

func TestFallbackRunsOnEmptyFastTier(t *testing.T) {
	tests := []struct {
		name    string
		fast    *lookup
		wantAI  int
		wantOut []string
	}{
		{
			name:    "fast tier hit",
			fast:    &lookup{results: map[string][]string{"marble": {"6802.21"}}},
			wantAI:  0,
			wantOut: []string{"call-0", "6802.21"},
		},
		{
			name:    "fast tier empty",
			fast:    &lookup{},
			wantAI:  1,
			wantOut: []string{"call-0", "ai"},
		},
		{
			name:    "fast tier failed",
			fast:    &lookup{err: errors.New("index offline")},
			wantAI:  1,
			wantOut: []string{"call-0", "ai"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ai := &lookup{results: map[string][]string{"marble": {"ai"}}}
			out := &sink{}
			p := New(tt.fast.fn, ai.fn, out.handlers(), WithDebounce(5*time.Millisecond))
			defer p.Close()

			p.OnInputChange("marble")
			require.Eventually(t, func() bool {
				res, _ := out.snapshot()
				return len(res) == 1
			}, time.Second, 5*time.Millisecond)

			res, _ := out.snapshot()
			assert.Equal(t, tt.wantOut, res[0])
			assert.Len(t, ai.seen(), tt.wantAI)
		})
	}
}

func TestFallbackReplyIsCheckedForStaleness(t *testing.T) {
	fast := &lookup{}
	ai := &lookup{
		delay:   map[string]time.Duration{"marb": 200 * time.Millisecond},
		results: map[string][]string{"marb": {"late"}, "marble": {"fresh"}},
	}
	out := &sink{}
	p := New(fast.fn, ai.fn, out.handlers(), WithDebounce(5*time.Millisecond))
	defer p.Close()

	p.OnInputChange("marb")
	require.Eventually(t, func() bool { return len(ai.seen()) == 1 }, time.Second, time.Millisecond)
	p.OnInputChange("marble")

	time.Sleep(400 * time.Millisecond)
	res, _ := out.snapshot()
	require.Len(t, res, 1)
	assert.Equal(t, []string{"call-1", "fresh"}, res[0])
}

func TestBothTiersFailingYieldsEmpty(t *testing.T) {
	fast := &lookup{err: errors.New("down")}
	ai := &lookup{err: errors.New("down too")}
	out := &sink{}
	p := New(fast.fn, ai.fn, out.handlers(), WithDebounce(5*time.Millisecond))
	defer p.Close()

	p.OnInputChange("steel")
	require.Eventually(t, func() bool {
		res, _ := out.snapshot()
		return len(res) == 1
	}, time.Second, 5*time.Millisecond)

	res, loading := out.snapshot()
	assert.NotNil(t, res[0])
	assert.Empty(t, res[0])
	assert.Equal(t, []bool{true, false}, loading)
}

func TestCloseIgnoresLaterInput(t *testing.T) {
	fast := &lookup{results: map[string][]string{"steel": {"7208"}}}
	out := &sink{}
	p := New(fast.fn, nil, out.handlers(), WithDebounce(5*time.Millisecond))

	p.Close()
	p.OnInputChange("steel")
	time.Sleep(50 * time.Millisecond)

	res, _ := out.snapshot()
	assert.Empty(t, res)
	assert.Empty(t, fast.seen())
}
