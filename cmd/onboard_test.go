package cmd

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loxtr/console/internal/backend"
	"loxtr/console/internal/suggest"
)

func TestSuggestCodesUsesBothTiers(t *testing.T) {
	tests := []struct {
		name         string
		product      string
		fast         []backend.HSCode
		fastErr      error
		want         []string
		wantFallback int32
	}{
		{"index hit", "acrylic paint", []backend.HSCode{{Code: "3208.20"}}, nil, []string{"3208.20"}, 0},
		{"index miss falls back to AI", "wall putty", nil, nil, []string{"3214.10"}, 1},
		{"index failure falls back to AI", "wall putty", nil, errors.New("index down"), []string{"3214.10"}, 1},
		{"too short for a lookup", "w", []backend.HSCode{{Code: "3208.20"}}, nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			var fallbackCalls atomic.Int32
			fast := func(ctx context.Context, q string) ([]backend.HSCode, error) { return tt.fast, tt.fastErr }
			fallback := func(ctx context.Context, q string) ([]backend.HSCode, error) {
				fallbackCalls.Add(1)
				return []backend.HSCode{{Code: "3214.10", Confidence: 0.7}}, nil
			}
			hs, codes := newCodeSuggester(ctx, fast, fallback, suggest.WithDebounce(time.Millisecond))
			defer hs.Close()

			w := &wizard{hs: hs, codes: codes}
			got := w.suggestCodes(ctx, tt.product)

			var gotCodes []string
			for _, c := range got {
				gotCodes = append(gotCodes, c.Code)
			}
			assert.Equal(t, tt.want, gotCodes)
			assert.Equal(t, tt.wantFallback, fallbackCalls.Load())
		})
	}
}

func TestSuggestCodesReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	block := make(chan struct{})
	defer close(block)
	slow := func(ctx context.Context, q string) ([]backend.HSCode, error) {
		<-block
		return nil, nil
	}
	hs, codes := newCodeSuggester(context.Background(), slow, nil, suggest.WithDebounce(time.Millisecond))
	defer hs.Close()

	w := &wizard{hs: hs, codes: codes}
	done := make(chan []backend.HSCode, 1)
	go func() { done <- w.suggestCodes(ctx, "marble tiles") }()
	cancel()

	select {
	case got := <-done:
		require.Nil(t, got)
	case <-time.After(time.Second):
		t.Fatal("suggestCodes did not return after cancel")
	}
}
