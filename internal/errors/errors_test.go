package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"plain", stderrors.New("boom"), ""},
		{"direct", New(Timeout, "slow"), Timeout},
		{"wrapped", fmt.Errorf("load: %w", Remote(500, "oops")), RemoteError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIsKindWalksNestedKinds(t *testing.T) {
	inner := Remote(401, "unauthorized")
	outer := Wrap(SessionEnded, "refresh failed", inner)

	assert.True(t, IsKind(outer, SessionEnded))
	assert.True(t, IsKind(outer, RemoteError))
	assert.False(t, IsKind(outer, Timeout))
}

func TestIsMatchesStatus(t *testing.T) {
	err := fmt.Errorf("consume: %w", Remote(402, "Insufficient credits"))

	assert.True(t, stderrors.Is(err, &E{Kind: RemoteError}))
	assert.True(t, stderrors.Is(err, &E{Kind: RemoteError, Status: 402}))
	assert.False(t, stderrors.Is(err, &E{Kind: RemoteError, Status: 500}))
	assert.Equal(t, 402, StatusOf(err))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "remote_error: 503 Service Unavailable", Remote(503, "").Error())
	assert.Equal(t, "timeout: call exceeded 2m0s: boom", Wrap(Timeout, "call exceeded 2m0s", stderrors.New("boom")).Error())
}
