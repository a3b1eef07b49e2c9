package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "loxtr/console/internal/errors"
)

func TestCallAttachesBearer(t *testing.T) {
	tests := []struct {
		name   string
		access string
		want   string
	}{
		{"with token", "tok-1", "Bearer tok-1"},
		{"without token", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("Authorization")
				assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
				_, _ = w.Write([]byte(`{"success":true,"data":{"ok":true}}`))
			}))
			defer srv.Close()

			g := New(srv.URL, NewMemoryCredentials(tt.access, ""))
			resp, err := g.Call(context.Background(), Request{Method: http.MethodGet, Path: "/auth/me"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			var out struct {
				OK bool `json:"ok"`
			}
			require.NoError(t, resp.Decode(&out))
			assert.True(t, out.OK)
		})
	}
}

func TestCallRefreshesOnceAndRetries(t *testing.T) {
	var refreshes, calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			refreshes.Add(1)
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "refresh-1", body["refreshToken"])
			assert.Empty(t, r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"success":true,"data":{"token":"fresh"}}`))
		case "/credits/balance":
			calls.Add(1)
			if r.Header.Get("Authorization") != "Bearer fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"Invalid token"}`))
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"data":{"current":10}}`))
		}
	}))
	defer srv.Close()

	creds := NewMemoryCredentials("stale", "refresh-1")
	g := New(srv.URL, creds)

	_, err := g.Call(context.Background(), Request{Method: http.MethodGet, Path: "/credits/balance"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "fresh", creds.AccessToken())
	assert.Equal(t, "refresh-1", creds.RefreshToken())
}

func TestCallRefreshFailureEndsSession(t *testing.T) {
	var refreshes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			refreshes.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Refresh token expired"}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	var ended atomic.Bool
	creds := NewMemoryCredentials("stale", "refresh-1")
	g := New(srv.URL, creds, WithSessionEnded(func() { ended.Store(true) }))

	_, err := g.Call(context.Background(), Request{Method: http.MethodGet, Path: "/auth/me"})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.AuthExpired))
	assert.True(t, apperrors.IsKind(err, apperrors.SessionEnded))
	assert.Equal(t, int32(1), refreshes.Load())
	assert.True(t, ended.Load())
	assert.Empty(t, creds.AccessToken())
	assert.Empty(t, creds.RefreshToken())
}

func TestCallUnauthorizedWithoutRefreshToken(t *testing.T) {
	var refreshes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			refreshes.Add(1)
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	g := New(srv.URL, NewMemoryCredentials("stale", ""))
	_, err := g.Call(context.Background(), Request{Method: http.MethodGet, Path: "/auth/me"})

	assert.Equal(t, apperrors.AuthExpired, apperrors.KindOf(err))
	assert.Zero(t, refreshes.Load())
}

func TestCallRemoteErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":"Insufficient credits"}`))
	}))
	defer srv.Close()

	g := New(srv.URL, NewMemoryCredentials("tok", "refresh"))
	_, err := g.Call(context.Background(), Request{Method: http.MethodPost, Path: "/credits/consume", Body: map[string]any{"amount": 1}})

	require.Error(t, err)
	assert.Equal(t, apperrors.RemoteError, apperrors.KindOf(err))
	assert.Equal(t, http.StatusPaymentRequired, apperrors.StatusOf(err))
	assert.Contains(t, err.Error(), "Insufficient credits")
	assert.Equal(t, int32(1), calls.Load())
}

func TestCallTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	g := New(srv.URL, nil, WithTimeout(50*time.Millisecond))
	start := time.Now()
	_, err := g.Call(context.Background(), Request{Method: http.MethodGet, Path: "/hs-codes/search"})

	assert.Equal(t, apperrors.Timeout, apperrors.KindOf(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDecodeData(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"envelope", `{"success":true,"data":{"n":3}}`, 3},
		{"bare object", `{"n":4}`, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out struct {
				N int `json:"n"`
			}
			require.NoError(t, DecodeData([]byte(tt.body), &out))
			assert.Equal(t, tt.want, out.N)
		})
	}
	assert.Error(t, DecodeData(nil, &struct{}{}))
}

func TestParseTokens(t *testing.T) {
	access, refresh, err := parseTokens([]byte(`{"success":true,"data":{"accessToken":"a","refreshToken":"r"}}`))
	require.NoError(t, err)
	assert.Equal(t, "a", access)
	assert.Equal(t, "r", refresh)

	_, _, err = parseTokens([]byte(`{"success":true,"data":{}}`))
	assert.Error(t, err)
}

func TestServerMessage(t *testing.T) {
	long := strings.Repeat("a", 199) + "été"
	tests := []struct {
		name string
		body string
		want string
	}{
		{"envelope error", `{"error":"Insufficient credits"}`, "Insufficient credits"},
		{"envelope message", `{"message":"down for maintenance"}`, "down for maintenance"},
		{"plain text", "  bad gateway \n", "bad gateway"},
		{"empty", "", ""},
		{"cut before a multibyte rune", long, strings.Repeat("a", 199)},
		{"ascii cut at the limit", strings.Repeat("b", 250), strings.Repeat("b", 200)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serverMessage([]byte(tt.body))
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
			assert.LessOrEqual(t, len(got), 200)
		})
	}
}
