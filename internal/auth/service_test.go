package auth

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loxtr/console/internal/backend"
	apperrors "loxtr/console/internal/errors"
	"loxtr/console/internal/fakeapi"
	"loxtr/console/internal/gateway"
	"loxtr/console/internal/keychain"
	"loxtr/console/internal/manifest"
)

var _ gateway.Credentials = (*KeychainCredentials)(nil)

type harness struct {
	svc  *Service
	km   *keychain.Manager
	fake *fakeapi.Server
	srv  *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := fakeapi.New()
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	km := keychain.NewMemoryManager()
	h := &harness{km: km, fake: fake, srv: srv}
	gw := gateway.New(srv.URL+"/api", NewKeychainCredentials(km), gateway.WithSessionEnded(func() { h.svc.SessionEnded() }))
	svc, err := NewService(backend.New(gw, manifest.HTTPEndpoints{}), km, zerolog.Nop())
	require.NoError(t, err)
	h.svc = svc
	return h
}

func TestLoginStoresTokensAndState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p, err := h.svc.Login(ctx, "  "+fakeapi.DemoEmail+" ", fakeapi.DemoPassword)
	require.NoError(t, err)
	assert.Equal(t, fakeapi.DemoEmail, p.Email)

	access, err := h.km.LoadAccessToken()
	require.NoError(t, err)
	assert.NotEmpty(t, access)
	refresh, err := h.km.LoadRefreshToken()
	require.NoError(t, err)
	assert.NotEmpty(t, refresh)

	in, err := h.svc.IsLoggedIn(ctx)
	require.NoError(t, err)
	assert.True(t, in)

	who, ok, err := h.svc.WhoAmI(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, fakeapi.DemoEmail, who)
}

func TestLoginWrongPasswordDoesNotRenew(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.km.SaveAuthTokens("stale", "stale-refresh"))

	_, err := h.svc.Login(context.Background(), fakeapi.DemoEmail, "nope")
	assert.True(t, apperrors.IsKind(err, apperrors.AuthExpired))
	assert.Zero(t, h.fake.Calls("/auth/refresh"))

	_, err = h.km.LoadAccessToken()
	assert.ErrorIs(t, err, keychain.ErrNotFound)
}

func TestWhoAmIRenewsExpiredToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.Login(ctx, fakeapi.DemoEmail, fakeapi.DemoPassword)
	require.NoError(t, err)
	before, _ := h.km.LoadAccessToken()

	h.fake.ExpireAccessToken()
	who, ok, err := h.svc.WhoAmI(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, fakeapi.DemoEmail, who)
	assert.Equal(t, 1, h.fake.Calls("/auth/refresh"))

	after, _ := h.km.LoadAccessToken()
	assert.NotEqual(t, before, after)
}

func TestWhoAmIAfterRevokedSessionLogsOut(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.Login(ctx, fakeapi.DemoEmail, fakeapi.DemoPassword)
	require.NoError(t, err)

	h.fake.RevokeSession()
	who, ok, err := h.svc.WhoAmI(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, who)

	in, err := h.svc.IsLoggedIn(ctx)
	require.NoError(t, err)
	assert.False(t, in)
	_, err = h.km.LoadRefreshToken()
	assert.ErrorIs(t, err, keychain.ErrNotFound)
}

func TestWhoAmIOfflineFallsBackToState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.Login(ctx, fakeapi.DemoEmail, fakeapi.DemoPassword)
	require.NoError(t, err)

	h.srv.Close()
	who, ok, err := h.svc.WhoAmI(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, fakeapi.DemoEmail, who)
}

func TestLogoutClearsEverything(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.Login(ctx, fakeapi.DemoEmail, fakeapi.DemoPassword)
	require.NoError(t, err)

	require.NoError(t, h.svc.Logout(ctx))
	_, ok, err := h.svc.WhoAmI(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	st, err := h.svc.loadState()
	require.NoError(t, err)
	assert.Equal(t, State{}, st)
}
