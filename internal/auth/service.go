// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package auth provides the console's session operations.
// Tokens and the small auth state record live in the OS keychain; session
// renewal itself happens in the gateway, which reads the same keychain
// through KeychainCredentials.
package auth

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"loxtr/console/internal/backend"
	apperrors "loxtr/console/internal/errors"
	"loxtr/console/internal/keychain"
)

// Service centralizes authentication-related operations against the backend
// and local secure storage.
type Service struct {
	be     backend.API
	km     *keychain.Manager
	logger zerolog.Logger
}

// NewService constructs an auth Service. A nil manager uses the process-wide one.
func NewService(be backend.API, km *keychain.Manager, logger zerolog.Logger) (*Service, error) {
	if km == nil {
		var err error
		if km, err = keychain.GetManager(); err != nil {
			return nil, err
		}
	}
	return &Service{be: be, km: km, logger: logger}, nil
}

// Login exchanges email and password for a session. Tokens are saved to the
// keychain and the account is recorded in local state.
func (s *Service) Login(ctx context.Context, email, password string) (backend.Profile, error) {
	// A stale refresh token would turn a rejected password into a renewal attempt.
	if err := s.ResetLocalAuth(); err != nil {
		return backend.Profile{}, err
	}
	tok, profile, err := s.be.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return backend.Profile{}, err
	}
	if err := s.km.SaveAuthTokens(tok.Access, tok.Refresh); err != nil {
		return backend.Profile{}, err
	}
	account := profile.Email
	if account == "" {
		account = email
	}
	if err := s.saveState(State{LoggedIn: true, Account: account}); err != nil {
		s.logger.Warn().Err(err).Msg("auth state not saved")
	}
	return profile, nil
}

// WhoAmI validates the session against the API and returns the account.
// An ended session clears local auth. When the API cannot be reached the
// locally recorded account is returned.
func (s *Service) WhoAmI(ctx context.Context) (string, bool, error) {
	if tok, err := s.km.LoadAccessToken(); err != nil || tok == "" {
		return "", false, nil
	}
	p, err := s.be.Me(ctx)
	switch {
	case err == nil:
		if p.Email != "" {
			return p.Email, true, nil
		}
		if p.ID != "" {
			return p.ID, true, nil
		}
		return "user", true, nil
	case apperrors.IsKind(err, apperrors.AuthExpired):
		_ = s.ResetLocalAuth()
		return "", false, nil
	case apperrors.IsKind(err, apperrors.Network), apperrors.IsKind(err, apperrors.Timeout):
		s.logger.Debug().Err(err).Msg("offline, using local auth state")
	default:
		return "", false, err
	}

	st, err := s.loadState()
	if err != nil {
		return "", false, err
	}
	if st.LoggedIn && st.Account != "" {
		return st.Account, true, nil
	}
	return "", false, nil
}

// Profile returns the signed-in user's profile.
func (s *Service) Profile(ctx context.Context) (backend.Profile, error) {
	return s.be.Me(ctx)
}

// Logout clears local credentials and state. The API keeps no server-side
// session to revoke.
func (s *Service) Logout(ctx context.Context) error {
	return s.ResetLocalAuth()
}

// ResetLocalAuth clears only local credentials/state (no remote calls).
func (s *Service) ResetLocalAuth() error {
	if err := s.km.ClearAuth(); err != nil {
		return err
	}
	return s.clearState()
}
