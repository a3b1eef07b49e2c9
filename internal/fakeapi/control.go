// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package fakeapi

import (
	"time"

	"loxtr/console/internal/backend"
	"loxtr/console/internal/credits"
)

// Paths passed to the control methods are relative to /api, e.g. "/credits/balance".

// Calls returns how many requests hit path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// Fail makes every request to path answer with status until cleared with 0.
func (s *Server) Fail(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.fail, path)
		return
	}
	s.fail[path] = status
}

// SetLatency delays every request to path.
func (s *Server) SetLatency(path string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency[path] = d
}

// IssueTokens starts a session without going through login.
func (s *Server) IssueTokens() backend.Tokens {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked()
}

// ExpireAccessToken invalidates the current access token; the refresh token stays valid.
func (s *Server) ExpireAccessToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = "expired"
}

// RevokeSession invalidates both tokens.
func (s *Server) RevokeSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access, s.refresh = "revoked", "revoked"
}

// SetBalance replaces the account balance.
func (s *Server) SetBalance(b credits.Balance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = b
}

// Balance returns the account balance.
func (s *Server) Balance() credits.Balance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// SetProfile replaces the account profile.
func (s *Server) SetProfile(p backend.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = p
}

// Profile returns the account profile.
func (s *Server) Profile() backend.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Discovered returns the lead discovery requests received so far.
func (s *Server) Discovered() []backend.DiscoverRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]backend.DiscoverRequest(nil), s.discovered...)
}
