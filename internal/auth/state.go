// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package auth

import "context"

// IsLoggedIn reports whether the user is considered logged in.
func (s *Service) IsLoggedIn(ctx context.Context) (bool, error) {
	st, err := s.loadState()
	if err != nil {
		return false, err
	}
	return st.LoggedIn, nil
}

// SessionEnded is the gateway hook for a failed renewal: the local record
// is dropped so the next command asks for a login.
func (s *Service) SessionEnded() {
	if err := s.clearState(); err != nil {
		s.logger.Warn().Err(err).Msg("clearing auth state after session end")
	}
}
