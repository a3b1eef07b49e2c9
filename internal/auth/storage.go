// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package auth

import (
	"encoding/json"

	"loxtr/console/internal/keychain"
)

// State represents persisted authentication state for the current user.
type State struct {
	LoggedIn bool   `json:"logged_in"`
	Account  string `json:"account"`
}

// loadState reads the auth state from the keychain. Missing state yields zero value.
func (s *Service) loadState() (State, error) {
	var st State
	data, err := s.km.LoadAuthState()
	if err != nil {
		s.logger.Debug().Err(err).Msg("load auth state")
		return st, err
	}
	if len(data) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(data, &st); err != nil {
		s.logger.Debug().Err(err).Int("bytes", len(data)).Msg("decode auth state")
		return st, err
	}
	return st, nil
}

func (s *Service) saveState(st State) error {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	s.logger.Debug().Bool("logged_in", st.LoggedIn).Str("account", st.Account).Msg("save auth state")
	return s.km.SaveAuthState(b)
}

func (s *Service) clearState() error {
	return s.km.ClearAuthState()
}

// KeychainCredentials lets the gateway read and renew tokens stored in the keychain.
type KeychainCredentials struct {
	km *keychain.Manager
}

// NewKeychainCredentials wraps km.
func NewKeychainCredentials(km *keychain.Manager) *KeychainCredentials {
	return &KeychainCredentials{km: km}
}

func (k *KeychainCredentials) AccessToken() string {
	t, _ := k.km.LoadAccessToken()
	return t
}

func (k *KeychainCredentials) RefreshToken() string {
	t, _ := k.km.LoadRefreshToken()
	return t
}

func (k *KeychainCredentials) SetTokens(access, refresh string) error {
	return k.km.SaveAuthTokens(access, refresh)
}

func (k *KeychainCredentials) Clear() error {
	return k.km.ClearAuth()
}
