// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package gateway

import "sync"

// Credentials is the token store the gateway reads and renews.
type Credentials interface {
	AccessToken() string
	RefreshToken() string
	// SetTokens stores a new access token; an empty refresh keeps the current one.
	SetTokens(access, refresh string) error
	Clear() error
}

// MemoryCredentials keeps tokens in process memory.
type MemoryCredentials struct {
	mu      sync.RWMutex
	access  string
	refresh string
}

// NewMemoryCredentials returns a store primed with the given tokens.
func NewMemoryCredentials(access, refresh string) *MemoryCredentials {
	return &MemoryCredentials{access: access, refresh: refresh}
}

func (m *MemoryCredentials) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.access
}

func (m *MemoryCredentials) RefreshToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refresh
}

func (m *MemoryCredentials) SetTokens(access, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = access
	if refresh != "" {
		m.refresh = refresh
	}
	return nil
}

func (m *MemoryCredentials) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh = "", ""
	return nil
}
