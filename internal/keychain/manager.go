// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain provides centralized, thread-safe keychain operations for loxtr.
// It holds the session tokens, the serialized auth state and the DSN of the
// local HS code index. The OS credential store is reached through
// github.com/99designs/keyring; an in-memory ring backs --no-keychain runs and tests.
package keychain

import (
	"errors"
	"runtime"
	"sync"

	"github.com/99designs/keyring"
)

// Global keychain manager instance
var (
	globalManager *Manager
	globalError   error
	mu            sync.Mutex
)

// ErrNotFound is returned when a requested secret has never been stored.
var ErrNotFound = errors.New("keychain: item not found")

// Manager provides centralized, thread-safe operations over a keyring.
type Manager struct {
	mu   sync.RWMutex
	ring keyring.Keyring
}

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "loxtr"

// Keys used for storing secrets in the OS keychain.
const (
	KeyAccessToken  = "auth_access_token"
	KeyRefreshToken = "auth_refresh_token"
	KeyAuthState    = "auth_state"
	KeyIndexDSN     = "hs_index_dsn"
)

// NewManager creates a new keychain manager with the OS keyring initialized.
func NewManager() (*Manager, error) {
	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return &Manager{ring: ring}, nil
}

// NewManagerWithRing wraps an already opened keyring.
func NewManagerWithRing(ring keyring.Keyring) *Manager {
	return &Manager{ring: ring}
}

// NewMemoryManager returns a manager whose secrets live only in process memory.
func NewMemoryManager() *Manager {
	return NewManagerWithRing(keyring.NewArrayKeyring(nil))
}

// GetManager returns the global keychain manager instance.
// If not initialized, it will be created on first call.
// If initialization fails, it will retry on subsequent calls.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalManager != nil {
		return globalManager, nil
	}

	globalManager, globalError = NewManager()
	if globalError != nil {
		return nil, globalError
	}
	return globalManager, nil
}

// MustGetManager returns the global keychain manager instance.
// Panics if initialization fails. Use only when you're sure initialization will succeed.
func MustGetManager() *Manager {
	manager, err := GetManager()
	if err != nil {
		panic(err)
	}
	return manager
}

// UseManager replaces the global manager. Passing nil forces re-initialization.
func UseManager(m *Manager) {
	mu.Lock()
	defer mu.Unlock()
	globalManager = m
	globalError = nil
}

// openRing opens the OS keyring using native platform backends only.
func openRing() (keyring.Keyring, error) {
	var allowed []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		allowed = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowed = []keyring.BackendType{keyring.WinCredBackend}
	case "linux", "freebsd", "openbsd":
		allowed = []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
	default:
		return nil, errors.New("secure storage not supported on this OS; rerun with --no-keychain")
	}

	cfg := keyring.Config{
		ServiceName:     ServiceName,
		AllowedBackends: allowed,
		PassPrefix:      ServiceName,
		WinCredPrefix:   ServiceName,
		KWalletAppID:    ServiceName,
		KWalletFolder:   ServiceName,
	}
	return keyring.Open(cfg)
}

func (m *Manager) get(key string) ([]byte, error) {
	it, err := m.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(it.Data) == 0 {
		return nil, ErrNotFound
	}
	return it.Data, nil
}

func (m *Manager) set(key string, data []byte) error {
	return m.ring.Set(keyring.Item{Key: key, Data: data, Label: ServiceName + " " + key})
}

func (m *Manager) remove(keys ...string) {
	for _, k := range keys {
		_ = m.ring.Remove(k)
	}
}

// SaveAuthTokens stores access and refresh tokens. An empty value leaves the
// stored one untouched, so a refresh that does not rotate keeps the old refresh token.
func (m *Manager) SaveAuthTokens(accessToken, refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if accessToken != "" {
		if err := m.set(KeyAccessToken, []byte(accessToken)); err != nil {
			return err
		}
	}
	if refreshToken != "" {
		if err := m.set(KeyRefreshToken, []byte(refreshToken)); err != nil {
			return err
		}
	}
	return nil
}

// LoadAccessToken retrieves the access token from the keychain.
func (m *Manager) LoadAccessToken() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, err := m.get(KeyAccessToken)
	return string(b), err
}

// LoadRefreshToken retrieves the refresh token from the keychain.
func (m *Manager) LoadRefreshToken() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, err := m.get(KeyRefreshToken)
	return string(b), err
}

// ClearAuth removes all auth-related secrets from the keychain.
func (m *Manager) ClearAuth() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remove(KeyAccessToken, KeyRefreshToken, KeyAuthState)
	return nil
}

// SaveAuthState stores serialized auth state in the keychain.
func (m *Manager) SaveAuthState(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set(KeyAuthState, data)
}

// LoadAuthState retrieves serialized auth state. Missing state yields (nil, nil).
func (m *Manager) LoadAuthState() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, err := m.get(KeyAuthState)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return b, err
}

// ClearAuthState removes the stored auth state from the keychain.
func (m *Manager) ClearAuthState() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remove(KeyAuthState)
	return nil
}

// SaveIndexDSN stores the HS code index DSN in the keychain.
func (m *Manager) SaveIndexDSN(dsn string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set(KeyIndexDSN, []byte(dsn))
}

// LoadIndexDSN retrieves the HS code index DSN from the keychain.
func (m *Manager) LoadIndexDSN() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, err := m.get(KeyIndexDSN)
	return string(b), err
}

// ClearIndex removes the HS code index DSN from the keychain.
func (m *Manager) ClearIndex() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remove(KeyIndexDSN)
	return nil
}

// ClearAll removes all secrets from the keychain.
func (m *Manager) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remove(KeyAccessToken, KeyRefreshToken, KeyAuthState, KeyIndexDSN)
	return nil
}
