// Package xdg resolves the XDG Base Directory locations used by the loxtr console.
// Directories are created on demand with private permissions because they hold
// the config file and the onboarding draft cache.
package xdg

import (
	"os"
	"path/filepath"
)

// AppName is the directory name used under every XDG base.
const AppName = "loxtr"

// ConfigDir returns the XDG config directory for loxtr.
// It falls back to ~/.config/loxtr when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	return ensure("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the XDG state directory for loxtr.
// It falls back to ~/.local/state/loxtr when XDG_STATE_HOME is unset.
func StateDir() (string, error) {
	return ensure("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func ensure(envKey, homeRel string) (string, error) {
	base := os.Getenv(envKey)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, homeRel)
	}
	dir := filepath.Join(base, AppName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}
