// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"os"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"

	"loxtr/console/internal/auth"
	"loxtr/console/internal/backend"
	"loxtr/console/internal/config"
	"loxtr/console/internal/credits"
	"loxtr/console/internal/gateway"
	"loxtr/console/internal/keychain"
	"loxtr/console/internal/logging"
	"loxtr/console/internal/manifest"
	"loxtr/console/internal/signal"
)

type app struct {
	cfg    config.Config
	logger zerolog.Logger
	km     *keychain.Manager
	gw     *gateway.Gateway
	api    *backend.HTTP
	auth   *auth.Service
}

func newApp() (*app, error) {
	var (
		cfg config.Config
		err error
	)
	if flagConfig != "" {
		cfg, err = config.LoadFrom(flagConfig)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if flagAPIURL != "" {
		cfg.APIBaseURL = flagAPIURL
	}
	if flagLevel != "" {
		cfg.LogLevel = flagLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := logging.New(cfg.LogLevel, os.Stderr)

	km := openKeychain(logger)
	a := &app{cfg: cfg, logger: logger, km: km}
	m := manifest.Resolve(cfg.APIBaseURL, cfg.Endpoints)
	a.gw = gateway.New(m.BaseURL, auth.NewKeychainCredentials(km),
		gateway.WithTimeout(cfg.RequestTimeout()),
		gateway.WithRefreshPath(m.HTTP.RefreshToken),
		gateway.WithLogger(logger),
		gateway.WithSessionEnded(a.sessionEnded),
	)
	a.api = backend.New(a.gw, m.HTTP)
	if a.auth, err = auth.NewService(a.api, km, logger); err != nil {
		return nil, err
	}
	return a, nil
}

func openKeychain(logger zerolog.Logger) *keychain.Manager {
	if flagNoKeys {
		km := keychain.NewMemoryManager()
		keychain.UseManager(km)
		return km
	}
	km, err := keychain.GetManager()
	if err != nil {
		logger.Warn().Err(err).Msg("keychain unavailable, credentials kept in memory")
		km = keychain.NewMemoryManager()
		keychain.UseManager(km)
	}
	return km
}

func (a *app) sessionEnded() {
	a.auth.SessionEnded()
	pterm.Warning.Println("Your session has ended. Run 'loxtr login' to sign in again.")
}

// governor builds a credit governor on the app's API, publishing
// credit-consumed events on hub (a fresh hub when nil).
func (a *app) governor(hub *signal.Hub[signal.CreditConsumed]) *credits.Governor {
	opts := []credits.Option{
		credits.WithLogger(a.logger),
		credits.WithRefreshInterval(a.cfg.RefreshInterval()),
	}
	if hub != nil {
		opts = append(opts, credits.WithConsumedHub(hub))
	}
	return credits.NewGovernor(a.api, opts...)
}

// requireLogin prints a hint and reports false when no session is stored.
func (a *app) requireLogin(ctx context.Context) bool {
	if in, err := a.auth.IsLoggedIn(ctx); err == nil && in {
		return true
	}
	pterm.Println("🔒 You're not logged in yet!")
	pterm.Println("   Run 'loxtr login' to get started.")
	return false
}
