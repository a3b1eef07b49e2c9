// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"loxtr/console/internal/fakeapi"
)

var mockAddr string

var mockAPICmd = &cobra.Command{
	Use:    "mock-api",
	Short:  "Serve an in-memory LOXTR API for local testing",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := ossignal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger := application.logger
		srv := &http.Server{
			Addr:              mockAddr,
			Handler:           logRequests(logger, fakeapi.New().Handler()),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()

		pterm.Success.Printf("Mock API listening on %s/api\n", mockAddr)
		pterm.Info.Printf("Demo login: %s / %s\n", fakeapi.DemoEmail, fakeapi.DemoPassword)

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info().Msg("mock api shutting down")
		return srv.Shutdown(shutdownCtx)
	},
}

func logRequests(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", r.Header.Get("X-Request-Id")).
			Dur("took", time.Since(start)).
			Msg("mock api request")
	})
}

func init() {
	mockAPICmd.Flags().StringVar(&mockAddr, "addr", ":3001", "listen address")
	rootCmd.AddCommand(mockAPICmd)
}
