// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface of the LOXTR console.
// Commands share one app value built before they run: configuration, the
// logger, the keychain-backed credentials, the gateway and the typed API.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"loxtr/console/internal/logging"
)

var (
	showVersion bool
	flagConfig  string
	flagAPIURL  string
	flagLevel   string
	flagNoKeys  bool

	application *app
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "loxtr",
	Short:         "LOXTR export-lead console",
	Long:          `loxtr is the terminal console of the LOXTR export-lead platform: sign in, watch your credit balance, look up HS codes and complete company onboarding.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		application = a
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			printVersion()
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the CLI application.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, logging.PresentError("", err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Path to config.json (default: $XDG_CONFIG_HOME/loxtr/config.json)")
	pf.StringVar(&flagAPIURL, "api-url", "", "Base API address, overrides LOXTR_API_URL")
	pf.StringVar(&flagLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.BoolVar(&flagNoKeys, "no-keychain", false, "Keep credentials in memory only")
}
