// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version holds the CLI version information.
	// This value is typically set at build time using -ldflags.
	Version = "0.0.0-dev"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion()
	},
}

func printVersion() {
	api := "unset"
	if application != nil {
		api = application.cfg.APIBaseURL
	}
	fmt.Printf("loxtr %s\napi   %s\n", Version, api)
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
