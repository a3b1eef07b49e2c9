// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// logoutCmd clears the stored session and the saved HS index connection.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove all saved credentials and tokens",
	Long: `The logout command clears all authentication state from the local system.

This command removes:
- Access and refresh tokens from the OS keychain
- Local authentication state
- The saved HS code index connection`,

	RunE: func(cmd *cobra.Command, args []string) error {
		a := application
		if err := a.auth.Logout(cmd.Context()); err != nil {
			a.logger.Warn().Err(err).Msg("clearing auth")
		}
		_ = a.km.ClearIndex()

		fmt.Println("✅ All credentials and tokens have been removed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
