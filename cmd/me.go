// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"loxtr/console/internal/backend"
	apperrors "loxtr/console/internal/errors"
)

// meCmd shows the signed-in account, validating the session with the API.
var meCmd = &cobra.Command{
	Use:     "me",
	Aliases: []string{"whoami"},
	Short:   "Show current authenticated account",
	Long: `The me command validates the current session with the LOXTR API and shows
the signed-in account with its company and plan. When the API cannot be
reached the locally recorded account is shown instead.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		a := application
		ctx := cmd.Context()
		if !a.requireLogin(ctx) {
			return nil
		}

		p, err := a.auth.Profile(ctx)
		if err == nil {
			fmt.Println(getMePhrase(p.Email))
			rows := [][]string{{"Field", "Value"}}
			for _, kv := range [][2]string{
				{"Name", p.Name},
				{"Company", p.Company},
				{"Industry", p.Industry},
				{"Country", p.Country},
				{"Plan", p.Subscription},
				{"Products", strings.Join(backend.ProductNames(p.ProductGroups), ", ")},
				{"Target markets", strings.Join(p.TargetMarkets, ", ")},
			} {
				if kv[1] != "" {
					rows = append(rows, []string{kv[0], kv[1]})
				}
			}
			if len(rows) > 1 {
				_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
			}
			if !p.OnboardingCompleted {
				pterm.Info.Println("Onboarding is not finished. Run 'loxtr onboard' to continue.")
			}
			return nil
		}
		if apperrors.IsKind(err, apperrors.AuthExpired) {
			pterm.Println("🔒 Your session has ended.")
			pterm.Println("   Run 'loxtr login' to sign in again.")
			return nil
		}

		if account, ok, werr := a.auth.WhoAmI(ctx); werr == nil && ok {
			fmt.Println(getMePhrase(account) + " (offline)")
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(meCmd)
}

// getMePhrase returns a friendly phrase with the user's identifier
func getMePhrase(identifier string) string {
	return fmt.Sprintf("👤 Current user: %s", identifier)
}
