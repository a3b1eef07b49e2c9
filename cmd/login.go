// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apperrors "loxtr/console/internal/errors"
	"loxtr/console/internal/httperrors"
	"loxtr/console/internal/terminal"
)

var loginEmail string

// loginCmd signs in with email and password and stores the session in the keychain.
var loginCmd = &cobra.Command{
	Use:     "login",
	Aliases: []string{"auth"},
	Short:   "Sign in with your LOXTR account",
	Long: `The login command asks for your email and password, signs in against the
LOXTR API and stores the issued access and refresh tokens in the OS keychain.
If you are already signed in with a valid session it does nothing.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		a := application
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		if account, ok, _ := a.auth.WhoAmI(ctx); ok {
			fmt.Printf("Already logged in as %s\n", account)
			return nil
		}

		reader := bufio.NewReader(os.Stdin)
		email := strings.TrimSpace(loginEmail)
		if email == "" {
			fmt.Print("Email: ")
			line, _ := reader.ReadString('\n')
			email = strings.TrimSpace(line)
		}
		if email == "" {
			return errors.New("email is required")
		}
		var in io.Reader = reader
		if terminal.IsInteractive() {
			in = os.Stdin
		}
		password, err := terminal.ReadSecret("Password: ", in)
		if err != nil {
			return err
		}

		stop := startInlineSpinner(os.Stdout, "Signing in", spinnerFrames, 120*time.Millisecond)
		profile, err := a.auth.Login(ctx, email, password)
		stop()
		if err != nil {
			if apperrors.IsKind(err, apperrors.AuthExpired) {
				fmt.Println("❌ Invalid email or password")
				return err
			}
			return httperrors.FormatNetworkError(err, "signing in")
		}

		who := profile.Email
		if who == "" {
			who = email
		}
		fmt.Println(getRandomLoginGreeting(who))
		if !profile.OnboardingCompleted {
			fmt.Println("   Finish setting up your company with 'loxtr onboard'")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email (prompted when empty)")
}

// getRandomLoginGreeting returns a random greeting phrase with the user's identifier
func getRandomLoginGreeting(identifier string) string {
	greetings := []string{
		"🎉 Welcome back, %s!",
		"✨ Great to see you, %s!",
		"🚀 You're all set, %s!",
		"👋 Hello %s! Ready to find buyers?",
		"🌍 Signed in as %s. Markets are waiting.",
		"✅ Authentication complete! Hi %s!",
	}
	return fmt.Sprintf(greetings[rand.Intn(len(greetings))], identifier)
}
