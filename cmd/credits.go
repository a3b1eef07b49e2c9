// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"loxtr/console/internal/credits"
	"loxtr/console/internal/httperrors"
	"loxtr/console/internal/logging"
	"loxtr/console/internal/signal"
)

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Show and spend your credit balance",
}

var creditsBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the current credit balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := application
		ctx := cmd.Context()
		if !a.requireLogin(ctx) {
			return nil
		}
		gov := a.governor(nil)
		if err := gov.Refresh(ctx); err != nil {
			return httperrors.FormatNetworkError(err, "loading your balance")
		}
		b, _ := gov.Balance()
		printBalance(b)
		return nil
	},
}

var creditsConsumeCmd = &cobra.Command{
	Use:   "consume <amount> <action>",
	Short: "Spend credits on a billable action",
	Long: `The consume command settles credits for one billable action, for example:

  loxtr credits consume 1 lead_unlock

The balance is checked locally first; when it is too low nothing is sent and
an upgrade prompt is shown instead.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.Atoi(args[0])
		if err != nil || amount <= 0 {
			return fmt.Errorf("amount must be a positive integer, got %q", args[0])
		}
		action, err := credits.ParseAction(args[1])
		if err != nil {
			return err
		}
		if !action.Billable() {
			return fmt.Errorf("%s is not a billable action", action)
		}

		a := application
		ctx := cmd.Context()
		if !a.requireLogin(ctx) {
			return nil
		}
		gov := a.governor(nil)
		if err := gov.Refresh(ctx); err != nil {
			return httperrors.FormatNetworkError(err, "loading your balance")
		}

		defer gov.OnUpgradePrompt(printUpgradePrompt)()
		defer gov.OnFailure(func(err error) {
			pterm.Error.Println(logging.PresentError("Could not spend credits", err))
		})()

		if !gov.Consume(ctx, amount, action) {
			return fmt.Errorf("%s was not charged", action.DisplayName())
		}
		b, _ := gov.Balance()
		pterm.Success.Printf("%s: %d credits spent\n", action.DisplayName(), amount)
		printBalance(b)
		return nil
	},
}

var creditsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the balance up to date until interrupted",
	Long: `The watch command refreshes the balance on a schedule and whenever credits
are spent. With LOXTR_REDIS_URL set, spending in other consoles is picked up
immediately through the relay channel.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := application
		ctx, stop := ossignal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if !a.requireLogin(ctx) {
			return nil
		}

		hub := &signal.Hub[signal.CreditConsumed]{}
		if url := a.cfg.Relay.RedisURL; url != "" {
			stopRelay, err := startRelay(ctx, a, url, hub)
			if err != nil {
				return err
			}
			defer stopRelay()
		}

		gov := a.governor(hub)
		defer gov.OnChange(func(b credits.Balance) {
			style := bandStyle(credits.BandFor(b.Current, b.Limit))
			pterm.Printf("%s  %s / %d\n", time.Now().Format(time.Kitchen), style.Sprintf("%d", b.Current), b.Limit)
		})()
		if err := gov.Start(ctx); err != nil {
			return err
		}
		defer gov.Stop()
		if err := gov.LastError(); err != nil {
			_ = httperrors.FormatNetworkError(err, "loading your balance")
		}

		pterm.Info.Printf("Watching credits every %s. Press Ctrl+C to stop.\n", a.cfg.RefreshInterval())
		<-ctx.Done()
		return nil
	},
}

// startRelay joins the redis channel so credit-consumed events from other
// consoles reach hub. The returned func leaves the channel.
func startRelay(ctx context.Context, a *app, url string, hub *signal.Hub[signal.CreditConsumed]) (func(), error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", logging.Mask(url), err)
	}
	client := redis.NewClient(opts)
	relay := signal.NewRelay(client, a.cfg.Relay.Channel, hub, a.logger)
	if err := relay.Start(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("start credit relay: %w", err)
	}
	return func() {
		relay.Stop()
		_ = client.Close()
	}, nil
}

func init() {
	creditsCmd.AddCommand(creditsBalanceCmd, creditsConsumeCmd, creditsWatchCmd)
	rootCmd.AddCommand(creditsCmd)
}
