// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"loxtr/console/internal/backend"
	"loxtr/console/internal/config"
	apperrors "loxtr/console/internal/errors"
	"loxtr/console/internal/hsindex"
	"loxtr/console/internal/httperrors"
	"loxtr/console/internal/onboarding"
	"loxtr/console/internal/suggest"
	"loxtr/console/internal/workflow"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Set up your company profile, products and target markets",
	Long: `The onboard command walks through the five setup steps: company profile,
product portfolio, target markets, buyer profile and plan. Progress is saved as
you go, and running it again continues from the first unfinished step.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := application
		ctx := cmd.Context()
		if !a.requireLogin(ctx) {
			return nil
		}
		o := a.cfg.Onboarding
		flow := onboarding.New(a.api,
			onboarding.WithLogger(a.logger),
			onboarding.WithTimings(onboarding.Timings{
				ValueProp:    config.Millis(o.ValuePropMinMillis),
				BuyerProfile: config.Millis(o.BuyerProfileMinMillis),
				Discovery:    config.Millis(o.DiscoveryMinMillis),
			}),
		)
		if err := flow.Load(ctx); err != nil {
			return httperrors.FormatNetworkError(err, "loading your profile")
		}
		defer flow.Wait()

		fast, closeIndex := a.hsLookup(ctx)
		defer closeIndex()
		hs, codes := newCodeSuggester(ctx, fast, a.api.SuggestHSCodes,
			suggest.WithDebounce(config.Millis(a.cfg.Suggest.FastDebounceMillis)),
			suggest.WithMinLength(a.cfg.Suggest.MinLength),
			suggest.WithLogger(a.logger))
		defer hs.Close()

		w := &wizard{a: a, flow: flow, in: bufio.NewReader(os.Stdin), hs: hs, codes: codes}
		return w.run(ctx)
	},
}

var pendingMessages = map[int][]string{
	onboarding.StepPortfolio: {"Reading your product portfolio", "Writing your value proposition", "Scoring export markets"},
	onboarding.StepStrategy:  {"Analysing buyers in your target markets", "Matching industries to your products", "Finding decision makers"},
	onboarding.StepPlans:     {"Saving your profile", "Running your first lead search", "Preparing your dashboard"},
}

type wizard struct {
	a     *app
	flow  *onboarding.Flow
	in    *bufio.Reader
	hs    *suggest.Pipeline[backend.HSCode]
	codes chan []backend.HSCode
}

var errAborted = errors.New("onboarding aborted")

func (w *wizard) run(ctx context.Context) error {
	d := w.flow.Driver()
	for d.Phase() != workflow.PhaseCompleted {
		step := d.Current()
		pterm.DefaultSection.Printf("Step %d of %d: %s", step+1, d.Len(), d.StepName(step))

		var err error
		switch step {
		case onboarding.StepProfile:
			err = w.editProfile()
		case onboarding.StepPortfolio:
			err = w.editPortfolio(ctx)
		case onboarding.StepStrategy:
			err = w.editMarkets()
		case onboarding.StepCustomers:
			err = w.editCustomers()
		case onboarding.StepPlans:
			err = w.editPlan()
		}
		if errors.Is(err, errAborted) {
			w.flow.Wait()
			pterm.Info.Println("Progress saved. Run 'loxtr onboard' to continue later.")
			return nil
		}
		if err != nil {
			return err
		}

		switch strings.ToLower(w.ask("Continue? [Y]es / [b]ack / [q]uit", "y")) {
		case "b", "back":
			if err := d.Back(); err != nil {
				pterm.Warning.Println(err.Error())
			}
			continue
		case "q", "quit":
			w.flow.Wait()
			pterm.Info.Println("Progress saved. Run 'loxtr onboard' to continue later.")
			return nil
		}

		if err := w.advance(ctx, step); err != nil {
			var fe *workflow.FieldError
			switch {
			case errors.As(err, &fe):
				pterm.Error.Println(fe.Message + " (" + fe.Field + ")")
			case apperrors.IsKind(err, apperrors.AuthExpired):
				return httperrors.FormatNetworkError(err, "saving your profile")
			default:
				httperrors.Present(httperrors.Describe(err, "saving your profile"))
			}
		}
	}
	pterm.Success.Println("Setup complete! Welcome to LOXTR.")
	return nil
}

func (w *wizard) advance(ctx context.Context, step int) error {
	msgs, pending := pendingMessages[step]
	if !pending {
		return w.flow.Next(ctx)
	}
	area := startPendingArea(msgs)
	defer area.Stop()
	return w.flow.Next(ctx)
}

func (w *wizard) ask(label, def string) string {
	if def != "" {
		pterm.Printf("%s [%s]: ", label, def)
	} else {
		pterm.Printf("%s: ", label)
	}
	line, err := w.in.ReadString('\n')
	line = strings.TrimSpace(line)
	if err == io.EOF && line == "" {
		return "q"
	}
	if line == "" {
		return def
	}
	return line
}

func (w *wizard) editProfile() error {
	p := w.flow.Draft().Profile
	fields := []struct {
		label string
		dst   *string
	}{
		{"Company name *", &p.Company},
		{"Your name *", &p.Name},
		{"Job title", &p.JobTitle},
		{"Industry *", &p.Industry},
		{"Website *", &p.Website},
		{"Phone *", &p.Phone},
		{"Country", &p.Country},
		{"City", &p.City},
	}
	for _, f := range fields {
		v := w.ask(f.label, *f.dst)
		if v == "q" {
			return errAborted
		}
		*f.dst = v
	}
	if p.Website != "" && !onboarding.ValidWebsite(p.Website) {
		pterm.Warning.Println("That website does not look valid; you will be asked again.")
	}
	return w.flow.Edit(func(dst *backend.Profile) { *dst = p })
}

func (w *wizard) editPortfolio(ctx context.Context) error {
	for {
		d := w.flow.Draft()
		if names := backend.ProductNames(d.Profile.ProductGroups); len(names) > 0 {
			pterm.Println("Products: " + strings.Join(names, ", "))
		}
		name := w.ask("Add a product (empty to finish)", "")
		if name == "" {
			return nil
		}
		if name == "q" {
			return errAborted
		}
		codes := w.suggestCodes(ctx, name)
		printHSCodes(codes)
		def := ""
		if len(codes) > 0 {
			def = codes[0].Code
		}
		code := w.ask("HS code", def)
		prod := backend.Product{Name: name, HSCode: code, Certificates: hsindex.CertificatesFor(code)}
		if err := w.flow.AddProduct(prod); err != nil {
			pterm.Error.Println(err.Error())
		}
	}
}

// newCodeSuggester builds the HS code pipeline behind the portfolio step and
// the channel its results arrive on.
func newCodeSuggester(ctx context.Context, fast, fallback suggest.Lookup[backend.HSCode], opts ...suggest.Option) (*suggest.Pipeline[backend.HSCode], chan []backend.HSCode) {
	codes := make(chan []backend.HSCode, 1)
	hs := suggest.New(fast, fallback, suggest.Handlers[backend.HSCode]{
		OnResult: func(items []backend.HSCode) {
			select {
			case codes <- items:
			default:
			}
		},
	}, append(opts, suggest.WithContext(ctx))...)
	return hs, codes
}

// suggestCodes waits for the pipeline's answer to one product name.
func (w *wizard) suggestCodes(ctx context.Context, name string) []backend.HSCode {
	w.hs.OnInputChange(name)
	select {
	case items := <-w.codes:
		return items
	case <-ctx.Done():
		return nil
	}
}

func (w *wizard) editMarkets() error {
	d := w.flow.Draft()
	if d.ValueProp != "" {
		pterm.DefaultBox.WithTitle("Your value proposition").Println(d.ValueProp)
	}
	for _, r := range d.Recommendations {
		pterm.Printf("  %-24s %3.0f  %s\n", r.Country, r.Score, r.Reasoning)
	}
	return w.toggleLoop("target market", func() []string { return w.flow.Draft().Markets.Candidates() },
		func(s string) bool { return w.flow.Draft().Markets.IsAccepted(s) }, w.flow.ToggleMarket)
}

func (w *wizard) editCustomers() error {
	if err := w.toggleLoop("buyer industry", func() []string { return w.flow.Draft().Industries.Candidates() },
		func(s string) bool { return w.flow.Draft().Industries.IsAccepted(s) }, w.flow.ToggleIndustry); err != nil {
		return err
	}
	return w.toggleLoop("decision maker", func() []string { return w.flow.Draft().Roles.Candidates() },
		func(s string) bool { return w.flow.Draft().Roles.IsAccepted(s) }, w.flow.ToggleRole)
}

func (w *wizard) toggleLoop(what string, candidates func() []string, accepted func(string) bool, toggle func(string) error) error {
	for {
		for _, c := range candidates() {
			mark := "[ ]"
			if accepted(c) {
				mark = "[x]"
			}
			pterm.Printf("  %s %s\n", mark, c)
		}
		v := w.ask(fmt.Sprintf("Toggle a %s, or type a new one (empty to finish)", what), "")
		switch v {
		case "":
			return nil
		case "q":
			return errAborted
		}
		if err := toggle(v); err != nil {
			return err
		}
	}
}

func (w *wizard) editPlan() error {
	cur := w.flow.Draft().Profile.Subscription
	plan := strings.ToLower(w.ask("Plan (free, starter, pro, enterprise)", cur))
	switch plan {
	case "q":
		return errAborted
	case "free", "starter", "pro", "enterprise":
	default:
		pterm.Warning.Printf("Unknown plan %q, keeping %s\n", plan, cur)
		plan = cur
	}
	return w.flow.Edit(func(p *backend.Profile) { p.Subscription = plan })
}

func init() {
	rootCmd.AddCommand(onboardCmd)
}
