// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"loxtr/console/internal/backend"
	"loxtr/console/internal/config"
	"loxtr/console/internal/suggest"
)

var (
	suggestContext string
	suggestProduct string
	suggestOrigin  string
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Typeahead suggestions for HS codes and profile fields",
	Long: `The suggest commands run the same typeahead the onboarding form uses.
Give a query as arguments, or pipe one query per line on stdin to simulate
typing: only suggestions for the latest line are shown.`,
}

var suggestHSCmd = &cobra.Command{
	Use:   "hs [query]",
	Short: "Suggest HS codes: local index first, AI when it finds nothing",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := application
		ctx := cmd.Context()
		if !a.requireLogin(ctx) {
			return nil
		}

		fast, closeIndex := a.hsLookup(ctx)
		defer closeIndex()
		return runSuggest(ctx, args, fast, a.api.SuggestHSCodes,
			config.Millis(a.cfg.Suggest.FastDebounceMillis), a.cfg.Suggest.MinLength, printHSCodes)
	},
}

var suggestAICmd = &cobra.Command{
	Use:   "ai [query]",
	Short: "AI suggestions for industries, markets or buyer profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := application
		ctx := cmd.Context()
		if !a.requireLogin(ctx) {
			return nil
		}
		sc := backend.SuggestContext(suggestContext)
		switch sc {
		case backend.SuggestIndustry, backend.SuggestMarket, backend.SuggestBuyerProfile:
		default:
			return fmt.Errorf("--context must be industry, market or buyer_profile, got %q", suggestContext)
		}
		lookup := func(ctx context.Context, q string) ([]string, error) {
			return a.api.Suggest(ctx, backend.SuggestRequest{Context: sc, Query: q, Product: suggestProduct, OriginCountry: suggestOrigin})
		}
		return runSuggest(ctx, args, lookup, nil,
			config.Millis(a.cfg.Suggest.AIDebounceMillis), a.cfg.Suggest.MinLength, printSuggestions)
	},
}

// hsLookup is the fast HS code tier: the local index when one is configured,
// otherwise the API search. The returned func releases the index.
func (a *app) hsLookup(ctx context.Context) (suggest.Lookup[backend.HSCode], func()) {
	if dsn, err := a.indexDSN(); err == nil && dsn != "" {
		idx, err := a.openIndex(ctx)
		if err == nil {
			return idx.Search, idx.Close
		}
		a.logger.Warn().Err(err).Msg("HS index unavailable, using the API search")
	}
	return a.api.SearchHSCodes, func() {}
}

// runSuggest feeds input into a pipeline and prints what it delivers. With
// args the joined args are a single input; otherwise every stdin line is one.
func runSuggest[T any](ctx context.Context, args []string, fast, fallback suggest.Lookup[T], window time.Duration, minLen int, show func([]T)) error {
	var loading atomic.Bool
	results := make(chan []T, 16)
	p := suggest.New(fast, fallback, suggest.Handlers[T]{
		OnResult: func(items []T) {
			select {
			case results <- items:
			default:
			}
		},
		OnLoading: func(v bool) { loading.Store(v) },
	}, suggest.WithDebounce(window), suggest.WithMinLength(minLen), suggest.WithContext(ctx), suggest.WithLogger(application.logger))
	defer p.Close()

	if len(args) > 0 {
		p.OnInputChange(strings.Join(args, " "))
		select {
		case items := <-results:
			show(items)
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("› ") + line)
		p.OnInputChange(line)
	drain:
		for {
			select {
			case items := <-results:
				show(items)
			default:
				break drain
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	// Let the trailing debounce fire, then wait for the last lookup.
	time.Sleep(window + 20*time.Millisecond)
	deadline := time.After(application.cfg.RequestTimeout())
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case items := <-results:
			show(items)
		case <-tick.C:
			if !loading.Load() && len(results) == 0 {
				return nil
			}
		case <-deadline:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func printSuggestions(items []string) {
	if len(items) == 0 {
		pterm.Println("  (no suggestions)")
		return
	}
	list := make([]pterm.BulletListItem, 0, len(items))
	for _, s := range items {
		list = append(list, pterm.BulletListItem{Level: 0, Text: s})
	}
	_ = pterm.DefaultBulletList.WithItems(list).Render()
}

func init() {
	suggestAICmd.Flags().StringVar(&suggestContext, "context", string(backend.SuggestIndustry), "What to suggest: industry, market or buyer_profile")
	suggestAICmd.Flags().StringVar(&suggestProduct, "product", "", "Product the suggestion is for")
	suggestAICmd.Flags().StringVar(&suggestOrigin, "origin", "", "Origin country for market suggestions")
	suggestCmd.AddCommand(suggestHSCmd, suggestAICmd)
	rootCmd.AddCommand(suggestCmd)
}
