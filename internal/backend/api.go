// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package backend provides the typed client of the LOXTR API.
// Every call goes through the gateway, so bearer handling, session renewal
// and error classification are shared; this package only knows paths,
// payloads and reply shapes.
package backend

import (
	"context"

	"loxtr/console/internal/credits"
)

// API defines backend operations the console depends on.
// Implementations may call the real HTTP API or provide fakes for tests.
type API interface {
	// Login exchanges credentials for a session and returns the user profile.
	Login(ctx context.Context, email, password string) (Tokens, Profile, error)
	// Me returns the current user's profile.
	Me(ctx context.Context) (Profile, error)
	// UpdateProfile stores the given profile fields.
	UpdateProfile(ctx context.Context, p Profile) error

	FetchBalance(ctx context.Context) (credits.Balance, error)
	// Consume settles amount credits; a 402 reply is reported as InsufficientBalance.
	Consume(ctx context.Context, amount int, action credits.Action) (newBalance int, err error)

	// SearchHSCodes queries the HS code database index.
	SearchHSCodes(ctx context.Context, query string) ([]HSCode, error)
	// SuggestHSCodes asks the AI for HS codes matching a product description.
	SuggestHSCodes(ctx context.Context, product string) ([]HSCode, error)
	// Suggest returns AI suggestions for a free-text field.
	Suggest(ctx context.Context, req SuggestRequest) ([]string, error)

	GenerateBio(ctx context.Context, website string) (Bio, error)
	GenerateValueProp(ctx context.Context, req ValuePropRequest) (string, error)
	RecommendMarkets(ctx context.Context, products []Product, originCountry string) ([]MarketRecommendation, error)
	GenerateBuyerProfile(ctx context.Context, products []Product, targetCountries []string) (BuyerProfile, error)
	DiscoverLeads(ctx context.Context, req DiscoverRequest) error
}

var _ credits.Settler = API(nil)
