// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package manifest holds the endpoint table of the remote LOXTR service.
// Paths are relative to the API base URL (LOXTR_API_URL), which already
// carries the "/api" prefix.
package manifest

import (
	"strings"
	"sync"
)

// Manifest couples the API base URL with its endpoint paths.
type Manifest struct {
	BaseURL string        `json:"base_url"`
	HTTP    HTTPEndpoints `json:"http"`
}

// HTTPEndpoints contains REST API endpoint paths.
type HTTPEndpoints struct {
	Login          string `json:"auth_login"`           // e.g., "/auth/login"
	RefreshToken   string `json:"auth_refresh"`         // e.g., "/auth/refresh"
	Me             string `json:"auth_me"`              // e.g., "/auth/me"
	CreditsBalance string `json:"credits_balance"`      // e.g., "/credits/balance"
	CreditsConsume string `json:"credits_consume"`      // e.g., "/credits/consume"
	HSCodeSearch   string `json:"hs_code_search"`       // e.g., "/hs-codes/search"
	HSCodeSuggest  string `json:"ai_hs_code_suggest"`   // e.g., "/ai/hs-code-suggestions"
	Suggest        string `json:"ai_suggest"`           // e.g., "/ai/suggest"
	GenerateBio    string `json:"ai_generate_bio"`      // e.g., "/ai/generate-bio"
	ValueProp      string `json:"ai_generate_value"`    // e.g., "/ai/generate-value-prop"
	Markets        string `json:"strategy_markets"`     // e.g., "/strategy/recommendations"
	BuyerProfile   string `json:"icp_generate"`         // e.g., "/icp/generate"
	DiscoverLeads  string `json:"leads_discover_batch"` // e.g., "/leads/discover-batch"
}

// DefaultEndpoints returns the endpoint paths served by the LOXTR API.
func DefaultEndpoints() HTTPEndpoints {
	return HTTPEndpoints{
		Login:          "/auth/login",
		RefreshToken:   "/auth/refresh",
		Me:             "/auth/me",
		CreditsBalance: "/credits/balance",
		CreditsConsume: "/credits/consume",
		HSCodeSearch:   "/hs-codes/search",
		HSCodeSuggest:  "/ai/hs-code-suggestions",
		Suggest:        "/ai/suggest",
		GenerateBio:    "/ai/generate-bio",
		ValueProp:      "/ai/generate-value-prop",
		Markets:        "/strategy/recommendations",
		BuyerProfile:   "/icp/generate",
		DiscoverLeads:  "/leads/discover-batch",
	}
}

// Merge returns e with every empty path filled from the defaults.
func (e HTTPEndpoints) Merge() HTTPEndpoints {
	d := DefaultEndpoints()
	fill := func(dst *string, def string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = def
		}
	}
	fill(&e.Login, d.Login)
	fill(&e.RefreshToken, d.RefreshToken)
	fill(&e.Me, d.Me)
	fill(&e.CreditsBalance, d.CreditsBalance)
	fill(&e.CreditsConsume, d.CreditsConsume)
	fill(&e.HSCodeSearch, d.HSCodeSearch)
	fill(&e.HSCodeSuggest, d.HSCodeSuggest)
	fill(&e.Suggest, d.Suggest)
	fill(&e.GenerateBio, d.GenerateBio)
	fill(&e.ValueProp, d.ValueProp)
	fill(&e.Markets, d.Markets)
	fill(&e.BuyerProfile, d.BuyerProfile)
	fill(&e.DiscoverLeads, d.DiscoverLeads)
	return e
}

// Resolve returns the cached manifest for baseURL, building and caching it
// from overrides when the cache is empty or points elsewhere.
func Resolve(baseURL string, overrides HTTPEndpoints) *Manifest {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if cached := GetCached(); cached != nil && cached.BaseURL == base {
		return cached
	}
	m := &Manifest{BaseURL: base, HTTP: overrides.Merge()}
	SetCached(m)
	return m
}

var (
	cached   *Manifest
	cachedMu sync.RWMutex
)

// GetCached returns the process-wide manifest, or nil before the first Resolve.
func GetCached() *Manifest {
	cachedMu.RLock()
	defer cachedMu.RUnlock()
	return cached
}

// SetCached replaces the process-wide manifest.
func SetCached(m *Manifest) {
	cachedMu.Lock()
	cached = m
	cachedMu.Unlock()
}

// ClearCache drops the process-wide manifest.
func ClearCache() { SetCached(nil) }
