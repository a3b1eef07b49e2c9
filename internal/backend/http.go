// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"loxtr/console/internal/credits"
	apperrors "loxtr/console/internal/errors"
	"loxtr/console/internal/gateway"
	"loxtr/console/internal/manifest"
)

// Caller performs one gateway call. *gateway.Gateway satisfies it.
type Caller interface {
	Call(ctx context.Context, req gateway.Request) (*gateway.Response, error)
}

// HTTP implements API over the LOXTR REST endpoints.
type HTTP struct {
	gw        Caller
	endpoints manifest.HTTPEndpoints
}

// New creates a backend API implementation with manifest endpoints.
func New(gw Caller, endpoints manifest.HTTPEndpoints) *HTTP {
	return &HTTP{gw: gw, endpoints: endpoints.Merge()}
}

func (h *HTTP) call(ctx context.Context, method, path string, body any, out any) error {
	resp, err := h.gw.Call(ctx, gateway.Request{Method: method, Path: path, Body: body})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := resp.Decode(out); err != nil {
		return fmt.Errorf("decode %s reply: %w", path, err)
	}
	return nil
}

// Login calls POST /auth/login.
func (h *HTTP) Login(ctx context.Context, email, password string) (Tokens, Profile, error) {
	var out struct {
		Tokens
		User Profile `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := h.call(ctx, http.MethodPost, h.endpoints.Login, body, &out); err != nil {
		return Tokens{}, Profile{}, err
	}
	if out.Access == "" {
		return Tokens{}, Profile{}, errors.New("login reply carried no token")
	}
	return out.Tokens, out.User, nil
}

// Me calls GET /auth/me. The profile may be wrapped in a "user" object.
func (h *HTTP) Me(ctx context.Context) (Profile, error) {
	var raw json.RawMessage
	if err := h.call(ctx, http.MethodGet, h.endpoints.Me, nil, &raw); err != nil {
		return Profile{}, err
	}
	var wrapped struct {
		User *Profile `json:"user"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.User != nil {
		return *wrapped.User, nil
	}
	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

// UpdateProfile calls PUT /auth/me.
func (h *HTTP) UpdateProfile(ctx context.Context, p Profile) error {
	return h.call(ctx, http.MethodPut, h.endpoints.Me, p, nil)
}

// FetchBalance calls GET /credits/balance.
func (h *HTTP) FetchBalance(ctx context.Context) (credits.Balance, error) {
	var b credits.Balance
	err := h.call(ctx, http.MethodGet, h.endpoints.CreditsBalance, nil, &b)
	return b, err
}

// Consume calls POST /credits/consume.
func (h *HTTP) Consume(ctx context.Context, amount int, action credits.Action) (int, error) {
	var out struct {
		NewBalance *int `json:"newBalance"`
	}
	body := map[string]any{"amount": amount, "action": action}
	err := h.call(ctx, http.MethodPost, h.endpoints.CreditsConsume, body, &out)
	if apperrors.StatusOf(err) == http.StatusPaymentRequired {
		return 0, apperrors.Wrap(apperrors.InsufficientBalance, "server reported insufficient credits", err)
	}
	if err != nil {
		return 0, err
	}
	if out.NewBalance == nil {
		return 0, errors.New("consume reply carried no newBalance")
	}
	return *out.NewBalance, nil
}

// SearchHSCodes calls GET /hs-codes/search?q=.
func (h *HTTP) SearchHSCodes(ctx context.Context, query string) ([]HSCode, error) {
	resp, err := h.gw.Call(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   h.endpoints.HSCodeSearch,
		Query:  url.Values{"q": {query}},
	})
	if err != nil {
		return nil, err
	}
	return decodeList[HSCode](resp.Body, "results", "codes", "items")
}

// SuggestHSCodes calls POST /ai/hs-code-suggestions.
func (h *HTTP) SuggestHSCodes(ctx context.Context, product string) ([]HSCode, error) {
	resp, err := h.gw.Call(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   h.endpoints.HSCodeSuggest,
		Body:   map[string]string{"product": product},
	})
	if err != nil {
		return nil, err
	}
	return decodeList[HSCode](resp.Body, "suggestions", "codes", "results")
}

// Suggest calls POST /ai/suggest and flattens the reply to display labels.
func (h *HTTP) Suggest(ctx context.Context, req SuggestRequest) ([]string, error) {
	resp, err := h.gw.Call(ctx, gateway.Request{Method: http.MethodPost, Path: h.endpoints.Suggest, Body: req})
	if err != nil {
		return nil, err
	}
	items, err := decodeList[json.RawMessage](resp.Body, "suggestions", "items", "results")
	if err != nil {
		return nil, err
	}
	return labels(items), nil
}

// GenerateBio calls POST /ai/generate-bio.
func (h *HTTP) GenerateBio(ctx context.Context, website string) (Bio, error) {
	var b Bio
	err := h.call(ctx, http.MethodPost, h.endpoints.GenerateBio, map[string]string{"website": website}, &b)
	return b, err
}

// GenerateValueProp calls POST /ai/generate-value-prop. The reply data is a
// plain string or an object with a text field.
func (h *HTTP) GenerateValueProp(ctx context.Context, req ValuePropRequest) (string, error) {
	var raw json.RawMessage
	if err := h.call(ctx, http.MethodPost, h.endpoints.ValueProp, req, &raw); err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("decode value proposition: %w", err)
	}
	for _, k := range []string{"valueProp", "valueProposition", "text", "bio"} {
		if v, ok := obj[k].(string); ok && v != "" {
			return strings.TrimSpace(v), nil
		}
	}
	return "", errors.New("value proposition reply was empty")
}

// RecommendMarkets calls POST /strategy/recommendations.
func (h *HTTP) RecommendMarkets(ctx context.Context, products []Product, originCountry string) ([]MarketRecommendation, error) {
	var out struct {
		Recommendations []MarketRecommendation `json:"recommendations"`
	}
	body := map[string]any{"products": products, "originCountry": originCountry}
	if err := h.call(ctx, http.MethodPost, h.endpoints.Markets, body, &out); err != nil {
		return nil, err
	}
	return out.Recommendations, nil
}

// GenerateBuyerProfile calls POST /icp/generate.
func (h *HTTP) GenerateBuyerProfile(ctx context.Context, products []Product, targetCountries []string) (BuyerProfile, error) {
	var bp BuyerProfile
	body := map[string]any{"products": products, "targetCountries": targetCountries}
	err := h.call(ctx, http.MethodPost, h.endpoints.BuyerProfile, body, &bp)
	return bp, err
}

// DiscoverLeads calls POST /leads/discover-batch.
func (h *HTTP) DiscoverLeads(ctx context.Context, req DiscoverRequest) error {
	return h.call(ctx, http.MethodPost, h.endpoints.DiscoverLeads, req, nil)
}
