// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package fakeapi

import (
	"fmt"
	"net/http"
	"strings"

	"loxtr/console/internal/backend"
	"loxtr/console/internal/credits"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !strings.EqualFold(in.Email, s.email) || in.Password != s.password {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	t := s.issueLocked()
	writeData(w, map[string]any{"token": t.Access, "refreshToken": t.Refresh, "user": s.profile})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.RefreshToken == "" || in.RefreshToken != s.refresh {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	t := s.issueLocked()
	writeData(w, map[string]any{"token": t.Access})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p := s.profile
	s.mu.Unlock()
	writeData(w, map[string]any{"user": p})
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var p backend.Profile
	if !decode(w, r, &p) {
		return
	}
	s.mu.Lock()
	p.ID, p.Email = s.profile.ID, s.profile.Email
	s.profile = p
	s.mu.Unlock()
	writeData(w, map[string]any{"user": p})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	b := s.balance
	s.mu.Unlock()
	b.Warnings = credits.Warnings{
		LowBalance:  b.Percent() <= 20,
		ZeroBalance: b.Current == 0,
		HighUsage:   b.Stats.UsedToday > b.Limit/4,
	}
	writeData(w, b)
}

func (s *Server) handleConsume(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Amount int            `json:"amount"`
		Action credits.Action `json:"action"`
	}
	if !decode(w, r, &in) {
		return
	}
	if in.Amount <= 0 || !in.Action.Billable() {
		writeError(w, http.StatusBadRequest, "invalid amount or action")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balance.Current < in.Amount {
		writeError(w, http.StatusPaymentRequired, "Insufficient credits")
		return
	}
	s.balance.Current -= in.Amount
	s.balance.Stats.UsedToday += in.Amount
	s.balance.Stats.UsedThisWeek += in.Amount
	s.balance.Stats.UsedThisMonth += in.Amount
	s.balance.Stats.RemainingThisMonth -= in.Amount
	writeData(w, map[string]any{"newBalance": s.balance.Current})
}

func (s *Server) handleHSSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []backend.HSCode{}
	for _, c := range s.hsIndex {
		if q != "" && (strings.Contains(strings.ToLower(c.Description), q) || strings.HasPrefix(c.Code, q)) {
			out = append(out, c)
		}
	}
	writeData(w, out)
}

func (s *Server) handleHSSuggest(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Product string `json:"product"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	out := append([]backend.HSCode(nil), s.aiHS...)
	s.mu.Unlock()
	writeData(w, out)
}

var suggestions = map[backend.SuggestContext][]string{
	backend.SuggestIndustry:     {"Building Materials", "Chemicals", "Food & Beverage", "Furniture", "Textiles"},
	backend.SuggestMarket:       {"Germany", "France", "United Arab Emirates", "United Kingdom", "United States"},
	backend.SuggestBuyerProfile: {"Importers", "Wholesale Distributors", "Retail Chains", "Project Contractors"},
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var in backend.SuggestRequest
	if !decode(w, r, &in) {
		return
	}
	q := strings.ToLower(strings.TrimSpace(in.Query))
	out := []string{}
	for _, v := range suggestions[in.Context] {
		if strings.Contains(strings.ToLower(v), q) {
			out = append(out, v)
		}
	}
	writeData(w, out)
}

func (s *Server) handleBio(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Website string `json:"website"`
	}
	if !decode(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Website) == "" {
		writeError(w, http.StatusBadRequest, "website is required")
		return
	}
	host := strings.TrimPrefix(strings.TrimPrefix(in.Website, "https://"), "http://")
	writeData(w, backend.Bio{
		Bio:      fmt.Sprintf("%s manufactures and exports industrial goods worldwide.", host),
		Logo:     "https://" + strings.TrimRight(host, "/") + "/logo.png",
		Products: []string{"Acrylic Wall Paint", "Wood Varnish"},
	})
}

func (s *Server) handleValueProp(w http.ResponseWriter, r *http.Request) {
	var in backend.ValuePropRequest
	if !decode(w, r, &in) {
		return
	}
	writeData(w, fmt.Sprintf("%s delivers certified %s products to buyers in over 20 countries.", in.CompanyName, strings.ToLower(in.Industry)))
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := append([]backend.MarketRecommendation(nil), s.markets...)
	s.mu.Unlock()
	writeData(w, map[string]any{"recommendations": out})
}

func (s *Server) handleBuyerProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := s.buyer
	s.mu.Unlock()
	writeData(w, out)
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	var in backend.DiscoverRequest
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	s.discovered = append(s.discovered, in)
	s.mu.Unlock()
	writeData(w, map[string]any{"queued": in.Count})
}
