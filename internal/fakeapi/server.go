// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package fakeapi is an in-memory stand-in for the LOXTR API. It backs the
// package tests and the `loxtr mock-api` command, and speaks the same
// {"success":true,"data":...} / {"error":"..."} envelope as the real service.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"loxtr/console/internal/backend"
	"loxtr/console/internal/credits"
)

// Server holds the fake account state.
type Server struct {
	mu sync.Mutex

	email, password string
	access, refresh string

	profile    backend.Profile
	balance    credits.Balance
	hsIndex    []backend.HSCode
	aiHS       []backend.HSCode
	markets    []backend.MarketRecommendation
	buyer      backend.BuyerProfile
	discovered []backend.DiscoverRequest

	calls   map[string]int
	fail    map[string]int
	latency map[string]time.Duration
}

// Demo credentials accepted by a fresh server.
const (
	DemoEmail    = "demo@loxtr.test"
	DemoPassword = "demo-password"
)

// New returns a server seeded with a demo account.
func New() *Server {
	return &Server{
		email:    DemoEmail,
		password: DemoPassword,
		profile: backend.Profile{
			ID:           "u-demo",
			Email:        DemoEmail,
			Name:         "Demo Exporter",
			Subscription: "free",
		},
		balance: credits.Balance{
			Current:        100,
			Limit:          100,
			Plan:           credits.PlanFree,
			NextRefillDate: time.Now().AddDate(0, 1, 0).Truncate(24 * time.Hour),
			Stats:          credits.Stats{RemainingThisMonth: 100},
		},
		hsIndex: []backend.HSCode{
			{Code: "3208.10", Description: "Paints and varnishes based on polyesters"},
			{Code: "3208.20", Description: "Paints and varnishes based on acrylic or vinyl polymers"},
			{Code: "3209.10", Description: "Paints in an aqueous medium, acrylic or vinyl"},
			{Code: "6802.21", Description: "Marble, travertine and alabaster, cut or sawn"},
			{Code: "0805.10", Description: "Oranges, fresh or dried"},
			{Code: "8418.10", Description: "Combined refrigerator-freezers"},
		},
		aiHS: []backend.HSCode{
			{Code: "3214.10", Description: "Glaziers' putty and painters' fillings", Confidence: 0.72},
			{Code: "3824.99", Description: "Chemical products n.e.s.", Confidence: 0.41},
		},
		markets: []backend.MarketRecommendation{
			{Country: "Germany", Score: 92, Reasoning: "Largest EU importer of the category", Selected: true, Breakdown: map[string]float64{"tradeVolume": 9.1}},
			{Country: "United Arab Emirates", Score: 87, Reasoning: "Re-export hub for the Gulf", Selected: true, Breakdown: map[string]float64{"tradeVolume": 7.4}},
			{Country: "Poland", Score: 74, Reasoning: "Growing construction sector", Selected: false, Breakdown: map[string]float64{"tradeVolume": 5.2}},
		},
		buyer: backend.BuyerProfile{
			TargetIndustries: []backend.ICPEntry{
				{Name: "Building Materials Distributors", Selected: true},
				{Name: "Construction Contractors", Selected: true},
				{Name: "DIY Retail Chains", Selected: false},
			},
			DecisionMakers: []backend.ICPEntry{
				{Title: "Procurement Manager", Selected: true},
				{Title: "Category Buyer", Selected: false},
			},
		},
		calls:   map[string]int{},
		fail:    map[string]int{},
		latency: map[string]time.Duration{},
	}
}

// Handler returns the chi router serving the API under /api.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Get("/auth/me", s.handleMe)
			r.Put("/auth/me", s.handleUpdateMe)
			r.Get("/credits/balance", s.handleBalance)
			r.Post("/credits/consume", s.handleConsume)
			r.Get("/hs-codes/search", s.handleHSSearch)
			r.Post("/ai/hs-code-suggestions", s.handleHSSuggest)
			r.Post("/ai/suggest", s.handleSuggest)
			r.Post("/ai/generate-bio", s.handleBio)
			r.Post("/ai/generate-value-prop", s.handleValueProp)
			r.Post("/strategy/recommendations", s.handleMarkets)
			r.Post("/icp/generate", s.handleBuyerProfile)
			r.Post("/leads/discover-batch", s.handleDiscover)
		})
	})
	return r
}

// record counts calls, applies configured latency and forced failures.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api")
		s.mu.Lock()
		s.calls[path]++
		delay := s.latency[path]
		status := s.fail[path]
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if status != 0 {
			writeError(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		want := s.access
		s.mu.Unlock()
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if want == "" || got != want {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) issueLocked() backend.Tokens {
	s.access = "acc-" + uuid.NewString()
	if s.refresh == "" {
		s.refresh = "ref-" + uuid.NewString()
	}
	return backend.Tokens{Access: s.access, Refresh: s.refresh}
}

func writeData(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": v})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
