// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"encoding/json"
	"strings"
)

// Tokens is an issued session.
type Tokens struct {
	Access  string `json:"token"`
	Refresh string `json:"refreshToken"`
}

// Product is one product group of the exporter's portfolio.
type Product struct {
	Name         string   `json:"name"`
	HSCode       string   `json:"hsCode"`
	Certificates []string `json:"certificates"`
	UsageAreas   []string `json:"usageAreas,omitempty"`
}

// UnmarshalJSON accepts both the object form and a bare product name.
func (p *Product) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		*p = Product{Name: name}
		return nil
	}
	type plain Product
	var out plain
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	*p = Product(out)
	return nil
}

// ProductNames lists the names of ps in order.
func ProductNames(ps []Product) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name)
	}
	return out
}

// Profile is the user and company record edited during onboarding.
type Profile struct {
	ID                  string    `json:"id,omitempty"`
	Email               string    `json:"email,omitempty"`
	Name                string    `json:"name"`
	Company             string    `json:"company"`
	JobTitle            string    `json:"jobTitle"`
	Phone               string    `json:"phone"`
	PhoneCountryCode    string    `json:"phoneCountryCode"`
	Website             string    `json:"website"`
	Country             string    `json:"country"`
	City                string    `json:"city"`
	Industry            string    `json:"industry"`
	CompanyType         string    `json:"companyType"`
	CompanyDescription  string    `json:"companyDescription"`
	ValueProposition    string    `json:"valueProposition,omitempty"`
	PreferredLanguage   string    `json:"preferredLanguage"`
	Logo                string    `json:"logo,omitempty"`
	ProductGroups       []Product `json:"productGroups"`
	TargetMarkets       []string  `json:"targetMarkets"`
	TargetIndustries    []string  `json:"targetIndustries"`
	TargetJobTitles     []string  `json:"targetJobTitles"`
	Subscription        string    `json:"subscription"`
	SubscriptionStatus  string    `json:"subscriptionStatus,omitempty"`
	OnboardingCompleted bool      `json:"onboardingCompleted"`
}

// WithDefaults fills the fields the onboarding form pre-selects.
func (p Profile) WithDefaults() Profile {
	if p.CompanyType == "" {
		p.CompanyType = "manufacturer"
	}
	if p.PreferredLanguage == "" {
		p.PreferredLanguage = "English"
	}
	if p.Subscription == "" {
		p.Subscription = "free"
	}
	return p
}

// HSCode is a Harmonized System classification candidate.
type HSCode struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence,omitempty"`
}

// Chapter returns the two-digit HS chapter, or "" when the code is too short.
func (h HSCode) Chapter() string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, h.Code)
	if len(digits) < 2 {
		return ""
	}
	return digits[:2]
}

// SuggestContext selects what the AI suggests.
type SuggestContext string

const (
	SuggestIndustry     SuggestContext = "industry"
	SuggestMarket       SuggestContext = "market"
	SuggestBuyerProfile SuggestContext = "buyer_profile"
)

// SuggestRequest is the body of an AI field suggestion.
type SuggestRequest struct {
	Context       SuggestContext `json:"context"`
	Query         string         `json:"query"`
	Product       string         `json:"product,omitempty"`
	OriginCountry string         `json:"originCountry,omitempty"`
	Industry      string         `json:"industry,omitempty"`
}

// Bio is what website scraping extracted.
type Bio struct {
	Bio      string   `json:"bio"`
	Logo     string   `json:"logo"`
	Products []string `json:"products"`
}

// ValuePropRequest describes the company for value-proposition generation.
type ValuePropRequest struct {
	CompanyName  string   `json:"companyName"`
	Industry     string   `json:"industry"`
	Description  string   `json:"description,omitempty"`
	Products     []string `json:"products"`
	Certificates []string `json:"certificates,omitempty"`
}

// MarketRecommendation is one scored target market.
type MarketRecommendation struct {
	Country   string             `json:"country"`
	Score     float64            `json:"score"`
	Reasoning string             `json:"reasoning"`
	Selected  bool               `json:"selected"`
	Breakdown map[string]float64 `json:"breakdown,omitempty"`
}

// ICPEntry is one suggested buyer industry or decision-maker role.
type ICPEntry struct {
	Name      string `json:"name,omitempty"`
	Title     string `json:"title,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
	Selected  bool   `json:"selected"`
}

// Label is the display value: the role title when present, else the name.
func (e ICPEntry) Label() string {
	if e.Title != "" {
		return e.Title
	}
	return e.Name
}

// BuyerProfile is the generated ideal customer profile.
type BuyerProfile struct {
	TargetIndustries []ICPEntry `json:"targetIndustries"`
	DecisionMakers   []ICPEntry `json:"decisionMakers"`
}

// DiscoverRequest starts a lead discovery batch.
type DiscoverRequest struct {
	Product       string   `json:"product"`
	TargetMarkets []string `json:"targetMarkets"`
	Industry      string   `json:"industry"`
	Count         int      `json:"count"`
	GroupName     string   `json:"groupName"`
	Preview       bool     `json:"preview"`
}
