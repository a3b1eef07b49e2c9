// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package onboarding

import (
	"regexp"

	"loxtr/console/internal/backend"
	"loxtr/console/internal/enrich"
	"loxtr/console/internal/workflow"
)

// Step ordinals.
const (
	StepProfile = iota
	StepPortfolio
	StepStrategy
	StepCustomers
	StepPlans
)

var stepNames = []string{"profile", "portfolio", "strategy", "customers", "plans"}

var websitePattern = regexp.MustCompile(`^(https?:\/\/)?([\da-z.-]+)\.([a-z.]{2,6})([/\w .-]*)*\/?$`)

// Draft is the onboarding form state.
type Draft struct {
	Profile         backend.Profile
	ValueProp       string
	Recommendations []backend.MarketRecommendation
	Markets         *enrich.Draft[string]
	Industries      *enrich.Draft[string]
	Roles           *enrich.Draft[string]
}

// ValidWebsite reports whether s looks like a website address.
func ValidWebsite(s string) bool { return websitePattern.MatchString(s) }

func validateProfile(d Draft) error {
	p := d.Profile
	for _, f := range []struct{ name, value string }{
		{"company", p.Company},
		{"name", p.Name},
		{"industry", p.Industry},
		{"website", p.Website},
		{"phone", p.Phone},
	} {
		if f.value == "" {
			return &workflow.FieldError{Step: StepProfile, Field: f.name, Message: "all marked fields are required"}
		}
	}
	if !ValidWebsite(p.Website) {
		return &workflow.FieldError{Step: StepProfile, Field: "website", Message: "enter a valid website URL"}
	}
	return nil
}

func validatePortfolio(d Draft) error {
	if len(d.Profile.ProductGroups) == 0 {
		return &workflow.FieldError{Step: StepPortfolio, Field: "productGroups", Message: "add at least one product"}
	}
	return nil
}

func validateStrategy(d Draft) error {
	if len(d.Profile.TargetMarkets) == 0 {
		return &workflow.FieldError{Step: StepStrategy, Field: "targetMarkets", Message: "select at least one target market"}
	}
	return nil
}

func validateCustomers(d Draft) error {
	if len(d.Profile.TargetIndustries) == 0 {
		return &workflow.FieldError{Step: StepCustomers, Field: "targetIndustries", Message: "select target segments"}
	}
	if len(d.Profile.TargetJobTitles) == 0 {
		return &workflow.FieldError{Step: StepCustomers, Field: "targetJobTitles", Message: "select decision makers"}
	}
	return nil
}

// completion derives which steps a stored profile has already finished.
func completion(p backend.Profile) []bool {
	flags := make([]bool, len(stepNames))
	flags[StepProfile] = validateProfile(Draft{Profile: p}) == nil
	flags[StepPortfolio] = len(p.ProductGroups) > 0
	flags[StepStrategy] = len(p.TargetMarkets) > 0
	flags[StepCustomers] = len(p.TargetIndustries) > 0 && len(p.TargetJobTitles) > 0
	flags[StepPlans] = p.OnboardingCompleted
	return flags
}
