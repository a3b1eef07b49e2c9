// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package credits

import (
	"fmt"
	"time"
)

// Plan is the subscription tier that sets the monthly credit limit.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanStarter    Plan = "starter"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// Action is a billable operation.
type Action string

const (
	ActionLeadUnlock          Action = "lead_unlock"
	ActionVerifiedEmailUnlock Action = "verified_email_unlock"
	ActionAIEmailGeneration   Action = "ai_email_generation"
	ActionSmartSegment        Action = "smart_segment_creation"
	ActionSupplyChainIntel    Action = "supply_chain_intel"
	ActionCampaignEmailBatch  Action = "campaign_email_batch"
	ActionMonthlyRefill       Action = "monthly_refill"
	ActionPlanUpgrade         Action = "plan_upgrade"
	ActionAdminAdjustment     Action = "admin_adjustment"
	ActionRefund              Action = "refund"
)

var actionNames = map[Action]string{
	ActionLeadUnlock:          "Lead Unlocked",
	ActionVerifiedEmailUnlock: "Verified Email Unlocked",
	ActionAIEmailGeneration:   "AI Email Generated",
	ActionSmartSegment:        "Smart Segment Created",
	ActionSupplyChainIntel:    "Supply Chain Intel",
	ActionCampaignEmailBatch:  "Campaign Email Batch",
	ActionMonthlyRefill:       "Monthly Refill",
	ActionPlanUpgrade:         "Plan Upgrade",
	ActionAdminAdjustment:     "Admin Adjustment",
	ActionRefund:              "Refund",
}

// Billable reports whether a may be settled from the console.
func (a Action) Billable() bool {
	switch a {
	case ActionLeadUnlock, ActionVerifiedEmailUnlock, ActionAIEmailGeneration,
		ActionSmartSegment, ActionSupplyChainIntel, ActionCampaignEmailBatch:
		return true
	}
	return false
}

// DisplayName is the label shown in usage history.
func (a Action) DisplayName() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return string(a)
}

// ParseAction accepts any known action identifier.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if _, ok := actionNames[a]; !ok {
		return "", fmt.Errorf("unknown action %q", s)
	}
	return a, nil
}

// Stats is the usage summary returned with the balance.
type Stats struct {
	UsedToday          int `json:"usedToday"`
	UsedThisWeek       int `json:"usedThisWeek"`
	UsedThisMonth      int `json:"usedThisMonth"`
	RemainingThisMonth int `json:"remainingThisMonth"`
}

// Warnings are server-computed flags for the balance banner.
type Warnings struct {
	LowBalance  bool `json:"lowBalance"`
	ZeroBalance bool `json:"zeroBalance"`
	HighUsage   bool `json:"highUsage"`
}

// Balance is one snapshot of the metered resource.
type Balance struct {
	Current        int       `json:"current"`
	Limit          int       `json:"limit"`
	Plan           Plan      `json:"plan"`
	NextRefillDate time.Time `json:"nextRefillDate"`
	Stats          Stats     `json:"stats"`
	Warnings       Warnings  `json:"warnings"`
}

// Validate checks the snapshot invariants.
func (b Balance) Validate() error {
	if b.Current < 0 {
		return fmt.Errorf("negative balance %d", b.Current)
	}
	if b.Limit > 0 && b.Current > b.Limit {
		return fmt.Errorf("balance %d exceeds limit %d", b.Current, b.Limit)
	}
	return nil
}

// Percent is the remaining share of the limit, 0-100.
func (b Balance) Percent() float64 {
	if b.Limit <= 0 {
		return 0
	}
	return float64(b.Current) / float64(b.Limit) * 100
}

// UpgradePrompt asks the user to upgrade because a cost exceeded the balance.
type UpgradePrompt struct {
	Required  int    `json:"required"`
	Available int    `json:"available"`
	Message   string `json:"message"`
}

// NewUpgradePrompt builds the prompt with its standard wording.
func NewUpgradePrompt(required, available int) UpgradePrompt {
	return UpgradePrompt{
		Required:  required,
		Available: available,
		Message:   fmt.Sprintf("You need %d credits but have only %d. Upgrade to continue.", required, available),
	}
}
