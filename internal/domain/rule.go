package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type RuleType string

const (
	RuleDayType      RuleType = "DAY_TYPE"
	RulePopularity   RuleType = "POPULARITY"
	RuleSeatCategory RuleType = "SEAT_CATEGORY"
	RuleDemandSurge  RuleType = "DEMAND_SURGE"
	RuleFlatDiscount RuleType = "FLAT_DISCOUNT"
)

// RuleCondition holds the type-specific matching data of a pricing rule.
// Only the fields owned by the rule's type are meaningful; the rest stay zero.
// DEMAND_SURGE and FLAT_DISCOUNT carry no condition at all.
type RuleCondition struct {
	Days          []int  `json:"days,omitempty"`          // DAY_TYPE: weekday indices, 0=Sunday..6=Saturday
	MinPopularity *int   `json:"minPopularity,omitempty"` // POPULARITY: minimum popularity score (0-100)
	SeatCategory  string `json:"seatCategory,omitempty"`  // SEAT_CATEGORY: seat type name, matched case-insensitively
}

// PricingRule adjusts a seat's running price when its condition matches.
// Exactly one of Multiplier or FlatDiscount is expected to be set; when both
// are present the multiplier wins, and when neither is, the rule is a no-op.
type PricingRule struct {
	ID           int64
	Name         string
	Type         RuleType
	Condition    RuleCondition
	Multiplier   *decimal.Decimal
	FlatDiscount *decimal.Decimal
	Priority     int
	Active       bool
	ValidFrom    *time.Time
	ValidUntil   *time.Time
}

// AppliedRule describes one rule that fired for a seat, in application order.
type AppliedRule struct {
	Name   string
	Type   RuleType
	Effect string
}

type RuleRepository interface {
	GetActiveRules(ctx context.Context) ([]PricingRule, error)
}
