package pricing

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tixwave/pricing-engine/internal/domain"
)

// SeatContext is everything known about a single seat at quote time.
// Occupancy and SurgeThreshold are supplied by the caller; the engine never
// computes occupancy itself.
type SeatContext struct {
	SeatID          int64
	SeatType        string
	BasePrice       decimal.Decimal
	ShowtimeStart   time.Time
	PopularityScore int
	Occupancy       float64
	SurgeThreshold  float64
}

// Evaluator applies an ordered set of pricing rules to a seat's base price.
// It is a pure function of its inputs apart from fail-open logging.
type Evaluator struct {
	logger *slog.Logger
}

func NewEvaluator(logger *slog.Logger) *Evaluator {
	return &Evaluator{logger: logger}
}

// Evaluate filters candidates down to the rules matching the seat, orders them
// by (priority, id) ascending, and applies them sequentially to the base
// price. The running price is clamped to zero after every step so a later
// multiplier can never amplify a negative value. A malformed rule is skipped
// and logged; one bad rule never blocks quoting.
func (e *Evaluator) Evaluate(
	seat SeatContext,
	candidates []domain.PricingRule,
	now time.Time) ([]domain.AppliedRule, decimal.Decimal) {

	matched := make([]domain.PricingRule, 0, len(candidates))

	for _, rule := range candidates {
		if !rule.Active || !withinRuleWindow(now, rule.ValidFrom, rule.ValidUntil) {
			continue
		}
		if e.matches(rule, seat) {
			matched = append(matched, rule)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Priority != matched[j].Priority {
			return matched[i].Priority < matched[j].Priority
		}
		return matched[i].ID < matched[j].ID
	})

	applied := make([]domain.AppliedRule, 0, len(matched))
	price := seat.BasePrice

	for _, rule := range matched {
		effect, next, ok := applyRule(rule, price)
		if !ok {
			// Rule carries neither a multiplier nor a flat discount: a no-op
			// kept for forward compatibility, not an error.
			continue
		}

		if next.IsNegative() {
			next = decimal.Zero
		}

		applied = append(applied, domain.AppliedRule{
			Name:   rule.Name,
			Type:   rule.Type,
			Effect: effect,
		})
		price = next
	}

	return applied, price
}

func (e *Evaluator) matches(rule domain.PricingRule, seat SeatContext) bool {
	switch rule.Type {
	case domain.RuleDayType:
		if len(rule.Condition.Days) == 0 {
			e.logMalformed(rule, "day set is empty")
			return false
		}
		weekday := int(seat.ShowtimeStart.Weekday())
		for _, day := range rule.Condition.Days {
			if day == weekday {
				return true
			}
		}
		return false

	case domain.RulePopularity:
		if rule.Condition.MinPopularity == nil {
			e.logMalformed(rule, "minimum popularity is missing")
			return false
		}
		return seat.PopularityScore >= *rule.Condition.MinPopularity

	case domain.RuleSeatCategory:
		if rule.Condition.SeatCategory == "" {
			e.logMalformed(rule, "seat category is missing")
			return false
		}
		return strings.EqualFold(rule.Condition.SeatCategory, seat.SeatType)

	case domain.RuleDemandSurge:
		return seat.SurgeThreshold > 0 && seat.Occupancy >= seat.SurgeThreshold

	case domain.RuleFlatDiscount:
		return true

	default:
		e.logMalformed(rule, "unrecognized rule type")
		return false
	}
}

func (e *Evaluator) logMalformed(rule domain.PricingRule, reason string) {
	e.logger.Warn("skipping malformed pricing rule",
		"rule_id", rule.ID,
		"rule_type", string(rule.Type),
		"reason", reason,
	)
}

// applyRule applies a single rule's effect to the running price and returns
// the display effect string, computed from the nominal pre-application
// effect. When both a multiplier and a flat discount are set, the multiplier
// wins.
func applyRule(rule domain.PricingRule, price decimal.Decimal) (string, decimal.Decimal, bool) {
	if rule.Multiplier != nil && rule.Multiplier.IsPositive() {
		next := price.Mul(*rule.Multiplier).Round(2)
		return fmt.Sprintf("×%s", rule.Multiplier.StringFixed(2)), next, true
	}

	if rule.FlatDiscount != nil && !rule.FlatDiscount.IsNegative() {
		next := price.Sub(*rule.FlatDiscount).Round(2)
		return fmt.Sprintf("−%s", rule.FlatDiscount.StringFixed(2)), next, true
	}

	return "", price, false
}

// withinRuleWindow reports whether the given instant falls inside the rule's
// optional [validFrom, validUntil] bounds, both inclusive at day granularity.
func withinRuleWindow(now time.Time, from, until *time.Time) bool {
	day := truncateToDay(now)

	if from != nil && day.Before(truncateToDay(*from)) {
		return false
	}
	if until != nil && day.After(truncateToDay(*until)) {
		return false
	}

	return true
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
