package pricing

import (
	"github.com/shopspring/decimal"
	"github.com/tixwave/pricing-engine/internal/domain"
)

// MembershipTable maps a loyalty tier to its discount percentage. The table
// is injectable configuration; DefaultMembershipTable holds the product
// defaults.
type MembershipTable map[domain.MembershipTier]decimal.Decimal

func DefaultMembershipTable() MembershipTable {
	return MembershipTable{
		domain.TierNone:     decimal.Zero,
		domain.TierSilver:   decimal.NewFromInt(5),
		domain.TierGold:     decimal.NewFromInt(10),
		domain.TierPlatinum: decimal.NewFromInt(15),
	}
}

// Apply computes the tier's discount against the given price. An unknown
// tier gets no discount. The discounted price is clamped to zero.
func (t MembershipTable) Apply(
	price decimal.Decimal,
	tier domain.MembershipTier) (percent, amount, after decimal.Decimal) {

	percent = t[tier]

	amount = price.Mul(percent).Div(decimal.NewFromInt(100)).Round(2)
	after = price.Sub(amount)

	if after.IsNegative() {
		after = decimal.Zero
	}

	return percent, amount, after
}
