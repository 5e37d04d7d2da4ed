package domain

import (
	"github.com/shopspring/decimal"
)

type MembershipTier string

const (
	TierNone     MembershipTier = "NONE"
	TierSilver   MembershipTier = "SILVER"
	TierGold     MembershipTier = "GOLD"
	TierPlatinum MembershipTier = "PLATINUM"
)

// SeatPriceBreakdown itemizes how one seat's final price was reached:
// base tier price, ordered rule applications, membership discount, and this
// seat's share of the coupon discount.
type SeatPriceBreakdown struct {
	SeatID                    int64
	SeatType                  string
	BasePrice                 decimal.Decimal
	AppliedRules              []AppliedRule
	AfterRules                decimal.Decimal
	MembershipDiscountPercent decimal.Decimal
	MembershipDiscountAmount  decimal.Decimal
	AfterMembership           decimal.Decimal
	CouponDiscountAmount      decimal.Decimal
	AfterCoupon               decimal.Decimal
	FinalPrice                decimal.Decimal
}

// AppliedCoupon echoes the accepted coupon back to the caller.
type AppliedCoupon struct {
	Code          string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
}

// PricingQuote is the engine's aggregate output. Subtotal is the sum of
// AfterMembership across seats; Total is subtotal minus the coupon discount,
// clamped to zero. A rejected coupon populates CouponError and leaves the
// rest of the quote untouched.
type PricingQuote struct {
	ID             string
	Seats          []SeatPriceBreakdown
	Subtotal       decimal.Decimal
	Coupon         *AppliedCoupon
	CouponError    *string
	CouponDiscount decimal.Decimal
	Total          decimal.Decimal
	MembershipTier MembershipTier
	CalculationMs  int64
}
