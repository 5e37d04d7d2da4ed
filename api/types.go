package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteRequest is the body of POST /v1/quotes. The acting user and their
// membership tier arrive in gateway headers, not in the body.
type QuoteRequest struct {
	ShowtimeId    int64    `json:"showtimeId" validate:"required,gt=0"`
	SeatIds       []int64  `json:"seatIds" validate:"required,min=1,dive,gt=0"`
	CouponCode    *string  `json:"couponCode,omitempty" validate:"omitempty,coupon_code"`
	PaymentMethod *string  `json:"paymentMethod,omitempty" validate:"omitempty,payment_method"`
	Occupancy     *float64 `json:"occupancy,omitempty" validate:"omitempty,gte=0,lte=1"`
}

type AppliedRule struct {
	Name     string `json:"name"`
	RuleType string `json:"ruleType"`
	Effect   string `json:"effect"`
}

type SeatPriceBreakdown struct {
	SeatId                    int64           `json:"seatId"`
	SeatType                  string          `json:"seatType"`
	BasePrice                 decimal.Decimal `json:"basePrice"`
	AppliedRules              []AppliedRule   `json:"appliedRules"`
	AfterRules                decimal.Decimal `json:"afterRules"`
	MembershipDiscountPercent decimal.Decimal `json:"membershipDiscountPercent"`
	MembershipDiscountAmount  decimal.Decimal `json:"membershipDiscountAmount"`
	AfterMembership           decimal.Decimal `json:"afterMembership"`
	CouponDiscountAmount      decimal.Decimal `json:"couponDiscountAmount"`
	AfterCoupon               decimal.Decimal `json:"afterCoupon"`
	FinalPrice                decimal.Decimal `json:"finalPrice"`
}

type CouponInfo struct {
	Code          string          `json:"code"`
	DiscountType  string          `json:"discountType"`
	DiscountValue decimal.Decimal `json:"discountValue"`
}

type PricingQuoteResponse struct {
	QuoteId        string               `json:"quoteId"`
	Seats          []SeatPriceBreakdown `json:"seats"`
	Subtotal       decimal.Decimal      `json:"subtotal"`
	Coupon         *CouponInfo          `json:"coupon,omitempty"`
	CouponError    *string              `json:"couponError,omitempty"`
	CouponDiscount decimal.Decimal      `json:"couponDiscount"`
	Total          decimal.Decimal      `json:"total"`
	MembershipTier string               `json:"membershipTier"`
	CalculationMs  int64                `json:"calculationMs"`
}

// CommitCouponRequest is the body of POST /v1/coupons/commit, called by the
// booking workflow once per successful booking, never by the UI.
type CommitCouponRequest struct {
	CouponId  int64  `json:"couponId" validate:"required,gt=0"`
	UserId    int64  `json:"userId" validate:"required,gt=0"`
	BookingId string `json:"bookingId" validate:"required,max=64"`
}

type CommitCouponResponse struct {
	Committed bool    `json:"committed"`
	Reason    *string `json:"reason,omitempty"`
}

type ErrorResponse struct {
	Message   string    `json:"message"`
	RequestId string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	ValidationErrors []ValidationError `json:"validationErrors"`
}

type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type HealthcheckResponse struct {
	Status     string     `json:"status"`
	SystemInfo SystemInfo `json:"systemInfo"`
}
