package pricing

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tixwave/pricing-engine/internal/domain"
)

// Rejection reasons surfaced to the caller as couponError. Each constraint
// produces its own reason so the storefront can explain the failure.
const (
	ReasonCouponNotFound   = "coupon not found"
	ReasonCouponInactive   = "coupon is not active"
	ReasonCouponNotStarted = "coupon is not valid yet"
	ReasonCouponExpired    = "coupon has expired"
	ReasonMinOrderValue    = "minimum order value not met"
	ReasonUsageLimit       = "coupon usage limit reached"
	ReasonPerUserLimit     = "per-user usage limit reached"
	ReasonMovieScope       = "coupon is not valid for this movie"
	ReasonShowtimeScope    = "coupon is not valid for this showtime"
	ReasonSeatScope        = "coupon is not valid for the selected seat types"
	ReasonPaymentScope     = "coupon is not valid for this payment method"
)

// SeatScopePolicy decides how a seatCategory-scoped coupon treats a mixed
// seat selection.
type SeatScopePolicy string

const (
	// ScopeAnySeat accepts the coupon when at least one selected seat matches
	// the category. This is the documented default.
	ScopeAnySeat SeatScopePolicy = "any"
	// ScopeAllSeats requires every selected seat to match the category.
	ScopeAllSeats SeatScopePolicy = "all"
)

// OrderContext is the aggregate order state a coupon is validated against.
// SeatTotals holds each seat's after-membership price in quote order and is
// also the weight vector for discount distribution.
type OrderContext struct {
	Subtotal         decimal.Decimal
	SeatTypes        []string
	SeatTotals       []decimal.Decimal
	ShowtimeID       int64
	MovieID          int64
	PaymentMethod    string
	PriorRedemptions int
}

// CouponOutcome is either an acceptance carrying the aggregate discount and
// its per-seat distribution, or a rejection with a specific reason.
type CouponOutcome struct {
	Accepted   bool
	Reason     string
	Discount   decimal.Decimal
	SeatShares []decimal.Decimal
}

func rejected(reason string) CouponOutcome {
	return CouponOutcome{Reason: reason}
}

// CouponValidator checks a coupon's constraints against an order. The
// usage-limit checks here are advisory; the authoritative recheck happens in
// the store's atomic increment at commit time.
type CouponValidator struct {
	logger    *slog.Logger
	seatScope SeatScopePolicy
}

func NewCouponValidator(logger *slog.Logger, seatScope SeatScopePolicy) *CouponValidator {
	if seatScope == "" {
		seatScope = ScopeAnySeat
	}

	return &CouponValidator{logger: logger, seatScope: seatScope}
}

// Validate runs the constraint checks in their documented order. Every
// failing constraint is logged, but only the first one is surfaced as the
// rejection reason. On acceptance the aggregate discount is computed and
// distributed across seats proportionally to their after-membership prices.
func (v *CouponValidator) Validate(coupon *domain.Coupon, order OrderContext, now time.Time) CouponOutcome {
	if coupon == nil {
		return rejected(ReasonCouponNotFound)
	}

	failures := v.checkConstraints(coupon, order, now)
	if len(failures) > 0 {
		for _, reason := range failures {
			v.logger.Debug("coupon constraint failed",
				"coupon_code", coupon.Code,
				"reason", reason,
			)
		}

		return rejected(failures[0])
	}

	discount := aggregateDiscount(coupon, order.Subtotal)

	return CouponOutcome{
		Accepted:   true,
		Discount:   discount,
		SeatShares: distributeDiscount(discount, order.SeatTotals),
	}
}

func (v *CouponValidator) checkConstraints(coupon *domain.Coupon, order OrderContext, now time.Time) []string {
	var failures []string

	fail := func(reason string) {
		failures = append(failures, reason)
	}

	if !coupon.Active {
		fail(ReasonCouponInactive)
	}

	if coupon.ValidFrom != nil && now.Before(*coupon.ValidFrom) {
		fail(ReasonCouponNotStarted)
	} else if coupon.ExpiresAt != nil && now.After(*coupon.ExpiresAt) {
		fail(ReasonCouponExpired)
	}

	if order.Subtotal.LessThan(coupon.MinOrderValue) {
		fail(ReasonMinOrderValue)
	}

	if coupon.MaxUses != nil && coupon.UsedCount >= *coupon.MaxUses {
		fail(ReasonUsageLimit)
	}

	if coupon.PerUserLimit != nil && order.PriorRedemptions >= *coupon.PerUserLimit {
		fail(ReasonPerUserLimit)
	}

	// Scope restrictions qualify the whole order, not individual seats.
	if coupon.MovieID != nil && *coupon.MovieID != order.MovieID {
		fail(ReasonMovieScope)
	}

	if coupon.ShowtimeID != nil && *coupon.ShowtimeID != order.ShowtimeID {
		fail(ReasonShowtimeScope)
	}

	if coupon.SeatCategory != nil && !v.seatCategoryMatches(*coupon.SeatCategory, order.SeatTypes) {
		fail(ReasonSeatScope)
	}

	if coupon.PaymentMethod != nil && !strings.EqualFold(*coupon.PaymentMethod, order.PaymentMethod) {
		fail(ReasonPaymentScope)
	}

	return failures
}

func (v *CouponValidator) seatCategoryMatches(category string, seatTypes []string) bool {
	matches := 0

	for _, seatType := range seatTypes {
		if strings.EqualFold(category, seatType) {
			matches++
		}
	}

	if v.seatScope == ScopeAllSeats {
		return matches == len(seatTypes)
	}

	return matches > 0
}

func aggregateDiscount(coupon *domain.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal

	switch coupon.DiscountType {
	case domain.DiscountPercent:
		discount = subtotal.Mul(coupon.DiscountValue).Div(decimal.NewFromInt(100)).Round(2)
	case domain.DiscountFlat:
		discount = coupon.DiscountValue.Round(2)
	}

	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	return discount
}

// distributeDiscount splits the aggregate discount across seats proportionally
// to their weights using largest-remainder rounding, so the shares always sum
// to the aggregate exactly to the smallest currency unit.
func distributeDiscount(discount decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(weights))
	for i := range shares {
		shares[i] = decimal.Zero
	}

	if len(weights) == 0 || !discount.IsPositive() {
		return shares
	}

	totalWeight := decimal.Zero
	for _, w := range weights {
		totalWeight = totalWeight.Add(w)
	}

	if !totalWeight.IsPositive() {
		return shares
	}

	totalCents := discount.Mul(decimal.NewFromInt(100)).IntPart()

	type remainder struct {
		index    int
		fraction decimal.Decimal
	}

	cents := make([]int64, len(weights))
	remainders := make([]remainder, len(weights))
	var assigned int64

	for i, w := range weights {
		exact := decimal.NewFromInt(totalCents).Mul(w).Div(totalWeight)
		floor := exact.Floor()

		cents[i] = floor.IntPart()
		assigned += cents[i]
		remainders[i] = remainder{index: i, fraction: exact.Sub(floor)}
	}

	// Hand the leftover cents to the largest remainders; ties go to the
	// earlier seat for determinism.
	sort.SliceStable(remainders, func(i, j int) bool {
		return remainders[i].fraction.GreaterThan(remainders[j].fraction)
	})

	for i := int64(0); i < totalCents-assigned; i++ {
		cents[remainders[i].index]++
	}

	for i, c := range cents {
		shares[i] = decimal.New(c, -2)
	}

	return shares
}
