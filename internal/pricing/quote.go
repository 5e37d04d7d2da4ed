package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tixwave/pricing-engine/internal/domain"
)

// Request carries the caller-supplied inputs for a quote. UserID and the
// membership tier arrive from the gateway; occupancy is measured by the
// booking workflow and passed through untouched.
type Request struct {
	ShowtimeID     int64
	SeatIDs        []int64
	CouponCode     string
	PaymentMethod  string
	UserID         int64
	MembershipTier domain.MembershipTier
	Occupancy      float64
}

// Options tunes the composer. Zero values fall back to the product defaults.
type Options struct {
	Membership     MembershipTable
	SeatScope      SeatScopePolicy
	SurgeThreshold float64
	Now            func() time.Time
}

// Composer orchestrates the rule evaluator, membership calculator, and
// coupon validator into a full itemized quote. It performs no writes, so
// quoting may run with unbounded parallelism.
type Composer struct {
	catalog domain.CatalogRepository
	rules   domain.RuleRepository
	coupons domain.CouponRepository

	evaluator  *Evaluator
	validator  *CouponValidator
	membership MembershipTable

	surgeThreshold float64
	logger         *slog.Logger
	now            func() time.Time
}

func NewComposer(
	logger *slog.Logger,
	catalog domain.CatalogRepository,
	rules domain.RuleRepository,
	coupons domain.CouponRepository,
	opts Options) *Composer {

	if opts.Membership == nil {
		opts.Membership = DefaultMembershipTable()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Composer{
		catalog:        catalog,
		rules:          rules,
		coupons:        coupons,
		evaluator:      NewEvaluator(logger),
		validator:      NewCouponValidator(logger, opts.SeatScope),
		membership:     opts.Membership,
		surgeThreshold: opts.SurgeThreshold,
		logger:         logger,
		now:            opts.Now,
	}
}

// Quote prices the selected seats for a showtime, applying active rules, the
// membership discount, and an optional coupon. Structural problems (unknown
// showtime, foreign or duplicate seats) fail the whole operation; a rejected
// coupon does not, the quote is returned with CouponError populated instead.
func (c *Composer) Quote(ctx context.Context, req Request) (*domain.PricingQuote, error) {
	if err := validateSeatSelection(req.SeatIDs); err != nil {
		return nil, err
	}

	showtime, err := c.catalog.GetShowtimePricing(ctx, req.ShowtimeID)
	if err != nil {
		return nil, err
	}

	seats, err := c.catalog.GetSeatsByShowtimeAndSeatIds(ctx, req.ShowtimeID, req.SeatIDs)
	if err != nil {
		return nil, err
	}

	if len(seats) != len(req.SeatIDs) {
		return nil, domain.ErrInvalidSeatSelection
	}

	rules, err := c.rules.GetActiveRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active pricing rules: %w", err)
	}

	now := c.now()
	tier := req.MembershipTier
	if tier == "" {
		tier = domain.TierNone
	}

	breakdowns := make([]domain.SeatPriceBreakdown, len(seats))
	subtotal := decimal.Zero

	for i, seat := range seats {
		basePrice, ok := showtime.TierPrices[seat.Type]
		if !ok {
			return nil, fmt.Errorf("no tier price configured for seat type %q on showtime %d", seat.Type, showtime.ShowtimeID)
		}

		seatCtx := SeatContext{
			SeatID:          seat.ID,
			SeatType:        seat.Type,
			BasePrice:       basePrice,
			ShowtimeStart:   showtime.StartTime,
			PopularityScore: showtime.PopularityScore,
			Occupancy:       req.Occupancy,
			SurgeThreshold:  c.surgeThreshold,
		}

		applied, afterRules := c.evaluator.Evaluate(seatCtx, rules, now)
		percent, amount, afterMembership := c.membership.Apply(afterRules, tier)

		breakdowns[i] = domain.SeatPriceBreakdown{
			SeatID:                    seat.ID,
			SeatType:                  seat.Type,
			BasePrice:                 basePrice,
			AppliedRules:              applied,
			AfterRules:                afterRules,
			MembershipDiscountPercent: percent,
			MembershipDiscountAmount:  amount,
			AfterMembership:           afterMembership,
			CouponDiscountAmount:      decimal.Zero,
			AfterCoupon:               afterMembership,
			FinalPrice:                afterMembership,
		}

		subtotal = subtotal.Add(afterMembership)
	}

	quote := &domain.PricingQuote{
		Seats:          breakdowns,
		Subtotal:       subtotal,
		CouponDiscount: decimal.Zero,
		Total:          subtotal,
		MembershipTier: tier,
	}

	if req.CouponCode != "" {
		if err := c.applyCoupon(ctx, req, quote, showtime, now); err != nil {
			return nil, err
		}
	}

	return quote, nil
}

func (c *Composer) applyCoupon(
	ctx context.Context,
	req Request,
	quote *domain.PricingQuote,
	showtime *domain.ShowtimePricing,
	now time.Time) error {

	code := CanonicalCouponCode(req.CouponCode)

	coupon, err := c.coupons.GetByCode(ctx, code)
	if err != nil && !errors.Is(err, domain.ErrRecordNotFound) {
		return fmt.Errorf("look up coupon %s: %w", code, err)
	}

	priorRedemptions := 0
	if coupon != nil && coupon.PerUserLimit != nil {
		priorRedemptions, err = c.coupons.CountRedemptions(ctx, coupon.ID, req.UserID)
		if err != nil {
			return fmt.Errorf("count redemptions for coupon %s: %w", code, err)
		}
	}

	order := OrderContext{
		Subtotal:         quote.Subtotal,
		SeatTypes:        seatTypes(quote.Seats),
		SeatTotals:       seatTotals(quote.Seats),
		ShowtimeID:       showtime.ShowtimeID,
		MovieID:          showtime.MovieID,
		PaymentMethod:    req.PaymentMethod,
		PriorRedemptions: priorRedemptions,
	}

	outcome := c.validator.Validate(coupon, order, now)

	if !outcome.Accepted {
		// Non-fatal: the quote stands, priced without the coupon.
		reason := outcome.Reason
		quote.CouponError = &reason
		return nil
	}

	quote.Coupon = &domain.AppliedCoupon{
		Code:          coupon.Code,
		DiscountType:  coupon.DiscountType,
		DiscountValue: coupon.DiscountValue,
	}
	quote.CouponDiscount = outcome.Discount

	for i := range quote.Seats {
		share := outcome.SeatShares[i]
		afterCoupon := quote.Seats[i].AfterMembership.Sub(share)
		if afterCoupon.IsNegative() {
			afterCoupon = decimal.Zero
		}

		quote.Seats[i].CouponDiscountAmount = share
		quote.Seats[i].AfterCoupon = afterCoupon
		quote.Seats[i].FinalPrice = afterCoupon
	}

	total := quote.Subtotal.Sub(outcome.Discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	quote.Total = total

	return nil
}

// CanonicalCouponCode normalizes a user-supplied code to its stored form.
func CanonicalCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func validateSeatSelection(seatIDs []int64) error {
	if len(seatIDs) == 0 {
		return domain.ErrEmptySeatSelection
	}

	seen := make(map[int64]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		if _, ok := seen[id]; ok {
			return domain.ErrDuplicateSeats
		}
		seen[id] = struct{}{}
	}

	return nil
}

func seatTypes(seats []domain.SeatPriceBreakdown) []string {
	types := make([]string, len(seats))
	for i, s := range seats {
		types[i] = s.SeatType
	}
	return types
}

func seatTotals(seats []domain.SeatPriceBreakdown) []decimal.Decimal {
	totals := make([]decimal.Decimal, len(seats))
	for i, s := range seats {
		totals[i] = s.AfterMembership
	}
	return totals
}
