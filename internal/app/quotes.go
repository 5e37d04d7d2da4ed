package app

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tixwave/pricing-engine/api"
	"github.com/tixwave/pricing-engine/internal/domain"
	"github.com/tixwave/pricing-engine/internal/pricing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Gateway-supplied identity headers. Authentication itself happens upstream;
// the pricing API trusts its internal callers.
const (
	headerUserID         = "X-User-Id"
	headerMembershipTier = "X-Membership-Tier"
)

func (app *Application) CreateQuoteHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	var input api.QuoteRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	userID, err := strconv.ParseInt(r.Header.Get(headerUserID), 10, 64)
	if err != nil || userID < 1 {
		app.badRequestResponse(w, r, fmt.Errorf("missing or invalid %s header", headerUserID))
		return
	}

	tier := domain.TierNone
	if rawTier := r.Header.Get(headerMembershipTier); rawTier != "" {
		tier = domain.MembershipTier(strings.ToUpper(rawTier))

		if err := app.validator.Var(string(tier), "membership_tier"); err != nil {
			app.badRequestResponse(w, r, fmt.Errorf("invalid %s header", headerMembershipTier))
			return
		}
	}

	req := pricing.Request{
		ShowtimeID:     input.ShowtimeId,
		SeatIDs:        input.SeatIds,
		UserID:         userID,
		MembershipTier: tier,
	}

	if input.CouponCode != nil {
		req.CouponCode = *input.CouponCode
	}
	if input.PaymentMethod != nil {
		req.PaymentMethod = *input.PaymentMethod
	}
	if input.Occupancy != nil {
		req.Occupancy = *input.Occupancy
	}

	start := time.Now()

	quote, err := app.pricer.Quote(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, domain.ErrEmptySeatSelection),
			errors.Is(err, domain.ErrDuplicateSeats),
			errors.Is(err, domain.ErrInvalidSeatSelection):
			app.unprocessableEntityResponse(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	elapsed := time.Since(start)

	// Quote ids and timings are assigned here at the boundary; the composer
	// itself stays deterministic for identical inputs.
	quote.ID = uuid.New().String()
	quote.CalculationMs = elapsed.Milliseconds()

	app.quoteDuration.Record(r.Context(), quote.CalculationMs,
		metric.WithAttributes(attribute.Bool("coupon", req.CouponCode != "")))

	if quote.CouponError != nil {
		logger.Info("coupon rejected during quoting",
			"coupon_code", req.CouponCode,
			"reason", *quote.CouponError,
		)
	}

	resp := toPricingQuoteResponse(quote)

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toPricingQuoteResponse(quote *domain.PricingQuote) api.PricingQuoteResponse {
	resp := api.PricingQuoteResponse{
		QuoteId:        quote.ID,
		Seats:          make([]api.SeatPriceBreakdown, len(quote.Seats)),
		Subtotal:       quote.Subtotal,
		CouponError:    quote.CouponError,
		CouponDiscount: quote.CouponDiscount,
		Total:          quote.Total,
		MembershipTier: string(quote.MembershipTier),
		CalculationMs:  quote.CalculationMs,
	}

	if quote.Coupon != nil {
		resp.Coupon = &api.CouponInfo{
			Code:          quote.Coupon.Code,
			DiscountType:  string(quote.Coupon.DiscountType),
			DiscountValue: quote.Coupon.DiscountValue,
		}
	}

	for i, seat := range quote.Seats {
		appliedRules := make([]api.AppliedRule, len(seat.AppliedRules))
		for j, rule := range seat.AppliedRules {
			appliedRules[j] = api.AppliedRule{
				Name:     rule.Name,
				RuleType: string(rule.Type),
				Effect:   rule.Effect,
			}
		}

		resp.Seats[i] = api.SeatPriceBreakdown{
			SeatId:                    seat.SeatID,
			SeatType:                  seat.SeatType,
			BasePrice:                 seat.BasePrice,
			AppliedRules:              appliedRules,
			AfterRules:                seat.AfterRules,
			MembershipDiscountPercent: seat.MembershipDiscountPercent,
			MembershipDiscountAmount:  seat.MembershipDiscountAmount,
			AfterMembership:           seat.AfterMembership,
			CouponDiscountAmount:      seat.CouponDiscountAmount,
			AfterCoupon:               seat.AfterCoupon,
			FinalPrice:                seat.FinalPrice,
		}
	}

	return resp
}
