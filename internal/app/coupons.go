package app

import (
	"errors"
	"net/http"

	"github.com/tixwave/pricing-engine/api"
	"github.com/tixwave/pricing-engine/internal/domain"
)

// CommitCouponHandler finalizes a coupon redemption for a completed booking.
// A limit exhausted by a concurrent booking is an expected outcome, not a
// server error: the response carries committed=false with a reason and the
// booking workflow re-quotes without the coupon.
func (app *Application) CommitCouponHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	var input api.CommitCouponRequest

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

	resp := api.CommitCouponResponse{Committed: true}

	err = app.couponRepo.IncrementUsage(r.Context(), input.CouponId, input.UserId, input.BookingId)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRedemptionCommitted):
			// Repeat commit for the same booking: already counted, idempotent.
			logger.Info("duplicate coupon commit ignored",
				"coupon_id", input.CouponId,
				"booking_id", input.BookingId,
			)

		case errors.Is(err, domain.ErrCouponExhausted),
			errors.Is(err, domain.ErrCouponUserLimit),
			errors.Is(err, domain.ErrEditConflict):
			logger.Warn("coupon commit rejected",
				"coupon_id", input.CouponId,
				"user_id", input.UserId,
				"reason", err.Error(),
			)

			reason := err.Error()
			resp = api.CommitCouponResponse{Committed: false, Reason: &reason}

		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
			return

		default:
			app.serverErrorResponse(w, r, err)
			return
		}
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
