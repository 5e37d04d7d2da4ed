package domain

import "errors"

var (
	ErrRecordNotFound       = errors.New("record not found")
	ErrEditConflict         = errors.New("edit conflict")
	ErrEmptySeatSelection   = errors.New("seat selection must not be empty")
	ErrDuplicateSeats       = errors.New("seat selection contains duplicate seats")
	ErrInvalidSeatSelection = errors.New("seat(s) do not belong to the showtime's screen")
	ErrCouponExhausted      = errors.New("coupon usage limit reached")
	ErrCouponUserLimit      = errors.New("per-user coupon usage limit reached")
	ErrRedemptionCommitted  = errors.New("coupon already committed for this booking")
)
