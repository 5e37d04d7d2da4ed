package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercent DiscountType = "PERCENT"
	DiscountFlat    DiscountType = "FLAT"
)

// Coupon is an order-level discount with usage limits and scope restrictions.
// All scope fields are optional and AND-ed together when set. UsedCount is
// mutated only through CouponRepository.IncrementUsage, never by quoting.
type Coupon struct {
	ID            int64
	Code          string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	MaxUses       *int
	UsedCount     int
	PerUserLimit  *int
	MinOrderValue decimal.Decimal
	ValidFrom     *time.Time
	ExpiresAt     *time.Time
	MovieID       *int64
	ShowtimeID    *int64
	SeatCategory  *string
	PaymentMethod *string
	Active        bool
}

type CouponRepository interface {
	// GetByCode looks up a coupon by its canonical (uppercased) code.
	// Returns ErrRecordNotFound when no such coupon exists.
	GetByCode(ctx context.Context, code string) (*Coupon, error)

	// IncrementUsage records a redemption for the given booking and bumps the
	// coupon's usage counters. Concurrent commits for the same coupon queue
	// rather than conflict: two bookings racing for the last use of a coupon
	// can never both succeed, and commits under a non-exhausted cap all do.
	// Returns ErrCouponExhausted, ErrCouponUserLimit, ErrRedemptionCommitted
	// or ErrEditConflict accordingly.
	IncrementUsage(ctx context.Context, couponID, userID int64, bookingID string) error

	// CountRedemptions returns how many times the user has redeemed the coupon.
	CountRedemptions(ctx context.Context, couponID, userID int64) (int, error)
}
