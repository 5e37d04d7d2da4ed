package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ShowtimePricing is everything the engine needs to know about a showtime:
// the movie (with its popularity score), the screen, and the per-seat-type
// tier price table set by an admin.
type ShowtimePricing struct {
	ShowtimeID      int64
	StartTime       time.Time
	MovieID         int64
	MovieTitle      string
	PopularityScore int
	ScreenID        int64
	ScreenName      string
	TierPrices      map[string]decimal.Decimal
}

type Seat struct {
	ID   int64
	Row  int
	Col  int
	Type string
}

type CatalogRepository interface {
	GetShowtimePricing(ctx context.Context, showtimeID int64) (*ShowtimePricing, error)

	// GetSeatsByShowtimeAndSeatIds returns only the requested seats that belong
	// to the showtime's screen. Callers compare lengths to detect foreign seats.
	GetSeatsByShowtimeAndSeatIds(ctx context.Context, showtimeID int64, seatIDs []int64) ([]Seat, error)
}
