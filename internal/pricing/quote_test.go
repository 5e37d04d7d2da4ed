package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tixwave/pricing-engine/internal/domain"
	"github.com/tixwave/pricing-engine/internal/mocks"
)

var decimalComparer = cmp.Comparer(func(a, b decimal.Decimal) bool {
	return a.Equal(b)
})

func testShowtime() *domain.ShowtimePricing {
	return &domain.ShowtimePricing{
		ShowtimeID:      7,
		StartTime:       testNow,
		MovieID:         3,
		MovieTitle:      "Interstellar",
		PopularityScore: 50,
		ScreenID:        2,
		ScreenName:      "Screen 2",
		TierPrices: map[string]decimal.Decimal{
			"Standard": d("150"),
			"VIP":      d("250"),
		},
	}
}

func testSeats() []domain.Seat {
	return []domain.Seat{
		{ID: 11, Row: 1, Col: 1, Type: "Standard"},
		{ID: 12, Row: 1, Col: 2, Type: "VIP"},
	}
}

type composerMocks struct {
	catalog *mocks.MockCatalogRepo
	rules   *mocks.MockRuleRepo
	coupons *mocks.MockCouponRepo
}

func newTestComposer(t *testing.T, opts Options) (*Composer, composerMocks) {
	t.Helper()

	m := composerMocks{
		catalog: new(mocks.MockCatalogRepo),
		rules:   new(mocks.MockRuleRepo),
		coupons: new(mocks.MockCouponRepo),
	}

	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}

	return NewComposer(testLogger(), m.catalog, m.rules, m.coupons, opts), m
}

func TestComposer_Quote_SeatSelectionErrors(t *testing.T) {
	tests := []struct {
		name    string
		seatIDs []int64
		wantErr error
	}{
		{"empty selection", nil, domain.ErrEmptySeatSelection},
		{"duplicate seats", []int64{11, 11}, domain.ErrDuplicateSeats},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			composer, _ := newTestComposer(t, Options{})

			quote, err := composer.Quote(context.Background(), Request{ShowtimeID: 7, SeatIDs: tt.seatIDs})

			assert.Nil(t, quote)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestComposer_Quote_UnknownShowtime(t *testing.T) {
	composer, m := newTestComposer(t, Options{})
	m.catalog.On("GetShowtimePricing", mock.Anything, int64(404)).Return(nil, domain.ErrRecordNotFound)

	quote, err := composer.Quote(context.Background(), Request{ShowtimeID: 404, SeatIDs: []int64{11}})

	assert.Nil(t, quote)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestComposer_Quote_ForeignSeatRejected(t *testing.T) {
	composer, m := newTestComposer(t, Options{})
	m.catalog.On("GetShowtimePricing", mock.Anything, int64(7)).Return(testShowtime(), nil)
	// Seat 999 belongs to another screen, so the catalog returns only one row.
	m.catalog.On("GetSeatsByShowtimeAndSeatIds", mock.Anything, int64(7), []int64{11, 999}).
		Return(testSeats()[:1], nil)

	quote, err := composer.Quote(context.Background(), Request{ShowtimeID: 7, SeatIDs: []int64{11, 999}})

	assert.Nil(t, quote)
	assert.ErrorIs(t, err, domain.ErrInvalidSeatSelection)
}

func TestComposer_Quote_WithoutCoupon(t *testing.T) {
	composer, m := newTestComposer(t, Options{})
	m.catalog.On("GetShowtimePricing", mock.Anything, int64(7)).Return(testShowtime(), nil)
	m.catalog.On("GetSeatsByShowtimeAndSeatIds", mock.Anything, int64(7), []int64{11, 12}).
		Return(testSeats(), nil)
	m.rules.On("GetActiveRules", mock.Anything).Return([]domain.PricingRule{}, nil)

	quote, err := composer.Quote(context.Background(), Request{
		ShowtimeID:     7,
		SeatIDs:        []int64{11, 12},
		MembershipTier: domain.TierGold,
	})

	require.NoError(t, err)
	require.Len(t, quote.Seats, 2)

	// GOLD takes 10% off each seat: 150 -> 135, 250 -> 225.
	assert.True(t, quote.Seats[0].AfterMembership.Equal(d("135")))
	assert.True(t, quote.Seats[1].AfterMembership.Equal(d("225")))
	assert.True(t, quote.Subtotal.Equal(d("360")))
	assert.True(t, quote.Total.Equal(d("360")))
	assert.True(t, quote.CouponDiscount.IsZero())
	assert.Nil(t, quote.Coupon)
	assert.Nil(t, quote.CouponError)
	assert.Equal(t, domain.TierGold, quote.MembershipTier)
}

func TestComposer_Quote_RulesFeedIntoSeatPrices(t *testing.T) {
	composer, m := newTestComposer(t, Options{})
	m.catalog.On("GetShowtimePricing", mock.Anything, int64(7)).Return(testShowtime(), nil)
	m.catalog.On("GetSeatsByShowtimeAndSeatIds", mock.Anything, int64(7), []int64{11}).
		Return(testSeats()[:1], nil)
	m.rules.On("GetActiveRules", mock.Anything).Return([]domain.PricingRule{
		{
			ID:         1,
			Name:       "Weekend uplift",
			Type:       domain.RuleDayType,
			Condition:  domain.RuleCondition{Days: []int{6}}, // testNow is a Saturday
			Multiplier: dptr("1.20"),
			Priority:   10,
			Active:     true,
		},
	}, nil)

	quote, err := composer.Quote(context.Background(), Request{ShowtimeID: 7, SeatIDs: []int64{11}})

	require.NoError(t, err)
	require.Len(t, quote.Seats, 1)
	assert.True(t, quote.Seats[0].AfterRules.Equal(d("180")))
	require.Len(t, quote.Seats[0].AppliedRules, 1)
	assert.Equal(t, "Weekend uplift", quote.Seats[0].AppliedRules[0].Name)
	assert.True(t, quote.Subtotal.Equal(d("180")))
}

func TestComposer_Quote_MissingTierPrice(t *testing.T) {
	composer, m := newTestComposer(t, Options{})
	showtime := testShowtime()
	delete(showtime.TierPrices, "VIP")

	m.catalog.On("GetShowtimePricing", mock.Anything, int64(7)).Return(showtime, nil)
	m.catalog.On("GetSeatsByShowtimeAndSeatIds", mock.Anything, int64(7), []int64{11, 12}).
		Return(testSeats(), nil)
	m.rules.On("GetActiveRules", mock.Anything).Return([]domain.PricingRule{}, nil)

	quote, err := composer.Quote(context.Background(), Request{ShowtimeID: 7, SeatIDs: []int64{11, 12}})

	assert.Nil(t, quote)
	assert.ErrorContains(t, err, "no tier price configured")
}

func TestComposer_Quote_RejectedCouponLeavesQuoteIntact(t *testing.T) {
	composer, m := newTestComposer(t, Options{})
	m.catalog.On("GetShowtimePricing", mock.Anything, int64(7)).Return(testShowtime(), nil)
	m.catalog.On("GetSeatsByShowtimeAndSeatIds", mock.Anything, int64(7), []int64{11, 12}).
		Return(testSeats(), nil)
	m.rules.On("GetActiveRules", mock.Anything).Return([]domain.PricingRule{}, nil)
	m.coupons.On("GetByCode", mock.Anything, "GHOST").Return(nil, domain.ErrRecordNotFound)

	quote, err := composer.Quote(context.Background(), Request{
		ShowtimeID: 7,
		SeatIDs:    []int64{11, 12},
		CouponCode: "ghost", // mixed case on the wire, canonicalized before lookup
	})

	require.NoError(t, err)
	require.NotNil(t, quote.CouponError)
	assert.Equal(t, ReasonCouponNotFound, *quote.CouponError)
	assert.Nil(t, quote.Coupon)
	assert.True(t, quote.CouponDiscount.IsZero())
	assert.True(t, quote.Total.Equal(quote.Subtotal))
	for _, seat := range quote.Seats {
		assert.True(t, seat.CouponDiscountAmount.IsZero())
		assert.True(t, seat.FinalPrice.Equal(seat.AfterMembership))
	}
}

func TestComposer_Quote_AcceptedCouponDistribution(t *testing.T) {
	composer, m := newTestComposer(t, Options{})
	m.catalog.On("GetShowtimePricing", mock.Anything, int64(7)).Return(testShowtime(), nil)
	m.catalog.On("GetSeatsByShowtimeAndSeatIds", mock.Anything, int64(7), []int64{11, 12}).
		Return(testSeats(), nil)
	m.rules.On("GetActiveRules", mock.Anything).Return([]domain.PricingRule{}, nil)
	m.coupons.On("GetByCode", mock.Anything, "WELCOME10").Return(activeCoupon(), nil)

	quote, err := composer.Quote(context.Background(), Request{
		ShowtimeID:     7,
		SeatIDs:        []int64{11, 12},
		CouponCode:     "WELCOME10",
		MembershipTier: domain.TierGold,
	})

	require.NoError(t, err)
	require.NotNil(t, quote.Coupon)
	assert.Equal(t, "WELCOME10", quote.Coupon.Code)
	assert.Nil(t, quote.CouponError)

	// Subtotal 360, 10% off -> 36, split 13.50/22.50 in proportion to the
	// seats' after-membership prices.
	assert.True(t, quote.CouponDiscount.Equal(d("36")))
	assert.True(t, quote.Total.Equal(d("324")))
	assert.True(t, quote.Seats[0].CouponDiscountAmount.Equal(d("13.50")), "got %s", quote.Seats[0].CouponDiscountAmount)
	assert.True(t, quote.Seats[1].CouponDiscountAmount.Equal(d("22.50")), "got %s", quote.Seats[1].CouponDiscountAmount)
	assert.True(t, quote.Seats[0].FinalPrice.Equal(d("121.50")))
	assert.True(t, quote.Seats[1].FinalPrice.Equal(d("202.50")))

	// Per-user limit is unset, so no redemption count lookup happens.
	m.coupons.AssertNotCalled(t, "CountRedemptions", mock.Anything, mock.Anything, mock.Anything)
}

func TestComposer_Quote_PerUserLimitConsultsRedemptions(t *testing.T) {
	composer, m := newTestComposer(t, Options{})
	coupon := activeCoupon()
	coupon.PerUserLimit = intPtr(1)

	m.catalog.On("GetShowtimePricing", mock.Anything, int64(7)).Return(testShowtime(), nil)
	m.catalog.On("GetSeatsByShowtimeAndSeatIds", mock.Anything, int64(7), []int64{11, 12}).
		Return(testSeats(), nil)
	m.rules.On("GetActiveRules", mock.Anything).Return([]domain.PricingRule{}, nil)
	m.coupons.On("GetByCode", mock.Anything, "WELCOME10").Return(coupon, nil)
	m.coupons.On("CountRedemptions", mock.Anything, int64(1), int64(42)).Return(1, nil)

	quote, err := composer.Quote(context.Background(), Request{
		ShowtimeID: 7,
		SeatIDs:    []int64{11, 12},
		CouponCode: "WELCOME10",
		UserID:     42,
	})

	require.NoError(t, err)
	require.NotNil(t, quote.CouponError)
	assert.Equal(t, ReasonPerUserLimit, *quote.CouponError)
	m.coupons.AssertExpectations(t)
}

func TestComposer_Quote_Deterministic(t *testing.T) {
	composer, m := newTestComposer(t, Options{})
	m.catalog.On("GetShowtimePricing", mock.Anything, int64(7)).Return(testShowtime(), nil)
	m.catalog.On("GetSeatsByShowtimeAndSeatIds", mock.Anything, int64(7), []int64{11, 12}).
		Return(testSeats(), nil)
	m.rules.On("GetActiveRules", mock.Anything).Return([]domain.PricingRule{
		{
			ID:           1,
			Name:         "Matinee promo",
			Type:         domain.RuleFlatDiscount,
			FlatDiscount: dptr("20"),
			Priority:     5,
			Active:       true,
		},
	}, nil)
	m.coupons.On("GetByCode", mock.Anything, "WELCOME10").Return(activeCoupon(), nil)

	req := Request{
		ShowtimeID:     7,
		SeatIDs:        []int64{11, 12},
		CouponCode:     "WELCOME10",
		MembershipTier: domain.TierSilver,
	}

	first, err := composer.Quote(context.Background(), req)
	require.NoError(t, err)

	second, err := composer.Quote(context.Background(), req)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(first, second, decimalComparer))
}
