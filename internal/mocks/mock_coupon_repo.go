package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/tixwave/pricing-engine/internal/domain"
)

type MockCouponRepo struct {
	mock.Mock
	domain.CouponRepository
}

func (m *MockCouponRepo) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Coupon), args.Error(1)
}

func (m *MockCouponRepo) IncrementUsage(ctx context.Context, couponID, userID int64, bookingID string) error {
	args := m.Called(ctx, couponID, userID, bookingID)
	return args.Error(0)
}

func (m *MockCouponRepo) CountRedemptions(ctx context.Context, couponID, userID int64) (int, error) {
	args := m.Called(ctx, couponID, userID)
	return args.Int(0), args.Error(1)
}
