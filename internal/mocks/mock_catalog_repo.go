package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/tixwave/pricing-engine/internal/domain"
)

type MockCatalogRepo struct {
	mock.Mock
	domain.CatalogRepository
}

func (m *MockCatalogRepo) GetShowtimePricing(ctx context.Context, showtimeID int64) (*domain.ShowtimePricing, error) {
	args := m.Called(ctx, showtimeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShowtimePricing), args.Error(1)
}

func (m *MockCatalogRepo) GetSeatsByShowtimeAndSeatIds(
	ctx context.Context,
	showtimeID int64,
	seatIDs []int64) ([]domain.Seat, error) {

	args := m.Called(ctx, showtimeID, seatIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Seat), args.Error(1)
}
