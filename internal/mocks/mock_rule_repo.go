package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/tixwave/pricing-engine/internal/domain"
)

type MockRuleRepo struct {
	mock.Mock
	domain.RuleRepository
}

func (m *MockRuleRepo) GetActiveRules(ctx context.Context) ([]domain.PricingRule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PricingRule), args.Error(1)
}
