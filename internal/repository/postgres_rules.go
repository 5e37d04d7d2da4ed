package repository

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tixwave/pricing-engine/internal/domain"
)

type PostgresRuleRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresRuleRepository(db *pgxpool.Pool, logger *slog.Logger) *PostgresRuleRepository {
	return &PostgresRuleRepository{
		db:     db,
		logger: logger,
	}
}

func (p *PostgresRuleRepository) GetActiveRules(ctx context.Context) ([]domain.PricingRule, error) {
	query := `
		SELECT id, name, rule_type, condition, multiplier, flat_discount, priority, active, valid_from, valid_until
		FROM pricing_rules
		WHERE active = true
		ORDER BY priority, id
	`

	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := make([]domain.PricingRule, 0)

	for rows.Next() {
		var rule domain.PricingRule

		err = rows.Scan(
			&rule.ID,
			&rule.Name,
			&rule.Type,
			&rule.Condition,
			&rule.Multiplier,
			&rule.FlatDiscount,
			&rule.Priority,
			&rule.Active,
			&rule.ValidFrom,
			&rule.ValidUntil,
		)
		if err != nil {
			// A single undecodable rule must not make pricing unavailable.
			p.logger.Warn("skipping undecodable pricing rule row", "error", err)
			continue
		}

		rules = append(rules, rule)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return rules, nil
}
