package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/tixwave/pricing-engine/internal/domain"
)

type PostgresCatalogRepository struct {
	db *pgxpool.Pool
}

func NewPostgresCatalogRepository(db *pgxpool.Pool) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{
		db: db,
	}
}

func (p *PostgresCatalogRepository) GetShowtimePricing(ctx context.Context, showtimeID int64) (*domain.ShowtimePricing, error) {
	query := `
		SELECT
			sh.id,
			sh.start_time,
			m.id,
			m.title,
			m.popularity_score,
			sc.id,
			sc.name
		FROM showtimes sh
		JOIN movies m ON sh.movie_id = m.id
		JOIN screens sc ON sh.screen_id = sc.id
		WHERE sh.id = $1
	`

	var showtime domain.ShowtimePricing

	err := p.db.QueryRow(ctx, query, showtimeID).Scan(
		&showtime.ShowtimeID,
		&showtime.StartTime,
		&showtime.MovieID,
		&showtime.MovieTitle,
		&showtime.PopularityScore,
		&showtime.ScreenID,
		&showtime.ScreenName,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	tierPrices, err := p.retrieveTierPrices(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	showtime.TierPrices = tierPrices

	return &showtime, nil
}

func (p *PostgresCatalogRepository) retrieveTierPrices(ctx context.Context, showtimeID int64) (map[string]decimal.Decimal, error) {
	query := `
		SELECT seat_type, price
		FROM showtime_tier_prices
		WHERE showtime_id = $1
	`

	rows, err := p.db.Query(ctx, query, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tierPrices := make(map[string]decimal.Decimal)

	for rows.Next() {
		var seatType string
		var price decimal.Decimal

		err = rows.Scan(&seatType, &price)
		if err != nil {
			return nil, err
		}

		tierPrices[seatType] = price
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return tierPrices, nil
}

func (p *PostgresCatalogRepository) GetSeatsByShowtimeAndSeatIds(
	ctx context.Context,
	showtimeID int64,
	seatIDs []int64) ([]domain.Seat, error) {

	query := `
		SELECT se.id, se.seat_row, se.seat_col, se.seat_type
		FROM showtimes sh
		JOIN seats se ON se.screen_id = sh.screen_id
		WHERE sh.id = $1 AND se.id = ANY($2)
		ORDER BY se.seat_row, se.seat_col
	`

	rows, err := p.db.Query(ctx, query, showtimeID, seatIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]domain.Seat, 0, len(seatIDs))

	for rows.Next() {
		var seat domain.Seat

		err = rows.Scan(
			&seat.ID,
			&seat.Row,
			&seat.Col,
			&seat.Type,
		)
		if err != nil {
			return nil, err
		}

		seats = append(seats, seat)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}
