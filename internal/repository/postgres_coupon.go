package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tixwave/pricing-engine/internal/domain"
)

type PostgresCouponRepository struct {
	db *pgxpool.Pool
}

func NewPostgresCouponRepository(db *pgxpool.Pool) *PostgresCouponRepository {
	return &PostgresCouponRepository{
		db: db,
	}
}

func (p *PostgresCouponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	query := `
		SELECT id, code, discount_type, discount_value, max_uses, used_count, per_user_limit,
			min_order_value, valid_from, expires_at, movie_id, showtime_id, seat_category,
			payment_method, active
		FROM coupons
		WHERE code = $1
	`

	var coupon domain.Coupon

	err := p.db.QueryRow(ctx, query, code).Scan(
		&coupon.ID,
		&coupon.Code,
		&coupon.DiscountType,
		&coupon.DiscountValue,
		&coupon.MaxUses,
		&coupon.UsedCount,
		&coupon.PerUserLimit,
		&coupon.MinOrderValue,
		&coupon.ValidFrom,
		&coupon.ExpiresAt,
		&coupon.MovieID,
		&coupon.ShowtimeID,
		&coupon.SeatCategory,
		&coupon.PaymentMethod,
		&coupon.Active,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &coupon, nil
}

// IncrementUsage is the only place the usage counters are enforced. The
// coupon row is locked up front, so concurrent commits for the same coupon
// queue on the row lock instead of aborting each other; commits under a
// non-exhausted cap all succeed. The global cap recheck still rides on the
// UPDATE itself, and the lock also makes the per-user count below immune to
// concurrent inserts for this coupon.
func (p *PostgresCouponRepository) IncrementUsage(
	ctx context.Context,
	couponID, userID int64,
	bookingID string) error {

	err := runInTx(ctx, p.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var maxUses, perUserLimit *int

		err := tx.QueryRow(ctx, `
			SELECT max_uses, per_user_limit
			FROM coupons
			WHERE id = $1
			FOR UPDATE
		`, couponID).Scan(&maxUses, &perUserLimit)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrRecordNotFound
			}

			return err
		}

		// Ledger insert doubles as the idempotency guard: a booking that
		// already committed this coupon must not count twice.
		tag, err := tx.Exec(ctx, `
			INSERT INTO coupon_redemptions (coupon_id, user_id, booking_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (coupon_id, booking_id) DO NOTHING
		`, couponID, userID, bookingID)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return domain.ErrRedemptionCommitted
		}

		// Conditional increment: zero rows means the global cap was taken by
		// an earlier holder of the row lock.
		tag, err = tx.Exec(ctx, `
			UPDATE coupons
			SET used_count = used_count + 1, updated_at = now()
			WHERE id = $1 AND (max_uses IS NULL OR used_count < max_uses)
		`, couponID)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return domain.ErrCouponExhausted
		}

		// Per-user cap, counted inside the same transaction so the row
		// inserted above is included.
		if perUserLimit != nil {
			var redemptions int

			err = tx.QueryRow(ctx, `
				SELECT COUNT(*) FROM coupon_redemptions
				WHERE coupon_id = $1 AND user_id = $2
			`, couponID, userID).Scan(&redemptions)
			if err != nil {
				return err
			}

			if redemptions > *perUserLimit {
				return domain.ErrCouponUserLimit
			}
		}

		return nil
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
				return domain.ErrEditConflict
			case pgerrcode.UniqueViolation:
				return domain.ErrRedemptionCommitted
			}
		}

		return err
	}

	return nil
}

func (p *PostgresCouponRepository) CountRedemptions(ctx context.Context, couponID, userID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM coupon_redemptions
		WHERE coupon_id = $1 AND user_id = $2
	`

	var count int

	err := p.db.QueryRow(ctx, query, couponID, userID).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func runInTx(ctx context.Context, db *pgxpool.Pool, txOptions pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}

	err = fn(tx)
	if err == nil {
		return tx.Commit(ctx)
	}

	rollbackErr := tx.Rollback(ctx)
	if rollbackErr != nil {
		return errors.Join(err, rollbackErr)
	}

	return err
}
