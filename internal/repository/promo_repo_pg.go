package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tripora/booking/internal/domain"
)

type PromoRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.PromoCode, error)
	IncrementUsage(ctx context.Context, code string) error
}

type PGPromoRepository struct {
	db *pgxpool.Pool
}

func NewPromoRepository(db *pgxpool.Pool) *PGPromoRepository {
	return &PGPromoRepository{db: db}
}

func (r *PGPromoRepository) GetByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	row := r.db.QueryRow(ctx, `SELECT id, code, kind, value_paise, min_amount_paise, max_discount_paise, valid_from, valid_until, max_uses, used_count, active
		FROM promo_codes WHERE code=$1`, code)
	var p domain.PromoCode
	if err := row.Scan(&p.ID, &p.Code, &p.Kind, &p.ValuePaise, &p.MinAmountPaise, &p.MaxDiscountPaise, &p.ValidFrom, &p.ValidUntil, &p.MaxUses, &p.UsedCount, &p.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPromoNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGPromoRepository) IncrementUsage(ctx context.Context, code string) error {
	_, err := r.db.Exec(ctx, `UPDATE promo_codes SET used_count = used_count + 1 WHERE code=$1`, code)
	return err
}

var _ PromoRepository = (*PGPromoRepository)(nil)
