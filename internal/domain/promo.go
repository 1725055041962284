package domain

import (
	"time"

	"github.com/google/uuid"
)

type PromoKind string

const (
	PromoFlat    PromoKind = "FLAT"
	PromoPercent PromoKind = "PERCENT"
)

type PromoCode struct {
	ID               uuid.UUID
	Code             string
	Kind             PromoKind
	ValuePaise       int64 // flat amount for FLAT, percent for PERCENT
	MinAmountPaise   int64
	MaxDiscountPaise int64
	ValidFrom        time.Time
	ValidUntil       time.Time
	MaxUses          int
	UsedCount        int
	Active           bool
}

// Discount returns the discount for a base amount, or an error naming why the
// promo does not apply. Pricing treats any error as zero discount.
func (p *PromoCode) Discount(basePaise int64, now time.Time) (int64, error) {
	if !p.Active {
		return 0, ErrPromoInactive
	}
	if now.Before(p.ValidFrom) || now.After(p.ValidUntil) {
		return 0, ErrPromoExpired
	}
	if p.MaxUses > 0 && p.UsedCount >= p.MaxUses {
		return 0, ErrPromoExhausted
	}
	if basePaise < p.MinAmountPaise {
		return 0, ErrPromoMinAmount
	}

	var discount int64
	switch p.Kind {
	case PromoFlat:
		discount = p.ValuePaise
	case PromoPercent:
		discount = basePaise * p.ValuePaise / 100
	default:
		return 0, ErrPromoInactive
	}

	if p.MaxDiscountPaise > 0 && discount > p.MaxDiscountPaise {
		discount = p.MaxDiscountPaise
	}
	if discount > basePaise {
		discount = basePaise
	}
	if discount < 0 {
		discount = 0
	}
	return discount, nil
}
