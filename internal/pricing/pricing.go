package pricing

import (
	"time"

	"github.com/tripora/booking/internal/domain"
)

// Config carries the platform fee knobs. Zero values fall back to the
// defaults below so a partially filled config still prices sanely.
type Config struct {
	ServiceFeePercent  int
	ServiceFeeCapPaise int64
}

const (
	defaultFeePercent  = 5
	defaultFeeCapPaise = 30000 // ₹300
)

// Quote is the deterministic price breakdown for a booking. GSTPaise is a
// legacy field kept at zero for compatibility with older stored breakdowns.
type Quote struct {
	BasePaise           int64  `json:"base_paise"`
	PromoDiscountPaise  int64  `json:"promo_discount_paise"`
	SubtotalPaise       int64  `json:"subtotal_paise"`
	ServiceFeePaise     int64  `json:"service_fee_paise"`
	GSTPaise            int64  `json:"gst_paise"`
	TotalPayablePaise   int64  `json:"total_payable_paise"`
	WalletAppliedPaise  int64  `json:"wallet_applied_paise"`
	GatewayPayablePaise int64  `json:"gateway_payable_paise"`
	PromoCode           string `json:"promo_code,omitempty"`
}

// Calculate produces the price breakdown. It is a pure function: identical
// inputs give identical outputs, and the only clock dependency is the promo's
// own validity window. A broken or inapplicable promo degrades to zero
// discount rather than failing the checkout.
func Calculate(cfg Config, basePaise int64, promo *domain.PromoCode, walletRequestedPaise int64, now time.Time) Quote {
	q := Quote{BasePaise: basePaise}

	if promo != nil {
		if discount, err := promo.Discount(basePaise, now); err == nil {
			q.PromoDiscountPaise = discount
			q.PromoCode = promo.Code
		}
	}

	q.SubtotalPaise = basePaise - q.PromoDiscountPaise
	if q.SubtotalPaise < 0 {
		q.SubtotalPaise = 0
	}

	feePercent := cfg.ServiceFeePercent
	if feePercent <= 0 {
		feePercent = defaultFeePercent
	}
	feeCap := cfg.ServiceFeeCapPaise
	if feeCap <= 0 {
		feeCap = defaultFeeCapPaise
	}
	q.ServiceFeePaise = q.SubtotalPaise * int64(feePercent) / 100
	if q.ServiceFeePaise > feeCap {
		q.ServiceFeePaise = feeCap
	}

	q.TotalPayablePaise = q.SubtotalPaise + q.ServiceFeePaise + q.GSTPaise

	q.WalletAppliedPaise = walletRequestedPaise
	if q.WalletAppliedPaise > q.TotalPayablePaise {
		q.WalletAppliedPaise = q.TotalPayablePaise
	}
	if q.WalletAppliedPaise < 0 {
		q.WalletAppliedPaise = 0
	}
	q.GatewayPayablePaise = q.TotalPayablePaise - q.WalletAppliedPaise

	return q
}
