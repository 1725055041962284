package domain

import (
	"time"

	"github.com/google/uuid"
)

type WalletTxnKind string

const (
	WalletTxnCredit WalletTxnKind = "CREDIT"
	WalletTxnDebit  WalletTxnKind = "DEBIT"
	WalletTxnRefund WalletTxnKind = "REFUND"
)

// Wallet is a closed-loop user balance. The balance field is mutated only
// under a row lock and always in the same transaction as a ledger row, so it
// stays reconstructable from the transaction history.
type Wallet struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	BalancePaise int64
	UpdatedAt    time.Time
}

// WalletTransaction is one append-only ledger entry. BalanceAfter always
// equals BalanceBefore plus or minus AmountPaise.
type WalletTransaction struct {
	ID            uuid.UUID
	WalletID      uuid.UUID
	Kind          WalletTxnKind
	AmountPaise   int64
	BalanceBefore int64
	BalanceAfter  int64
	BookingID     *uuid.UUID
	Note          string
	CreatedAt     time.Time
}
