package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tripora/booking/internal/domain"
)

type WalletRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	Transactions(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.WalletTransaction, error)
	Credit(ctx context.Context, userID uuid.UUID, amountPaise int64, kind domain.WalletTxnKind, bookingID *uuid.UUID, note string) (*domain.WalletTransaction, error)
}

type PGWalletRepository struct {
	db *pgxpool.Pool
}

func NewWalletRepository(db *pgxpool.Pool) *PGWalletRepository {
	return &PGWalletRepository{db: db}
}

func (r *PGWalletRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	row := r.db.QueryRow(ctx, `SELECT id, user_id, balance_paise, updated_at FROM wallets WHERE user_id=$1`, userID)
	var w domain.Wallet
	if err := row.Scan(&w.ID, &w.UserID, &w.BalancePaise, &w.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (r *PGWalletRepository) Transactions(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.WalletTransaction, error) {
	rows, err := r.db.Query(ctx, `SELECT id, wallet_id, kind, amount_paise, balance_before, balance_after, booking_id, note, created_at
		FROM wallet_transactions WHERE wallet_id=$1 ORDER BY created_at DESC LIMIT $2`, walletID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns := make([]domain.WalletTransaction, 0)
	for rows.Next() {
		var t domain.WalletTransaction
		if err := rows.Scan(&t.ID, &t.WalletID, &t.Kind, &t.AmountPaise, &t.BalanceBefore, &t.BalanceAfter, &t.BookingID, &t.Note, &t.CreatedAt); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (r *PGWalletRepository) Credit(ctx context.Context, userID uuid.UUID, amountPaise int64, kind domain.WalletTxnKind, bookingID *uuid.UUID, note string) (*domain.WalletTransaction, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	txn, err := creditWalletTx(ctx, tx, userID, amountPaise, kind, bookingID, note)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return txn, nil
}

// creditWalletTx mutates the balance under a row lock and appends the paired
// ledger row in the caller's transaction. A missing wallet is created empty
// first so refunds never go missing.
func creditWalletTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountPaise int64, kind domain.WalletTxnKind, bookingID *uuid.UUID, note string) (*domain.WalletTransaction, error) {
	var walletID uuid.UUID
	var before int64
	err := tx.QueryRow(ctx, `SELECT id, balance_paise FROM wallets WHERE user_id=$1 FOR UPDATE`, userID).Scan(&walletID, &before)
	if errors.Is(err, pgx.ErrNoRows) {
		walletID = uuid.New()
		before = 0
		if _, err := tx.Exec(ctx, `INSERT INTO wallets (id, user_id, balance_paise, updated_at) VALUES ($1, $2, 0, now())`, walletID, userID); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	after := before + amountPaise
	if _, err := tx.Exec(ctx, `UPDATE wallets SET balance_paise=$1, updated_at=now() WHERE id=$2`, after, walletID); err != nil {
		return nil, err
	}

	txn := &domain.WalletTransaction{
		ID:            uuid.New(),
		WalletID:      walletID,
		Kind:          kind,
		AmountPaise:   amountPaise,
		BalanceBefore: before,
		BalanceAfter:  after,
		BookingID:     bookingID,
		Note:          note,
	}
	if err := tx.QueryRow(ctx, `INSERT INTO wallet_transactions (id, wallet_id, kind, amount_paise, balance_before, balance_after, booking_id, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at`,
		txn.ID, txn.WalletID, txn.Kind, txn.AmountPaise, txn.BalanceBefore, txn.BalanceAfter, txn.BookingID, txn.Note).Scan(&txn.CreatedAt); err != nil {
		return nil, err
	}
	return txn, nil
}

// debitWalletTx is the spend side, used when a payment applies wallet
// balance. Fails without mutating when the balance cannot cover the amount.
func debitWalletTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountPaise int64, bookingID *uuid.UUID, note string) (*domain.WalletTransaction, error) {
	var walletID uuid.UUID
	var before int64
	err := tx.QueryRow(ctx, `SELECT id, balance_paise FROM wallets WHERE user_id=$1 FOR UPDATE`, userID).Scan(&walletID, &before)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	if before < amountPaise {
		return nil, domain.ErrInsufficientBalance
	}

	after := before - amountPaise
	if _, err := tx.Exec(ctx, `UPDATE wallets SET balance_paise=$1, updated_at=now() WHERE id=$2`, after, walletID); err != nil {
		return nil, err
	}

	txn := &domain.WalletTransaction{
		ID:            uuid.New(),
		WalletID:      walletID,
		Kind:          domain.WalletTxnDebit,
		AmountPaise:   amountPaise,
		BalanceBefore: before,
		BalanceAfter:  after,
		BookingID:     bookingID,
		Note:          note,
	}
	if err := tx.QueryRow(ctx, `INSERT INTO wallet_transactions (id, wallet_id, kind, amount_paise, balance_before, balance_after, booking_id, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at`,
		txn.ID, txn.WalletID, txn.Kind, txn.AmountPaise, txn.BalanceBefore, txn.BalanceAfter, txn.BookingID, txn.Note).Scan(&txn.CreatedAt); err != nil {
		return nil, err
	}
	return txn, nil
}

var _ WalletRepository = (*PGWalletRepository)(nil)
