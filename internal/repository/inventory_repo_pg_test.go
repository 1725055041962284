package repository

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewInventoryRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewInventoryRepository(pool)
	assert.NotNil(t, repo)
}

func TestNewWalletRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewWalletRepository(pool)
	assert.NotNil(t, repo)
}

func TestNewPromoRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewPromoRepository(pool)
	assert.NotNil(t, repo)
}
