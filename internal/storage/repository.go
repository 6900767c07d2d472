package storage

import (
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB

	// appendMu serializes journal appends (single-writer discipline).
	// Reads stay lock-free and may observe a journal mid-growth; every
	// cycle re-reads, so a stale snapshot only delays, never corrupts.
	appendMu sync.Mutex
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Accounts

func (r *Repository) Accounts() ([]Account, error) {
	var accounts []Account
	err := r.db.Order("id ASC").Find(&accounts).Error
	return accounts, err
}

func (r *Repository) GetAccount(id string) (*Account, error) {
	var acct Account
	if err := r.db.First(&acct, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &acct, nil
}

// EnsureAccount returns the account with the given id, creating it
// with default settings on first use. Accounts are never deleted.
func (r *Repository) EnsureAccount(id string) (*Account, error) {
	acct, err := r.GetAccount(id)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	acct = &Account{
		ID:       id,
		Username: fmt.Sprintf("account_%s", id),
	}
	if err := acct.SetSettings(DefaultSettings()); err != nil {
		return nil, err
	}
	if err := r.db.Create(acct).Error; err != nil {
		return nil, fmt.Errorf("create account %s: %w", id, err)
	}
	return acct, nil
}

func (r *Repository) SaveAccount(acct *Account) error {
	return r.db.Save(acct).Error
}

// Trade journal

// AppendTrade appends one immutable record to the journal.
func (r *Repository) AppendTrade(rec *TradeRecord) error {
	r.appendMu.Lock()
	defer r.appendMu.Unlock()
	return r.db.Create(rec).Error
}

// Trades returns journal records ordered by insertion. Empty accountID
// or symbol leaves that filter off. The Timestamp field, not physical
// order, is authoritative for recency.
func (r *Repository) Trades(accountID, symbol string) ([]TradeRecord, error) {
	q := r.db.Order("id ASC")
	if accountID != "" {
		q = q.Where("account_id = ?", accountID)
	}
	if symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	var trades []TradeRecord
	err := q.Find(&trades).Error
	return trades, err
}

func (r *Repository) RecentTrades(limit int) ([]TradeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var trades []TradeRecord
	err := r.db.Order("id DESC").Limit(limit).Find(&trades).Error
	return trades, err
}
