package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
	"github.com/ericfisherdev/bountybot/internal/domain/port/driven"
)

var _ driven.WalletStore = (*WalletRepo)(nil)

// WalletRepo is the SQLite implementation of the WalletStore port.
type WalletRepo struct {
	db *DB
}

// NewWalletRepo creates a new WalletRepo backed by the given DB.
func NewWalletRepo(db *DB) *WalletRepo {
	return &WalletRepo{db: db}
}

const walletColumns = `username, address, multiplier, reason, updated_at`

// GetWallet returns the user's record, or nil if none exists.
func (r *WalletRepo) GetWallet(ctx context.Context, username string) (*model.WalletRecord, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE username = ?`

	w, err := scanWallet(r.db.Reader.QueryRowContext(ctx, query, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet %q: %w", username, err)
	}
	return w, nil
}

// SetAddress registers or replaces the user's payout address. The
// multiplier of an existing record is kept.
func (r *WalletRepo) SetAddress(ctx context.Context, username, address string) error {
	const query = `
		INSERT INTO wallets (username, address, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			address = excluded.address,
			updated_at = excluded.updated_at`

	if _, err := r.db.Writer.ExecContext(ctx, query, username, address, formatTime(time.Now())); err != nil {
		return fmt.Errorf("set wallet address for %q: %w", username, err)
	}
	return nil
}

// SetMultiplier records the user's reward multiplier and the reason for it.
func (r *WalletRepo) SetMultiplier(ctx context.Context, username string, multiplier decimal.Decimal, reason string) error {
	const query = `
		INSERT INTO wallets (username, multiplier, reason, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			multiplier = excluded.multiplier,
			reason = excluded.reason,
			updated_at = excluded.updated_at`

	_, err := r.db.Writer.ExecContext(ctx, query, username, multiplier.String(), reason, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("set multiplier for %q: %w", username, err)
	}
	return nil
}

// Delete removes the user's record. Returns driven.ErrWalletNotFound if
// there is none.
func (r *WalletRepo) Delete(ctx context.Context, username string) error {
	result, err := r.db.Writer.ExecContext(ctx, `DELETE FROM wallets WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("delete wallet %q: %w", username, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete wallet %q: %w", username, driven.ErrWalletNotFound)
	}
	return nil
}

// ListAll returns every record ordered by username.
func (r *WalletRepo) ListAll(ctx context.Context) ([]model.WalletRecord, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets ORDER BY username`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []model.WalletRecord
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		wallets = append(wallets, *w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallets: %w", err)
	}
	return wallets, nil
}

func scanWallet(s scanner) (*model.WalletRecord, error) {
	var (
		w          model.WalletRecord
		multiplier string
		updatedAt  string
	)

	if err := s.Scan(&w.Username, &w.Address, &multiplier, &w.Reason, &updatedAt); err != nil {
		return nil, err
	}

	m, err := decimal.NewFromString(multiplier)
	if err != nil {
		return nil, fmt.Errorf("parse multiplier %q: %w", multiplier, err)
	}
	w.Multiplier = m

	w.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &w, nil
}
