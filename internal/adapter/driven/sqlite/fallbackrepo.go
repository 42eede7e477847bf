package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
	"github.com/ericfisherdev/bountybot/internal/domain/port/driven"
)

var _ driven.FallbackStore = (*FallbackRepo)(nil)

// FallbackRepo is the SQLite implementation of the FallbackStore port.
type FallbackRepo struct {
	db *DB
}

// NewFallbackRepo creates a new FallbackRepo backed by the given DB.
func NewFallbackRepo(db *DB) *FallbackRepo {
	return &FallbackRepo{db: db}
}

// Save stores an unpaid reward and returns its ID.
func (r *FallbackRepo) Save(ctx context.Context, reward model.FallbackReward) (int64, error) {
	const query = `
		INSERT INTO fallback_rewards
			(repo_full_name, issue_number, title, username, user_id, amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.Writer.ExecContext(ctx, query,
		reward.RepoFullName,
		reward.IssueNumber,
		string(reward.Title),
		reward.Username,
		reward.UserID,
		reward.Amount.String(),
		formatTime(reward.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("save fallback reward for %q: %w", reward.Username, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read fallback reward id: %w", err)
	}
	return id, nil
}

// ListUnresolved returns unresolved rewards, oldest first.
func (r *FallbackRepo) ListUnresolved(ctx context.Context) ([]model.FallbackReward, error) {
	const query = `
		SELECT id, repo_full_name, issue_number, title, username, user_id, amount, created_at, resolved_at
		FROM fallback_rewards
		WHERE resolved_at IS NULL
		ORDER BY created_at, id`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list fallback rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.FallbackReward
	for rows.Next() {
		fr, err := scanFallback(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fallback reward: %w", err)
		}
		rewards = append(rewards, *fr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fallback rewards: %w", err)
	}
	return rewards, nil
}

// Resolve marks a reward as paid out by hand. Returns
// driven.ErrFallbackNotFound when the ID is unknown or already resolved.
func (r *FallbackRepo) Resolve(ctx context.Context, id int64) error {
	const query = `UPDATE fallback_rewards SET resolved_at = ? WHERE id = ? AND resolved_at IS NULL`

	result, err := r.db.Writer.ExecContext(ctx, query, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("resolve fallback reward %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("resolve fallback reward %d: %w", id, driven.ErrFallbackNotFound)
	}
	return nil
}

func scanFallback(s scanner) (*model.FallbackReward, error) {
	var (
		fr         model.FallbackReward
		title      string
		amount     string
		createdAt  string
		resolvedAt sql.NullString
	)

	err := s.Scan(&fr.ID, &fr.RepoFullName, &fr.IssueNumber, &title, &fr.Username,
		&fr.UserID, &amount, &createdAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	fr.Title = model.RewardTitle(title)

	fr.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}

	fr.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	if resolvedAt.Valid {
		t, err := parseTime(resolvedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse resolved_at: %w", err)
		}
		fr.ResolvedAt = &t
	}
	return &fr, nil
}
