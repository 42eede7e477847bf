package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
	"github.com/ericfisherdev/bountybot/internal/domain/port/driven"
)

var _ driven.PermitLog = (*PermitRepo)(nil)

// PermitRepo is the SQLite implementation of the PermitLog port.
type PermitRepo struct {
	db *DB
}

// NewPermitRepo creates a new PermitRepo backed by the given DB.
func NewPermitRepo(db *DB) *PermitRepo {
	return &PermitRepo{db: db}
}

// Record appends an issued permit to the log.
func (r *PermitRepo) Record(ctx context.Context, rec model.PermitRecord) error {
	const query = `
		INSERT INTO permit_log
			(repo_full_name, issue_number, title, username, recipient, amount, nonce, claim_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Writer.ExecContext(ctx, query,
		rec.RepoFullName,
		rec.IssueNumber,
		string(rec.Title),
		rec.Username,
		rec.Recipient,
		rec.Amount.String(),
		rec.Nonce,
		rec.ClaimURL,
		formatTime(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("record permit for %q on %s#%d: %w", rec.Username, rec.RepoFullName, rec.IssueNumber, err)
	}
	return nil
}

// List returns permits newest first. An empty repoFullName or a zero
// issueNumber disables that filter.
func (r *PermitRepo) List(ctx context.Context, repoFullName string, issueNumber int) ([]model.PermitRecord, error) {
	var (
		where []string
		args  []any
	)
	if repoFullName != "" {
		where = append(where, "repo_full_name = ?")
		args = append(args, repoFullName)
	}
	if issueNumber != 0 {
		where = append(where, "issue_number = ?")
		args = append(args, issueNumber)
	}

	query := `SELECT id, repo_full_name, issue_number, title, username, recipient, amount, nonce, claim_url, created_at
		FROM permit_log`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list permits: %w", err)
	}
	defer rows.Close()

	var records []model.PermitRecord
	for rows.Next() {
		var (
			rec       model.PermitRecord
			title     string
			amount    string
			createdAt string
		)
		err := rows.Scan(&rec.ID, &rec.RepoFullName, &rec.IssueNumber, &title, &rec.Username,
			&rec.Recipient, &amount, &rec.Nonce, &rec.ClaimURL, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan permit: %w", err)
		}
		rec.Title = model.RewardTitle(title)

		if rec.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		if rec.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permits: %w", err)
	}
	return records, nil
}
