package sqlite

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
	"github.com/ericfisherdev/bountybot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.BotAccountStore = (*BotAccountRepo)(nil)

// BotAccountRepo is the SQLite implementation of the BotAccountStore port.
type BotAccountRepo struct {
	db *DB
}

// NewBotAccountRepo creates a new BotAccountRepo backed by the given DB.
func NewBotAccountRepo(db *DB) *BotAccountRepo {
	return &BotAccountRepo{db: db}
}

// Add inserts a bot account and returns it with its ID and timestamp set.
// Returns driven.ErrBotAlreadyExists if the username is taken.
func (r *BotAccountRepo) Add(ctx context.Context, bot model.BotAccount) (model.BotAccount, error) {
	const query = `
		INSERT INTO bot_accounts (username, added_at) VALUES (?, ?)
		ON CONFLICT(username) DO NOTHING`

	addedAt := formatTime(bot.AddedAt)
	result, err := r.db.Writer.ExecContext(ctx, query, bot.Username, addedAt)
	if err != nil {
		return model.BotAccount{}, fmt.Errorf("add bot account %q: %w", bot.Username, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return model.BotAccount{}, fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return model.BotAccount{}, fmt.Errorf("add bot account %q: %w", bot.Username, driven.ErrBotAlreadyExists)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.BotAccount{}, fmt.Errorf("read bot account id: %w", err)
	}

	bot.ID = id
	bot.AddedAt, _ = parseTime(addedAt)
	return bot, nil
}

// Remove deletes a bot account by username. Returns driven.ErrBotNotFound
// if the username does not exist.
func (r *BotAccountRepo) Remove(ctx context.Context, username string) error {
	const query = `DELETE FROM bot_accounts WHERE username = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, username)
	if err != nil {
		return fmt.Errorf("remove bot account %q: %w", username, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("remove bot account %q: %w", username, driven.ErrBotNotFound)
	}

	return nil
}

// ListAll returns all bot accounts ordered by username.
func (r *BotAccountRepo) ListAll(ctx context.Context) ([]model.BotAccount, error) {
	const query = `SELECT id, username, added_at FROM bot_accounts ORDER BY username`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list bot accounts: %w", err)
	}
	defer rows.Close()

	var bots []model.BotAccount
	for rows.Next() {
		var bot model.BotAccount
		var addedAt string

		if err := rows.Scan(&bot.ID, &bot.Username, &addedAt); err != nil {
			return nil, fmt.Errorf("scan bot account: %w", err)
		}

		bot.AddedAt, err = parseTime(addedAt)
		if err != nil {
			return nil, fmt.Errorf("parse added_at: %w", err)
		}

		bots = append(bots, bot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bot accounts: %w", err)
	}

	return bots, nil
}

// GetUsernames returns only the usernames, ordered alphabetically.
func (r *BotAccountRepo) GetUsernames(ctx context.Context) ([]string, error) {
	const query = `SELECT username FROM bot_accounts ORDER BY username`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get bot usernames: %w", err)
	}
	defer rows.Close()

	var usernames []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("scan username: %w", err)
		}
		usernames = append(usernames, username)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usernames: %w", err)
	}

	return usernames, nil
}
