package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sessionvault/accountbot/core/logger"
	"github.com/sessionvault/accountbot/internal/domain"
	"log/slog"
)

// Users is the bot user repository.
type Users struct {
	db *sqlx.DB
}

// NewUsers creates the user repository.
func NewUsers(db *sqlx.DB) *Users {
	return &Users{db: db}
}

// Upsert registers the user on first contact and refreshes the username
// on later ones. Returns the stored row.
func (r *Users) Upsert(ctx context.Context, telegramID int64, username string) (*domain.User, error) {
	var u domain.User
	err := r.db.GetContext(ctx, &u,
		`INSERT INTO users (telegram_id, username)
		 VALUES ($1, NULLIF($2, ''))
		 ON CONFLICT (telegram_id)
		 DO UPDATE SET username = COALESCE(NULLIF($2, ''), users.username)
		 RETURNING id, telegram_id, username, premium, banned, created_at`,
		telegramID, username)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &u, nil
}

// GetByTelegramID returns the user, or (nil, nil) when unknown.
func (r *Users) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	var u domain.User
	err := r.db.GetContext(ctx, &u,
		`SELECT id, telegram_id, username, premium, banned, created_at
		 FROM users WHERE telegram_id = $1`, telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// SetPremium flips the premium flag, raising the account capacity from
// the standard limit to the premium one.
func (r *Users) SetPremium(ctx context.Context, telegramID int64, premium bool) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET premium = $2 WHERE telegram_id = $1`, telegramID, premium)
	if err != nil {
		return false, fmt.Errorf("set premium: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set premium: %w", err)
	}
	if n > 0 {
		logger.SVCUsers.LogAttrs(ctx, slog.LevelInfo, "user.premium",
			slog.Int64("user_id", telegramID),
			slog.Bool("premium", premium),
		)
	}
	return n > 0, nil
}

// Count returns the number of registered bot users.
func (r *Users) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}
