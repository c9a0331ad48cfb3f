// Package storage holds the Postgres repositories for users and their
// registered accounts.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sessionvault/accountbot/core/logger"
	"github.com/sessionvault/accountbot/internal/domain"
	"log/slog"
)

// ErrDuplicatePhone is returned by Create when the phone number is
// already registered.
var ErrDuplicatePhone = errors.New("storage: phone already registered")

const uniqueViolation = "23505"

// Accounts is the account repository.
type Accounts struct {
	db *sqlx.DB
}

// NewAccounts creates the account repository.
func NewAccounts(db *sqlx.DB) *Accounts {
	return &Accounts{db: db}
}

// FindByPhone returns the account for the phone, or (nil, nil) when no
// account matches.
func (r *Accounts) FindByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	var acct domain.Account
	err := r.db.GetContext(ctx, &acct,
		`SELECT id, owner_id, phone, api_id, secret, twofactor, active, banned, created_at
		 FROM accounts WHERE phone = $1`, phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find account by phone: %w", err)
	}
	return &acct, nil
}

// CountActive counts the owner's active, non-banned accounts. Used for
// the capacity check before onboarding starts.
func (r *Accounts) CountActive(ctx context.Context, ownerID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM accounts WHERE owner_id = $1 AND active AND NOT banned`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("count active accounts: %w", err)
	}
	return count, nil
}

// Create inserts a new account record. The secret must already be
// sealed; this layer never sees plaintext session strings.
func (r *Accounts) Create(ctx context.Context, acct *domain.Account) error {
	err := r.db.GetContext(ctx, &acct.ID,
		`INSERT INTO accounts (owner_id, phone, api_id, secret, twofactor, active, banned)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		acct.OwnerID, acct.Phone, acct.APIID, acct.Secret, acct.TwoFactor, acct.Active, acct.Banned)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicatePhone
		}
		return fmt.Errorf("create account: %w", err)
	}
	logger.SVCAccounts.LogAttrs(ctx, slog.LevelInfo, "account.create",
		slog.Int64("account_id", acct.ID),
		slog.Int64("user_id", acct.OwnerID),
		slog.String("phone", logger.MaskPhone(acct.Phone)),
		slog.Bool("twofactor", acct.TwoFactor),
	)
	return nil
}

// ListByOwner returns the owner's accounts, newest first.
func (r *Accounts) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Account, error) {
	var list []domain.Account
	err := r.db.SelectContext(ctx, &list,
		`SELECT id, owner_id, phone, api_id, secret, twofactor, active, banned, created_at
		 FROM accounts WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return list, nil
}

// Delete removes an account owned by ownerID. The owner filter makes
// the callback path safe against forged account IDs.
func (r *Accounts) Delete(ctx context.Context, id, ownerID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("delete account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete account: %w", err)
	}
	if n > 0 {
		logger.SVCAccounts.LogAttrs(ctx, slog.LevelInfo, "account.delete",
			slog.Int64("account_id", id),
			slog.Int64("user_id", ownerID),
		)
	}
	return n > 0, nil
}

// SetBanned flips the ban flag on every account registered under the
// phone number. Used by the admin ban commands.
func (r *Accounts) SetBanned(ctx context.Context, phone string, banned bool) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET banned = $2 WHERE phone = $1`, phone, banned)
	if err != nil {
		return false, fmt.Errorf("set banned: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set banned: %w", err)
	}
	return n > 0, nil
}

// Stats aggregates account counts for the admin overview.
type Stats struct {
	Total     int `db:"total"`
	Active    int `db:"active"`
	Banned    int `db:"banned"`
	TwoFactor int `db:"twofactor"`
}

// Stats returns aggregate counts over all accounts.
func (r *Accounts) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.db.GetContext(ctx, &s,
		`SELECT COUNT(*) AS total,
		        COUNT(*) FILTER (WHERE active AND NOT banned) AS active,
		        COUNT(*) FILTER (WHERE banned) AS banned,
		        COUNT(*) FILTER (WHERE twofactor) AS twofactor
		 FROM accounts`)
	if err != nil {
		return Stats{}, fmt.Errorf("account stats: %w", err)
	}
	return s, nil
}
