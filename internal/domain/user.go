package domain

import (
	"database/sql"
	"time"
)

// User is a bot user identified by their Telegram ID.
type User struct {
	ID         int64          `db:"id"`
	TelegramID int64          `db:"telegram_id"`
	Username   sql.NullString `db:"username"`
	Premium    bool           `db:"premium"`
	Banned     bool           `db:"banned"`
	CreatedAt  time.Time      `db:"created_at"`
}
