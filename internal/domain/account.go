package domain

import "time"

// Account is a registered messaging account owned by a bot user.
// Secret holds the sealed session string and is never logged or
// shown to users in plain form.
type Account struct {
	ID        int64     `db:"id"`
	OwnerID   int64     `db:"owner_id"`
	Phone     string    `db:"phone"`
	APIID     int       `db:"api_id"`
	Secret    string    `db:"secret"`
	TwoFactor bool      `db:"twofactor"`
	Active    bool      `db:"active"`
	Banned    bool      `db:"banned"`
	CreatedAt time.Time `db:"created_at"`
}

// Account capacity per owner tier.
const (
	StandardAccountLimit = 3
	PremiumAccountLimit  = 10
)

// LimitFor returns the account capacity for the given tier.
func LimitFor(premium bool) int {
	if premium {
		return PremiumAccountLimit
	}
	return StandardAccountLimit
}
