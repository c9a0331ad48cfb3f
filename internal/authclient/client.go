// Package authclient defines the boundary to the external messaging
// network used to verify account ownership during onboarding.
package authclient

import (
	"context"
	"errors"
)

// Sentinel outcomes of code and password submission. Anything else
// returned from the client is treated as an unrecoverable remote error.
var (
	// ErrPasswordNeeded signals that the account has two-factor
	// authentication enabled and a password must follow the code.
	ErrPasswordNeeded = errors.New("authclient: two-factor password needed")

	// ErrCodeInvalid signals that the submitted verification code was
	// rejected by the remote service.
	ErrCodeInvalid = errors.New("authclient: verification code invalid")

	// ErrPasswordInvalid signals that the submitted two-factor password
	// was rejected by the remote service.
	ErrPasswordInvalid = errors.New("authclient: two-factor password invalid")
)

// Credentials identifies an application and the phone being registered.
type Credentials struct {
	APIID   int
	APIHash string
	Phone   string
}

// Client is an open connection to the verification service, owned by
// exactly one onboarding session. Disconnect must be called on every
// terminal path.
type Client interface {
	// SendCode asks the service to deliver a one-time code to the phone.
	SendCode(ctx context.Context) error

	// SubmitCode presents the user-entered code. Returns nil on full
	// sign-in, ErrPasswordNeeded when a second factor is required, or
	// ErrCodeInvalid when rejected.
	SubmitCode(ctx context.Context, code string) error

	// SubmitPassword presents the two-factor password after
	// ErrPasswordNeeded. Returns nil or ErrPasswordInvalid.
	SubmitPassword(ctx context.Context, password string) error

	// SessionSecret exports the authenticated session string. Valid
	// only after a successful SubmitCode or SubmitPassword.
	SessionSecret(ctx context.Context) (string, error)

	// Disconnect releases the connection. Safe to call more than once.
	Disconnect()
}

// Dialer opens verification connections for a set of credentials.
type Dialer interface {
	Dial(ctx context.Context, creds Credentials) (Client, error)
}
