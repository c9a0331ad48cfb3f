package authclient

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by the default dialer when no
// verification backend has been wired into the deployment.
var ErrNotConfigured = errors.New("authclient: verification backend not configured")

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, creds Credentials) (Client, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context, creds Credentials) (Client, error) {
	return f(ctx, creds)
}

// Unconfigured returns a Dialer that fails every dial with
// ErrNotConfigured. It is the default when the embedding deployment
// does not supply a real client.
func Unconfigured() Dialer {
	return DialerFunc(func(context.Context, Credentials) (Client, error) {
		return nil, ErrNotConfigured
	})
}
