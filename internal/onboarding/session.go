package onboarding

import "github.com/sessionvault/accountbot/internal/authclient"

// Session is one in-flight onboarding conversation. The concrete type
// carries exactly the data its step needs, so a step can never observe
// fields that belong to another step.
type Session interface {
	// Step names the current step for logs and diagnostics.
	Step() string

	// release drops any resources held by the session. Terminal paths
	// call it exactly once; it is safe to call on steps without a client.
	release()
}

// awaitingCredentials waits for "api_id api_hash phone" in one message.
type awaitingCredentials struct{}

func (awaitingCredentials) Step() string { return "credentials" }
func (awaitingCredentials) release()     {}

// awaitingCode owns an open verification connection that has already
// delivered a one-time code to the phone.
type awaitingCode struct {
	creds  authclient.Credentials
	client authclient.Client
}

func (awaitingCode) Step() string { return "code" }
func (s awaitingCode) release()   { s.client.Disconnect() }

// awaitingPassword follows a two-factor challenge from the remote
// service; the connection is carried over from the code step.
type awaitingPassword struct {
	creds  authclient.Credentials
	client authclient.Client
}

func (awaitingPassword) Step() string { return "password" }
func (s awaitingPassword) release()   { s.client.Disconnect() }
