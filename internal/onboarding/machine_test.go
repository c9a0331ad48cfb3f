package onboarding

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionvault/accountbot/internal/authclient"
	"github.com/sessionvault/accountbot/internal/domain"
)

type fakeAccounts struct {
	byPhone map[string]*domain.Account
	active  map[int64]int
	created []*domain.Account

	findErr   error
	createErr error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		byPhone: make(map[string]*domain.Account),
		active:  make(map[int64]int),
	}
}

func (f *fakeAccounts) FindByPhone(_ context.Context, phone string) (*domain.Account, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.byPhone[phone], nil
}

func (f *fakeAccounts) CountActive(_ context.Context, ownerID int64) (int, error) {
	return f.active[ownerID], nil
}

func (f *fakeAccounts) Create(_ context.Context, acct *domain.Account) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, acct)
	f.byPhone[acct.Phone] = acct
	return nil
}

type fakeClient struct {
	sendCodeErr    error
	submitCodeErr  error
	submitPassErr  error
	secret         string
	secretErr      error
	codes          []string
	passwords      []string
	sendCodeCalls  int
	disconnects    int
}

func (c *fakeClient) SendCode(context.Context) error {
	c.sendCodeCalls++
	return c.sendCodeErr
}

func (c *fakeClient) SubmitCode(_ context.Context, code string) error {
	c.codes = append(c.codes, code)
	return c.submitCodeErr
}

func (c *fakeClient) SubmitPassword(_ context.Context, password string) error {
	c.passwords = append(c.passwords, password)
	return c.submitPassErr
}

func (c *fakeClient) SessionSecret(context.Context) (string, error) {
	return c.secret, c.secretErr
}

func (c *fakeClient) Disconnect() { c.disconnects++ }

type fakeDialer struct {
	client *fakeClient
	err    error
	creds  []authclient.Credentials
}

func (d *fakeDialer) Dial(_ context.Context, creds authclient.Credentials) (authclient.Client, error) {
	d.creds = append(d.creds, creds)
	if d.err != nil {
		return nil, d.err
	}
	return d.client, nil
}

type fakeSealer struct{ err error }

func (s fakeSealer) Seal(plaintext string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "sealed(" + plaintext + ")", nil
}

func newTestMachine(accounts *fakeAccounts, dialer *fakeDialer) *Machine {
	return NewMachine(Options{
		Sessions: NewMemoryStore(),
		Accounts: accounts,
		Dialer:   dialer,
		Sealer:   fakeSealer{},
	})
}

const userID = int64(42)

func TestBeginCapacity(t *testing.T) {
	ctx := context.Background()
	accounts := newFakeAccounts()
	accounts.active[userID] = 3
	m := newTestMachine(accounts, &fakeDialer{client: &fakeClient{}})

	reply, err := m.Begin(ctx, userID, false)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf(ReplyCapacityFmt, 3, 3), reply)
	assert.False(t, m.InProgress(userID))

	// Same count, premium tier: allowed up to 10.
	reply, err = m.Begin(ctx, userID, true)
	require.NoError(t, err)
	assert.Equal(t, ReplyAskCredentials, reply)
	assert.True(t, m.InProgress(userID))
}

func TestBeginTwice(t *testing.T) {
	ctx := context.Background()
	m := newTestMachine(newFakeAccounts(), &fakeDialer{client: &fakeClient{}})

	_, err := m.Begin(ctx, userID, false)
	require.NoError(t, err)

	reply, err := m.Begin(ctx, userID, false)
	require.NoError(t, err)
	assert.Equal(t, ReplyAlreadyOnboarding, reply)
}

func TestCredentialsValidation(t *testing.T) {
	ctx := context.Background()
	dialer := &fakeDialer{client: &fakeClient{}}
	m := newTestMachine(newFakeAccounts(), dialer)

	_, err := m.Begin(ctx, userID, false)
	require.NoError(t, err)

	cases := []struct {
		input string
		want  string
	}{
		{"123456", ReplyBadCredentials},
		{"123456 1a2b3c4d5e6f", ReplyBadCredentials},
		{"notanumber abc +14155550123", ReplyBadCredentials},
		{"123 abc 5551234", ReplyBadPhone},
		{"123 abc +0123456", ReplyBadPhone},
		{"123 abc +1", ReplyBadPhone},
	}
	for _, tc := range cases {
		reply, err := m.HandleText(ctx, userID, tc.input)
		require.NoError(t, err)
		assert.Equal(t, tc.want, reply, "input %q", tc.input)
		assert.True(t, m.InProgress(userID), "session must survive bad input %q", tc.input)
	}
	assert.Empty(t, dialer.creds, "no remote call for rejected input")

	reply, err := m.HandleText(ctx, userID, "123456 1a2b3c4d5e6f +14155550123")
	require.NoError(t, err)
	assert.Equal(t, ReplyAskCode, reply)
	require.Len(t, dialer.creds, 1)
	assert.Equal(t, 123456, dialer.creds[0].APIID)
	assert.Equal(t, "1a2b3c4d5e6f", dialer.creds[0].APIHash)
	assert.Equal(t, "+14155550123", dialer.creds[0].Phone)
	assert.Equal(t, 1, dialer.client.sendCodeCalls)
}

func TestCredentialsPhoneTaken(t *testing.T) {
	ctx := context.Background()
	accounts := newFakeAccounts()
	accounts.byPhone["+14155550123"] = &domain.Account{Phone: "+14155550123"}
	dialer := &fakeDialer{client: &fakeClient{}}
	m := newTestMachine(accounts, dialer)

	_, err := m.Begin(ctx, userID, false)
	require.NoError(t, err)

	reply, err := m.HandleText(ctx, userID, "123456 abc +14155550123")
	require.NoError(t, err)
	assert.Equal(t, ReplyPhoneTaken, reply)
	assert.True(t, m.InProgress(userID))
	assert.Empty(t, dialer.creds)
}

func TestCredentialsDialFailure(t *testing.T) {
	ctx := context.Background()
	dialer := &fakeDialer{err: errors.New("network down")}
	m := newTestMachine(newFakeAccounts(), dialer)

	_, err := m.Begin(ctx, userID, false)
	require.NoError(t, err)

	reply, err := m.HandleText(ctx, userID, "123456 abc +14155550123")
	require.NoError(t, err)
	assert.Equal(t, ReplyConnectFailed, reply)
	assert.False(t, m.InProgress(userID), "session destroyed on remote failure")
}

func TestSendCodeFailureReleasesClient(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{sendCodeErr: errors.New("flood wait")}
	m := newTestMachine(newFakeAccounts(), &fakeDialer{client: client})

	_, err := m.Begin(ctx, userID, false)
	require.NoError(t, err)

	reply, err := m.HandleText(ctx, userID, "123456 abc +14155550123")
	require.NoError(t, err)
	assert.Equal(t, ReplyConnectFailed, reply)
	assert.False(t, m.InProgress(userID))
	assert.Equal(t, 1, client.disconnects)
}

func startCodeStep(t *testing.T, m *Machine, client *fakeClient) {
	t.Helper()
	ctx := context.Background()
	_, err := m.Begin(ctx, userID, false)
	require.NoError(t, err)
	reply, err := m.HandleText(ctx, userID, "123456 abc +14155550123")
	require.NoError(t, err)
	require.Equal(t, ReplyAskCode, reply)
}

func TestCodeValidation(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{secret: "sess"}
	m := newTestMachine(newFakeAccounts(), &fakeDialer{client: client})
	startCodeStep(t, m, client)

	for _, input := range []string{"1234", "123456", "12a45", "", "one23"} {
		reply, err := m.HandleText(ctx, userID, input)
		require.NoError(t, err)
		assert.Equal(t, ReplyBadCode, reply, "input %q", input)
		assert.True(t, m.InProgress(userID))
	}
	assert.Empty(t, client.codes, "invalid codes never reach the remote")
}

func TestCodeSuccessPersistsSealedAccount(t *testing.T) {
	ctx := context.Background()
	accounts := newFakeAccounts()
	client := &fakeClient{secret: "the-session-string"}
	m := newTestMachine(accounts, &fakeDialer{client: client})
	startCodeStep(t, m, client)

	reply, err := m.HandleText(ctx, userID, "12345")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf(ReplyDoneFmt, "+14155550123"), reply)
	assert.False(t, m.InProgress(userID))
	assert.Equal(t, []string{"12345"}, client.codes)
	assert.Equal(t, 1, client.disconnects)

	require.Len(t, accounts.created, 1)
	acct := accounts.created[0]
	assert.Equal(t, userID, acct.OwnerID)
	assert.Equal(t, "+14155550123", acct.Phone)
	assert.Equal(t, 123456, acct.APIID)
	assert.Equal(t, "sealed(the-session-string)", acct.Secret)
	assert.False(t, acct.TwoFactor)
	assert.True(t, acct.Active)
}

func TestCodeRejectedIsTerminal(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{submitCodeErr: authclient.ErrCodeInvalid}
	m := newTestMachine(newFakeAccounts(), &fakeDialer{client: client})
	startCodeStep(t, m, client)

	reply, err := m.HandleText(ctx, userID, "12345")
	require.NoError(t, err)
	assert.Equal(t, ReplyCodeRejected, reply)
	assert.False(t, m.InProgress(userID))
	assert.Equal(t, 1, client.disconnects)
}

func TestTwoFactorPath(t *testing.T) {
	ctx := context.Background()
	accounts := newFakeAccounts()
	client := &fakeClient{submitCodeErr: authclient.ErrPasswordNeeded, secret: "2fa-session"}
	m := newTestMachine(accounts, &fakeDialer{client: client})
	startCodeStep(t, m, client)

	reply, err := m.HandleText(ctx, userID, "12345")
	require.NoError(t, err)
	assert.Equal(t, ReplyAskPassword, reply)
	assert.True(t, m.InProgress(userID))
	assert.Zero(t, client.disconnects, "connection carried into the password step")

	// Empty password retries in place.
	reply, err = m.HandleText(ctx, userID, "   ")
	require.NoError(t, err)
	assert.Equal(t, ReplyBadPassword, reply)
	assert.True(t, m.InProgress(userID))

	reply, err = m.HandleText(ctx, userID, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf(ReplyDoneFmt, "+14155550123"), reply)
	assert.False(t, m.InProgress(userID))
	assert.Equal(t, []string{"hunter2"}, client.passwords)
	assert.Equal(t, 1, client.disconnects)

	require.Len(t, accounts.created, 1)
	assert.True(t, accounts.created[0].TwoFactor)
	assert.Equal(t, "sealed(2fa-session)", accounts.created[0].Secret)
}

func TestPasswordRejectedIsTerminal(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{submitCodeErr: authclient.ErrPasswordNeeded, submitPassErr: authclient.ErrPasswordInvalid}
	m := newTestMachine(newFakeAccounts(), &fakeDialer{client: client})
	startCodeStep(t, m, client)

	_, err := m.HandleText(ctx, userID, "12345")
	require.NoError(t, err)

	reply, err := m.HandleText(ctx, userID, "wrong")
	require.NoError(t, err)
	assert.Equal(t, ReplyPasswordRejected, reply)
	assert.False(t, m.InProgress(userID))
	assert.Equal(t, 1, client.disconnects)
}

func TestFinalizeStorageFailure(t *testing.T) {
	ctx := context.Background()
	accounts := newFakeAccounts()
	accounts.createErr = errors.New("db down")
	client := &fakeClient{secret: "sess"}
	m := newTestMachine(accounts, &fakeDialer{client: client})
	startCodeStep(t, m, client)

	reply, err := m.HandleText(ctx, userID, "12345")
	require.NoError(t, err)
	assert.Equal(t, ReplyFailed, reply)
	assert.False(t, m.InProgress(userID))
	assert.Equal(t, 1, client.disconnects)
	assert.Empty(t, accounts.created)
}

// blockingClient ignores codes until the per-call deadline expires.
type blockingClient struct {
	fakeClient
}

func (c *blockingClient) SubmitCode(ctx context.Context, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRemoteDeadlineBehavesLikeFailure(t *testing.T) {
	ctx := context.Background()
	client := &blockingClient{}
	m := NewMachine(Options{
		Sessions: NewMemoryStore(),
		Accounts: newFakeAccounts(),
		Dialer: dialerFunc(func(context.Context, authclient.Credentials) (authclient.Client, error) {
			return client, nil
		}),
		Sealer:        fakeSealer{},
		RemoteTimeout: 10 * time.Millisecond,
	})

	_, err := m.Begin(ctx, userID, false)
	require.NoError(t, err)
	reply, err := m.HandleText(ctx, userID, "123456 abc +14155550123")
	require.NoError(t, err)
	require.Equal(t, ReplyAskCode, reply)

	reply, err = m.HandleText(ctx, userID, "12345")
	require.NoError(t, err)
	assert.Equal(t, ReplyCodeRejected, reply)
	assert.False(t, m.InProgress(userID))
	assert.Equal(t, 1, client.disconnects)
}

type dialerFunc func(ctx context.Context, creds authclient.Credentials) (authclient.Client, error)

func (f dialerFunc) Dial(ctx context.Context, creds authclient.Credentials) (authclient.Client, error) {
	return f(ctx, creds)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	m := newTestMachine(newFakeAccounts(), &fakeDialer{client: client})

	reply, cancelled := m.Cancel(ctx, userID)
	assert.False(t, cancelled)
	assert.Equal(t, ReplyNothingToCancel, reply)

	startCodeStep(t, m, client)
	reply, cancelled = m.Cancel(ctx, userID)
	assert.True(t, cancelled)
	assert.Equal(t, ReplyCancelled, reply)
	assert.False(t, m.InProgress(userID))
	assert.Equal(t, 1, client.disconnects, "cancel releases the open connection")
}

func TestHandleTextWithoutSession(t *testing.T) {
	m := newTestMachine(newFakeAccounts(), &fakeDialer{client: &fakeClient{}})
	reply, err := m.HandleText(context.Background(), userID, "hello")
	require.NoError(t, err)
	assert.Equal(t, ReplyNoSession, reply)
}

func lockEntries(m *Machine) int {
	n := 0
	m.locks.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func TestLocksDroppedAfterTerminalTransitions(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{secret: "sess"}
	m := newTestMachine(newFakeAccounts(), &fakeDialer{client: client})

	startCodeStep(t, m, client)
	assert.Equal(t, 1, lockEntries(m), "open session keeps its lock entry")

	reply, err := m.HandleText(ctx, userID, "12345")
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf(ReplyDoneFmt, "+14155550123"), reply)
	assert.Zero(t, lockEntries(m), "finished flow leaves no lock behind")

	m2 := newTestMachine(newFakeAccounts(), &fakeDialer{client: &fakeClient{}})
	startCodeStep(t, m2, client)
	_, cancelled := m2.Cancel(ctx, userID)
	require.True(t, cancelled)
	assert.Zero(t, lockEntries(m2), "cancel leaves no lock behind")

	_, err = m2.HandleText(ctx, userID, "hello")
	require.NoError(t, err)
	assert.Zero(t, lockEntries(m2), "no-session text does not pin a lock")
}
