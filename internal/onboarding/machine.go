// Package onboarding drives the per-user conversation that registers a
// messaging account: credentials, one-time code, optional two-factor
// password, and finally a sealed session secret in storage.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sessionvault/accountbot/core/logger"
	"github.com/sessionvault/accountbot/internal/authclient"
	"github.com/sessionvault/accountbot/internal/domain"
	"log/slog"
)

var (
	phoneRe = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	codeRe  = regexp.MustCompile(`^\d{5}$`)
)

const defaultRemoteTimeout = 30 * time.Second

// AccountStore is the slice of persistent storage the machine needs.
// FindByPhone returns (nil, nil) when no account matches.
type AccountStore interface {
	FindByPhone(ctx context.Context, phone string) (*domain.Account, error)
	CountActive(ctx context.Context, ownerID int64) (int, error)
	Create(ctx context.Context, acct *domain.Account) error
}

// Sealer encrypts session secrets before they reach storage.
type Sealer interface {
	Seal(plaintext string) (string, error)
}

// Options wires a Machine.
type Options struct {
	Sessions Store
	Accounts AccountStore
	Dialer   authclient.Dialer
	Sealer   Sealer

	// RemoteTimeout bounds each call to the verification service.
	// An expired deadline is handled as a remote failure: the session
	// is destroyed and the connection released.
	RemoteTimeout time.Duration
}

// Machine advances onboarding sessions. Transitions for the same user
// are serialised, so a rapid duplicate message waits for the in-flight
// transition instead of racing it.
type Machine struct {
	sessions Store
	accounts AccountStore
	dialer   authclient.Dialer
	sealer   Sealer
	timeout  time.Duration

	locks sync.Map // userID -> *sync.Mutex
}

// NewMachine builds a Machine from Options.
func NewMachine(opts Options) *Machine {
	timeout := opts.RemoteTimeout
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	return &Machine{
		sessions: opts.Sessions,
		accounts: opts.Accounts,
		dialer:   opts.Dialer,
		sealer:   opts.Sealer,
		timeout:  timeout,
	}
}

// InProgress reports whether the user has an onboarding session open.
func (m *Machine) InProgress(userID int64) bool {
	_, ok := m.sessions.Get(userID)
	return ok
}

// Begin opens a session for the user after the capacity check. The
// returned string is the single reply to send; err is set only for
// storage failures.
func (m *Machine) Begin(ctx context.Context, userID int64, premium bool) (string, error) {
	defer m.lock(userID)()

	if _, ok := m.sessions.Get(userID); ok {
		return ReplyAlreadyOnboarding, nil
	}

	count, err := m.accounts.CountActive(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("count active accounts: %w", err)
	}
	limit := domain.LimitFor(premium)
	if count >= limit {
		logger.FSM.LogAttrs(ctx, slog.LevelInfo, "onboarding.capacity",
			slog.Int64("user_id", userID),
			slog.Int("accounts", count),
			slog.Int("limit", limit),
			slog.Bool("premium", premium),
		)
		return fmt.Sprintf(ReplyCapacityFmt, count, limit), nil
	}

	m.sessions.Put(userID, awaitingCredentials{})
	logger.FSM.LogAttrs(ctx, slog.LevelInfo, "onboarding.begin",
		slog.Int64("user_id", userID),
		slog.Int("accounts", count),
		slog.Int("limit", limit),
	)
	return ReplyAskCredentials, nil
}

// Cancel destroys the user's session if one exists. The bool reports
// whether anything was cancelled.
func (m *Machine) Cancel(ctx context.Context, userID int64) (string, bool) {
	defer m.lock(userID)()

	s, ok := m.sessions.Get(userID)
	if !ok {
		return ReplyNothingToCancel, false
	}
	s.release()
	m.sessions.Delete(userID)
	logger.FSM.LogAttrs(ctx, slog.LevelInfo, "onboarding.cancel",
		slog.Int64("user_id", userID),
		slog.String("step", s.Step()),
	)
	return ReplyCancelled, true
}

// HandleText feeds one user message into the session. The returned
// string is the single reply to send.
func (m *Machine) HandleText(ctx context.Context, userID int64, text string) (string, error) {
	defer m.lock(userID)()

	s, ok := m.sessions.Get(userID)
	if !ok {
		return ReplyNoSession, nil
	}

	text = strings.TrimSpace(text)
	switch step := s.(type) {
	case awaitingCredentials:
		return m.handleCredentials(ctx, userID, text)
	case awaitingCode:
		return m.handleCode(ctx, userID, step, text)
	case awaitingPassword:
		return m.handlePassword(ctx, userID, step, text)
	default:
		s.release()
		m.sessions.Delete(userID)
		return ReplyFailed, fmt.Errorf("unknown session step %q", s.Step())
	}
}

func (m *Machine) handleCredentials(ctx context.Context, userID int64, text string) (string, error) {
	fields := strings.Fields(text)
	if len(fields) != 3 {
		return ReplyBadCredentials, nil
	}
	apiID, err := strconv.Atoi(fields[0])
	if err != nil || apiID <= 0 {
		return ReplyBadCredentials, nil
	}
	apiHash, phone := fields[1], fields[2]
	if !phoneRe.MatchString(phone) {
		return ReplyBadPhone, nil
	}

	existing, err := m.accounts.FindByPhone(ctx, phone)
	if err != nil {
		return "", fmt.Errorf("lookup phone: %w", err)
	}
	if existing != nil {
		return ReplyPhoneTaken, nil
	}

	creds := authclient.Credentials{APIID: apiID, APIHash: apiHash, Phone: phone}

	rctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	client, err := m.dialer.Dial(rctx, creds)
	if err != nil {
		m.sessions.Delete(userID)
		m.logFailure(ctx, userID, "credentials", phone, err)
		return ReplyConnectFailed, nil
	}
	if err := client.SendCode(rctx); err != nil {
		client.Disconnect()
		m.sessions.Delete(userID)
		m.logFailure(ctx, userID, "credentials", phone, err)
		return ReplyConnectFailed, nil
	}

	m.sessions.Put(userID, awaitingCode{creds: creds, client: client})
	logger.FSM.LogAttrs(ctx, slog.LevelInfo, "onboarding.code_sent",
		slog.Int64("user_id", userID),
		slog.String("phone", logger.MaskPhone(phone)),
	)
	return ReplyAskCode, nil
}

func (m *Machine) handleCode(ctx context.Context, userID int64, step awaitingCode, text string) (string, error) {
	if !codeRe.MatchString(text) {
		return ReplyBadCode, nil
	}

	rctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	err := step.client.SubmitCode(rctx, text)
	switch {
	case err == nil:
		return m.finalize(ctx, userID, step.creds, step.client, false)
	case errors.Is(err, authclient.ErrPasswordNeeded):
		m.sessions.Put(userID, awaitingPassword{creds: step.creds, client: step.client})
		logger.FSM.LogAttrs(ctx, slog.LevelInfo, "onboarding.twofactor",
			slog.Int64("user_id", userID),
			slog.String("phone", logger.MaskPhone(step.creds.Phone)),
		)
		return ReplyAskPassword, nil
	default:
		step.release()
		m.sessions.Delete(userID)
		m.logFailure(ctx, userID, "code", step.creds.Phone, err)
		return ReplyCodeRejected, nil
	}
}

func (m *Machine) handlePassword(ctx context.Context, userID int64, step awaitingPassword, text string) (string, error) {
	if text == "" {
		return ReplyBadPassword, nil
	}

	rctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := step.client.SubmitPassword(rctx, text); err != nil {
		step.release()
		m.sessions.Delete(userID)
		m.logFailure(ctx, userID, "password", step.creds.Phone, err)
		return ReplyPasswordRejected, nil
	}
	return m.finalize(ctx, userID, step.creds, step.client, true)
}

// finalize runs the success path: export the secret, seal it, persist
// the account, release the connection, destroy the session.
func (m *Machine) finalize(ctx context.Context, userID int64, creds authclient.Credentials, client authclient.Client, twofactor bool) (string, error) {
	defer func() {
		client.Disconnect()
		m.sessions.Delete(userID)
	}()

	rctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	secret, err := client.SessionSecret(rctx)
	if err != nil {
		m.logFailure(ctx, userID, "finalize", creds.Phone, err)
		return ReplyFailed, nil
	}

	sealed, err := m.sealer.Seal(secret)
	if err != nil {
		m.logFailure(ctx, userID, "finalize", creds.Phone, err)
		return ReplyFailed, nil
	}

	acct := &domain.Account{
		OwnerID:   userID,
		Phone:     creds.Phone,
		APIID:     creds.APIID,
		Secret:    sealed,
		TwoFactor: twofactor,
		Active:    true,
	}
	if err := m.accounts.Create(ctx, acct); err != nil {
		m.logFailure(ctx, userID, "finalize", creds.Phone, err)
		return ReplyFailed, nil
	}

	logger.FSM.LogAttrs(ctx, slog.LevelInfo, "onboarding.done",
		slog.Int64("user_id", userID),
		slog.String("phone", logger.MaskPhone(creds.Phone)),
		slog.Bool("twofactor", twofactor),
	)
	return fmt.Sprintf(ReplyDoneFmt, creds.Phone), nil
}

func (m *Machine) logFailure(ctx context.Context, userID int64, step, phone string, err error) {
	logger.FSM.LogAttrs(ctx, slog.LevelWarn, "onboarding.failed",
		slog.Int64("user_id", userID),
		slog.String("step", step),
		slog.String("phone", logger.MaskPhone(phone)),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
}

// lock serializes transitions for one user. The map entry is dropped
// once no session remains, so idle users do not pin a mutex forever.
// A waiter that acquired a dropped mutex re-checks map identity and
// retries against the fresh entry.
func (m *Machine) lock(userID int64) func() {
	for {
		v, _ := m.locks.LoadOrStore(userID, &sync.Mutex{})
		mu := v.(*sync.Mutex)
		mu.Lock()
		if cur, ok := m.locks.Load(userID); ok && cur == v {
			return func() {
				if _, open := m.sessions.Get(userID); !open {
					m.locks.Delete(userID)
				}
				mu.Unlock()
			}
		}
		mu.Unlock()
	}
}
