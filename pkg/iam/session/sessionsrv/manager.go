package sessionsrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/iam"
	"github.com/Abraxas-365/keygate/pkg/iam/account"
	"github.com/Abraxas-365/keygate/pkg/iam/authcode"
	"github.com/Abraxas-365/keygate/pkg/iam/client"
	"github.com/Abraxas-365/keygate/pkg/iam/credential"
	"github.com/Abraxas-365/keygate/pkg/iam/session"
	"github.com/Abraxas-365/keygate/pkg/iam/token"
	"github.com/Abraxas-365/keygate/pkg/kernel"
	"github.com/Abraxas-365/keygate/pkg/logx"
	"github.com/Abraxas-365/keygate/pkg/store"
)

// ClientValidator checks the optional client credentials of a grant.
type ClientValidator interface {
	Validate(ctx context.Context, clientID, clientSecret *string) error
}

// Lifetimes are the validity windows of the three credentials.
type Lifetimes struct {
	Access   time.Duration
	Refresh  time.Duration
	AuthCode time.Duration
}

// Manager owns the account-session lifecycle.
type Manager struct {
	sessions session.Repository
	accounts account.Repository
	codes    authcode.Repository
	clients  ClientValidator
	hasher   *credential.Hasher
	tokens   *token.Generator
	tx       store.Transactor
	ttl      Lifetimes
	now      func() time.Time
}

type Option func(*Manager)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(
	sessions session.Repository,
	accounts account.Repository,
	codes authcode.Repository,
	clients ClientValidator,
	hasher *credential.Hasher,
	tokens *token.Generator,
	tx store.Transactor,
	ttl Lifetimes,
	opts ...Option,
) *Manager {
	m := &Manager{
		sessions: sessions,
		accounts: accounts,
		codes:    codes,
		clients:  clients,
		hasher:   hasher,
		tokens:   tokens,
		tx:       tx,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Lifetimes returns the configured credential lifetimes.
func (m *Manager) Lifetimes() Lifetimes {
	return m.ttl
}

// ============================================================================
// Grants
// ============================================================================

// SignInPassword validates the client and the account password and opens a
// new session. Bad client, unknown login and wrong password all yield
// session.ErrInvalidGrant.
func (m *Manager) SignInPassword(ctx context.Context, username, password string, clientID, clientSecret *string) (*session.AccountSession, error) {
	now := m.now()

	if err := m.validateClient(ctx, clientID, clientSecret); err != nil {
		return nil, err
	}

	acc, err := m.accounts.FindByLogin(ctx, username)
	if err != nil {
		if errx.IsCode(err, account.CodeAccountNotFound) {
			return nil, session.ErrInvalidGrant()
		}
		return nil, err
	}

	ok, err := m.hasher.VerifyAsync(ctx, password, acc.PasswordSalt, acc.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, session.ErrInvalidGrant()
	}

	return m.open(ctx, acc.ID, now)
}

// SignInRefresh rotates the pair of the session holding refreshToken, then
// re-reads it by the new refresh token and enforces the refresh lifetime.
// Rotation happens before the expiry check.
func (m *Manager) SignInRefresh(ctx context.Context, refreshToken string, clientID, clientSecret *string) (*session.AccountSession, error) {
	now := m.now()

	if err := m.validateClient(ctx, clientID, clientSecret); err != nil {
		return nil, err
	}

	access, refresh, err := m.tokens.UniquePair(ctx, m.sessions.ExistsByToken)
	if err != nil {
		return nil, err
	}

	if err := m.sessions.RotateTokens(ctx, refreshToken, access, refresh, now); err != nil {
		return nil, err
	}

	s, err := m.sessions.FindByRefreshToken(ctx, refresh)
	if err != nil {
		if errx.IsCode(err, session.CodeSessionNotFound) {
			return nil, session.ErrInvalidGrant()
		}
		return nil, err
	}

	if s.RefreshExpired(m.ttl.Refresh, now) {
		if err := m.sessions.Delete(ctx, s.ID); err != nil {
			return nil, err
		}
		return nil, session.ErrInvalidGrant()
	}

	return s, nil
}

// SignInAuthCode exchanges a single-use authorization code for a new session.
// An expired code is deleted. A code is consumed only together with a
// successfully created session.
func (m *Manager) SignInAuthCode(ctx context.Context, code string, clientID, clientSecret *string) (*session.AccountSession, error) {
	now := m.now()

	if err := m.validateClient(ctx, clientID, clientSecret); err != nil {
		return nil, err
	}

	c, err := m.codes.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if session.Expired(c.CreationDate, m.ttl.AuthCode, now) {
		if _, err := m.codes.Delete(ctx, c.ID); err != nil {
			return nil, err
		}
		return nil, authcode.ErrExpired()
	}

	var s *session.AccountSession
	err = m.tx.WithinTx(ctx, func(ctx context.Context) error {
		created, err := m.open(ctx, c.AccountID, now)
		if err != nil {
			return err
		}

		consumed, err := m.codes.Delete(ctx, c.ID)
		if err != nil {
			return err
		}
		if !consumed {
			// lost the race against another exchange of the same code
			return authcode.ErrNotFound()
		}

		s = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

// ============================================================================
// Bearer validation
// ============================================================================

// AuthenticateBearer resolves an access token. Unknown tokens fail with
// iam.ErrTokenNotFound; expired ones delete the session and fail with
// iam.ErrTokenExpired. A valid token refreshes last_usage_date.
func (m *Manager) AuthenticateBearer(ctx context.Context, accessToken string) (*session.AccountSession, error) {
	now := m.now()

	s, err := m.sessions.FindByAccessToken(ctx, accessToken)
	if err != nil {
		if errx.IsCode(err, session.CodeSessionNotFound) {
			return nil, iam.ErrTokenNotFound()
		}
		return nil, err
	}

	if s.AccessExpired(m.ttl.Access, now) {
		if err := m.sessions.Delete(ctx, s.ID); err != nil {
			return nil, err
		}
		return nil, iam.ErrTokenExpired()
	}

	if err := m.sessions.TouchLastUsage(ctx, s.ID, now); err != nil {
		return nil, err
	}
	s.LastUsageDate = now

	return s, nil
}

// ============================================================================
// Revocation
// ============================================================================

// SignOut deletes one session. Idempotent.
func (m *Manager) SignOut(ctx context.Context, id kernel.SessionID) error {
	return m.sessions.Delete(ctx, id)
}

// SignOutAll deletes every session of the account. Idempotent.
func (m *Manager) SignOutAll(ctx context.Context, accountID kernel.AccountID) error {
	return m.sessions.DeleteByAccount(ctx, accountID)
}

// ListMine returns the sessions of accountID without their tokens,
// flagging the one identified by current.
func (m *Manager) ListMine(ctx context.Context, accountID kernel.AccountID, current kernel.SessionID) ([]session.Info, error) {
	sessions, err := m.sessions.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	infos := make([]session.Info, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.ToInfo(current))
	}
	return infos, nil
}

// ============================================================================
// Helpers
// ============================================================================

func (m *Manager) validateClient(ctx context.Context, clientID, clientSecret *string) error {
	if err := m.clients.Validate(ctx, clientID, clientSecret); err != nil {
		if errx.IsCode(err, client.CodeInvalidCredentials) {
			return session.ErrInvalidGrant()
		}
		return err
	}
	return nil
}

// open allocates a unique id and token pair and persists a session whose four
// timestamps all equal now.
func (m *Manager) open(ctx context.Context, accountID kernel.AccountID, now time.Time) (*session.AccountSession, error) {
	id, err := m.tokens.UniqueID(ctx, m.sessions.ExistsByID)
	if err != nil {
		return nil, err
	}

	access, refresh, err := m.tokens.UniquePair(ctx, m.sessions.ExistsByToken)
	if err != nil {
		return nil, err
	}

	s := session.AccountSession{
		ID:                       kernel.NewSessionID(id),
		AccountID:                accountID,
		AccessToken:              access,
		RefreshToken:             refresh,
		StartDate:                now,
		AccessTokenCreationDate:  now,
		RefreshTokenCreationDate: now,
		LastUsageDate:            now,
	}
	if err := m.sessions.Create(ctx, s); err != nil {
		return nil, err
	}

	logx.WithFields(logx.Fields{
		"account_id": accountID,
		"session_id": s.ID,
	}).Debug("Session opened")

	return &s, nil
}
