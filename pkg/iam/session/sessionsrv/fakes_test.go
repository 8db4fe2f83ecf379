package sessionsrv_test

import (
	"context"
	"sync"
	"time"

	"github.com/Abraxas-365/keygate/pkg/iam/account"
	"github.com/Abraxas-365/keygate/pkg/iam/authcode"
	"github.com/Abraxas-365/keygate/pkg/iam/client"
	"github.com/Abraxas-365/keygate/pkg/iam/session"
	"github.com/Abraxas-365/keygate/pkg/kernel"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ----------------------------------------------------------------------------

type memSessions struct {
	mu        sync.Mutex
	rows      map[kernel.SessionID]session.AccountSession
	createErr error
}

func newMemSessions() *memSessions {
	return &memSessions{rows: map[kernel.SessionID]session.AccountSession{}}
}

func (m *memSessions) Create(_ context.Context, s session.AccountSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.rows[s.ID] = s
	return nil
}

func (m *memSessions) find(match func(session.AccountSession) bool) (*session.AccountSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.rows {
		if match(s) {
			return &s, nil
		}
	}
	return nil, session.ErrSessionNotFound()
}

func (m *memSessions) FindByID(_ context.Context, id kernel.SessionID) (*session.AccountSession, error) {
	return m.find(func(s session.AccountSession) bool { return s.ID == id })
}

func (m *memSessions) FindByAccessToken(_ context.Context, token string) (*session.AccountSession, error) {
	return m.find(func(s session.AccountSession) bool { return s.AccessToken == token })
}

func (m *memSessions) FindByRefreshToken(_ context.Context, token string) (*session.AccountSession, error) {
	return m.find(func(s session.AccountSession) bool { return s.RefreshToken == token })
}

func (m *memSessions) ListByAccount(_ context.Context, accountID kernel.AccountID) ([]*session.AccountSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*session.AccountSession
	for _, s := range m.rows {
		if s.AccountID == accountID {
			s := s
			out = append(out, &s)
		}
	}
	return out, nil
}

func (m *memSessions) ExistsByToken(_ context.Context, token string) (bool, error) {
	_, err := m.find(func(s session.AccountSession) bool { return s.AccessToken == token || s.RefreshToken == token })
	return err == nil, nil
}

func (m *memSessions) ExistsByID(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[kernel.SessionID(id)]
	return ok, nil
}

func (m *memSessions) RotateTokens(_ context.Context, oldRefresh, access, refresh string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.rows {
		if s.RefreshToken == oldRefresh {
			s.AccessToken, s.RefreshToken = access, refresh
			s.AccessTokenCreationDate, s.RefreshTokenCreationDate, s.LastUsageDate = at, at, at
			m.rows[id] = s
		}
	}
	return nil
}

func (m *memSessions) TouchLastUsage(_ context.Context, id kernel.SessionID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.rows[id]; ok {
		s.LastUsageDate = at
		m.rows[id] = s
	}
	return nil
}

func (m *memSessions) Delete(_ context.Context, id kernel.SessionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memSessions) DeleteByAccount(_ context.Context, accountID kernel.AccountID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.rows {
		if s.AccountID == accountID {
			delete(m.rows, id)
		}
	}
	return nil
}

func (m *memSessions) DeleteRefreshExpired(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.rows {
		if !s.RefreshTokenCreationDate.After(cutoff) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// ----------------------------------------------------------------------------

type memAccounts struct {
	rows map[string]account.Account
}

func (m *memAccounts) Create(_ context.Context, acc account.Account) error {
	m.rows[acc.Login] = acc
	return nil
}

func (m *memAccounts) FindByID(_ context.Context, id kernel.AccountID) (*account.Account, error) {
	for _, a := range m.rows {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, account.ErrAccountNotFound()
}

func (m *memAccounts) FindByLogin(_ context.Context, login string) (*account.Account, error) {
	if a, ok := m.rows[login]; ok {
		return &a, nil
	}
	return nil, account.ErrAccountNotFound()
}

func (m *memAccounts) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, err := m.FindByID(ctx, kernel.AccountID(id))
	return err == nil, nil
}

func (m *memAccounts) ExistsByLogin(_ context.Context, login string) (bool, error) {
	_, ok := m.rows[login]
	return ok, nil
}

func (m *memAccounts) UpdateLogin(context.Context, kernel.AccountID, string) error { return nil }

func (m *memAccounts) UpdatePassword(context.Context, kernel.AccountID, string, string) error {
	return nil
}

// ----------------------------------------------------------------------------

type memCodes struct {
	mu   sync.Mutex
	rows map[string]authcode.AuthorizationCode
}

func newMemCodes() *memCodes {
	return &memCodes{rows: map[string]authcode.AuthorizationCode{}}
}

func (m *memCodes) Create(_ context.Context, c authcode.AuthorizationCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[c.ID] = c
	return nil
}

func (m *memCodes) FindByCode(_ context.Context, code string) (*authcode.AuthorizationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.rows {
		if c.Code == code {
			return &c, nil
		}
	}
	return nil, authcode.ErrNotFound()
}

func (m *memCodes) ExistsByCode(ctx context.Context, code string) (bool, error) {
	_, err := m.FindByCode(ctx, code)
	return err == nil, nil
}

func (m *memCodes) ExistsByID(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[id]
	return ok, nil
}

func (m *memCodes) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[id]
	delete(m.rows, id)
	return ok, nil
}

func (m *memCodes) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, c := range m.rows {
		if !c.CreationDate.After(cutoff) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

// ----------------------------------------------------------------------------

// clientsByName accepts unknown ids as invalid and checks secrets verbatim.
type clientsByName map[string]string

func (c clientsByName) Validate(_ context.Context, clientID, clientSecret *string) error {
	if clientID == nil {
		return nil
	}
	secret, ok := c[*clientID]
	if !ok {
		return client.ErrInvalidCredentials()
	}
	if secret == "" {
		return nil
	}
	if clientSecret == nil || *clientSecret != secret {
		return client.ErrInvalidCredentials()
	}
	return nil
}
