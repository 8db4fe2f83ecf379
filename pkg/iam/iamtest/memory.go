// Package iamtest provides an in-memory implementation of every IAM
// repository for service and handler tests.
package iamtest

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/iam/account"
	"github.com/Abraxas-365/keygate/pkg/iam/authcode"
	"github.com/Abraxas-365/keygate/pkg/iam/client"
	"github.com/Abraxas-365/keygate/pkg/iam/invite"
	"github.com/Abraxas-365/keygate/pkg/iam/session"
	"github.com/Abraxas-365/keygate/pkg/kernel"
)

// Store holds every table in memory. WithinTx snapshots the tables and
// restores them when fn fails.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	accounts    map[kernel.AccountID]account.Account
	profiles    map[string]account.PublicProfile
	recovery    map[string]account.RecoveryInfo
	roles       map[string]account.Role
	assignments map[string]account.RoleAssignment
	invites     map[string]invite.Invite
	clients     map[string]client.Client
	sessions    map[kernel.SessionID]session.AccountSession
	codes       map[string]authcode.AuthorizationCode

	// Fail, when set, is returned by every read and write.
	Fail error
}

func NewStore() *Store {
	return &Store{
		accounts:    map[kernel.AccountID]account.Account{},
		profiles:    map[string]account.PublicProfile{},
		recovery:    map[string]account.RecoveryInfo{},
		roles:       map[string]account.Role{},
		assignments: map[string]account.RoleAssignment{},
		invites:     map[string]invite.Invite{},
		clients:     map[string]client.Client{},
		sessions:    map[kernel.SessionID]session.AccountSession{},
		codes:       map[string]authcode.AuthorizationCode{},
	}
}

// SeedRoles inserts the default roles with ids "r-<name>".
func (s *Store) SeedRoles() *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range account.DefaultRoles {
		r.ID = "r-" + r.Name
		s.roles[r.ID] = r
	}
	return s
}

type txKey struct{}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.restore(snapshot)
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) clone() *Store {
	return &Store{
		accounts:    maps.Clone(s.accounts),
		profiles:    maps.Clone(s.profiles),
		recovery:    maps.Clone(s.recovery),
		roles:       maps.Clone(s.roles),
		assignments: maps.Clone(s.assignments),
		invites:     maps.Clone(s.invites),
		clients:     maps.Clone(s.clients),
		sessions:    maps.Clone(s.sessions),
		codes:       maps.Clone(s.codes),
	}
}

func (s *Store) restore(from *Store) {
	s.accounts, s.profiles, s.recovery = from.accounts, from.profiles, from.recovery
	s.roles, s.assignments, s.invites = from.roles, from.assignments, from.invites
	s.clients, s.sessions, s.codes = from.clients, from.sessions, from.codes
}

// Counts returns the number of rows per table, for assertions.
func (s *Store) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]int{
		"accounts":    len(s.accounts),
		"profiles":    len(s.profiles),
		"recovery":    len(s.recovery),
		"roles":       len(s.roles),
		"assignments": len(s.assignments),
		"invites":     len(s.invites),
		"clients":     len(s.clients),
		"sessions":    len(s.sessions),
		"codes":       len(s.codes),
	}
}

func (s *Store) Accounts() account.Repository                  { return accounts{s} }
func (s *Store) Profiles() account.ProfileRepository           { return profiles{s} }
func (s *Store) Recovery() account.RecoveryRepository          { return recovery{s} }
func (s *Store) Roles() account.RoleRepository                 { return roles{s} }
func (s *Store) Assignments() account.RoleAssignmentRepository { return assignments{s} }
func (s *Store) Invites() invite.Repository                    { return invites{s} }
func (s *Store) Clients() client.Repository                    { return clients{s} }
func (s *Store) Sessions() session.Repository                  { return sessions{s} }
func (s *Store) Codes() authcode.Repository                    { return codes{s} }

// lock takes the data lock and reports the injected failure, if any.
func (s *Store) lock() error {
	s.mu.Lock()
	if s.Fail != nil {
		s.mu.Unlock()
		return s.Fail
	}
	return nil
}

// ----------------------------------------------------------------------------
// accounts
// ----------------------------------------------------------------------------

type accounts struct{ s *Store }

func (r accounts) Create(_ context.Context, acc account.Account) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	for _, a := range r.s.accounts {
		if a.Login == acc.Login || a.ID == acc.ID {
			return account.ErrAlreadyExists()
		}
	}
	r.s.accounts[acc.ID] = acc
	return nil
}

func (r accounts) FindByID(_ context.Context, id kernel.AccountID) (*account.Account, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	acc, ok := r.s.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound()
	}
	return &acc, nil
}

func (r accounts) FindByLogin(_ context.Context, login string) (*account.Account, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	for _, a := range r.s.accounts {
		if a.Login == login {
			return &a, nil
		}
	}
	return nil, account.ErrAccountNotFound()
}

func (r accounts) ExistsByID(ctx context.Context, id string) (bool, error) {
	return exists(r.FindByID(ctx, kernel.AccountID(id)))
}

func (r accounts) ExistsByLogin(ctx context.Context, login string) (bool, error) {
	return exists(r.FindByLogin(ctx, login))
}

func (r accounts) UpdateLogin(_ context.Context, id kernel.AccountID, login string) error {
	return r.update(id, func(a *account.Account) { a.Login = login })
}

func (r accounts) UpdatePassword(_ context.Context, id kernel.AccountID, hash, salt string) error {
	return r.update(id, func(a *account.Account) { a.PasswordHash, a.PasswordSalt = hash, salt })
}

func (r accounts) update(id kernel.AccountID, fn func(*account.Account)) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	acc, ok := r.s.accounts[id]
	if !ok {
		return account.ErrAccountNotFound()
	}
	fn(&acc)
	r.s.accounts[id] = acc
	return nil
}

// ----------------------------------------------------------------------------
// profiles
// ----------------------------------------------------------------------------

type profiles struct{ s *Store }

func (r profiles) Create(_ context.Context, p account.PublicProfile) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	for _, existing := range r.s.profiles {
		if existing.Nickname == p.Nickname {
			return account.ErrAlreadyExists()
		}
	}
	r.s.profiles[p.ID] = p
	return nil
}

func (r profiles) FindByAccountID(_ context.Context, id kernel.AccountID) (*account.PublicProfile, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	for _, p := range r.s.profiles {
		if p.AccountID == id {
			return &p, nil
		}
	}
	return nil, account.ErrProfileNotFound()
}

func (r profiles) ExistsByID(_ context.Context, id string) (bool, error) {
	if err := r.s.lock(); err != nil {
		return false, err
	}
	defer r.s.mu.Unlock()
	_, ok := r.s.profiles[id]
	return ok, nil
}

func (r profiles) ExistsByNickname(_ context.Context, nickname string) (bool, error) {
	if err := r.s.lock(); err != nil {
		return false, err
	}
	defer r.s.mu.Unlock()
	for _, p := range r.s.profiles {
		if p.Nickname == nickname {
			return true, nil
		}
	}
	return false, nil
}

func (r profiles) UpdateNickname(_ context.Context, id kernel.AccountID, nickname string) error {
	return r.update(id, func(p *account.PublicProfile) { p.Nickname = nickname })
}

func (r profiles) UpdateInfo(_ context.Context, id kernel.AccountID, info string) error {
	return r.update(id, func(p *account.PublicProfile) { p.Info = info })
}

func (r profiles) update(id kernel.AccountID, fn func(*account.PublicProfile)) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	for key, p := range r.s.profiles {
		if p.AccountID == id {
			fn(&p)
			r.s.profiles[key] = p
			return nil
		}
	}
	return account.ErrProfileNotFound()
}

// ----------------------------------------------------------------------------
// recovery
// ----------------------------------------------------------------------------

type recovery struct{ s *Store }

func (r recovery) Create(_ context.Context, info account.RecoveryInfo) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	r.s.recovery[info.ID] = info
	return nil
}

func (r recovery) FindByAccountID(_ context.Context, id kernel.AccountID) (*account.RecoveryInfo, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	for _, info := range r.s.recovery {
		if info.AccountID == id {
			return &info, nil
		}
	}
	return nil, account.ErrRecoveryNotFound()
}

func (r recovery) ExistsByID(_ context.Context, id string) (bool, error) {
	if err := r.s.lock(); err != nil {
		return false, err
	}
	defer r.s.mu.Unlock()
	_, ok := r.s.recovery[id]
	return ok, nil
}

func (r recovery) ExistsByEmail(_ context.Context, email string) (bool, error) {
	if err := r.s.lock(); err != nil {
		return false, err
	}
	defer r.s.mu.Unlock()
	for _, info := range r.s.recovery {
		if info.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r recovery) UpdateEmail(_ context.Context, id kernel.AccountID, email string) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	for key, info := range r.s.recovery {
		if info.AccountID == id {
			info.Email = email
			r.s.recovery[key] = info
			return nil
		}
	}
	return account.ErrRecoveryNotFound()
}

// ----------------------------------------------------------------------------
// roles and assignments
// ----------------------------------------------------------------------------

type roles struct{ s *Store }

func (r roles) Create(_ context.Context, role account.Role) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	r.s.roles[role.ID] = role
	return nil
}

func (r roles) FindByID(_ context.Context, id string) (*account.Role, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	role, ok := r.s.roles[id]
	if !ok {
		return nil, account.ErrRoleNotFound()
	}
	return &role, nil
}

func (r roles) FindByName(_ context.Context, name string) (*account.Role, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	for _, role := range r.s.roles {
		if role.Name == name {
			return &role, nil
		}
	}
	return nil, account.ErrRoleNotFound()
}

func (r roles) ExistsByID(ctx context.Context, id string) (bool, error) {
	return exists(r.FindByID(ctx, id))
}

func (r roles) ExistsByName(ctx context.Context, name string) (bool, error) {
	return exists(r.FindByName(ctx, name))
}

type assignments struct{ s *Store }

func (r assignments) Create(_ context.Context, a account.RoleAssignment) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	r.s.assignments[a.ID] = a
	return nil
}

func (r assignments) FindByAccountID(_ context.Context, id kernel.AccountID) (*account.RoleAssignment, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	for _, a := range r.s.assignments {
		if a.AccountID == id {
			return &a, nil
		}
	}
	return nil, account.ErrAssignmentNotFound()
}

func (r assignments) FindByRoleID(_ context.Context, roleID string) ([]*account.RoleAssignment, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	out := []*account.RoleAssignment{}
	for _, a := range r.s.assignments {
		if a.RoleID == roleID {
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r assignments) ExistsByID(_ context.Context, id string) (bool, error) {
	if err := r.s.lock(); err != nil {
		return false, err
	}
	defer r.s.mu.Unlock()
	_, ok := r.s.assignments[id]
	return ok, nil
}

func (r assignments) DeleteByAccountID(_ context.Context, id kernel.AccountID) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	for key, a := range r.s.assignments {
		if a.AccountID == id {
			delete(r.s.assignments, key)
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// invites
// ----------------------------------------------------------------------------

type invites struct{ s *Store }

func (r invites) FindByID(_ context.Context, id string) (*invite.Invite, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	inv, ok := r.s.invites[id]
	if !ok {
		return nil, invite.ErrInviteNotFound()
	}
	return &inv, nil
}

func (r invites) FindByCode(_ context.Context, code string) (*invite.Invite, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	for _, inv := range r.s.invites {
		if inv.InviteCode == code {
			return &inv, nil
		}
	}
	return nil, invite.ErrInviteNotFound()
}

func (r invites) List(_ context.Context, opts kernel.PaginationOptions) (*kernel.Paginated[invite.Invite], error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	page, size, offset := opts.Normalize()
	all := make([]invite.Invite, 0, len(r.s.invites))
	for _, inv := range r.s.invites {
		all = append(all, inv)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	items := []invite.Invite{}
	if offset < len(all) {
		items = all[offset:min(offset+size, len(all))]
	}
	result := kernel.NewPaginated(items, page, size, len(all))
	return &result, nil
}

func (r invites) Save(_ context.Context, inv invite.Invite) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	r.s.invites[inv.ID] = inv
	return nil
}

func (r invites) Delete(_ context.Context, id string) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	if _, ok := r.s.invites[id]; !ok {
		return invite.ErrInviteNotFound()
	}
	delete(r.s.invites, id)
	return nil
}

func (r invites) ExistsByID(ctx context.Context, id string) (bool, error) {
	return exists(r.FindByID(ctx, id))
}

func (r invites) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return exists(r.FindByCode(ctx, code))
}

// ----------------------------------------------------------------------------
// clients
// ----------------------------------------------------------------------------

type clients struct{ s *Store }

func (r clients) Create(_ context.Context, c client.Client) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	r.s.clients[c.ID] = c
	return nil
}

func (r clients) FindByID(_ context.Context, id string) (*client.Client, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	c, ok := r.s.clients[id]
	if !ok {
		return nil, client.ErrClientNotFound()
	}
	return &c, nil
}

func (r clients) FindByName(_ context.Context, name kernel.ClientName) (*client.Client, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	for _, c := range r.s.clients {
		if c.ClientName == name {
			return &c, nil
		}
	}
	return nil, client.ErrClientNotFound()
}

func (r clients) ExistsByID(ctx context.Context, id string) (bool, error) {
	return exists(r.FindByID(ctx, id))
}

func (r clients) ExistsByName(ctx context.Context, name kernel.ClientName) (bool, error) {
	return exists(r.FindByName(ctx, name))
}

// ----------------------------------------------------------------------------
// sessions
// ----------------------------------------------------------------------------

type sessions struct{ s *Store }

func (r sessions) Create(_ context.Context, sess session.AccountSession) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	r.s.sessions[sess.ID] = sess
	return nil
}

func (r sessions) find(match func(session.AccountSession) bool) (*session.AccountSession, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	for _, sess := range r.s.sessions {
		if match(sess) {
			return &sess, nil
		}
	}
	return nil, session.ErrSessionNotFound()
}

func (r sessions) FindByID(_ context.Context, id kernel.SessionID) (*session.AccountSession, error) {
	return r.find(func(s session.AccountSession) bool { return s.ID == id })
}

func (r sessions) FindByAccessToken(_ context.Context, token string) (*session.AccountSession, error) {
	return r.find(func(s session.AccountSession) bool { return s.AccessToken == token })
}

func (r sessions) FindByRefreshToken(_ context.Context, token string) (*session.AccountSession, error) {
	return r.find(func(s session.AccountSession) bool { return s.RefreshToken == token })
}

func (r sessions) ListByAccount(_ context.Context, accountID kernel.AccountID) ([]*session.AccountSession, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	out := []*session.AccountSession{}
	for _, sess := range r.s.sessions {
		if sess.AccountID == accountID {
			out = append(out, &sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUsageDate.After(out[j].LastUsageDate) })
	return out, nil
}

func (r sessions) ExistsByToken(_ context.Context, token string) (bool, error) {
	return exists(r.find(func(s session.AccountSession) bool {
		return s.AccessToken == token || s.RefreshToken == token
	}))
}

func (r sessions) ExistsByID(ctx context.Context, id string) (bool, error) {
	return exists(r.FindByID(ctx, kernel.SessionID(id)))
}

func (r sessions) RotateTokens(_ context.Context, oldRefresh, access, refresh string, at time.Time) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	for id, sess := range r.s.sessions {
		if sess.RefreshToken == oldRefresh {
			sess.AccessToken, sess.RefreshToken = access, refresh
			sess.AccessTokenCreationDate, sess.RefreshTokenCreationDate, sess.LastUsageDate = at, at, at
			r.s.sessions[id] = sess
		}
	}
	return nil
}

func (r sessions) TouchLastUsage(_ context.Context, id kernel.SessionID, at time.Time) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	if sess, ok := r.s.sessions[id]; ok {
		sess.LastUsageDate = at
		r.s.sessions[id] = sess
	}
	return nil
}

func (r sessions) Delete(_ context.Context, id kernel.SessionID) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	delete(r.s.sessions, id)
	return nil
}

func (r sessions) DeleteByAccount(_ context.Context, accountID kernel.AccountID) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	for id, sess := range r.s.sessions {
		if sess.AccountID == accountID {
			delete(r.s.sessions, id)
		}
	}
	return nil
}

func (r sessions) DeleteRefreshExpired(_ context.Context, cutoff time.Time) (int64, error) {
	if err := r.s.lock(); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	var n int64
	for id, sess := range r.s.sessions {
		if !sess.RefreshTokenCreationDate.After(cutoff) {
			delete(r.s.sessions, id)
			n++
		}
	}
	return n, nil
}

// ----------------------------------------------------------------------------
// authorization codes
// ----------------------------------------------------------------------------

type codes struct{ s *Store }

func (r codes) Create(_ context.Context, c authcode.AuthorizationCode) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	r.s.codes[c.ID] = c
	return nil
}

func (r codes) FindByCode(_ context.Context, code string) (*authcode.AuthorizationCode, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	for _, c := range r.s.codes {
		if c.Code == code {
			return &c, nil
		}
	}
	return nil, authcode.ErrNotFound()
}

func (r codes) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return exists(r.FindByCode(ctx, code))
}

func (r codes) ExistsByID(_ context.Context, id string) (bool, error) {
	if err := r.s.lock(); err != nil {
		return false, err
	}
	defer r.s.mu.Unlock()
	_, ok := r.s.codes[id]
	return ok, nil
}

func (r codes) Delete(_ context.Context, id string) (bool, error) {
	if err := r.s.lock(); err != nil {
		return false, err
	}
	defer r.s.mu.Unlock()
	_, ok := r.s.codes[id]
	delete(r.s.codes, id)
	return ok, nil
}

func (r codes) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	if err := r.s.lock(); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	var n int64
	for id, c := range r.s.codes {
		if !c.CreationDate.After(cutoff) {
			delete(r.s.codes, id)
			n++
		}
	}
	return n, nil
}

// exists turns a lookup into an existence check. Not-found errors mean false.
func exists[T any](v *T, err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func isNotFound(err error) bool {
	var e *errx.Error
	return errx.As(err, &e) && e.Type == errx.TypeNotFound
}
