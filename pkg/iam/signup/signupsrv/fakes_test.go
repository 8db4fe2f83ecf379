package signupsrv_test

import (
	"context"
	"maps"
	"sync"

	"github.com/Abraxas-365/keygate/pkg/iam/account"
	"github.com/Abraxas-365/keygate/pkg/iam/invite"
	"github.com/Abraxas-365/keygate/pkg/kernel"
)

// world is an in-memory store whose transactions roll back on error.
type world struct {
	txMu sync.Mutex
	mu   sync.Mutex

	accounts    map[kernel.AccountID]account.Account
	profiles    map[string]account.PublicProfile
	recovery    map[string]account.RecoveryInfo
	roles       map[string]account.Role
	assignments map[string]account.RoleAssignment
	invites     map[string]invite.Invite

	failProfileCreate error
	failInviteDelete  error
}

func newWorld() *world {
	return &world{
		accounts:    map[kernel.AccountID]account.Account{},
		profiles:    map[string]account.PublicProfile{},
		recovery:    map[string]account.RecoveryInfo{},
		roles:       map[string]account.Role{"r-user": {ID: "r-user", Name: account.RoleUser}},
		assignments: map[string]account.RoleAssignment{},
		invites:     map[string]invite.Invite{},
	}
}

func (w *world) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	w.txMu.Lock()
	defer w.txMu.Unlock()

	w.mu.Lock()
	accounts, profiles, recovery := maps.Clone(w.accounts), maps.Clone(w.profiles), maps.Clone(w.recovery)
	assignments, invites := maps.Clone(w.assignments), maps.Clone(w.invites)
	w.mu.Unlock()

	if err := fn(ctx); err != nil {
		w.mu.Lock()
		w.accounts, w.profiles, w.recovery = accounts, profiles, recovery
		w.assignments, w.invites = assignments, invites
		w.mu.Unlock()
		return err
	}
	return nil
}

// ----------------------------------------------------------------------------
// accounts
// ----------------------------------------------------------------------------

type accounts struct{ *world }

func (r accounts) Create(_ context.Context, acc account.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Login == acc.Login {
			return account.ErrAlreadyExists()
		}
	}
	r.accounts[acc.ID] = acc
	return nil
}

func (r accounts) FindByID(_ context.Context, id kernel.AccountID) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound()
	}
	return &acc, nil
}

func (r accounts) FindByLogin(_ context.Context, login string) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Login == login {
			return &a, nil
		}
	}
	return nil, account.ErrAccountNotFound()
}

func (r accounts) ExistsByID(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.accounts[kernel.AccountID(id)]
	return ok, nil
}

func (r accounts) ExistsByLogin(ctx context.Context, login string) (bool, error) {
	_, err := r.FindByLogin(ctx, login)
	return err == nil, nil
}

func (r accounts) UpdateLogin(context.Context, kernel.AccountID, string) error { return nil }
func (r accounts) UpdatePassword(context.Context, kernel.AccountID, string, string) error {
	return nil
}

// ----------------------------------------------------------------------------
// profiles and recovery
// ----------------------------------------------------------------------------

type profiles struct{ *world }

func (r profiles) Create(_ context.Context, p account.PublicProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failProfileCreate != nil {
		return r.failProfileCreate
	}
	r.profiles[p.ID] = p
	return nil
}

func (r profiles) FindByAccountID(_ context.Context, id kernel.AccountID) (*account.PublicProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.AccountID == id {
			return &p, nil
		}
	}
	return nil, account.ErrProfileNotFound()
}

func (r profiles) ExistsByID(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.profiles[id]
	return ok, nil
}

func (r profiles) ExistsByNickname(_ context.Context, nickname string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.Nickname == nickname {
			return true, nil
		}
	}
	return false, nil
}

func (r profiles) UpdateNickname(context.Context, kernel.AccountID, string) error { return nil }
func (r profiles) UpdateInfo(context.Context, kernel.AccountID, string) error     { return nil }

type recovery struct{ *world }

func (r recovery) Create(_ context.Context, info account.RecoveryInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recovery[info.ID] = info
	return nil
}

func (r recovery) FindByAccountID(_ context.Context, id kernel.AccountID) (*account.RecoveryInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, info := range r.recovery {
		if info.AccountID == id {
			return &info, nil
		}
	}
	return nil, account.ErrRecoveryNotFound()
}

func (r recovery) ExistsByID(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.recovery[id]
	return ok, nil
}

func (r recovery) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, info := range r.recovery {
		if info.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r recovery) UpdateEmail(context.Context, kernel.AccountID, string) error { return nil }

// ----------------------------------------------------------------------------
// roles and assignments
// ----------------------------------------------------------------------------

type roles struct{ *world }

func (r roles) Create(_ context.Context, role account.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[role.ID] = role
	return nil
}

func (r roles) FindByID(_ context.Context, id string) (*account.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[id]
	if !ok {
		return nil, account.ErrRoleNotFound()
	}
	return &role, nil
}

func (r roles) FindByName(_ context.Context, name string) (*account.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, role := range r.roles {
		if role.Name == name {
			return &role, nil
		}
	}
	return nil, account.ErrRoleNotFound()
}

func (r roles) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, err := r.FindByID(ctx, id)
	return err == nil, nil
}

func (r roles) ExistsByName(ctx context.Context, name string) (bool, error) {
	_, err := r.FindByName(ctx, name)
	return err == nil, nil
}

type assignments struct{ *world }

func (r assignments) Create(_ context.Context, a account.RoleAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assignments[a.ID] = a
	return nil
}

func (r assignments) FindByAccountID(_ context.Context, id kernel.AccountID) (*account.RoleAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.assignments {
		if a.AccountID == id {
			return &a, nil
		}
	}
	return nil, account.ErrAssignmentNotFound()
}

func (r assignments) FindByRoleID(_ context.Context, roleID string) ([]*account.RoleAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*account.RoleAssignment
	for _, a := range r.assignments {
		if a.RoleID == roleID {
			out = append(out, &a)
		}
	}
	return out, nil
}

func (r assignments) ExistsByID(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.assignments[id]
	return ok, nil
}

func (r assignments) DeleteByAccountID(_ context.Context, id kernel.AccountID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, a := range r.assignments {
		if a.AccountID == id {
			delete(r.assignments, key)
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// invites
// ----------------------------------------------------------------------------

type invites struct{ *world }

func (r invites) FindByID(_ context.Context, id string) (*invite.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invites[id]
	if !ok {
		return nil, invite.ErrInviteNotFound()
	}
	return &inv, nil
}

func (r invites) FindByCode(_ context.Context, code string) (*invite.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invites {
		if inv.InviteCode == code {
			return &inv, nil
		}
	}
	return nil, invite.ErrInviteNotFound()
}

func (r invites) List(context.Context, kernel.PaginationOptions) (*kernel.Paginated[invite.Invite], error) {
	return nil, nil
}

func (r invites) Save(_ context.Context, inv invite.Invite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invites[inv.ID] = inv
	return nil
}

func (r invites) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failInviteDelete != nil {
		return r.failInviteDelete
	}
	if _, ok := r.invites[id]; !ok {
		return invite.ErrInviteNotFound()
	}
	delete(r.invites, id)
	return nil
}

func (r invites) ExistsByID(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.invites[id]
	return ok, nil
}

func (r invites) ExistsByCode(ctx context.Context, code string) (bool, error) {
	_, err := r.FindByCode(ctx, code)
	return err == nil, nil
}
