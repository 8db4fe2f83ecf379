package accountsrv_test

import (
	"context"
	"strings"
	"testing"

	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/iam"
	"github.com/Abraxas-365/keygate/pkg/iam/account"
	"github.com/Abraxas-365/keygate/pkg/iam/account/accountsrv"
	"github.com/Abraxas-365/keygate/pkg/iam/authz"
	"github.com/Abraxas-365/keygate/pkg/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memProfiles map[kernel.AccountID]*account.PublicProfile

func (m memProfiles) Create(_ context.Context, p account.PublicProfile) error {
	m[p.AccountID] = &p
	return nil
}
func (m memProfiles) FindByAccountID(_ context.Context, id kernel.AccountID) (*account.PublicProfile, error) {
	p, ok := m[id]
	if !ok {
		return nil, account.ErrProfileNotFound()
	}
	copied := *p
	return &copied, nil
}
func (m memProfiles) ExistsByID(context.Context, string) (bool, error)       { return false, nil }
func (m memProfiles) ExistsByNickname(context.Context, string) (bool, error) { return false, nil }
func (m memProfiles) UpdateNickname(context.Context, kernel.AccountID, string) error {
	return nil
}
func (m memProfiles) UpdateInfo(_ context.Context, id kernel.AccountID, info string) error {
	p, ok := m[id]
	if !ok {
		return account.ErrProfileNotFound()
	}
	p.Info = info
	return nil
}

type assignments map[kernel.AccountID]string

func (a assignments) Create(context.Context, account.RoleAssignment) error { return nil }
func (a assignments) FindByAccountID(_ context.Context, id kernel.AccountID) (*account.RoleAssignment, error) {
	roleID, ok := a[id]
	if !ok {
		return nil, account.ErrAssignmentNotFound()
	}
	return &account.RoleAssignment{AccountID: id, RoleID: roleID}, nil
}
func (a assignments) FindByRoleID(context.Context, string) ([]*account.RoleAssignment, error) {
	return nil, nil
}
func (a assignments) ExistsByID(context.Context, string) (bool, error)          { return false, nil }
func (a assignments) DeleteByAccountID(context.Context, kernel.AccountID) error { return nil }

type roles map[string]string

func (r roles) Create(context.Context, account.Role) error { return nil }
func (r roles) FindByID(_ context.Context, id string) (*account.Role, error) {
	name, ok := r[id]
	if !ok {
		return nil, account.ErrRoleNotFound()
	}
	return &account.Role{ID: id, Name: name}, nil
}
func (r roles) FindByName(context.Context, string) (*account.Role, error) { return nil, nil }
func (r roles) ExistsByID(context.Context, string) (bool, error)         { return false, nil }
func (r roles) ExistsByName(context.Context, string) (bool, error)       { return false, nil }

func newService() (*accountsrv.ProfileService, memProfiles) {
	profiles := memProfiles{
		"alice": {ID: "p-alice", AccountID: "alice", Nickname: "Alice"},
		"bob":   {ID: "p-bob", AccountID: "bob", Nickname: "Bob"},
	}
	engine := authz.NewEngine(
		assignments{"alice": "r-user", "bob": "r-user", "mod": "r-mod"},
		roles{"r-user": account.RoleUser, "r-mod": account.RoleModerator},
	)
	return accountsrv.NewProfileService(profiles, engine), profiles
}

func TestOwnerUpdatesOwnInfo(t *testing.T) {
	svc, profiles := newService()

	profile, err := svc.UpdateInfo(context.Background(), "alice", "alice", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", profile.Info)
	assert.Equal(t, "hello", profiles["alice"].Info)
}

func TestOtherAccountCannotUpdateInfo(t *testing.T) {
	svc, profiles := newService()

	_, err := svc.UpdateInfo(context.Background(), "bob", "alice", "defaced")
	assert.True(t, errx.IsCode(err, iam.CodeAccessDenied))
	assert.Empty(t, profiles["alice"].Info)
}

func TestModeratorUpdatesAnyInfo(t *testing.T) {
	svc, _ := newService()

	profile, err := svc.UpdateInfo(context.Background(), "mod", "bob", "cleaned up")
	require.NoError(t, err)
	assert.Equal(t, "cleaned up", profile.Info)
}

func TestUnassignedAccountIsDenied(t *testing.T) {
	svc, _ := newService()

	// no role assignment: even the owner is refused
	_, err := svc.UpdateInfo(context.Background(), "ghost", "alice", "x")
	assert.True(t, errx.IsCode(err, iam.CodeAccessDenied))
}

func TestInfoLengthIsBounded(t *testing.T) {
	svc, _ := newService()

	_, err := svc.UpdateInfo(context.Background(), "alice", "alice", strings.Repeat("é", accountsrv.MaxInfoLength+1))
	assert.True(t, errx.IsCode(err, account.CodeInvalidInfo))

	_, err = svc.UpdateInfo(context.Background(), "alice", "alice", strings.Repeat("é", accountsrv.MaxInfoLength))
	assert.NoError(t, err)
}

func TestNicknameAndProfileLookup(t *testing.T) {
	svc, _ := newService()

	nick, err := svc.Nickname(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "Bob", nick)

	_, err = svc.GetProfile(context.Background(), "missing")
	assert.True(t, errx.IsCode(err, account.CodeProfileNotFound))
}
