package invitesrv_test

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/iam"
	"github.com/Abraxas-365/keygate/pkg/iam/account"
	"github.com/Abraxas-365/keygate/pkg/iam/authz"
	"github.com/Abraxas-365/keygate/pkg/iam/invite"
	"github.com/Abraxas-365/keygate/pkg/iam/invite/invitesrv"
	"github.com/Abraxas-365/keygate/pkg/iam/token"
	"github.com/Abraxas-365/keygate/pkg/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memInvites struct {
	mu   sync.Mutex
	rows map[string]invite.Invite
}

func newMemInvites() *memInvites { return &memInvites{rows: map[string]invite.Invite{}} }

func (m *memInvites) FindByID(_ context.Context, id string) (*invite.Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.rows[id]
	if !ok {
		return nil, invite.ErrInviteNotFound()
	}
	return &inv, nil
}

func (m *memInvites) FindByCode(_ context.Context, code string) (*invite.Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.rows {
		if inv.InviteCode == code {
			found := inv
			return &found, nil
		}
	}
	return nil, invite.ErrInviteNotFound()
}

func (m *memInvites) List(_ context.Context, opts kernel.PaginationOptions) (*kernel.Paginated[invite.Invite], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page, size, offset := opts.Normalize()
	all := make([]invite.Invite, 0, len(m.rows))
	for _, inv := range m.rows {
		all = append(all, inv)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	end := min(offset+size, len(all))
	items := []invite.Invite{}
	if offset < len(all) {
		items = all[offset:end]
	}
	result := kernel.NewPaginated(items, page, size, len(all))
	return &result, nil
}

func (m *memInvites) Save(_ context.Context, inv invite.Invite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[inv.ID] = inv
	return nil
}

func (m *memInvites) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return invite.ErrInviteNotFound()
	}
	delete(m.rows, id)
	return nil
}

func (m *memInvites) ExistsByID(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[id]
	return ok, nil
}

func (m *memInvites) ExistsByCode(ctx context.Context, code string) (bool, error) {
	_, err := m.FindByCode(ctx, code)
	return err == nil, nil
}

type assignments map[kernel.AccountID]string

func (a assignments) Create(context.Context, account.RoleAssignment) error { return nil }
func (a assignments) FindByAccountID(_ context.Context, id kernel.AccountID) (*account.RoleAssignment, error) {
	roleID, ok := a[id]
	if !ok {
		return nil, account.ErrAssignmentNotFound()
	}
	return &account.RoleAssignment{ID: "ra-" + string(id), AccountID: id, RoleID: roleID}, nil
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

func newService(t *testing.T) (*invitesrv.InviteService, *memInvites) {
	t.Helper()
	repo := newMemInvites()
	engine := authz.NewEngine(
		assignments{"admin": "r-admin", "mod": "r-mod", "alice": "r-user"},
		roles{"r-admin": account.RoleAdministrator, "r-mod": account.RoleModerator, "r-user": account.RoleUser},
	)
	return invitesrv.NewInviteService(repo, engine, token.NewGenerator()), repo
}

func TestCreateInviteGeneratesCodeAndDefaultsToOneUse(t *testing.T) {
	svc, repo := newService(t)

	inv, err := svc.CreateInvite(context.Background(), "admin", invite.CreateInviteRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, inv.InviteCode)
	assert.NotEmpty(t, inv.ID)
	assert.True(t, inv.OneUse)

	stored, err := repo.FindByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, *inv, *stored)
}

func TestCreateInviteKeepsExplicitValues(t *testing.T) {
	svc, _ := newService(t)
	reusable := false

	inv, err := svc.CreateInvite(context.Background(), "mod", invite.CreateInviteRequest{InviteCode: "spring-batch", OneUse: &reusable})
	require.NoError(t, err)
	assert.Equal(t, "spring-batch", inv.InviteCode)
	assert.False(t, inv.OneUse)
}

func TestCreateInviteRejectsTakenCode(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateInvite(ctx, "admin", invite.CreateInviteRequest{InviteCode: "dup"})
	require.NoError(t, err)

	_, err = svc.CreateInvite(ctx, "admin", invite.CreateInviteRequest{InviteCode: "dup"})
	assert.True(t, errx.IsCode(err, invite.CodeInviteAlreadyExists))
}

func TestOrdinaryAccountsAreDenied(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, invite.Invite{ID: "i-1", InviteCode: "code", OneUse: true}))

	_, err := svc.CreateInvite(ctx, "alice", invite.CreateInviteRequest{})
	assert.True(t, errx.IsCode(err, iam.CodeAccessDenied))

	_, err = svc.GetInvite(ctx, "alice", "i-1")
	assert.True(t, errx.IsCode(err, iam.CodeAccessDenied))

	// unknown ids answer the same way
	_, err = svc.GetInvite(ctx, "alice", "missing")
	assert.True(t, errx.IsCode(err, iam.CodeAccessDenied))

	_, err = svc.ListInvites(ctx, "nobody", kernel.PaginationOptions{})
	assert.True(t, errx.IsCode(err, iam.CodeAccessDenied))

	err = svc.DeleteInvite(ctx, "alice", "i-1")
	assert.True(t, errx.IsCode(err, iam.CodeAccessDenied))

	exists, _ := repo.ExistsByID(ctx, "i-1")
	assert.True(t, exists)
}

func TestUpdateInvite(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, invite.Invite{ID: "i-1", InviteCode: "old", OneUse: true}))

	empty := ""
	_, err := svc.UpdateInvite(ctx, "admin", "i-1", invite.UpdateInviteRequest{InviteCode: &empty})
	assert.True(t, errx.IsCode(err, invite.CodeInvalidInviteCode))

	code, reusable := "new", false
	inv, err := svc.UpdateInvite(ctx, "admin", "i-1", invite.UpdateInviteRequest{InviteCode: &code, OneUse: &reusable})
	require.NoError(t, err)
	assert.Equal(t, invite.Invite{ID: "i-1", InviteCode: "new", OneUse: false}, *inv)

	_, err = svc.UpdateInvite(ctx, "admin", "missing", invite.UpdateInviteRequest{})
	assert.True(t, errx.IsCode(err, invite.CodeInviteNotFound))
}

func TestDeleteAndList(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, invite.Invite{ID: "i-1", InviteCode: "a"}))
	require.NoError(t, repo.Save(ctx, invite.Invite{ID: "i-2", InviteCode: "b"}))

	require.NoError(t, svc.DeleteInvite(ctx, "mod", "i-1"))
	assert.True(t, errx.IsCode(svc.DeleteInvite(ctx, "mod", "i-1"), invite.CodeInviteNotFound))

	page, err := svc.ListInvites(ctx, "admin", kernel.PaginationOptions{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "i-2", page.Items[0].ID)
	assert.Equal(t, 1, page.Page.Total)
}

func TestMintSkipsAuthorization(t *testing.T) {
	svc, _ := newService(t)

	inv, err := svc.Mint(context.Background(), "", false)
	require.NoError(t, err)
	assert.NotEmpty(t, inv.InviteCode)
	assert.False(t, inv.OneUse)
}
