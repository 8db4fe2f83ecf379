package accountapi_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/iam"
	"github.com/Abraxas-365/keygate/pkg/iam/account"
	"github.com/Abraxas-365/keygate/pkg/iam/account/accountapi"
	"github.com/Abraxas-365/keygate/pkg/iam/account/accountsrv"
	"github.com/Abraxas-365/keygate/pkg/iam/authz"
	"github.com/Abraxas-365/keygate/pkg/kernel"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memProfiles map[kernel.AccountID]*account.PublicProfile

func (m memProfiles) Create(context.Context, account.PublicProfile) error { return nil }
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
	m[id].Info = info
	return nil
}

type userRole struct{}

func (userRole) Create(context.Context, account.RoleAssignment) error { return nil }
func (userRole) FindByAccountID(_ context.Context, id kernel.AccountID) (*account.RoleAssignment, error) {
	return &account.RoleAssignment{AccountID: id, RoleID: "r-user"}, nil
}
func (userRole) FindByRoleID(context.Context, string) ([]*account.RoleAssignment, error) {
	return nil, nil
}
func (userRole) ExistsByID(context.Context, string) (bool, error)          { return false, nil }
func (userRole) DeleteByAccountID(context.Context, kernel.AccountID) error { return nil }

type roles struct{}

func (roles) Create(context.Context, account.Role) error { return nil }
func (roles) FindByID(_ context.Context, id string) (*account.Role, error) {
	return &account.Role{ID: id, Name: account.RoleUser}, nil
}
func (roles) FindByName(context.Context, string) (*account.Role, error) { return nil, nil }
func (roles) ExistsByID(context.Context, string) (bool, error)         { return false, nil }
func (roles) ExistsByName(context.Context, string) (bool, error)       { return false, nil }

func newApp() (*fiber.App, memProfiles) {
	profiles := memProfiles{
		"alice": {ID: "p-1", AccountID: "alice", Nickname: "Alice"},
		"bob":   {ID: "p-2", AccountID: "bob", Nickname: "Bob"},
	}
	svc := accountsrv.NewProfileService(profiles, authz.NewEngine(userRole{}, roles{}))

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error { return errx.Respond(c, err) },
	})
	asAlice := func(c *fiber.Ctx) error {
		iam.SetAuth(c, &kernel.AuthContext{AccountID: "alice", SessionID: "s-1"})
		return c.Next()
	}
	accountapi.NewProfileHandlers(svc).RegisterRoutes(app, asAlice)
	return app, profiles
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(raw)
}

func TestMyIDAndNickname(t *testing.T) {
	app, _ := newApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/user/my_id", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", body(t, resp))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/user/my_nickname", nil))
	require.NoError(t, err)
	assert.Equal(t, "Alice", body(t, resp))
}

func TestGetProfile(t *testing.T) {
	app, _ := newApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/profiles/bob", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"OK","body":{"id":"p-2","account_id":"bob","nickname":"Bob","info":""}}`, body(t, resp))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/profiles/nobody", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateInfoOwnership(t *testing.T) {
	app, profiles := newApp()

	patch := func(path string) *http.Response {
		req := httptest.NewRequest(http.MethodPatch, path, strings.NewReader(`{"info":"hi there"}`))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	assert.Equal(t, http.StatusOK, patch("/api/profiles/alice").StatusCode)
	assert.Equal(t, "hi there", profiles["alice"].Info)

	assert.Equal(t, http.StatusForbidden, patch("/api/profiles/bob").StatusCode)
	assert.Empty(t, profiles["bob"].Info)
}
