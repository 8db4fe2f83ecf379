package authapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/iam"
	"github.com/Abraxas-365/keygate/pkg/iam/auth"
	"github.com/Abraxas-365/keygate/pkg/iam/auth/authapi"
	"github.com/Abraxas-365/keygate/pkg/iam/authcode"
	"github.com/Abraxas-365/keygate/pkg/iam/authcode/authcodesrv"
	"github.com/Abraxas-365/keygate/pkg/iam/client/clientsrv"
	"github.com/Abraxas-365/keygate/pkg/iam/credential"
	"github.com/Abraxas-365/keygate/pkg/iam/iamtest"
	"github.com/Abraxas-365/keygate/pkg/iam/invite"
	"github.com/Abraxas-365/keygate/pkg/iam/session"
	"github.com/Abraxas-365/keygate/pkg/iam/session/sessionsrv"
	"github.com/Abraxas-365/keygate/pkg/iam/signup/signupsrv"
	"github.com/Abraxas-365/keygate/pkg/iam/token"
	"github.com/Abraxas-365/keygate/pkg/kernel"
	"github.com/Abraxas-365/keygate/pkg/observability"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testLogin    = "alice"
	testPassword = "correct-horse-battery"
)

type nopAudit struct{}

func (nopAudit) LogSignIn(context.Context, string, kernel.AccountID, bool, string, string)    {}
func (nopAudit) LogSignOut(context.Context, kernel.AccountID, kernel.SessionID, bool, string) {}
func (nopAudit) LogSignUp(context.Context, kernel.AccountID, bool, string)                    {}
func (nopAudit) LogCodeIssued(context.Context, kernel.AccountID, string)                      {}

// countingThrottle blocks once max failures were recorded for a key.
type countingThrottle struct {
	max      int
	failures map[string]int
}

func (t *countingThrottle) Allow(_ context.Context, key string) (bool, error) {
	return t.failures[key] < t.max, nil
}
func (t *countingThrottle) Fail(_ context.Context, key string) error {
	t.failures[key]++
	return nil
}
func (t *countingThrottle) Reset(_ context.Context, key string) error {
	delete(t.failures, key)
	return nil
}

type fixture struct {
	app      *fiber.App
	store    *iamtest.Store
	clock    *iamtest.Clock
	metrics  *observability.Metrics
	throttle *countingThrottle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := iamtest.NewStore().SeedRoles()
	clock := iamtest.NewClock(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
	hasher := credential.NewHasher(credential.DefaultIterations)
	tokens := token.NewGenerator()
	metrics := observability.NewNopMetrics()

	manager := sessionsrv.NewManager(
		store.Sessions(),
		store.Accounts(),
		store.Codes(),
		clientsrv.NewValidator(store.Clients(), hasher),
		hasher,
		tokens,
		store,
		sessionsrv.Lifetimes{Access: time.Hour, Refresh: 24 * time.Hour, AuthCode: time.Minute},
		sessionsrv.WithClock(clock.Now),
	)
	signups := signupsrv.NewService(signupsrv.Repositories{
		Accounts:    store.Accounts(),
		Profiles:    store.Profiles(),
		Recovery:    store.Recovery(),
		Roles:       store.Roles(),
		Assignments: store.Assignments(),
		Invites:     store.Invites(),
	}, hasher, tokens, store)
	codes := authcodesrv.NewService(store.Codes(), tokens, time.Minute).WithClock(clock.Now)

	throttle := &countingThrottle{max: 2, failures: map[string]int{}}
	handlers := authapi.NewAuthHandlers(manager, signups, codes, nopAudit{}, throttle, metrics)

	app := fiber.New(fiber.Config{ErrorHandler: errx.Respond})
	handlers.RegisterRoutes(app, auth.NewAuthMiddleware(manager, metrics).Authenticate())

	require.NoError(t, store.Invites().Save(context.Background(), invite.Invite{ID: "inv-1", InviteCode: "WELCOME", OneUse: false}))

	return &fixture{app: app, store: store, clock: clock, metrics: metrics, throttle: throttle}
}

func (f *fixture) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func (f *fixture) signUp(t *testing.T, body string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/oauth/sign_up", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return f.do(t, req)
}

func (f *fixture) token(t *testing.T, form url.Values) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(t, req)
}

func (f *fixture) bearer(t *testing.T, method, path, accessToken string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	return f.do(t, req)
}

func (f *fixture) registerAlice(t *testing.T) {
	t.Helper()
	resp, raw := f.signUp(t, `{"login":"alice","password":"correct-horse-battery","confirm_password":"correct-horse-battery","nickname":"Alice","email":"alice@example.com","invite_code":"WELCOME"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
}

func (f *fixture) passwordGrant(t *testing.T) iam.AuthResponse {
	t.Helper()
	resp, raw := f.token(t, url.Values{"grant_type": {"password"}, "username": {testLogin}, "password": {testPassword}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var out iam.AuthResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

// ============================================================================
// Sign-up
// ============================================================================

func TestSignUpReturnsAccountID(t *testing.T) {
	f := newFixture(t)

	resp, raw := f.signUp(t, `{"login":"alice","password":"correct-horse-battery","confirm_password":"correct-horse-battery","nickname":"Alice","email":"alice@example.com","invite_code":"WELCOME"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var body struct {
		Status string              `json:"status"`
		Body   auth.SignUpResponse `json:"body"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "OK", body.Status)
	assert.False(t, body.Body.AccountID.IsEmpty())

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SignUpsTotal.WithLabelValues(observability.OutcomeSuccess)))
}

func TestSignUpReportsViolations(t *testing.T) {
	f := newFixture(t)

	resp, raw := f.signUp(t, `{"login":"alice","password":"short","confirm_password":"other","nickname":"Alice","email":"not-an-email","invite_code":"NOPE"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Status string   `json:"status"`
		Body   []string `json:"body"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "ERROR", body.Status)
	assert.Equal(t, "PasswordDoesNotMatch", body.Body[0])
	assert.Contains(t, body.Body, "PasswordIsShort")
	assert.Contains(t, body.Body, "EmailIsInvalid")
	assert.Contains(t, body.Body, "InviteCodeDoesNotExists")
	assert.Equal(t, 0, f.store.Counts()["accounts"])
}

func TestSignUpRejectsMalformedBody(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.signUp(t, `{"login":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ============================================================================
// Token endpoint
// ============================================================================

func TestPasswordGrant(t *testing.T) {
	f := newFixture(t)
	f.registerAlice(t)

	out := f.passwordGrant(t)
	assert.NotEmpty(t, out.AccessToken)
	assert.NotEmpty(t, out.RefreshToken)
	assert.Equal(t, "Bearer", out.TokenType)
	assert.Equal(t, int64(3600), out.ExpiresIn)
	assert.Equal(t, "read+write", out.Scope)
}

func TestTokenParamsFromQueryString(t *testing.T) {
	f := newFixture(t)
	f.registerAlice(t)

	q := url.Values{"grant_type": {"password"}, "username": {testLogin}, "password": {testPassword}}
	resp, raw := f.do(t, httptest.NewRequest(http.MethodPost, "/oauth/token?"+q.Encode(), nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
}

func TestGrantFailuresAreWrongData(t *testing.T) {
	f := newFixture(t)
	f.registerAlice(t)

	cases := map[string]url.Values{
		"bad password":      {"grant_type": {"password"}, "username": {testLogin}, "password": {"nope"}},
		"unknown login":     {"grant_type": {"password"}, "username": {"bob"}, "password": {testPassword}},
		"unknown client":    {"grant_type": {"password"}, "username": {testLogin}, "password": {testPassword}, "client_id": {"ghost"}},
		"unknown refresh":   {"grant_type": {"refresh_token"}, "refresh_token": {"nope"}},
		"unknown code":      {"grant_type": {"code"}, "code": {"nope"}},
		"unsupported grant": {"grant_type": {"implicit"}},
	}
	for name, form := range cases {
		t.Run(name, func(t *testing.T) {
			f.throttle.failures = map[string]int{}
			resp, raw := f.token(t, form)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.JSONEq(t, `{"error":"wrong data"}`, string(raw))
		})
	}
}

func TestRefreshGrantRotatesPair(t *testing.T) {
	f := newFixture(t)
	f.registerAlice(t)
	first := f.passwordGrant(t)

	resp, raw := f.token(t, url.Values{"grant_type": {"refresh_token"}, "refresh_token": {first.RefreshToken}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var second iam.AuthResponse
	require.NoError(t, json.Unmarshal(raw, &second))
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	resp, _ = f.token(t, url.Values{"grant_type": {"refresh_token"}, "refresh_token": {first.RefreshToken}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "old refresh token is gone")
}

func TestPasswordGrantIsThrottled(t *testing.T) {
	f := newFixture(t)
	f.registerAlice(t)

	bad := url.Values{"grant_type": {"password"}, "username": {testLogin}, "password": {"nope"}}
	for i := 0; i < 2; i++ {
		resp, _ := f.token(t, bad)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp, raw := f.token(t, url.Values{"grant_type": {"password"}, "username": {testLogin}, "password": {testPassword}})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, string(raw), iam.CodeTooManyAttempts.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ThrottledTotal))
}

// ============================================================================
// Authorization codes
// ============================================================================

func TestCodeIssueAndExchange(t *testing.T) {
	f := newFixture(t)
	f.registerAlice(t)
	tokens := f.passwordGrant(t)

	resp, raw := f.bearer(t, http.MethodPost, "/oauth/code", tokens.AccessToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var issued authcode.IssueResponse
	require.NoError(t, json.Unmarshal(raw, &issued))
	assert.Equal(t, int64(60), issued.ExpiresIn)

	resp, raw = f.token(t, url.Values{"grant_type": {"code"}, "code": {issued.Code}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	resp, _ = f.token(t, url.Values{"grant_type": {"code"}, "code": {issued.Code}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "codes are single use")
}

func TestExpiredCodeIsWrongData(t *testing.T) {
	f := newFixture(t)
	f.registerAlice(t)
	tokens := f.passwordGrant(t)

	_, raw := f.bearer(t, http.MethodPost, "/oauth/code", tokens.AccessToken)
	var issued authcode.IssueResponse
	require.NoError(t, json.Unmarshal(raw, &issued))

	f.clock.Advance(time.Minute)
	resp, _ := f.token(t, url.Values{"grant_type": {"code"}, "code": {issued.Code}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, f.store.Counts()["codes"])
}

// ============================================================================
// Sessions
// ============================================================================

func TestSignOutDeletesCurrentSessionOnly(t *testing.T) {
	f := newFixture(t)
	f.registerAlice(t)
	first := f.passwordGrant(t)
	second := f.passwordGrant(t)

	resp, _ := f.bearer(t, http.MethodPost, "/oauth/sign_out", first.AccessToken)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = f.bearer(t, http.MethodGet, "/api/user/sessions", first.AccessToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw := f.bearer(t, http.MethodGet, "/api/user/sessions", second.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status string         `json:"status"`
		Body   []session.Info `json:"body"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	require.Len(t, body.Body, 1)
	assert.True(t, body.Body[0].Current)
	assert.NotContains(t, string(raw), second.AccessToken)
}

func TestSignOutAll(t *testing.T) {
	f := newFixture(t)
	f.registerAlice(t)
	first := f.passwordGrant(t)
	second := f.passwordGrant(t)

	resp, _ := f.bearer(t, http.MethodPost, "/oauth/sign_out_all", first.AccessToken)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = f.bearer(t, http.MethodGet, "/api/user/sessions", second.AccessToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, f.store.Counts()["sessions"])
}

func TestExpiredAccessTokenIsRejected(t *testing.T) {
	f := newFixture(t)
	f.registerAlice(t)
	tokens := f.passwordGrant(t)

	f.clock.Advance(time.Hour)
	resp, raw := f.bearer(t, http.MethodGet, "/api/user/sessions", tokens.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(raw), "invalid_token")
}

func TestPing(t *testing.T) {
	f := newFixture(t)

	resp, raw := f.do(t, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(raw))
}
