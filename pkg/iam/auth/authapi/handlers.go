package authapi

import (
	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/iam"
	"github.com/Abraxas-365/keygate/pkg/iam/auth"
	"github.com/Abraxas-365/keygate/pkg/iam/authcode"
	"github.com/Abraxas-365/keygate/pkg/iam/authcode/authcodesrv"
	"github.com/Abraxas-365/keygate/pkg/iam/session"
	"github.com/Abraxas-365/keygate/pkg/iam/session/sessionsrv"
	"github.com/Abraxas-365/keygate/pkg/iam/signup"
	"github.com/Abraxas-365/keygate/pkg/iam/signup/signupsrv"
	"github.com/Abraxas-365/keygate/pkg/logx"
	"github.com/Abraxas-365/keygate/pkg/observability"
	"github.com/gofiber/fiber/v2"
)

// AuthHandlers serves the OAuth endpoints and the caller session routes.
type AuthHandlers struct {
	sessions *sessionsrv.Manager
	signups  *signupsrv.Service
	codes    *authcodesrv.Service
	audit    auth.AuditService
	throttle auth.Throttle
	metrics  *observability.Metrics
}

func NewAuthHandlers(
	sessions *sessionsrv.Manager,
	signups *signupsrv.Service,
	codes *authcodesrv.Service,
	audit auth.AuditService,
	throttle auth.Throttle,
	metrics *observability.Metrics,
) *AuthHandlers {
	if throttle == nil {
		throttle = auth.NopThrottle{}
	}
	if metrics == nil {
		metrics = observability.NewNopMetrics()
	}
	return &AuthHandlers{
		sessions: sessions,
		signups:  signups,
		codes:    codes,
		audit:    audit,
		throttle: throttle,
		metrics:  metrics,
	}
}

// RegisterRoutes registra las rutas de autenticación
func (h *AuthHandlers) RegisterRoutes(app fiber.Router, authMiddleware fiber.Handler) {
	oauth := app.Group("/oauth")
	oauth.Post("/token", h.Token)
	oauth.Post("/sign_up", h.SignUp)
	oauth.Post("/code", authMiddleware, h.IssueCode)
	oauth.Post("/sign_out", authMiddleware, h.SignOut)
	oauth.Post("/sign_out_all", authMiddleware, h.SignOutAll)

	api := app.Group("/api")
	api.Get("/ping", h.Ping)
	api.Get("/user/sessions", authMiddleware, h.ListSessions)
}

// ============================================================================
// Token endpoint
// ============================================================================

// Token handles POST /oauth/token for the password, refresh_token and code
// grants. Every rejection answers 401 {"error":"wrong data"}.
func (h *AuthHandlers) Token(c *fiber.Ctx) error {
	req := auth.ParseTokenRequest(c)
	clientID, clientSecret := req.Client()
	ctx := c.UserContext()

	var (
		s   *session.AccountSession
		err error
	)
	switch req.GrantType {
	case auth.GrantPassword:
		key := throttleKey(req.Username, c.IP())
		allowed, terr := h.throttle.Allow(ctx, key)
		if terr != nil {
			logx.WithContext(ctx).WithError(terr).Warn("Sign-in throttle unavailable")
		} else if !allowed {
			h.metrics.ThrottledTotal.Inc()
			return iam.ErrTooManyAttempts()
		}

		s, err = h.sessions.SignInPassword(ctx, req.Username, req.Password, clientID, clientSecret)
		if err != nil {
			if terr := h.throttle.Fail(ctx, key); terr != nil {
				logx.WithContext(ctx).WithError(terr).Warn("Failed to record sign-in failure")
			}
		} else if terr := h.throttle.Reset(ctx, key); terr != nil {
			logx.WithContext(ctx).WithError(terr).Warn("Failed to reset sign-in throttle")
		}
	case auth.GrantRefreshToken:
		s, err = h.sessions.SignInRefresh(ctx, req.RefreshToken, clientID, clientSecret)
	case auth.GrantCode:
		s, err = h.sessions.SignInAuthCode(ctx, req.Code, clientID, clientSecret)
	default:
		h.metrics.GrantsTotal.WithLabelValues("unsupported", observability.OutcomeFailure).Inc()
		return wrongData(c)
	}

	if err != nil {
		if !isGrantRejection(err) {
			logx.WithContext(ctx).WithError(err).WithField("grant_type", req.GrantType).Error("Grant failed")
		}
		h.metrics.GrantsTotal.WithLabelValues(req.GrantType, observability.OutcomeFailure).Inc()
		h.audit.LogSignIn(ctx, req.GrantType, "", false, c.IP(), c.Get(fiber.HeaderUserAgent))
		return wrongData(c)
	}

	h.metrics.GrantsTotal.WithLabelValues(req.GrantType, observability.OutcomeSuccess).Inc()
	h.audit.LogSignIn(ctx, req.GrantType, s.AccountID, true, c.IP(), c.Get(fiber.HeaderUserAgent))

	return c.JSON(iam.AuthResponse{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    iam.TokenTypeBearer,
		ExpiresIn:    int64(h.sessions.Lifetimes().Access.Seconds()),
		Scope:        iam.DefaultScope,
	})
}

// ============================================================================
// Sign-up
// ============================================================================

// SignUp handles POST /oauth/sign_up. Violations answer 400 with the status
// list in an ERROR envelope.
func (h *AuthHandlers) SignUp(c *fiber.Ctx) error {
	var req signup.Request
	if err := c.BodyParser(&req); err != nil {
		return errx.Validation("invalid request body")
	}

	ctx := c.UserContext()
	result, acc, err := h.signups.SignUp(ctx, req)
	if err != nil {
		h.metrics.SignUpsTotal.WithLabelValues(observability.OutcomeFailure).Inc()
		return err
	}

	if !result.OK() {
		h.metrics.SignUpsTotal.WithLabelValues(observability.OutcomeRejected).Inc()
		h.audit.LogSignUp(ctx, "", false, c.IP())
		return c.Status(fiber.StatusBadRequest).JSON(iam.Error(result.Violations()))
	}

	h.metrics.SignUpsTotal.WithLabelValues(observability.OutcomeSuccess).Inc()
	h.audit.LogSignUp(ctx, acc.ID, true, c.IP())
	return c.JSON(iam.OK(auth.SignUpResponse{AccountID: acc.ID}))
}

// ============================================================================
// Bearer routes
// ============================================================================

// IssueCode handles POST /oauth/code.
func (h *AuthHandlers) IssueCode(c *fiber.Ctx) error {
	authContext, err := iam.AuthFrom(c)
	if err != nil {
		return err
	}

	code, err := h.codes.Issue(c.UserContext(), authContext.AccountID)
	if err != nil {
		return err
	}

	h.audit.LogCodeIssued(c.UserContext(), authContext.AccountID, c.IP())
	return c.Status(fiber.StatusCreated).JSON(authcode.IssueResponse{
		Code:      code.Code,
		ExpiresIn: int64(h.codes.Lifetime().Seconds()),
	})
}

// SignOut handles POST /oauth/sign_out.
func (h *AuthHandlers) SignOut(c *fiber.Ctx) error {
	authContext, err := iam.AuthFrom(c)
	if err != nil {
		return err
	}

	if err := h.sessions.SignOut(c.UserContext(), authContext.SessionID); err != nil {
		return err
	}

	h.audit.LogSignOut(c.UserContext(), authContext.AccountID, authContext.SessionID, false, c.IP())
	return c.SendStatus(fiber.StatusNoContent)
}

// SignOutAll handles POST /oauth/sign_out_all.
func (h *AuthHandlers) SignOutAll(c *fiber.Ctx) error {
	authContext, err := iam.AuthFrom(c)
	if err != nil {
		return err
	}

	if err := h.sessions.SignOutAll(c.UserContext(), authContext.AccountID); err != nil {
		return err
	}

	h.audit.LogSignOut(c.UserContext(), authContext.AccountID, authContext.SessionID, true, c.IP())
	return c.SendStatus(fiber.StatusNoContent)
}

// ListSessions handles GET /api/user/sessions.
func (h *AuthHandlers) ListSessions(c *fiber.Ctx) error {
	authContext, err := iam.AuthFrom(c)
	if err != nil {
		return err
	}

	infos, err := h.sessions.ListMine(c.UserContext(), authContext.AccountID, authContext.SessionID)
	if err != nil {
		return err
	}

	return c.JSON(iam.OK(infos))
}

func (h *AuthHandlers) Ping(c *fiber.Ctx) error {
	return c.SendString("pong")
}

// ============================================================================
// Helpers
// ============================================================================

func wrongData(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(iam.OAuth2ErrorResponse{Error: auth.WrongData})
}

func isGrantRejection(err error) bool {
	var e *errx.Error
	return errx.As(err, &e) && (e.Type == errx.TypeAuthorization || e.Type == errx.TypeNotFound || e.Type == errx.TypeValidation)
}

func throttleKey(username, ip string) string {
	return username + "|" + ip
}
