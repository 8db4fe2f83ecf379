package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/iam"
	"github.com/Abraxas-365/keygate/pkg/iam/session"
	"github.com/Abraxas-365/keygate/pkg/kernel"
	"github.com/Abraxas-365/keygate/pkg/logx"
	"github.com/Abraxas-365/keygate/pkg/observability"
	"github.com/gofiber/fiber/v2"
)

const invalidToken = "invalid_token"

// BearerAuthenticator resolves an access token to its session.
type BearerAuthenticator interface {
	AuthenticateBearer(ctx context.Context, accessToken string) (*session.AccountSession, error)
}

// TokenMiddleware guards routes with an opaque bearer access token.
type TokenMiddleware struct {
	sessions BearerAuthenticator
	metrics  *observability.Metrics
}

// NewAuthMiddleware crea un nuevo middleware de autenticación
func NewAuthMiddleware(sessions BearerAuthenticator, metrics *observability.Metrics) *TokenMiddleware {
	return &TokenMiddleware{
		sessions: sessions,
		metrics:  metrics,
	}
}

// Authenticate rejects a missing token with 401, an unknown one with 403 and
// an expired one with 401. On success the account and session ids are stored
// in the request locals.
func (am *TokenMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			am.observe(observability.OutcomeMissing)
			return reject(c, iam.ErrTokenMissing())
		}

		s, err := am.sessions.AuthenticateBearer(c.UserContext(), token)
		if err != nil {
			switch {
			case errx.IsCode(err, iam.CodeTokenNotFound):
				am.observe(observability.OutcomeUnknown)
				return reject(c, iam.ErrTokenNotFound())
			case errx.IsCode(err, iam.CodeTokenExpired):
				am.observe(observability.OutcomeExpired)
				return reject(c, iam.ErrTokenExpired())
			default:
				logx.WithContext(c.UserContext()).WithError(err).Error("Bearer validation failed")
				return err
			}
		}

		am.observe(observability.OutcomeSuccess)
		iam.SetAuth(c, &kernel.AuthContext{
			AccountID: s.AccountID,
			SessionID: s.ID,
		})

		return c.Next()
	}
}

func (am *TokenMiddleware) observe(outcome string) {
	if am.metrics != nil {
		am.metrics.BearerChecksTotal.WithLabelValues(outcome).Inc()
	}
}

// bearerToken extracts the credential of an "Authorization: Bearer <token>"
// header. Any other shape counts as missing.
func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func reject(c *fiber.Ctx, e *errx.Error) error {
	c.Set(fiber.HeaderWWWAuthenticate, fmt.Sprintf(`Bearer error=%q, error_description=%q`, invalidToken, e.Message))
	return c.Status(e.HTTPStatus).JSON(iam.OAuth2ErrorResponse{
		Error:            invalidToken,
		ErrorDescription: e.Message,
	})
}
