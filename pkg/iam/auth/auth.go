package auth

import (
	"time"

	"github.com/Abraxas-365/keygate/pkg/kernel"
	"github.com/Abraxas-365/keygate/pkg/ptrx"
	"github.com/gofiber/fiber/v2"
)

// ============================================================================
// Grants
// ============================================================================

const (
	GrantPassword     = "password"
	GrantRefreshToken = "refresh_token"
	GrantCode         = "code"
)

// WrongData is the error string of every rejected grant.
const WrongData = "wrong data"

// TokenRequest carries the token endpoint parameters. They are read from the
// form body and, when absent there, from the query string.
type TokenRequest struct {
	GrantType    string `form:"grant_type" query:"grant_type"`
	Username     string `form:"username" query:"username"`
	Password     string `form:"password" query:"password"`
	RefreshToken string `form:"refresh_token" query:"refresh_token"`
	Code         string `form:"code" query:"code"`
	ClientID     string `form:"client_id" query:"client_id"`
	ClientSecret string `form:"client_secret" query:"client_secret"`
}

// Client returns the optional client credentials. An empty value is absent.
func (r TokenRequest) Client() (id, secret *string) {
	return ptrx.NonEmpty(r.ClientID), ptrx.NonEmpty(r.ClientSecret)
}

// merge fills the fields r lacks from fallback.
func (r TokenRequest) merge(fallback TokenRequest) TokenRequest {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	return TokenRequest{
		GrantType:    pick(r.GrantType, fallback.GrantType),
		Username:     pick(r.Username, fallback.Username),
		Password:     pick(r.Password, fallback.Password),
		RefreshToken: pick(r.RefreshToken, fallback.RefreshToken),
		Code:         pick(r.Code, fallback.Code),
		ClientID:     pick(r.ClientID, fallback.ClientID),
		ClientSecret: pick(r.ClientSecret, fallback.ClientSecret),
	}
}

// ParseTokenRequest reads the parameters from the form body first and falls
// back to the query string per field. Unparseable input yields empty fields,
// which the grant then rejects.
func ParseTokenRequest(c *fiber.Ctx) TokenRequest {
	var body, query TokenRequest
	_ = c.BodyParser(&body)
	_ = c.QueryParser(&query)
	return body.merge(query)
}

// SignUpResponse is the OK body of the sign-up endpoint.
type SignUpResponse struct {
	AccountID kernel.AccountID `json:"account_id"`
}

// ============================================================================
// Audit
// ============================================================================

// EventType names an audited authentication event.
type EventType string

const (
	EventSignIn     EventType = "sign_in"
	EventSignOut    EventType = "sign_out"
	EventSignOutAll EventType = "sign_out_all"
	EventSignUp     EventType = "sign_up"
	EventCodeIssued EventType = "code_issued"
)

// Event is the record handed to an AuditService sink.
type Event struct {
	Type      EventType        `json:"type"`
	AccountID kernel.AccountID `json:"account_id,omitempty"`
	SessionID kernel.SessionID `json:"session_id,omitempty"`
	GrantType string           `json:"grant_type,omitempty"`
	Success   bool             `json:"success"`
	IP        string           `json:"ip,omitempty"`
	UserAgent string           `json:"user_agent,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}
