package iam

import (
	"net/http"

	"github.com/Abraxas-365/keygate/pkg/errx"
)

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("IAM")

var (
	CodeUnauthorized    = ErrRegistry.Register("UNAUTHORIZED", errx.TypeAuthorization, http.StatusUnauthorized, "Unauthorized")
	CodeTokenMissing    = ErrRegistry.Register("TOKEN_MISSING", errx.TypeAuthorization, http.StatusUnauthorized, "The access token is missing")
	CodeTokenNotFound   = ErrRegistry.Register("TOKEN_NOT_FOUND", errx.TypeAuthorization, http.StatusForbidden, "The access token not found")
	CodeTokenExpired    = ErrRegistry.Register("TOKEN_EXPIRED", errx.TypeAuthorization, http.StatusUnauthorized, "The access token expired")
	CodeAccessDenied    = ErrRegistry.Register("ACCESS_DENIED", errx.TypeAuthorization, http.StatusForbidden, "Access denied")
	CodeTooManyAttempts = ErrRegistry.Register("TOO_MANY_ATTEMPTS", errx.TypeRateLimit, http.StatusTooManyRequests, "Too many sign-in attempts")
)

func ErrUnauthorized() *errx.Error    { return ErrRegistry.New(CodeUnauthorized) }
func ErrTokenMissing() *errx.Error    { return ErrRegistry.New(CodeTokenMissing) }
func ErrTokenNotFound() *errx.Error   { return ErrRegistry.New(CodeTokenNotFound) }
func ErrTokenExpired() *errx.Error    { return ErrRegistry.New(CodeTokenExpired) }
func ErrAccessDenied() *errx.Error    { return ErrRegistry.New(CodeAccessDenied) }
func ErrTooManyAttempts() *errx.Error { return ErrRegistry.New(CodeTooManyAttempts) }

// ============================================================================
// Response envelopes
// ============================================================================

// ResponseStatus is the outcome marker of an ApiResponse.
type ResponseStatus string

const (
	StatusOK      ResponseStatus = "OK"
	StatusWarning ResponseStatus = "WARNING"
	StatusError   ResponseStatus = "ERROR"
)

// ApiResponse is the envelope used by every non-OAuth endpoint.
type ApiResponse struct {
	Status ResponseStatus `json:"status"`
	Body   any            `json:"body"`
}

func OK(body any) ApiResponse      { return ApiResponse{Status: StatusOK, Body: body} }
func Warning(body any) ApiResponse { return ApiResponse{Status: StatusWarning, Body: body} }
func Error(body any) ApiResponse   { return ApiResponse{Status: StatusError, Body: body} }

// OAuth2ErrorResponse is the RFC 6750 style body returned by the bearer middleware.
type OAuth2ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// AuthResponse is returned by the token endpoint on every successful grant.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
}

const (
	TokenTypeBearer = "Bearer"
	DefaultScope    = "read+write"
)
