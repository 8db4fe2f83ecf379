package client

import (
	"net/http"

	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/kernel"
)

// Client is an OAuth2 client application.
// A client without hash and salt is a no-password (first-party public) client.
type Client struct {
	ID           string            `db:"id" json:"id"`
	ClientName   kernel.ClientName `db:"client_name" json:"client_name"`
	PasswordHash *string           `db:"password_hash" json:"-"`
	PasswordSalt *string           `db:"password_salt" json:"-"`
	RedirectURI  string            `db:"redirect_uri" json:"redirect_uri"`
}

// NoPassword reports whether the client accepts requests without a secret.
func (c *Client) NoPassword() bool {
	return c.PasswordHash == nil || c.PasswordSalt == nil
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("CLIENT")

var (
	CodeClientNotFound     = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Client not found")
	CodeInvalidCredentials = ErrRegistry.Register("INVALID_CREDENTIALS", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid client credentials")
	CodeAlreadyExists      = ErrRegistry.Register("ALREADY_EXISTS", errx.TypeConflict, http.StatusConflict, "Client name already in use")
)

func ErrClientNotFound() *errx.Error     { return ErrRegistry.New(CodeClientNotFound) }
func ErrInvalidCredentials() *errx.Error { return ErrRegistry.New(CodeInvalidCredentials) }
func ErrAlreadyExists() *errx.Error      { return ErrRegistry.New(CodeAlreadyExists) }
