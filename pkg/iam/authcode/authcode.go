package authcode

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/kernel"
)

// AuthorizationCode is a short-lived, single-use credential exchanged for a session.
type AuthorizationCode struct {
	ID           string           `db:"id" json:"id"`
	AccountID    kernel.AccountID `db:"account_id" json:"account_id"`
	Code         string           `db:"code" json:"code"`
	CreationDate time.Time        `db:"creation_date" json:"creation_date"`
}

// IssueResponse is returned to the interactive flow that requested the code.
type IssueResponse struct {
	Code      string `json:"code"`
	ExpiresIn int64  `json:"expires_in"`
}

var ErrRegistry = errx.NewRegistry("AUTH_CODE")

var (
	CodeNotFound = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Authorization code not found")
	CodeExpired  = ErrRegistry.Register("EXPIRED", errx.TypeAuthorization, http.StatusUnauthorized, "Authorization code expired")
)

func ErrNotFound() *errx.Error { return ErrRegistry.New(CodeNotFound) }
func ErrExpired() *errx.Error  { return ErrRegistry.New(CodeExpired) }
