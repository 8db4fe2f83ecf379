package invite

import (
	"net/http"

	"github.com/Abraxas-365/keygate/pkg/errx"
)

// Invite gates sign-up. One-use invites are deleted once consumed.
type Invite struct {
	ID         string `db:"id" json:"id"`
	InviteCode string `db:"invite_code" json:"invite_code"`
	OneUse     bool   `db:"one_use" json:"one_use"`
}

// CreateInviteRequest creates an invite. An empty code is replaced by a random one.
type CreateInviteRequest struct {
	InviteCode string `json:"invite_code"`
	OneUse     *bool  `json:"one_use"`
}

// UpdateInviteRequest changes an invite. Nil fields are left as they are.
type UpdateInviteRequest struct {
	InviteCode *string `json:"invite_code"`
	OneUse     *bool   `json:"one_use"`
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("INVITE")

var (
	CodeInviteNotFound      = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Invite not found")
	CodeInviteAlreadyExists = ErrRegistry.Register("ALREADY_EXISTS", errx.TypeConflict, http.StatusConflict, "Invite code already exists")
	CodeInvalidInviteCode   = ErrRegistry.Register("INVALID_CODE", errx.TypeValidation, http.StatusBadRequest, "Invite code must be non-empty")
)

func ErrInviteNotFound() *errx.Error      { return ErrRegistry.New(CodeInviteNotFound) }
func ErrInviteAlreadyExists() *errx.Error { return ErrRegistry.New(CodeInviteAlreadyExists) }
func ErrInvalidInviteCode() *errx.Error   { return ErrRegistry.New(CodeInvalidInviteCode) }
