package account

import (
	"net/http"

	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/kernel"
)

// ============================================================================
// Entities
// ============================================================================

// Account is the credential-bearing identity.
type Account struct {
	ID           kernel.AccountID `db:"id" json:"id"`
	Login        string           `db:"login" json:"login"`
	PasswordHash string           `db:"password_hash" json:"-"`
	PasswordSalt string           `db:"password_salt" json:"-"`
}

// PublicProfile is the 1:1 public face of an account.
type PublicProfile struct {
	ID        string           `db:"id" json:"id"`
	AccountID kernel.AccountID `db:"account_id" json:"account_id"`
	Nickname  string           `db:"nickname" json:"nickname"`
	Info      string           `db:"info" json:"info"`
}

// RecoveryInfo holds the private contact data of an account.
type RecoveryInfo struct {
	ID        string           `db:"id" json:"id"`
	AccountID kernel.AccountID `db:"account_id" json:"account_id"`
	Email     string           `db:"email" json:"email"`
	Phone     string           `db:"phone" json:"phone"`
}

// Role is static reference data seeded at startup.
type Role struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Tags string `db:"tags" json:"tags"`
}

// RoleAssignment binds an account to a role.
type RoleAssignment struct {
	ID        string           `db:"id" json:"id"`
	AccountID kernel.AccountID `db:"account_id" json:"account_id"`
	RoleID    string           `db:"role_id" json:"role_id"`
	Params    string           `db:"params" json:"params"`
}

const (
	RoleAdministrator = "administrator"
	RoleModerator     = "moderator"
	RoleUser          = "user"
)

// DefaultRoles are the roles every installation starts with.
var DefaultRoles = []Role{
	{Name: RoleAdministrator, Tags: "full access; single account"},
	{Name: RoleModerator, Tags: "manages invites and user content"},
	{Name: RoleUser, Tags: "regular account"},
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("ACCOUNT")

var (
	CodeAccountNotFound    = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Account not found")
	CodeProfileNotFound    = ErrRegistry.Register("PROFILE_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Public profile not found")
	CodeRecoveryNotFound   = ErrRegistry.Register("RECOVERY_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Recovery info not found")
	CodeRoleNotFound       = ErrRegistry.Register("ROLE_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Role not found")
	CodeAssignmentNotFound = ErrRegistry.Register("ASSIGNMENT_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Role assignment not found")
	CodeAlreadyExists      = ErrRegistry.Register("ALREADY_EXISTS", errx.TypeConflict, http.StatusConflict, "Value already in use")
	CodeInvalidInfo        = ErrRegistry.Register("INVALID_INFO", errx.TypeValidation, http.StatusBadRequest, "Profile info is too long")
)

func ErrAccountNotFound() *errx.Error    { return ErrRegistry.New(CodeAccountNotFound) }
func ErrProfileNotFound() *errx.Error    { return ErrRegistry.New(CodeProfileNotFound) }
func ErrRecoveryNotFound() *errx.Error   { return ErrRegistry.New(CodeRecoveryNotFound) }
func ErrRoleNotFound() *errx.Error       { return ErrRegistry.New(CodeRoleNotFound) }
func ErrAssignmentNotFound() *errx.Error { return ErrRegistry.New(CodeAssignmentNotFound) }
func ErrAlreadyExists() *errx.Error      { return ErrRegistry.New(CodeAlreadyExists) }
func ErrInvalidInfo() *errx.Error        { return ErrRegistry.New(CodeInvalidInfo) }

// IsNotFound reports whether err is any of the account-context NotFound errors.
func IsNotFound(err error) bool {
	return errx.IsCode(err, CodeAccountNotFound) ||
		errx.IsCode(err, CodeProfileNotFound) ||
		errx.IsCode(err, CodeRecoveryNotFound) ||
		errx.IsCode(err, CodeRoleNotFound) ||
		errx.IsCode(err, CodeAssignmentNotFound)
}
