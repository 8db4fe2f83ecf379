package account

import (
	"context"

	"github.com/Abraxas-365/keygate/pkg/kernel"
)

// Repository persists accounts.
type Repository interface {
	Create(ctx context.Context, acc Account) error
	FindByID(ctx context.Context, id kernel.AccountID) (*Account, error)
	FindByLogin(ctx context.Context, login string) (*Account, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	ExistsByLogin(ctx context.Context, login string) (bool, error)
	UpdateLogin(ctx context.Context, id kernel.AccountID, login string) error
	UpdatePassword(ctx context.Context, id kernel.AccountID, hash, salt string) error
}

// ProfileRepository persists public profiles.
type ProfileRepository interface {
	Create(ctx context.Context, p PublicProfile) error
	FindByAccountID(ctx context.Context, accountID kernel.AccountID) (*PublicProfile, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	ExistsByNickname(ctx context.Context, nickname string) (bool, error)
	UpdateNickname(ctx context.Context, accountID kernel.AccountID, nickname string) error
	UpdateInfo(ctx context.Context, accountID kernel.AccountID, info string) error
}

// RecoveryRepository persists recovery info.
type RecoveryRepository interface {
	Create(ctx context.Context, r RecoveryInfo) error
	FindByAccountID(ctx context.Context, accountID kernel.AccountID) (*RecoveryInfo, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateEmail(ctx context.Context, accountID kernel.AccountID, email string) error
}

// RoleRepository persists roles.
type RoleRepository interface {
	Create(ctx context.Context, r Role) error
	FindByID(ctx context.Context, id string) (*Role, error)
	FindByName(ctx context.Context, name string) (*Role, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
}

// RoleAssignmentRepository persists role assignments.
type RoleAssignmentRepository interface {
	Create(ctx context.Context, a RoleAssignment) error
	FindByAccountID(ctx context.Context, accountID kernel.AccountID) (*RoleAssignment, error)
	FindByRoleID(ctx context.Context, roleID string) ([]*RoleAssignment, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	DeleteByAccountID(ctx context.Context, accountID kernel.AccountID) error
}
