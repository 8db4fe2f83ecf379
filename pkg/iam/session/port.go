package session

import (
	"context"
	"time"

	"github.com/Abraxas-365/keygate/pkg/kernel"
)

// Repository persists account sessions.
type Repository interface {
	Create(ctx context.Context, s AccountSession) error
	FindByID(ctx context.Context, id kernel.SessionID) (*AccountSession, error)
	FindByAccessToken(ctx context.Context, token string) (*AccountSession, error)
	FindByRefreshToken(ctx context.Context, token string) (*AccountSession, error)
	ListByAccount(ctx context.Context, accountID kernel.AccountID) ([]*AccountSession, error)

	// ExistsByToken matches either the access or the refresh column.
	ExistsByToken(ctx context.Context, token string) (bool, error)
	ExistsByID(ctx context.Context, id string) (bool, error)

	// RotateTokens replaces the pair of the session holding oldRefresh and
	// resets both creation dates to at. A missing session is not an error.
	RotateTokens(ctx context.Context, oldRefresh, access, refresh string, at time.Time) error
	TouchLastUsage(ctx context.Context, id kernel.SessionID, at time.Time) error

	Delete(ctx context.Context, id kernel.SessionID) error
	DeleteByAccount(ctx context.Context, accountID kernel.AccountID) error

	// DeleteRefreshExpired removes every session whose refresh token was
	// created at or before cutoff and returns how many went.
	DeleteRefreshExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
