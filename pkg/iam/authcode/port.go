package authcode

import (
	"context"
	"time"
)

// Repository persists authorization codes.
type Repository interface {
	Create(ctx context.Context, c AuthorizationCode) error
	FindByCode(ctx context.Context, code string) (*AuthorizationCode, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	// Delete reports whether the row was still there. Exactly one of several
	// concurrent callers sees true.
	Delete(ctx context.Context, id string) (bool, error)

	// DeleteExpired removes every code created at or before cutoff.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
