package signup

import "context"

// Lookup answers the uniqueness questions of the sign-up rules.
type Lookup interface {
	LoginExists(ctx context.Context, login string) (bool, error)
	NicknameExists(ctx context.Context, nickname string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	InviteExists(ctx context.Context, code string) (bool, error)
}
