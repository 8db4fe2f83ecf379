package signupsrv

import (
	"context"

	"github.com/Abraxas-365/keygate/pkg/iam/account"
	"github.com/Abraxas-365/keygate/pkg/iam/invite"
	"github.com/Abraxas-365/keygate/pkg/iam/signup"
)

// repositoryLookup answers sign-up uniqueness questions from the repositories.
type repositoryLookup struct {
	accounts account.Repository
	profiles account.ProfileRepository
	recovery account.RecoveryRepository
	invites  invite.Repository
}

// NewLookup adapts the repositories to signup.Lookup.
func NewLookup(accounts account.Repository, profiles account.ProfileRepository, recovery account.RecoveryRepository, invites invite.Repository) signup.Lookup {
	return &repositoryLookup{
		accounts: accounts,
		profiles: profiles,
		recovery: recovery,
		invites:  invites,
	}
}

func (l *repositoryLookup) LoginExists(ctx context.Context, login string) (bool, error) {
	return l.accounts.ExistsByLogin(ctx, login)
}

func (l *repositoryLookup) NicknameExists(ctx context.Context, nickname string) (bool, error) {
	return l.profiles.ExistsByNickname(ctx, nickname)
}

func (l *repositoryLookup) EmailExists(ctx context.Context, email string) (bool, error) {
	return l.recovery.ExistsByEmail(ctx, email)
}

func (l *repositoryLookup) InviteExists(ctx context.Context, code string) (bool, error) {
	return l.invites.ExistsByCode(ctx, code)
}
