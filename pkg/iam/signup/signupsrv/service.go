package signupsrv

import (
	"context"
	"errors"

	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/iam/account"
	"github.com/Abraxas-365/keygate/pkg/iam/credential"
	"github.com/Abraxas-365/keygate/pkg/iam/invite"
	"github.com/Abraxas-365/keygate/pkg/iam/signup"
	"github.com/Abraxas-365/keygate/pkg/iam/token"
	"github.com/Abraxas-365/keygate/pkg/kernel"
	"github.com/Abraxas-365/keygate/pkg/logx"
	"github.com/Abraxas-365/keygate/pkg/store"
)

// Repositories groups the stores a sign-up writes to.
type Repositories struct {
	Accounts    account.Repository
	Profiles    account.ProfileRepository
	Recovery    account.RecoveryRepository
	Roles       account.RoleRepository
	Assignments account.RoleAssignmentRepository
	Invites     invite.Repository
}

// Service validates sign-up forms and creates the account graph.
type Service struct {
	repos     Repositories
	validator *signup.Validator
	hasher    *credential.Hasher
	tokens    *token.Generator
	tx        store.Transactor
}

func NewService(repos Repositories, hasher *credential.Hasher, tokens *token.Generator, tx store.Transactor, opts ...signup.ValidatorOption) *Service {
	lookup := NewLookup(repos.Accounts, repos.Profiles, repos.Recovery, repos.Invites)
	return &Service{
		repos:     repos,
		validator: signup.NewValidator(lookup, opts...),
		hasher:    hasher,
		tokens:    tokens,
		tx:        tx,
	}
}

// errInviteGone marks an invite consumed between validation and creation.
var errInviteGone = errors.New("invite consumed concurrently")

// SignUp validates req and, when every rule passes, creates the account,
// its public profile, its recovery info and its "user" role assignment in one
// transaction. A one-use invite is deleted in the same transaction.
//
// A failed validation is not an error: the Result carries the violations
// and the account is nil.
func (s *Service) SignUp(ctx context.Context, req signup.Request) (signup.Result, *account.Account, error) {
	result := s.validator.Validate(ctx, req)
	if !result.OK() {
		return result, nil, nil
	}

	hash, salt, err := s.hasher.HashAsync(ctx, req.Password)
	if err != nil {
		return result, nil, err
	}

	role, err := s.repos.Roles.FindByName(ctx, account.RoleUser)
	if err != nil {
		return result, nil, errx.Wrap(err, "user role is not seeded", errx.TypeInternal)
	}

	var created *account.Account
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		inv, err := s.repos.Invites.FindByCode(ctx, req.InviteCode)
		if err != nil {
			if errx.IsCode(err, invite.CodeInviteNotFound) {
				return errInviteGone
			}
			return err
		}

		acc, err := s.createGraph(ctx, req, hash, salt, role.ID)
		if err != nil {
			return err
		}

		if inv.OneUse {
			if err := s.repos.Invites.Delete(ctx, inv.ID); err != nil {
				if errx.IsCode(err, invite.CodeInviteNotFound) {
					return errInviteGone
				}
				return err
			}
		}

		created = acc
		return nil
	})
	if errors.Is(err, errInviteGone) {
		result[len(result)-1] = signup.InviteCodeDoesNotExists
		return result, nil, nil
	}
	if err != nil {
		return result, nil, err
	}

	logx.WithFields(logx.Fields{
		"account_id": created.ID,
		"login":      created.Login,
	}).Info("Account signed up")

	return result, created, nil
}

func (s *Service) createGraph(ctx context.Context, req signup.Request, hash, salt, roleID string) (*account.Account, error) {
	accountID, err := s.tokens.UniqueID(ctx, s.repos.Accounts.ExistsByID)
	if err != nil {
		return nil, err
	}
	profileID, err := s.tokens.UniqueID(ctx, s.repos.Profiles.ExistsByID)
	if err != nil {
		return nil, err
	}
	recoveryID, err := s.tokens.UniqueID(ctx, s.repos.Recovery.ExistsByID)
	if err != nil {
		return nil, err
	}
	assignmentID, err := s.tokens.UniqueID(ctx, s.repos.Assignments.ExistsByID)
	if err != nil {
		return nil, err
	}

	acc := account.Account{
		ID:           kernel.NewAccountID(accountID),
		Login:        req.Login,
		PasswordHash: hash,
		PasswordSalt: salt,
	}
	if err := s.repos.Accounts.Create(ctx, acc); err != nil {
		return nil, err
	}

	if err := s.repos.Profiles.Create(ctx, account.PublicProfile{
		ID:        profileID,
		AccountID: acc.ID,
		Nickname:  req.Nickname,
	}); err != nil {
		return nil, err
	}

	if err := s.repos.Recovery.Create(ctx, account.RecoveryInfo{
		ID:        recoveryID,
		AccountID: acc.ID,
		Email:     req.Email,
	}); err != nil {
		return nil, err
	}

	if err := s.repos.Assignments.Create(ctx, account.RoleAssignment{
		ID:        assignmentID,
		AccountID: acc.ID,
		RoleID:    roleID,
	}); err != nil {
		return nil, err
	}

	return &acc, nil
}
