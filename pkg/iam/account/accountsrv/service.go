package accountsrv

import (
	"context"
	"unicode/utf8"

	"github.com/Abraxas-365/keygate/pkg/iam/account"
	"github.com/Abraxas-365/keygate/pkg/iam/authz"
	"github.com/Abraxas-365/keygate/pkg/kernel"
	"github.com/Abraxas-365/keygate/pkg/logx"
)

// MaxInfoLength bounds the free-text info of a public profile, in runes.
const MaxInfoLength = 1024

// profilePolicy lets the owner read and edit their own profile.
type profilePolicy struct{}

func (profilePolicy) Classify(_ context.Context, executor kernel.AccountID, p *account.PublicProfile) (authz.Actor, error) {
	return authz.Owner(executor, p.AccountID), nil
}

func (profilePolicy) Permits(op authz.Operation, actor authz.Actor, _ *account.PublicProfile) bool {
	if actor != authz.ResourceOwner {
		return false
	}
	return op == authz.OpGet || op == authz.OpUpdate
}

// ProfileService reads and edits public profiles.
type ProfileService struct {
	profiles account.ProfileRepository
	engine   *authz.Engine
}

func NewProfileService(profiles account.ProfileRepository, engine *authz.Engine) *ProfileService {
	return &ProfileService{profiles: profiles, engine: engine}
}

// GetProfile returns the public profile of accountID. Profiles are visible
// to every authenticated account.
func (s *ProfileService) GetProfile(ctx context.Context, accountID kernel.AccountID) (*account.PublicProfile, error) {
	return s.profiles.FindByAccountID(ctx, accountID)
}

// Nickname returns the nickname of accountID.
func (s *ProfileService) Nickname(ctx context.Context, accountID kernel.AccountID) (string, error) {
	profile, err := s.profiles.FindByAccountID(ctx, accountID)
	if err != nil {
		return "", err
	}
	return profile.Nickname, nil
}

// UpdateInfo replaces the info text of accountID's profile. The owner,
// administrators and moderators may do it.
func (s *ProfileService) UpdateInfo(ctx context.Context, executor, accountID kernel.AccountID, info string) (*account.PublicProfile, error) {
	if utf8.RuneCountInString(info) > MaxInfoLength {
		return nil, account.ErrInvalidInfo().WithDetail("max_length", MaxInfoLength)
	}

	profile, err := s.profiles.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	actor, err := authz.Require(ctx, s.engine, profilePolicy{}, executor, authz.OpUpdate, profile)
	if err != nil {
		return nil, err
	}

	if err := s.profiles.UpdateInfo(ctx, accountID, info); err != nil {
		return nil, err
	}
	profile.Info = info

	logx.WithFields(logx.Fields{
		"account_id": accountID,
		"executor":   executor,
		"actor":      actor.String(),
	}).Info("Profile info updated")

	return profile, nil
}
