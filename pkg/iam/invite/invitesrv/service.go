package invitesrv

import (
	"context"

	"github.com/Abraxas-365/keygate/pkg/iam/authz"
	"github.com/Abraxas-365/keygate/pkg/iam/invite"
	"github.com/Abraxas-365/keygate/pkg/iam/token"
	"github.com/Abraxas-365/keygate/pkg/kernel"
	"github.com/Abraxas-365/keygate/pkg/logx"
	"github.com/Abraxas-365/keygate/pkg/ptrx"
)

// InviteService manages sign-up invites. Every operation is reserved to
// administrators and moderators.
type InviteService struct {
	repo   invite.Repository
	engine *authz.Engine
	tokens *token.Generator
}

func NewInviteService(repo invite.Repository, engine *authz.Engine, tokens *token.Generator) *InviteService {
	return &InviteService{
		repo:   repo,
		engine: engine,
		tokens: tokens,
	}
}

var policy = authz.StaffOnly[*invite.Invite]{}

// requireStaff must run before any lookup by id.
func (s *InviteService) requireStaff(ctx context.Context, executor kernel.AccountID, op authz.Operation) error {
	_, err := authz.Require(ctx, s.engine, policy, executor, op, nil)
	return err
}

func (s *InviteService) CreateInvite(ctx context.Context, executor kernel.AccountID, req invite.CreateInviteRequest) (*invite.Invite, error) {
	if err := s.requireStaff(ctx, executor, authz.OpCreate); err != nil {
		return nil, err
	}

	inv, err := s.Mint(ctx, req.InviteCode, ptrx.BoolValueOr(req.OneUse, true))
	if err != nil {
		return nil, err
	}

	logx.WithFields(logx.Fields{
		"invite_id":  inv.ID,
		"one_use":    inv.OneUse,
		"created_by": executor,
	}).Info("Invite created")

	return inv, nil
}

// Mint stores a new invite without an authorization check. An empty code is
// replaced by a random unique one.
func (s *InviteService) Mint(ctx context.Context, code string, oneUse bool) (*invite.Invite, error) {
	if code == "" {
		generated, err := s.tokens.Unique(ctx, s.repo.ExistsByCode)
		if err != nil {
			return nil, err
		}
		code = generated
	} else {
		exists, err := s.repo.ExistsByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, invite.ErrInviteAlreadyExists().WithDetail("invite_code", code)
		}
	}

	id, err := s.tokens.UniqueID(ctx, s.repo.ExistsByID)
	if err != nil {
		return nil, err
	}

	inv := invite.Invite{ID: id, InviteCode: code, OneUse: oneUse}
	if err := s.repo.Save(ctx, inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *InviteService) GetInvite(ctx context.Context, executor kernel.AccountID, id string) (*invite.Invite, error) {
	if err := s.requireStaff(ctx, executor, authz.OpGet); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

func (s *InviteService) ListInvites(ctx context.Context, executor kernel.AccountID, opts kernel.PaginationOptions) (*kernel.Paginated[invite.Invite], error) {
	if err := s.requireStaff(ctx, executor, authz.OpGet); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, opts)
}

func (s *InviteService) UpdateInvite(ctx context.Context, executor kernel.AccountID, id string, req invite.UpdateInviteRequest) (*invite.Invite, error) {
	if err := s.requireStaff(ctx, executor, authz.OpUpdate); err != nil {
		return nil, err
	}

	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.InviteCode != nil {
		if *req.InviteCode == "" {
			return nil, invite.ErrInvalidInviteCode()
		}
		inv.InviteCode = *req.InviteCode
	}
	if req.OneUse != nil {
		inv.OneUse = *req.OneUse
	}

	if err := s.repo.Save(ctx, *inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *InviteService) DeleteInvite(ctx context.Context, executor kernel.AccountID, id string) error {
	if err := s.requireStaff(ctx, executor, authz.OpDelete); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	logx.WithFields(logx.Fields{
		"invite_id":  id,
		"deleted_by": executor,
	}).Info("Invite deleted")
	return nil
}
