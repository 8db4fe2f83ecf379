package authz

import (
	"context"

	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/iam/account"
	"github.com/Abraxas-365/keygate/pkg/kernel"
)

// Engine resolves the role stage of every authorization decision.
type Engine struct {
	assignments account.RoleAssignmentRepository
	roles       account.RoleRepository
}

// NewEngine builds an Engine. roles is usually an accountinfra.CachedRoleRepository.
func NewEngine(assignments account.RoleAssignmentRepository, roles account.RoleRepository) *Engine {
	return &Engine{assignments: assignments, roles: roles}
}

// RoleOf returns the role name of the account, or "" when it has none.
func (e *Engine) RoleOf(ctx context.Context, accountID kernel.AccountID) (string, error) {
	assignment, err := e.assignments.FindByAccountID(ctx, accountID)
	if err != nil {
		if errx.IsCode(err, account.CodeAssignmentNotFound) {
			return "", nil
		}
		return "", err
	}

	role, err := e.roles.FindByID(ctx, assignment.RoleID)
	if err != nil {
		if errx.IsCode(err, account.CodeRoleNotFound) {
			return "", nil
		}
		return "", err
	}
	return role.Name, nil
}

// BasicCheck is the global role short-circuit:
// user defers as Other, administrator and moderator are allowed,
// anything else is denied as Nobody.
func (e *Engine) BasicCheck(ctx context.Context, executor kernel.AccountID) (Outcome, Actor, error) {
	role, err := e.RoleOf(ctx, executor)
	if err != nil {
		return Deny, Nobody, err
	}

	switch role {
	case account.RoleUser:
		return Defer, Other, nil
	case account.RoleAdministrator:
		return Allow, Admin, nil
	case account.RoleModerator:
		return Allow, Moderator, nil
	default:
		return Deny, Nobody, nil
	}
}

// AdminOrModerator reports whether the executor holds a staff role.
func (e *Engine) AdminOrModerator(ctx context.Context, executor kernel.AccountID) (bool, Actor, error) {
	outcome, actor, err := e.BasicCheck(ctx, executor)
	if err != nil {
		return false, Nobody, err
	}
	return outcome == Allow, actor, nil
}
