package bootstrap

import (
	"context"
	"errors"

	"github.com/Abraxas-365/keygate/pkg/config"
	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/iam/account"
	"github.com/Abraxas-365/keygate/pkg/iam/credential"
	"github.com/Abraxas-365/keygate/pkg/iam/invite/invitesrv"
	"github.com/Abraxas-365/keygate/pkg/iam/signup"
	"github.com/Abraxas-365/keygate/pkg/iam/signup/signupsrv"
	"github.com/Abraxas-365/keygate/pkg/iam/token"
	"github.com/Abraxas-365/keygate/pkg/kernel"
	"github.com/Abraxas-365/keygate/pkg/logx"
	"github.com/Abraxas-365/keygate/pkg/store"
)

// Status is the outcome of EnsureAdmin.
type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusUpdated   Status = "UPDATED"
	StatusUnchanged Status = "UNCHANGED"
	StatusConflict  Status = "CONFLICT"
)

// Admin fields tracked by the bootstrap.
const (
	FieldLogin    = "login"
	FieldPassword = "password"
	FieldNickname = "nickname"
	FieldEmail    = "email"
)

// Report describes what EnsureAdmin did. On conflict nothing was changed and
// Conflicts, or Violations for a rejected sign-up, say why.
type Report struct {
	Status     Status           `json:"status"`
	AccountID  kernel.AccountID `json:"account_id,omitempty"`
	Changed    []string         `json:"changed,omitempty"`
	Conflicts  []string         `json:"conflicts,omitempty"`
	Violations []signup.Status  `json:"violations,omitempty"`
}

// Repositories groups the stores the bootstrap reads and updates.
type Repositories struct {
	Accounts    account.Repository
	Profiles    account.ProfileRepository
	Recovery    account.RecoveryRepository
	Roles       account.RoleRepository
	Assignments account.RoleAssignmentRepository
}

// Bootstrapper keeps the configured administrator account in sync.
type Bootstrapper struct {
	repos   Repositories
	invites *invitesrv.InviteService
	signups *signupsrv.Service
	hasher  *credential.Hasher
	tokens  *token.Generator
	tx      store.Transactor
}

func NewBootstrapper(repos Repositories, invites *invitesrv.InviteService, signups *signupsrv.Service, hasher *credential.Hasher, tokens *token.Generator, tx store.Transactor) *Bootstrapper {
	return &Bootstrapper{
		repos:   repos,
		invites: invites,
		signups: signups,
		hasher:  hasher,
		tokens:  tokens,
		tx:      tx,
	}
}

// adminChain is a fully resolved administrator.
type adminChain struct {
	account  *account.Account
	profile  *account.PublicProfile
	recovery *account.RecoveryInfo
}

// errRejected rolls back a creation whose sign-up failed validation.
var errRejected = errors.New("admin sign-up rejected")

// EnsureAdmin creates the administrator described by cfg, or brings the
// existing one in line with it. It is idempotent. Every mutation happens in
// one transaction, and a store failure leaves nothing half-applied.
func (b *Bootstrapper) EnsureAdmin(ctx context.Context, cfg config.AdminConfig) (Report, error) {
	var report Report
	err := b.tx.WithinTx(ctx, func(ctx context.Context) error {
		role, err := b.repos.Roles.FindByName(ctx, account.RoleAdministrator)
		if err != nil {
			return errx.Wrap(err, "administrator role is not seeded", errx.TypeInternal)
		}

		chain, stale, err := b.findAdmin(ctx, role.ID)
		if err != nil {
			return err
		}

		if chain != nil {
			report, err = b.update(ctx, chain, cfg)
			return err
		}

		report, err = b.create(ctx, role.ID, stale, cfg)
		return err
	})
	if errors.Is(err, errRejected) {
		err = nil
	}
	if err != nil {
		return Report{}, err
	}

	b.log(report)
	return report, nil
}

// findAdmin resolves the first administrator whose chain is intact. Assignments
// pointing at missing accounts are returned as stale.
func (b *Bootstrapper) findAdmin(ctx context.Context, roleID string) (*adminChain, []kernel.AccountID, error) {
	holders, err := b.repos.Assignments.FindByRoleID(ctx, roleID)
	if err != nil {
		return nil, nil, err
	}

	var stale []kernel.AccountID
	for _, holder := range holders {
		chain, err := b.resolve(ctx, holder.AccountID)
		if err != nil {
			return nil, nil, err
		}
		if chain != nil {
			return chain, nil, nil
		}
		stale = append(stale, holder.AccountID)
	}
	return nil, stale, nil
}

// resolve returns nil without error when any link is missing.
func (b *Bootstrapper) resolve(ctx context.Context, accountID kernel.AccountID) (*adminChain, error) {
	acc, err := b.repos.Accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, ignoreNotFound(err)
	}
	profile, err := b.repos.Profiles.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, ignoreNotFound(err)
	}
	recovery, err := b.repos.Recovery.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, ignoreNotFound(err)
	}
	return &adminChain{account: acc, profile: profile, recovery: recovery}, nil
}

func ignoreNotFound(err error) error {
	if account.IsNotFound(err) {
		return nil
	}
	return err
}

func (b *Bootstrapper) update(ctx context.Context, chain *adminChain, cfg config.AdminConfig) (Report, error) {
	report := Report{AccountID: chain.account.ID}
	id := chain.account.ID

	type check struct {
		field   string
		differs bool
		taken   func(context.Context, string) (bool, error)
		value   string
	}
	checks := []check{
		{FieldLogin, chain.account.Login != cfg.Login, b.repos.Accounts.ExistsByLogin, cfg.Login},
		{FieldNickname, chain.profile.Nickname != cfg.Nickname, b.repos.Profiles.ExistsByNickname, cfg.Nickname},
		{FieldEmail, chain.recovery.Email != cfg.Email, b.repos.Recovery.ExistsByEmail, cfg.Email},
	}

	// All collisions are checked before anything is written.
	for _, c := range checks {
		if !c.differs {
			continue
		}
		taken, err := c.taken(ctx, c.value)
		if err != nil {
			return Report{}, err
		}
		if taken {
			report.Conflicts = append(report.Conflicts, c.field)
		}
	}
	if len(report.Conflicts) > 0 {
		report.Status = StatusConflict
		return report, nil
	}

	if chain.account.Login != cfg.Login {
		if err := b.repos.Accounts.UpdateLogin(ctx, id, cfg.Login); err != nil {
			return Report{}, err
		}
		report.Changed = append(report.Changed, FieldLogin)
	}

	matches, err := b.hasher.VerifyAsync(ctx, cfg.Password, chain.account.PasswordSalt, chain.account.PasswordHash)
	if err != nil {
		return Report{}, err
	}
	if !matches {
		hash, salt, err := b.hasher.HashAsync(ctx, cfg.Password)
		if err != nil {
			return Report{}, err
		}
		if err := b.repos.Accounts.UpdatePassword(ctx, id, hash, salt); err != nil {
			return Report{}, err
		}
		report.Changed = append(report.Changed, FieldPassword)
	}

	if chain.profile.Nickname != cfg.Nickname {
		if err := b.repos.Profiles.UpdateNickname(ctx, id, cfg.Nickname); err != nil {
			return Report{}, err
		}
		report.Changed = append(report.Changed, FieldNickname)
	}

	if chain.recovery.Email != cfg.Email {
		if err := b.repos.Recovery.UpdateEmail(ctx, id, cfg.Email); err != nil {
			return Report{}, err
		}
		report.Changed = append(report.Changed, FieldEmail)
	}

	report.Status = StatusUnchanged
	if len(report.Changed) > 0 {
		report.Status = StatusUpdated
	}
	return report, nil
}

func (b *Bootstrapper) create(ctx context.Context, roleID string, stale []kernel.AccountID, cfg config.AdminConfig) (Report, error) {
	inv, err := b.invites.Mint(ctx, "", true)
	if err != nil {
		return Report{}, err
	}

	result, acc, err := b.signups.SignUp(ctx, signup.Request{
		Login:           cfg.Login,
		Password:        cfg.Password,
		ConfirmPassword: cfg.Password,
		Nickname:        cfg.Nickname,
		Email:           cfg.Email,
		InviteCode:      inv.InviteCode,
	})
	if err != nil {
		return Report{}, err
	}
	if acc == nil {
		return Report{Status: StatusConflict, Violations: result.Violations()}, errRejected
	}

	for _, accountID := range append(stale, acc.ID) {
		if err := b.repos.Assignments.DeleteByAccountID(ctx, accountID); err != nil {
			return Report{}, err
		}
	}

	assignmentID, err := b.tokens.UniqueID(ctx, b.repos.Assignments.ExistsByID)
	if err != nil {
		return Report{}, err
	}
	if err := b.repos.Assignments.Create(ctx, account.RoleAssignment{
		ID:        assignmentID,
		AccountID: acc.ID,
		RoleID:    roleID,
	}); err != nil {
		return Report{}, err
	}

	return Report{
		Status:    StatusCreated,
		AccountID: acc.ID,
		Changed:   []string{FieldLogin, FieldPassword, FieldNickname, FieldEmail},
	}, nil
}

func (b *Bootstrapper) log(report Report) {
	entry := logx.WithFields(logx.Fields{
		"status":     report.Status,
		"account_id": report.AccountID,
		"changed":    report.Changed,
	})

	switch report.Status {
	case StatusConflict:
		entry.WithFields(logx.Fields{
			"conflicts":  report.Conflicts,
			"violations": report.Violations,
		}).Warn("Administrator left unchanged: configured values collide with existing data")
	case StatusUnchanged:
		entry.Debug("Administrator up to date")
	default:
		entry.Info("Administrator synchronized")
	}
}
