package authcodesrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/keygate/pkg/iam/authcode"
	"github.com/Abraxas-365/keygate/pkg/iam/token"
	"github.com/Abraxas-365/keygate/pkg/kernel"
	"github.com/Abraxas-365/keygate/pkg/logx"
)

// Service issues authorization codes for already authenticated accounts.
type Service struct {
	repo     authcode.Repository
	tokens   *token.Generator
	lifetime time.Duration
	now      func() time.Time
}

func NewService(repo authcode.Repository, tokens *token.Generator, lifetime time.Duration) *Service {
	return &Service{
		repo:     repo,
		tokens:   tokens,
		lifetime: lifetime,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source. For tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Issue allocates a unique id and code for accountID and stores it with
// creation_date = now.
func (s *Service) Issue(ctx context.Context, accountID kernel.AccountID) (*authcode.AuthorizationCode, error) {
	id, err := s.tokens.UniqueID(ctx, s.repo.ExistsByID)
	if err != nil {
		return nil, err
	}

	code, err := s.tokens.Unique(ctx, s.repo.ExistsByCode)
	if err != nil {
		return nil, err
	}

	c := authcode.AuthorizationCode{
		ID:           id,
		AccountID:    accountID,
		Code:         code,
		CreationDate: s.now(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	logx.WithFields(logx.Fields{
		"account_id":   accountID,
		"auth_code_id": id,
	}).Debug("Authorization code issued")

	return &c, nil
}

// Lifetime returns how long issued codes stay valid.
func (s *Service) Lifetime() time.Duration {
	return s.lifetime
}
