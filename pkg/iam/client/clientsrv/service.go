package clientsrv

import (
	"context"

	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/iam/client"
	"github.com/Abraxas-365/keygate/pkg/iam/credential"
	"github.com/Abraxas-365/keygate/pkg/iam/token"
	"github.com/Abraxas-365/keygate/pkg/kernel"
	"github.com/Abraxas-365/keygate/pkg/logx"
)

// Validator decides whether a grant request comes from an acceptable client.
type Validator struct {
	repo   client.Repository
	hasher *credential.Hasher
}

func NewValidator(repo client.Repository, hasher *credential.Hasher) *Validator {
	return &Validator{repo: repo, hasher: hasher}
}

// Validate accepts an absent client id unconditionally (first-party trust).
// Otherwise the named client must exist and, unless it is a no-password client,
// the secret must verify against its stored hash.
// Rejections return client.ErrInvalidCredentials; store failures are returned as is.
func (v *Validator) Validate(ctx context.Context, clientID, clientSecret *string) error {
	if clientID == nil {
		return nil
	}

	c, err := v.repo.FindByName(ctx, kernel.ClientName(*clientID))
	if err != nil {
		if errx.IsCode(err, client.CodeClientNotFound) {
			return client.ErrInvalidCredentials()
		}
		return err
	}

	if c.NoPassword() {
		return nil
	}
	if clientSecret == nil {
		return client.ErrInvalidCredentials()
	}

	ok, err := v.hasher.VerifyAsync(ctx, *clientSecret, *c.PasswordSalt, *c.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return client.ErrInvalidCredentials()
	}
	return nil
}

// Service manages client registration.
type Service struct {
	repo   client.Repository
	hasher *credential.Hasher
	tokens *token.Generator
}

func NewService(repo client.Repository, hasher *credential.Hasher, tokens *token.Generator) *Service {
	return &Service{repo: repo, hasher: hasher, tokens: tokens}
}

// RegisterRequest describes a new client. A nil Secret registers a no-password client.
type RegisterRequest struct {
	Name        kernel.ClientName
	Secret      *string
	RedirectURI string
}

// Register creates a client. It fails with client.ErrAlreadyExists when the name is taken.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*client.Client, error) {
	exists, err := s.repo.ExistsByName(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, client.ErrAlreadyExists().WithDetail("client_name", req.Name.String())
	}

	id, err := s.tokens.UniqueID(ctx, s.repo.ExistsByID)
	if err != nil {
		return nil, err
	}

	c := client.Client{
		ID:          id,
		ClientName:  req.Name,
		RedirectURI: req.RedirectURI,
	}

	if req.Secret != nil {
		hash, salt, err := s.hasher.HashAsync(ctx, *req.Secret)
		if err != nil {
			return nil, err
		}
		c.PasswordHash = &hash
		c.PasswordSalt = &salt
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	logx.WithFields(logx.Fields{
		"client_name": c.ClientName,
		"no_password": c.NoPassword(),
	}).Info("Client registered")

	return &c, nil
}
