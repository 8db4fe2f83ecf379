package bootstrap

import (
	"context"

	"github.com/Abraxas-365/keygate/pkg/config"
	"github.com/Abraxas-365/keygate/pkg/iam/account"
	"github.com/Abraxas-365/keygate/pkg/iam/client"
	"github.com/Abraxas-365/keygate/pkg/iam/client/clientsrv"
	"github.com/Abraxas-365/keygate/pkg/iam/token"
	"github.com/Abraxas-365/keygate/pkg/kernel"
	"github.com/Abraxas-365/keygate/pkg/logx"
	"github.com/Abraxas-365/keygate/pkg/ptrx"
)

// Seeder creates the reference data every installation needs.
type Seeder struct {
	roles   account.RoleRepository
	clients client.Repository
	service *clientsrv.Service
	tokens  *token.Generator
}

func NewSeeder(roles account.RoleRepository, clients client.Repository, service *clientsrv.Service, tokens *token.Generator) *Seeder {
	return &Seeder{
		roles:   roles,
		clients: clients,
		service: service,
		tokens:  tokens,
	}
}

// SeedRoles creates the default roles that are missing. Existing roles are
// left untouched.
func (s *Seeder) SeedRoles(ctx context.Context) error {
	for _, role := range account.DefaultRoles {
		exists, err := s.roles.ExistsByName(ctx, role.Name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		id, err := s.tokens.UniqueID(ctx, s.roles.ExistsByID)
		if err != nil {
			return err
		}
		role.ID = id
		if err := s.roles.Create(ctx, role); err != nil {
			return err
		}
		logx.WithField("role", role.Name).Info("Role seeded")
	}
	return nil
}

// SeedClient registers the first-party client when it does not exist yet.
// An empty secret registers a no-password client.
func (s *Seeder) SeedClient(ctx context.Context, cfg config.ClientConfig) error {
	name := kernel.ClientName(cfg.Name)
	exists, err := s.clients.ExistsByName(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		logx.WithField("client_name", cfg.Name).Debug("Client already registered")
		return nil
	}

	_, err = s.service.Register(ctx, clientsrv.RegisterRequest{
		Name:        name,
		Secret:      ptrx.NonEmpty(cfg.Secret),
		RedirectURI: cfg.RedirectURI,
	})
	return err
}
