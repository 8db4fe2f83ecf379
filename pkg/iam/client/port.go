package client

import (
	"context"

	"github.com/Abraxas-365/keygate/pkg/kernel"
)

// Repository persists OAuth2 clients.
type Repository interface {
	Create(ctx context.Context, c Client) error
	FindByID(ctx context.Context, id string) (*Client, error)
	FindByName(ctx context.Context, name kernel.ClientName) (*Client, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	ExistsByName(ctx context.Context, name kernel.ClientName) (bool, error)
}
