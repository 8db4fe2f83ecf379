package invite

import (
	"context"

	"github.com/Abraxas-365/keygate/pkg/kernel"
)

// Repository define el contrato para la persistencia de invitaciones
type Repository interface {
	// FindByID busca una invitación por ID
	FindByID(ctx context.Context, id string) (*Invite, error)

	// FindByCode busca una invitación por código
	FindByCode(ctx context.Context, code string) (*Invite, error)

	// List devuelve una página de invitaciones
	List(ctx context.Context, opts kernel.PaginationOptions) (*kernel.Paginated[Invite], error)

	// Save guarda o actualiza una invitación
	Save(ctx context.Context, inv Invite) error

	// Delete elimina una invitación
	Delete(ctx context.Context, id string) error

	ExistsByID(ctx context.Context, id string) (bool, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
}
