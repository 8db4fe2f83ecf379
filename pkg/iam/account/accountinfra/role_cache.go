package accountinfra

import (
	"context"
	"time"

	"github.com/Abraxas-365/keygate/pkg/iam/account"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedRoleRepository guarda en memoria las búsquedas de roles.
// Los roles son datos de referencia que sólo se crean al arrancar,
// por eso un LRU con expiración basta.
type CachedRoleRepository struct {
	inner  account.RoleRepository
	byID   *lru.LRU[string, account.Role]
	byName *lru.LRU[string, account.Role]
}

// NewCachedRoleRepository envuelve inner con un cache de tamaño size y expiración ttl
func NewCachedRoleRepository(inner account.RoleRepository, size int, ttl time.Duration) *CachedRoleRepository {
	return &CachedRoleRepository{
		inner:  inner,
		byID:   lru.NewLRU[string, account.Role](size, nil, ttl),
		byName: lru.NewLRU[string, account.Role](size, nil, ttl),
	}
}

func (c *CachedRoleRepository) Create(ctx context.Context, role account.Role) error {
	if err := c.inner.Create(ctx, role); err != nil {
		return err
	}
	c.remember(role)
	return nil
}

func (c *CachedRoleRepository) FindByID(ctx context.Context, id string) (*account.Role, error) {
	if role, ok := c.byID.Get(id); ok {
		return &role, nil
	}
	role, err := c.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.remember(*role)
	return role, nil
}

func (c *CachedRoleRepository) FindByName(ctx context.Context, name string) (*account.Role, error) {
	if role, ok := c.byName.Get(name); ok {
		return &role, nil
	}
	role, err := c.inner.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	c.remember(*role)
	return role, nil
}

func (c *CachedRoleRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	if _, ok := c.byID.Get(id); ok {
		return true, nil
	}
	return c.inner.ExistsByID(ctx, id)
}

func (c *CachedRoleRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	if _, ok := c.byName.Get(name); ok {
		return true, nil
	}
	return c.inner.ExistsByName(ctx, name)
}

func (c *CachedRoleRepository) remember(role account.Role) {
	c.byID.Add(role.ID, role)
	c.byName.Add(role.Name, role)
}
