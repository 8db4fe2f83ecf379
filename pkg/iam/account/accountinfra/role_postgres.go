package accountinfra

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/iam/account"
	"github.com/Abraxas-365/keygate/pkg/kernel"
	"github.com/Abraxas-365/keygate/pkg/store"
	"github.com/jmoiron/sqlx"
)

// PostgresRoleRepository implementación de PostgreSQL para account.RoleRepository
type PostgresRoleRepository struct {
	db *sqlx.DB
}

func NewPostgresRoleRepository(db *sqlx.DB) account.RoleRepository {
	return &PostgresRoleRepository{db: db}
}

func (r *PostgresRoleRepository) Create(ctx context.Context, role account.Role) error {
	query := `INSERT INTO roles (id, name, tags) VALUES (:id, :name, :tags)`

	if _, err := sqlx.NamedExecContext(ctx, store.Conn(ctx, r.db), query, role); err != nil {
		if store.IsUniqueViolation(err) {
			return account.ErrAlreadyExists().WithDetail("role", role.Name)
		}
		return errx.Wrap(err, "failed to create role", errx.TypeInternal).
			WithDetail("role", role.Name)
	}
	return nil
}

func (r *PostgresRoleRepository) FindByID(ctx context.Context, id string) (*account.Role, error) {
	return r.findOne(ctx, `SELECT id, name, tags FROM roles WHERE id = $1`, "role_id", id)
}

func (r *PostgresRoleRepository) FindByName(ctx context.Context, name string) (*account.Role, error) {
	return r.findOne(ctx, `SELECT id, name, tags FROM roles WHERE name = $1`, "role", name)
}

func (r *PostgresRoleRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	return store.ExistsBy(ctx, store.Conn(ctx, r.db), "roles", "id", id)
}

func (r *PostgresRoleRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	return store.ExistsBy(ctx, store.Conn(ctx, r.db), "roles", "name", name)
}

func (r *PostgresRoleRepository) findOne(ctx context.Context, query, detail, value string) (*account.Role, error) {
	var role account.Role
	if err := sqlx.GetContext(ctx, store.Conn(ctx, r.db), &role, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrRoleNotFound().WithDetail(detail, value)
		}
		return nil, errx.Wrap(err, "failed to find role", errx.TypeInternal).
			WithDetail(detail, value)
	}
	return &role, nil
}

// PostgresRoleAssignmentRepository implementación de PostgreSQL para account.RoleAssignmentRepository
type PostgresRoleAssignmentRepository struct {
	db *sqlx.DB
}

func NewPostgresRoleAssignmentRepository(db *sqlx.DB) account.RoleAssignmentRepository {
	return &PostgresRoleAssignmentRepository{db: db}
}

func (r *PostgresRoleAssignmentRepository) Create(ctx context.Context, a account.RoleAssignment) error {
	query := `
		INSERT INTO roles_user_infos (id, account_id, role_id, params)
		VALUES (:id, :account_id, :role_id, :params)`

	if _, err := sqlx.NamedExecContext(ctx, store.Conn(ctx, r.db), query, a); err != nil {
		return errx.Wrap(err, "failed to create role assignment", errx.TypeInternal).
			WithDetail("account_id", a.AccountID.String())
	}
	return nil
}

// FindByAccountID devuelve la asignación de la cuenta; en la práctica hay a lo sumo una
func (r *PostgresRoleAssignmentRepository) FindByAccountID(ctx context.Context, accountID kernel.AccountID) (*account.RoleAssignment, error) {
	query := `
		SELECT id, account_id, role_id, params
		FROM roles_user_infos
		WHERE account_id = $1
		ORDER BY id
		LIMIT 1`

	var a account.RoleAssignment
	if err := sqlx.GetContext(ctx, store.Conn(ctx, r.db), &a, query, accountID.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrAssignmentNotFound().WithDetail("account_id", accountID.String())
		}
		return nil, errx.Wrap(err, "failed to find role assignment", errx.TypeInternal).
			WithDetail("account_id", accountID.String())
	}
	return &a, nil
}

// FindByRoleID lista las asignaciones de un rol
func (r *PostgresRoleAssignmentRepository) FindByRoleID(ctx context.Context, roleID string) ([]*account.RoleAssignment, error) {
	query := `
		SELECT id, account_id, role_id, params
		FROM roles_user_infos
		WHERE role_id = $1
		ORDER BY id`

	var assignments []account.RoleAssignment
	if err := sqlx.SelectContext(ctx, store.Conn(ctx, r.db), &assignments, query, roleID); err != nil {
		return nil, errx.Wrap(err, "failed to find role assignments", errx.TypeInternal).
			WithDetail("role_id", roleID)
	}

	// Convertir a slice de punteros
	result := make([]*account.RoleAssignment, len(assignments))
	for i := range assignments {
		result[i] = &assignments[i]
	}
	return result, nil
}

func (r *PostgresRoleAssignmentRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	return store.ExistsBy(ctx, store.Conn(ctx, r.db), "roles_user_infos", "id", id)
}

// DeleteByAccountID elimina todas las asignaciones de la cuenta (idempotente)
func (r *PostgresRoleAssignmentRepository) DeleteByAccountID(ctx context.Context, accountID kernel.AccountID) error {
	if _, err := store.Conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM roles_user_infos WHERE account_id = $1`, accountID.String()); err != nil {
		return errx.Wrap(err, "failed to delete role assignments", errx.TypeInternal).
			WithDetail("account_id", accountID.String())
	}
	return nil
}
