package inviteinfra

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/iam/invite"
	"github.com/Abraxas-365/keygate/pkg/kernel"
	"github.com/Abraxas-365/keygate/pkg/store"
	"github.com/jmoiron/sqlx"
)

// PostgresInviteRepository implementación de PostgreSQL para invite.Repository
type PostgresInviteRepository struct {
	db *sqlx.DB
}

// NewPostgresInviteRepository crea una nueva instancia del repositorio de invitaciones
func NewPostgresInviteRepository(db *sqlx.DB) invite.Repository {
	return &PostgresInviteRepository{
		db: db,
	}
}

// FindByID busca una invitación por ID
func (r *PostgresInviteRepository) FindByID(ctx context.Context, id string) (*invite.Invite, error) {
	query := `SELECT id, invite_code, one_use FROM invites WHERE id = $1`

	var inv invite.Invite
	err := sqlx.GetContext(ctx, store.Conn(ctx, r.db), &inv, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invite.ErrInviteNotFound().WithDetail("invite_id", id)
		}
		return nil, errx.Wrap(err, "failed to find invite by id", errx.TypeInternal).
			WithDetail("invite_id", id)
	}

	return &inv, nil
}

// FindByCode busca una invitación por código
func (r *PostgresInviteRepository) FindByCode(ctx context.Context, code string) (*invite.Invite, error) {
	query := `SELECT id, invite_code, one_use FROM invites WHERE invite_code = $1`

	var inv invite.Invite
	err := sqlx.GetContext(ctx, store.Conn(ctx, r.db), &inv, query, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invite.ErrInviteNotFound()
		}
		return nil, errx.Wrap(err, "failed to find invite by code", errx.TypeInternal)
	}

	return &inv, nil
}

// List devuelve una página de invitaciones ordenadas por código
func (r *PostgresInviteRepository) List(ctx context.Context, opts kernel.PaginationOptions) (*kernel.Paginated[invite.Invite], error) {
	page, size, offset := opts.Normalize()
	conn := store.Conn(ctx, r.db)

	var total int
	if err := sqlx.GetContext(ctx, conn, &total, `SELECT COUNT(*) FROM invites`); err != nil {
		return nil, errx.Wrap(err, "failed to count invites", errx.TypeInternal)
	}

	query := `
		SELECT id, invite_code, one_use
		FROM invites
		ORDER BY invite_code
		LIMIT $1 OFFSET $2`

	invites := []invite.Invite{}
	if err := sqlx.SelectContext(ctx, conn, &invites, query, size, offset); err != nil {
		return nil, errx.Wrap(err, "failed to list invites", errx.TypeInternal)
	}

	result := kernel.NewPaginated(invites, page, size, total)
	return &result, nil
}

// Save guarda o actualiza una invitación
func (r *PostgresInviteRepository) Save(ctx context.Context, inv invite.Invite) error {
	// Verificar si la invitación ya existe
	exists, err := r.ExistsByID(ctx, inv.ID)
	if err != nil {
		return err
	}

	if exists {
		return r.update(ctx, inv)
	}
	return r.create(ctx, inv)
}

// create crea una nueva invitación
func (r *PostgresInviteRepository) create(ctx context.Context, inv invite.Invite) error {
	query := `
		INSERT INTO invites (id, invite_code, one_use)
		VALUES (:id, :invite_code, :one_use)`

	_, err := sqlx.NamedExecContext(ctx, store.Conn(ctx, r.db), query, inv)
	if err != nil {
		// Verificar violación de constraint único
		if store.IsUniqueViolation(err) {
			return invite.ErrInviteAlreadyExists().
				WithDetail("invite_code", inv.InviteCode)
		}
		return errx.Wrap(err, "failed to create invite", errx.TypeInternal).
			WithDetail("invite_id", inv.ID)
	}

	return nil
}

// update actualiza una invitación existente
func (r *PostgresInviteRepository) update(ctx context.Context, inv invite.Invite) error {
	query := `
		UPDATE invites SET
			invite_code = :invite_code,
			one_use = :one_use
		WHERE id = :id`

	result, err := sqlx.NamedExecContext(ctx, store.Conn(ctx, r.db), query, inv)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return invite.ErrInviteAlreadyExists().
				WithDetail("invite_code", inv.InviteCode)
		}
		return errx.Wrap(err, "failed to update invite", errx.TypeInternal).
			WithDetail("invite_id", inv.ID)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}

	if rowsAffected == 0 {
		return invite.ErrInviteNotFound().WithDetail("invite_id", inv.ID)
	}

	return nil
}

// Delete elimina una invitación
func (r *PostgresInviteRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM invites WHERE id = $1`

	result, err := store.Conn(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return errx.Wrap(err, "failed to delete invite", errx.TypeInternal).
			WithDetail("invite_id", id)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}

	if rowsAffected == 0 {
		return invite.ErrInviteNotFound().WithDetail("invite_id", id)
	}

	return nil
}

func (r *PostgresInviteRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	return store.ExistsBy(ctx, store.Conn(ctx, r.db), "invites", "id", id)
}

func (r *PostgresInviteRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return store.ExistsBy(ctx, store.Conn(ctx, r.db), "invites", "invite_code", code)
}
