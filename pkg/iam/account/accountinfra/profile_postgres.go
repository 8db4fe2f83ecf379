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

// PostgresProfileRepository implementación de PostgreSQL para account.ProfileRepository
type PostgresProfileRepository struct {
	db *sqlx.DB
}

func NewPostgresProfileRepository(db *sqlx.DB) account.ProfileRepository {
	return &PostgresProfileRepository{db: db}
}

// Create inserta el perfil público
func (r *PostgresProfileRepository) Create(ctx context.Context, p account.PublicProfile) error {
	query := `
		INSERT INTO public_user_infos (id, account_id, nickname, info)
		VALUES (:id, :account_id, :nickname, :info)`

	if _, err := sqlx.NamedExecContext(ctx, store.Conn(ctx, r.db), query, p); err != nil {
		if store.IsUniqueViolation(err) {
			return account.ErrAlreadyExists().WithDetail("nickname", p.Nickname)
		}
		return errx.Wrap(err, "failed to create public profile", errx.TypeInternal).
			WithDetail("account_id", p.AccountID.String())
	}
	return nil
}

// FindByAccountID busca el perfil de una cuenta
func (r *PostgresProfileRepository) FindByAccountID(ctx context.Context, accountID kernel.AccountID) (*account.PublicProfile, error) {
	query := `SELECT id, account_id, nickname, info FROM public_user_infos WHERE account_id = $1`

	var p account.PublicProfile
	if err := sqlx.GetContext(ctx, store.Conn(ctx, r.db), &p, query, accountID.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrProfileNotFound().WithDetail("account_id", accountID.String())
		}
		return nil, errx.Wrap(err, "failed to find public profile", errx.TypeInternal).
			WithDetail("account_id", accountID.String())
	}
	return &p, nil
}

func (r *PostgresProfileRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	return store.ExistsBy(ctx, store.Conn(ctx, r.db), "public_user_infos", "id", id)
}

func (r *PostgresProfileRepository) ExistsByNickname(ctx context.Context, nickname string) (bool, error) {
	return store.ExistsBy(ctx, store.Conn(ctx, r.db), "public_user_infos", "nickname", nickname)
}

// UpdateNickname cambia el nickname de una cuenta
func (r *PostgresProfileRepository) UpdateNickname(ctx context.Context, accountID kernel.AccountID, nickname string) error {
	result, err := store.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE public_user_infos SET nickname = $1 WHERE account_id = $2`, nickname, accountID.String())
	if err != nil {
		if store.IsUniqueViolation(err) {
			return account.ErrAlreadyExists().WithDetail("nickname", nickname)
		}
		return errx.Wrap(err, "failed to update nickname", errx.TypeInternal).
			WithDetail("account_id", accountID.String())
	}
	return requireAffected(result, account.ErrProfileNotFound().WithDetail("account_id", accountID.String()))
}

// UpdateInfo cambia el texto libre del perfil
func (r *PostgresProfileRepository) UpdateInfo(ctx context.Context, accountID kernel.AccountID, info string) error {
	result, err := store.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE public_user_infos SET info = $1 WHERE account_id = $2`, info, accountID.String())
	if err != nil {
		return errx.Wrap(err, "failed to update profile info", errx.TypeInternal).
			WithDetail("account_id", accountID.String())
	}
	return requireAffected(result, account.ErrProfileNotFound().WithDetail("account_id", accountID.String()))
}
