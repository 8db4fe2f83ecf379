package authcodeinfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/iam/authcode"
	"github.com/Abraxas-365/keygate/pkg/store"
	"github.com/jmoiron/sqlx"
)

// PostgresAuthCodeRepository implementación de PostgreSQL para authcode.Repository
type PostgresAuthCodeRepository struct {
	db *sqlx.DB
}

func NewPostgresAuthCodeRepository(db *sqlx.DB) authcode.Repository {
	return &PostgresAuthCodeRepository{db: db}
}

func (r *PostgresAuthCodeRepository) Create(ctx context.Context, c authcode.AuthorizationCode) error {
	query := `
		INSERT INTO auth_codes (id, account_id, code, creation_date)
		VALUES (:id, :account_id, :code, :creation_date)`

	if _, err := sqlx.NamedExecContext(ctx, store.Conn(ctx, r.db), query, c); err != nil {
		return errx.Wrap(err, "failed to create auth code", errx.TypeInternal).
			WithDetail("account_id", c.AccountID.String())
	}
	return nil
}

func (r *PostgresAuthCodeRepository) FindByCode(ctx context.Context, code string) (*authcode.AuthorizationCode, error) {
	query := `SELECT id, account_id, code, creation_date FROM auth_codes WHERE code = $1`

	var c authcode.AuthorizationCode
	if err := sqlx.GetContext(ctx, store.Conn(ctx, r.db), &c, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authcode.ErrNotFound()
		}
		return nil, errx.Wrap(err, "failed to find auth code", errx.TypeInternal)
	}
	return &c, nil
}

func (r *PostgresAuthCodeRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return store.ExistsBy(ctx, store.Conn(ctx, r.db), "auth_codes", "code", code)
}

func (r *PostgresAuthCodeRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	return store.ExistsBy(ctx, store.Conn(ctx, r.db), "auth_codes", "id", id)
}

// Delete es idempotente; devuelve false si otro llamador ya lo borró
func (r *PostgresAuthCodeRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := store.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM auth_codes WHERE id = $1`, id)
	if err != nil {
		return false, errx.Wrap(err, "failed to delete auth code", errx.TypeInternal).
			WithDetail("auth_code_id", id)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}
	return rowsAffected == 1, nil
}

// DeleteExpired borra en una sola sentencia los códigos vencidos
func (r *PostgresAuthCodeRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := store.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM auth_codes WHERE creation_date <= $1`, cutoff)
	if err != nil {
		return 0, errx.Wrap(err, "failed to delete expired auth codes", errx.TypeInternal)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}
	return rowsAffected, nil
}
