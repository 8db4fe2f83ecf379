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

// PostgresRecoveryRepository implementación de PostgreSQL para account.RecoveryRepository
type PostgresRecoveryRepository struct {
	db *sqlx.DB
}

func NewPostgresRecoveryRepository(db *sqlx.DB) account.RecoveryRepository {
	return &PostgresRecoveryRepository{db: db}
}

// Create inserta los datos de recuperación
func (r *PostgresRecoveryRepository) Create(ctx context.Context, rec account.RecoveryInfo) error {
	query := `
		INSERT INTO recovery_user_infos (id, account_id, email, phone)
		VALUES (:id, :account_id, :email, :phone)`

	if _, err := sqlx.NamedExecContext(ctx, store.Conn(ctx, r.db), query, rec); err != nil {
		if store.IsUniqueViolation(err) {
			return account.ErrAlreadyExists().WithDetail("email", rec.Email)
		}
		return errx.Wrap(err, "failed to create recovery info", errx.TypeInternal).
			WithDetail("account_id", rec.AccountID.String())
	}
	return nil
}

// FindByAccountID busca los datos de recuperación de una cuenta
func (r *PostgresRecoveryRepository) FindByAccountID(ctx context.Context, accountID kernel.AccountID) (*account.RecoveryInfo, error) {
	query := `SELECT id, account_id, email, phone FROM recovery_user_infos WHERE account_id = $1`

	var rec account.RecoveryInfo
	if err := sqlx.GetContext(ctx, store.Conn(ctx, r.db), &rec, query, accountID.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrRecoveryNotFound().WithDetail("account_id", accountID.String())
		}
		return nil, errx.Wrap(err, "failed to find recovery info", errx.TypeInternal).
			WithDetail("account_id", accountID.String())
	}
	return &rec, nil
}

func (r *PostgresRecoveryRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	return store.ExistsBy(ctx, store.Conn(ctx, r.db), "recovery_user_infos", "id", id)
}

func (r *PostgresRecoveryRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return store.ExistsBy(ctx, store.Conn(ctx, r.db), "recovery_user_infos", "email", email)
}

// UpdateEmail cambia el email de recuperación
func (r *PostgresRecoveryRepository) UpdateEmail(ctx context.Context, accountID kernel.AccountID, email string) error {
	result, err := store.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE recovery_user_infos SET email = $1 WHERE account_id = $2`, email, accountID.String())
	if err != nil {
		if store.IsUniqueViolation(err) {
			return account.ErrAlreadyExists().WithDetail("email", email)
		}
		return errx.Wrap(err, "failed to update email", errx.TypeInternal).
			WithDetail("account_id", accountID.String())
	}
	return requireAffected(result, account.ErrRecoveryNotFound().WithDetail("account_id", accountID.String()))
}
