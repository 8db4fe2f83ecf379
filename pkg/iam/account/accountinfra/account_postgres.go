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

// PostgresAccountRepository implementación de PostgreSQL para account.Repository
type PostgresAccountRepository struct {
	db *sqlx.DB
}

// NewPostgresAccountRepository crea una nueva instancia del repositorio de cuentas
func NewPostgresAccountRepository(db *sqlx.DB) account.Repository {
	return &PostgresAccountRepository{db: db}
}

// Create inserta una cuenta nueva
func (r *PostgresAccountRepository) Create(ctx context.Context, acc account.Account) error {
	query := `
		INSERT INTO accounts (id, login, password_hash, password_salt)
		VALUES (:id, :login, :password_hash, :password_salt)`

	if _, err := sqlx.NamedExecContext(ctx, store.Conn(ctx, r.db), query, acc); err != nil {
		if store.IsUniqueViolation(err) {
			return account.ErrAlreadyExists().WithDetail("login", acc.Login)
		}
		return errx.Wrap(err, "failed to create account", errx.TypeInternal).
			WithDetail("account_id", acc.ID.String())
	}
	return nil
}

// FindByID busca una cuenta por ID
func (r *PostgresAccountRepository) FindByID(ctx context.Context, id kernel.AccountID) (*account.Account, error) {
	query := `SELECT id, login, password_hash, password_salt FROM accounts WHERE id = $1`

	var acc account.Account
	if err := sqlx.GetContext(ctx, store.Conn(ctx, r.db), &acc, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrAccountNotFound().WithDetail("account_id", id.String())
		}
		return nil, errx.Wrap(err, "failed to find account by id", errx.TypeInternal).
			WithDetail("account_id", id.String())
	}
	return &acc, nil
}

// FindByLogin busca una cuenta por login (sensible a mayúsculas)
func (r *PostgresAccountRepository) FindByLogin(ctx context.Context, login string) (*account.Account, error) {
	query := `SELECT id, login, password_hash, password_salt FROM accounts WHERE login = $1`

	var acc account.Account
	if err := sqlx.GetContext(ctx, store.Conn(ctx, r.db), &acc, query, login); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrAccountNotFound().WithDetail("login", login)
		}
		return nil, errx.Wrap(err, "failed to find account by login", errx.TypeInternal)
	}
	return &acc, nil
}

// ExistsByID verifica si existe una cuenta con ese ID
func (r *PostgresAccountRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	return store.ExistsBy(ctx, store.Conn(ctx, r.db), "accounts", "id", id)
}

// ExistsByLogin verifica si el login ya está en uso
func (r *PostgresAccountRepository) ExistsByLogin(ctx context.Context, login string) (bool, error) {
	return store.ExistsBy(ctx, store.Conn(ctx, r.db), "accounts", "login", login)
}

// UpdateLogin cambia el login de una cuenta
func (r *PostgresAccountRepository) UpdateLogin(ctx context.Context, id kernel.AccountID, login string) error {
	result, err := store.Conn(ctx, r.db).ExecContext(ctx, `UPDATE accounts SET login = $1 WHERE id = $2`, login, id.String())
	if err != nil {
		if store.IsUniqueViolation(err) {
			return account.ErrAlreadyExists().WithDetail("login", login)
		}
		return errx.Wrap(err, "failed to update login", errx.TypeInternal).
			WithDetail("account_id", id.String())
	}
	return requireAffected(result, account.ErrAccountNotFound().WithDetail("account_id", id.String()))
}

// UpdatePassword reemplaza hash y salt de una cuenta
func (r *PostgresAccountRepository) UpdatePassword(ctx context.Context, id kernel.AccountID, hash, salt string) error {
	result, err := store.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE accounts SET password_hash = $1, password_salt = $2 WHERE id = $3`, hash, salt, id.String())
	if err != nil {
		return errx.Wrap(err, "failed to update password", errx.TypeInternal).
			WithDetail("account_id", id.String())
	}
	return requireAffected(result, account.ErrAccountNotFound().WithDetail("account_id", id.String()))
}

// requireAffected devuelve notFound si la sentencia no tocó ninguna fila
func requireAffected(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
