package clientinfra

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/iam/client"
	"github.com/Abraxas-365/keygate/pkg/kernel"
	"github.com/Abraxas-365/keygate/pkg/store"
	"github.com/jmoiron/sqlx"
)

// PostgresClientRepository implementación de PostgreSQL para client.Repository
type PostgresClientRepository struct {
	db *sqlx.DB
}

func NewPostgresClientRepository(db *sqlx.DB) client.Repository {
	return &PostgresClientRepository{db: db}
}

func (r *PostgresClientRepository) Create(ctx context.Context, c client.Client) error {
	query := `
		INSERT INTO clients (id, client_name, password_hash, password_salt, redirect_uri)
		VALUES (:id, :client_name, :password_hash, :password_salt, :redirect_uri)`

	if _, err := sqlx.NamedExecContext(ctx, store.Conn(ctx, r.db), query, c); err != nil {
		if store.IsUniqueViolation(err) {
			return client.ErrAlreadyExists().WithDetail("client_name", c.ClientName.String())
		}
		return errx.Wrap(err, "failed to create client", errx.TypeInternal).
			WithDetail("client_name", c.ClientName.String())
	}
	return nil
}

func (r *PostgresClientRepository) FindByID(ctx context.Context, id string) (*client.Client, error) {
	return r.findOne(ctx, "id", id)
}

// FindByName busca por client_name, que es lo que envían los clientes como client_id
func (r *PostgresClientRepository) FindByName(ctx context.Context, name kernel.ClientName) (*client.Client, error) {
	return r.findOne(ctx, "client_name", name.String())
}

func (r *PostgresClientRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	return store.ExistsBy(ctx, store.Conn(ctx, r.db), "clients", "id", id)
}

func (r *PostgresClientRepository) ExistsByName(ctx context.Context, name kernel.ClientName) (bool, error) {
	return store.ExistsBy(ctx, store.Conn(ctx, r.db), "clients", "client_name", name.String())
}

func (r *PostgresClientRepository) findOne(ctx context.Context, column, value string) (*client.Client, error) {
	query := `
		SELECT id, client_name, password_hash, password_salt, redirect_uri
		FROM clients
		WHERE ` + column + ` = $1`

	var c client.Client
	if err := sqlx.GetContext(ctx, store.Conn(ctx, r.db), &c, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, client.ErrClientNotFound().WithDetail(column, value)
		}
		return nil, errx.Wrap(err, "failed to find client", errx.TypeInternal).
			WithDetail(column, value)
	}
	return &c, nil
}
