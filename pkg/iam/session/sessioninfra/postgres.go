package sessioninfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/iam/session"
	"github.com/Abraxas-365/keygate/pkg/kernel"
	"github.com/Abraxas-365/keygate/pkg/store"
	"github.com/jmoiron/sqlx"
)

const sessionColumns = `id, account_id, access_token, refresh_token, start_date,
	access_token_creation_date, refresh_token_creation_date, last_usage_date`

// PostgresSessionRepository implementación de PostgreSQL para session.Repository
type PostgresSessionRepository struct {
	db *sqlx.DB
}

func NewPostgresSessionRepository(db *sqlx.DB) session.Repository {
	return &PostgresSessionRepository{db: db}
}

// Create inserta una nueva sesión
func (r *PostgresSessionRepository) Create(ctx context.Context, s session.AccountSession) error {
	query := `
		INSERT INTO account_sessions (
			id, account_id, access_token, refresh_token, start_date,
			access_token_creation_date, refresh_token_creation_date, last_usage_date
		) VALUES (
			:id, :account_id, :access_token, :refresh_token, :start_date,
			:access_token_creation_date, :refresh_token_creation_date, :last_usage_date
		)`

	if _, err := sqlx.NamedExecContext(ctx, store.Conn(ctx, r.db), query, s); err != nil {
		return errx.Wrap(err, "failed to create session", errx.TypeInternal).
			WithDetail("account_id", s.AccountID.String())
	}
	return nil
}

func (r *PostgresSessionRepository) FindByID(ctx context.Context, id kernel.SessionID) (*session.AccountSession, error) {
	return r.findOne(ctx, `SELECT `+sessionColumns+` FROM account_sessions WHERE id = $1`, id.String())
}

func (r *PostgresSessionRepository) FindByAccessToken(ctx context.Context, token string) (*session.AccountSession, error) {
	return r.findOne(ctx, `SELECT `+sessionColumns+` FROM account_sessions WHERE access_token = $1`, token)
}

func (r *PostgresSessionRepository) FindByRefreshToken(ctx context.Context, token string) (*session.AccountSession, error) {
	return r.findOne(ctx, `SELECT `+sessionColumns+` FROM account_sessions WHERE refresh_token = $1`, token)
}

// ListByAccount devuelve las sesiones de la cuenta, las más recientes primero
func (r *PostgresSessionRepository) ListByAccount(ctx context.Context, accountID kernel.AccountID) ([]*session.AccountSession, error) {
	query := `SELECT ` + sessionColumns + `
		FROM account_sessions
		WHERE account_id = $1
		ORDER BY last_usage_date DESC`

	var sessions []session.AccountSession
	if err := sqlx.SelectContext(ctx, store.Conn(ctx, r.db), &sessions, query, accountID.String()); err != nil {
		return nil, errx.Wrap(err, "failed to list sessions", errx.TypeInternal).
			WithDetail("account_id", accountID.String())
	}

	result := make([]*session.AccountSession, len(sessions))
	for i := range sessions {
		result[i] = &sessions[i]
	}
	return result, nil
}

// ExistsByToken busca el token en ambas columnas
func (r *PostgresSessionRepository) ExistsByToken(ctx context.Context, token string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM account_sessions WHERE access_token = $1 OR refresh_token = $1)`

	var exists bool
	if err := sqlx.GetContext(ctx, store.Conn(ctx, r.db), &exists, query, token); err != nil {
		return false, errx.Wrap(err, "failed to check token existence", errx.TypeInternal)
	}
	return exists, nil
}

func (r *PostgresSessionRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	return store.ExistsBy(ctx, store.Conn(ctx, r.db), "account_sessions", "id", id)
}

// RotateTokens reemplaza el par de tokens y reinicia ambas fechas de creación
func (r *PostgresSessionRepository) RotateTokens(ctx context.Context, oldRefresh, access, refresh string, at time.Time) error {
	query := `
		UPDATE account_sessions
		SET access_token = $1,
			refresh_token = $2,
			access_token_creation_date = $3,
			refresh_token_creation_date = $3,
			last_usage_date = $3
		WHERE refresh_token = $4`

	if _, err := store.Conn(ctx, r.db).ExecContext(ctx, query, access, refresh, at, oldRefresh); err != nil {
		return errx.Wrap(err, "failed to rotate session tokens", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresSessionRepository) TouchLastUsage(ctx context.Context, id kernel.SessionID, at time.Time) error {
	if _, err := store.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE account_sessions SET last_usage_date = $1 WHERE id = $2`, at, id.String()); err != nil {
		return errx.Wrap(err, "failed to update session last usage", errx.TypeInternal).
			WithDetail("session_id", id.String())
	}
	return nil
}

// Delete es idempotente
func (r *PostgresSessionRepository) Delete(ctx context.Context, id kernel.SessionID) error {
	if _, err := store.Conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM account_sessions WHERE id = $1`, id.String()); err != nil {
		return errx.Wrap(err, "failed to delete session", errx.TypeInternal).
			WithDetail("session_id", id.String())
	}
	return nil
}

func (r *PostgresSessionRepository) DeleteByAccount(ctx context.Context, accountID kernel.AccountID) error {
	if _, err := store.Conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM account_sessions WHERE account_id = $1`, accountID.String()); err != nil {
		return errx.Wrap(err, "failed to delete account sessions", errx.TypeInternal).
			WithDetail("account_id", accountID.String())
	}
	return nil
}

// DeleteRefreshExpired borra en una sola sentencia las sesiones con refresh token vencido
func (r *PostgresSessionRepository) DeleteRefreshExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := store.Conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM account_sessions WHERE refresh_token_creation_date <= $1`, cutoff)
	if err != nil {
		return 0, errx.Wrap(err, "failed to delete expired sessions", errx.TypeInternal)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}
	return rowsAffected, nil
}

func (r *PostgresSessionRepository) findOne(ctx context.Context, query string, arg string) (*session.AccountSession, error) {
	var s session.AccountSession
	if err := sqlx.GetContext(ctx, store.Conn(ctx, r.db), &s, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrSessionNotFound()
		}
		return nil, errx.Wrap(err, "failed to find session", errx.TypeInternal)
	}
	return &s, nil
}
