// Package store is the relational accessor shared by every repository.
// Repositories resolve their connection through Conn so the same code runs
// against the pool or inside a transaction opened by a Transactor.
package store

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"

	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/logx"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("STORE")

var (
	CodeUnknownColumn = ErrRegistry.Register("UNKNOWN_COLUMN", errx.TypeInternal, http.StatusInternalServerError, "Lookup on a column that is not indexed for existence checks")
	CodeTxFailed      = ErrRegistry.Register("TX_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Transaction failed")
	CodeMigration     = ErrRegistry.Register("MIGRATION_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Schema migration failed")
)

func ErrUnknownColumn() *errx.Error { return ErrRegistry.New(CodeUnknownColumn) }
func ErrTxFailed() *errx.Error      { return ErrRegistry.New(CodeTxFailed) }

// ============================================================================
// Connection resolution
// ============================================================================

type txKey struct{}

// Conn returns the transaction carried by ctx, or db when there is none.
func Conn(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

// Transactor runs fn atomically. Repositories called with the ctx passed to fn
// join the transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SQLTransactor implements Transactor on a sqlx pool.
type SQLTransactor struct {
	db *sqlx.DB
}

func NewSQLTransactor(db *sqlx.DB) *SQLTransactor {
	return &SQLTransactor{db: db}
}

// WithinTx begins a transaction, or joins the one already in ctx.
func (t *SQLTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return errx.Wrap(err, "failed to begin transaction", errx.TypeInternal)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logx.WithError(rbErr).Error("Transaction rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return ErrRegistry.NewWithCause(CodeTxFailed, err)
	}
	return nil
}

// NopTransactor runs fn directly. For in-memory repositories.
type NopTransactor struct{}

func (NopTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ============================================================================
// Generic existence checks
// ============================================================================

// existsColumns lists every (table, column) pair ExistsBy may be asked about.
// Table and column names are interpolated, so nothing outside this set is allowed.
var existsColumns = map[string]map[string]bool{
	"accounts":            {"id": true, "login": true},
	"clients":             {"id": true, "client_name": true},
	"account_sessions":    {"id": true, "access_token": true, "refresh_token": true},
	"auth_codes":          {"id": true, "code": true},
	"roles":               {"id": true, "name": true},
	"roles_user_infos":    {"id": true, "account_id": true},
	"invites":             {"id": true, "invite_code": true},
	"public_user_infos":   {"id": true, "account_id": true, "nickname": true},
	"recovery_user_infos": {"id": true, "account_id": true, "email": true},
}

// ExistsBy reports whether a row with column = value exists in table.
func ExistsBy(ctx context.Context, q sqlx.QueryerContext, table, column string, value any) (bool, error) {
	if !existsColumns[table][column] {
		return false, ErrUnknownColumn().
			WithDetail("table", table).
			WithDetail("column", column)
	}

	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE %s = $1)`, table, column)

	var exists bool
	if err := sqlx.GetContext(ctx, q, &exists, query, value); err != nil {
		return false, errx.Wrap(err, "failed to check existence", errx.TypeInternal).
			WithDetail("table", table).
			WithDetail("column", column)
	}
	return exists, nil
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errx.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// ============================================================================
// Schema
// ============================================================================

//go:embed schema.sql
var schema string

// Migrate creates every table and index that does not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return ErrRegistry.NewWithCause(CodeMigration, err)
	}
	return nil
}
