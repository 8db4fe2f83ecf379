package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/store"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestExistsBy(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM accounts WHERE login = \$1\)`).
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := store.ExistsBy(context.Background(), db, "accounts", "login", "admin")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistsByRejectsUnknownColumn(t *testing.T) {
	db, mock := newMockDB(t)

	_, err := store.ExistsBy(context.Background(), db, "accounts", "password_hash; DROP TABLE accounts", "x")
	assert.True(t, errx.IsCode(err, store.CodeUnknownColumn))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistsByStoreFailure(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT EXISTS`).WillReturnError(errors.New("connection reset"))

	_, err := store.ExistsBy(context.Background(), db, "invites", "invite_code", "WELCOME")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxCommits(t *testing.T) {
	db, mock := newMockDB(t)
	tr := store.NewSQLTransactor(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM invites`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := tr.WithinTx(context.Background(), func(ctx context.Context) error {
		_, err := store.Conn(ctx, db).ExecContext(ctx, `DELETE FROM invites WHERE id = $1`, "inv-1")
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	tr := store.NewSQLTransactor(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := tr.WithinTx(context.Background(), func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxJoinsOuterTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	tr := store.NewSQLTransactor(db)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := tr.WithinTx(context.Background(), func(ctx context.Context) error {
		return tr.WithinTx(ctx, func(context.Context) error { return nil })
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS accounts`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, store.IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, store.IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, store.IsUniqueViolation(errors.New("plain")))
}
