package cache

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupExecutor(t *testing.T) (*CachingExecutor, sqlmock.Sqlmock, *SemanticQueryCache) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { _ = sqlxDB.Close() })

	c := setupTestCache(t, nil)
	executor, err := NewCachingExecutor(sqlxDB, c, nil)
	require.NoError(t, err)

	return executor, mock, c
}

func TestCachingExecutorQuery(t *testing.T) {
	executor, mock, c := setupExecutor(t)
	ctx := context.Background()

	query := "SELECT id, email FROM users WHERE email = ?"
	mock.ExpectQuery(query).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow(int64(1), "alice@example.com"))

	rows, err := executor.Query(ctx, query, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "alice@example.com", rows[0]["email"])
	assert.Equal(t, 1, c.Stats().TotalEntries)

	// A semantically equivalent query is served from cache; no second
	// database expectation exists, so touching the DB would fail the test.
	cached, err := executor.Query(ctx, query, "bob@other.org")
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, "alice@example.com", cached[0]["email"])

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, int64(1), c.Stats().TotalHits)
}

func TestCachingExecutorExecInvalidates(t *testing.T) {
	executor, mock, c := setupExecutor(t)
	ctx := context.Background()

	query := "SELECT id FROM users WHERE id = ?"
	rows := sqlmock.NewRows([]string{"id"}).AddRow(int64(1))
	mock.ExpectQuery(query).WillReturnRows(rows)

	_, err := executor.Query(ctx, query, 1)
	require.NoError(t, err)
	require.Equal(t, 1, c.Stats().TotalEntries)

	stmt := "UPDATE users SET email = ? WHERE id = ?"
	mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := executor.Exec(ctx, stmt, "new@example.com", 1)
	require.NoError(t, err)
	affected, err := result.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	assert.Equal(t, 0, c.Stats().TotalEntries, "mutation invalidates cached readers of the table")

	// The next read goes back to the database.
	mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	_, err = executor.Query(ctx, query, 1)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachingExecutorQueryError(t *testing.T) {
	executor, mock, _ := setupExecutor(t)

	query := "SELECT * FROM broken"
	mock.ExpectQuery(query).WillReturnError(assert.AnError)

	_, err := executor.Query(context.Background(), query)
	assert.Error(t, err)
}

func TestNewCachingExecutorValidation(t *testing.T) {
	c := setupTestCache(t, nil)

	_, err := NewCachingExecutor(nil, c, nil)
	assert.Error(t, err)

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	defer func() { _ = sqlxDB.Close() }()

	_, err = NewCachingExecutor(sqlxDB, nil, nil)
	assert.Error(t, err)
}

func TestReferencedTables(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"single table", "SELECT * FROM users WHERE id = ?", []string{"USERS"}},
		{"join", "SELECT * FROM orders o JOIN users u ON o.user_id = u.id", []string{"ORDERS", "USERS"}},
		{"duplicate refs deduped", "SELECT * FROM users u1 JOIN users u2 ON u1.id = u2.ref", []string{"USERS"}},
		{"no tables", "SELECT 1", nil},
		{"punctuation trimmed", "SELECT * FROM users;", []string{"USERS"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, referencedTables(tt.query))
		})
	}
}

func TestMutatedTables(t *testing.T) {
	tests := []struct {
		name string
		stmt string
		want []string
	}{
		{"insert", "INSERT INTO users (email) VALUES (?)", []string{"USERS"}},
		{"update", "UPDATE orders SET status = ? WHERE id = ?", []string{"ORDERS"}},
		{"delete", "DELETE FROM sessions WHERE created_at < ?", []string{"SESSIONS"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mutatedTables(tt.stmt))
		})
	}
}
