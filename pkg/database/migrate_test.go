package database

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"regexp"
	"testing"
	"testing/fstest"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

var (
	createTrackingSQL = regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")
	checkAppliedSQL   = regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)")
	recordSQL         = regexp.QuoteMeta("INSERT INTO schema_migrations (version) VALUES ($1)")
)

func migrationFS() fstest.MapFS {
	return fstest.MapFS{
		"002_business_index.up.sql": {Data: []byte("CREATE INDEX b_idx ON businesses (id)")},
		"001_businesses.up.sql":     {Data: []byte("CREATE TABLE businesses (id BIGINT PRIMARY KEY)")},
		"001_businesses.down.sql":   {Data: []byte("DROP TABLE businesses")},
		"README.md":                 {Data: []byte("ignored")},
	}
}

func TestRunMigrations_AppliesInOrder(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(createTrackingSQL).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	mock.ExpectQuery(checkAppliedSQL).WithArgs("001_businesses.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE businesses")).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(recordSQL).WithArgs("001_businesses.up.sql").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	mock.ExpectQuery(checkAppliedSQL).WithArgs("002_business_index.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	require.NoError(t, RunMigrations(context.Background(), mock, migrationFS(), testLogger()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_SQLErrorRollsBackWithoutRetry(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(createTrackingSQL).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(checkAppliedSQL).WithArgs("001_businesses.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE businesses")).WillReturnError(errors.New("syntax error at or near"))
	mock.ExpectRollback()

	err = RunMigrations(context.Background(), mock, migrationFS(), testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execute migration 001_businesses.up.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_TrackingTableFailure(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(createTrackingSQL).WillReturnError(errors.New("permission denied"))

	err = RunMigrations(context.Background(), mock, migrationFS(), testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema_migrations")
}
