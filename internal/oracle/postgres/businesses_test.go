package postgres

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"regexp"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/reviewregistry/internal/domain"
	"github.com/utafrali/reviewregistry/pkg/database"
)

func setupDirectory(t *testing.T) (*BusinessDirectory, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewBusinessDirectory(mock), mock
}

func TestBusinessDirectory_IsRegistered(t *testing.T) {
	tests := []struct {
		name   string
		exists bool
	}{
		{"registered", true},
		{"unknown", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, mock := setupDirectory(t)
			mock.ExpectQuery(regexp.QuoteMeta(isRegisteredQuery)).
				WithArgs(int64(12)).
				WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(tt.exists))

			got, err := dir.IsRegistered(context.Background(), 12)
			require.NoError(t, err)
			assert.Equal(t, tt.exists, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBusinessDirectory_IsRegistered_DatabaseError(t *testing.T) {
	dir, mock := setupDirectory(t)
	mock.ExpectQuery(regexp.QuoteMeta(isRegisteredQuery)).
		WithArgs(int64(5)).
		WillReturnError(errors.New("connection refused"))

	_, err := dir.IsRegistered(context.Background(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query business 5")
	assert.False(t, domain.IsRejection(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBusinessDirectory_IsRegistered_OutOfRangeSkipsQuery(t *testing.T) {
	dir, mock := setupDirectory(t)

	got, err := dir.IsRegistered(context.Background(), math.MaxUint64)
	require.NoError(t, err)
	assert.False(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBusinessDirectory_Register(t *testing.T) {
	dir, mock := setupDirectory(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO businesses (id, name)")).
		WithArgs(int64(3), "Corner Cafe").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, dir.Register(context.Background(), 3, "Corner Cafe"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrations_ContainsBusinessesTable(t *testing.T) {
	data, err := fs.ReadFile(Migrations(), "001_businesses.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "CREATE TABLE IF NOT EXISTS businesses")
}

func TestMigrate_AppliesEmbeddedFiles(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM schema_migrations")).
		WithArgs("001_businesses.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, Migrate(context.Background(), mock, logger))
	assert.NoError(t, mock.ExpectationsWereMet())
}
