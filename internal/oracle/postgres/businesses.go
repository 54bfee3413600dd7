// Package postgres answers business registration checks from the
// businesses table owned by the business service.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"math"

	"github.com/utafrali/reviewregistry/pkg/database"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the schema migrations for the businesses table.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Migrate applies the embedded migrations.
func Migrate(ctx context.Context, db database.TxBeginner, logger *slog.Logger) error {
	return database.RunMigrations(ctx, db, Migrations(), logger)
}

const isRegisteredQuery = `SELECT EXISTS(SELECT 1 FROM businesses WHERE id = $1)`

// BusinessDirectory implements registry.BusinessDirectory with PostgreSQL.
type BusinessDirectory struct {
	db database.DBTX
}

// NewBusinessDirectory creates a directory reading from db.
func NewBusinessDirectory(db database.DBTX) *BusinessDirectory {
	return &BusinessDirectory{db: db}
}

// IsRegistered reports whether a row exists for businessID.
func (d *BusinessDirectory) IsRegistered(ctx context.Context, businessID uint64) (registered bool, err error) {
	// BIGINT cannot hold ids above MaxInt64, so they are never registered.
	if businessID > math.MaxInt64 {
		return false, nil
	}

	ctx, end := database.TraceQuery(ctx, "postgresql", "IsRegistered", isRegisteredQuery)
	defer func() { end(err) }()

	if err = d.db.QueryRow(ctx, isRegisteredQuery, int64(businessID)).Scan(&registered); err != nil {
		return false, fmt.Errorf("query business %d: %w", businessID, err)
	}
	return registered, nil
}

// Register inserts a business row. It is idempotent.
func (d *BusinessDirectory) Register(ctx context.Context, businessID uint64, name string) (err error) {
	if businessID > math.MaxInt64 {
		return fmt.Errorf("business id %d out of range", businessID)
	}

	const q = `INSERT INTO businesses (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`
	ctx, end := database.TraceQuery(ctx, "postgresql", "RegisterBusiness", q)
	defer func() { end(err) }()

	if _, err = d.db.Exec(ctx, q, int64(businessID), name); err != nil {
		return fmt.Errorf("insert business %d: %w", businessID, err)
	}
	return nil
}
