// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/rechub/internal/dbx"
	"github.com/dmitrijs2005/rechub/internal/server/migrations"
	"github.com/dmitrijs2005/rechub/internal/server/repositories/emaillogs"
	"github.com/dmitrijs2005/rechub/internal/server/repositories/enrollments"
	"github.com/dmitrijs2005/rechub/internal/server/repositories/programs"
	"github.com/dmitrijs2005/rechub/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/rechub/internal/server/repositories/stats"
	"github.com/dmitrijs2005/rechub/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories bound to
// whatever DBTX the caller holds, so the same repository code runs inside
// and outside transactions.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Programs(db dbx.DBTX) programs.Repository {
	return programs.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Enrollments(db dbx.DBTX) enrollments.Repository {
	return enrollments.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Stats(db dbx.DBTX) stats.Repository {
	return stats.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) EmailLogs(db dbx.DBTX) emaillogs.Repository {
	return emaillogs.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}
