package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/rechub/internal/dbx"
	"github.com/dmitrijs2005/rechub/internal/server/repositories/emaillogs"
	"github.com/dmitrijs2005/rechub/internal/server/repositories/enrollments"
	"github.com/dmitrijs2005/rechub/internal/server/repositories/programs"
	"github.com/dmitrijs2005/rechub/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/rechub/internal/server/repositories/stats"
	"github.com/dmitrijs2005/rechub/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Programs(db dbx.DBTX) programs.Repository
	Enrollments(db dbx.DBTX) enrollments.Repository
	Stats(db dbx.DBTX) stats.Repository
	EmailLogs(db dbx.DBTX) emaillogs.Repository
}
