package repomanager

import (
	"context"
	"database/sql"

	"github.com/dkazakov/seqtrack/internal/dbx"
	"github.com/dkazakov/seqtrack/internal/server/repositories/sessions"
	"github.com/dkazakov/seqtrack/internal/server/repositories/users"
)

// RepositoryManager vends repository implementations bound to a DBTX, so a
// service can run the same repositories standalone or inside a transaction.
type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
