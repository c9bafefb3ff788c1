package data

import (
	"context"
	"database/sql"

	"github.com/quillscore/quillscore-api/internal/migrate"
)

// RunMigrations brings the schema up to date. Called on startup before any
// repository touches the pool.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db)
}
