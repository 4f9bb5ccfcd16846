package persist

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// RunMigrations brings the run recording schema up to date: runs, their
// snapshot_bodies keyed by (run, epoch, step, body) and the run_events log.
// Each applied migration is logged; an up-to-date schema logs nothing.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, log *zap.Logger) error {
	sqlFS, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, sqlFS)
	if err != nil {
		return fmt.Errorf("migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply run schema: %w", err)
	}
	for _, r := range results {
		log.Info("schema migrated",
			zap.Int64("version", r.Source.Version),
			zap.String("file", r.Source.Path),
			zap.Duration("took", r.Duration),
		)
	}
	return nil
}
