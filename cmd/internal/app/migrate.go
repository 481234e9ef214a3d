package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"

	"pazar/cmd/internal/app/migrations"

	// database/sql driver used by goose for migrations.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// MigrateUp applies embedded migrations against the configured database.
// goose keeps its version table in the default search_path, so repeated
// startups are cheap no-ops.
func MigrateUp(ctx context.Context, cfg Config, log *slog.Logger) error {
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migrate: open: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("migrate: ping: %w", err)
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("migrate: dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate: up: %w", err)
	}

	if log != nil {
		log.Info("db.migrated")
	}
	return nil
}
