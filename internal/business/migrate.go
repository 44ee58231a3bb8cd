package business

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/XSAM/otelsql"
	"github.com/pressly/goose/v3"
	"github.com/samber/oops"

	// Register pgx driver
	_ "github.com/jackc/pgx/v5/stdlib"

	slogctx "github.com/veqryn/slog-context"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"

	"github.com/tourista/session-coordinator/internal/config"
	migrations "github.com/tourista/session-coordinator/sql"
)

// MigrateMain applies the migrations of the postgres cookie store.
func MigrateMain(ctx context.Context, cfg *config.Config) error {
	const dialect = "pgx"
	dbSystemName := semconv.DBSystemNamePostgreSQL

	connStr, err := config.MakeConnStr(cfg.Database)
	if err != nil {
		return fmt.Errorf("making connection string from config: %w", err)
	}

	source, err := migrationSource(cfg.Migrate)
	if err != nil {
		return err
	}

	db, err := otelsql.Open(dialect, connStr, otelsql.WithAttributes(dbSystemName))
	if err != nil {
		return oops.In("main").Wrapf(err, "opening DB connection")
	}
	defer db.Close()

	reg, err := otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(dbSystemName))
	if err != nil {
		return fmt.Errorf("registering db stats metrics: %w", err)
	}

	defer func() {
		err := reg.Unregister()
		if err != nil {
			slogctx.Error(ctx, "failed to unregister db stats metrics", "error", err)
		}
	}()

	goose.SetBaseFS(source)

	err = goose.SetDialect(dialect)
	if err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	err = goose.UpContext(ctx, db, ".")
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	slogctx.Info(ctx, "Migrations applied")

	return nil
}

// migrationSource returns the embedded migrations unless the config points
// at a directory with file://.
func migrationSource(cfg config.Migrate) (fs.FS, error) {
	if cfg.Source == "" {
		return migrations.FS, nil
	}

	dir, ok := strings.CutPrefix(cfg.Source, "file://")
	if !ok {
		return nil, fmt.Errorf("unsupported migration source %q", cfg.Source)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("opening migration source: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("migration source %s is not a directory", dir)
	}

	return os.DirFS(dir), nil
}
