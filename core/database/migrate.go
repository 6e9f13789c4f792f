package database

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	coreconfig "github.com/m3rciful/goldbot/core/config"
	"github.com/m3rciful/goldbot/core/logger"
	"github.com/m3rciful/goldbot/migrations"
)

// migrationSource picks the directory override or the embedded files.
func migrationSource(cfg coreconfig.DatabaseConfig) (fs.FS, string) {
	if dir := strings.TrimSpace(cfg.MigrationsDir); dir != "" {
		return os.DirFS(dir), dir
	}
	return migrations.FS, "embedded"
}

// RunMigrations waits for Postgres and applies every pending up migration.
func RunMigrations(cfg coreconfig.DatabaseConfig) error {
	if err := WaitForPostgres(DSN(cfg), 30*time.Second); err != nil {
		logger.MIG.Error("db not ready",
			slog.String("event", "db.migrate"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("database not ready: %w", err)
	}

	fsys, origin := migrationSource(cfg)
	files := listMigrationFiles(fsys)
	logger.MIG.Debug("migrations resolved", previewArgs("db.migrate.resolve", files,
		slog.String("source", origin),
	)...)

	src, err := iofs.New(fsys, ".")
	if err != nil {
		return fmt.Errorf("open migrations %s: %w", origin, err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, MigrateURL(cfg))
	if err != nil {
		logger.MIG.Error("init failed",
			slog.String("event", "db.migrate"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.MIG.Warn("close failed",
				slog.String("event", "db.migrate"),
				slog.String("err", errors.Join(srcErr, dbErr).Error()),
			)
		}
	}()

	fromVer, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	took := logger.RoundMS(time.Since(start))

	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.MIG.Error("migration failed",
			slog.String("event", "db.migrate.apply"),
			slog.String("err", upErr.Error()),
			slog.Duration("duration", took),
		)
		return fmt.Errorf("migration execution failed: %w", upErr)
	}

	toVer := fromVer
	if upErr == nil {
		toVer, _, _ = m.Version()
	}
	applied := selectApplied(files, uint64(fromVer), uint64(toVer))
	if len(applied) > 0 {
		logger.MIG.Debug("applied files", previewArgs("db.migrate.apply", applied)...)
	}
	logger.MIG.Info("migrations summary",
		slog.String("event", "db.migrate.summary"),
		slog.String("source", origin),
		slog.Uint64("from_ver", uint64(fromVer)),
		slog.Uint64("to_ver", uint64(toVer)),
		slog.Int("files", len(applied)),
		slog.Duration("duration", took),
	)
	return nil
}

func previewArgs(event string, files []string, extra ...any) []any {
	args := append([]any{slog.String("event", event), slog.Int("files_total", len(files))}, extra...)
	preview, truncated := logger.SummarizeStrings(files, 6)
	if preview != "" {
		args = append(args, slog.String("files_preview", preview))
	}
	if truncated {
		args = append(args, slog.Bool("files_truncated", true))
	}
	return args
}

func listMigrationFiles(fsys fs.FS) []string {
	names, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil
	}
	out := names[:0]
	for _, n := range names {
		if info, err := fs.Stat(fsys, n); err == nil && !info.IsDir() {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

func parseVersion(name string) uint64 {
	head, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(head, 10, 64)
	return v
}

// selectApplied returns migration files with versions in (from, to].
func selectApplied(files []string, from, to uint64) []string {
	if to <= from {
		return nil
	}
	var out []string
	for _, f := range files {
		if v := parseVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
