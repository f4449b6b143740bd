package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"ambilab-gateway/middleware/ratelimit/infra"
	"ambilab-gateway/migrations"
)

const usage = `Usage: migrate [-db path] [-older duration] <command>

Schema commands:
  up          Migrate to the latest version
  up-one      Migrate one version up
  down        Roll back one version
  redo        Roll back and re-apply the latest version
  status      Show migration status
  version     Show current version
  reset       Roll back all migrations

Data commands:
  totals      Print allowed/denied totals and newsletter outcomes
  prune       Delete per-minute buckets older than -older
`

func main() {
	dbPath := flag.String("db", envOrDefault("RATE_STATS_SQLITE_PATH", "./data/stats.db"), "path to the stats sqlite database")
	older := flag.Duration("older", 7*24*time.Hour, "age cutoff for prune")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	cmd := args[0]
	var err error
	switch cmd {
	case "totals", "prune":
		err = runData(context.Background(), *dbPath, cmd, *older)
	default:
		err = runSchema(*dbPath, cmd)
	}
	if err != nil {
		slog.Error("migrate failed", "command", cmd, "db", *dbPath, "error", err)
		os.Exit(1)
	}
}

func runSchema(dbPath, cmd string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	switch cmd {
	case "up":
		return goose.Up(db, ".")
	case "up-one":
		return goose.UpByOne(db, ".")
	case "down":
		return goose.Down(db, ".")
	case "redo":
		return goose.Redo(db, ".")
	case "status":
		return goose.Status(db, ".")
	case "version":
		return goose.Version(db, ".")
	case "reset":
		return goose.Reset(db, ".")
	}
	return fmt.Errorf("unknown command: %s", cmd)
}

// runData abre o store (que aplica as migrations pendentes) e opera sobre os
// contadores gravados pelo gateway.
func runData(ctx context.Context, dbPath, cmd string, older time.Duration) error {
	store, err := infra.NewSQLiteStatsStore(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if cmd == "prune" {
		n, err := store.Prune(ctx, time.Now().Add(-older))
		if err != nil {
			return err
		}
		fmt.Printf("pruned %d rows older than %s\n", n, older)
		return nil
	}

	total, err := store.Total(ctx)
	if err != nil {
		return err
	}
	outcomes, err := store.Outcomes(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("allowed=%d denied=%d\n", total.Allowed, total.Denied)

	codes := make([]string, 0, len(outcomes))
	for code := range outcomes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fmt.Printf("  %-20s %d\n", code, outcomes[code])
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
