package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/fitlog/internal/config"
	"github.com/claude/fitlog/internal/ingest/alpha"
	"github.com/claude/fitlog/internal/logging"
	"github.com/claude/fitlog/internal/storage"
	"github.com/google/uuid"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	filePath := flag.String("file", "", "path to an Alpha Progression CSV export (required)")
	userFlag := flag.String("user", "", "id of the user the sessions belong to (required)")
	dryRun := flag.Bool("dry-run", false, "parse and report counts without writing to the database")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *filePath == "" || *userFlag == "" {
		fmt.Fprintf(os.Stderr, "Usage: fitlog-import -config config.yaml -file export.csv -user <uuid> [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	userID, err := uuid.Parse(*userFlag)
	if err != nil {
		log.Error("invalid user id", "user", *userFlag, "error", err)
		os.Exit(1)
	}

	f, err := os.Open(*filePath)
	if err != nil {
		log.Error("failed to open export", "path", *filePath, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	if *dryRun {
		log.Info("DRY RUN mode, no data will be written to the database")
		sessions, err := alpha.Parse(f)
		if err != nil {
			log.Error("parse failed", "error", err)
			os.Exit(1)
		}
		sets := 0
		for _, s := range sessions {
			rec := alpha.Record(s)
			log.Info("session", "name", rec.Name, "completed_at", rec.CompletedAt, "duration_sec", rec.DurationSeconds)
			for _, ex := range s.Exercises {
				sets += len(ex.Sets)
			}
		}
		log.Info("dry run complete", "sessions", len(sessions), "sets", sets)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log = logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format == "json")

	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx := context.Background()
	db, err := storage.New(ctx, dsn, cfg.Database.SimpleProtocol)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	result, err := alpha.NewProvider(db, log).Ingest(ctx, f, userID)
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}
	log.Info("import complete",
		"sessions_received", result.SessionsReceived,
		"sessions_inserted", result.SessionsInserted,
		"sessions_skipped", result.SessionsSkipped,
		"sets_received", result.SetsReceived,
	)
}
