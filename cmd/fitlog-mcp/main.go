package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/fitlog/internal/config"
	fitmcp "github.com/claude/fitlog/internal/mcp"
	"github.com/claude/fitlog/internal/storage"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (local database mode)")
	serverURL := flag.String("server", "", "fitlog server URL (remote mode)")
	userFlag := flag.String("user", "", "user id to serve (local database mode)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("fitlog-mcp", Version)
		return
	}

	// stdout carries the protocol, so logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var (
		ds     fitmcp.DataSource
		userID uuid.UUID
	)
	switch {
	case *serverURL != "":
		token := os.Getenv("FITLOG_TOKEN")
		if token == "" {
			fmt.Fprintf(os.Stderr, "Error: FITLOG_TOKEN must hold an access token in remote mode\n")
			os.Exit(1)
		}
		ds = fitmcp.NewHTTPClient(*serverURL, token)
		log.Info("remote mode", "server", *serverURL)

	case *configPath != "":
		id, err := uuid.Parse(*userFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: -user must be a valid user id in local mode\n")
			os.Exit(1)
		}
		userID = id

		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		db, err := storage.New(context.Background(), cfg.Database.DSN(), cfg.Database.SimpleProtocol)
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		ds = fitmcp.DBSource{DB: db}
		log.Info("local mode", "user", userID)

	default:
		fmt.Fprintf(os.Stderr, "Usage: fitlog-mcp -server <URL>  (with FITLOG_TOKEN set)\n       fitlog-mcp -config config.yaml -user <uuid>\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	s := fitmcp.New(ds, Version, log)
	err := server.ServeStdio(s, server.WithStdioContextFunc(func(ctx context.Context) context.Context {
		return fitmcp.WithUserID(ctx, userID)
	}))
	if err != nil {
		log.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}
