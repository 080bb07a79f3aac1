package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"tomeforge/internal/blob"
	"tomeforge/internal/config"
	"tomeforge/internal/generate"
	server "tomeforge/internal/http"
	"tomeforge/internal/migrate"
	"tomeforge/internal/pdfx"
	"tomeforge/internal/queue"
	"tomeforge/internal/store"
	"tomeforge/internal/worker"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	role := flag.String("role", "all", "process role: api|worker|all")
	flag.Parse()

	cfg := config.Load(*configPath)

	// Run migrations on a short-lived connection
	if err := migrate.Run(cfg.Database.DSN); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	// Create a shared *sql.DB with pooling for the Store
	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("open db failed: %v", err)
	}
	// Basic pool settings; adjust as needed
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	st := store.New(db)

	// Redis backs both the job queue and submission rate limiting
	opt, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("invalid redis url: %v", err)
	}
	rdb := redis.NewClient(opt)
	q := queue.New(rdb, cfg.Redis.Queue)

	rootCtx := context.Background()

	blobs, err := blob.New(rootCtx, cfg.Storage)
	if err != nil {
		log.Fatalf("blob storage setup failed: %v", err)
	}

	// Set up logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	var ai generate.Generator
	if cfg.GeminiConfigured() {
		ai = generate.NewGemini(cfg.Generator.Gemini)
		logger.Info("ai generator enabled", "model", cfg.Generator.Gemini.Model)
	} else {
		logger.Info("ai generator not configured, using fallback only")
	}
	fallback := generate.NewFallback()

	extractor := pdfx.New(cfg.Upload.MaxPages)

	startWorker := func() {
		w := worker.New(st, q, blobs, extractor, ai, fallback, cfg, logger)
		go w.Start(rootCtx)
	}

	switch *role {
	case "api":
		// API-only: do not start the generation worker.
		s := server.NewServer(cfg, st, blobs, q, rdb, logger)
		if err := s.Listen(); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	case "worker":
		// Worker-only: start the generation worker and block.
		startWorker()
		select {}
	case "all":
		// Default: run both API and worker in one process.
		startWorker()
		s := server.NewServer(cfg, st, blobs, q, rdb, logger)
		if err := s.Listen(); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	default:
		log.Fatalf("invalid role: %s (expected api|worker|all)", *role)
	}
}
