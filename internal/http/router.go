// Package http exposes the campaign API: book submission, job status,
// and the capability catalog, plus health and metrics endpoints.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tomeforge/internal/config"
	"tomeforge/internal/jobs"
	"tomeforge/internal/metrics"
	"tomeforge/internal/queue"
)

// JobStore is the subset of the record store the handlers need.
type JobStore interface {
	Ping(ctx context.Context) error
	CreateJob(ctx context.Context, job jobs.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (jobs.Job, error)
	MarkFailed(ctx context.Context, id uuid.UUID, kind jobs.ErrorKind, msg string) error
}

// BlobStore is the subset of blob storage the handlers need: uploading
// source documents and presigning artifact downloads.
type BlobStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// JobQueue is the producing side of the job queue.
type JobQueue interface {
	Push(ctx context.Context, msg queue.Message) error
	Len(ctx context.Context) (int64, error)
}

type Server struct {
	app    *fiber.App
	config *config.Config
	logger *slog.Logger
}

func NewServer(cfg *config.Config, st JobStore, blobs BlobStore, q JobQueue, rdb *redis.Client, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: bodyLimit(cfg),
	})

	// Inject dependencies into context for handlers
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("config", cfg)
		c.Locals("store", st)
		c.Locals("blobs", blobs)
		c.Locals("queue", q)
		return c.Next()
	})

	// Request logging + metrics middleware
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		// Ensure a request ID exists
		reqID := c.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Locals("request_id", reqID)
		if logger != nil {
			c.Locals("logger", logger)
		}

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()
		method := c.Method()
		path := c.Path()

		metrics.RecordRequest(method, path, status, latency.Milliseconds())

		if logger != nil {
			logger.Info("request",
				"request_id", reqID,
				"method", method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}

		return err
	})

	// Health endpoints
	app.Get("/healthz", func(c *fiber.Ctx) error {
		// Shallow health: process is up
		if c.Query("deep") != "true" {
			return c.JSON(fiber.Map{"status": "ok"})
		}

		// Deep health: check DB and Redis connectivity.
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()

		dbStatus := "ok"
		if err := st.Ping(ctx); err != nil {
			dbStatus = "error"
		}

		redisStatus := "disabled"
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				redisStatus = "error"
			} else {
				redisStatus = "ok"
			}
		}

		status := "ok"
		if dbStatus != "ok" || redisStatus == "error" {
			status = "error"
		}

		return c.JSON(fiber.Map{
			"status": status,
			"db":     dbStatus,
			"redis":  redisStatus,
		})
	})

	// Prometheus-style metrics endpoint
	app.Get("/metrics", func(c *fiber.Ctx) error {
		c.Type("text/plain")
		return c.SendString(metrics.Export())
	})

	var rateMw fiber.Handler
	if rdb != nil {
		rateMw = rateLimitMiddleware(cfg, rdb)
	} else {
		rateMw = func(c *fiber.Ctx) error { return c.Next() }
	}

	v1 := app.Group("/v1")
	v1.Post("/campaigns", rateMw, submitCampaignHandler)
	v1.Get("/campaigns/:id", campaignStatusHandler)
	v1.Get("/example", exampleCampaignHandler)
	v1.Get("/complexities", complexitiesHandler)
	v1.Get("/languages", languagesHandler)
	v1.Get("/status", serviceStatusHandler)

	return &Server{
		app:    app,
		config: cfg,
		logger: logger,
	}
}

func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	return s.app.Listen(addr)
}

// App exposes the underlying fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// bodyLimit returns the request body ceiling: the configured upload
// limit plus headroom for multipart framing.
func bodyLimit(cfg *config.Config) int {
	mb := cfg.Upload.MaxFileSizeMB
	if mb <= 0 {
		mb = 50
	}
	return (mb + 1) * 1024 * 1024
}
