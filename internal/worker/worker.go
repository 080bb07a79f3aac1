// Package worker runs the campaign generation pipeline: it pops job ids
// from the queue, loads the job record and source document, extracts the
// book text, generates a campaign with the AI generator or the fallback,
// stores the artifact, and writes the terminal state on the record.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"tomeforge/internal/config"
	"tomeforge/internal/generate"
	"tomeforge/internal/jobs"
	"tomeforge/internal/metrics"
	"tomeforge/internal/pdfx"
	"tomeforge/internal/queue"
	"tomeforge/internal/store"
)

// JobStore is the subset of the job record store the worker needs.
type JobStore interface {
	GetJob(ctx context.Context, id uuid.UUID) (jobs.Job, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID, res jobs.Result) error
	MarkFailed(ctx context.Context, id uuid.UUID, kind jobs.ErrorKind, msg string) error
	DeleteTerminalJobsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// JobQueue is the consuming side of the job queue.
type JobQueue interface {
	BlockingPop(ctx context.Context, timeout time.Duration) (queue.Message, bool, error)
}

// BlobStore reads source documents and writes generated artifacts.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// Extractor turns PDF bytes into normalized text.
type Extractor interface {
	Extract(data []byte) (pdfx.Document, error)
}

// Worker consumes jobs and drives them to a terminal state. The AI
// generator may be nil, in which case every job uses the fallback.
type Worker struct {
	store     JobStore
	queue     JobQueue
	blobs     BlobStore
	extractor Extractor
	ai        generate.Generator
	fallback  generate.Generator
	logger    *slog.Logger

	count           int
	popTimeout      time.Duration
	minTextChars    int
	handoffAttempts uint64
	handoffBackoff  time.Duration

	retention config.RetentionConfig
}

func New(st JobStore, q JobQueue, blobs BlobStore, ex Extractor,
	ai, fallback generate.Generator, cfg *config.Config, logger *slog.Logger) *Worker {

	count := cfg.Worker.Count
	if count <= 0 {
		count = 2
	}
	popTimeout := time.Duration(cfg.Worker.PopTimeoutMs) * time.Millisecond
	if popTimeout <= 0 {
		popTimeout = 5 * time.Second
	}
	attempts := cfg.Worker.HandoffMaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := time.Duration(cfg.Worker.HandoffBackoffMs) * time.Millisecond
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	minText := cfg.Upload.MinTextChars
	if minText <= 0 {
		minText = 100
	}

	return &Worker{
		store:           st,
		queue:           q,
		blobs:           blobs,
		extractor:       ex,
		ai:              ai,
		fallback:        fallback,
		logger:          logger,
		count:           count,
		popTimeout:      popTimeout,
		minTextChars:    minText,
		handoffAttempts: uint64(attempts),
		handoffBackoff:  backoff,
		retention:       cfg.Retention,
	}
}

// Start launches the worker pool and the optional retention loop, and
// blocks until the context is cancelled and all workers have drained.
func (w *Worker) Start(ctx context.Context) {
	var wg sync.WaitGroup

	for i := 0; i < w.count; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, id)
		}(i)
	}

	if w.retention.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.retentionLoop(ctx)
		}()
	}

	wg.Wait()
}

func (w *Worker) loop(ctx context.Context, id int) {
	log := w.logger.With("worker", id)
	log.Info("worker started")

	for {
		if ctx.Err() != nil {
			log.Info("worker stopping")
			return
		}

		msg, ok, err := w.queue.BlockingPop(ctx, w.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker stopping")
				return
			}
			log.Error("queue pop failed", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if !ok {
			continue
		}

		w.Process(ctx, msg)
	}
}

// Process drives one dequeued message to a terminal job state. It is
// safe against redelivery: a job already terminal is skipped without any
// writes, and MarkProcessing is status-guarded in the store.
func (w *Worker) Process(ctx context.Context, msg queue.Message) {
	log := w.logger.With("job_id", msg.JobID, "attempt", msg.Attempt)

	job, err := w.store.GetJob(ctx, msg.JobID)
	if errors.Is(err, store.ErrNotFound) {
		// Message for a record that no longer exists; nothing to do.
		log.Warn("discarding message for unknown job")
		return
	}
	if err != nil {
		log.Error("load job failed", "error", err)
		return
	}

	if job.Status.Terminal() {
		log.Info("skipping already-terminal job", "status", string(job.Status))
		return
	}

	if err := w.store.MarkProcessing(ctx, job.ID); err != nil {
		log.Error("mark processing failed", "error", err)
		return
	}
	log.Info("processing job", "source", job.SourceName, "complexity", string(job.Complexity))

	start := time.Now()

	data, err := w.fetchSource(ctx, job.SourceKey)
	if err != nil {
		w.fail(ctx, log, job.ID, jobs.ErrKindStorage, "source document could not be read")
		return
	}

	doc, err := w.extractor.Extract(data)
	if err != nil {
		switch {
		case errors.Is(err, pdfx.ErrLimitExceeded):
			w.fail(ctx, log, job.ID, jobs.ErrKindLimitExceeded, err.Error())
		default:
			w.fail(ctx, log, job.ID, jobs.ErrKindFormat, "document could not be parsed as a PDF")
		}
		return
	}

	text := strings.TrimSpace(doc.Text)
	if len(text) < w.minTextChars {
		w.fail(ctx, log, job.ID, jobs.ErrKindFormat,
			fmt.Sprintf("extracted text too short (%d chars, minimum %d); the PDF may be image-only", len(text), w.minTextChars))
		return
	}

	params := generate.Params{
		TargetLanguage: job.TargetLanguage,
		Complexity:     job.Complexity,
	}
	artifact, variant := w.generate(ctx, log, text, params)

	key := artifactKey(job.SourceName, time.Now())
	if err := w.putArtifact(ctx, key, []byte(artifact.Content)); err != nil {
		log.Error("artifact handoff failed", "key", key, "error", err)
		w.fail(ctx, log, job.ID, jobs.ErrKindStorage, "generated campaign could not be stored")
		return
	}

	res := jobs.Result{
		ArtifactKey: key,
		Preview:     generate.Preview(artifact.Content, 500),
		SizeBytes:   int64(len(artifact.Content)),
		Generator:   variant,
	}
	if err := w.store.MarkCompleted(ctx, job.ID, res); err != nil {
		log.Error("mark completed failed", "error", err)
		return
	}
	metrics.RecordJobOutcome(string(jobs.StatusCompleted), "")
	log.Info("job completed",
		"pages", doc.Pages,
		"generator", variant,
		"artifact_key", key,
		"duration_ms", time.Since(start).Milliseconds())
}

// generate tries the AI path when configured and falls back on any
// failure. It always returns an artifact.
func (w *Worker) generate(ctx context.Context, log *slog.Logger, text string, params generate.Params) (generate.Artifact, string) {
	if w.ai != nil {
		artifact, err := w.ai.Generate(ctx, text, params)
		if err == nil {
			metrics.RecordGeneration(jobs.GeneratorGemini, true)
			return artifact, jobs.GeneratorGemini
		}
		metrics.RecordGeneration(jobs.GeneratorGemini, false)
		log.Warn("ai generation unavailable, using fallback", "error", err)
	}

	artifact, _ := w.fallback.Generate(ctx, text, params)
	metrics.RecordGeneration(jobs.GeneratorFallback, true)
	return artifact, jobs.GeneratorFallback
}

// fetchSource reads the uploaded document with bounded retries; blob
// reads are the flakiest dependency in the pipeline.
func (w *Worker) fetchSource(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	backoff := retry.WithMaxRetries(w.handoffAttempts-1, retry.NewConstant(w.handoffBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		data, err = w.blobs.Get(ctx, key)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	return data, err
}

// putArtifact uploads the generated campaign with bounded retries.
func (w *Worker) putArtifact(ctx context.Context, key string, body []byte) error {
	backoff := retry.WithMaxRetries(w.handoffAttempts-1, retry.NewConstant(w.handoffBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := w.blobs.Put(ctx, key, body, "text/markdown"); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (w *Worker) fail(ctx context.Context, log *slog.Logger, id uuid.UUID, kind jobs.ErrorKind, msg string) {
	if err := w.store.MarkFailed(ctx, id, kind, msg); err != nil {
		log.Error("mark failed failed", "error", err)
		return
	}
	metrics.RecordJobOutcome(string(jobs.StatusFailed), string(kind))
	log.Info("job failed", "kind", string(kind), "message", msg)
}

// artifactKey builds the storage key for a generated campaign from the
// original file name and a generation timestamp.
func artifactKey(sourceName string, now time.Time) string {
	base := strings.TrimSuffix(sourceName, filepath.Ext(sourceName))
	if base == "" {
		base = "book"
	}
	return fmt.Sprintf("campaigns/campaign_%s_%s.md", base, now.UTC().Format("20060102_150405"))
}

func (w *Worker) retentionLoop(ctx context.Context) {
	interval := time.Duration(w.retention.CleanupIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}
	days := w.retention.TerminalDays
	if days <= 0 {
		days = 30
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().AddDate(0, 0, -days)
			deleted, err := w.store.DeleteTerminalJobsBefore(ctx, cutoff)
			if err != nil {
				w.logger.Error("retention cleanup failed", "error", err)
				continue
			}
			if deleted > 0 {
				metrics.RecordRetentionJobs(deleted)
				w.logger.Info("retention cleanup removed jobs", "deleted", deleted)
			}
		}
	}
}
