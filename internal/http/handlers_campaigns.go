package http

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"tomeforge/internal/config"
	"tomeforge/internal/jobs"
	"tomeforge/internal/queue"
	"tomeforge/internal/store"
)

var pdfMagic = []byte("%PDF-")

var filenameUnsafe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sanitizeFilename strips path components and replaces characters that
// are unsafe in storage keys.
func sanitizeFilename(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	base = filenameUnsafe.ReplaceAllString(base, "_")
	if base == "" || base == "." || base == ".." {
		return "book.pdf"
	}
	return base
}

// submitCampaignHandler accepts a PDF book plus generation parameters,
// stores the document, creates the job record and enqueues it. The
// document is durably stored and the record written before the enqueue,
// so a worker can always resolve what it pops.
func submitCampaignHandler(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)
	st := c.Locals("store").(JobStore)
	blobs := c.Locals("blobs").(BlobStore)
	q := c.Locals("queue").(JobQueue)
	logger, _ := c.Locals("logger").(*slog.Logger)

	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    string(jobs.ErrKindValidation),
			Error:   "No file provided; upload a PDF under the 'file' form field",
		})
	}

	maxMB := cfg.Upload.MaxFileSizeMB
	if maxMB <= 0 {
		maxMB = 50
	}
	maxBytes := int64(maxMB) * 1024 * 1024
	if fh.Size > maxBytes {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    string(jobs.ErrKindLimitExceeded),
			Error:   fmt.Sprintf("File too large (%d bytes, maximum %dMB)", fh.Size, maxMB),
		})
	}

	complexity, ok := jobs.ParseComplexity(c.FormValue("complexity"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    string(jobs.ErrKindValidation),
			Error:   "Invalid complexity; expected simple, medium or complex",
		})
	}

	language := strings.TrimSpace(c.FormValue("language"))
	if language == "" {
		language = cfg.Upload.DefaultLanguage
	}
	if language == "" {
		language = "en"
	}

	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    string(jobs.ErrKindValidation),
			Error:   "Uploaded file could not be read",
		})
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    string(jobs.ErrKindValidation),
			Error:   "Uploaded file could not be read",
		})
	}
	if int64(len(data)) > maxBytes {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    string(jobs.ErrKindLimitExceeded),
			Error:   fmt.Sprintf("File too large (maximum %dMB)", maxMB),
		})
	}

	// Cheap format gate; real parsing happens in the worker.
	if !bytes.HasPrefix(data, pdfMagic) {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    string(jobs.ErrKindFormat),
			Error:   "File is not a PDF",
		})
	}

	jobID := uuid.New()
	name := sanitizeFilename(fh.Filename)
	sourceKey := fmt.Sprintf("campaign-inputs/%s_%s", jobID, name)

	if err := blobs.Put(c.Context(), sourceKey, data, "application/pdf"); err != nil {
		if logger != nil {
			logger.Error("source upload failed", "key", sourceKey, "error", err)
		}
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Success: false,
			Code:    string(jobs.ErrKindStorage),
			Error:   "Document storage is unavailable, try again later",
		})
	}

	job := jobs.Job{
		ID:             jobID,
		Status:         jobs.StatusQueued,
		SourceKey:      sourceKey,
		SourceName:     name,
		TargetLanguage: language,
		Complexity:     complexity,
	}
	if err := st.CreateJob(c.Context(), job); err != nil {
		if logger != nil {
			logger.Error("create job failed", "job_id", jobID, "error", err)
		}
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Success: false,
			Code:    string(jobs.ErrKindStorage),
			Error:   "Job store is unavailable, try again later",
		})
	}

	if err := q.Push(c.Context(), queue.Message{JobID: jobID, Attempt: 1}); err != nil {
		// The record exists but no worker will ever see it; fail it now
		// rather than leaving a job queued forever.
		if logger != nil {
			logger.Error("enqueue failed", "job_id", jobID, "error", err)
		}
		if mErr := st.MarkFailed(c.Context(), jobID, jobs.ErrKindStorage, "job could not be enqueued"); mErr != nil && logger != nil {
			logger.Error("mark failed after enqueue failure", "job_id", jobID, "error", mErr)
		}
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Success: false,
			Code:    string(jobs.ErrKindStorage),
			Error:   "Job queue is unavailable, try again later",
		})
	}

	if logger != nil {
		logger.Info("job submitted",
			"job_id", jobID,
			"source", name,
			"size_bytes", len(data),
			"complexity", string(complexity),
			"language", language,
		)
	}

	return c.Status(fiber.StatusAccepted).JSON(SubmitResponse{
		Success: true,
		JobID:   jobID.String(),
		Status:  string(jobs.StatusQueued),
	})
}

// campaignStatusHandler returns the current state of a job. For
// completed jobs a fresh download URL is presigned on every read.
func campaignStatusHandler(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)
	st := c.Locals("store").(JobStore)
	blobs := c.Locals("blobs").(BlobStore)
	logger, _ := c.Locals("logger").(*slog.Logger)

	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(StatusResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "invalid job id",
		})
	}

	job, err := st.GetJob(c.Context(), jobID)
	if err == store.ErrNotFound {
		return c.Status(fiber.StatusNotFound).JSON(StatusResponse{
			Success: false,
			Code:    "NOT_FOUND",
			Error:   "job not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(StatusResponse{
			Success: false,
			Code:    "INTERNAL_ERROR",
			Error:   "job lookup failed",
		})
	}

	item := &JobStatusItem{
		ID:             job.ID.String(),
		Status:         string(job.Status),
		SourceName:     job.SourceName,
		TargetLanguage: job.TargetLanguage,
		Complexity:     string(job.Complexity),
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
	}

	if job.Result != nil {
		ttl := time.Duration(cfg.Storage.PresignTTLMinutes) * time.Minute
		if ttl <= 0 {
			ttl = time.Hour
		}
		url, err := blobs.PresignGet(c.Context(), job.Result.ArtifactKey, ttl)
		if err != nil {
			// The job state is still reportable without a download link.
			if logger != nil {
				logger.Warn("presign failed", "job_id", jobID, "key", job.Result.ArtifactKey, "error", err)
			}
			url = ""
		}
		item.Result = &ResultItem{
			ArtifactKey: job.Result.ArtifactKey,
			ArtifactURL: url,
			Preview:     job.Result.Preview,
			SizeBytes:   job.Result.SizeBytes,
			Generator:   job.Result.Generator,
		}
	}

	if job.Failure != nil {
		item.Error = &ErrorItem{
			Kind:    string(job.Failure.Kind),
			Message: job.Failure.Message,
		}
	}

	return c.Status(fiber.StatusOK).JSON(StatusResponse{
		Success: true,
		Job:     item,
	})
}
