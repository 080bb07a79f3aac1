package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"tomeforge/internal/config"
	"tomeforge/internal/jobs"
	"tomeforge/internal/queue"
	"tomeforge/internal/store"
)

type fakeStore struct {
	jobs    map[uuid.UUID]jobs.Job
	created []jobs.Job
	failed  map[uuid.UUID]jobs.ErrorKind
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:   make(map[uuid.UUID]jobs.Job),
		failed: make(map[uuid.UUID]jobs.ErrorKind),
	}
}

func (f *fakeStore) Ping(_ context.Context) error { return nil }

func (f *fakeStore) CreateJob(_ context.Context, job jobs.Job) error {
	f.created = append(f.created, job)
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeStore) GetJob(_ context.Context, id uuid.UUID) (jobs.Job, error) {
	j, ok := f.jobs[id]
	if !ok {
		return jobs.Job{}, store.ErrNotFound
	}
	return j, nil
}

func (f *fakeStore) MarkFailed(_ context.Context, id uuid.UUID, kind jobs.ErrorKind, _ string) error {
	f.failed[id] = kind
	j := f.jobs[id]
	j.Status = jobs.StatusFailed
	f.jobs[id] = j
	return nil
}

type fakeBlobs struct {
	objects map[string][]byte
	putErr  error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte)}
}

func (f *fakeBlobs) Put(_ context.Context, key string, body []byte, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = body
	return nil
}

func (f *fakeBlobs) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://blobs.example/" + key + "?sig=abc", nil
}

type fakeQueue struct {
	pushed  []queue.Message
	pushErr error
}

func (f *fakeQueue) Push(_ context.Context, msg queue.Message) error {
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushed = append(f.pushed, msg)
	return nil
}

func (f *fakeQueue) Len(_ context.Context) (int64, error) {
	return int64(len(f.pushed)), nil
}

func testConfig() *config.Config {
	return &config.Config{
		Upload: config.UploadConfig{
			MaxFileSizeMB:   1,
			MaxPages:        500,
			MinTextChars:    100,
			DefaultLanguage: "pt",
		},
		Storage: config.StorageConfig{PresignTTLMinutes: 60},
	}
}

func testServer(cfg *config.Config, st JobStore, blobs BlobStore, q JobQueue) *Server {
	return NewServer(cfg, st, blobs, q, nil, nil)
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string, fileData []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(fileData); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func decodeError(t *testing.T, resp *http.Response) ErrorResponse {
	t.Helper()
	var out ErrorResponse
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode error response: %v (%s)", err, body)
	}
	return out
}

func TestSubmit_MissingFile(t *testing.T) {
	s := testServer(testConfig(), newFakeStore(), newFakeBlobs(), &fakeQueue{})

	body, ct := multipartBody(t, map[string]string{"complexity": "simple"}, "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/campaigns", body)
	req.Header.Set("Content-Type", ct)

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if out := decodeError(t, resp); out.Code != string(jobs.ErrKindValidation) {
		t.Fatalf("expected VALIDATION_ERROR, got %s", out.Code)
	}
}

func TestSubmit_NotAPDF(t *testing.T) {
	s := testServer(testConfig(), newFakeStore(), newFakeBlobs(), &fakeQueue{})

	body, ct := multipartBody(t, nil, "file", "book.pdf", []byte("plain text, no magic"))
	req := httptest.NewRequest(http.MethodPost, "/v1/campaigns", body)
	req.Header.Set("Content-Type", ct)

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if out := decodeError(t, resp); out.Code != string(jobs.ErrKindFormat) {
		t.Fatalf("expected FORMAT_ERROR, got %s", out.Code)
	}
}

func TestSubmit_InvalidComplexity(t *testing.T) {
	s := testServer(testConfig(), newFakeStore(), newFakeBlobs(), &fakeQueue{})

	body, ct := multipartBody(t, map[string]string{"complexity": "extreme"}, "file", "book.pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/v1/campaigns", body)
	req.Header.Set("Content-Type", ct)

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if out := decodeError(t, resp); out.Code != string(jobs.ErrKindValidation) {
		t.Fatalf("expected VALIDATION_ERROR, got %s", out.Code)
	}
}

func TestSubmit_Accepted(t *testing.T) {
	st := newFakeStore()
	blobs := newFakeBlobs()
	q := &fakeQueue{}
	s := testServer(testConfig(), st, blobs, q)

	body, ct := multipartBody(t, map[string]string{"complexity": "complex", "language": "en"},
		"file", "my book (1).pdf", []byte("%PDF-1.7 content"))
	req := httptest.NewRequest(http.MethodPost, "/v1/campaigns", body)
	req.Header.Set("Content-Type", ct)

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	var out SubmitResponse
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !out.Success || out.Status != string(jobs.StatusQueued) {
		t.Fatalf("unexpected response %+v", out)
	}

	if len(st.created) != 1 {
		t.Fatalf("expected one job created, got %d", len(st.created))
	}
	job := st.created[0]
	if job.ID.String() != out.JobID {
		t.Fatal("response job id must match the stored record")
	}
	if job.Complexity != jobs.ComplexityComplex || job.TargetLanguage != "en" {
		t.Fatalf("parameters not recorded: %+v", job)
	}
	if job.SourceName != "my_book_1_.pdf" {
		t.Fatalf("unexpected sanitized name %q", job.SourceName)
	}
	if _, ok := blobs.objects[job.SourceKey]; !ok {
		t.Fatal("source document must be stored before the job is created")
	}
	if len(q.pushed) != 1 || q.pushed[0].JobID != job.ID {
		t.Fatalf("expected one queue message for the job, got %+v", q.pushed)
	}
}

func TestSubmit_DefaultsApplied(t *testing.T) {
	st := newFakeStore()
	s := testServer(testConfig(), st, newFakeBlobs(), &fakeQueue{})

	body, ct := multipartBody(t, nil, "file", "book.pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/v1/campaigns", body)
	req.Header.Set("Content-Type", ct)

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	job := st.created[0]
	if job.Complexity != jobs.ComplexityMedium {
		t.Fatalf("expected medium default, got %s", job.Complexity)
	}
	if job.TargetLanguage != "pt" {
		t.Fatalf("expected configured default language, got %q", job.TargetLanguage)
	}
}

func TestSubmit_QueueDownFailsJob(t *testing.T) {
	st := newFakeStore()
	q := &fakeQueue{pushErr: errors.New("redis down")}
	s := testServer(testConfig(), st, newFakeBlobs(), q)

	body, ct := multipartBody(t, nil, "file", "book.pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/v1/campaigns", body)
	req.Header.Set("Content-Type", ct)

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}

	if len(st.created) != 1 {
		t.Fatalf("expected the record to exist, got %d", len(st.created))
	}
	id := st.created[0].ID
	if st.failed[id] != jobs.ErrKindStorage {
		t.Fatalf("expected job failed with STORAGE_ERROR, got %s", st.failed[id])
	}
}

func TestStatus_InvalidID(t *testing.T) {
	s := testServer(testConfig(), newFakeStore(), newFakeBlobs(), &fakeQueue{})

	req := httptest.NewRequest(http.MethodGet, "/v1/campaigns/not-a-uuid", nil)
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestStatus_NotFound(t *testing.T) {
	s := testServer(testConfig(), newFakeStore(), newFakeBlobs(), &fakeQueue{})

	req := httptest.NewRequest(http.MethodGet, "/v1/campaigns/"+uuid.New().String(), nil)
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestStatus_CompletedPresignsURL(t *testing.T) {
	st := newFakeStore()
	job := jobs.Job{
		ID:             uuid.New(),
		Status:         jobs.StatusCompleted,
		SourceName:     "book.pdf",
		TargetLanguage: "en",
		Complexity:     jobs.ComplexityMedium,
		Result: &jobs.Result{
			ArtifactKey: "campaigns/campaign_book_20260101_000000.md",
			Preview:     "# 🎲 RPG CAMPAIGN",
			SizeBytes:   1234,
			Generator:   jobs.GeneratorGemini,
		},
	}
	st.jobs[job.ID] = job
	s := testServer(testConfig(), st, newFakeBlobs(), &fakeQueue{})

	req := httptest.NewRequest(http.MethodGet, "/v1/campaigns/"+job.ID.String(), nil)
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out StatusResponse
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Job == nil || out.Job.Result == nil {
		t.Fatalf("expected result on completed job, got %+v", out)
	}
	if out.Job.Result.ArtifactURL == "" {
		t.Fatal("expected a presigned URL on completed job")
	}
	if out.Job.Result.Generator != jobs.GeneratorGemini {
		t.Fatalf("expected generator variant, got %q", out.Job.Result.Generator)
	}
	if out.Job.Error != nil {
		t.Fatal("completed job must not carry an error item")
	}
}

func TestStatus_FailedCarriesErrorKind(t *testing.T) {
	st := newFakeStore()
	job := jobs.Job{
		ID:         uuid.New(),
		Status:     jobs.StatusFailed,
		SourceName: "book.pdf",
		Complexity: jobs.ComplexityMedium,
		Failure: &jobs.Failure{
			Kind:    jobs.ErrKindLimitExceeded,
			Message: "page limit exceeded: 900 pages (maximum 500)",
		},
	}
	st.jobs[job.ID] = job
	s := testServer(testConfig(), st, newFakeBlobs(), &fakeQueue{})

	req := httptest.NewRequest(http.MethodGet, "/v1/campaigns/"+job.ID.String(), nil)
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out StatusResponse
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Job == nil || out.Job.Error == nil {
		t.Fatalf("expected error item on failed job, got %+v", out)
	}
	if out.Job.Error.Kind != string(jobs.ErrKindLimitExceeded) {
		t.Fatalf("expected LIMIT_EXCEEDED, got %s", out.Job.Error.Kind)
	}
	if out.Job.Result != nil {
		t.Fatal("failed job must not carry a result")
	}
}

func TestComplexitiesCatalog(t *testing.T) {
	s := testServer(testConfig(), newFakeStore(), newFakeBlobs(), &fakeQueue{})

	req := httptest.NewRequest(http.MethodGet, "/v1/complexities", nil)
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out ComplexitiesResponse
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out.Complexities) != 3 {
		t.Fatalf("expected 3 tiers, got %d", len(out.Complexities))
	}
}

func TestLanguagesCatalog(t *testing.T) {
	s := testServer(testConfig(), newFakeStore(), newFakeBlobs(), &fakeQueue{})

	req := httptest.NewRequest(http.MethodGet, "/v1/languages", nil)
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out LanguagesResponse
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out.Languages) != 10 {
		t.Fatalf("expected 10 languages, got %d", len(out.Languages))
	}
	if out.Default != "pt" {
		t.Fatalf("expected configured default language, got %q", out.Default)
	}
}

func TestExampleCampaign(t *testing.T) {
	s := testServer(testConfig(), newFakeStore(), newFakeBlobs(), &fakeQueue{})

	req := httptest.NewRequest(http.MethodGet, "/v1/example?complexity=simple&language=en", nil)
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out ExampleResponse
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Complexity != "simple" || out.Language != "en" {
		t.Fatalf("unexpected parameters %+v", out)
	}
	if out.Title == "" || !strings.Contains(out.Content, "RPG CAMPAIGN") {
		t.Fatalf("expected a formatted campaign, got %+v", out)
	}
}

func TestExampleCampaign_DefaultsAndValidation(t *testing.T) {
	s := testServer(testConfig(), newFakeStore(), newFakeBlobs(), &fakeQueue{})

	req := httptest.NewRequest(http.MethodGet, "/v1/example", nil)
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out ExampleResponse
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Complexity != string(jobs.ComplexityMedium) || out.Language != "pt" {
		t.Fatalf("expected medium/pt defaults, got %+v", out)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/example?complexity=extreme", nil)
	resp, err = s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad complexity, got %d", resp.StatusCode)
	}
	if out := decodeError(t, resp); out.Code != string(jobs.ErrKindValidation) {
		t.Fatalf("expected VALIDATION_ERROR, got %s", out.Code)
	}
}

func TestServiceStatus(t *testing.T) {
	s := testServer(testConfig(), newFakeStore(), newFakeBlobs(), &fakeQueue{})

	req := httptest.NewRequest(http.MethodGet, "/v1/status", nil)
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out ServiceStatusResponse
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.MaxFileSizeMB != 1 || out.MaxPages != 500 {
		t.Fatalf("unexpected limits %+v", out)
	}
	if out.AIConfigured {
		t.Fatal("expected AI unconfigured in test config")
	}
}
