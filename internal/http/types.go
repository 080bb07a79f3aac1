package http

import "time"

// ErrorResponse is the error envelope shared by all endpoints.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error"`
}

// SubmitResponse acknowledges an accepted campaign job. The job is
// queued, not done; clients poll the status endpoint with JobID.
type SubmitResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id,omitempty"`
	Status  string `json:"status,omitempty"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ResultItem carries the completed-job fields. ArtifactURL is presigned
// fresh on every status read and expires; ArtifactKey is stable.
type ResultItem struct {
	ArtifactKey string `json:"artifactKey"`
	ArtifactURL string `json:"artifactUrl,omitempty"`
	Preview     string `json:"preview"`
	SizeBytes   int64  `json:"sizeBytes"`
	Generator   string `json:"generator"`
}

// ErrorItem carries the failed-job fields: a coarse machine-readable
// kind plus a human-readable message.
type ErrorItem struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type JobStatusItem struct {
	ID             string      `json:"id"`
	Status         string      `json:"status"`
	SourceName     string      `json:"sourceName"`
	TargetLanguage string      `json:"targetLanguage"`
	Complexity     string      `json:"complexity"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
	Result         *ResultItem `json:"result,omitempty"`
	Error          *ErrorItem  `json:"error,omitempty"`
}

type StatusResponse struct {
	Success bool           `json:"success"`
	Job     *JobStatusItem `json:"job,omitempty"`
	Code    string         `json:"code,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// ComplexityItem describes one available complexity tier.
type ComplexityItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Sessions    string `json:"sessions"`
	Description string `json:"description"`
}

type ComplexitiesResponse struct {
	Success      bool             `json:"success"`
	Complexities []ComplexityItem `json:"complexities"`
}

type LanguageItem struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type LanguagesResponse struct {
	Success   bool           `json:"success"`
	Languages []LanguageItem `json:"languages"`
	Default   string         `json:"default"`
}

// ExampleResponse carries a template campaign so clients can inspect
// the artifact shape without submitting a book.
type ExampleResponse struct {
	Success    bool   `json:"success"`
	Complexity string `json:"complexity"`
	Language   string `json:"language"`
	Title      string `json:"title"`
	Content    string `json:"content"`
}

// ServiceStatusResponse reports service capabilities and limits so
// clients can validate uploads before submitting.
type ServiceStatusResponse struct {
	Success          bool     `json:"success"`
	Service          string   `json:"service"`
	AIConfigured     bool     `json:"aiConfigured"`
	MaxFileSizeMB    int      `json:"maxFileSizeMb"`
	MaxPages         int      `json:"maxPages"`
	QueueDepth       int64    `json:"queueDepth"`
	DefaultLanguage  string   `json:"defaultLanguage"`
	SupportedFormats []string `json:"supportedFormats"`
}
