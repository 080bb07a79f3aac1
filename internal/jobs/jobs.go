package jobs

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Complexity is the requested campaign complexity tier. It controls
// how many sessions and how much branching the generated campaign has.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// ParseComplexity normalizes and validates a user-supplied complexity
// value. An empty value defaults to medium; anything else outside the
// allowed set is rejected.
func ParseComplexity(raw string) (Complexity, bool) {
	switch Complexity(strings.ToLower(strings.TrimSpace(raw))) {
	case "":
		return ComplexityMedium, true
	case ComplexitySimple:
		return ComplexitySimple, true
	case ComplexityMedium:
		return ComplexityMedium, true
	case ComplexityComplex:
		return ComplexityComplex, true
	default:
		return "", false
	}
}

// ErrorKind is the coarse failure classification persisted on a failed
// job. Clients only ever see these kinds, never provider payloads or
// stack traces.
type ErrorKind string

const (
	ErrKindValidation    ErrorKind = "VALIDATION_ERROR"
	ErrKindLimitExceeded ErrorKind = "LIMIT_EXCEEDED"
	ErrKindFormat        ErrorKind = "FORMAT_ERROR"
	ErrKindStorage       ErrorKind = "STORAGE_ERROR"
)

// GeneratorVariant identifies which generation path produced the
// artifact; it is recorded for observability and never surfaced as an
// error.
const (
	GeneratorGemini   = "gemini"
	GeneratorFallback = "fallback"
)

// Result holds the fields present only on completed jobs. ArtifactKey
// references the campaign blob; retrieval URLs are presigned at read
// time, not stored, because they expire.
type Result struct {
	ArtifactKey string
	Preview     string
	SizeBytes   int64
	Generator   string
}

// Failure holds the fields present only on failed jobs.
type Failure struct {
	Kind    ErrorKind
	Message string
}

// Job is a single campaign-generation job record.
type Job struct {
	ID             uuid.UUID
	Status         Status
	SourceKey      string
	SourceName     string
	TargetLanguage string
	Complexity     Complexity
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Result         *Result
	Failure        *Failure
}
