// Package generate produces campaign artifacts from extracted book
// text. Two generators exist: an AI-backed one calling Gemini and a
// deterministic template fallback. The worker tries the AI path when
// configured and transparently falls back on any failure, so a job
// whose extraction succeeded always yields an artifact.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tomeforge/internal/jobs"
)

// ErrUnavailable signals that the AI-backed generator could not produce
// an artifact (unconfigured, timed out, or the provider errored). It is
// never a job failure; the orchestrator selects the fallback instead.
var ErrUnavailable = errors.New("generator unavailable")

// Params are the job parameters that shape the campaign.
type Params struct {
	TargetLanguage string
	Complexity     jobs.Complexity
}

// Artifact is a generated campaign document.
type Artifact struct {
	Title   string
	Content string
}

// Generator produces a campaign artifact from normalized book text.
type Generator interface {
	Generate(ctx context.Context, bookText string, params Params) (Artifact, error)
}

// sessionCounts maps complexity to the advertised session range.
var sessionCounts = map[jobs.Complexity]string{
	jobs.ComplexitySimple:  "1-2",
	jobs.ComplexityMedium:  "3-4",
	jobs.ComplexityComplex: "5+",
}

// SessionCount returns the session range label for a complexity tier.
func SessionCount(c jobs.Complexity) string {
	if s, ok := sessionCounts[c]; ok {
		return s
	}
	return sessionCounts[jobs.ComplexityMedium]
}

// guidelines returns the per-complexity structure constraints included
// in the AI prompt.
func guidelines(c jobs.Complexity) string {
	switch c {
	case jobs.ComplexitySimple:
		return `- 1-2 sessions of 3-4 hours each
- Linear, objective story
- 2-3 main encounters (combat/roleplay)
- 1-2 important NPCs
- 1 main location
- Direct resolution`
	case jobs.ComplexityComplex:
		return `- 5+ sessions of 3-4 hours each
- Non-linear story with multiple arcs
- 8+ varied encounters (combat, social, exploration)
- 6+ NPCs with complex motivations
- 4+ detailed locations
- Consequences for player choices
- Multiple possible endings`
	default:
		return `- 3-4 sessions of 3-4 hours each
- Story with some branches and choices
- 4-6 diverse encounters
- 3-5 NPCs with distinct personalities
- 2-3 interconnected locations
- Multiple ways to solve problems`
	}
}

// FormatCampaign wraps raw campaign content in the standard header and
// footer so every artifact has the same outer shape regardless of which
// generator produced it.
func FormatCampaign(content string, params Params, title string, now time.Time) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# 🎲 RPG CAMPAIGN - %s\n", strings.ToUpper(string(params.Complexity)))
	if title != "" {
		fmt.Fprintf(&sb, "# %s\n", title)
	}
	fmt.Fprintf(&sb, "**Duration**: %s sessions  \n", SessionCount(params.Complexity))
	fmt.Fprintf(&sb, "**Language**: %s  \n", params.TargetLanguage)
	fmt.Fprintf(&sb, "**Generated**: %s  \n", now.UTC().Format("2006-01-02 15:04"))
	fmt.Fprintf(&sb, "**Complexity**: %s\n", string(params.Complexity))
	sb.WriteString("\n---\n\n")
	sb.WriteString(strings.TrimSpace(content))
	sb.WriteString("\n\n---\n\n")
	sb.WriteString("*Campaign generated automatically from RPG book analysis. Balance may need adjustment for your specific group.*\n")

	return sb.String()
}

// Preview returns the first n characters of the content, with an
// ellipsis when truncated. Used for the job result preview field.
func Preview(content string, n int) string {
	if n <= 0 {
		n = 500
	}
	runes := []rune(content)
	if len(runes) <= n {
		return content
	}
	return string(runes[:n]) + "..."
}
