package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tomeforge/internal/config"
)

// promptTextLimit bounds how much of the book is sent to the model,
// counted in characters.
const promptTextLimit = 15000

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiGenerator implements Generator using Google Gemini
// (Generative Language API). Any failure — transport, timeout, bad
// status, empty candidates — is reported as ErrUnavailable so the
// caller can fall back; a single retry is attempted on transient
// errors first.
type GeminiGenerator struct {
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
	http    *http.Client
}

func NewGemini(cfg config.GeminiConfig) *GeminiGenerator {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash-lite"
	}
	return &GeminiGenerator{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: defaultBaseURL,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
	}
}

// apiError is a non-2xx response from the provider. 4xx responses are
// deterministic and never retried; 5xx ones are.
type apiError struct {
	status int
}

func (e *apiError) Error() string {
	return fmt.Sprintf("google generateContent failed with status %d", e.status)
}

var errNoCandidates = errors.New("google generateContent returned no candidates")

// transient reports whether a second attempt could plausibly succeed:
// transport failures and 5xx responses, nothing else.
func transient(err error) bool {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.status >= 500
	}
	if errors.Is(err, errNoCandidates) {
		return false
	}
	return true
}

// googleGenerateContentRequest & response are minimal shapes for Gemini's generateContent.
type googleGenerateContentRequest struct {
	Contents []googleContent `json:"contents"`
}

type googleContent struct {
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text string `json:"text,omitempty"`
}

type googleGenerateContentResponse struct {
	Candidates []struct {
		Content googleContent `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiGenerator) Generate(ctx context.Context, bookText string, params Params) (Artifact, error) {
	if g.apiKey == "" {
		return Artifact{}, fmt.Errorf("%w: no api key configured", ErrUnavailable)
	}

	prompt := buildPrompt(bookText, params)

	content, err := g.generateContent(ctx, prompt)
	if err != nil && transient(err) {
		// One retry on transient failure before giving up on the AI path.
		content, err = g.generateContent(ctx, prompt)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return Artifact{
		Content: FormatCampaign(content, params, "", time.Now()),
	}, nil
}

func (g *GeminiGenerator) generateContent(ctx context.Context, prompt string) (string, error) {
	body := googleGenerateContentRequest{
		Contents: []googleContent{
			{Parts: []googlePart{{Text: prompt}}},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, url.QueryEscape(g.apiKey))

	reqCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &apiError{status: resp.StatusCode}
	}

	var parsed googleGenerateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", errNoCandidates
	}

	// Concatenate all parts' text for simplicity.
	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

func buildPrompt(bookText string, params Params) string {
	truncated := bookText
	if runes := []rune(bookText); len(runes) > promptTextLimit {
		truncated = string(runes[:promptTextLimit]) + "... [text truncated for analysis]"
	}

	var sb strings.Builder
	sb.WriteString("YOU ARE AN EXPERT RPG GAME MASTER specializing in creating complete, ready-to-play campaigns.\n\n")
	sb.WriteString("**PROVIDED RPG BOOK:**\n")
	sb.WriteString(truncated)
	sb.WriteString("\n\n**INSTRUCTIONS:**\n")
	fmt.Fprintf(&sb, "1. Analyze the RPG book above and UNDERSTAND its system, setting, mechanics and style\n")
	fmt.Fprintf(&sb, "2. Create a **%s** campaign in the language: %s\n", strings.ToUpper(string(params.Complexity)), params.TargetLanguage)
	sb.WriteString("3. The campaign must be COMPLETE - a game master should be able to pick it up and play with NO additional preparation\n\n")
	fmt.Fprintf(&sb, "**CAMPAIGN FORMAT (%s):**\n%s\n\n", string(params.Complexity), guidelines(params.Complexity))
	sb.WriteString("**REQUIRED STRUCTURE:**\n")
	sb.WriteString("```yaml\n")
	sb.WriteString("Title: [creative campaign title]\n")
	fmt.Fprintf(&sb, "Complexity: %s\n", string(params.Complexity))
	sb.WriteString("Sessions: [number based on complexity]\n")
	sb.WriteString("Character Level: [recommended range]\n")
	sb.WriteString("System: [based on the analyzed book]\n")
	sb.WriteString("```\n\n")
	sb.WriteString("**DETAILED CONTENT:**\n")
	sb.WriteString("- **OVERVIEW**: Engaging campaign summary\n")
	sb.WriteString("- **OPENING HOOK**: How to start the first session\n")
	sb.WriteString("- **CHARACTER ARCHETYPES**: Suggestions that fit the campaign\n")
	sb.WriteString("- **DETAILED SESSIONS**: Each session with objectives, encounters, NPCs, treasure\n")
	sb.WriteString("- **KEY NPCS**: Full statistics or clear system references\n")
	sb.WriteString("- **ENEMIES AND CREATURES**: Balanced encounters\n")
	sb.WriteString("- **REWARDS AND TREASURE**: Magic items, equipment, rewards\n")
	sb.WriteString("- **CHALLENGES AND PUZZLES**: Non-combat challenges\n")
	sb.WriteString("- **POSSIBLE ENDINGS**: Multiple outcomes based on choices\n")
	sb.WriteString("- **MAPS AND LOCATIONS**: Detailed descriptions or instructions to create them\n\n")
	sb.WriteString("**STYLE:**\n")
	sb.WriteString("- Use markdown formatting\n")
	sb.WriteString("- Be specific and detailed\n")
	sb.WriteString("- Provide statistics or clear references to the system\n")
	sb.WriteString("- Include NPC dialogue where relevant\n")
	sb.WriteString("- Balance combat, exploration and roleplay\n\n")
	fmt.Fprintf(&sb, "Generate the complete campaign in %s:\n", params.TargetLanguage)

	return sb.String()
}
