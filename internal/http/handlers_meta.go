package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"tomeforge/internal/config"
	"tomeforge/internal/generate"
	"tomeforge/internal/jobs"
)

// complexitiesHandler lists the available complexity tiers.
func complexitiesHandler(c *fiber.Ctx) error {
	return c.JSON(ComplexitiesResponse{
		Success: true,
		Complexities: []ComplexityItem{
			{
				ID:          string(jobs.ComplexitySimple),
				Name:        "Simple",
				Sessions:    generate.SessionCount(jobs.ComplexitySimple),
				Description: "Short linear adventure with a handful of encounters",
			},
			{
				ID:          string(jobs.ComplexityMedium),
				Name:        "Medium",
				Sessions:    generate.SessionCount(jobs.ComplexityMedium),
				Description: "Branching story with several sessions and locations",
			},
			{
				ID:          string(jobs.ComplexityComplex),
				Name:        "Complex",
				Sessions:    generate.SessionCount(jobs.ComplexityComplex),
				Description: "Multi-arc campaign with factions and multiple endings",
			},
		},
	})
}

// languagesHandler lists the languages campaigns can be generated in.
func languagesHandler(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)

	def := cfg.Upload.DefaultLanguage
	if def == "" {
		def = "en"
	}

	return c.JSON(LanguagesResponse{
		Success: true,
		Default: def,
		Languages: []LanguageItem{
			{Code: "pt", Name: "Português"},
			{Code: "en", Name: "English"},
			{Code: "es", Name: "Español"},
			{Code: "fr", Name: "Français"},
			{Code: "de", Name: "Deutsch"},
			{Code: "it", Name: "Italiano"},
			{Code: "ja", Name: "日本語"},
			{Code: "ko", Name: "한국어"},
			{Code: "zh", Name: "中文"},
			{Code: "ru", Name: "Русский"},
		},
	})
}

// exampleCampaignHandler returns a template campaign for the requested
// complexity and language without requiring an upload. Lets clients see
// the artifact shape before submitting a book.
func exampleCampaignHandler(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)

	complexity, ok := jobs.ParseComplexity(c.Query("complexity"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    string(jobs.ErrKindValidation),
			Error:   "Invalid complexity; expected simple, medium or complex",
		})
	}

	language := strings.TrimSpace(c.Query("language"))
	if language == "" {
		language = cfg.Upload.DefaultLanguage
	}
	if language == "" {
		language = "en"
	}

	artifact, _ := generate.NewFallback().Generate(c.Context(), "", generate.Params{
		TargetLanguage: language,
		Complexity:     complexity,
	})

	return c.JSON(ExampleResponse{
		Success:    true,
		Complexity: string(complexity),
		Language:   language,
		Title:      artifact.Title,
		Content:    artifact.Content,
	})
}

// serviceStatusHandler reports service capabilities and limits.
func serviceStatusHandler(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)
	q := c.Locals("queue").(JobQueue)

	maxMB := cfg.Upload.MaxFileSizeMB
	if maxMB <= 0 {
		maxMB = 50
	}
	maxPages := cfg.Upload.MaxPages
	if maxPages <= 0 {
		maxPages = 500
	}
	def := cfg.Upload.DefaultLanguage
	if def == "" {
		def = "en"
	}

	depth, err := q.Len(c.Context())
	if err != nil {
		depth = -1
	}

	return c.JSON(ServiceStatusResponse{
		Success:          true,
		Service:          "tomeforge",
		AIConfigured:     cfg.GeminiConfigured(),
		MaxFileSizeMB:    maxMB,
		MaxPages:         maxPages,
		QueueDepth:       depth,
		DefaultLanguage:  def,
		SupportedFormats: []string{"pdf"},
	})
}
