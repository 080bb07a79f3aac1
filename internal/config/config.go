package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	URL   string `yaml:"url"`
	Queue string `yaml:"queue"`
}

// StorageConfig configures the S3 (or S3-compatible) bucket used for
// both uploaded books and generated campaigns. Endpoint is only needed
// for S3-compatible services (MinIO etc.) and forces path-style access.
type StorageConfig struct {
	Region            string `yaml:"region"`
	Bucket            string `yaml:"bucket"`
	Endpoint          string `yaml:"endpoint"`
	AccessKeyID       string `yaml:"accessKeyId"`
	SecretAccessKey   string `yaml:"secretAccessKey"`
	PresignTTLMinutes int    `yaml:"presignTtlMinutes"`
}

// UploadConfig bounds what the submission endpoint accepts.
type UploadConfig struct {
	MaxFileSizeMB   int    `yaml:"maxFileSizeMb"`
	MaxPages        int    `yaml:"maxPages"`
	MinTextChars    int    `yaml:"minTextChars"`
	DefaultLanguage string `yaml:"defaultLanguage"`
}

type GeminiConfig struct {
	APIKey    string `yaml:"apiKey"`
	Model     string `yaml:"model"`
	TimeoutMs int    `yaml:"timeoutMs"`
}

type GeneratorConfig struct {
	Gemini GeminiConfig `yaml:"gemini"`
}

type WorkerConfig struct {
	Count              int `yaml:"count"`
	PopTimeoutMs       int `yaml:"popTimeoutMs"`
	HandoffMaxAttempts int `yaml:"handoffMaxAttempts"`
	HandoffBackoffMs   int `yaml:"handoffBackoffMs"`
}

type RateLimitConfig struct {
	SubmitPerMinute int `yaml:"submitPerMinute"`
}

// RetentionConfig controls TTL-like deletion of old terminal job
// records so that the database does not grow without bound over time.
// Disabled by default; jobs are otherwise retained indefinitely.
type RetentionConfig struct {
	Enabled                bool `yaml:"enabled"`
	CleanupIntervalMinutes int  `yaml:"cleanupIntervalMinutes"`
	TerminalDays           int  `yaml:"terminalDays"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Storage   StorageConfig   `yaml:"storage"`
	Upload    UploadConfig    `yaml:"upload"`
	Generator GeneratorConfig `yaml:"generator"`
	Worker    WorkerConfig    `yaml:"worker"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Retention RetentionConfig `yaml:"retention"`
}

func Load(path string) *Config {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		log.Fatalf("failed to decode config: %v", err)
	}

	return &cfg
}

// GeminiConfigured reports whether the AI-backed generator has enough
// configuration to be attempted at all. A placeholder or missing key
// means every job goes straight to the fallback generator.
func (c *Config) GeminiConfigured() bool {
	key := c.Generator.Gemini.APIKey
	return key != "" && len(key) > 10
}
