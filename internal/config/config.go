package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgallion1/ismsdoc/internal/doctree"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Generation
	TemplatePath      string
	OutputDir         string
	Profile           string
	LastModifiedBy    string
	DefaultTableStyle string

	// Property patch replace loop
	ReplaceAttempts int
	ReplaceBackoff  time.Duration

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("ISMSDOC_API_KEY"),

		TemplatePath:      os.Getenv("TEMPLATE_PATH"),
		OutputDir:         envOr("OUTPUT_DIR", "out"),
		Profile:           envOr("PROFILE", "standard"),
		LastModifiedBy:    envOr("LAST_MODIFIED_BY", "ISMS Hybrid Generator"),
		DefaultTableStyle: envOr("DEFAULT_TABLE_STYLE", "TracWater table"),

		ReplaceAttempts: envInt("REPLACE_ATTEMPTS", 8),
		ReplaceBackoff:  envDuration("REPLACE_BACKOFF", 250*time.Millisecond),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.ReplaceAttempts <= 0 {
		cfg.ReplaceAttempts = 8
	}
	if cfg.ReplaceBackoff <= 0 {
		cfg.ReplaceBackoff = 250 * time.Millisecond
	}

	return cfg
}

// Validate checks settings the server cannot start without.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("ISMSDOC_API_KEY is required")
	}
	if _, err := doctree.ProfileByName(c.Profile); err != nil {
		return fmt.Errorf("PROFILE: %w", err)
	}
	if c.TemplatePath != "" {
		if _, err := os.Stat(c.TemplatePath); err != nil {
			return fmt.Errorf("TEMPLATE_PATH: %w", err)
		}
	}
	if c.OutputDir == "" {
		return fmt.Errorf("OUTPUT_DIR is required")
	}
	return nil
}

// DocProfile resolves Profile, falling back to the standard profile.
func (c Config) DocProfile() doctree.Profile {
	p, err := doctree.ProfileByName(c.Profile)
	if err != nil {
		return doctree.StandardProfile()
	}
	return p
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
