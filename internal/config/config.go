package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	// LLM
	LLMProvider     string
	LLMModel        string
	LLMBaseURL      string
	LLMTimeout      time.Duration
	LLMRetries      int
	LLMStatsWindow  time.Duration
	OpenAIAPIKey    string
	AnthropicAPIKey string

	// Transcription
	PDFFallbackPdftotext bool
	ConvertHTMLTables    bool

	// Problem banks
	SrcRoot       string
	BuildRoot     string // defaults to SrcRoot: documents sit next to their problems
	Banks         []string // bank names under SrcRoot/banks
	ProblemPrefix string
	ProblemSuffix string
	ContextFile   string

	// Document metadata
	Author string
	Date   string
	Margin string

	// Knowledge base server
	Port        string
	ServeAPIKey string
	IndexPath   string
	PagesMDDir  string
	SectionsDir string
	JobWorkers  int
	JobQueue    int
	JobTTL      time.Duration

	LogLevel  string
	LogFormat string
}

// LoadEnvFile merges a dotenv file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func Load() Config {
	srcRoot := envOr("STUDYKIT_SRC_ROOT", "src")
	cfg := Config{
		LLMProvider:     strings.ToLower(envOr("LLM_PROVIDER", ProviderOpenAI)),
		LLMModel:        os.Getenv("LLM_MODEL"),
		LLMBaseURL:      os.Getenv("LLM_BASE_URL"),
		LLMTimeout:      envDuration("LLM_TIMEOUT", 120*time.Second),
		LLMRetries:      envInt("LLM_RETRIES", 3),
		LLMStatsWindow:  envDuration("LLM_STATS_WINDOW", time.Hour),
		OpenAIAPIKey:    envOr("OPENAI_API_KEY", os.Getenv("MY_API_KEY")),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
		ConvertHTMLTables:    envBool("CONVERT_HTML_TABLES", true),

		SrcRoot:       srcRoot,
		BuildRoot:     envOr("STUDYKIT_BUILD_ROOT", srcRoot),
		Banks:         envList("STUDYKIT_BANKS", []string{"Bank1", "Bank2"}),
		ProblemPrefix: envOr("PROBLEM_PREFIX", "problem"),
		ProblemSuffix: envOr("PROBLEM_SUFFIX", ".tex"),
		ContextFile:   envOr("STUDYKIT_CONTEXT_FILE", "context"),

		Author: os.Getenv("EXAM_AUTHOR"),
		Date:   os.Getenv("EXAM_DATE"),
		Margin: envOr("EXAM_MARGIN", "1in"),

		Port:        envOr("PORT", "8090"),
		ServeAPIKey: os.Getenv("STUDYKIT_API_KEY"),
		IndexPath:   envOr("STUDYKIT_INDEX", filepath.Join("book_pages", "index.json")),
		PagesMDDir:  envOr("STUDYKIT_PAGES_MD", "book_pages_md"),
		SectionsDir: envOr("STUDYKIT_SECTIONS", "book_sections_md"),
		JobWorkers:  envInt("JOB_WORKERS", 1),
		JobQueue:    envInt("JOB_QUEUE_SIZE", 16),
		JobTTL:      envDuration("JOB_TTL", time.Hour),

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "text"),
	}

	if cfg.LLMRetries <= 0 {
		cfg.LLMRetries = 3
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 120 * time.Second
	}
	if cfg.LLMStatsWindow <= 0 {
		cfg.LLMStatsWindow = time.Hour
	}

	return cfg
}

// Validate checks settings every command depends on. Credentials are checked
// separately by RequireLLM, only for commands that call a model.
func (c Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderAnthropic, c.LLMProvider)
	}
	if len(c.Banks) == 0 {
		return fmt.Errorf("STUDYKIT_BANKS must name at least one bank")
	}
	if c.ProblemPrefix == "" && c.ProblemSuffix == "" {
		return fmt.Errorf("PROBLEM_PREFIX and PROBLEM_SUFFIX cannot both be empty")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}
	if c.JobWorkers < 1 || c.JobQueue < 1 {
		return fmt.Errorf("JOB_WORKERS and JOB_QUEUE_SIZE must be at least 1")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// RequireLLM fails when the selected provider has no API key.
func (c Config) RequireLLM() error {
	if c.APIKey() != "" {
		return nil
	}
	if c.LLMProvider == ProviderAnthropic {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	return fmt.Errorf("OPENAI_API_KEY (or MY_API_KEY) is required")
}

// APIKey returns the credential of the selected provider.
func (c Config) APIKey() string {
	if c.LLMProvider == ProviderAnthropic {
		return c.AnthropicAPIKey
	}
	return c.OpenAIAPIKey
}

// BankDirs are the configured bank directories.
func (c Config) BankDirs() []string {
	dirs := make([]string, len(c.Banks))
	for i, name := range c.Banks {
		dirs[i] = filepath.Join(c.SrcRoot, "banks", name)
	}
	return dirs
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
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

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
