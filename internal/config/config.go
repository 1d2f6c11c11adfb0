package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for OncoTrace
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Matching MatchingConfig `yaml:"matching"`
	Resolver ResolverConfig `yaml:"resolver"`
	Store    StoreConfig    `yaml:"store"`
	Viewer   ViewerConfig   `yaml:"viewer"`
	Audit    AuditConfig    `yaml:"audit"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port        int    `yaml:"port"`
	Environment string `yaml:"environment"`
}

// MatchingConfig holds text-matching tuning parameters. The defaults are
// empirically tuned, not normative; keep them out of code.
type MatchingConfig struct {
	FuzzyWordRatio    float64 `yaml:"fuzzy_word_ratio"`   // fraction of snippet words a fuzzy match must cover
	FuzzyMinWords     int     `yaml:"fuzzy_min_words"`    // lower bound on required words
	FuzzyFillerChars  int     `yaml:"fuzzy_filler_chars"` // max filler characters between words (OCR gaps, line breaks)
	WindowSnippetLen  int     `yaml:"window_snippet_len"` // snippets longer than this also get sliding-window matching
	WindowSize        int     `yaml:"window_size"`        // words per sliding window
	KeywordMinLength  int     `yaml:"keyword_min_length"` // shortest token the keyword fallback will search for
	SynonymConfidence float64 `yaml:"synonym_confidence"`
	KeywordConfidence float64 `yaml:"keyword_confidence"`
}

// ResolverConfig holds document-resolution configuration
type ResolverConfig struct {
	MinSharedTokens int `yaml:"min_shared_tokens"` // shared name tokens required for a fuzzy remap
	SuggestionLimit int `yaml:"suggestion_limit"`  // alternatives listed on a failed resolution
}

// StoreConfig holds document store configuration
type StoreConfig struct {
	TextCacheTTL     time.Duration `yaml:"text_cache_ttl"`
	TextCacheCleanup time.Duration `yaml:"text_cache_cleanup"`
}

// ViewerConfig holds external-viewer deep link configuration
type ViewerConfig struct {
	PDFBaseURL string `yaml:"pdf_base_url"`
}

// AuditConfig holds provenance audit configuration
type AuditConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BufferSize  int    `yaml:"buffer_size"`
	DetailLevel string `yaml:"detail_level"`
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	cfg := Default()
	cfg.Server.Port = getEnvInt("PORT", cfg.Server.Port)
	cfg.Server.Environment = getEnv("ENVIRONMENT", cfg.Server.Environment)
	cfg.Matching.FuzzyWordRatio = getEnvFloat("FUZZY_WORD_RATIO", cfg.Matching.FuzzyWordRatio)
	cfg.Matching.FuzzyFillerChars = getEnvInt("FUZZY_FILLER_CHARS", cfg.Matching.FuzzyFillerChars)
	cfg.Matching.KeywordMinLength = getEnvInt("KEYWORD_MIN_LENGTH", cfg.Matching.KeywordMinLength)
	cfg.Viewer.PDFBaseURL = getEnv("PDF_VIEWER_URL", cfg.Viewer.PDFBaseURL)
	cfg.Audit.Enabled = getEnvBool("AUDIT_ENABLED", cfg.Audit.Enabled)
	return cfg
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        3007,
			Environment: "development",
		},
		Matching: MatchingConfig{
			FuzzyWordRatio:    0.7,
			FuzzyMinWords:     2,
			FuzzyFillerChars:  20,
			WindowSnippetLen:  20,
			WindowSize:        3,
			KeywordMinLength:  4,
			SynonymConfidence: 0.6,
			KeywordConfidence: 0.4,
		},
		Resolver: ResolverConfig{
			MinSharedTokens: 1,
			SuggestionLimit: 5,
		},
		Store: StoreConfig{
			TextCacheTTL:     10 * time.Minute,
			TextCacheCleanup: 30 * time.Minute,
		},
		Viewer: ViewerConfig{
			PDFBaseURL: "/viewer/pdf",
		},
		Audit: AuditConfig{
			Enabled:     true,
			BufferSize:  1000,
			DetailLevel: "full",
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
