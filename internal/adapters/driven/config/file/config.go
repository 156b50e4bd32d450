package file

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all tunable settings, read from a TOML file.
// Missing fields keep their defaults so a partial file is valid.
type Config struct {
	// DataDir is the root for all local state: the document registry,
	// the vector store and the alias log. Defaults to ~/.sdsassist.
	DataDir string `toml:"data_dir"`

	Embedder  EmbedderConfig  `toml:"embedder"`
	Generator GeneratorConfig `toml:"generator"`
	OCR       OCRConfig       `toml:"ocr"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Rules     RulesConfig     `toml:"rules"`
	Answer    AnswerConfig    `toml:"answer"`
	Ingest    IngestConfig    `toml:"ingest"`
}

// EmbedderConfig selects and tunes the embedding provider.
type EmbedderConfig struct {
	// Provider is "openai" or "ollama".
	Provider string `toml:"provider"`
	Model    string `toml:"model"`

	// APIKeyEnv names the environment variable holding the API key.
	// The key itself never lives in the config file.
	APIKeyEnv string `toml:"api_key_env"`

	BaseURL           string `toml:"base_url"`
	Dimensions        int    `toml:"dimensions"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

// GeneratorConfig selects and tunes the answer generator.
type GeneratorConfig struct {
	// Provider is "openai", "gemini" or "mock".
	Provider string `toml:"provider"`
	Model    string `toml:"model"`

	APIKeyEnv string `toml:"api_key_env"`

	BaseURL     string  `toml:"base_url"`
	Temperature float64 `toml:"temperature"`
}

// OCRConfig controls the scanned-page fallback.
type OCRConfig struct {
	Enabled bool `toml:"enabled"`

	// Binary is the tesseract executable name or path.
	Binary string `toml:"binary"`

	Lang string `toml:"lang"`
}

// RetrievalConfig tunes the retrieval stage.
type RetrievalConfig struct {
	K        int     `toml:"k"`
	MinScore float64 `toml:"min_score"`
	MinHits  int     `toml:"min_hits"`
}

// RulesConfig points at the compatibility rule set.
type RulesConfig struct {
	// Path overrides the built-in rule set when non-empty.
	Path string `toml:"path"`
}

// AnswerConfig tunes answer assembly.
type AnswerConfig struct {
	// TimeoutSeconds bounds one full question round trip.
	TimeoutSeconds int `toml:"timeout_seconds"`

	MaxTokens int `toml:"max_tokens"`

	// PromptDir overrides the default prompt template directory.
	PromptDir string `toml:"prompt_dir"`
}

// IngestConfig tunes batch ingestion.
type IngestConfig struct {
	Workers int `toml:"workers"`

	// MaxPages caps pages read per document, 0 = no cap.
	MaxPages int `toml:"max_pages"`
}

// DefaultConfig returns a config with all defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Embedder: EmbedderConfig{
			Provider:          "openai",
			Model:             "text-embedding-3-small",
			APIKeyEnv:         "OPENAI_API_KEY",
			RequestsPerMinute: 60,
		},
		Generator: GeneratorConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: 0.1,
		},
		OCR: OCRConfig{
			Enabled: true,
			Binary:  "tesseract",
			Lang:    "eng",
		},
		Retrieval: RetrievalConfig{
			K:        6,
			MinScore: 0.25,
			MinHits:  2,
		},
		Answer: AnswerConfig{
			TimeoutSeconds: 60,
			MaxTokens:      700,
		},
		Ingest: IngestConfig{
			Workers: 4,
		},
	}
}

// LoadConfig reads the TOML config at configDir/config.toml, applying
// defaults for anything the file omits. A missing file yields defaults.
// If configDir is empty, defaults to ~/.sdsassist.
func LoadConfig(configDir string) (*Config, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		configDir = filepath.Join(home, ".sdsassist")
	}

	cfg := DefaultConfig()
	if cfg.DataDir == "" {
		cfg.DataDir = configDir
	}

	path := filepath.Join(configDir, "config.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = configDir
	}
	return cfg, nil
}

// Save writes the config to configDir/config.toml with restricted
// permissions, creating the directory if needed.
func (c *Config) Save(configDir string) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.toml"), data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// AnswerTimeout returns the answer timeout as a duration.
func (c *Config) AnswerTimeout() time.Duration {
	return time.Duration(c.Answer.TimeoutSeconds) * time.Second
}
