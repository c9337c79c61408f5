// Package config loads service configuration from YAML with environment
// variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// Config represents runtime configuration. Every field can be set in
// config.yaml and overridden by the environment.
type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	EndeeURL  string `yaml:"endeeURL"`
	IndexName string `yaml:"indexName"`

	GeminiAPIKey string `yaml:"geminiApiKey"`

	EmbeddingBaseURL string `yaml:"embeddingBaseURL"`
	EmbeddingModel   string `yaml:"embeddingModel"`
	EmbeddingDim     int    `yaml:"embeddingDim"`

	ChunkSize        int `yaml:"chunkSize"`
	ChunkOverlap     int `yaml:"chunkOverlap"`
	EmbedConcurrency int `yaml:"embedConcurrency"`

	TopK         int `yaml:"topK"`
	HistoryLimit int `yaml:"historyLimit"`
	MaxUploadMB  int `yaml:"maxUploadMB"`
}

// Load reads config from path (missing file is fine, defaults apply), then
// applies environment overrides and validates.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case os.IsNotExist(err):
		// Environment-only configuration.
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Port:             "8000",
		LogLevel:         "info",
		EndeeURL:         "http://localhost:8081",
		IndexName:        "documents",
		EmbeddingModel:   "all-minilm",
		EmbeddingDim:     384,
		ChunkSize:        500,
		ChunkOverlap:     100,
		EmbedConcurrency: 1,
		TopK:             5,
		HistoryLimit:     6,
		MaxUploadMB:      32,
	}
}

func applyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setString(&cfg.Port, "PORT")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.EndeeURL, "ENDEE_URL")
	setString(&cfg.IndexName, "INDEX_NAME")
	setString(&cfg.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&cfg.EmbeddingBaseURL, "EMBEDDING_BASE_URL")
	setString(&cfg.EmbeddingModel, "EMBEDDING_MODEL")
	setInt(&cfg.EmbeddingDim, "EMBEDDING_DIM")
	setInt(&cfg.ChunkSize, "CHUNK_SIZE")
	setInt(&cfg.ChunkOverlap, "CHUNK_OVERLAP")
	setInt(&cfg.EmbedConcurrency, "EMBED_CONCURRENCY")
	setInt(&cfg.TopK, "TOP_K")
	setInt(&cfg.HistoryLimit, "HISTORY_LIMIT")
	setInt(&cfg.MaxUploadMB, "MAX_UPLOAD_MB")
}

func validate(cfg Config) error {
	if cfg.Port == "" {
		return errors.New("config: port is required")
	}
	if cfg.EndeeURL == "" {
		return errors.New("config: endeeURL is required (set in config.yaml or ENDEE_URL)")
	}
	if cfg.IndexName == "" {
		return errors.New("config: indexName is required")
	}
	if cfg.EmbeddingModel == "" {
		return errors.New("config: embeddingModel is required")
	}
	if cfg.EmbeddingDim <= 0 {
		return errors.New("config: embeddingDim must be > 0")
	}
	if cfg.ChunkSize <= 0 {
		return errors.New("config: chunkSize must be > 0 (set in config.yaml or CHUNK_SIZE)")
	}
	if cfg.ChunkOverlap < 0 {
		return errors.New("config: chunkOverlap must be >= 0")
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return errors.New("config: chunkOverlap must be smaller than chunkSize")
	}
	if cfg.TopK <= 0 {
		return errors.New("config: topK must be > 0")
	}
	return nil
}
