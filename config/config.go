// Package config provides configuration for the recall SDK and CLI.
// Settings come from an optional YAML file, overridden by environment
// variables with the RECALL_ prefix, with sensible defaults for
// everything except the API key.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all settings.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Memory  MemoryConfig  `yaml:"memory"`
	Storage StorageConfig `yaml:"storage"`
}

// LLMConfig configures the completion model.
type LLMConfig struct {
	// APIKey is the Anthropic API key. Env var: RECALL_API_KEY
	// (falls back to ANTHROPIC_API_KEY).
	APIKey string `yaml:"api_key"`

	// Model is the completion model name. Env var: RECALL_MODEL.
	Model string `yaml:"model"`

	// SystemPrompt is the base system instruction. Env var:
	// RECALL_SYSTEM_PROMPT.
	SystemPrompt string `yaml:"system_prompt"`

	// Timeout bounds each API call. Env var: RECALL_LLM_TIMEOUT.
	Timeout time.Duration `yaml:"timeout"`
}

// MemoryConfig configures the memory layer.
type MemoryConfig struct {
	// BatchSize is the summarization round boundary.
	// Env var: RECALL_BATCH_SIZE. Default: 50.
	BatchSize int `yaml:"batch_size"`

	// KeepSize is the post-trim window length.
	// Env var: RECALL_KEEP_SIZE. Default: 10.
	KeepSize int `yaml:"keep_size"`

	// TopK is how many memories are injected per call.
	// Env var: RECALL_TOP_K. Default: 5.
	TopK int `yaml:"top_k"`

	// RetentionMonths is the age threshold for retention sweeps.
	// Env var: RECALL_RETENTION_MONTHS. Default: 3.
	RetentionMonths int `yaml:"retention_months"`

	// Encoder selects the embedding strategy: "lexical" or "onnx".
	// Env var: RECALL_ENCODER. Default: lexical.
	Encoder string `yaml:"encoder"`

	// ModelPath and TokenizerPath locate the ONNX artifacts when
	// Encoder is "onnx". Env vars: RECALL_ONNX_MODEL,
	// RECALL_ONNX_TOKENIZER.
	ModelPath     string `yaml:"model_path"`
	TokenizerPath string `yaml:"tokenizer_path"`

	// Workers is the summarization pool size.
	// Env var: RECALL_WORKERS. Default: 2.
	Workers int `yaml:"workers"`
}

// StorageConfig configures persistence.
type StorageConfig struct {
	// Path is the SQLite database file. Env var: RECALL_DB_PATH.
	// Default: ./recall.db.
	Path string `yaml:"path"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Timeout: 120 * time.Second,
		},
		Memory: MemoryConfig{
			BatchSize:       50,
			KeepSize:        10,
			TopK:            5,
			RetentionMonths: 3,
			Encoder:         "lexical",
			Workers:         2,
		},
		Storage: StorageConfig{
			Path: "./recall.db",
		},
	}
}

// Load reads path (if non-empty and present), applies RECALL_* env
// overrides, and validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.LLM.APIKey, "RECALL_API_KEY")
	if c.LLM.APIKey == "" {
		setString(&c.LLM.APIKey, "ANTHROPIC_API_KEY")
	}
	setString(&c.LLM.Model, "RECALL_MODEL")
	setString(&c.LLM.SystemPrompt, "RECALL_SYSTEM_PROMPT")
	setDuration(&c.LLM.Timeout, "RECALL_LLM_TIMEOUT")

	setInt(&c.Memory.BatchSize, "RECALL_BATCH_SIZE")
	setInt(&c.Memory.KeepSize, "RECALL_KEEP_SIZE")
	setInt(&c.Memory.TopK, "RECALL_TOP_K")
	setInt(&c.Memory.RetentionMonths, "RECALL_RETENTION_MONTHS")
	setString(&c.Memory.Encoder, "RECALL_ENCODER")
	setString(&c.Memory.ModelPath, "RECALL_ONNX_MODEL")
	setString(&c.Memory.TokenizerPath, "RECALL_ONNX_TOKENIZER")
	setInt(&c.Memory.Workers, "RECALL_WORKERS")

	setString(&c.Storage.Path, "RECALL_DB_PATH")
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Memory.BatchSize <= 0 {
		return fmt.Errorf("config: batch_size must be positive, got %d", c.Memory.BatchSize)
	}
	if c.Memory.KeepSize <= 0 {
		return fmt.Errorf("config: keep_size must be positive, got %d", c.Memory.KeepSize)
	}
	if c.Memory.KeepSize > c.Memory.BatchSize {
		return fmt.Errorf("config: keep_size %d exceeds batch_size %d", c.Memory.KeepSize, c.Memory.BatchSize)
	}
	if c.Memory.TopK <= 0 {
		return fmt.Errorf("config: top_k must be positive, got %d", c.Memory.TopK)
	}
	switch c.Memory.Encoder {
	case "lexical", "onnx":
	default:
		return fmt.Errorf("config: unknown encoder %q", c.Memory.Encoder)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("config: storage path is required")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
