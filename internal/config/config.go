// Package config loads and holds all redaction engine configuration.
// Settings are read from hard defaults, then redactor-config.json (optional),
// then environment variables, last writer wins.
package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds the full engine configuration.
type Config struct {
	InferenceEndpoint string `json:"inferenceEndpoint"`
	ModelID           string `json:"modelId"`
	DiscoveryModelID  string `json:"discoveryModelId"`
	MaxTokens         int    `json:"maxTokens"`
	RequestTimeoutSec int    `json:"requestTimeoutSeconds"`
	LogLevel          string `json:"logLevel"`

	// Column names (lowercase) routed through the model-assisted text path.
	FreeTextColumns []string `json:"freeTextColumns"`

	// Path of the bbolt file caching discovered PII schemas; empty disables
	// persistence (an in-memory cache is used instead).
	SchemaCachePath string `json:"schemaCachePath"`

	// Optional file holding the discovery prompt template. When absent the
	// built-in template is used.
	PromptTemplateFile string `json:"promptTemplateFile"`

	// Directory redacted output files are written to. Empty means the input
	// file's directory.
	OutputDir string `json:"outputDir"`
}

// Load returns config with defaults overridden by redactor-config.json and
// env vars.
func Load() *Config {
	cfg := defaults()
	loadFile(cfg, "redactor-config.json")
	loadEnv(cfg)
	return cfg
}

func defaults() *Config {
	return &Config{
		InferenceEndpoint: "http://localhost:8000",
		ModelID:           "anthropic.claude-v2",
		DiscoveryModelID:  "anthropic.claude-3-5-sonnet",
		MaxTokens:         5000,
		RequestTimeoutSec: 30,
		LogLevel:          "info",
		FreeTextColumns:   []string{"notes", "comments"},
		SchemaCachePath:   "",
		OutputDir:         "",
	}
}

func loadFile(cfg *Config, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return // file is optional
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		log.Printf("[CONFIG] Warning: could not parse %s: %v", path, err)
	} else {
		log.Printf("[CONFIG] Loaded %s", path)
	}
}

func loadEnv(cfg *Config) {
	if v := os.Getenv("INFERENCE_ENDPOINT"); v != "" {
		cfg.InferenceEndpoint = v
	}
	if v := os.Getenv("MODEL_ID"); v != "" {
		cfg.ModelID = v
	}
	if v := os.Getenv("DISCOVERY_MODEL_ID"); v != "" {
		cfg.DiscoveryModelID = v
	}
	if v := os.Getenv("MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxTokens = n
		}
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RequestTimeoutSec = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("FREE_TEXT_COLUMNS"); v != "" {
		var cols []string
		for _, c := range strings.Split(v, ",") {
			if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
				cols = append(cols, c)
			}
		}
		if len(cols) > 0 {
			cfg.FreeTextColumns = cols
		}
	}
	if v := os.Getenv("SCHEMA_CACHE_PATH"); v != "" {
		cfg.SchemaCachePath = v
	}
	if v := os.Getenv("PROMPT_TEMPLATE_FILE"); v != "" {
		cfg.PromptTemplateFile = v
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
}
