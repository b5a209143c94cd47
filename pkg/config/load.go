package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default values applied by validateConfig when the corresponding field is unset.
const (
	DefaultDimensions  = 384
	DefaultChunkSize   = 2000
	DefaultStorePath   = "./data/memories.json"
	DefaultHistoryPath = "./data/skill_history.json"
)

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from a byte slice.
func LoadFromBytes(data []byte) (*Config, error) {
	var config Config

	err := yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvironmentOverrides(&config)

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a validated configuration with all defaults applied and the
// file store selected. Useful when no config file is present.
func Default() *Config {
	config := &Config{}
	applyEnvironmentOverrides(config)
	// validateConfig only fails on unsupported backend names, which the zero
	// value cannot contain.
	_ = validateConfig(config)
	return config
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func applyEnvironmentOverrides(config *Config) {
	// Memory store path override
	if path := os.Getenv("AGENTMEM_STORE_PATH"); path != "" {
		config.Memory.File.Path = path
	}

	// History store path override
	if path := os.Getenv("AGENTMEM_HISTORY_PATH"); path != "" {
		config.Memory.File.HistoryPath = path
	}

	// SQL DSN override
	if dsn := os.Getenv("AGENTMEM_SQL_DSN"); dsn != "" {
		config.Memory.SQL.DSN = dsn
	}

	// PgVector connection string override
	if connStr := os.Getenv("PGVECTOR_URL"); connStr != "" {
		config.Memory.PgVector.ConnectionString = connStr
	}

	// OpenAI API key override
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.Embedding.OpenAI.APIKey = apiKey
	}
}

// validateConfig validates the configuration and applies defaults.
func validateConfig(config *Config) error {
	// Validate memory store configuration
	switch strings.ToLower(config.Memory.Store) {
	case "file", "":
		config.Memory.Store = "file"
		if config.Memory.File.Path == "" {
			config.Memory.File.Path = DefaultStorePath
		}
		if config.Memory.File.HistoryPath == "" {
			config.Memory.File.HistoryPath = DefaultHistoryPath
		}
	case "boltdb":
		if config.Memory.BoltDB.Path == "" {
			config.Memory.BoltDB.Path = "./data/memories.bolt.db"
		}
	case "sqlite", "sql":
		config.Memory.Store = "sqlite"
		if config.Memory.SQL.Driver == "" {
			config.Memory.SQL.Driver = "sqlite3"
		}
		if config.Memory.SQL.DSN == "" {
			if config.Memory.SQL.Driver == "sqlite3" {
				config.Memory.SQL.DSN = "./data/memories.db"
			} else {
				return fmt.Errorf("sql DSN is required for driver %s", config.Memory.SQL.Driver)
			}
		}
	case "pgvector":
		if config.Memory.PgVector.ConnectionString == "" {
			return fmt.Errorf("connection string is required for pgvector store")
		}
		if config.Memory.PgVector.TableName == "" {
			config.Memory.PgVector.TableName = "memory_entries"
		}
	case "chromem":
		if config.Memory.Chromem.Collection == "" {
			config.Memory.Chromem.Collection = "memories"
		}
	default:
		return fmt.Errorf("unsupported memory store type: %s", config.Memory.Store)
	}

	if config.Memory.ChunkSize <= 0 {
		config.Memory.ChunkSize = DefaultChunkSize
	}

	// Validate embedding configuration
	switch strings.ToLower(config.Embedding.Provider) {
	case "openai", "":
		// API key can come from the environment; without one the provider
		// falls back to the deterministic scheme at runtime.
		if config.Embedding.OpenAI.Model == "" {
			config.Embedding.OpenAI.Model = "text-embedding-3-small"
		}
		if config.Embedding.Provider == "" {
			config.Embedding.Provider = "openai"
		}
	case "deterministic":
		// No additional settings
	default:
		return fmt.Errorf("unsupported embedding provider: %s", config.Embedding.Provider)
	}

	if config.Embedding.Dimensions <= 0 {
		config.Embedding.Dimensions = DefaultDimensions
	}

	// Apply recommendation scoring defaults. Only nil means unset; an
	// explicit zero in the config is a deliberate parameter choice.
	if config.Recommend.ContextSimilarityThreshold == nil {
		config.Recommend.ContextSimilarityThreshold = float64Ptr(0.3)
	}
	if config.Recommend.NameWeight == nil {
		config.Recommend.NameWeight = float64Ptr(0.3)
	}
	if config.Recommend.DescriptionWeight == nil {
		config.Recommend.DescriptionWeight = float64Ptr(0.2)
	}
	if config.Recommend.NeutralSuccessRate == nil {
		config.Recommend.NeutralSuccessRate = float64Ptr(0.5)
	}

	return nil
}

func float64Ptr(v float64) *float64 {
	return &v
}
