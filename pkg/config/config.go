package config

// Config represents the top-level configuration for the agent-memory library.
type Config struct {
	// Memory configures the vector record store
	Memory MemoryConfig `yaml:"memory"`

	// Embedding configures the embedding provider
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Recommend configures the skill recommendation scoring
	Recommend RecommendConfig `yaml:"recommend"`

	// Scripting configures the Lua hook engine
	Scripting ScriptingConfig `yaml:"scripting"`

	// Logging configures the logging behavior
	Logging LoggingConfig `yaml:"logging"`
}

// MemoryConfig configures the vector record store.
type MemoryConfig struct {
	// Store specifies the backend ("file", "boltdb", "sqlite", "pgvector", "chromem")
	Store string `yaml:"store"`

	// ChunkSize is the soft character limit per ingested chunk
	ChunkSize int `yaml:"chunk_size"`

	// File configures the single-file JSON store
	File FileStoreConfig `yaml:"file"`

	// BoltDB configures the bbolt-backed store
	BoltDB BoltDBConfig `yaml:"boltdb"`

	// SQL configures the sqlx-backed store
	SQL SQLConfig `yaml:"sql"`

	// PgVector configures PostgreSQL pgvector storage
	PgVector PgVectorConfig `yaml:"pgvector"`

	// Chromem configures chromem-go vector storage
	Chromem ChromemConfig `yaml:"chromem"`
}

// FileStoreConfig configures the default single-file JSON store.
type FileStoreConfig struct {
	// Path is the location of the memory snapshot file
	Path string `yaml:"path"`

	// HistoryPath is the location of the skill execution history file
	HistoryPath string `yaml:"history_path"`
}

// BoltDBConfig configures bbolt-backed storage.
type BoltDBConfig struct {
	// Path is the BoltDB database file
	Path string `yaml:"path"`
}

// SQLConfig configures sqlx-backed storage.
type SQLConfig struct {
	// Driver is the SQL driver ("sqlite3", "postgres")
	Driver string `yaml:"driver"`

	// DSN is the data source name (connection string)
	DSN string `yaml:"dsn"`
}

// PgVectorConfig configures PostgreSQL with pgvector extension
type PgVectorConfig struct {
	// ConnectionString is the PostgreSQL connection string
	ConnectionString string `yaml:"connection_string"`

	// TableName is the name of the table to use
	TableName string `yaml:"table_name"`
}

// ChromemConfig configures chromem-go vector storage.
type ChromemConfig struct {
	// Collection is the collection name to use
	Collection string `yaml:"collection"`

	// StoragePath is the path for on-disk persistent storage (if empty, in-memory is used)
	StoragePath string `yaml:"storage_path"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is the embedding backend ("openai", "deterministic")
	Provider string `yaml:"provider"`

	// Dimensions is the embedding vector length, constant per store
	Dimensions int `yaml:"dimensions"`

	// OpenAI configures the model-backed provider
	OpenAI OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig configures the OpenAI embedding provider.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key
	APIKey string `yaml:"api_key"`

	// Model is the embedding model to use
	Model string `yaml:"model"`

	// BaseURL overrides the API endpoint (for testing)
	BaseURL string `yaml:"base_url"`
}

// RecommendConfig configures skill recommendation scoring. The defaults match
// the historical tuning; they are exposed here rather than hard-coded because
// no principled derivation for them exists. Fields are pointers so an
// explicit zero in the config is distinguishable from an unset field.
type RecommendConfig struct {
	// ContextSimilarityThreshold is the minimum Jaccard similarity between
	// query texts for a history record to count as similar
	ContextSimilarityThreshold *float64 `yaml:"context_similarity_threshold"`

	// NameWeight is the per-keyword score for a skill name match
	NameWeight *float64 `yaml:"name_weight"`

	// DescriptionWeight is the per-keyword score for a skill description match
	DescriptionWeight *float64 `yaml:"description_weight"`

	// NeutralSuccessRate is the success rate assumed for skills with no
	// similar history
	NeutralSuccessRate *float64 `yaml:"neutral_success_rate"`
}

// ScriptingConfig configures the Lua hook engine.
type ScriptingConfig struct {
	// Paths is a list of directories containing Lua scripts
	Paths []string `yaml:"paths"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	// Level is the logging level ("debug", "info", "warn", "error")
	Level string `yaml:"level"`

	// Format is the output format ("text", "json")
	Format string `yaml:"format"`
}
