package agentmem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	bolt "go.etcd.io/bbolt"

	// SQL drivers for the sqlx-backed store.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/wuzeru/agent-memory/pkg/config"
	"github.com/wuzeru/agent-memory/pkg/convert"
	"github.com/wuzeru/agent-memory/pkg/embedding"
	deterministicEmbed "github.com/wuzeru/agent-memory/pkg/embedding/adapters/deterministic"
	openaiEmbed "github.com/wuzeru/agent-memory/pkg/embedding/adapters/openai"
	"github.com/wuzeru/agent-memory/pkg/log"
	"github.com/wuzeru/agent-memory/pkg/memory"
	boltStore "github.com/wuzeru/agent-memory/pkg/memory/adapters/boltdb"
	chromemStore "github.com/wuzeru/agent-memory/pkg/memory/adapters/chromem"
	fileStore "github.com/wuzeru/agent-memory/pkg/memory/adapters/file"
	pgvectorStore "github.com/wuzeru/agent-memory/pkg/memory/adapters/pgvector"
	"github.com/wuzeru/agent-memory/pkg/memory/adapters/sqlstore"
	"github.com/wuzeru/agent-memory/pkg/scripting"
	"github.com/wuzeru/agent-memory/pkg/skills"
)

// NewFromConfigFile loads configuration from a YAML file and builds a
// client.
func NewFromConfigFile(path string) (*Client, error) {
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg)
}

// NewFromConfig builds a fully wired client from configuration.
func NewFromConfig(cfg *config.Config) (*Client, error) {
	store, err := initStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory store: %w", err)
	}

	provider, err := initProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}

	scriptEngine, err := initScriptEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize script engine: %w", err)
	}

	historyPath := cfg.Memory.File.HistoryPath
	if historyPath == "" {
		historyPath = config.DefaultHistoryPath
	}
	history, err := skills.NewFileHistoryStore(historyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize skill history: %w", err)
	}

	params := skills.DefaultParams()
	if cfg.Recommend.ContextSimilarityThreshold != nil {
		params.ContextSimilarityThreshold = *cfg.Recommend.ContextSimilarityThreshold
	}
	if cfg.Recommend.NameWeight != nil {
		params.NameWeight = *cfg.Recommend.NameWeight
	}
	if cfg.Recommend.DescriptionWeight != nil {
		params.DescriptionWeight = *cfg.Recommend.DescriptionWeight
	}
	if cfg.Recommend.NeutralSuccessRate != nil {
		params.NeutralSuccessRate = *cfg.Recommend.NeutralSuccessRate
	}
	skillEngine := skills.NewEngineWithParams(skills.NewCatalog(), history, params)

	return NewClient(
		store,
		provider,
		skillEngine,
		convert.NewTextConverter(),
		scriptEngine,
		cfg.Memory.ChunkSize,
	), nil
}

// initStore builds the configured memory.VectorStore backend.
func initStore(cfg *config.Config) (memory.VectorStore, error) {
	storeType := strings.ToLower(cfg.Memory.Store)

	switch storeType {
	case "", "file":
		path := cfg.Memory.File.Path
		if path == "" {
			path = config.DefaultStorePath
		}
		log.Info("Using file memory store", "path", path)
		return fileStore.NewFileStore(path)

	case "boltdb":
		path := cfg.Memory.BoltDB.Path
		if path == "" {
			path = "./data/memories.bolt.db"
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for BoltDB: %w", err)
		}

		log.Info("Using BoltDB memory store", "path", path)
		db, err := bolt.Open(path, 0o600, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to open BoltDB database: %w", err)
		}
		return boltStore.NewBoltStore(db)

	case "sqlite", "sql":
		driver := strings.ToLower(cfg.Memory.SQL.Driver)
		if driver == "" {
			driver = "sqlite3"
		}
		dsn := cfg.Memory.SQL.DSN
		if dsn == "" {
			if driver == "sqlite3" {
				dsn = "./data/memories.sqlite.db"
			} else {
				return nil, fmt.Errorf("SQL DSN not provided")
			}
		}

		log.Info("Using SQL memory store", "driver", driver)
		db, err := sqlx.Connect(driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
		}
		return sqlstore.NewSQLStore(db)

	case "pgvector":
		connectionString := cfg.Memory.PgVector.ConnectionString
		if connectionString == "" {
			connectionString = os.Getenv("PGVECTOR_URL")
			if connectionString == "" {
				return nil, fmt.Errorf("pgvector connection string not provided")
			}
		}

		log.Info("Using pgvector memory store", "table", cfg.Memory.PgVector.TableName)
		return pgvectorStore.NewPgvectorStore(context.Background(), pgvectorStore.Config{
			ConnectionString: connectionString,
			TableName:        cfg.Memory.PgVector.TableName,
			DimensionSize:    cfg.Embedding.Dimensions,
		})

	case "chromem":
		log.Info("Using chromem memory store",
			"collection", cfg.Memory.Chromem.Collection,
			"storage_path", cfg.Memory.Chromem.StoragePath)
		return chromemStore.NewChromemStoreWithConfig(chromemStore.Config{
			Collection:  cfg.Memory.Chromem.Collection,
			StoragePath: cfg.Memory.Chromem.StoragePath,
		})

	default:
		return nil, fmt.Errorf("unsupported memory store type: %s", cfg.Memory.Store)
	}
}

// initProvider builds the embedding provider. The model-backed provider is
// always wrapped with the deterministic fallback so embedding never fails
// outright.
func initProvider(cfg *config.Config) (embedding.Provider, error) {
	dimensions := cfg.Embedding.Dimensions
	if dimensions <= 0 {
		dimensions = config.DefaultDimensions
	}
	fallback := deterministicEmbed.NewProvider(dimensions)

	switch strings.ToLower(cfg.Embedding.Provider) {
	case "deterministic":
		return fallback, nil

	case "", "openai":
		apiKey := cfg.Embedding.OpenAI.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			log.Warn("No OpenAI API key configured, using deterministic embeddings")
			return fallback, nil
		}

		primary, err := openaiEmbed.NewOpenAIProvider(openaiEmbed.Config{
			APIKey:     apiKey,
			Model:      cfg.Embedding.OpenAI.Model,
			Dimensions: dimensions,
			BaseURL:    cfg.Embedding.OpenAI.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		return embedding.NewResilient(primary, fallback), nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}

// initScriptEngine builds the Lua engine and loads scripts from the
// configured directories. No configured paths means no script engine.
func initScriptEngine(cfg *config.Config) (scripting.Engine, error) {
	if len(cfg.Scripting.Paths) == 0 {
		return nil, nil
	}

	engine, err := scripting.NewLuaEngine(scripting.DefaultConfig())
	if err != nil {
		return nil, err
	}

	for _, dir := range cfg.Scripting.Paths {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		if err := engine.LoadScriptDir(dir); err != nil {
			engine.Close()
			return nil, err
		}
	}
	return engine, nil
}
