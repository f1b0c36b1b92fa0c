package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Defaults for the pipeline tuning knobs. These match the sizes the
// store is indexed for. The store splits each insert batch into
// statements that fit its parameter budget, so InsertBatchSize is not
// bounded by that budget.
const (
	DefaultChunkSize       = 20_000
	DefaultInsertBatchSize = 10_000
	DefaultPageSize        = 1_000
	DefaultMaxConnections  = 30
)

// Config carries everything the pipeline reads from the environment and
// the optional tuning file.
type Config struct {
	// DatabaseURL is the SQLite DSN, read from DATABASE_URL. It is the
	// only mandatory external configuration.
	DatabaseURL string `yaml:"-"`

	// ChunkSize is the number of CSV rows framed per pipeline chunk.
	ChunkSize int `yaml:"chunk_size"`
	// InsertBatchSize is the number of operations deduplicated and
	// bulk-inserted per worker dispatch.
	InsertBatchSize int `yaml:"insert_batch_size"`
	// PageSize is the number of entities reduced per projector page.
	PageSize int `yaml:"page_size"`
	// Workers bounds the parallel dedup/insert and projection workers.
	Workers int `yaml:"workers"`
	// MaxConnections caps the database connection pool.
	MaxConnections int `yaml:"max_connections"`
}

// Default returns the built-in tuning with worker parallelism bounded by
// the CPU count and the connection pool.
func Default() Config {
	return Config{
		ChunkSize:       DefaultChunkSize,
		InsertBatchSize: DefaultInsertBatchSize,
		PageSize:        DefaultPageSize,
		Workers:         min(runtime.NumCPU(), DefaultMaxConnections),
		MaxConnections:  DefaultMaxConnections,
	}
}

// Load builds the configuration from the environment, layering the
// optional YAML tuning file at path over the defaults. An empty path
// skips the file; a missing file at an explicit path is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("config: DATABASE_URL is not set")
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	// A pool smaller than the worker count would stall workers on
	// connection acquisition for entire chunks.
	if cfg.Workers > cfg.MaxConnections {
		cfg.Workers = cfg.MaxConnections
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("config: chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.InsertBatchSize <= 0 {
		return fmt.Errorf("config: insert_batch_size must be positive, got %d", c.InsertBatchSize)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("config: page_size must be positive, got %d", c.PageSize)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("config: workers must be positive, got %d", c.Workers)
	}
	if c.MaxConnections <= 0 {
		return fmt.Errorf("config: max_connections must be positive, got %d", c.MaxConnections)
	}
	return nil
}
