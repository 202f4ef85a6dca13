// Package config holds the control plane's ambient, process-level
// configuration: signing key material, storage backend selection, OTLP
// endpoint, and named gate profiles. Plain os.Getenv-with-defaults for
// process settings, gopkg.in/yaml.v3 for named profile files.
package config

import "os"

// StorageBackend selects the proof chain / artifact ledger's persistence.
type StorageBackend string

const (
	StorageInMemory StorageBackend = "memory"
	StorageSQLite   StorageBackend = "sqlite"
	StoragePostgres StorageBackend = "postgres"
)

// Config holds process-level control plane configuration.
type Config struct {
	LogLevel       string
	SigningKey     string
	StorageBackend StorageBackend
	DatabaseURL    string
	OTLPEndpoint   string
	OTLPEnabled    bool
	RedisURL       string
}

// Load loads configuration from environment variables.
func Load() *Config {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	signingKey := os.Getenv("GOVERNANCE_SIGNING_KEY")

	backend := StorageBackend(os.Getenv("GOVERNANCE_STORAGE_BACKEND"))
	if backend == "" {
		backend = StorageInMemory
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		// Default to local generic postgres
		dbURL = "postgres://governance@localhost:5433/governance?sslmode=disable"
	}

	otlpEndpoint := os.Getenv("OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	return &Config{
		LogLevel:       logLevel,
		SigningKey:     signingKey,
		StorageBackend: backend,
		DatabaseURL:    dbURL,
		OTLPEndpoint:   otlpEndpoint,
		OTLPEnabled:    os.Getenv("OTLP_ENABLED") == "true",
		RedisURL:       os.Getenv("REDIS_URL"),
	}
}
