// Package config provides configuration management for the knowledge
// engine.
//
// Configuration can be loaded from multiple sources (in order of
// precedence):
//  1. Environment variables (highest priority)
//  2. Configuration file (JSON)
//  3. Default values (lowest priority)
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is the complete engine configuration.
type Config struct {
	Engine      EngineConfig      `json:"engine"`
	Vector      VectorConfig      `json:"vector"`
	Query       QueryConfig       `json:"query"`
	Persistence PersistenceConfig `json:"persistence"`
	Logging     LoggingConfig     `json:"logging"`
}

// EngineConfig contains Session-level settings (§3, §6).
type EngineConfig struct {
	// HDCStrategy selects the vector similarity strategy: "exact" or
	// "approximate". Default "exact".
	HDCStrategy string `json:"hdc_strategy"`

	// CanonicalizationEnabled is only logged when a Session is
	// constructed; ArgTerm identifiers are not interned through
	// types.InternIdentifier.
	CanonicalizationEnabled bool `json:"canonicalization_enabled"`

	// DeadlineMs bounds a single query/prove call; 0 = no deadline.
	DeadlineMs int `json:"deadline_ms"`

	// MaxProofDepth bounds forward/backward chaining recursion depth.
	MaxProofDepth int `json:"max_proof_depth"`
}

// VectorConfig contains SymbolTable/VectorOracle settings (§6).
type VectorConfig struct {
	// Geometry is the vector dimension: one of 512, 1024, 2048, 4096.
	Geometry int `json:"geometry"`

	// SimilarityThreshold is the default acceptance threshold for
	// vector-similarity sources.
	SimilarityThreshold float64 `json:"similarity_threshold"`

	// NegationSimilarityThreshold is the fixed 0.85 bound from §4.7(b);
	// exposed for test tuning only, defaults to the spec's value.
	NegationSimilarityThreshold float64 `json:"negation_similarity_threshold"`
}

// QueryConfig contains QueryOrchestrator settings (§4.6).
type QueryConfig struct {
	// MaxHoles is the configured constant bounding hole count; 4 per
	// reference implementation.
	MaxHoles int `json:"max_holes"`

	// DefaultMaxResults caps AllResults when a caller does not specify
	// one; 0 = unlimited.
	DefaultMaxResults int `json:"default_max_results"`
}

// PersistenceConfig contains the optional SQLite vector-intern mirror
// and Neo4j theory-layer mirror settings (§11 DOMAIN STACK). Both are
// additive: the engine runs entirely in-memory when left unconfigured.
type PersistenceConfig struct {
	SQLitePath          string `json:"sqlite_path"`
	Neo4jURI            string `json:"neo4j_uri"`
	Neo4jUsername       string `json:"neo4j_username"`
	Neo4jPassword       string `json:"neo4j_password"`
	Neo4jMirrorOnCommit bool   `json:"neo4j_mirror_on_commit"`

	// FactLogPath is the NDJSON file a Session's fact set is loaded
	// from on startup and saved to on shutdown. Empty disables
	// persistence entirely; the engine then runs purely in-memory.
	FactLogPath string `json:"fact_log_path"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level            string `json:"level"`
	EnableTimestamps bool   `json:"enable_timestamps"`
}

// Default returns the engine's default configuration, matching the
// reference values named throughout spec.md §4 and §6.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			HDCStrategy:             "exact",
			CanonicalizationEnabled: false,
			DeadlineMs:              0,
			MaxProofDepth:           64,
		},
		Vector: VectorConfig{
			Geometry:                    1024,
			SimilarityThreshold:         0.35,
			NegationSimilarityThreshold: 0.85,
		},
		Query: QueryConfig{
			MaxHoles:          4,
			DefaultMaxResults: 0,
		},
		Persistence: PersistenceConfig{},
		Logging: LoggingConfig{
			Level:            "info",
			EnableTimestamps: true,
		},
	}
}

// Load loads configuration from environment variables layered over
// defaults.
func Load() (*Config, error) {
	cfg := Default()
	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a JSON file, then applies
// environment variable overrides.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFromEnv loads configuration from environment variables following
// the pattern KE_<SECTION>_<KEY>, e.g. KE_ENGINE_HDC_STRATEGY,
// KE_VECTOR_GEOMETRY.
func (c *Config) loadFromEnv() error {
	if v := os.Getenv("KE_ENGINE_HDC_STRATEGY"); v != "" {
		c.Engine.HDCStrategy = strings.ToLower(v)
	}
	if v := os.Getenv("KE_ENGINE_CANONICALIZATION_ENABLED"); v != "" {
		c.Engine.CanonicalizationEnabled = parseBool(v)
	}
	if v := os.Getenv("KE_ENGINE_DEADLINE_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Engine.DeadlineMs = n
		}
	}
	if v := os.Getenv("KE_ENGINE_MAX_PROOF_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Engine.MaxProofDepth = n
		}
	}

	if v := os.Getenv("KE_VECTOR_GEOMETRY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Vector.Geometry = n
		}
	}
	if v := os.Getenv("KE_VECTOR_SIMILARITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Vector.SimilarityThreshold = f
		}
	}

	if v := os.Getenv("KE_QUERY_MAX_HOLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Query.MaxHoles = n
		}
	}
	if v := os.Getenv("KE_QUERY_DEFAULT_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Query.DefaultMaxResults = n
		}
	}

	if v := os.Getenv("KE_PERSISTENCE_SQLITE_PATH"); v != "" {
		c.Persistence.SQLitePath = v
	}
	if v := os.Getenv("KE_PERSISTENCE_NEO4J_URI"); v != "" {
		c.Persistence.Neo4jURI = v
	}
	if v := os.Getenv("KE_PERSISTENCE_NEO4J_USERNAME"); v != "" {
		c.Persistence.Neo4jUsername = v
	}
	if v := os.Getenv("KE_PERSISTENCE_NEO4J_PASSWORD"); v != "" {
		c.Persistence.Neo4jPassword = v
	}
	if v := os.Getenv("KE_PERSISTENCE_NEO4J_MIRROR_ON_COMMIT"); v != "" {
		c.Persistence.Neo4jMirrorOnCommit = parseBool(v)
	}
	if v := os.Getenv("KE_PERSISTENCE_FACT_LOG_PATH"); v != "" {
		c.Persistence.FactLogPath = v
	}

	if v := os.Getenv("KE_LOGGING_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("KE_LOGGING_ENABLE_TIMESTAMPS"); v != "" {
		c.Logging.EnableTimestamps = parseBool(v)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Engine.HDCStrategy {
	case "exact", "approximate":
	default:
		return fmt.Errorf("engine.hdc_strategy must be 'exact' or 'approximate'")
	}
	if c.Engine.MaxProofDepth < 1 {
		return fmt.Errorf("engine.max_proof_depth must be >= 1")
	}
	if c.Engine.DeadlineMs < 0 {
		return fmt.Errorf("engine.deadline_ms cannot be negative")
	}

	switch c.Vector.Geometry {
	case 512, 1024, 2048, 4096:
	default:
		return fmt.Errorf("vector.geometry must be one of: 512, 1024, 2048, 4096")
	}
	if c.Vector.SimilarityThreshold < 0 || c.Vector.SimilarityThreshold > 1 {
		return fmt.Errorf("vector.similarity_threshold must be in [0,1]")
	}

	if c.Query.MaxHoles < 0 {
		return fmt.Errorf("query.max_holes cannot be negative")
	}
	if c.Query.DefaultMaxResults < 0 {
		return fmt.Errorf("query.default_max_results cannot be negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	return nil
}

// parseBool parses a boolean from string (handles various formats).
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on" || s == "enabled"
}

// ToJSON serializes the configuration to JSON.
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// SaveToFile saves the configuration to a JSON file.
func (c *Config) SaveToFile(path string) error {
	data, err := c.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
