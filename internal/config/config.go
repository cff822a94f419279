package config

import "context"

// Package config provides configuration management for sentinel-ai.
//
// Responsibilities:
//   - Load configuration from YAML files and environment variables
//   - Validate configuration on startup
//   - Provide runtime access to all configuration
//   - Support configuration reloading (for some settings)
//   - Manage sensitive data (API keys)
//   - Establish reasonable defaults
//
// Configuration Sources (priority order, high to low):
//   1. Environment variables (SENTINEL_* prefix)
//   2. YAML config file (default: /etc/sentinel/config.yaml)
//   3. Built-in defaults (lowest priority)
//
// Main Configuration Sections:
//
//   1. Server
//      - host/port: HTTP listen address (default 8081)
//      - allowed_origins: origins permitted to open WebSocket connections
//
//   2. LLM Provider
//      - provider: "openai" | "ollama" | "custom"
//      - per-provider maps: api_key, model, base_url, max_tokens
//
//   3. Retry
//      - max_attempts / base_delay_seconds / max_delay_seconds for every
//        external call (completion service, capabilities, similarity store)
//
//   4. Incidents (similarity store)
//      - weaviate_url: Weaviate endpoint; empty enables the in-memory fallback
//      - class_name: Weaviate class holding incident records
//      - embedding_model: OpenAI embedding model name
//      - top_k: number of similar incidents to retrieve
//
//   5. Capabilities
//      - searxng_url: SearxNG search endpoint for web-search / deep-research
//      - max_search_results: results scraped per deep-research query
//      - scrape_timeout_seconds: per-page fetch budget
//
//   6. Workflow
//      - min_plan_steps / max_plan_steps: plan size bounds (3–5)
//      - step_timeout_seconds: budget for one plan step
//
//   7. Database
//      - sqlite_path: path to the run-history SQLite file
//
//   8. Cache
//      - enabled / ttl_seconds / max_entries for the embedding cache
//
//   9. Logging
//      - level: "debug" | "info" | "warn" | "error"
//      - app_log_path / audit_log_path: rotated log destinations
//
//  10. RateLimit
//      - requests_per_minute for the HTTP surface

// Config contains all configuration fields.
type Config struct {
	// Server configuration
	Server struct {
		Host string
		Port int
		// AllowedOrigins is a list of origins permitted to open WebSocket
		// connections. Use ["*"] to allow any origin (development only).
		AllowedOrigins []string
	}

	// LLM provider configuration
	LLM struct {
		Provider string
		OpenAI   map[string]interface{}
		Ollama   map[string]interface{}
		Custom   map[string]interface{}
	}

	// Retry policy for all external calls
	Retry struct {
		MaxAttempts      int
		BaseDelaySeconds int
		MaxDelaySeconds  int
	}

	// Incidents (similarity store) configuration
	Incidents struct {
		WeaviateURL    string
		ClassName      string
		EmbeddingModel string
		TopK           int
	}

	// Capabilities configuration
	Capabilities struct {
		SearxNGURL           string
		MaxSearchResults     int
		ScrapeTimeoutSeconds int
	}

	// Workflow configuration
	Workflow struct {
		MinPlanSteps       int
		MaxPlanSteps       int
		StepTimeoutSeconds int
	}

	// Database configuration
	Database struct {
		SQLitePath string
	}

	// Cache configuration
	Cache struct {
		Enabled    bool
		TTLSeconds int
		MaxEntries int
	}

	// Logging configuration
	Logging struct {
		Level        string
		AppLogPath   string
		AuditLogPath string
	}

	// RateLimit configuration
	RateLimit struct {
		RequestsPerMinute int
	}
}

// ConfigManager defines the interface for configuration access.
type ConfigManager interface {
	// Load loads configuration from all sources.
	Load(ctx context.Context) error

	// Get returns the current configuration.
	Get(ctx context.Context) *Config

	// Validate validates configuration is correct and complete.
	Validate(ctx context.Context) error

	// Watch watches for configuration changes and reloads (if supported).
	Watch(ctx context.Context) <-chan Config

	// Reload reloads configuration from sources.
	Reload(ctx context.Context) error
}

// NewConfigManager creates a new configuration manager.
func NewConfigManager(configPath string) (ConfigManager, error) {
	mgr := &viperConfigManager{
		configPath: configPath,
		config:     DefaultConfig(),
		watchChan:  make(chan Config, 1),
	}
	return mgr, nil
}

// NewConfigManagerWithDefaults creates a config manager with the default config path.
func NewConfigManagerWithDefaults() (ConfigManager, error) {
	return NewConfigManager("/etc/sentinel/config.yaml")
}
