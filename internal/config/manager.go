package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// viperConfigManager implements ConfigManager using Viper.
type viperConfigManager struct {
	configPath string
	config     *Config
	viper      *viper.Viper
	watchChan  chan Config
}

// Load loads configuration from all sources.
func (m *viperConfigManager) Load(ctx context.Context) error {
	m.viper = viper.New()

	m.viper.SetConfigFile(m.configPath)
	m.viper.SetConfigType("yaml")

	m.viper.SetEnvPrefix("SENTINEL")
	m.viper.AutomaticEnv()
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	m.setDefaults()

	// Config file is optional; defaults + env vars are enough to start.
	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// use defaults
		} else if os.IsNotExist(err) {
			// use defaults
		} else {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := m.unmarshalConfig(); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.applyEnvOverrides()

	return nil
}

// Get returns the current configuration.
func (m *viperConfigManager) Get(ctx context.Context) *Config {
	return m.config
}

// Validate validates configuration is correct and complete.
func (m *viperConfigManager) Validate(ctx context.Context) error {
	errs := m.config.Validate()
	if len(errs) > 0 {
		var errMsgs []string
		for _, err := range errs {
			errMsgs = append(errMsgs, err.Error())
		}
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errMsgs, "\n  - "))
	}
	return nil
}

// Watch watches for configuration changes and reloads.
func (m *viperConfigManager) Watch(ctx context.Context) <-chan Config {
	m.viper.WatchConfig()
	m.viper.OnConfigChange(func(e fsnotify.Event) {
		if err := m.unmarshalConfig(); err != nil {
			return
		}
		select {
		case m.watchChan <- *m.config:
		default:
			// Channel full, skip this update
		}
	})

	return m.watchChan
}

// Reload reloads configuration from sources.
func (m *viperConfigManager) Reload(ctx context.Context) error {
	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := m.unmarshalConfig(); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.applyEnvOverrides()

	return nil
}

// setDefaults sets default values in viper.
func (m *viperConfigManager) setDefaults() {
	defaults := DefaultConfig()

	// Server defaults
	m.viper.SetDefault("server.host", defaults.Server.Host)
	m.viper.SetDefault("server.port", defaults.Server.Port)
	m.viper.SetDefault("server.allowed_origins", defaults.Server.AllowedOrigins)

	// LLM defaults
	m.viper.SetDefault("llm.provider", defaults.LLM.Provider)
	m.viper.SetDefault("llm.openai", defaults.LLM.OpenAI)
	m.viper.SetDefault("llm.ollama", defaults.LLM.Ollama)
	m.viper.SetDefault("llm.custom", defaults.LLM.Custom)

	// Retry defaults
	m.viper.SetDefault("retry.max_attempts", defaults.Retry.MaxAttempts)
	m.viper.SetDefault("retry.base_delay_seconds", defaults.Retry.BaseDelaySeconds)
	m.viper.SetDefault("retry.max_delay_seconds", defaults.Retry.MaxDelaySeconds)

	// Incidents defaults
	m.viper.SetDefault("incidents.weaviate_url", defaults.Incidents.WeaviateURL)
	m.viper.SetDefault("incidents.class_name", defaults.Incidents.ClassName)
	m.viper.SetDefault("incidents.embedding_model", defaults.Incidents.EmbeddingModel)
	m.viper.SetDefault("incidents.top_k", defaults.Incidents.TopK)

	// Capabilities defaults
	m.viper.SetDefault("capabilities.searxng_url", defaults.Capabilities.SearxNGURL)
	m.viper.SetDefault("capabilities.max_search_results", defaults.Capabilities.MaxSearchResults)
	m.viper.SetDefault("capabilities.scrape_timeout_seconds", defaults.Capabilities.ScrapeTimeoutSeconds)

	// Workflow defaults
	m.viper.SetDefault("workflow.min_plan_steps", defaults.Workflow.MinPlanSteps)
	m.viper.SetDefault("workflow.max_plan_steps", defaults.Workflow.MaxPlanSteps)
	m.viper.SetDefault("workflow.step_timeout_seconds", defaults.Workflow.StepTimeoutSeconds)

	// Database defaults
	m.viper.SetDefault("database.sqlite_path", defaults.Database.SQLitePath)

	// Cache defaults
	m.viper.SetDefault("cache.enabled", defaults.Cache.Enabled)
	m.viper.SetDefault("cache.ttl_seconds", defaults.Cache.TTLSeconds)
	m.viper.SetDefault("cache.max_entries", defaults.Cache.MaxEntries)

	// Logging defaults
	m.viper.SetDefault("logging.level", defaults.Logging.Level)
	m.viper.SetDefault("logging.app_log_path", defaults.Logging.AppLogPath)
	m.viper.SetDefault("logging.audit_log_path", defaults.Logging.AuditLogPath)

	// RateLimit defaults
	m.viper.SetDefault("ratelimit.requests_per_minute", defaults.RateLimit.RequestsPerMinute)
}

// unmarshalConfig unmarshals viper config into the Config struct.
func (m *viperConfigManager) unmarshalConfig() error {
	cfg := &Config{}

	// Server
	cfg.Server.Host = m.viper.GetString("server.host")
	cfg.Server.Port = m.viper.GetInt("server.port")
	cfg.Server.AllowedOrigins = m.viper.GetStringSlice("server.allowed_origins")

	// LLM
	cfg.LLM.Provider = m.viper.GetString("llm.provider")
	cfg.LLM.OpenAI = m.viper.GetStringMap("llm.openai")
	cfg.LLM.Ollama = m.viper.GetStringMap("llm.ollama")
	cfg.LLM.Custom = m.viper.GetStringMap("llm.custom")

	// Retry
	cfg.Retry.MaxAttempts = m.viper.GetInt("retry.max_attempts")
	cfg.Retry.BaseDelaySeconds = m.viper.GetInt("retry.base_delay_seconds")
	cfg.Retry.MaxDelaySeconds = m.viper.GetInt("retry.max_delay_seconds")

	// Incidents
	cfg.Incidents.WeaviateURL = m.viper.GetString("incidents.weaviate_url")
	cfg.Incidents.ClassName = m.viper.GetString("incidents.class_name")
	cfg.Incidents.EmbeddingModel = m.viper.GetString("incidents.embedding_model")
	cfg.Incidents.TopK = m.viper.GetInt("incidents.top_k")

	// Capabilities
	cfg.Capabilities.SearxNGURL = m.viper.GetString("capabilities.searxng_url")
	cfg.Capabilities.MaxSearchResults = m.viper.GetInt("capabilities.max_search_results")
	cfg.Capabilities.ScrapeTimeoutSeconds = m.viper.GetInt("capabilities.scrape_timeout_seconds")

	// Workflow
	cfg.Workflow.MinPlanSteps = m.viper.GetInt("workflow.min_plan_steps")
	cfg.Workflow.MaxPlanSteps = m.viper.GetInt("workflow.max_plan_steps")
	cfg.Workflow.StepTimeoutSeconds = m.viper.GetInt("workflow.step_timeout_seconds")

	// Database
	cfg.Database.SQLitePath = m.viper.GetString("database.sqlite_path")

	// Cache
	cfg.Cache.Enabled = m.viper.GetBool("cache.enabled")
	cfg.Cache.TTLSeconds = m.viper.GetInt("cache.ttl_seconds")
	cfg.Cache.MaxEntries = m.viper.GetInt("cache.max_entries")

	// Logging
	cfg.Logging.Level = m.viper.GetString("logging.level")
	cfg.Logging.AppLogPath = m.viper.GetString("logging.app_log_path")
	cfg.Logging.AuditLogPath = m.viper.GetString("logging.audit_log_path")

	// RateLimit
	cfg.RateLimit.RequestsPerMinute = m.viper.GetInt("ratelimit.requests_per_minute")

	m.config = cfg
	return nil
}

// applyEnvOverrides applies environment variable overrides for sensitive data.
func (m *viperConfigManager) applyEnvOverrides() {
	// OpenAI API key from environment (used for completions and embeddings)
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		if m.config.LLM.OpenAI == nil {
			m.config.LLM.OpenAI = make(map[string]interface{})
		}
		m.config.LLM.OpenAI["api_key"] = apiKey
	}

	// Ollama base URL from environment
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		if m.config.LLM.Ollama == nil {
			m.config.LLM.Ollama = make(map[string]interface{})
		}
		m.config.LLM.Ollama["base_url"] = baseURL
	}

	// Weaviate endpoint from environment
	if weaviateURL := os.Getenv("WEAVIATE_URL"); weaviateURL != "" {
		m.config.Incidents.WeaviateURL = weaviateURL
	}

	// SearxNG endpoint from environment
	if searxURL := os.Getenv("SEARXNG_URL"); searxURL != "" {
		m.config.Capabilities.SearxNGURL = searxURL
	}
}
