package config

// DefaultConfig returns a configuration with all default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	// Server defaults
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8081
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}

	// LLM defaults
	cfg.LLM.Provider = "openai"
	cfg.LLM.OpenAI = map[string]interface{}{
		"model":      "gpt-4o",
		"max_tokens": 2048,
	}
	cfg.LLM.Ollama = map[string]interface{}{
		"base_url": "http://localhost:11434",
		"model":    "llama3",
	}
	cfg.LLM.Custom = map[string]interface{}{
		"base_url":   "",
		"model":      "",
		"max_tokens": 2048,
	}

	// Retry defaults: 5 attempts, exponential backoff 1s → 60s cap
	cfg.Retry.MaxAttempts = 5
	cfg.Retry.BaseDelaySeconds = 1
	cfg.Retry.MaxDelaySeconds = 60

	// Incidents defaults
	cfg.Incidents.WeaviateURL = "" // empty = in-memory fallback store
	cfg.Incidents.ClassName = "IncidentRecord"
	cfg.Incidents.EmbeddingModel = "text-embedding-3-small"
	cfg.Incidents.TopK = 3

	// Capabilities defaults
	cfg.Capabilities.SearxNGURL = "http://localhost:8080"
	cfg.Capabilities.MaxSearchResults = 3
	cfg.Capabilities.ScrapeTimeoutSeconds = 15

	// Workflow defaults
	cfg.Workflow.MinPlanSteps = 3
	cfg.Workflow.MaxPlanSteps = 5
	cfg.Workflow.StepTimeoutSeconds = 120

	// Database defaults
	cfg.Database.SQLitePath = "/var/lib/sentinel/sentinel-ai.db"

	// Cache defaults
	cfg.Cache.Enabled = true
	cfg.Cache.TTLSeconds = 300
	cfg.Cache.MaxEntries = 1024

	// Logging defaults
	cfg.Logging.Level = "info"
	cfg.Logging.AppLogPath = "logs/app.log"
	cfg.Logging.AuditLogPath = "logs/audit.log"

	// RateLimit defaults
	cfg.RateLimit.RequestsPerMinute = 60

	return cfg
}
