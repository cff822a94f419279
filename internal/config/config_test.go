package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Test server defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8081, cfg.Server.Port)

	// Test LLM defaults
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.NotNil(t, cfg.LLM.OpenAI)
	assert.NotNil(t, cfg.LLM.Ollama)

	// Test retry defaults
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 1, cfg.Retry.BaseDelaySeconds)
	assert.Equal(t, 60, cfg.Retry.MaxDelaySeconds)

	// Test incidents defaults
	assert.Empty(t, cfg.Incidents.WeaviateURL)
	assert.Equal(t, "IncidentRecord", cfg.Incidents.ClassName)
	assert.Equal(t, 3, cfg.Incidents.TopK)

	// Test workflow defaults
	assert.Equal(t, 3, cfg.Workflow.MinPlanSteps)
	assert.Equal(t, 5, cfg.Workflow.MaxPlanSteps)
	assert.Equal(t, 120, cfg.Workflow.StepTimeoutSeconds)

	// Test database defaults
	assert.NotEmpty(t, cfg.Database.SQLitePath)

	// Test cache defaults
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 300, cfg.Cache.TTLSeconds)

	// Test logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)

	// Test rate limit defaults
	assert.Equal(t, 60, cfg.RateLimit.RequestsPerMinute)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		modifyFn  func(*Config)
		wantError bool
		errorMsg  string
	}{
		{
			name:      "valid default config",
			modifyFn:  func(cfg *Config) {},
			wantError: false,
		},
		{
			name: "invalid port - too low",
			modifyFn: func(cfg *Config) {
				cfg.Server.Port = 0
			},
			wantError: true,
			errorMsg:  "port must be between 1 and 65535",
		},
		{
			name: "invalid port - too high",
			modifyFn: func(cfg *Config) {
				cfg.Server.Port = 70000
			},
			wantError: true,
			errorMsg:  "port must be between 1 and 65535",
		},
		{
			name: "invalid LLM provider",
			modifyFn: func(cfg *Config) {
				cfg.LLM.Provider = "invalid"
			},
			wantError: true,
			errorMsg:  "unknown provider",
		},
		{
			name: "zero retry attempts",
			modifyFn: func(cfg *Config) {
				cfg.Retry.MaxAttempts = 0
			},
			wantError: true,
			errorMsg:  "max_attempts must be at least 1",
		},
		{
			name: "delay cap below base delay",
			modifyFn: func(cfg *Config) {
				cfg.Retry.BaseDelaySeconds = 30
				cfg.Retry.MaxDelaySeconds = 10
			},
			wantError: true,
			errorMsg:  "must not be smaller than base_delay_seconds",
		},
		{
			name: "missing incident class name",
			modifyFn: func(cfg *Config) {
				cfg.Incidents.ClassName = ""
			},
			wantError: true,
			errorMsg:  "class_name is required",
		},
		{
			name: "zero top_k",
			modifyFn: func(cfg *Config) {
				cfg.Incidents.TopK = 0
			},
			wantError: true,
			errorMsg:  "top_k must be at least 1",
		},
		{
			name: "non-http searxng url",
			modifyFn: func(cfg *Config) {
				cfg.Capabilities.SearxNGURL = "searx.local:8080"
			},
			wantError: true,
			errorMsg:  "must be an http(s) URL",
		},
		{
			name: "max plan steps below min",
			modifyFn: func(cfg *Config) {
				cfg.Workflow.MinPlanSteps = 5
				cfg.Workflow.MaxPlanSteps = 3
			},
			wantError: true,
			errorMsg:  "must not be smaller than min_plan_steps",
		},
		{
			name: "missing sqlite path",
			modifyFn: func(cfg *Config) {
				cfg.Database.SQLitePath = ""
			},
			wantError: true,
			errorMsg:  "sqlite_path is required",
		},
		{
			name: "invalid log level",
			modifyFn: func(cfg *Config) {
				cfg.Logging.Level = "verbose"
			},
			wantError: true,
			errorMsg:  "unknown level",
		},
		{
			name: "zero rate limit",
			modifyFn: func(cfg *Config) {
				cfg.RateLimit.RequestsPerMinute = 0
			},
			wantError: true,
			errorMsg:  "requests_per_minute must be at least 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modifyFn(cfg)

			errs := cfg.Validate()

			if tt.wantError {
				assert.NotEmpty(t, errs, "expected validation errors but got none")
				found := false
				for _, err := range errs {
					if contains(err.Error(), tt.errorMsg) {
						found = true
						break
					}
				}
				assert.True(t, found, "expected error message containing '%s', got: %v", tt.errorMsg, errs)
			} else {
				assert.Empty(t, errs, "expected no validation errors but got: %v", errs)
			}
		})
	}
}

func TestConfigManagerLoad(t *testing.T) {
	// Create temp directory for config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Create minimal valid config file
	configContent := `
server:
  port: 9090

llm:
  provider: "ollama"
  ollama:
    base_url: "http://ollama:11434"
    model: "llama3"

retry:
  max_attempts: 3

incidents:
  weaviate_url: "http://weaviate:8080"
  top_k: 5

logging:
  level: "debug"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	// Create config manager
	mgr, err := NewConfigManager(configPath)
	require.NoError(t, err)

	// Load config
	ctx := context.Background()
	err = mgr.Load(ctx)
	require.NoError(t, err)

	// Get config
	cfg := mgr.Get(ctx)
	require.NotNil(t, cfg)

	// Verify loaded values
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, "http://weaviate:8080", cfg.Incidents.WeaviateURL)
	assert.Equal(t, 5, cfg.Incidents.TopK)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Verify Ollama config
	assert.NotNil(t, cfg.LLM.Ollama)
	assert.Equal(t, "http://ollama:11434", cfg.LLM.Ollama["base_url"])
	assert.Equal(t, "llama3", cfg.LLM.Ollama["model"])

	// Untouched sections keep defaults
	assert.Equal(t, 60, cfg.Retry.MaxDelaySeconds)
	assert.Equal(t, 3, cfg.Workflow.MinPlanSteps)
}

func TestConfigManagerEnvironmentOverrides(t *testing.T) {
	// Set environment variables
	os.Setenv("OPENAI_API_KEY", "env-openai-key")
	os.Setenv("WEAVIATE_URL", "http://env-weaviate:8080")
	os.Setenv("SEARXNG_URL", "http://env-searx:8888")
	defer func() {
		os.Unsetenv("OPENAI_API_KEY")
		os.Unsetenv("WEAVIATE_URL")
		os.Unsetenv("SEARXNG_URL")
	}()

	// Create temp directory for config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Create config file with different values
	configContent := `
incidents:
  weaviate_url: "http://file-weaviate:8080"

capabilities:
  searxng_url: "http://file-searx:8080"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	// Create config manager and load
	mgr, err := NewConfigManager(configPath)
	require.NoError(t, err)

	ctx := context.Background()
	err = mgr.Load(ctx)
	require.NoError(t, err)

	cfg := mgr.Get(ctx)

	// Environment variables should override config file
	assert.Equal(t, "env-openai-key", cfg.LLM.OpenAI["api_key"], "API key should come from environment variable")
	assert.Equal(t, "http://env-weaviate:8080", cfg.Incidents.WeaviateURL, "weaviate URL should be overridden by environment variable")
	assert.Equal(t, "http://env-searx:8888", cfg.Capabilities.SearxNGURL, "searxng URL should be overridden by environment variable")
}

func TestConfigManagerMissingFile(t *testing.T) {
	// Use non-existent config file path
	configPath := "/tmp/nonexistent-config.yaml"

	mgr, err := NewConfigManager(configPath)
	require.NoError(t, err)

	ctx := context.Background()
	err = mgr.Load(ctx)
	// Should not error - should use defaults
	require.NoError(t, err)

	cfg := mgr.Get(ctx)
	assert.NotNil(t, cfg)
	// Should have default values
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
}

func TestConfigManagerValidation(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Create invalid config file
	configContent := `
server:
  port: 99999

llm:
  provider: "invalid-provider"

retry:
  max_attempts: 0
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	mgr, err := NewConfigManager(configPath)
	require.NoError(t, err)

	ctx := context.Background()
	err = mgr.Load(ctx)
	require.NoError(t, err)

	// Validation should fail
	err = mgr.Validate(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}

// Helper function
func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(substr) == 0 || findSubstring(s, substr))
}

func findSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
