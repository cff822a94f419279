package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validate validates the configuration and returns validation errors.
func (c *Config) Validate() []error {
	var errs []error

	// Validate server configuration
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", c.Server.Port),
		})
	}

	// Validate LLM configuration
	switch c.LLM.Provider {
	case "openai", "ollama", "custom", "", "none":
	default:
		errs = append(errs, &ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("unknown provider %q (expected openai, ollama, custom or none)", c.LLM.Provider),
		})
	}

	// Validate retry configuration
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, &ValidationError{
			Field:   "retry.max_attempts",
			Message: fmt.Sprintf("max_attempts must be at least 1, got %d", c.Retry.MaxAttempts),
		})
	}
	if c.Retry.BaseDelaySeconds < 1 {
		errs = append(errs, &ValidationError{
			Field:   "retry.base_delay_seconds",
			Message: "base_delay_seconds must be at least 1",
		})
	}
	if c.Retry.MaxDelaySeconds < c.Retry.BaseDelaySeconds {
		errs = append(errs, &ValidationError{
			Field:   "retry.max_delay_seconds",
			Message: fmt.Sprintf("max_delay_seconds (%d) must not be smaller than base_delay_seconds (%d)",
				c.Retry.MaxDelaySeconds, c.Retry.BaseDelaySeconds),
		})
	}

	// Validate incidents configuration
	if c.Incidents.WeaviateURL != "" {
		if _, err := url.Parse(c.Incidents.WeaviateURL); err != nil {
			errs = append(errs, &ValidationError{
				Field:   "incidents.weaviate_url",
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		}
	}
	if c.Incidents.ClassName == "" {
		errs = append(errs, &ValidationError{
			Field:   "incidents.class_name",
			Message: "class_name is required",
		})
	}
	if c.Incidents.TopK < 1 {
		errs = append(errs, &ValidationError{
			Field:   "incidents.top_k",
			Message: fmt.Sprintf("top_k must be at least 1, got %d", c.Incidents.TopK),
		})
	}

	// Validate capabilities configuration
	if c.Capabilities.SearxNGURL != "" && !strings.HasPrefix(c.Capabilities.SearxNGURL, "http") {
		errs = append(errs, &ValidationError{
			Field:   "capabilities.searxng_url",
			Message: fmt.Sprintf("must be an http(s) URL, got %q", c.Capabilities.SearxNGURL),
		})
	}
	if c.Capabilities.MaxSearchResults < 1 {
		errs = append(errs, &ValidationError{
			Field:   "capabilities.max_search_results",
			Message: "max_search_results must be at least 1",
		})
	}

	// Validate workflow configuration
	if c.Workflow.MinPlanSteps < 1 {
		errs = append(errs, &ValidationError{
			Field:   "workflow.min_plan_steps",
			Message: "min_plan_steps must be at least 1",
		})
	}
	if c.Workflow.MaxPlanSteps < c.Workflow.MinPlanSteps {
		errs = append(errs, &ValidationError{
			Field:   "workflow.max_plan_steps",
			Message: fmt.Sprintf("max_plan_steps (%d) must not be smaller than min_plan_steps (%d)",
				c.Workflow.MaxPlanSteps, c.Workflow.MinPlanSteps),
		})
	}
	if c.Workflow.StepTimeoutSeconds < 1 {
		errs = append(errs, &ValidationError{
			Field:   "workflow.step_timeout_seconds",
			Message: "step_timeout_seconds must be at least 1",
		})
	}

	// Validate database configuration
	if c.Database.SQLitePath == "" {
		errs = append(errs, &ValidationError{
			Field:   "database.sqlite_path",
			Message: "sqlite_path is required",
		})
	}

	// Validate logging configuration
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("unknown level %q (expected debug, info, warn or error)", c.Logging.Level),
		})
	}

	// Validate rate limit configuration
	if c.RateLimit.RequestsPerMinute < 1 {
		errs = append(errs, &ValidationError{
			Field:   "ratelimit.requests_per_minute",
			Message: "requests_per_minute must be at least 1",
		})
	}

	return errs
}
