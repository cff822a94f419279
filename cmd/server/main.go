package main

// Package main is the entry point for the sentinel-ai server.
//
// Responsibilities:
//   - Load and validate configuration from YAML and environment variables
//   - Wire the LLM adapter (with retry), the similarity store, and the
//     capability registry
//   - Assemble the plan-execute-reflect orchestrator with its degradation
//     tiers
//   - Open the SQLite run-history store and the audit logger
//   - Start the REST API on port 8081 with the WebSocket event stream
//   - Implement graceful shutdown on SIGINT/SIGTERM

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sentinelops/sentinel-ai/internal/audit"
	"github.com/sentinelops/sentinel-ai/internal/cache"
	"github.com/sentinelops/sentinel-ai/internal/capability"
	"github.com/sentinelops/sentinel-ai/internal/config"
	"github.com/sentinelops/sentinel-ai/internal/db"
	"github.com/sentinelops/sentinel-ai/internal/llm/adapter"
	"github.com/sentinelops/sentinel-ai/internal/orchestrator"
	"github.com/sentinelops/sentinel-ai/internal/rag"
	"github.com/sentinelops/sentinel-ai/internal/server"
)

func main() {
	configPath := flag.String("config", "/etc/sentinel/config.yaml", "path to the YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "sentinel-ai: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx := context.Background()

	mgr, err := config.NewConfigManager(configPath)
	if err != nil {
		return fmt.Errorf("create config manager: %w", err)
	}
	if err := mgr.Load(ctx); err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := mgr.Validate(ctx); err != nil {
		return fmt.Errorf("validate configuration: %w", err)
	}
	cfg := mgr.Get(ctx)

	logger, err := newAppLogger(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	auditLog, err := audit.NewLogger(&audit.Config{
		AuditLogPath: cfg.Logging.AuditLogPath,
		AppLogPath:   cfg.Logging.AppLogPath,
		MaxSize:      100,
		MaxBackups:   10,
		MaxAge:       30,
		Compress:     true,
		LogLevel:     cfg.Logging.Level,
	})
	if err != nil {
		return fmt.Errorf("create audit logger: %w", err)
	}
	defer auditLog.Close()

	// LLM adapter with the service-wide transient retry policy.
	providerCfg := providerSettings(cfg)
	base, err := adapter.NewLLMAdapter(providerCfg)
	if err != nil {
		return fmt.Errorf("create llm adapter: %w", err)
	}
	llm := adapter.NewRetryAdapter(base, retryPolicy(cfg))
	logger.Info("llm adapter ready", zap.String("provider", string(llm.Provider())))

	// Similarity store, optionally backed by an embedding cache.
	var embedCache cache.Cache
	if cfg.Cache.Enabled {
		embedCache = cache.NewCache(cfg.Cache.MaxEntries)
	}
	incidentStore, err := rag.NewIncidentStore(cfg, stringSetting(cfg.LLM.OpenAI, "api_key"), embedCache)
	if err != nil {
		return fmt.Errorf("create incident store: %w", err)
	}
	logger.Info("similarity store ready", zap.String("backend", incidentStore.Backend()))

	registry, err := buildRegistry(cfg, llm, incidentStore)
	if err != nil {
		return fmt.Errorf("build capability registry: %w", err)
	}

	store, err := db.NewSQLiteStore(cfg.Database.SQLitePath)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer store.Close()

	// Orchestrator: planner, decision service, executor, synthesizer,
	// workflow engine, degradation controller.
	planner := orchestrator.NewPlanBuilder(llm, cfg.Workflow.MinPlanSteps, cfg.Workflow.MaxPlanSteps)
	decider := orchestrator.NewDecisionService(llm)
	executor := orchestrator.NewStepExecutor(decider, registry, cfg.Workflow.StepTimeoutSeconds)
	synthesizer := orchestrator.NewSynthesizer(llm)
	engine := orchestrator.NewEngine(planner, executor, synthesizer, registry, llm, auditLog)
	processor := orchestrator.NewProcessor(engine, registry, synthesizer, store, auditLog, cfg.Incidents.TopK)

	srv, err := server.NewServer(server.Deps{
		Config:    cfg,
		Processor: processor,
		Engine:    engine,
		Registry:  registry,
		Store:     store,
		AuditLog:  auditLog,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received")

	if err := srv.Stop(); err != nil {
		return fmt.Errorf("stop server: %w", err)
	}
	return nil
}

// buildRegistry registers the five investigation capabilities.
func buildRegistry(cfg *config.Config, llm adapter.LLMAdapter, incidents rag.IncidentStore) (*capability.Registry, error) {
	registry := capability.NewRegistry()

	search := capability.NewWebSearch(cfg.Capabilities.SearxNGURL, cfg.Capabilities.MaxSearchResults)
	scraper := capability.NewScraper(cfg.Capabilities.ScrapeTimeoutSeconds)
	research, err := capability.NewDeepResearch(llm, search, scraper)
	if err != nil {
		return nil, err
	}

	for _, c := range []capability.Capability{
		capability.NewIncidentSearch(incidents, cfg.Incidents.TopK),
		search,
		research,
		capability.NewCalculator(),
		capability.NewFinalAnswer(),
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func providerSettings(cfg *config.Config) *adapter.Config {
	provider := adapter.ProviderType(cfg.LLM.Provider)
	settings := map[string]interface{}{}
	switch provider {
	case adapter.ProviderOpenAI:
		settings = cfg.LLM.OpenAI
	case adapter.ProviderOllama:
		settings = cfg.LLM.Ollama
	case adapter.ProviderCustom:
		settings = cfg.LLM.Custom
	}
	return &adapter.Config{
		Provider: provider,
		APIKey:   stringSetting(settings, "api_key"),
		BaseURL:  stringSetting(settings, "base_url"),
		Model:    stringSetting(settings, "model"),
	}
}

func retryPolicy(cfg *config.Config) adapter.RetryPolicy {
	policy := adapter.DefaultRetryPolicy()
	if cfg.Retry.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.Retry.MaxAttempts
	}
	if cfg.Retry.BaseDelaySeconds > 0 {
		policy.BaseDelay = time.Duration(cfg.Retry.BaseDelaySeconds) * time.Second
	}
	if cfg.Retry.MaxDelaySeconds > 0 {
		policy.MaxDelay = time.Duration(cfg.Retry.MaxDelaySeconds) * time.Second
	}
	return policy
}

func stringSetting(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func newAppLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if level != "" {
		parsed, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = parsed
	}
	return zcfg.Build()
}
