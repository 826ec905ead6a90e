package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/quantumflow/agentflow/internal/agent"
	"github.com/quantumflow/agentflow/internal/config"
	"github.com/quantumflow/agentflow/internal/inference"
	"github.com/quantumflow/agentflow/internal/integration"
	"github.com/quantumflow/agentflow/internal/memory"
	"github.com/quantumflow/agentflow/internal/observability"
	"github.com/quantumflow/agentflow/internal/session"
)

// app holds the wired runtime shared by serve and chat
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	orch    *agent.Orchestrator
	pool    *inference.Pool
	memory  *memory.MemoryService
	audit   *integration.SQLiteAuditLogger
	metrics prometheus.Gatherer
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if strategyDir != "" {
		cfg.StrategyDir = strategyDir
	}
	return cfg, nil
}

// newApp builds the oracle chain, sinks and orchestrator, then registers
// every strategy in the configured directory.
func newApp(cfg *config.Config, logOut io.Writer) (*app, error) {
	logger := cfg.NewLogger(logOut)

	limiter := inference.NewProviderLimiter()
	router := inference.NewRouter(cfg.Oracle.DefaultProvider, limiter)

	router.Register("ollama", inference.NewClient(cfg.OllamaConfig()))
	limiter.RegisterProvider("ollama", cfg.Oracle.RPS)

	if oaCfg := cfg.OpenAIConfig(); oaCfg != nil {
		oa, err := inference.NewOpenAIClient(oaCfg)
		if err != nil {
			return nil, fmt.Errorf("openai client: %w", err)
		}
		router.Register("openai", oa)
		limiter.RegisterProvider("openai", cfg.Oracle.RPS)
	}

	pool := inference.NewPool(router, cfg.PoolConfig())
	mem := memory.NewMemoryService(cfg.MemoryServiceConfig(), logger)

	audit, err := integration.NewSQLiteAuditLogger(cfg.AuditDB)
	if err != nil {
		_ = pool.Shutdown(cfg.Turn.Timeout)
		_ = mem.Close()
		return nil, fmt.Errorf("audit log: %w", err)
	}

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	orch := agent.NewOrchestrator(pool, session.NewStore(), cfg.OrchestratorConfig(),
		agent.WithLogger(logger),
		agent.WithMetrics(metrics),
		agent.WithMemory(mem),
		agent.WithAudit(audit),
	)

	a := &app{
		cfg:     cfg,
		logger:  logger,
		orch:    orch,
		pool:    pool,
		memory:  mem,
		audit:   audit,
		metrics: reg,
	}

	strategies, err := config.LoadStrategies(cfg.StrategyDir)
	if err != nil {
		a.close()
		return nil, err
	}
	for _, s := range strategies {
		if err := orch.RegisterStrategy(s); err != nil {
			a.close()
			return nil, fmt.Errorf("register %q: %w", s.Name, err)
		}
	}

	logger.Info("orchestrator ready",
		"strategies", orch.Strategies(),
		"providers", router.Providers(),
		"sinks", mem.Enabled(),
	)
	return a, nil
}

func (a *app) close() {
	if err := a.pool.Shutdown(a.cfg.Turn.Timeout); err != nil {
		a.logger.Warn("oracle pool shutdown", "error", err)
	}
	if err := a.memory.Close(); err != nil {
		a.logger.Warn("memory close", "error", err)
	}
	if err := a.audit.Close(); err != nil {
		a.logger.Warn("audit close", "error", err)
	}
}
