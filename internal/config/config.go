// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/quantumflow/agentflow/internal/agent"
	"github.com/quantumflow/agentflow/internal/inference"
	"github.com/quantumflow/agentflow/internal/memory"
)

// Config holds all application configuration.
type Config struct {
	Addr        string `env:"AGENTFLOW_ADDR"         envDefault:":8080"`
	LogLevel    string `env:"AGENTFLOW_LOG_LEVEL"    envDefault:"info"`
	LogFormat   string `env:"AGENTFLOW_LOG_FORMAT"   envDefault:"text"`
	StrategyDir string `env:"AGENTFLOW_STRATEGY_DIR" envDefault:"./strategies"`
	AuditDB     string `env:"AGENTFLOW_AUDIT_DB"     envDefault:"~/.agentflow/audit.db"`

	Turn   TurnConfig
	Oracle OracleConfig
	Memory MemoryConfig
}

// TurnConfig controls how a single turn is driven.
type TurnConfig struct {
	Timeout     time.Duration `env:"AGENTFLOW_TURN_TIMEOUT" envDefault:"60s"`
	MaxRounds   int           `env:"AGENTFLOW_MAX_ROUNDS"   envDefault:"3"`
	Temperature float64       `env:"AGENTFLOW_TEMPERATURE"  envDefault:"0.4"`
}

// OracleConfig selects and tunes the oracle backends.
type OracleConfig struct {
	DefaultProvider string  `env:"AGENTFLOW_DEFAULT_PROVIDER"   envDefault:"ollama"`
	OllamaURL       string  `env:"OLLAMA_URL"                   envDefault:"http://localhost:11434"`
	OllamaModel     string  `env:"OLLAMA_MODEL"                 envDefault:"qwen2.5:7b"`
	OpenAIAPIKey    string  `env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string  `env:"OPENAI_BASE_URL"`
	OpenAIModel     string  `env:"OPENAI_MODEL"                 envDefault:"gpt-4o-mini"`
	Workers         int     `env:"AGENTFLOW_ORACLE_WORKERS"     envDefault:"8"`
	Concurrency     int     `env:"AGENTFLOW_ORACLE_CONCURRENCY" envDefault:"4"`
	RPS             float64 `env:"AGENTFLOW_ORACLE_RPS"         envDefault:"0"`
}

// MemoryConfig enables the optional memory sinks. Empty addresses disable a sink.
type MemoryConfig struct {
	RedisAddr     string        `env:"AGENTFLOW_REDIS_ADDR"`
	RedisPassword string        `env:"AGENTFLOW_REDIS_PASSWORD"`
	RedisDB       int           `env:"AGENTFLOW_REDIS_DB"       envDefault:"0"`
	TranscriptTTL time.Duration `env:"AGENTFLOW_TRANSCRIPT_TTL" envDefault:"168h"`
	BadgerPath    string        `env:"AGENTFLOW_BADGER_PATH"`
	DgraphAddr    string        `env:"AGENTFLOW_DGRAPH_ADDR"`
}

// Load reads an optional .env file and then environment variables.
// Variables already set in the environment take precedence over the file.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("AGENTFLOW_ADDR cannot be empty")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("AGENTFLOW_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if c.Turn.Timeout <= 0 {
		return fmt.Errorf("AGENTFLOW_TURN_TIMEOUT must be > 0")
	}
	if c.Turn.MaxRounds <= 0 {
		return fmt.Errorf("AGENTFLOW_MAX_ROUNDS must be > 0")
	}
	switch c.Oracle.DefaultProvider {
	case "ollama":
	case "openai":
		if c.Oracle.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when the default provider is openai")
		}
	default:
		return fmt.Errorf("AGENTFLOW_DEFAULT_PROVIDER must be ollama or openai, got %q", c.Oracle.DefaultProvider)
	}
	if c.Oracle.Workers <= 0 {
		return fmt.Errorf("AGENTFLOW_ORACLE_WORKERS must be > 0")
	}
	if c.Oracle.Concurrency <= 0 {
		return fmt.Errorf("AGENTFLOW_ORACLE_CONCURRENCY must be > 0")
	}
	if c.Oracle.RPS < 0 {
		return fmt.Errorf("AGENTFLOW_ORACLE_RPS cannot be negative")
	}
	return nil
}

// OrchestratorConfig returns the orchestrator settings
func (c *Config) OrchestratorConfig() *agent.OrchestratorConfig {
	return &agent.OrchestratorConfig{
		TurnTimeout: c.Turn.Timeout,
		MaxRounds:   c.Turn.MaxRounds,
		Temperature: c.Turn.Temperature,
	}
}

// OllamaConfig returns the Ollama client settings
func (c *Config) OllamaConfig() *inference.Config {
	cfg := inference.DefaultConfig()
	cfg.OllamaURL = c.Oracle.OllamaURL
	cfg.Model = c.Oracle.OllamaModel
	cfg.Temperature = c.Turn.Temperature
	cfg.Timeout = c.Turn.Timeout
	return cfg
}

// OpenAIConfig returns the OpenAI client settings, or nil without an API key
func (c *Config) OpenAIConfig() *inference.OpenAIConfig {
	if c.Oracle.OpenAIAPIKey == "" {
		return nil
	}
	return &inference.OpenAIConfig{
		APIKey:      c.Oracle.OpenAIAPIKey,
		BaseURL:     c.Oracle.OpenAIBaseURL,
		Model:       c.Oracle.OpenAIModel,
		Temperature: float32(c.Turn.Temperature),
	}
}

// PoolConfig returns the oracle worker pool settings
func (c *Config) PoolConfig() *inference.PoolConfig {
	return &inference.PoolConfig{
		Workers:       c.Oracle.Workers,
		QueueSize:     c.Oracle.Workers * 16,
		MaxConcurrent: c.Oracle.Concurrency,
	}
}

// MemoryServiceConfig returns the memory sink settings
func (c *Config) MemoryServiceConfig() *memory.Config {
	return &memory.Config{
		RedisAddr:     c.Memory.RedisAddr,
		RedisPassword: c.Memory.RedisPassword,
		RedisDB:       c.Memory.RedisDB,
		TranscriptTTL: c.Memory.TranscriptTTL,
		DgraphAddr:    c.Memory.DgraphAddr,
		BadgerPath:    c.Memory.BadgerPath,
	}
}

// NewLogger builds the structured logger described by the config
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("AGENTFLOW_LOG_LEVEL %q is not one of debug, info, warn, error", s)
	}
}
