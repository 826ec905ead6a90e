package agent

import (
	"context"
	"time"

	"github.com/quantumflow/agentflow/internal/inference"
	"github.com/quantumflow/agentflow/internal/models"
)

// Oracle produces one round of a tool-calling conversation
type Oracle interface {
	Complete(ctx context.Context, req *inference.ChatRequest) (*inference.ChatResponse, error)
}

// Tool represents a domain capability the oracle may invoke during a turn
type Tool interface {
	Name() string
	Description() string
	// Schema returns the JSON schema of the tool's arguments
	Schema() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
}

// TurnInput is everything a StrategyAgent needs to decide one turn
type TurnInput struct {
	Session *models.SessionContext
	Prompt  string
	Tools   []Tool
}

// TurnResult is the outcome of one decided turn
type TurnResult struct {
	Decision  *models.Decision
	Rounds    int
	ToolCalls []models.ToolCall
	Latency   time.Duration
}

// OrchestratorConfig holds orchestrator configuration
type OrchestratorConfig struct {
	TurnTimeout time.Duration
	MaxRounds   int
	Temperature float64
}

// DefaultOrchestratorConfig returns default configuration
func DefaultOrchestratorConfig() *OrchestratorConfig {
	return &OrchestratorConfig{
		TurnTimeout: 60 * time.Second,
		MaxRounds:   3,
		Temperature: 0.4,
	}
}
