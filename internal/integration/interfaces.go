package integration

import (
	"context"
	"time"

	"github.com/quantumflow/agentflow/internal/models"
)

// AuditLogger records every interpreted decision and turn failure
type AuditLogger interface {
	// LogTurn records one turn
	LogTurn(ctx context.Context, record *models.TurnRecord) error

	// Query retrieves audit entries
	Query(ctx context.Context, filter *AuditFilter) ([]*AuditEntry, error)

	// Summary aggregates entries of one strategy
	Summary(ctx context.Context, strategy string, since time.Time) (*AuditSummary, error)

	// Close releases the underlying store
	Close() error
}

// AuditEntry represents a single audited turn
type AuditEntry struct {
	ID               int64         `json:"id"`
	Timestamp        time.Time     `json:"timestamp"`
	SessionID        string        `json:"session_id"`
	UserID           string        `json:"user_id"`
	Strategy         string        `json:"strategy"`
	Action           string        `json:"action,omitempty"`
	Confidence       float64       `json:"confidence"`
	Quality          string        `json:"quality,omitempty"`
	Stage            string        `json:"stage,omitempty"`
	Sentiment        string        `json:"sentiment,omitempty"`
	EscalationNeeded bool          `json:"escalation_needed"`
	Rounds           int           `json:"rounds"`
	ToolCalls        int           `json:"tool_calls"`
	Duration         time.Duration `json:"duration"`
	Success          bool          `json:"success"`
	FailureReason    string        `json:"failure_reason,omitempty"`
	Error            string        `json:"error,omitempty"`
}

// AuditFilter defines criteria for querying audit entries
type AuditFilter struct {
	SessionID *string
	Strategy  *string
	StartTime *time.Time
	EndTime   *time.Time
	Success   *bool
	Limit     int
	Offset    int
}

// AuditSummary holds aggregate numbers for one strategy
type AuditSummary struct {
	Strategy          string         `json:"strategy"`
	TotalTurns        int            `json:"total_turns"`
	FailedTurns       int            `json:"failed_turns"`
	ErrorRate         float64        `json:"error_rate"`
	AverageConfidence float64        `json:"average_confidence"`
	AverageDuration   time.Duration  `json:"average_duration"`
	Escalations       int            `json:"escalations"`
	QualityTiers      map[string]int `json:"quality_tiers"`
	Actions           map[string]int `json:"actions"`
}
