package models

import "time"

// Role identifies the author of a conversation message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message represents a single message in a conversation
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage stamps a message with the current UTC time
func NewMessage(role Role, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// ToolCall represents a tool invocation made by the oracle during a turn
type ToolCall struct {
	Name       string                 `json:"name"`
	Parameters map[string]interface{} `json:"parameters"`
	Result     string                 `json:"result"`
	Error      string                 `json:"error,omitempty"`
	Duration   float64                `json:"duration"` // seconds
}

// Session is the externally visible record returned when a session starts
type Session struct {
	SessionID      string        `json:"session_id"`
	UserID         string        `json:"user_id"`
	StrategyName   string        `json:"strategy_name"`
	Status         SessionStatus `json:"status"`
	InitialMessage string        `json:"initial_message"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Output is the externally visible record returned for each user message
type Output struct {
	Message              string        `json:"message"`
	SessionID            string        `json:"session_id"`
	SessionStatus        SessionStatus `json:"session_status"`
	Reasoning            string        `json:"reasoning,omitempty"`
	SuggestedNextActions []string      `json:"suggested_next_actions,omitempty"`
}

// Stats holds process-wide session counters
type Stats struct {
	TotalSessions          int64         `json:"total_sessions"`
	ActiveSessions         int64         `json:"active_sessions"`
	CompletedSessions      int64         `json:"completed_sessions"`
	EscalatedSessions      int64         `json:"escalated_sessions"`
	TotalMessages          int64         `json:"total_messages"`
	AverageSessionLength   float64       `json:"average_session_length"`
	AverageSessionDuration time.Duration `json:"average_session_duration"`
	ErrorCount             int64         `json:"error_count"`
	Uptime                 time.Duration `json:"uptime"`
}

// StrategyPerformance is the on-demand rollup for one strategy
type StrategyPerformance struct {
	StrategyName     string  `json:"strategy_name"`
	TotalSessions    int     `json:"total_sessions"`
	CompletionRate   float64 `json:"completion_rate"`
	EscalationRate   float64 `json:"escalation_rate"`
	AverageMessages  float64 `json:"average_messages"`
	PerformanceScore float64 `json:"performance_score"`
}

// SessionAnalytics is a read-only view of one session's progress
type SessionAnalytics struct {
	SessionID      string        `json:"session_id"`
	StrategyName   string        `json:"strategy_name"`
	Status         SessionStatus `json:"status"`
	MessageCount   int           `json:"message_count"`
	Duration       time.Duration `json:"duration"`
	CurrentGoal    string        `json:"current_goal"`
	LastAction     string        `json:"last_action,omitempty"`
	Stage          string        `json:"stage,omitempty"`
	Sentiment      string        `json:"sentiment,omitempty"`
	Quality        string        `json:"quality,omitempty"`
	DecisionCount  int           `json:"decision_count"`
	FailedAttempts int           `json:"failed_attempts"`
}
