package models

import "time"

// TurnRecord describes one processed turn for the write-behind sinks
type TurnRecord struct {
	SessionID     string         `json:"session_id"`
	UserID        string         `json:"user_id"`
	StrategyName  string         `json:"strategy_name"`
	Prompt        string         `json:"prompt"`
	Synthetic     bool           `json:"synthetic"`
	Response      *AgentResponse `json:"response,omitempty"` // nil when the turn failed
	Profile       UserProfile    `json:"profile"`
	Rounds        int            `json:"rounds"`
	ToolCalls     []ToolCall     `json:"tool_calls,omitempty"`
	Latency       time.Duration  `json:"latency"`
	Error         string         `json:"error,omitempty"`
	FailureReason string         `json:"failure_reason,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// Succeeded reports whether the turn produced a response
func (r *TurnRecord) Succeeded() bool {
	return r.Response != nil && r.Error == ""
}

// SessionOutcome is emitted once when a session reaches a terminal status
type SessionOutcome struct {
	SessionID    string        `json:"session_id"`
	UserID       string        `json:"user_id"`
	StrategyName string        `json:"strategy_name"`
	Status       SessionStatus `json:"status"`
	Actions      []FlowAction  `json:"actions"`
	MessageCount int           `json:"message_count"`
	Quality      string        `json:"quality,omitempty"`
	Duration     time.Duration `json:"duration"`
	EndedAt      time.Time     `json:"ended_at"`
}

// OutcomeFor builds the outcome record of a terminal session
func OutcomeFor(c *SessionContext) *SessionOutcome {
	return &SessionOutcome{
		SessionID:    c.SessionID,
		UserID:       c.UserID,
		StrategyName: c.StrategyName,
		Status:       c.Status,
		Actions:      append([]FlowAction(nil), c.Memory.Actions...),
		MessageCount: c.MessageCount,
		Quality:      c.UserInputs.String(KeyDecisionQuality),
		Duration:     c.Duration(),
		EndedAt:      c.UpdatedAt,
	}
}
