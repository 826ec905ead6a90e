package models

import "time"

// SessionStatus is the lifecycle state of a session
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusPaused    SessionStatus = "paused"
	StatusCompleted SessionStatus = "completed"
	StatusEscalated SessionStatus = "escalated"
)

// IsTerminal reports whether no further transitions are allowed
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusEscalated
}

// InitialGoal is the goal every new session starts with
const InitialGoal = "initial_engagement"

// UserProfile is the incrementally learned picture of the user
type UserProfile struct {
	Intent    string `json:"intent,omitempty"`
	Sentiment string `json:"sentiment,omitempty"`
	Expertise string `json:"expertise,omitempty"`
}

// AgentMemory holds the append-only logs an agent keeps per session
type AgentMemory struct {
	LastAction         FlowAction   `json:"last_action,omitempty"`
	Actions            []FlowAction `json:"actions,omitempty"`
	ReasoningHistory   []string     `json:"reasoning_history,omitempty"`
	FailedAttempts     []string     `json:"failed_attempts,omitempty"`
	SuccessfulPatterns []string     `json:"successful_patterns,omitempty"`
}

// SessionContext is the full mutable state of one conversation
type SessionContext struct {
	SessionID    string        `json:"session_id"`
	UserID       string        `json:"user_id"`
	StrategyName string        `json:"strategy_name"`
	Status       SessionStatus `json:"status"`
	CurrentGoal  string        `json:"current_goal"`
	MessageCount int           `json:"message_count"`
	UserInputs   Blackboard    `json:"user_inputs"`
	Profile      UserProfile   `json:"profile"`
	Messages     []Message     `json:"messages"`
	Memory       AgentMemory   `json:"memory"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// NewSessionContext builds an active context seeded with business inputs
func NewSessionContext(sessionID, userID, strategyName string, inputs map[string]interface{}) *SessionContext {
	now := time.Now().UTC()
	return &SessionContext{
		SessionID:    sessionID,
		UserID:       userID,
		StrategyName: strategyName,
		Status:       StatusActive,
		CurrentGoal:  InitialGoal,
		UserInputs:   NewBlackboard(inputs),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Duration is the time from creation to the last update
func (c *SessionContext) Duration() time.Duration {
	return c.UpdatedAt.Sub(c.CreatedAt)
}

// AppendMessage adds a message to the transcript and stamps the context
func (c *SessionContext) AppendMessage(msg Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = msg.Timestamp
}

// Clone returns a copy that shares no slices or maps with the original
func (c *SessionContext) Clone() *SessionContext {
	if c == nil {
		return nil
	}
	out := *c
	out.UserInputs = NewBlackboard(c.UserInputs.Snapshot())
	out.Messages = append([]Message(nil), c.Messages...)
	out.Memory.Actions = append([]FlowAction(nil), c.Memory.Actions...)
	out.Memory.ReasoningHistory = cloneStrings(c.Memory.ReasoningHistory)
	out.Memory.FailedAttempts = cloneStrings(c.Memory.FailedAttempts)
	out.Memory.SuccessfulPatterns = cloneStrings(c.Memory.SuccessfulPatterns)
	return &out
}
