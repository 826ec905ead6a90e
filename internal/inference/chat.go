package inference

import (
	"context"
	"encoding/json"
	"time"
)

// Chat roles understood by every provider
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage is one provider-neutral message in a tool-calling conversation
type ChatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []ToolCallData `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

// ToolCallData is a tool invocation requested by the model
type ToolCallData struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolSpec describes a callable tool with a JSON schema for its arguments
type ToolSpec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ChatRequest is a provider-neutral chat completion request
type ChatRequest struct {
	Provider    string
	Model       string
	Messages    []ChatMessage
	Tools       []ToolSpec
	Temperature float64
}

// ChatResponse is the model's reply for one round
type ChatResponse struct {
	Message          ChatMessage
	Model            string
	Latency          time.Duration
	PromptTokens     int
	CompletionTokens int
}

// Completer is implemented by every chat backend
type Completer interface {
	Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}
