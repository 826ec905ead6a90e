package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/quantumflow/agentflow/internal/inference"
	"github.com/quantumflow/agentflow/internal/models"
)

// MockReply is one scripted oracle round
type MockReply struct {
	Message inference.ChatMessage
	Err     error
}

// MockOracle replays scripted replies in order. Once the script is
// exhausted it calls Fallback, or fails if none is set.
type MockOracle struct {
	mu       sync.Mutex
	replies  []MockReply
	requests []*inference.ChatRequest

	Fallback func(ctx context.Context, req *inference.ChatRequest) (*inference.ChatResponse, error)
}

// NewMockOracle creates a mock oracle with a reply script
func NewMockOracle(replies ...MockReply) *MockOracle {
	return &MockOracle{replies: replies}
}

// Script appends replies to the end of the script
func (m *MockOracle) Script(replies ...MockReply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, replies...)
}

func (m *MockOracle) Complete(ctx context.Context, req *inference.ChatRequest) (*inference.ChatResponse, error) {
	m.mu.Lock()
	copied := *req
	copied.Messages = append([]inference.ChatMessage(nil), req.Messages...)
	m.requests = append(m.requests, &copied)

	if len(m.replies) == 0 {
		fallback := m.Fallback
		m.mu.Unlock()
		if fallback != nil {
			return fallback(ctx, req)
		}
		return nil, fmt.Errorf("mock oracle: no scripted reply")
	}

	reply := m.replies[0]
	m.replies = m.replies[1:]
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if reply.Err != nil {
		return nil, reply.Err
	}
	return &inference.ChatResponse{Message: reply.Message, Model: req.Model}, nil
}

// Requests returns every request the oracle has received
func (m *MockOracle) Requests() []*inference.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*inference.ChatRequest(nil), m.requests...)
}

// Calls returns the number of requests received
func (m *MockOracle) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// DecisionReply scripts a submit_decision tool call
func DecisionReply(d *models.Decision) MockReply {
	args, err := json.Marshal(d)
	if err != nil {
		return MockReply{Err: err}
	}
	return RawDecisionReply(string(args))
}

// RawDecisionReply scripts a submit_decision call with verbatim arguments
func RawDecisionReply(args string) MockReply {
	return MockReply{Message: inference.ChatMessage{
		Role: inference.RoleAssistant,
		ToolCalls: []inference.ToolCallData{{
			ID:        "call_decision",
			Name:      DecisionToolName,
			Arguments: json.RawMessage(args),
		}},
	}}
}

// ToolCallReply scripts a domain tool call
func ToolCallReply(name string, args map[string]interface{}) MockReply {
	raw, err := json.Marshal(args)
	if err != nil {
		return MockReply{Err: err}
	}
	return MockReply{Message: inference.ChatMessage{
		Role: inference.RoleAssistant,
		ToolCalls: []inference.ToolCallData{{
			ID:        "call_" + name,
			Name:      name,
			Arguments: raw,
		}},
	}}
}

// TextReply scripts a plain assistant message
func TextReply(content string) MockReply {
	return MockReply{Message: inference.ChatMessage{Role: inference.RoleAssistant, Content: content}}
}

// ErrorReply scripts a failed oracle call
func ErrorReply(err error) MockReply {
	return MockReply{Err: err}
}
