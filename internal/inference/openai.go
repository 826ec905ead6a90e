package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures the OpenAI-compatible backend
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string // optional, for compatible gateways
	Model       string // Default: gpt-4o-mini
	Temperature float32
}

// OpenAIClient is a chat backend built on the OpenAI chat completions API
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIClient creates a client. An API key is required.
func NewOpenAIClient(config *OpenAIConfig) (*OpenAIClient, error) {
	if config == nil || config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not set")
	}

	cfg := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		cfg.BaseURL = config.BaseURL
	}

	model := config.Model
	if model == "" {
		model = openai.GPT4oMini
		slog.Warn("OpenAI model not set, defaulting", "model", model)
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: config.Temperature,
	}, nil
}

// Complete runs one chat completion round with tools
func (o *OpenAIClient) Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	startTime := time.Now()

	model := req.Model
	if model == "" {
		model = o.model
	}

	creq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: o.temperature,
	}
	if req.Temperature > 0 {
		creq.Temperature = float32(req.Temperature)
	}
	for _, spec := range req.Tools {
		creq.Tools = append(creq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.Parameters,
			},
		})
	}
	if len(creq.Tools) > 0 {
		creq.ToolChoice = "required"
	}

	slog.Debug("Calling OpenAI", "model", model, "messages", len(creq.Messages), "tools", len(creq.Tools))
	resp, err := o.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI returned no choices")
	}

	choice := resp.Choices[0].Message
	msg := ChatMessage{
		Role:    RoleAssistant,
		Content: choice.Content,
	}
	for _, tc := range choice.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, ToolCallData{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: normalizeArguments(json.RawMessage(tc.Function.Arguments)),
		})
	}

	return &ChatResponse{
		Message:          msg,
		Model:            resp.Model,
		Latency:          time.Since(startTime),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

func toOpenAIMessages(messages []ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		om := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			om.ToolCalls = append(om.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(tc.Arguments),
				},
			})
		}
		out = append(out, om)
	}
	return out
}
