package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	if _, err := NewOpenAIClient(nil); err == nil {
		t.Error("Expected error without config")
	}
	if _, err := NewOpenAIClient(&OpenAIConfig{}); err == nil {
		t.Error("Expected error without API key")
	}
}

// TestOpenAIComplete tests tool-call round trip against a fake completions endpoint
func TestOpenAIComplete(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Missing bearer token")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "submit_decision", "arguments": "{\"a\":1}"}
					}]
				},
				"finish_reason": "tool_calls"
			}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 7, "total_tokens": 12}
		}`))
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(&OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1", Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("NewOpenAIClient failed: %v", err)
	}

	resp, err := client.Complete(context.Background(), &ChatRequest{
		Messages: []ChatMessage{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "hi"},
		},
		Tools: []ToolSpec{{Name: "submit_decision", Parameters: map[string]interface{}{"type": "object"}}},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if got["model"] != "gpt-4o-mini" {
		t.Errorf("Unexpected model %v", got["model"])
	}
	if got["tool_choice"] != "required" {
		t.Errorf("Expected tool_choice=required, got %v", got["tool_choice"])
	}
	if tools, _ := got["tools"].([]interface{}); len(tools) != 1 {
		t.Errorf("Expected 1 tool, got %v", got["tools"])
	}

	if len(resp.Message.ToolCalls) != 1 {
		t.Fatalf("Expected 1 tool call, got %d", len(resp.Message.ToolCalls))
	}
	call := resp.Message.ToolCalls[0]
	if call.ID != "call_1" || call.Name != "submit_decision" || string(call.Arguments) != `{"a":1}` {
		t.Errorf("Unexpected tool call: %+v", call)
	}
	if resp.PromptTokens != 5 || resp.CompletionTokens != 7 {
		t.Errorf("Unexpected usage %d/%d", resp.PromptTokens, resp.CompletionTokens)
	}
}
