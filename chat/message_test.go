package chat

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestToolResultConstructors(t *testing.T) {
	ok := NewToolResult("c1", "read_file", "contents")
	if ok.IsError {
		t.Error("Expected success result, got IsError=true")
	}
	if ok.Output() != "contents" {
		t.Errorf("Expected output 'contents', got '%s'", ok.Output())
	}

	bad := NewToolError("c2", "read_file", "Error: no such file")
	if !bad.IsError {
		t.Error("Expected error result, got IsError=false")
	}
	if bad.Output() != "Error: no such file" {
		t.Errorf("Expected error output, got '%s'", bad.Output())
	}
	if bad.Result != "" {
		t.Errorf("Expected empty result on error, got '%s'", bad.Result)
	}
}

func TestMessageAccessors(t *testing.T) {
	calls := []ToolCall{{ID: "a", Name: "x", Arguments: map[string]interface{}{"k": "v"}}}
	msg := NewToolCalls("thinking...", calls)
	if msg.Role != RoleAssistant {
		t.Errorf("Expected role assistant, got %s", msg.Role)
	}
	if msg.TextContent() != "thinking..." {
		t.Errorf("Expected text 'thinking...', got '%s'", msg.TextContent())
	}
	got := msg.ToolCalls()
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("Expected one tool call with ID 'a', got %v", got)
	}

	plain := NewText(RoleUser, "hello")
	if plain.ToolCalls() != nil {
		t.Error("Expected no tool calls on a text message")
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	history := []Message{
		NewText(RoleUser, "scan the network"),
		NewToolCalls("on it", []ToolCall{
			{ID: "call_1", Name: "ping_host", Arguments: map[string]interface{}{"host": "10.0.0.1"}},
			{ID: "call_2", Name: "dns_lookup", Arguments: map[string]interface{}{"name": "example.com"}},
		}),
		NewToolResults([]ToolResult{
			NewToolResult("call_1", "ping_host", "1 packet transmitted, 1 received"),
			NewToolError("call_2", "dns_lookup", "Error: lookup failed"),
		}),
		NewText(RoleAssistant, "the host is up"),
	}

	data, err := json.Marshal(history)
	if err != nil {
		t.Fatalf("Unexpected marshal error: %v", err)
	}

	var restored []Message
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unexpected unmarshal error: %v", err)
	}
	if len(restored) != len(history) {
		t.Fatalf("Expected %d messages, got %d", len(history), len(restored))
	}

	for i, msg := range restored {
		if msg.Role != history[i].Role {
			t.Errorf("Message %d: expected role %s, got %s", i, history[i].Role, msg.Role)
		}
		if msg.TextContent() != history[i].TextContent() {
			t.Errorf("Message %d: expected text '%s', got '%s'", i, history[i].TextContent(), msg.TextContent())
		}
	}

	calls := restored[1].ToolCalls()
	if len(calls) != 2 {
		t.Fatalf("Expected 2 tool calls, got %d", len(calls))
	}
	if calls[0].ID != "call_1" || calls[0].Arguments["host"] != "10.0.0.1" {
		t.Errorf("Tool call round trip mismatch: %+v", calls[0])
	}

	results := restored[2].ToolResults()
	if len(results) != 2 {
		t.Fatalf("Expected 2 tool results, got %d", len(results))
	}
	if results[0].IsError || results[0].Result != "1 packet transmitted, 1 received" {
		t.Errorf("Success result round trip mismatch: %+v", results[0])
	}
	if !results[1].IsError || results[1].Error != "Error: lookup failed" {
		t.Errorf("Error result round trip mismatch: %+v", results[1])
	}
}

func TestUnknownPartKindCoercedToText(t *testing.T) {
	raw := `{"role":"assistant","parts":[{"type":"thinking","content":"hmm"}],"timestamp":1700000000.5}`
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if msg.TextContent() != "hmm" {
		t.Errorf("Expected unknown part coerced to text 'hmm', got '%s'", msg.TextContent())
	}
}

func TestToolCallsInUserMessageCoerced(t *testing.T) {
	raw := `{"role":"user","parts":[{"type":"tool_calls","content":[{"id":"x","name":"y","arguments":{}}]}]}`
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if msg.ToolCalls() != nil {
		t.Error("Expected tool calls in user message to be coerced away")
	}
	if !strings.Contains(msg.TextContent(), `"name":"y"`) {
		t.Errorf("Expected coerced text to preserve content, got '%s'", msg.TextContent())
	}
}

func TestToolResultIsErrorInferredFromError(t *testing.T) {
	raw := `{"role":"tool","parts":[{"type":"tool_results","content":[{"id":"a","name":"n","error":"boom","is_error":false}]}]}`
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	results := msg.ToolResults()
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if !results[0].IsError {
		t.Error("Expected IsError inferred from non-null error field")
	}
}
