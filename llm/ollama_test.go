package llm

import (
	"strings"
	"testing"

	"github.com/travofoz/T-5000/chat"
)

func TestParseOllamaToolCallsPlainText(t *testing.T) {
	text, calls := parseOllamaToolCalls("Just a normal answer.")
	if calls != nil {
		t.Errorf("Expected no tool calls, got %d", len(calls))
	}
	if text != "Just a normal answer." {
		t.Errorf("Expected text to pass through, got '%s'", text)
	}
}

func TestParseOllamaToolCallsBatch(t *testing.T) {
	content := `{"tool_calls": [
		{"name": "read_file", "arguments": {"path": "/tmp/a.txt"}},
		{"name": "list_files", "arguments": {"path": "/tmp"}}
	]}`
	text, calls := parseOllamaToolCalls(content)
	if text != "" {
		t.Errorf("Expected empty text for a call batch, got '%s'", text)
	}
	if len(calls) != 2 {
		t.Fatalf("Expected 2 tool calls, got %d", len(calls))
	}
	if calls[0].Name != "read_file" || calls[1].Name != "list_files" {
		t.Errorf("Expected parsed names, got %s and %s", calls[0].Name, calls[1].Name)
	}
	if calls[0].ID == "" || calls[0].ID == calls[1].ID {
		t.Error("Expected unique synthetic call ids")
	}
	if calls[0].Arguments["path"] != "/tmp/a.txt" {
		t.Errorf("Expected arguments to be preserved, got %v", calls[0].Arguments)
	}
}

func TestParseOllamaToolCallsStripsMarkdown(t *testing.T) {
	content := "```json\n{\"tool_calls\": [{\"name\": \"dns_lookup\", \"arguments\": {\"name\": \"example.com\"}}]}\n```"
	_, calls := parseOllamaToolCalls(content)
	if len(calls) != 1 {
		t.Fatalf("Expected 1 tool call after stripping markdown, got %d", len(calls))
	}
}

func TestParseOllamaToolCallsMalformedEntryFallsBack(t *testing.T) {
	content := `{"tool_calls": [{"name": "read_file"}]}`
	text, calls := parseOllamaToolCalls(content)
	if calls != nil {
		t.Error("Expected malformed batch to be discarded")
	}
	if text != content {
		t.Errorf("Expected raw content as fallback text, got '%s'", text)
	}
}

func TestParseOllamaToolCallsOtherJSONStaysText(t *testing.T) {
	content := `{"answer": 42}`
	text, calls := parseOllamaToolCalls(content)
	if calls != nil {
		t.Error("Expected no tool calls for unrelated JSON")
	}
	if text != content {
		t.Errorf("Expected JSON to stay text, got '%s'", text)
	}
}

func TestOllamaTurnContentFormatsResults(t *testing.T) {
	results := []chat.ToolResult{
		chat.NewToolResult("id1", "read_file", "contents here"),
		chat.NewToolError("id2", "ping_host", "Error: host unreachable"),
	}
	content := ollamaTurnContent(ResultParts(results))
	if !strings.Contains(content, "Status: Success") || !strings.Contains(content, "Status: Error") {
		t.Errorf("Expected both statuses in rendered results, got:\n%s", content)
	}
	if !strings.Contains(content, "ID: id1") || !strings.Contains(content, "ID: id2") {
		t.Error("Expected call ids to be rendered for correlation")
	}
}

func TestConvertHistoryReplaysCallsInProtocolShape(t *testing.T) {
	history := []chat.Message{
		chat.NewText(chat.RoleUser, "check the host"),
		chat.NewToolCalls("", []chat.ToolCall{
			{ID: "ping_host_1", Name: "ping_host", Arguments: map[string]interface{}{"host": "example.com"}},
		}),
	}
	messages := convertHistoryToOllama(history)
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}

	replayed := messages[1].Content
	if strings.Contains(replayed, `"ID"`) || strings.Contains(replayed, `"Name"`) || strings.Contains(replayed, `"Arguments"`) {
		t.Errorf("Expected lowercase protocol keys in replayed calls, got:\n%s", replayed)
	}
	text, calls := parseOllamaToolCalls(replayed)
	if text != "" || len(calls) != 1 {
		t.Fatalf("Expected replayed content to parse as one tool call, got text='%s' calls=%d", text, len(calls))
	}
	if calls[0].Name != "ping_host" || calls[0].Arguments["host"] != "example.com" {
		t.Errorf("Expected call to survive the replay round trip, got %+v", calls[0])
	}
}
