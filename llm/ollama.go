package llm

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/travofoz/T-5000/chat"
)

const (
	defaultOllamaURL     = "http://localhost:11434"
	defaultOllamaTimeout = 180 * time.Second
)

// OllamaProvider talks to a local Ollama server. Ollama has no native tool
// protocol, so the tool catalog is injected into the system prompt and
// replies are parsed for a {"tool_calls": [...]} JSON object.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama creates an Ollama provider. The base URL falls back to
// OLLAMA_BASE_URL, then to the local default.
func NewOllama(model, baseURL string) (*OllamaProvider, error) {
	if baseURL == "" {
		baseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	return &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: defaultOllamaTimeout},
	}, nil
}

func (p *OllamaProvider) Name() string { return "ollama" }

func (p *OllamaProvider) StartSession(ctx context.Context, cfg SessionConfig) (Session, error) {
	system := cfg.SystemPrompt
	if instructions := PromptInstructions(ToPromptJSON(cfg.Tools, nil)); instructions != "" {
		system += "\n" + instructions
	}
	return &ollamaSession{
		provider: p,
		system:   system,
		messages: convertHistoryToOllama(cfg.History),
	}, nil
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaSession struct {
	provider *OllamaProvider
	system   string
	messages []ollamaMessage
}

type ollamaChatResponse struct {
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	Error           string        `json:"error"`
	PromptEvalCount *int          `json:"prompt_eval_count"`
	EvalCount       *int          `json:"eval_count"`
}

func (s *ollamaSession) Send(ctx context.Context, parts Parts) Reply {
	content := ollamaTurnContent(parts)
	if content == "" {
		return errorReply("[Error: Tried to send empty message]")
	}
	s.messages = append(s.messages, ollamaMessage{Role: "user", Content: content})

	payload := map[string]interface{}{
		"model":    s.provider.model,
		"messages": s.messages,
		"stream":   false,
		"system":   s.system,
		"format":   "json",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return errorReply("[Error: Failed to build Ollama request: %v]", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.provider.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return errorReply("[Error: Failed to build Ollama request: %v]", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := s.provider.client.Do(req)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			return errorReply("[Error: Request to Ollama timed out.]")
		}
		return errorReply("[Error: Network error connecting to Ollama: %v]", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return errorReply("[Error processing Ollama response: %v]", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return errorReply("[Error: Ollama API Error (%d): %s]", httpResp.StatusCode, truncateForError(string(respBody)))
	}

	var resp ollamaChatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return errorReply("[Error processing Ollama response: %v]", err)
	}
	if resp.Error != "" {
		return errorReply("[Ollama Error: %s]", resp.Error)
	}

	reply := Reply{Usage: Usage{
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
	}}
	if resp.Message.Role != "assistant" || resp.Message.Content == "" {
		reply.Text = "[Warning: Ollama finished without providing a message response.]"
		return reply
	}
	s.messages = append(s.messages, resp.Message)

	text, calls := parseOllamaToolCalls(resp.Message.Content)
	reply.Text = text
	reply.ToolCalls = calls
	return reply
}

// parseOllamaToolCalls implements the manual tool protocol: content that
// parses as {"tool_calls": [{"name":..., "arguments": {...}}]} becomes a
// call batch with synthetic ids; anything else is plain text. A single
// malformed entry discards the whole batch and falls back to text.
func parseOllamaToolCalls(content string) (string, []chat.ToolCall) {
	cleaned := strings.TrimSpace(content)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return "[Warning: Assistant response was empty after cleaning.]", nil
	}

	var envelope struct {
		ToolCalls []struct {
			Name      string                 `json:"name"`
			Arguments map[string]interface{} `json:"arguments"`
		} `json:"tool_calls"`
	}
	if err := json.Unmarshal([]byte(cleaned), &envelope); err != nil {
		return content, nil
	}
	if len(envelope.ToolCalls) == 0 {
		// Valid JSON without the tool protocol shape stays text.
		return content, nil
	}

	calls := make([]chat.ToolCall, 0, len(envelope.ToolCalls))
	for _, c := range envelope.ToolCalls {
		if c.Name == "" || c.Arguments == nil {
			fmt.Printf("Warning: invalid tool call structure in Ollama response. Treating response as text.\n")
			return content, nil
		}
		calls = append(calls, chat.ToolCall{
			ID:        fmt.Sprintf("%s_%s", c.Name, uuid.NewString()),
			Name:      c.Name,
			Arguments: c.Arguments,
		})
	}
	return "", calls
}

// ollamaTurnContent flattens the next turn to a text block; tool results are
// formatted so the model can pair them with its own call batch.
func ollamaTurnContent(parts Parts) string {
	if len(parts.Results) > 0 {
		var sb strings.Builder
		sb.WriteString("Tool execution results:\n")
		for _, r := range parts.Results {
			status := "Success"
			if r.IsError {
				status = "Error"
			}
			fmt.Fprintf(&sb, "--- Tool: %s (ID: %s) ---\nStatus: %s\nOutput:\n```\n%s\n```\n---\n", r.Name, r.ID, status, r.Output())
		}
		return strings.TrimSpace(sb.String())
	}
	return strings.TrimSpace(parts.Text)
}

func convertHistoryToOllama(history []chat.Message) []ollamaMessage {
	var messages []ollamaMessage
	for _, msg := range history {
		switch msg.Role {
		case chat.RoleSystem:
			continue
		case chat.RoleAssistant:
			content := msg.TextContent()
			if calls := msg.ToolCalls(); len(calls) > 0 {
				// Replay calls in the same lowercase shape the protocol
				// instructions ask the model to emit.
				wire := make([]map[string]interface{}, 0, len(calls))
				for _, c := range calls {
					wire = append(wire, map[string]interface{}{"name": c.Name, "arguments": c.Arguments})
				}
				if data, err := json.Marshal(map[string]interface{}{"tool_calls": wire}); err == nil {
					content = string(data)
				}
			}
			if content != "" {
				messages = append(messages, ollamaMessage{Role: "assistant", Content: content})
			}
		case chat.RoleTool:
			if content := ollamaTurnContent(ResultParts(msg.ToolResults())); content != "" {
				messages = append(messages, ollamaMessage{Role: "user", Content: content})
			}
		default:
			if content := msg.TextContent(); content != "" {
				messages = append(messages, ollamaMessage{Role: "user", Content: content})
			}
		}
	}
	return messages
}

func truncateForError(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
