// Package chat defines the conversation data model shared by every agent
// and provider adapter: messages composed of typed parts, the tool call and
// tool result records that flow between the model and the dispatcher, and
// the durable per-agent history store.
package chat

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// ToolCall is a request from the model to invoke a named tool. The ID is
// opaque and unique within a single assistant turn; results are correlated
// back to it, never by position.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]interface{}
}

// ToolResult is the outcome of executing one ToolCall. Result and Error are
// mutually exclusive in normal construction; use NewToolResult and
// NewToolError to keep the IsError flag consistent.
type ToolResult struct {
	ID      string
	Name    string
	Result  string
	Error   string
	IsError bool
}

// NewToolResult builds a successful result for the given call.
func NewToolResult(id, name, result string) ToolResult {
	return ToolResult{ID: id, Name: name, Result: result}
}

// NewToolError builds a failed result for the given call.
func NewToolError(id, name, errText string) ToolResult {
	return ToolResult{ID: id, Name: name, Error: errText, IsError: true}
}

// Output returns the text a provider should feed back to the model: the
// error message for failed executions, the result otherwise.
func (r ToolResult) Output() string {
	if r.IsError {
		return r.Error
	}
	return r.Result
}

// Part is one element of a message body. The set is closed: plain text, a
// batch of tool calls (assistant messages only) or a batch of tool results
// (tool messages only).
type Part interface {
	isPart()
}

// TextPart is a plain text fragment.
type TextPart string

// ToolCallsPart groups the tool calls requested in one assistant turn.
type ToolCallsPart []ToolCall

// ToolResultsPart groups the results produced by one dispatch round.
type ToolResultsPart []ToolResult

func (TextPart) isPart()        {}
func (ToolCallsPart) isPart()   {}
func (ToolResultsPart) isPart() {}

// Message is a single entry in an agent's conversation history. History is
// exclusively owned by one agent instance and never mutated concurrently.
type Message struct {
	Role      Role
	Parts     []Part
	Timestamp time.Time
}

// NewText builds a message holding a single text part, stamped now.
func NewText(role Role, text string) Message {
	return Message{Role: role, Parts: []Part{TextPart(text)}, Timestamp: time.Now()}
}

// NewToolCalls builds an assistant message carrying a tool call batch and
// optional leading text.
func NewToolCalls(text string, calls []ToolCall) Message {
	m := Message{Role: RoleAssistant, Timestamp: time.Now()}
	if text != "" {
		m.Parts = append(m.Parts, TextPart(text))
	}
	if len(calls) > 0 {
		m.Parts = append(m.Parts, ToolCallsPart(calls))
	}
	return m
}

// NewToolResults builds a tool message carrying a result batch.
func NewToolResults(results []ToolResult) Message {
	return Message{Role: RoleTool, Parts: []Part{ToolResultsPart(results)}, Timestamp: time.Now()}
}

// TextContent concatenates all text parts of the message.
func (m Message) TextContent() string {
	var texts []string
	for _, p := range m.Parts {
		if t, ok := p.(TextPart); ok {
			texts = append(texts, string(t))
		}
	}
	return strings.Join(texts, "\n")
}

// ToolCalls returns the calls requested by this message, if any.
func (m Message) ToolCalls() []ToolCall {
	for _, p := range m.Parts {
		if c, ok := p.(ToolCallsPart); ok {
			return []ToolCall(c)
		}
	}
	return nil
}

// ToolResults returns the results carried by this message, if any.
func (m Message) ToolResults() []ToolResult {
	for _, p := range m.Parts {
		if r, ok := p.(ToolResultsPart); ok {
			return []ToolResult(r)
		}
	}
	return nil
}

func (m Message) String() string {
	var parts []string
	for _, p := range m.Parts {
		switch v := p.(type) {
		case TextPart:
			s := string(v)
			if len(s) > 70 {
				s = s[:70] + "..."
			}
			parts = append(parts, fmt.Sprintf("%q", s))
		case ToolCallsPart:
			parts = append(parts, fmt.Sprintf("[%d tool call(s)]", len(v)))
		case ToolResultsPart:
			parts = append(parts, fmt.Sprintf("[%d tool result(s)]", len(v)))
		}
	}
	return fmt.Sprintf("Message(role=%s, parts=[%s])", m.Role, strings.Join(parts, ", "))
}
