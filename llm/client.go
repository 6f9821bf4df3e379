// Package llm hides the incompatible vendor protocols behind a single
// session-oriented interface. Adapters never return transport errors from
// Send: every vendor failure is rendered as a bracketed text reply so the
// agent loop can append it to history and carry on.
package llm

import (
	"context"
	"fmt"

	"github.com/travofoz/T-5000/chat"
	"github.com/travofoz/T-5000/tools"
)

// Usage carries the token counters one model call reported. Nil fields mean
// the vendor did not expose a counter; totals must not be fabricated.
type Usage struct {
	PromptTokens     *int
	CompletionTokens *int
}

// Reply is the outcome of one model turn. ToolCalls is nil whenever Text
// holds a bracketed error string.
type Reply struct {
	Text      string
	ToolCalls []chat.ToolCall
	Usage     Usage
}

// Parts is the next turn's input: either a plain user string or a batch of
// tool results, never both.
type Parts struct {
	Text    string
	Results []chat.ToolResult
}

// UserParts wraps a plain user prompt.
func UserParts(text string) Parts {
	return Parts{Text: text}
}

// ResultParts wraps a batch of tool results.
func ResultParts(results []chat.ToolResult) Parts {
	return Parts{Results: results}
}

// SessionConfig seeds a provider session with the agent's fixed system
// prompt, its tool subset and any reloaded history. History conversion to
// the vendor's native representation happens exactly once, here.
type SessionConfig struct {
	SystemPrompt string
	Tools        map[string]tools.Schema
	History      []chat.Message
}

// Session is one agent run's vendor-native conversation state.
type Session interface {
	Send(ctx context.Context, parts Parts) Reply
}

// Provider creates sessions against one vendor endpoint.
type Provider interface {
	Name() string
	StartSession(ctx context.Context, cfg SessionConfig) (Session, error)
}

// errorReply builds the bracketed-error reply shape shared by all adapters.
func errorReply(format string, a ...interface{}) Reply {
	return Reply{Text: fmt.Sprintf(format, a...)}
}

func intPtr(v int) *int {
	return &v
}
