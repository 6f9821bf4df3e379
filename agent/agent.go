// Package agent implements the execution loop shared by every agent: a
// bounded model/tool turn cycle with per-agent tool grants, token
// accounting, a confirmation gate for high-risk tools and optional durable
// history.
package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/travofoz/T-5000/chat"
	"github.com/travofoz/T-5000/config"
	"github.com/travofoz/T-5000/llm"
	"github.com/travofoz/T-5000/tools"
)

// maxToolRounds bounds the model/tool cycle of one run regardless of any
// single call's timeout.
const maxToolRounds = 10

const incompleteRunText = "[Agent run completed without a final text response]"

// Confirmer gates high-risk tool execution on operator approval.
type Confirmer interface {
	Confirm(toolName string, args map[string]interface{}) bool
}

// dispatcher lets a wrapping agent intercept tool calls before they reach
// the registry.
type dispatcher interface {
	dispatch(ctx context.Context, call chat.ToolCall) chat.ToolResult
}

// Options configures one agent instance.
type Options struct {
	Name         string
	SystemPrompt string
	Provider     llm.Provider
	Registry     *tools.Registry
	AllowedTools []string // nil grants the whole registry
	Settings     *config.Settings
	Confirmer    Confirmer // nil declines every high-risk tool
	Store        *chat.Store
	SessionID    string
}

// Agent owns one conversation: its history, token counters and resolved
// tool grants. Instances are not safe for concurrent runs.
type Agent struct {
	name         string
	systemPrompt string
	provider     llm.Provider
	granted      map[string]tools.Definition
	schemas      map[string]tools.Schema
	settings     *config.Settings
	confirmer    Confirmer
	store        *chat.Store
	sessionID    string

	history          []chat.Message
	promptTokens     int
	completionTokens int

	dispatcher dispatcher
}

// New resolves the allow-list against the registry snapshot. Granted names
// missing from the registry are skipped with a warning.
func New(opts Options) *Agent {
	a := &Agent{
		name:         opts.Name,
		systemPrompt: opts.SystemPrompt,
		provider:     opts.Provider,
		granted:      make(map[string]tools.Definition),
		schemas:      make(map[string]tools.Schema),
		settings:     opts.Settings,
		confirmer:    opts.Confirmer,
		store:        opts.Store,
		sessionID:    opts.SessionID,
	}
	a.dispatcher = a

	if opts.Registry != nil {
		names := opts.AllowedTools
		if names == nil {
			names = opts.Registry.Names()
		}
		for _, name := range names {
			def, ok := opts.Registry.Lookup(name)
			if !ok {
				fmt.Printf("Warning: tool '%s' granted to agent '%s' is not registered. Skipping.\n", name, opts.Name)
				continue
			}
			a.granted[name] = def
			a.schemas[name] = def.Schema()
		}
	}
	return a
}

// Name returns the agent's identity used for state files and logs.
func (a *Agent) Name() string { return a.name }

// TotalTokens returns the cumulative token count across both counters.
func (a *Agent) TotalTokens() int {
	return a.promptTokens + a.completionTokens
}

// Run executes the full loop for one prompt and returns the final text.
// It never returns an error: every failure mode is rendered as text so the
// caller can surface it directly.
func (a *Agent) Run(ctx context.Context, prompt string, loadState, saveState bool) (final string) {
	defer func() {
		if r := recover(); r != nil {
			final = fmt.Sprintf("[Error: Agent '%s' run failed: %v]", a.name, r)
		}
	}()
	if loadState && a.store != nil {
		history, skipped, err := a.store.Load(a.name, a.sessionID)
		if err != nil {
			fmt.Printf("Warning: could not load state for agent '%s': %v. Starting fresh.\n", a.name, err)
			history = nil
		} else if skipped > 0 {
			fmt.Printf("Warning: skipped %d malformed message(s) while loading state for agent '%s'.\n", skipped, a.name)
		}
		a.history = history
	} else {
		a.history = nil
	}
	a.history = append(a.history, chat.NewText(chat.RoleUser, prompt))

	session, err := a.provider.StartSession(ctx, llm.SessionConfig{
		SystemPrompt: a.systemPrompt,
		Tools:        a.schemas,
		History:      a.history,
	})
	if err != nil {
		return fmt.Sprintf("[Error: Failed to start chat session: %v]", err)
	}

	finalResponse := incompleteRunText
	parts := llm.UserParts(prompt)
	round := 0
	for round < maxToolRounds {
		round++
		if quota, warned := a.checkQuota(); quota {
			finalResponse = "[Error: Token quota exceeded.]"
			break
		} else if warned {
			fmt.Printf("Warning: agent '%s' token usage nearing limit (%d/%d).\n", a.name, a.TotalTokens(), a.settings.MaxTokens)
		}

		reply := session.Send(ctx, parts)
		if reply.Usage.PromptTokens != nil {
			a.promptTokens += *reply.Usage.PromptTokens
		}
		if reply.Usage.CompletionTokens != nil {
			a.completionTokens += *reply.Usage.CompletionTokens
		}

		if reply.Text == "" && len(reply.ToolCalls) == 0 {
			finalResponse = "[Error: LLM provided no response content.]"
			break
		}
		if len(reply.ToolCalls) == 0 {
			a.history = append(a.history, chat.NewText(chat.RoleAssistant, reply.Text))
			finalResponse = reply.Text
			break
		}
		a.history = append(a.history, chat.NewToolCalls(reply.Text, reply.ToolCalls))

		results := a.dispatchAll(ctx, reply.ToolCalls)
		a.history = append(a.history, chat.NewToolResults(results))
		parts = llm.ResultParts(results)
	}

	if round >= maxToolRounds && finalResponse == incompleteRunText {
		fmt.Printf("Warning: agent '%s' reached max tool rounds (%d).\n", a.name, maxToolRounds)
		for i := len(a.history) - 1; i >= 0; i-- {
			if a.history[i].Role == chat.RoleAssistant {
				if text := a.history[i].TextContent(); text != "" {
					finalResponse = text + "\n[Warning: Agent reached max tool rounds]"
					break
				}
			}
		}
	}

	if saveState && a.store != nil {
		if err := a.store.Save(a.name, a.sessionID, a.history); err != nil {
			fmt.Printf("Warning: could not save state for agent '%s': %v\n", a.name, err)
		}
	}
	return finalResponse
}

// checkQuota applies the hard quota and warn threshold before a model call.
func (a *Agent) checkQuota() (exceeded, warned bool) {
	if a.settings == nil || a.settings.MaxTokens <= 0 {
		return false, false
	}
	total := a.TotalTokens()
	if total >= a.settings.MaxTokens {
		return true, false
	}
	if a.settings.WarnTokens > 0 && total >= a.settings.WarnTokens {
		return false, true
	}
	return false, false
}

// dispatchAll runs every call of a turn in its own goroutine. Results land
// at their call's position; correlation travels in each result's ID.
func (a *Agent) dispatchAll(ctx context.Context, calls []chat.ToolCall) []chat.ToolResult {
	results := make([]chat.ToolResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call chat.ToolCall) {
			defer wg.Done()
			results[i] = a.dispatcher.dispatch(ctx, call)
		}(i, call)
	}
	wg.Wait()
	return results
}

// dispatch executes a single call: allow-list check, confirmation gate,
// then the tool itself. A panicking tool becomes an error result without
// disturbing its siblings.
func (a *Agent) dispatch(ctx context.Context, call chat.ToolCall) (result chat.ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			result = chat.NewToolError(call.ID, call.Name,
				fmt.Sprintf("Error: tool '%s' failed: panic: %v", call.Name, r))
		}
	}()

	def, ok := a.granted[call.Name]
	if !ok {
		return chat.NewToolError(call.ID, call.Name,
			fmt.Sprintf("Error: tool '%s' is not available or not allowed for agent '%s'.", call.Name, a.name))
	}
	if a.settings != nil && a.settings.IsHighRisk(call.Name) {
		if a.confirmer == nil || !a.confirmer.Confirm(call.Name, call.Arguments) {
			// A decline is a non-error outcome, distinct from a failure.
			return chat.NewToolResult(call.ID, call.Name,
				fmt.Sprintf("Operation cancelled by user for tool: %s.", call.Name))
		}
	}

	output, err := def.Run(ctx, call.Arguments)
	if err != nil {
		return chat.NewToolError(call.ID, call.Name,
			fmt.Sprintf("Error: tool '%s' failed: %v", call.Name, err))
	}
	return chat.NewToolResult(call.ID, call.Name, output)
}
