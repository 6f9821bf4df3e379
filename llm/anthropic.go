package llm

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/travofoz/T-5000/chat"
	"github.com/travofoz/T-5000/errors"
)

// AnthropicProvider is a client for the Anthropic Messages API.
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

// NewAnthropic creates an Anthropic provider. It requires the
// ANTHROPIC_API_KEY environment variable to be set.
func NewAnthropic(model, baseURL string) (*AnthropicProvider, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable not set")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicProvider{client: &client, model: model}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

// StartSession converts the prior history into Anthropic's strictly
// alternating message list exactly once.
func (p *AnthropicProvider) StartSession(ctx context.Context, cfg SessionConfig) (Session, error) {
	messages, systemFromHistory := convertHistoryToAnthropic(cfg.History)
	system := cfg.SystemPrompt
	if systemFromHistory != "" {
		system = systemFromHistory
	}
	var toolParams []anthropic.ToolUnionParam
	for _, t := range ToAnthropic(cfg.Tools, nil) {
		tool := t
		toolParams = append(toolParams, anthropic.ToolUnionParam{OfTool: &tool})
	}
	return &anthropicSession{
		provider: p,
		system:   system,
		tools:    toolParams,
		messages: messages,
	}, nil
}

type anthropicSession struct {
	provider *AnthropicProvider
	system   string
	tools    []anthropic.ToolUnionParam
	messages []anthropic.MessageParam
}

func (s *anthropicSession) Send(ctx context.Context, parts Parts) Reply {
	blocks := anthropicTurnBlocks(parts)
	if len(blocks) == 0 {
		return errorReply("[Error: Tried to send empty message]")
	}
	s.appendUserBlocks(blocks)

	// Anthropic rejects non-alternating sequences outright; refuse locally
	// rather than sending an invalid request.
	if len(s.messages) == 0 {
		return errorReply("[Error: Invalid history state (empty).]")
	}
	if s.messages[0].Role == anthropic.MessageParamRoleAssistant {
		return errorReply("[Error: Invalid history state (starts with 'assistant').]")
	}
	for i := 0; i < len(s.messages)-1; i++ {
		if s.messages[i].Role == s.messages[i+1].Role {
			return errorReply("[Error: Invalid history state (consecutive roles '%s').]", s.messages[i].Role)
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.provider.model),
		MaxTokens: 4096,
		Messages:  s.messages,
		Tools:     s.tools,
	}
	if s.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: s.system}}
	}

	resp, err := s.provider.client.Messages.New(ctx, params)
	if err != nil {
		return anthropicErrorReply(err)
	}
	s.messages = append(s.messages, resp.ToParam())

	reply := Reply{Usage: Usage{
		PromptTokens:     intPtr(int(resp.Usage.InputTokens)),
		CompletionTokens: intPtr(int(resp.Usage.OutputTokens)),
	}}
	var text string
	for _, content := range resp.Content {
		switch c := content.AsAny().(type) {
		case anthropic.TextBlock:
			text += c.Text
		case anthropic.ToolUseBlock:
			var args map[string]interface{}
			if err := json.Unmarshal(c.Input, &args); err != nil {
				fmt.Printf("Warning: could not unmarshal tool call input for %s: %v. Using empty arguments.\n", c.Name, err)
				args = map[string]interface{}{}
			}
			reply.ToolCalls = append(reply.ToolCalls, chat.ToolCall{ID: c.ID, Name: c.Name, Arguments: args})
		}
	}

	switch resp.StopReason {
	case anthropic.StopReasonEndTurn, anthropic.StopReasonToolUse, anthropic.StopReasonStopSequence:
	case anthropic.StopReasonMaxTokens:
		text += "\n[Warning: Response truncated]"
	default:
		if resp.StopReason != "" {
			text += fmt.Sprintf("\n[Warning: Stopped unexpectedly (%s)]", resp.StopReason)
		}
	}
	reply.Text = text
	return reply
}

// appendUserBlocks merges the new turn into the trailing user message when
// the history already ends with one (two consecutive tool-result batches
// both map to user turns).
func (s *anthropicSession) appendUserBlocks(blocks []anthropic.ContentBlockParamUnion) {
	if n := len(s.messages); n > 0 && s.messages[n-1].Role == anthropic.MessageParamRoleUser {
		s.messages[n-1].Content = append(s.messages[n-1].Content, blocks...)
		return
	}
	s.messages = append(s.messages, anthropic.MessageParam{
		Role:    anthropic.MessageParamRoleUser,
		Content: blocks,
	})
}

func anthropicTurnBlocks(parts Parts) []anthropic.ContentBlockParamUnion {
	if len(parts.Results) > 0 {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(parts.Results))
		for _, r := range parts.Results {
			blocks = append(blocks, anthropic.ContentBlockParamUnion{
				OfToolResult: &anthropic.ToolResultBlockParam{
					ToolUseID: r.ID,
					IsError:   anthropic.Bool(r.IsError),
					Content: []anthropic.ToolResultBlockParamContentUnion{{
						OfText: &anthropic.TextBlockParam{Text: r.Output()},
					}},
				},
			})
		}
		return blocks
	}
	if strings.TrimSpace(parts.Text) == "" {
		return nil
	}
	return []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(parts.Text)}
}

// convertHistoryToAnthropic maps the internal history to Anthropic's format,
// merging consecutive same-role turns as it goes. The last system message
// wins as the system prompt.
func convertHistoryToAnthropic(history []chat.Message) ([]anthropic.MessageParam, string) {
	var messages []anthropic.MessageParam
	var systemPrompt string

	appendBlocks := func(role anthropic.MessageParamRole, blocks []anthropic.ContentBlockParamUnion) {
		if len(blocks) == 0 {
			return
		}
		if n := len(messages); n > 0 && messages[n-1].Role == role {
			messages[n-1].Content = append(messages[n-1].Content, blocks...)
			return
		}
		messages = append(messages, anthropic.MessageParam{Role: role, Content: blocks})
	}

	for _, msg := range history {
		switch msg.Role {
		case chat.RoleSystem:
			systemPrompt = msg.TextContent()
		case chat.RoleUser:
			if text := msg.TextContent(); text != "" {
				appendBlocks(anthropic.MessageParamRoleUser, []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(text)})
			}
		case chat.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if text := msg.TextContent(); text != "" {
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfText: &anthropic.TextBlockParam{Text: text},
				})
			}
			for _, tc := range msg.ToolCalls() {
				argsBytes, err := json.Marshal(tc.Arguments)
				if err != nil {
					fmt.Printf("Warning: could not marshal tool call arguments for %s: %v. Skipping.\n", tc.Name, err)
					continue
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    tc.ID,
						Name:  tc.Name,
						Input: argsBytes,
					},
				})
			}
			appendBlocks(anthropic.MessageParamRoleAssistant, blocks)
		case chat.RoleTool:
			blocks := anthropicTurnBlocks(ResultParts(msg.ToolResults()))
			appendBlocks(anthropic.MessageParamRoleUser, blocks)
		}
	}
	return messages, systemPrompt
}

func anthropicErrorReply(err error) Reply {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errorReply("[Error: Request to Anthropic timed out.]")
	}
	var apierr *anthropic.Error
	if stderrors.As(err, &apierr) {
		switch apierr.StatusCode {
		case 401, 403:
			return errorReply("[Error: Invalid Anthropic API Key.]")
		case 429:
			return errorReply("[Error: Anthropic rate limit exceeded.]")
		case 400:
			msg := strings.ToLower(err.Error())
			if strings.Contains(msg, "prompt is too long") {
				return errorReply("[Error: Request exceeds context limit.]")
			}
			if strings.Contains(msg, "alternate user/assistant") {
				return errorReply("[Error: Invalid history state (roles).]")
			}
			return errorReply("[Error: Invalid request to Anthropic: %v]", err)
		default:
			return errorReply("[Error: Anthropic API Error (%d): %v]", apierr.StatusCode, err)
		}
	}
	return errorReply("[Error communicating with Anthropic: %v]", err)
}
