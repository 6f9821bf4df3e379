package llm

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/travofoz/T-5000/chat"
	"github.com/travofoz/T-5000/errors"
)

// OpenAIProvider is a client for the OpenAI Chat Completion API and any
// compatible endpoint reachable through a custom base URL.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an OpenAI provider. It requires the OPENAI_API_KEY
// environment variable to be set; OPENAI_BASE_URL or the configured base URL
// select a custom endpoint.
func NewOpenAI(model, baseURL string) (*OpenAIProvider, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL == "" {
		baseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	// The v2 SDK returns a value; the pointer is deliberate.
	c := openai.NewClient(opts...)
	return &OpenAIProvider{client: &c, model: model}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) StartSession(ctx context.Context, cfg SessionConfig) (Session, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if cfg.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(cfg.SystemPrompt))
	}
	messages = append(messages, convertHistoryToOpenAI(cfg.History)...)
	return &openaiSession{
		provider: p,
		tools:    ToOpenAI(cfg.Tools, nil),
		messages: messages,
	}, nil
}

type openaiSession struct {
	provider *OpenAIProvider
	tools    []openai.ChatCompletionToolUnionParam
	messages []openai.ChatCompletionMessageParamUnion
}

func (s *openaiSession) Send(ctx context.Context, parts Parts) Reply {
	if len(parts.Results) > 0 {
		for _, r := range parts.Results {
			s.messages = append(s.messages, openai.ToolMessage(r.Output(), r.ID))
		}
	} else if strings.TrimSpace(parts.Text) != "" {
		s.messages = append(s.messages, openai.UserMessage(parts.Text))
	} else {
		return errorReply("[Error: Tried to send empty message]")
	}

	resp, err := s.provider.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(s.provider.model),
		Messages: s.messages,
		Tools:    s.tools,
	})
	if err != nil {
		return openaiErrorReply(err)
	}
	if len(resp.Choices) == 0 {
		return errorReply("[Error: OpenAI response contained no choices.]")
	}

	choice := resp.Choices[0]
	s.messages = append(s.messages, choice.Message.ToParam())

	reply := Reply{
		Text: choice.Message.Content,
		Usage: Usage{
			PromptTokens:     intPtr(int(resp.Usage.PromptTokens)),
			CompletionTokens: intPtr(int(resp.Usage.CompletionTokens)),
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]interface{}
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			fmt.Printf("Warning: could not unmarshal tool call arguments for %s: %v. Using empty arguments.\n", tc.Function.Name, err)
			args = map[string]interface{}{}
		}
		reply.ToolCalls = append(reply.ToolCalls, chat.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
	}

	switch choice.FinishReason {
	case "length":
		reply.Text += "\n[Warning: Response truncated by model due to token limits]"
	case "content_filter":
		reply.Text = "[Error: Response stopped by content filter.]"
		reply.ToolCalls = nil
	case "stop", "tool_calls", "":
	default:
		reply.Text += fmt.Sprintf("\n[Warning: Response stopped unexpectedly (%s)]", choice.FinishReason)
	}
	return reply
}

func convertHistoryToOpenAI(history []chat.Message) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	for _, msg := range history {
		switch msg.Role {
		case chat.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.TextContent()))
		case chat.RoleAssistant:
			assistant := openai.ChatCompletionMessage{
				Role:    "assistant",
				Content: msg.TextContent(),
			}
			for _, tc := range msg.ToolCalls() {
				argsBytes, err := json.Marshal(tc.Arguments)
				if err != nil {
					fmt.Printf("Warning: could not marshal tool call arguments for %s: %v. Skipping function call in history.\n", tc.Name, err)
					continue
				}
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnion{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageFunctionToolCallFunction{
						Name:      tc.Name,
						Arguments: string(argsBytes),
					},
				})
			}
			messages = append(messages, assistant.ToParam())
		case chat.RoleTool:
			// One tool-role message per result; correlation is by call id.
			for _, r := range msg.ToolResults() {
				messages = append(messages, openai.ToolMessage(r.Output(), r.ID))
			}
		default:
			messages = append(messages, openai.UserMessage(msg.TextContent()))
		}
	}
	return messages
}

func openaiErrorReply(err error) Reply {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errorReply("[Error: Request to OpenAI API timed out.]")
	}
	var apierr *openai.Error
	if stderrors.As(err, &apierr) {
		switch apierr.StatusCode {
		case 401, 403:
			return errorReply("[Error: Invalid OpenAI API Key or Authentication.]")
		case 429:
			return errorReply("[Error: OpenAI API rate limit exceeded. Please wait and try again.]")
		case 400:
			msg := strings.ToLower(err.Error())
			if strings.Contains(msg, "context length") || strings.Contains(msg, "maximum context") {
				return errorReply("[Error: Request exceeds OpenAI's context length limit.]")
			}
			return errorReply("[Error: Invalid request to OpenAI API: %v]", err)
		default:
			return errorReply("[Error: OpenAI API Error (%d): %v]", apierr.StatusCode, err)
		}
	}
	return errorReply("[Error communicating with OpenAI: %v]", err)
}
