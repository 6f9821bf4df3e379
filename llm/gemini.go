package llm

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/travofoz/T-5000/chat"
	"github.com/travofoz/T-5000/errors"
)

// GeminiProvider is a client for the Google Gemini API.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini provider. It requires the GEMINI_API_KEY
// environment variable to be set.
func NewGemini(ctx context.Context, model string) (*GeminiProvider, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create genai client")
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) StartSession(ctx context.Context, cfg SessionConfig) (Session, error) {
	model := p.client.GenerativeModel(p.model)
	model.Tools = ToGemini(cfg.Tools, nil)
	if cfg.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(cfg.SystemPrompt)},
		}
	}
	return &geminiSession{
		model:   model,
		history: convertHistoryToGemini(cfg.History),
	}, nil
}

type geminiSession struct {
	model   *genai.GenerativeModel
	history []*genai.Content
}

func (s *geminiSession) Send(ctx context.Context, parts Parts) Reply {
	sendParts := geminiTurnParts(parts)
	if len(sendParts) == 0 {
		return errorReply("[Error: Tried to send empty message]")
	}

	session := s.model.StartChat()
	session.History = s.history
	resp, err := session.SendMessage(ctx, sendParts...)
	if err != nil {
		return geminiErrorReply(err)
	}
	s.history = session.History

	reply := Reply{}
	if resp.UsageMetadata != nil {
		reply.Usage = Usage{
			PromptTokens:     intPtr(int(resp.UsageMetadata.PromptTokenCount)),
			CompletionTokens: intPtr(int(resp.UsageMetadata.CandidatesTokenCount)),
		}
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
			reply.Text = fmt.Sprintf("[Response blocked by safety settings: %s]", resp.PromptFeedback.BlockReason)
			return reply
		}
		reply.Text = "[Error: Gemini response contained no candidates.]"
		return reply
	}

	candidate := resp.Candidates[0]
	switch candidate.FinishReason {
	case genai.FinishReasonSafety:
		reply.Text = fmt.Sprintf("[Response blocked by safety settings: %s]", candidate.FinishReason)
		return reply
	case genai.FinishReasonRecitation:
		reply.Text = "[Response blocked due to recitation policy.]"
		return reply
	}

	var text string
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			switch v := part.(type) {
			case genai.Text:
				text += string(v)
			case genai.FunctionCall:
				// Gemini does not assign call ids; synthesize one so results
				// can be correlated like every other vendor.
				reply.ToolCalls = append(reply.ToolCalls, chat.ToolCall{
					ID:        fmt.Sprintf("%s_%s", v.Name, uuid.NewString()),
					Name:      v.Name,
					Arguments: v.Args,
				})
			default:
				fmt.Printf("Warning: unsupported part type in Gemini response: %T\n", v)
			}
		}
	}
	if candidate.FinishReason == genai.FinishReasonMaxTokens {
		text += "\n[Warning: Response truncated by model due to token limits]"
	}
	reply.Text = text
	return reply
}

// geminiTurnParts renders the next turn. Tool results become
// function-response parts inside a user turn; the call id cannot be carried,
// so the tool name pairs result with declaration.
func geminiTurnParts(parts Parts) []genai.Part {
	if len(parts.Results) > 0 {
		out := make([]genai.Part, 0, len(parts.Results))
		for _, r := range parts.Results {
			out = append(out, genai.FunctionResponse{
				Name:     r.Name,
				Response: map[string]interface{}{"result": r.Output(), "is_error": r.IsError},
			})
		}
		return out
	}
	if strings.TrimSpace(parts.Text) == "" {
		return nil
	}
	return []genai.Part{genai.Text(parts.Text)}
}

func convertHistoryToGemini(history []chat.Message) []*genai.Content {
	var contents []*genai.Content
	for _, msg := range history {
		switch msg.Role {
		case chat.RoleSystem:
			// System prompts travel via SystemInstruction, not history.
			continue
		case chat.RoleAssistant:
			var parts []genai.Part
			if text := msg.TextContent(); text != "" {
				parts = append(parts, genai.Text(text))
			}
			for _, tc := range msg.ToolCalls() {
				parts = append(parts, genai.FunctionCall{Name: tc.Name, Args: tc.Arguments})
			}
			if len(parts) > 0 {
				contents = append(contents, &genai.Content{Role: "model", Parts: parts})
			}
		case chat.RoleTool:
			parts := geminiTurnParts(ResultParts(msg.ToolResults()))
			if len(parts) > 0 {
				contents = append(contents, &genai.Content{Role: "user", Parts: parts})
			}
		default:
			if text := msg.TextContent(); text != "" {
				contents = append(contents, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(text)}})
			}
		}
	}
	return contents
}

func geminiErrorReply(err error) Reply {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errorReply("[Error: Request to Gemini timed out.]")
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key"):
		return errorReply("[Error: Invalid Gemini API Key.]")
	case strings.Contains(msg, "quota"):
		return errorReply("[Error: Gemini API quota exceeded.]")
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return errorReply("[Error: Gemini API rate limit exceeded.]")
	default:
		return errorReply("[Error communicating with Gemini: %v]", err)
	}
}
