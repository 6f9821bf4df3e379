package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/travofoz/T-5000/chat"
	"github.com/travofoz/T-5000/errors"
	"github.com/travofoz/T-5000/tools"
)

// BedrockProvider runs Anthropic models through AWS Bedrock. The request
// body is the raw Anthropic wire format, built by hand because InvokeModel
// is schema-agnostic.
type BedrockProvider struct {
	client  *bedrockruntime.Client
	modelID string
}

// NewBedrock creates a Bedrock provider. It requires AWS credentials to be
// configured in the environment.
func NewBedrock(ctx context.Context, modelID string) (*BedrockProvider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load AWS config")
	}
	return &BedrockProvider{
		client:  bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
	}, nil
}

func (p *BedrockProvider) Name() string { return "bedrock" }

func (p *BedrockProvider) StartSession(ctx context.Context, cfg SessionConfig) (Session, error) {
	messages, systemFromHistory := convertHistoryToBedrock(cfg.History)
	system := cfg.SystemPrompt
	if systemFromHistory != "" {
		system = systemFromHistory
	}
	return &bedrockSession{
		provider: p,
		system:   system,
		tools:    bedrockToolDecls(cfg.Tools),
		messages: messages,
	}, nil
}

type bedrockSession struct {
	provider *BedrockProvider
	system   string
	tools    []map[string]interface{}
	messages []map[string]interface{}
}

func (s *bedrockSession) Send(ctx context.Context, parts Parts) Reply {
	blocks := bedrockTurnBlocks(parts)
	if len(blocks) == 0 {
		return errorReply("[Error: Tried to send empty message]")
	}
	s.appendUserBlocks(blocks)

	request := map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        4096,
		"messages":          s.messages,
	}
	if s.system != "" {
		request["system"] = s.system
	}
	if len(s.tools) > 0 {
		request["tools"] = s.tools
	}
	body, err := json.Marshal(request)
	if err != nil {
		return errorReply("[Error: Failed to build Bedrock request: %v]", err)
	}

	resp, err := s.provider.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(s.provider.modelID),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return errorReply("[Error: Request to Bedrock timed out.]")
		}
		return errorReply("[Error communicating with Bedrock: %v]", err)
	}
	return s.parseResponse(resp.Body)
}

func (s *bedrockSession) parseResponse(body []byte) Reply {
	var response map[string]interface{}
	if err := json.Unmarshal(body, &response); err != nil {
		return errorReply("[Error: Failed to unmarshal Bedrock response: %v]", err)
	}
	if errMsg, ok := response["error"]; ok {
		return errorReply("[Error: Bedrock API error: %v]", errMsg)
	}

	reply := Reply{}
	if usage, ok := response["usage"].(map[string]interface{}); ok {
		if v, ok := usage["input_tokens"].(float64); ok {
			reply.Usage.PromptTokens = intPtr(int(v))
		}
		if v, ok := usage["output_tokens"].(float64); ok {
			reply.Usage.CompletionTokens = intPtr(int(v))
		}
	}

	contentArray, _ := response["content"].([]interface{})
	var text string
	var assistantBlocks []map[string]interface{}
	callCounter := 0
	for _, item := range contentArray {
		itemMap, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		assistantBlocks = append(assistantBlocks, itemMap)
		switch itemMap["type"] {
		case "text":
			if t, ok := itemMap["text"].(string); ok {
				text += t
			}
		case "tool_use":
			name, _ := itemMap["name"].(string)
			input, _ := itemMap["input"].(map[string]interface{})
			if name == "" {
				continue
			}
			id := fmt.Sprintf("call_%d_%s", callCounter, name)
			if toolID, ok := itemMap["id"].(string); ok && toolID != "" {
				id = toolID
			}
			reply.ToolCalls = append(reply.ToolCalls, chat.ToolCall{ID: id, Name: name, Arguments: input})
			callCounter++
		}
	}
	if len(assistantBlocks) > 0 {
		s.messages = append(s.messages, map[string]interface{}{
			"role":    "assistant",
			"content": assistantBlocks,
		})
	}

	if stop, ok := response["stop_reason"].(string); ok {
		switch stop {
		case "end_turn", "tool_use", "stop_sequence", "":
		case "max_tokens":
			text += "\n[Warning: Response truncated]"
		default:
			text += fmt.Sprintf("\n[Warning: Stopped unexpectedly (%s)]", stop)
		}
	}
	reply.Text = text
	return reply
}

func (s *bedrockSession) appendUserBlocks(blocks []map[string]interface{}) {
	if n := len(s.messages); n > 0 && s.messages[n-1]["role"] == "user" {
		if prev, ok := s.messages[n-1]["content"].([]map[string]interface{}); ok {
			s.messages[n-1]["content"] = append(prev, blocks...)
			return
		}
	}
	s.messages = append(s.messages, map[string]interface{}{
		"role":    "user",
		"content": blocks,
	})
}

func bedrockTurnBlocks(parts Parts) []map[string]interface{} {
	if len(parts.Results) > 0 {
		blocks := make([]map[string]interface{}, 0, len(parts.Results))
		for _, r := range parts.Results {
			blocks = append(blocks, map[string]interface{}{
				"type":        "tool_result",
				"tool_use_id": r.ID,
				"is_error":    r.IsError,
				"content":     r.Output(),
			})
		}
		return blocks
	}
	if strings.TrimSpace(parts.Text) == "" {
		return nil
	}
	return []map[string]interface{}{{"type": "text", "text": parts.Text}}
}

func convertHistoryToBedrock(history []chat.Message) ([]map[string]interface{}, string) {
	var messages []map[string]interface{}
	var systemPrompt string
	appendTurn := func(role string, blocks []map[string]interface{}) {
		if len(blocks) == 0 {
			return
		}
		if n := len(messages); n > 0 && messages[n-1]["role"] == role {
			if prev, ok := messages[n-1]["content"].([]map[string]interface{}); ok {
				messages[n-1]["content"] = append(prev, blocks...)
				return
			}
		}
		messages = append(messages, map[string]interface{}{"role": role, "content": blocks})
	}

	for _, msg := range history {
		switch msg.Role {
		case chat.RoleSystem:
			systemPrompt = msg.TextContent()
		case chat.RoleUser:
			appendTurn("user", bedrockTurnBlocks(UserParts(msg.TextContent())))
		case chat.RoleAssistant:
			var blocks []map[string]interface{}
			if text := msg.TextContent(); text != "" {
				blocks = append(blocks, map[string]interface{}{"type": "text", "text": text})
			}
			for _, tc := range msg.ToolCalls() {
				blocks = append(blocks, map[string]interface{}{
					"type":  "tool_use",
					"id":    tc.ID,
					"name":  tc.Name,
					"input": tc.Arguments,
				})
			}
			appendTurn("assistant", blocks)
		case chat.RoleTool:
			appendTurn("user", bedrockTurnBlocks(ResultParts(msg.ToolResults())))
		}
	}
	return messages, systemPrompt
}

func bedrockToolDecls(schemas map[string]tools.Schema) []map[string]interface{} {
	selected := selectSchemas(schemas, nil)
	if len(selected) == 0 {
		return nil
	}
	decls := make([]map[string]interface{}, 0, len(selected))
	for _, ns := range selected {
		props, required := jsonProperties(ns.schema)
		inputSchema := map[string]interface{}{
			"type":       "object",
			"properties": props,
		}
		if len(required) > 0 {
			inputSchema["required"] = required
		}
		decls = append(decls, map[string]interface{}{
			"name":         ns.name,
			"description":  ns.schema.Description,
			"input_schema": inputSchema,
		})
	}
	return decls
}
