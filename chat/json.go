package chat

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/travofoz/T-5000/errors"
)

// Wire format for durable history: each message's parts array is tagged by
// kind so deserialization can reconstruct typed parts without ambiguity.
// Unknown kinds deserialize as opaque text rather than failing the load.
const (
	partKindText        = "text"
	partKindToolCalls   = "tool_calls"
	partKindToolResults = "tool_results"
	partKindEmptyList   = "empty_list"
)

type wirePart struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

type wireMessage struct {
	Role      string     `json:"role"`
	Parts     []wirePart `json:"parts"`
	Timestamp float64    `json:"timestamp"`
}

type wireToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type wireToolResult struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Result  *string `json:"result"`
	Error   *string `json:"error"`
	IsError bool    `json:"is_error"`
}

// MarshalJSON serializes the message into the tagged-part wire format.
func (m Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{
		Role:      string(m.Role),
		Parts:     []wirePart{},
		Timestamp: float64(m.Timestamp.UnixNano()) / float64(time.Second),
	}
	for _, p := range m.Parts {
		switch v := p.(type) {
		case TextPart:
			content, err := json.Marshal(string(v))
			if err != nil {
				return nil, err
			}
			w.Parts = append(w.Parts, wirePart{Type: partKindText, Content: content})
		case ToolCallsPart:
			if len(v) == 0 {
				w.Parts = append(w.Parts, wirePart{Type: partKindEmptyList, Content: json.RawMessage("[]")})
				continue
			}
			calls := make([]wireToolCall, len(v))
			for i, tc := range v {
				calls[i] = wireToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments}
			}
			content, err := json.Marshal(calls)
			if err != nil {
				return nil, err
			}
			w.Parts = append(w.Parts, wirePart{Type: partKindToolCalls, Content: content})
		case ToolResultsPart:
			if len(v) == 0 {
				w.Parts = append(w.Parts, wirePart{Type: partKindEmptyList, Content: json.RawMessage("[]")})
				continue
			}
			results := make([]wireToolResult, len(v))
			for i, tr := range v {
				results[i] = wireToolResult{ID: tr.ID, Name: tr.Name, IsError: tr.IsError}
				if tr.IsError {
					e := tr.Error
					results[i].Error = &e
				} else {
					r := tr.Result
					results[i].Result = &r
				}
			}
			content, err := json.Marshal(results)
			if err != nil {
				return nil, err
			}
			w.Parts = append(w.Parts, wirePart{Type: partKindToolResults, Content: content})
		default:
			return nil, errors.New("cannot serialize unknown part type %T", p)
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON reconstructs a message from the tagged-part wire format.
// Tool call batches outside assistant messages and tool result batches
// outside tool messages are coerced to text with a warning, per the
// homogeneity invariant.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	role := Role(w.Role)
	if role == "" {
		role = "unknown"
	}
	msg := Message{Role: role}
	if w.Timestamp > 0 {
		msg.Timestamp = time.Unix(0, int64(w.Timestamp*float64(time.Second)))
	} else {
		msg.Timestamp = time.Now()
	}

	for _, p := range w.Parts {
		switch p.Type {
		case partKindText:
			var text string
			if err := json.Unmarshal(p.Content, &text); err != nil {
				text = string(p.Content)
			}
			msg.Parts = append(msg.Parts, TextPart(text))
		case partKindToolCalls:
			var calls []wireToolCall
			if err := json.Unmarshal(p.Content, &calls); err != nil {
				return errors.Wrapf(err, "malformed tool_calls part")
			}
			if role != RoleAssistant {
				fmt.Printf("Warning: tool_calls part in %q message during deserialization. Coercing to text.\n", role)
				msg.Parts = append(msg.Parts, TextPart(string(p.Content)))
				continue
			}
			part := make(ToolCallsPart, len(calls))
			for i, c := range calls {
				part[i] = ToolCall{ID: c.ID, Name: c.Name, Arguments: c.Arguments}
			}
			msg.Parts = append(msg.Parts, part)
		case partKindToolResults:
			var results []wireToolResult
			if err := json.Unmarshal(p.Content, &results); err != nil {
				return errors.Wrapf(err, "malformed tool_results part")
			}
			if role != RoleTool {
				fmt.Printf("Warning: tool_results part in %q message during deserialization. Coercing to text.\n", role)
				msg.Parts = append(msg.Parts, TextPart(string(p.Content)))
				continue
			}
			part := make(ToolResultsPart, len(results))
			for i, r := range results {
				tr := ToolResult{ID: r.ID, Name: r.Name}
				if r.Result != nil {
					tr.Result = *r.Result
				}
				if r.Error != nil {
					tr.Error = *r.Error
					tr.IsError = true
				} else {
					tr.IsError = r.IsError
				}
				part[i] = tr
			}
			msg.Parts = append(msg.Parts, part)
		case partKindEmptyList:
			msg.Parts = append(msg.Parts, ToolCallsPart{})
		default:
			fmt.Printf("Warning: unknown part kind %q during deserialization. Treating content as text.\n", p.Type)
			var text string
			if err := json.Unmarshal(p.Content, &text); err != nil {
				text = string(p.Content)
			}
			msg.Parts = append(msg.Parts, TextPart(text))
		}
	}
	*m = msg
	return nil
}
