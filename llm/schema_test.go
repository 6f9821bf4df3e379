package llm

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/travofoz/T-5000/tools"
)

func sampleSchemas() map[string]tools.Schema {
	return map[string]tools.Schema{
		"read_file": {
			Description: "Reads the entire content of a file.",
			Parameters: map[string]tools.Param{
				"path": {Type: tools.TypeString, Description: "File path", Required: true},
			},
		},
		"ping_host": {
			Description: "Pings a host.",
			Parameters: map[string]tools.Param{
				"host":  {Type: tools.TypeString, Required: true},
				"count": {Type: tools.TypeInteger},
			},
		},
	}
}

func TestToOpenAISelectsRequestedTools(t *testing.T) {
	out := ToOpenAI(sampleSchemas(), []string{"read_file"})
	if len(out) != 1 {
		t.Fatalf("Expected 1 tool, got %d", len(out))
	}
}

func TestTranslatorsSkipUnknownNames(t *testing.T) {
	schemas := sampleSchemas()

	if out := ToOpenAI(schemas, []string{"read_file", "no_such_tool"}); len(out) != 1 {
		t.Errorf("Expected unknown tool to be skipped, got %d tools", len(out))
	}
	if out := ToAnthropic(schemas, []string{"no_such_tool"}); out != nil {
		t.Errorf("Expected nil for all-unknown selection, got %d tools", len(out))
	}
}

func TestTranslatorsEmptyInput(t *testing.T) {
	if out := ToOpenAI(nil, nil); out != nil {
		t.Error("Expected nil OpenAI tools for empty input")
	}
	if out := ToAnthropic(nil, nil); out != nil {
		t.Error("Expected nil Anthropic tools for empty input")
	}
	if out := ToGemini(nil, nil); out != nil {
		t.Error("Expected nil Gemini tools for empty input")
	}
	if got := ToPromptJSON(nil, nil); got != "[]" {
		t.Errorf("Expected '[]' for empty catalog, got '%s'", got)
	}
}

func TestToAnthropicCarriesRequired(t *testing.T) {
	out := ToAnthropic(sampleSchemas(), []string{"ping_host"})
	if len(out) != 1 {
		t.Fatalf("Expected 1 tool, got %d", len(out))
	}
	required := out[0].InputSchema.Required
	if len(required) != 1 || required[0] != "host" {
		t.Errorf("Expected required=[host], got %v", required)
	}
	props, ok := out[0].InputSchema.Properties.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected properties to be a map, got %T", out[0].InputSchema.Properties)
	}
	if _, ok := props["count"]; !ok {
		t.Error("Expected optional parameter to be present in properties")
	}
}

func TestToGeminiSingleToolManyDeclarations(t *testing.T) {
	out := ToGemini(sampleSchemas(), nil)
	if len(out) != 1 {
		t.Fatalf("Expected exactly one genai Tool, got %d", len(out))
	}
	if len(out[0].FunctionDeclarations) != 2 {
		t.Errorf("Expected 2 function declarations, got %d", len(out[0].FunctionDeclarations))
	}
}

func TestToPromptJSONIsValidCatalog(t *testing.T) {
	catalog := ToPromptJSON(sampleSchemas(), nil)

	var entries []map[string]interface{}
	if err := json.Unmarshal([]byte(catalog), &entries); err != nil {
		t.Fatalf("Expected valid JSON catalog: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 catalog entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e["name"] == "" || e["parameters"] == nil {
			t.Errorf("Expected name and parameters in entry, got %v", e)
		}
	}
}

func TestPromptInstructions(t *testing.T) {
	if got := PromptInstructions("[]"); got != "" {
		t.Errorf("Expected no instructions for empty catalog, got '%s'", got)
	}
	instructions := PromptInstructions(ToPromptJSON(sampleSchemas(), nil))
	if !strings.Contains(instructions, `"tool_calls"`) {
		t.Error("Expected instructions to describe the tool_calls protocol")
	}
	if !strings.Contains(instructions, "read_file") {
		t.Error("Expected instructions to embed the tool catalog")
	}
}
