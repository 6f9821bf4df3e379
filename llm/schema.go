package llm

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/generative-ai-go/genai"
	"github.com/openai/openai-go/v2"

	"github.com/travofoz/T-5000/tools"
)

// selectSchemas resolves the requested tool names against the schema map,
// skipping unknown names with a warning. A nil request selects everything.
func selectSchemas(schemas map[string]tools.Schema, names []string) []namedSchema {
	if names == nil {
		names = make([]string, 0, len(schemas))
		for name := range schemas {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	selected := make([]namedSchema, 0, len(names))
	for _, name := range names {
		schema, ok := schemas[name]
		if !ok {
			fmt.Printf("Warning: tool '%s' has no schema and was skipped during translation.\n", name)
			continue
		}
		selected = append(selected, namedSchema{name: name, schema: schema})
	}
	return selected
}

type namedSchema struct {
	name   string
	schema tools.Schema
}

// jsonProperties renders a tool's parameters as a JSON-schema properties map
// plus a sorted required-names list.
func jsonProperties(schema tools.Schema) (map[string]interface{}, []string) {
	props := make(map[string]interface{}, len(schema.Parameters))
	var required []string
	for name, p := range schema.Parameters {
		prop := map[string]interface{}{"type": wireType(p.Type)}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if p.Type == tools.TypeArray {
			itemType := tools.TypeString
			if p.Items != nil {
				itemType = wireType(p.Items.Type)
			}
			prop["items"] = map[string]interface{}{"type": itemType}
		}
		props[name] = prop
		if p.Required {
			required = append(required, name)
		}
	}
	sort.Strings(required)
	return props, required
}

// wireType maps the internal "any" type to the schema default.
func wireType(t string) string {
	if t == tools.TypeAny || t == "" {
		return tools.TypeString
	}
	return t
}

// ToOpenAI renders the selected tools as OpenAI function declarations.
func ToOpenAI(schemas map[string]tools.Schema, names []string) []openai.ChatCompletionToolUnionParam {
	selected := selectSchemas(schemas, names)
	if len(selected) == 0 {
		return nil
	}
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(selected))
	for _, ns := range selected {
		props, required := jsonProperties(ns.schema)
		params := openai.FunctionParameters{
			"type":       "object",
			"properties": props,
		}
		if len(required) > 0 {
			params["required"] = required
		}
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        ns.name,
			Description: openai.String(ns.schema.Description),
			Parameters:  params,
		}))
	}
	return out
}

// ToAnthropic renders the selected tools as Anthropic tool declarations.
func ToAnthropic(schemas map[string]tools.Schema, names []string) []anthropic.ToolParam {
	selected := selectSchemas(schemas, names)
	if len(selected) == 0 {
		return nil
	}
	out := make([]anthropic.ToolParam, 0, len(selected))
	for _, ns := range selected {
		props, required := jsonProperties(ns.schema)
		out = append(out, anthropic.ToolParam{
			Name:        ns.name,
			Description: anthropic.String(ns.schema.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: props,
				Required:   required,
			},
		})
	}
	return out
}

// ToGemini renders the selected tools as one genai Tool carrying a function
// declaration per tool.
func ToGemini(schemas map[string]tools.Schema, names []string) []*genai.Tool {
	selected := selectSchemas(schemas, names)
	if len(selected) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(selected))
	for _, ns := range selected {
		decl := &genai.FunctionDeclaration{
			Name:        ns.name,
			Description: ns.schema.Description,
		}
		if len(ns.schema.Parameters) > 0 {
			props := make(map[string]*genai.Schema, len(ns.schema.Parameters))
			var required []string
			for name, p := range ns.schema.Parameters {
				props[name] = geminiParam(p)
				if p.Required {
					required = append(required, name)
				}
			}
			sort.Strings(required)
			decl.Parameters = &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   required,
			}
		}
		decls = append(decls, decl)
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func geminiParam(p tools.Param) *genai.Schema {
	s := &genai.Schema{
		Type:        geminiType(p.Type),
		Description: p.Description,
	}
	if p.Type == tools.TypeArray {
		itemType := tools.TypeString
		if p.Items != nil {
			itemType = p.Items.Type
		}
		s.Items = &genai.Schema{Type: geminiType(itemType)}
	}
	return s
}

func geminiType(t string) genai.Type {
	switch t {
	case tools.TypeString:
		return genai.TypeString
	case tools.TypeNumber:
		return genai.TypeNumber
	case tools.TypeInteger:
		return genai.TypeInteger
	case tools.TypeBoolean:
		return genai.TypeBoolean
	case tools.TypeArray:
		return genai.TypeArray
	case tools.TypeObject:
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// ToPromptJSON renders the selected tools as a textual JSON catalog for
// vendors without native tool support. Empty input yields "[]".
func ToPromptJSON(schemas map[string]tools.Schema, names []string) string {
	selected := selectSchemas(schemas, names)
	if len(selected) == 0 {
		return "[]"
	}
	catalog := make([]map[string]interface{}, 0, len(selected))
	for _, ns := range selected {
		props, required := jsonProperties(ns.schema)
		entry := map[string]interface{}{
			"name":        ns.name,
			"description": ns.schema.Description,
			"parameters": map[string]interface{}{
				"type":       "object",
				"properties": props,
			},
		}
		if len(required) > 0 {
			entry["parameters"].(map[string]interface{})["required"] = required
		}
		catalog = append(catalog, entry)
	}
	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		fmt.Printf("Warning: could not marshal tool catalog: %v\n", err)
		return "[]"
	}
	return string(data)
}

// PromptInstructions wraps a textual tool catalog with the usage contract
// appended to the system prompt: the model must answer either in plain text
// or with a single {"tool_calls": [...]} JSON object.
func PromptInstructions(catalog string) string {
	if catalog == "" || catalog == "[]" {
		return ""
	}
	return fmt.Sprintf(`
You have access to the following tools:
%s

When you decide to call one or more tools, you MUST respond with ONLY a single, valid JSON object with one key named "tool_calls". The value of "tool_calls" MUST be a list of objects, each with a "name" string and an "arguments" object matching the tool's parameters. Do not wrap the JSON in markdown delimiters or add any other text.
If no tool is needed, respond with plain text.`, catalog)
}
