package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/travofoz/T-5000/chat"
	"github.com/travofoz/T-5000/config"
	"github.com/travofoz/T-5000/llm"
)

func delegateCall(agentName, userPrompt string) chat.ToolCall {
	return chat.ToolCall{
		ID:   "call_1",
		Name: DelegateToolName,
		Arguments: map[string]interface{}{
			"agent_name":  agentName,
			"user_prompt": userPrompt,
		},
	}
}

func newSpecialist(name, answer string) *Agent {
	session := &scriptedSession{replies: []llm.Reply{{Text: answer}}}
	return New(Options{
		Name:     name,
		Provider: &scriptedProvider{session: session},
		Settings: &config.Settings{},
	})
}

func TestControllerPassesSpecialistAnswerThrough(t *testing.T) {
	session := &scriptedSession{replies: []llm.Reply{
		toolCallReply(delegateCall("network", "check example.com")),
		{Text: "final from controller"},
	}}
	c := NewController(&scriptedProvider{session: session}, map[string]*Agent{
		"network": newSpecialist("network", "host is reachable"),
		"coding":  newSpecialist("coding", "unused"),
	}, &config.Settings{})

	got := c.Run(context.Background(), "check example.com", false, false)
	if got != "final from controller" {
		t.Fatalf("Expected controller's final text, got '%s'", got)
	}
	result := session.sent[1].Results[0]
	if result.IsError {
		t.Fatalf("Expected delegation to succeed, got error '%s'", result.Error)
	}
	if result.Result != "host is reachable" {
		t.Errorf("Expected verbatim specialist answer, got '%s'", result.Result)
	}
}

func TestControllerUnknownSpecialist(t *testing.T) {
	session := &scriptedSession{replies: []llm.Reply{
		toolCallReply(delegateCall("bogus", "do something")),
		{Text: "reported"},
	}}
	c := NewController(&scriptedProvider{session: session}, map[string]*Agent{
		"coding":  newSpecialist("coding", "x"),
		"network": newSpecialist("network", "y"),
	}, &config.Settings{})

	c.Run(context.Background(), "do something", false, false)
	result := session.sent[1].Results[0]
	if !result.IsError {
		t.Fatal("Expected error result for unknown specialist")
	}
	want := "[Error: Specialist agent 'bogus' not found. Please choose one of: coding, network]"
	if result.Error != want {
		t.Errorf("Expected '%s', got '%s'", want, result.Error)
	}
}

func TestControllerRejectsOtherTools(t *testing.T) {
	session := &scriptedSession{replies: []llm.Reply{
		toolCallReply(chat.ToolCall{ID: "c1", Name: "run_shell_command", Arguments: map[string]interface{}{}}),
		{Text: "done"},
	}}
	c := NewController(&scriptedProvider{session: session}, map[string]*Agent{}, &config.Settings{})

	c.Run(context.Background(), "x", false, false)
	result := session.sent[1].Results[0]
	if !result.IsError || !strings.Contains(result.Error, "not available or not allowed") {
		t.Errorf("Expected non-delegate tool to be refused, got '%s'", result.Error)
	}
}

func TestControllerMissingArguments(t *testing.T) {
	session := &scriptedSession{replies: []llm.Reply{
		toolCallReply(chat.ToolCall{ID: "c1", Name: DelegateToolName, Arguments: map[string]interface{}{"agent_name": "coding"}}),
		{Text: "done"},
	}}
	c := NewController(&scriptedProvider{session: session}, map[string]*Agent{
		"coding": newSpecialist("coding", "x"),
	}, &config.Settings{})

	c.Run(context.Background(), "x", false, false)
	result := session.sent[1].Results[0]
	if !result.IsError || !strings.Contains(result.Error, "user_prompt") {
		t.Errorf("Expected missing-argument error, got '%s'", result.Error)
	}
}

func TestControllerSchemaDeclaredLocally(t *testing.T) {
	provider := &scriptedProvider{session: &scriptedSession{replies: []llm.Reply{{Text: "ok"}}}}
	c := NewController(provider, map[string]*Agent{"coding": newSpecialist("coding", "x")}, &config.Settings{})

	c.Run(context.Background(), "x", false, false)
	schema, ok := provider.startCfg.Tools[DelegateToolName]
	if !ok {
		t.Fatal("Expected delegate_task schema in session config")
	}
	if !schema.Parameters["agent_name"].Required || !schema.Parameters["user_prompt"].Required {
		t.Error("Expected both delegation parameters to be required")
	}
}
