package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/travofoz/T-5000/chat"
	"github.com/travofoz/T-5000/config"
	"github.com/travofoz/T-5000/llm"
	"github.com/travofoz/T-5000/tools"
)

// DelegateToolName is the controller's only tool. It is declared locally
// and never registered in the shared registry; the controller intercepts
// the call before registry dispatch.
const DelegateToolName = "delegate_task"

// Controller routes each user request to one specialist agent and passes
// the specialist's answer through verbatim.
type Controller struct {
	*Agent
	specialists map[string]*Agent
}

// NewController builds the routing agent over a fixed specialist set.
func NewController(provider llm.Provider, specialists map[string]*Agent, settings *config.Settings) *Controller {
	names := make([]string, 0, len(specialists))
	for name := range specialists {
		names = append(names, name)
	}
	sort.Strings(names)
	nameList := strings.Join(names, ", ")

	systemPrompt := fmt.Sprintf(`You are the Controller Agent, the central router for a multi-agent system.
Your primary role is to understand the user's request, determine which specialist agent is best suited, and delegate the *entire original task* using the '%[1]s' function ONLY.

Available Specialist Agents:
%[2]s

Analyze the user's prompt carefully. You MUST use the '%[1]s' function with the correct 'agent_name' from the list above and the exact original 'user_prompt'.
Do NOT attempt to answer the user's request or perform tasks yourself.
Do NOT ask the user for clarification; make your best choice for delegation based on the available specialists.
If the request seems ambiguous or could fit multiple agents, choose the one that seems most central to the request's core action or goal.
Respond ONLY with the '%[1]s' function call. Your response should contain nothing else.`, DelegateToolName, nameList)

	inner := New(Options{
		Name:         "ControllerAgent",
		SystemPrompt: systemPrompt,
		Provider:     provider,
		Settings:     settings,
	})
	inner.schemas[DelegateToolName] = tools.Schema{
		Description: "Delegate the user's original task to a specialist agent.",
		Parameters: map[string]tools.Param{
			"agent_name": {
				Type:        tools.TypeString,
				Description: fmt.Sprintf("The name of the specialist agent to delegate the task to. Must be one of: %s", nameList),
				Required:    true,
			},
			"user_prompt": {
				Type:        tools.TypeString,
				Description: "The original, unmodified user prompt containing the task.",
				Required:    true,
			},
		},
	}

	c := &Controller{Agent: inner, specialists: specialists}
	inner.dispatcher = c
	return c
}

// dispatch special-cases the delegation tool; anything else the model names
// is an error result, since delegation is all the controller may do.
func (c *Controller) dispatch(ctx context.Context, call chat.ToolCall) chat.ToolResult {
	if call.Name != DelegateToolName {
		return chat.NewToolError(call.ID, call.Name,
			fmt.Sprintf("Error: tool '%s' is not available or not allowed for agent '%s'.", call.Name, c.name))
	}
	agentName, ok := call.Arguments["agent_name"].(string)
	if !ok || agentName == "" {
		return chat.NewToolError(call.ID, call.Name,
			"Error: delegate_task requires a string 'agent_name' argument.")
	}
	userPrompt, ok := call.Arguments["user_prompt"].(string)
	if !ok || userPrompt == "" {
		return chat.NewToolError(call.ID, call.Name,
			"Error: delegate_task requires a string 'user_prompt' argument.")
	}

	specialist, ok := c.specialists[agentName]
	if !ok {
		names := make([]string, 0, len(c.specialists))
		for name := range c.specialists {
			names = append(names, name)
		}
		sort.Strings(names)
		return chat.NewToolError(call.ID, call.Name,
			fmt.Sprintf("[Error: Specialist agent '%s' not found. Please choose one of: %s]", agentName, strings.Join(names, ", ")))
	}

	fmt.Printf("Controller delegating to '%s'.\n", agentName)
	result := specialist.Run(ctx, userPrompt, true, true)
	return chat.NewToolResult(call.ID, call.Name, result)
}
