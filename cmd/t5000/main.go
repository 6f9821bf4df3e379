package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/travofoz/T-5000/agent"
	"github.com/travofoz/T-5000/agent/terminal"
	"github.com/travofoz/T-5000/chat"
	"github.com/travofoz/T-5000/config"
	"github.com/travofoz/T-5000/llm"
	"github.com/travofoz/T-5000/tools"
	toolsmcp "github.com/travofoz/T-5000/tools/mcp"
)

func main() {
	agentFlag := flag.String("a", "", "Run a single specialist agent directly instead of the controller")
	sessionFlag := flag.String("s", "", "Session id for durable state (shared by all agents in the run)")
	promptFlag := flag.String("p", "", "One-shot prompt; runs once and exits instead of starting the REPL")
	noConfirmFlag := flag.Bool("no-confirm", false, "Disable the interactive gate; high-risk tools are declined")
	listToolsFlag := flag.Bool("list-tools", false, "Print the registered tools and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %+v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	builder := tools.NewBuilder()
	tools.RegisterBuiltins(builder, cfg)
	var mcpClients []*toolsmcp.Client
	for _, server := range cfg.MCPServers {
		client, err := toolsmcp.Connect(ctx, server)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping MCP server '%s': %+v\n", server.Name, err)
			continue
		}
		mcpClients = append(mcpClients, client)
		for _, def := range client.Definitions() {
			builder.Register(def)
		}
	}
	defer func() {
		for _, client := range mcpClients {
			client.Stop()
		}
	}()
	registry := builder.Snapshot()

	if *listToolsFlag {
		for _, name := range registry.Names() {
			def, _ := registry.Lookup(name)
			fmt.Printf("%-20s %s\n", name, def.Description)
		}
		return
	}

	var confirmer agent.Confirmer
	if !*noConfirmFlag {
		confirmer = terminal.NewConfirmer()
	}
	store := chat.NewStore(cfg.StateDir)
	cache := llm.NewCache()

	controller, err := agent.BuildTeam(ctx, cache, registry, cfg, confirmer, store, *sessionFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building agents: %+v\n", err)
		os.Exit(1)
	}

	if *agentFlag != "" {
		runSingleAgent(ctx, cache, registry, cfg, confirmer, store, *sessionFlag, *agentFlag, *promptFlag)
		return
	}

	if *promptFlag != "" {
		fmt.Printf("\n%s\n", controller.Run(ctx, *promptFlag, true, true))
		return
	}

	term := terminal.New(controller)
	if err := term.Run(ctx, ""); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		os.Exit(1)
	}
}

// runSingleAgent bypasses the controller and talks to one specialist.
func runSingleAgent(ctx context.Context, cache *llm.Cache, registry *tools.Registry, cfg *config.Settings, confirmer agent.Confirmer, store *chat.Store, sessionID, name, prompt string) {
	var spec *agent.SpecialistSpec
	var names []string
	for _, s := range agent.Specialists() {
		names = append(names, s.Name)
		if s.Name == name {
			candidate := s
			spec = &candidate
		}
	}
	if spec == nil {
		fmt.Fprintf(os.Stderr, "Unknown agent '%s'. Available: %s\n", name, strings.Join(names, ", "))
		os.Exit(1)
	}

	agentCfg := cfg.AgentFor(spec.Name)
	provider, err := cache.Get(ctx, llm.Config{
		Provider: agentCfg.Provider,
		Model:    agentCfg.Model,
		BaseURL:  agentCfg.BaseURL,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building agent '%s': %+v\n", name, err)
		os.Exit(1)
	}
	a := agent.New(agent.Options{
		Name:         spec.Name,
		SystemPrompt: spec.SystemPrompt,
		Provider:     provider,
		Registry:     registry,
		AllowedTools: spec.AllowedTools,
		Settings:     cfg,
		Confirmer:    confirmer,
		Store:        store,
		SessionID:    sessionID,
	})

	if prompt != "" {
		fmt.Printf("\n%s\n", a.Run(ctx, prompt, true, true))
		return
	}
	fmt.Fprintln(os.Stderr, "A prompt (-p) is required when running a single agent.")
	os.Exit(1)
}
