package agent

import (
	"context"

	"github.com/travofoz/T-5000/chat"
	"github.com/travofoz/T-5000/config"
	"github.com/travofoz/T-5000/errors"
	"github.com/travofoz/T-5000/llm"
	"github.com/travofoz/T-5000/tools"
)

// SpecialistSpec declares one specialist: its identity, instructions and
// tool grants.
type SpecialistSpec struct {
	Name         string
	SystemPrompt string
	AllowedTools []string
}

// Specialists returns the built-in specialist roster.
func Specialists() []SpecialistSpec {
	return []SpecialistSpec{
		{
			Name: "coding",
			SystemPrompt: `You are a specialist Coding Agent, an expert software developer.
Your capabilities include reading, writing, analyzing and modifying code and configuration files, editing files precisely, and running shell commands for builds, tests and version control.
You focus solely on coding and development tasks. Delegate system administration, network diagnostics and security work to the appropriate specialist.`,
			AllowedTools: []string{"read_file", "write_file", "edit_file", "list_files", "run_shell_command"},
		},
		{
			Name: "sysadmin",
			SystemPrompt: `You are a specialist System Administration Agent.
You manage the local system: inspecting and controlling processes, running administrative shell commands, and reading configuration and log files.
You focus solely on system administration. Delegate development, network diagnostics and security scanning to the appropriate specialist.`,
			AllowedTools: []string{"run_shell_command", "list_processes", "kill_process", "read_file", "list_files"},
		},
		{
			Name: "network",
			SystemPrompt: `You are a specialist Network Agent.
You diagnose connectivity: pinging hosts, resolving names, fetching URLs and running network-related shell commands.
You focus solely on network tasks. Delegate development, system administration and security work to the appropriate specialist.`,
			AllowedTools: []string{"ping_host", "dns_lookup", "http_fetch", "run_shell_command"},
		},
		{
			Name: "cybersecurity",
			SystemPrompt: `You are a specialist Cybersecurity Agent operating strictly within authorized engagements.
You inspect systems and services for security posture: examining files and processes, probing endpoints, and running security tooling through the shell.
You focus solely on security tasks against targets the operator has authorized. Delegate development and general administration to the appropriate specialist.`,
			AllowedTools: []string{"run_shell_command", "http_fetch", "dns_lookup", "read_file", "list_files", "list_processes"},
		},
		{
			Name: "debugging",
			SystemPrompt: `You are a specialist Debugging Agent.
You diagnose misbehaving software: inspecting running processes, terminating stuck ones, reading source code and logs, and driving debuggers such as gdb through the shell.
You focus solely on debugging running processes and analyzing code or logs for errors. Delegate code modification, builds and system administration to the appropriate specialist.`,
			AllowedTools: []string{"list_processes", "kill_process", "read_file", "list_files", "run_shell_command"},
		},
		{
			Name: "build",
			SystemPrompt: `You are a specialist Build Agent.
You configure, compile and package software: running build systems and compilers through the shell, inspecting and adjusting build files, and managing build artifacts.
You focus solely on configuring, compiling and packaging builds. Delegate detailed coding, debugging and system administration to the appropriate specialist.`,
			AllowedTools: []string{"run_shell_command", "read_file", "write_file", "edit_file", "list_files"},
		},
		{
			Name: "hardware",
			SystemPrompt: `You are a specialist Hardware Agent.
You interact with connected devices: flashing firmware and driving programmers such as esptool or openocd through the shell, and locating firmware and configuration files.
Incorrect flashing commands can damage hardware, so state port names, board configurations and firmware files explicitly. Delegate software builds, coding and network work to the appropriate specialist.`,
			AllowedTools: []string{"run_shell_command", "read_file", "list_files"},
		},
		{
			Name: "remote_ops",
			SystemPrompt: `You are a specialist Remote Operations Agent.
You operate on remote systems: executing commands and transferring files over ssh and scp through the shell, and checking connectivity with ping and name resolution first.
You focus solely on remote interactions and their connectivity diagnostics. Delegate local administration, coding and builds to the appropriate specialist.`,
			AllowedTools: []string{"run_shell_command", "ping_host", "dns_lookup", "read_file", "list_files"},
		},
	}
}

// BuildTeam instantiates the roster plus the controller. Each specialist
// gets its provider from config (falling back to the default agent config)
// through the shared cache.
func BuildTeam(ctx context.Context, cache *llm.Cache, registry *tools.Registry, settings *config.Settings, confirmer Confirmer, store *chat.Store, sessionID string) (*Controller, error) {
	specialists := make(map[string]*Agent)
	for _, spec := range Specialists() {
		agentCfg := settings.AgentFor(spec.Name)
		provider, err := cache.Get(ctx, llm.Config{
			Provider: agentCfg.Provider,
			Model:    agentCfg.Model,
			BaseURL:  agentCfg.BaseURL,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to build specialist '%s'", spec.Name)
		}
		specialists[spec.Name] = New(Options{
			Name:         spec.Name,
			SystemPrompt: spec.SystemPrompt,
			Provider:     provider,
			Registry:     registry,
			AllowedTools: spec.AllowedTools,
			Settings:     settings,
			Confirmer:    confirmer,
			Store:        store,
			SessionID:    sessionID,
		})
	}

	controllerCfg := settings.AgentFor("controller")
	provider, err := cache.Get(ctx, llm.Config{
		Provider: controllerCfg.Provider,
		Model:    controllerCfg.Model,
		BaseURL:  controllerCfg.BaseURL,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build controller")
	}
	return NewController(provider, specialists, settings), nil
}
