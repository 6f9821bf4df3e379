// Package config loads the layered configuration for the agent system:
// defaults, then the user-level config file, then the project-level one,
// with selected environment variable overrides on top. API keys are never
// stored here; provider adapters read them from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/travofoz/T-5000/errors"
	"gopkg.in/yaml.v3"
)

// Defaults mirrored by Load when neither config files nor environment
// variables override them.
const (
	DefaultCommandTimeout = 120 // seconds
	DefaultMaxTokens      = 1_000_000
	DefaultWarnTokens     = 800_000
	DefaultStateDir       = ".t5000/state"
)

// DefaultHighRiskTools require interactive confirmation before execution.
var DefaultHighRiskTools = []string{
	"run_shell_command", "kill_process", "edit_file",
}

// FilesystemAccess restricts what the filesystem tools may touch.
// Patterns are doublestar globs.
type FilesystemAccess struct {
	Hidden   []string `yaml:"hidden"`
	ReadOnly []string `yaml:"read_only"`
}

// MCPServer describes an external MCP tool server to launch at startup.
type MCPServer struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// AgentConfig selects the provider backing one agent.
type AgentConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
}

// Settings is the full configuration surface consumed by the core.
type Settings struct {
	Agents           map[string]AgentConfig `yaml:"agents"`
	AllowedCommands  []string               `yaml:"allowed_commands"`
	FilesystemAccess FilesystemAccess       `yaml:"filesystem_access"`
	HighRiskTools    []string               `yaml:"high_risk_tools"`
	CommandTimeout   int                    `yaml:"command_timeout"`
	MaxTokens        int                    `yaml:"max_tokens"`
	WarnTokens       int                    `yaml:"warn_tokens"`
	StateDir         string                 `yaml:"state_dir"`
	MCPServers       []MCPServer            `yaml:"mcp_servers"`
}

// Load builds Settings from defaults, ~/.t5000/config.yaml, the project's
// .t5000/config.yaml and environment overrides, in that order. A .env file
// in the working directory is loaded first so provider API keys and the
// overrides below can live there.
func Load() (*Settings, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Printf("Warning: could not load .env file: %v\n", err)
	}

	cfg := &Settings{
		HighRiskTools:  append([]string(nil), DefaultHighRiskTools...),
		CommandTimeout: DefaultCommandTimeout,
		MaxTokens:      DefaultMaxTokens,
		WarnTokens:     DefaultWarnTokens,
		StateDir:       DefaultStateDir,
	}
	// The state directory itself is always hidden from the filesystem tools.
	cfg.FilesystemAccess.Hidden = append(cfg.FilesystemAccess.Hidden, ".t5000", ".t5000/**")

	if home, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(home, ".t5000", "config.yaml")
		if _, err := os.Stat(userPath); err == nil {
			if err := loadFromFile(userPath, cfg); err != nil {
				return nil, errors.Wrapf(err, "error loading user config")
			}
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	projectPath := filepath.Join(wd, ".t5000", "config.yaml")
	if _, err := os.Stat(projectPath); err == nil {
		if err := loadFromFile(projectPath, cfg); err != nil {
			return nil, errors.Wrapf(err, "error loading project config")
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func loadFromFile(path string, cfg *Settings) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Unmarshal overwrites fields present in the YAML, which gives a simple
	// merge where project-level config replaces user-level.
	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Settings) {
	if v := envInt("MAX_GLOBAL_TOKENS"); v != nil {
		cfg.MaxTokens = *v
	}
	if v := envInt("WARN_TOKEN_THRESHOLD"); v != nil {
		cfg.WarnTokens = *v
	}
	if v := envInt("DEFAULT_COMMAND_TIMEOUT"); v != nil {
		cfg.CommandTimeout = *v
	}
	if v := os.Getenv("AGENT_STATE_DIR"); v != "" {
		cfg.StateDir = v
	}
	if v := os.Getenv("HIGH_RISK_TOOLS"); v != "" {
		var names []string
		for _, n := range strings.Split(v, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
		cfg.HighRiskTools = names
	}
}

func envInt(name string) *int {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Printf("Warning: could not parse %s value %q as integer. Ignoring.\n", name, v)
		return nil
	}
	return &n
}

// IsHighRisk reports whether the named tool requires confirmation.
func (s *Settings) IsHighRisk(toolName string) bool {
	for _, name := range s.HighRiskTools {
		if name == toolName {
			return true
		}
	}
	return false
}

// CommandTimeoutDuration returns the default timeout for external process
// invocations.
func (s *Settings) CommandTimeoutDuration() time.Duration {
	if s.CommandTimeout <= 0 {
		return DefaultCommandTimeout * time.Second
	}
	return time.Duration(s.CommandTimeout) * time.Second
}

// AgentFor returns the provider configuration for the named agent, falling
// back to the "default" entry when no per-agent one exists.
func (s *Settings) AgentFor(name string) AgentConfig {
	if ac, ok := s.Agents[name]; ok {
		return ac
	}
	return s.Agents["default"]
}
