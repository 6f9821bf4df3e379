package agent

import (
	"testing"

	"github.com/travofoz/T-5000/config"
	"github.com/travofoz/T-5000/tools"
)

func TestSpecialistRoster(t *testing.T) {
	want := []string{
		"coding", "sysadmin", "network", "cybersecurity",
		"debugging", "build", "hardware", "remote_ops",
	}
	roster := Specialists()
	if len(roster) != len(want) {
		t.Fatalf("Expected %d specialists, got %d", len(want), len(roster))
	}
	for i, spec := range roster {
		if spec.Name != want[i] {
			t.Errorf("Expected specialist %d to be '%s', got '%s'", i, want[i], spec.Name)
		}
		if spec.SystemPrompt == "" {
			t.Errorf("Expected specialist '%s' to carry a system prompt", spec.Name)
		}
		if len(spec.AllowedTools) == 0 {
			t.Errorf("Expected specialist '%s' to carry tool grants", spec.Name)
		}
	}
}

func TestSpecialistGrantsResolveAgainstBuiltins(t *testing.T) {
	b := tools.NewBuilder()
	tools.RegisterBuiltins(b, &config.Settings{})
	registry := b.Snapshot()

	for _, spec := range Specialists() {
		for _, name := range spec.AllowedTools {
			if _, ok := registry.Lookup(name); !ok {
				t.Errorf("Specialist '%s' grants unknown tool '%s'", spec.Name, name)
			}
		}
	}
}
