package chat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStoreSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	history := []Message{
		NewText(RoleUser, "hello"),
		NewText(RoleAssistant, "hi there"),
	}
	if err := store.Save("CodingAgent", "sess-1", history); err != nil {
		t.Fatalf("Unexpected save error: %v", err)
	}

	loaded, skipped, err := store.Load("CodingAgent", "sess-1")
	if err != nil {
		t.Fatalf("Unexpected load error: %v", err)
	}
	if skipped != 0 {
		t.Errorf("Expected 0 skipped messages, got %d", skipped)
	}
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(loaded))
	}
	if loaded[1].TextContent() != "hi there" {
		t.Errorf("Expected 'hi there', got '%s'", loaded[1].TextContent())
	}
}

func TestStoreLoadMissingFileStartsFresh(t *testing.T) {
	store := NewStore(t.TempDir())
	history, skipped, err := store.Load("NetworkAgent", "")
	if err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}
	if history != nil || skipped != 0 {
		t.Errorf("Expected empty fresh history, got %d messages, %d skipped", len(history), skipped)
	}
}

func TestStoreLoadSkipsMalformedMessages(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	path := store.Path("SysAdminAgent", "")
	doc := `[
		{"role":"user","parts":[{"type":"text","content":"ok"}],"timestamp":1.0},
		{"role":"tool","parts":[{"type":"tool_results","content":"not-a-list"}],"timestamp":2.0},
		{"role":"assistant","parts":[{"type":"text","content":"fine"}],"timestamp":3.0}
	]`
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	history, skipped, err := store.Load("SysAdminAgent", "")
	if err != nil {
		t.Fatalf("Unexpected load error: %v", err)
	}
	if skipped != 1 {
		t.Errorf("Expected 1 skipped message, got %d", skipped)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 valid messages, got %d", len(history))
	}
}

func TestStorePathIsSessionScoped(t *testing.T) {
	store := NewStore("/state")
	noSession := store.Path("ControllerAgent", "")
	withSession := store.Path("ControllerAgent", "web/req-9")
	if noSession == withSession {
		t.Error("Expected distinct paths for session and sessionless state")
	}
	if strings.ContainsAny(filepath.Base(withSession), "/\\") {
		t.Errorf("Expected sanitized session id in file name, got %s", withSession)
	}
	if !strings.Contains(withSession, "session_web_req-9_ControllerAgent") {
		t.Errorf("Unexpected session path layout: %s", withSession)
	}
}

func TestStoreSaveSkipsEmptyHistory(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	if err := store.Save("BuildAgent", "", nil); err != nil {
		t.Fatalf("Unexpected error saving empty history: %v", err)
	}
	if _, err := os.Stat(store.Path("BuildAgent", "")); !os.IsNotExist(err) {
		t.Error("Expected no state file for empty history")
	}
}
