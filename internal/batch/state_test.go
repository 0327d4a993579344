package batch

import (
	"os"
	"path/filepath"
	"testing"
)

func TestState_SaveAndReload(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")

	s, err := LoadState(statePath)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	s.MarkProcessed("msg-1")
	s.MarkProcessed("msg-2")
	s.Analysed = 2
	s.ScamsFound = 1
	s.Evidence["HIGH"] = 1

	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := LoadState(statePath)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !got.IsProcessed("msg-1") || !got.IsProcessed("msg-2") {
		t.Errorf("processed ids lost: %v", got.Processed)
	}
	if got.ScamsFound != 1 || got.Evidence["HIGH"] != 1 {
		t.Errorf("counts lost: scams=%d evidence=%v", got.ScamsFound, got.Evidence)
	}
	if got.LastProcessedAt.IsZero() {
		t.Error("LastProcessedAt not set")
	}
}

func TestState_IsProcessed(t *testing.T) {
	s := &State{}

	if s.IsProcessed("msg-1") {
		t.Error("msg-1 should not be processed yet")
	}

	s.MarkProcessed("msg-1")
	s.MarkProcessed("msg-1")

	if !s.IsProcessed("msg-1") {
		t.Error("msg-1 should be processed")
	}
	if s.IsProcessed("msg-2") {
		t.Error("msg-2 should not be processed")
	}
	if len(s.Processed) != 1 {
		t.Errorf("duplicate mark recorded twice: %v", s.Processed)
	}
}

func TestState_AddError(t *testing.T) {
	s := &State{}
	s.AddError("something went wrong")
	s.AddError("another error")

	if len(s.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(s.Errors))
	}
	if s.Errors[0] != "something went wrong" {
		t.Errorf("error[0] = %q", s.Errors[0])
	}
}

func TestState_SaveCreatesDirectories(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "nested", "dir", "state.json")

	s := &State{path: statePath}
	if err := s.Save(); err != nil {
		t.Fatalf("Save with nested dir failed: %v", err)
	}
	if _, err := os.Stat(statePath); err != nil {
		t.Fatalf("state file not created in nested dir: %v", err)
	}
}

func TestLoadState_Corrupt(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(statePath, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadState(statePath); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}

	got := expandHome("~/test/path")
	want := filepath.Join(home, "test/path")
	if got != want {
		t.Errorf("expandHome(~/test/path) = %q, want %q", got, want)
	}

	got = expandHome("/absolute/path")
	if got != "/absolute/path" {
		t.Errorf("expandHome(/absolute/path) = %q", got)
	}
}
