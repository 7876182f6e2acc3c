package state_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"clipmill/internal/state"
)

func TestProcessedSetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.json")

	set, err := state.LoadProcessedSet(path)
	if err != nil {
		t.Fatalf("LoadProcessedSet returned error: %v", err)
	}
	if set.Contains("vid-1") {
		t.Fatal("fresh set should be empty")
	}
	if err := set.Add("vid-1"); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if err := set.Add("vid-2"); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if err := set.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	reloaded, err := state.LoadProcessedSet(path)
	if err != nil {
		t.Fatalf("reload returned error: %v", err)
	}
	defer reloaded.Close()
	if !reloaded.Contains("vid-1") || !reloaded.Contains("vid-2") {
		t.Fatalf("expected persisted ids, got %v", reloaded.IDs())
	}
	if reloaded.Len() != 2 {
		t.Fatalf("expected 2 ids, got %d", reloaded.Len())
	}
}

func TestProcessedSetFileIsJSONArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.json")
	set, err := state.LoadProcessedSet(path)
	if err != nil {
		t.Fatalf("LoadProcessedSet returned error: %v", err)
	}
	defer set.Close()
	if err := set.Add("b"); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if err := set.Add("a"); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read state file: %v", err)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		t.Fatalf("state file is not a JSON array: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("expected sorted ids, got %v", ids)
	}
}

func TestProcessedSetAddDuplicateIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.json")
	set, err := state.LoadProcessedSet(path)
	if err != nil {
		t.Fatalf("LoadProcessedSet returned error: %v", err)
	}
	defer set.Close()
	if err := set.Add("vid"); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if err := set.Add("vid"); err != nil {
		t.Fatalf("duplicate Add returned error: %v", err)
	}
	if set.Len() != 1 {
		t.Fatalf("expected 1 id, got %d", set.Len())
	}
}

func TestProcessedSetRejectsSecondProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.json")
	first, err := state.LoadProcessedSet(path)
	if err != nil {
		t.Fatalf("LoadProcessedSet returned error: %v", err)
	}
	defer first.Close()

	if _, err := state.LoadProcessedSet(path); err == nil {
		t.Fatal("expected lock contention error for second open")
	}
}
