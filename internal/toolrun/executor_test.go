package toolrun_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"clipmill/internal/toolrun"
)

func TestRunStreamsOutput(t *testing.T) {
	var lines []string
	exec := toolrun.CommandExecutor{}
	err := exec.Run(context.Background(), "sh", []string{"-c", "echo one; echo two"}, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(lines) != 2 || lines[0] != "one" || lines[1] != "two" {
		t.Fatalf("unexpected output lines: %v", lines)
	}
}

func TestRunFailureIncludesOutputTail(t *testing.T) {
	exec := toolrun.CommandExecutor{}
	err := exec.Run(context.Background(), "sh", []string{"-c", "echo kaboom >&2; exit 3"}, nil)
	if err == nil {
		t.Fatal("expected error for failing command")
	}
	if !strings.Contains(err.Error(), "kaboom") {
		t.Fatalf("expected stderr tail in error, got %v", err)
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	exec := toolrun.CommandExecutor{}
	start := time.Now()
	err := exec.Run(ctx, "sh", []string{"-c", "sleep 5"}, nil)
	if err == nil {
		t.Fatal("expected error from cancelled command")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("cancellation did not terminate the process promptly")
	}
}
