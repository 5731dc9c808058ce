package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func newTestCheckCmd(t *testing.T) *cobra.Command {
	root := newTestRoot(t)

	cmd := &cobra.Command{
		Use:  "check <command>",
		Args: cobra.ExactArgs(1),
		RunE: runCheck,
	}
	root.AddCommand(cmd)
	return root
}

func TestCheckCommand_Blocked(t *testing.T) {
	resetRootFlags()
	root := newTestCheckCmd(t)

	stdout, err := executeCommandCapture(t, root, "check", "sudo rm -rf /tmp/x", "-j")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nstdout: %s", err, stdout)
	}
	if result["decision"] != "blocked" {
		t.Errorf("expected decision=blocked, got %v", result["decision"])
	}
	if result["base_command"] != "sudo" {
		t.Errorf("expected base_command=sudo, got %v", result["base_command"])
	}
	reason, _ := result["reason"].(string)
	if !strings.HasPrefix(reason, "Security violation: ") {
		t.Errorf("expected Security violation reason, got %q", reason)
	}
}

func TestCheckCommand_Suggestions(t *testing.T) {
	resetRootFlags()
	root := newTestCheckCmd(t)

	stdout, err := executeCommandCapture(t, root, "check", "grep TODO main.go", "-j")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nstdout: %s", err, stdout)
	}
	if result["decision"] != "allowed_with_suggestions" {
		t.Errorf("expected decision=allowed_with_suggestions, got %v", result["decision"])
	}
	suggestions, ok := result["suggestions"].([]any)
	if !ok || len(suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %v", result["suggestions"])
	}
	if !strings.Contains(suggestions[0].(string), "ripgrep") {
		t.Errorf("unexpected suggestion: %v", suggestions[0])
	}
}

func TestCheckCommand_AllowedSilently(t *testing.T) {
	resetRootFlags()
	root := newTestCheckCmd(t)

	stdout, err := executeCommandCapture(t, root, "check", "ls -la", "-j")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nstdout: %s", err, stdout)
	}
	if result["decision"] != "allowed" {
		t.Errorf("expected decision=allowed, got %v", result["decision"])
	}
	if _, ok := result["reason"]; ok {
		t.Error("expected no reason for a silent allow")
	}
	if _, ok := result["suggestions"]; ok {
		t.Error("expected no suggestions for a silent allow")
	}
}

func TestCheckCommand_RequiresArgument(t *testing.T) {
	resetRootFlags()
	root := newTestCheckCmd(t)

	_, _, err := executeCommand(root, "check")
	if err == nil {
		t.Fatal("expected error when command is missing")
	}
	if !strings.Contains(err.Error(), "accepts 1 arg") {
		t.Errorf("unexpected error: %v", err)
	}
}
