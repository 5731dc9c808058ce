package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// newTestRulesCmd creates a fresh rules command tree for testing.
func newTestRulesCmd(t *testing.T) *cobra.Command {
	root := newTestRoot(t)

	rCmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage the command classification rules",
	}
	rCmd.PersistentFlags().StringVarP(&flagRuleTable, "table", "T", "", "rule table")

	listCmd := &cobra.Command{
		Use:  "list",
		RunE: rulesListCmd.RunE,
	}

	addCmd := &cobra.Command{
		Use:  "add <pattern>",
		Args: cobra.ExactArgs(1),
		RunE: rulesAddCmd.RunE,
	}
	addCmd.Flags().StringVarP(&flagRuleMessage, "message", "m", "", "message")

	exportCmd := &cobra.Command{
		Use:  "export",
		RunE: rulesExportCmd.RunE,
	}
	exportCmd.Flags().StringVarP(&flagRuleFormat, "format", "f", "json", "export format")
	exportCmd.Flags().StringVarP(&flagRuleOutputFile, "output", "o", "", "output file")

	versionCmd := &cobra.Command{
		Use:  "version",
		RunE: rulesVersionCmd.RunE,
	}

	rCmd.AddCommand(listCmd, addCmd, exportCmd, versionCmd)
	root.AddCommand(rCmd)

	return root
}

func resetRulesFlags() {
	resetRootFlags()
	flagRuleTable = ""
	flagRuleMessage = ""
	flagRuleFormat = "json"
	flagRuleOutputFile = ""
}

func TestRulesListCommand_ListsBothTables(t *testing.T) {
	resetRulesFlags()
	root := newTestRulesCmd(t)

	stdout, err := executeCommandCapture(t, root, "rules", "list", "-j")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string][]map[string]any
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nstdout: %s", err, stdout)
	}
	if len(result["blocking"]) < 8 {
		t.Errorf("expected at least 8 blocking rules, got %d", len(result["blocking"]))
	}
	if len(result["suggestions"]) != 3 {
		t.Errorf("expected 3 builtin suggestion rules, got %d", len(result["suggestions"]))
	}
}

func TestRulesListCommand_FilterByTable(t *testing.T) {
	resetRulesFlags()
	root := newTestRulesCmd(t)

	stdout, err := executeCommandCapture(t, root, "rules", "list", "-T", "suggestions", "-j")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string][]map[string]any
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nstdout: %s", err, stdout)
	}
	if len(result) != 1 {
		t.Errorf("expected only the suggestions table, got %d tables", len(result))
	}
	if _, ok := result["suggestions"]; !ok {
		t.Error("expected suggestions table in result")
	}
}

func TestRulesListCommand_InvalidTable(t *testing.T) {
	resetRulesFlags()
	root := newTestRulesCmd(t)

	_, err := executeCommandCapture(t, root, "rules", "list", "-T", "warnings", "-j")
	if err == nil {
		t.Fatal("expected error for invalid table")
	}
	if !strings.Contains(err.Error(), "invalid table") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRulesAddCommand_RequiresTableAndMessage(t *testing.T) {
	resetRulesFlags()
	root := newTestRulesCmd(t)

	_, err := executeCommandCapture(t, root, "rules", "add", `\bmkfs\b`)
	if err == nil || !strings.Contains(err.Error(), "--table is required") {
		t.Fatalf("expected table requirement error, got %v", err)
	}

	resetRulesFlags()
	root = newTestRulesCmd(t)
	_, err = executeCommandCapture(t, root, "rules", "add", `\bmkfs\b`, "-T", "blocking")
	if err == nil || !strings.Contains(err.Error(), "--message is required") {
		t.Fatalf("expected message requirement error, got %v", err)
	}
}

func TestRulesAddCommand_RejectsInvalidPattern(t *testing.T) {
	resetRulesFlags()
	root := newTestRulesCmd(t)

	_, err := executeCommandCapture(t, root, "rules", "add", "[unclosed",
		"-T", "blocking", "-m", "broken")
	if err == nil || !strings.Contains(err.Error(), "invalid rule") {
		t.Fatalf("expected invalid rule error, got %v", err)
	}
}

func TestRulesAddCommand_PersistsToConfigFile(t *testing.T) {
	resetRulesFlags()
	root := newTestRulesCmd(t)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	stdout, err := executeCommandCapture(t, root, "rules", "add", `\bmkfs\b`,
		"-T", "blocking", "-m", "Formatting a filesystem",
		"-c", configPath, "-j")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nstdout: %s", err, stdout)
	}
	if result["status"] != "added" {
		t.Errorf("expected status=added, got %v", result["status"])
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if !strings.Contains(string(data), `mkfs`) {
		t.Errorf("config file missing pattern:\n%s", data)
	}
	if !strings.Contains(string(data), "Formatting a filesystem") {
		t.Errorf("config file missing message:\n%s", data)
	}
}

func TestRulesExportCommand_JSON(t *testing.T) {
	resetRulesFlags()
	root := newTestRulesCmd(t)

	stdout, err := executeCommandCapture(t, root, "rules", "export")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var export map[string]any
	if err := json.Unmarshal([]byte(stdout), &export); err != nil {
		t.Fatalf("failed to parse JSON: %v\nstdout: %s", err, stdout)
	}
	if export["version"] != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %v", export["version"])
	}
	if _, ok := export["sha256"].(string); !ok {
		t.Error("expected sha256 field")
	}
	tables, ok := export["tables"].(map[string]any)
	if !ok {
		t.Fatalf("expected tables object, got %v", export["tables"])
	}
	if _, ok := tables["blocking"]; !ok {
		t.Error("expected blocking table in export")
	}
}

func TestRulesExportCommand_ToFile(t *testing.T) {
	resetRulesFlags()
	root := newTestRulesCmd(t)

	exportPath := filepath.Join(t.TempDir(), "rules.json")
	stdout, err := executeCommandCapture(t, root, "rules", "export", "-o", exportPath, "-j")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nstdout: %s", err, stdout)
	}
	if result["status"] != "exported" {
		t.Errorf("expected status=exported, got %v", result["status"])
	}

	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("export file not written: %v", err)
	}
	var export map[string]any
	if err := json.Unmarshal(data, &export); err != nil {
		t.Fatalf("export file is not valid JSON: %v", err)
	}
}

func TestRulesVersionCommand(t *testing.T) {
	resetRulesFlags()
	root := newTestRulesCmd(t)

	stdout, err := executeCommandCapture(t, root, "rules", "version", "-j")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nstdout: %s", err, stdout)
	}
	if result["version"] != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %v", result["version"])
	}
	if _, ok := result["sha256"].(string); !ok {
		t.Error("expected sha256 field")
	}
}
