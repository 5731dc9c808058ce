package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"testing"

	"github.com/spf13/cobra"
)

// executeCommand runs a command tree capturing cobra's own out/err streams.
func executeCommand(root *cobra.Command, args ...string) (stdout string, stderr string, err error) {
	stdoutBuf := new(bytes.Buffer)
	stderrBuf := new(bytes.Buffer)

	root.SetOut(stdoutBuf)
	root.SetErr(stderrBuf)
	root.SetArgs(args)

	err = root.Execute()

	return stdoutBuf.String(), stderrBuf.String(), err
}

// captureStdout captures writes to the real os.Stdout while fn runs.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

// executeCommandCapture runs a command and captures actual stdout.
func executeCommandCapture(t *testing.T, root *cobra.Command, args ...string) (stdout string, err error) {
	t.Helper()

	root.SetArgs(args)

	stdout = captureStdout(t, func() {
		err = root.Execute()
	})

	return stdout, err
}

// newTestRoot creates a fresh root command for testing (avoids state pollution).
func newTestRoot(t *testing.T) *cobra.Command {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	root := &cobra.Command{
		Use:           "shellguard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file path")
	root.PersistentFlags().StringVarP(&flagOutput, "output", "o", "text", "output format")
	root.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "shorthand for --output=json")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "decision store path")

	return root
}

func resetRootFlags() {
	flagConfig = ""
	flagOutput = "text"
	flagJSON = false
	flagVerbose = false
	flagDB = ""
}

func TestVersionCommand_JSON(t *testing.T) {
	resetRootFlags()
	root := newTestRoot(t)

	cmd := &cobra.Command{Use: "version", RunE: versionCmd.RunE}
	root.AddCommand(cmd)

	stdout, err := executeCommandCapture(t, root, "version", "-j")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nstdout: %s", err, stdout)
	}
	if result["version"] != "dev" {
		t.Errorf("expected version=dev, got %v", result["version"])
	}
	if _, ok := result["go_version"]; !ok {
		t.Error("expected go_version field")
	}
}

func TestGetOutput_FlagPrecedence(t *testing.T) {
	resetRootFlags()
	t.Setenv("SHELLGUARD_OUTPUT_FORMAT", "yaml")

	// Env applies when flags are at defaults.
	if got := GetOutput(); got != "yaml" {
		t.Errorf("expected yaml from env, got %s", got)
	}

	// The --json shorthand wins over env.
	flagJSON = true
	if got := GetOutput(); got != "json" {
		t.Errorf("expected json from flag, got %s", got)
	}

	// An explicit --output wins too.
	flagJSON = false
	flagOutput = "json"
	if got := GetOutput(); got != "json" {
		t.Errorf("expected json from --output, got %s", got)
	}
	resetRootFlags()
}

func TestGetOutput_IgnoresInvalidEnv(t *testing.T) {
	resetRootFlags()
	t.Setenv("SHELLGUARD_OUTPUT_FORMAT", "xml")

	if got := GetOutput(); got != "text" {
		t.Errorf("expected text default for invalid env format, got %s", got)
	}
}

func TestGetDB_FlagWins(t *testing.T) {
	resetRootFlags()
	flagDB = "/tmp/custom.db"
	if got := GetDB(); got != "/tmp/custom.db" {
		t.Errorf("expected flag path, got %s", got)
	}
	resetRootFlags()
}
