// Package cli implements the Cobra command-line interface for shellguard.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/shellguard/internal/audit"
	"github.com/Dicklesworthstone/shellguard/internal/config"
	"github.com/Dicklesworthstone/shellguard/internal/output"
	"github.com/Dicklesworthstone/shellguard/internal/rules"
)

// Version information set by goreleaser
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flag values
var (
	flagConfig  string
	flagOutput  string
	flagJSON    bool
	flagVerbose bool
	flagDB      string
)

var rootCmd = &cobra.Command{
	Use:   "shellguard",
	Short: "Pre-execution guard for agent shell commands",
	Long: `Shellguard vets shell commands before an automated agent runs them.

It is wired into the agent as a PreToolUse hook: before each run_shell tool
call, the agent pipes the proposed command to 'shellguard hook', which either
blocks it, allows it with improvement suggestions, or stays silent.

Commands are checked against two rule tables:
  blocking     - dangerous commands (rm -rf /, curl | sh, ...) are denied
  suggestions  - working but improvable commands get advisory hints

Quick start:
  shellguard hook install              # wire into the agent
  shellguard check "sudo rm -rf /"     # classify a command by hand
  shellguard rules list                # show the active rule tables`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := flagConfig
		if configPath == "" {
			configPath = config.UserConfigPath()
		}

		payload := map[string]any{
			"version":     version,
			"commit":      commit,
			"build_date":  date,
			"go_version":  runtime.Version(),
			"config_path": configPath,
			"db_path":     GetDB(),
		}

		switch GetOutput() {
		case "json", "yaml":
			out := output.New(output.Format(GetOutput()))
			return out.Write(payload)
		case "text":
			fmt.Printf("shellguard %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
			fmt.Printf("  go:     %s\n", runtime.Version())
			fmt.Printf("  config: %s\n", configPath)
			fmt.Printf("  db:     %s\n", GetDB())
			return nil
		default:
			return fmt.Errorf("unsupported format: %s", GetOutput())
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetOutput returns the configured output format.
// Precedence: CLI flags > SHELLGUARD_OUTPUT_FORMAT env > default
func GetOutput() string {
	if flagJSON {
		return "json"
	}
	if flagOutput != "text" {
		return flagOutput
	}

	if envFormat := os.Getenv("SHELLGUARD_OUTPUT_FORMAT"); envFormat != "" {
		switch envFormat {
		case "json", "yaml", "text":
			return envFormat
		}
	}

	return flagOutput
}

// GetDB returns the decision store path.
func GetDB() string {
	if flagDB != "" {
		return flagDB
	}
	return audit.DefaultPath()
}

// cliLogger returns the logger used by management commands. It writes to
// stderr at warn level, or debug when --verbose is set.
func cliLogger() *log.Logger {
	level := log.WarnLevel
	if flagVerbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:  level,
		Prefix: "shellguard",
	})
}

// guardLogger returns the logger used on the hook path. Stderr belongs to
// the verdict contract there, so diagnostics are discarded unless --verbose.
func guardLogger() *log.Logger {
	if flagVerbose {
		return log.NewWithOptions(os.Stderr, log.Options{
			Level:  log.DebugLevel,
			Prefix: "shellguard",
		})
	}
	return log.New(io.Discard)
}

// loadConfig loads the layered configuration for the current invocation.
func loadConfig() (*config.Config, error) {
	cwd, _ := os.Getwd()
	return config.Load(config.LoadOptions{
		ConfigFile: flagConfig,
		ProjectDir: cwd,
	})
}

// buildEngine creates a rules engine with builtin tables plus any user rules
// from configuration. A broken config falls back to builtins only.
func buildEngine(logger *log.Logger) *rules.Engine {
	engine := rules.NewEngine()
	cfg, err := loadConfig()
	if err != nil {
		logger.Warn("config unavailable, using builtin rules only", "error", err)
		return engine
	}
	config.ApplyRules(cfg, engine, logger)
	return engine
}

// projectConfigPath returns the project-level config file path.
func projectConfigPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, ".shellguard", "config.toml")
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "text", "output format: text, json, yaml (env: SHELLGUARD_OUTPUT_FORMAT)")
	rootCmd.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "shorthand for --output=json")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "decision store path")

	rootCmd.AddCommand(versionCmd)
}
