package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/shellguard/internal/audit"
	"github.com/Dicklesworthstone/shellguard/internal/config"
	"github.com/Dicklesworthstone/shellguard/internal/hook"
	"github.com/Dicklesworthstone/shellguard/internal/output"
	"github.com/Dicklesworthstone/shellguard/internal/rules"
)

var (
	flagHookGlobal bool
	flagHookLocal  bool
	flagHookForce  bool
)

func init() {
	hookInstallCmd.Flags().BoolVarP(&flagHookGlobal, "global", "g", false, "install into user-level settings (~/.agenticode/settings.json)")
	hookInstallCmd.Flags().BoolVarP(&flagHookLocal, "local", "l", false, "install into project-local settings (.agenticode/settings.local.json)")
	hookInstallCmd.Flags().BoolVarP(&flagHookForce, "force", "f", false, "overwrite an existing guard entry")

	hookCmd.AddCommand(hookInstallCmd)
	hookCmd.AddCommand(hookUninstallCmd)
	hookCmd.AddCommand(hookStatusCmd)

	rootCmd.AddCommand(hookCmd)
}

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Run the guard or manage its agent integration",
	Long: `Run the pre-execution guard, or manage its installation in the agent.

Invoked bare, 'shellguard hook' reads one JSON tool-call message from stdin
and renders a verdict:

  exit 0  allowed (silently, or with suggestion lines on stderr)
  exit 1  stdin was not valid JSON
  exit 2  blocked, with "Security violation: ..." on stderr

The agent invokes this automatically once installed. Subcommands:
  shellguard hook install    # add the guard to the agent settings
  shellguard hook status     # show where the guard is configured
  shellguard hook uninstall  # remove the guard from all settings files`,
	RunE: runHookGuard,
}

var hookInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the guard into agent settings",
	Long: `Register 'shellguard hook' as a PreToolUse hook for run_shell calls.

By default the hook is written to the project settings file
(.agenticode/settings.json). Use --local for the git-ignored local override,
or --global for user-level settings applying to every project.

Existing entries for other hooks are preserved.`,
	RunE: runHookInstall,
}

var hookUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the guard from agent settings",
	Long: `Remove the shellguard entry from every agent settings file where it
appears. Other hooks are left untouched.`,
	RunE: runHookUninstall,
}

var hookStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show guard installation status",
	Long: `Show which agent settings files reference the guard, plus the hash of
the active rule tables. The hash changes when rules are added, which is how
you tell whether a long-running agent still matches your configuration.`,
	RunE: runHookStatus,
}

func runHookGuard(cmd *cobra.Command, args []string) error {
	logger := guardLogger()

	engine := rules.NewEngine()
	cfg, err := loadConfig()
	if err != nil {
		logger.Warn("config unavailable, using builtin rules only", "error", err)
		cfg = config.DefaultConfig()
	} else {
		config.ApplyRules(cfg, engine, logger)
	}

	opts := []hook.Option{hook.WithLogger(logger)}

	var store *audit.Store
	if cfg.Audit.Enabled {
		path := flagDB
		if path == "" {
			path = cfg.Audit.Path
		}
		if path == "" {
			path = audit.DefaultPath()
		}
		store, err = audit.Open(path)
		if err != nil {
			logger.Warn("audit store unavailable", "path", path, "error", err)
		} else {
			opts = append(opts, hook.WithRecorder(audit.NewRecorder(store, logger)))
		}
	}

	res := hook.New(engine, opts...).Run()

	if store != nil {
		if err := store.Close(); err != nil {
			logger.Warn("closing audit store", "error", err)
		}
	}

	if code := res.Outcome.ExitCode(); code != 0 {
		os.Exit(code)
	}
	return nil
}

// settingsSearchPaths returns the agent settings files in precedence order:
// project-local override, project settings, user-level settings.
func settingsSearchPaths() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths,
			filepath.Join(cwd, ".agenticode", "settings.local.json"),
			filepath.Join(cwd, ".agenticode", "settings.json"),
		)
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".agenticode", "settings.json"))
	}
	return paths
}

// guardCommand returns the command string registered in agent settings.
func guardCommand() string {
	exe, err := os.Executable()
	if err != nil {
		return "shellguard hook"
	}
	return exe + " hook"
}

// isGuardCommand reports whether a configured hook command is ours.
func isGuardCommand(command string) bool {
	if command == guardCommand() {
		return true
	}
	return strings.Contains(command, "shellguard") && strings.HasSuffix(command, " hook")
}

func runHookInstall(cmd *cobra.Command, args []string) error {
	var settingsPath string
	switch {
	case flagHookGlobal:
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving home directory: %w", err)
		}
		settingsPath = filepath.Join(home, ".agenticode", "settings.json")
	case flagHookLocal:
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
		settingsPath = filepath.Join(cwd, ".agenticode", "settings.local.json")
	default:
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
		settingsPath = filepath.Join(cwd, ".agenticode", "settings.json")
	}

	settings := make(map[string]any)
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("reading settings: %w", err)
		}
	} else if err := json.Unmarshal(data, &settings); err != nil {
		return fmt.Errorf("parsing settings: %w", err)
	}

	guardEntry := map[string]any{
		"matcher": hook.ShellToolName,
		"hooks": []any{
			map[string]any{
				"type":    "command",
				"command": guardCommand(),
			},
		},
	}

	hooks, ok := settings["hooks"].(map[string]any)
	if !ok {
		hooks = make(map[string]any)
	}
	preToolUse, ok := hooks["PreToolUse"].([]any)
	if !ok {
		preToolUse = []any{}
	}

	found := false
	for i, entry := range preToolUse {
		if entryGuardCommand(entry) == "" {
			continue
		}
		found = true
		if flagHookForce {
			preToolUse[i] = guardEntry
		}
		break
	}
	if !found {
		preToolUse = append(preToolUse, guardEntry)
	}

	hooks["PreToolUse"] = preToolUse
	settings["hooks"] = hooks

	if err := os.MkdirAll(filepath.Dir(settingsPath), 0755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}
	newData, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}
	if err := os.WriteFile(settingsPath, newData, 0644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}

	out := output.New(output.Format(GetOutput()))
	return out.Write(map[string]any{
		"status":          "installed",
		"settings_path":   settingsPath,
		"command":         guardCommand(),
		"already_existed": found && !flagHookForce,
	})
}

func runHookUninstall(cmd *cobra.Command, args []string) error {
	var removedFrom []string

	for _, settingsPath := range settingsSearchPaths() {
		data, err := os.ReadFile(settingsPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("reading %s: %w", settingsPath, err)
		}

		var settings map[string]any
		if err := json.Unmarshal(data, &settings); err != nil {
			return fmt.Errorf("parsing %s: %w", settingsPath, err)
		}

		hooks, ok := settings["hooks"].(map[string]any)
		if !ok {
			continue
		}
		preToolUse, ok := hooks["PreToolUse"].([]any)
		if !ok {
			continue
		}

		filtered := make([]any, 0, len(preToolUse))
		removed := false
		for _, entry := range preToolUse {
			if entryGuardCommand(entry) != "" {
				removed = true
				continue
			}
			filtered = append(filtered, entry)
		}
		if !removed {
			continue
		}

		hooks["PreToolUse"] = filtered
		settings["hooks"] = hooks

		newData, err := json.MarshalIndent(settings, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling settings: %w", err)
		}
		if err := os.WriteFile(settingsPath, newData, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", settingsPath, err)
		}
		removedFrom = append(removedFrom, settingsPath)
	}

	out := output.New(output.Format(GetOutput()))
	if len(removedFrom) == 0 {
		return out.Write(map[string]any{
			"status":  "not_installed",
			"message": "no settings file references the guard",
		})
	}
	return out.Write(map[string]any{
		"status":       "uninstalled",
		"removed_from": removedFrom,
	})
}

func runHookStatus(cmd *cobra.Command, args []string) error {
	engine := buildEngine(cliLogger())
	export := engine.Export()

	files := make([]map[string]any, 0, 3)
	installed := false
	for _, settingsPath := range settingsSearchPaths() {
		entry := map[string]any{
			"path":       settingsPath,
			"exists":     false,
			"configured": false,
		}
		if data, err := os.ReadFile(settingsPath); err == nil {
			entry["exists"] = true
			var settings map[string]any
			if err := json.Unmarshal(data, &settings); err == nil {
				if gc := settingsGuardCommand(settings); gc != "" {
					entry["configured"] = true
					entry["command"] = gc
					installed = true
				}
			}
		}
		files = append(files, entry)
	}

	status := "not_installed"
	if installed {
		status = "installed"
	}

	out := output.New(output.Format(GetOutput()))
	return out.Write(map[string]any{
		"status":     status,
		"files":      files,
		"rules_hash": export.SHA256,
		"rule_count": export.Metadata.RuleCount,
	})
}

// entryGuardCommand returns the guard command string of a PreToolUse entry,
// or "" if the entry belongs to some other hook.
func entryGuardCommand(entry any) string {
	h, ok := entry.(map[string]any)
	if !ok {
		return ""
	}
	matcher, _ := h["matcher"].(string)
	if matcher != hook.ShellToolName {
		return ""
	}
	hookList, ok := h["hooks"].([]any)
	if !ok {
		return ""
	}
	for _, hk := range hookList {
		hkMap, ok := hk.(map[string]any)
		if !ok {
			continue
		}
		if command, ok := hkMap["command"].(string); ok && isGuardCommand(command) {
			return command
		}
	}
	return ""
}

// settingsGuardCommand finds the guard command in a parsed settings document.
func settingsGuardCommand(settings map[string]any) string {
	hooks, ok := settings["hooks"].(map[string]any)
	if !ok {
		return ""
	}
	preToolUse, ok := hooks["PreToolUse"].([]any)
	if !ok {
		return ""
	}
	for _, entry := range preToolUse {
		if command := entryGuardCommand(entry); command != "" {
			return command
		}
	}
	return ""
}
