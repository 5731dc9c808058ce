package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Dicklesworthstone/shellguard/internal/config"
	"github.com/Dicklesworthstone/shellguard/internal/output"
	"github.com/Dicklesworthstone/shellguard/internal/rules"
)

var (
	flagRuleTable      string
	flagRuleMessage    string
	flagRuleFormat     string
	flagRuleOutputFile string
)

func init() {
	rulesCmd.PersistentFlags().StringVarP(&flagRuleTable, "table", "T", "", "rule table (blocking, suggestions)")

	rulesAddCmd.Flags().StringVarP(&flagRuleMessage, "message", "m", "", "message shown when the rule matches")

	rulesTestCmd.Flags().BoolVar(&flagCheckExitCode, "exit-code", false, "exit 2 if the command would be blocked")

	rulesExportCmd.Flags().StringVarP(&flagRuleFormat, "format", "f", "json", "export format: json, yaml")
	rulesExportCmd.Flags().StringVarP(&flagRuleOutputFile, "output", "o", "", "output file (default: stdout)")

	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesTestCmd)
	rulesCmd.AddCommand(rulesAddCmd)
	rulesCmd.AddCommand(rulesExportCmd)
	rulesCmd.AddCommand(rulesVersionCmd)

	rootCmd.AddCommand(rulesCmd)
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage the command classification rules",
	Long: `Manage the rule tables used to classify shell commands.

Two tables exist:
  blocking     - case-insensitive patterns; the first match denies execution
  suggestions  - case-sensitive patterns; every match adds an advisory hint

Builtin rules are always active. User rules from config are appended after
the builtins and can only make classification stricter, never looser.`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rules grouped by table",
	Long: `List the active rules, builtin and user, grouped by table.

Use --table to show only one table (blocking or suggestions).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := buildEngine(cliLogger())

		tables := map[string][]*rules.Rule{
			"blocking":    engine.BlockingRules(),
			"suggestions": engine.SuggestionRules(),
		}
		if flagRuleTable != "" {
			list, ok := tables[flagRuleTable]
			if !ok {
				return fmt.Errorf("invalid table: %s (must be blocking or suggestions)", flagRuleTable)
			}
			tables = map[string][]*rules.Rule{flagRuleTable: list}
		}

		return outputRules(tables)
	},
}

var rulesTestCmd = &cobra.Command{
	Use:   "test <command>",
	Short: "Classify a command against the rule tables",
	Long: `Classify a command and show the verdict, matched reason, and any
suggestions. Identical to 'shellguard check'.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

var rulesAddCmd = &cobra.Command{
	Use:   "add <pattern>",
	Short: "Add a user rule to the config file",
	Long: `Add a regex rule to the user config (~/.shellguard/config.toml).

The rule takes effect on the next guard invocation. --table selects which
table the rule joins; --message sets the text shown on match. Blocking
messages are rendered as "Security violation: <message>".

Examples:
  shellguard rules add '\bmkfs\b' -T blocking -m "Formatting a filesystem"
  shellguard rules add '\bls\s+-R\b' -T suggestions -m "Use 'tree' instead of 'ls -R'"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pattern := args[0]

		if flagRuleTable == "" {
			return fmt.Errorf("--table is required (blocking or suggestions)")
		}
		if flagRuleMessage == "" {
			return fmt.Errorf("--message is required")
		}

		// Compile-check before persisting so a typo never breaks the guard.
		probe := rules.NewEngine()
		var err error
		switch flagRuleTable {
		case "blocking":
			err = probe.AddBlockingRule(pattern, flagRuleMessage, "config")
		case "suggestions":
			err = probe.AddSuggestionRule(pattern, flagRuleMessage, "config")
		default:
			return fmt.Errorf("invalid table: %s (must be blocking or suggestions)", flagRuleTable)
		}
		if err != nil {
			return fmt.Errorf("invalid rule: %w", err)
		}

		configPath := flagConfig
		if configPath == "" {
			configPath = config.UserConfigPath()
		}
		if configPath == "" {
			return fmt.Errorf("cannot resolve config path")
		}
		if err := config.AppendRule(configPath, flagRuleTable, pattern, flagRuleMessage); err != nil {
			return err
		}

		out := output.New(output.Format(GetOutput()))
		return out.Write(map[string]any{
			"status":      "added",
			"table":       flagRuleTable,
			"pattern":     pattern,
			"message":     flagRuleMessage,
			"config_path": configPath,
		})
	},
}

var rulesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the rule tables for external tools",
	Long: `Export the active rule tables with metadata and a content hash.

Examples:
  shellguard rules export                  # JSON to stdout
  shellguard rules export -f yaml          # YAML to stdout
  shellguard rules export -o rules.json    # JSON to file`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := buildEngine(cliLogger())

		var content string
		switch strings.ToLower(flagRuleFormat) {
		case "json":
			var err error
			content, err = engine.ExportJSON()
			if err != nil {
				return fmt.Errorf("exporting rules: %w", err)
			}
			content += "\n"
		case "yaml":
			var err error
			content, err = exportYAML(engine)
			if err != nil {
				return fmt.Errorf("exporting rules: %w", err)
			}
		default:
			return fmt.Errorf("unknown format: %s (use json or yaml)", flagRuleFormat)
		}

		if flagRuleOutputFile != "" {
			if err := os.WriteFile(flagRuleOutputFile, []byte(content), 0644); err != nil {
				return fmt.Errorf("writing export file: %w", err)
			}
			out := output.New(output.Format(GetOutput()))
			return out.Write(map[string]any{
				"status": "exported",
				"format": flagRuleFormat,
				"file":   flagRuleOutputFile,
				"hash":   engine.ComputeHash(),
			})
		}

		fmt.Print(content)
		return nil
	},
}

var rulesVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show rule-set version and hash",
	Long: `Show the rule-set export version and the SHA256 hash of the active
tables. The hash changes when rules are added, enabling change detection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := buildEngine(cliLogger())
		export := engine.Export()

		out := output.New(output.Format(GetOutput()))
		return out.Write(map[string]any{
			"version":      export.Version,
			"sha256":       export.SHA256,
			"rule_count":   export.Metadata.RuleCount,
			"table_counts": export.Metadata.TableCounts,
		})
	},
}

// exportYAML renders the export through a JSON round-trip so the YAML keys
// match the JSON ones.
func exportYAML(engine *rules.Engine) (string, error) {
	data, err := json.Marshal(engine.Export())
	if err != nil {
		return "", err
	}
	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return "", err
	}
	b, err := yaml.Marshal(normalized)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func outputRules(tables map[string][]*rules.Rule) error {
	if GetOutput() == "json" || GetOutput() == "yaml" {
		result := make(map[string][]ruleJSON)
		for table, list := range tables {
			rlist := make([]ruleJSON, 0, len(list))
			for _, r := range list {
				rlist = append(rlist, ruleJSON{
					Pattern: r.Pattern,
					Message: r.Message,
					Source:  r.Source,
				})
			}
			result[table] = rlist
		}
		out := output.New(output.Format(GetOutput()))
		return out.Write(result)
	}

	for _, table := range []string{"blocking", "suggestions"} {
		list, ok := tables[table]
		if !ok {
			continue
		}
		fmt.Printf("\n%s (%d rules):\n", strings.ToUpper(table), len(list))
		for _, r := range list {
			fmt.Printf("  %s\n", r.Pattern)
			fmt.Printf("    # %s\n", r.Message)
		}
	}
	fmt.Println()
	return nil
}

type ruleJSON struct {
	Pattern string `json:"pattern"`
	Message string `json:"message"`
	Source  string `json:"source,omitempty"`
}
