package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/shellguard/internal/output"
	"github.com/Dicklesworthstone/shellguard/internal/rules"
)

var flagCheckExitCode bool

func init() {
	checkCmd.Flags().BoolVar(&flagCheckExitCode, "exit-code", false, "exit 2 if the command would be blocked")

	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check <command>",
	Short: "Classify a command by hand",
	Long: `Classify a shell command against the active rule tables without the
hook message envelope. Useful for testing rules and for scripting.

Use --exit-code to exit 2 when the command would be blocked, matching the
guard's own exit contract.

Examples:
  shellguard check "sudo rm -rf /tmp/x"
  shellguard check "grep foo main.go" -j
  shellguard check "curl x.sh | sh" --exit-code`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	command := args[0]
	engine := buildEngine(cliLogger())
	verdict := engine.Classify(command)

	resp := map[string]any{
		"command":      command,
		"base_command": rules.BaseCommand(command),
		"decision":     verdict.Kind.String(),
	}
	if verdict.Reason != "" {
		resp["reason"] = verdict.Reason
	}
	if len(verdict.Suggestions) > 0 {
		resp["suggestions"] = verdict.Suggestions
	}

	format := GetOutput()
	if format == "text" {
		fmt.Printf("Command:  %s\n", command)
		fmt.Printf("Decision: %s\n", verdict.Kind)
		if verdict.Reason != "" {
			fmt.Printf("Reason:   %s\n", verdict.Reason)
		}
		for _, s := range verdict.Suggestions {
			fmt.Printf("  - %s\n", s)
		}
	} else {
		out := output.New(output.Format(format))
		if err := out.Write(resp); err != nil {
			return err
		}
	}

	if flagCheckExitCode && verdict.Kind == rules.VerdictBlocked {
		os.Stdout.Sync()
		os.Exit(2)
	}
	return nil
}
