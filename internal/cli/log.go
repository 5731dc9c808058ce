package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/shellguard/internal/audit"
	"github.com/Dicklesworthstone/shellguard/internal/output"
)

var flagLogLimit int

func init() {
	logCmd.Flags().IntVarP(&flagLogLimit, "limit", "n", 20, "number of decisions to show")

	rootCmd.AddCommand(logCmd)
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent guard decisions",
	Long: `Show the most recent decisions from the audit store, newest first.

Only classified invocations are recorded; pass-throughs for other tools and
malformed input never reach the store.

Examples:
  shellguard log             # last 20 decisions
  shellguard log -n 100 -j   # last 100 as JSON`,
	RunE: runLog,
}

func runLog(cmd *cobra.Command, args []string) error {
	path := GetDB()
	if path == "" {
		return fmt.Errorf("cannot resolve decision store path")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "No decisions recorded yet.")
		return nil
	}

	store, err := audit.Open(path)
	if err != nil {
		return fmt.Errorf("opening decision store: %w", err)
	}
	defer store.Close()

	decisions, err := store.Recent(flagLogLimit)
	if err != nil {
		return fmt.Errorf("reading decisions: %w", err)
	}

	format := GetOutput()
	if format == "json" || format == "yaml" {
		out := output.New(output.Format(format))
		return out.Write(map[string]any{
			"decisions": decisions,
			"count":     len(decisions),
		})
	}

	if len(decisions) == 0 {
		fmt.Fprintln(os.Stderr, "No decisions recorded yet.")
		return nil
	}

	for _, d := range decisions {
		fmt.Printf("%s  %-24s  %s\n",
			d.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			d.Outcome,
			d.Command)
		if d.Reason != "" {
			fmt.Printf("%41s%s\n", "", d.Reason)
		}
		for _, s := range d.Suggestions {
			fmt.Printf("%41s- %s\n", "", s)
		}
	}
	return nil
}
