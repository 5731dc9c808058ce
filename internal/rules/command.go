package rules

import (
	"path/filepath"
	"strings"

	shellwords "github.com/mattn/go-shellwords"
)

// BaseCommand returns the program name a command invokes, stripping env var
// assignment prefixes and directory paths. Used for audit records and check
// output; classification itself never depends on it.
//
// Returns "" when the command cannot be tokenized or contains only
// assignments.
func BaseCommand(command string) string {
	words, err := shellwords.Parse(command)
	if err != nil {
		// Unbalanced quotes etc. Fall back to whitespace splitting so the
		// audit trail still records something useful.
		words = strings.Fields(command)
	}

	for _, w := range words {
		if w == "" {
			continue
		}
		// Skip leading FOO=bar assignments and an 'env' wrapper. Flags and
		// paths contain "=" too, but a command never starts with those once
		// assignments end.
		if strings.Contains(w, "=") && !strings.HasPrefix(w, "-") &&
			!strings.HasPrefix(w, "/") && !strings.HasPrefix(w, ".") {
			continue
		}
		if w == "env" {
			continue
		}
		return filepath.Base(w)
	}
	return ""
}
