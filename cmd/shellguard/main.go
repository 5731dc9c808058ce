// Command shellguard is a pre-execution guard for agent shell commands.
package main

import (
	"fmt"
	"os"

	"github.com/Dicklesworthstone/shellguard/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
