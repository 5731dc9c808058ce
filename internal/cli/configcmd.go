package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/shellguard/internal/config"
	"github.com/Dicklesworthstone/shellguard/internal/output"
)

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSetCmd)

	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit shellguard configuration",
	Long: `Inspect the effective configuration or edit the user config file.

Configuration is layered, lowest to highest precedence: built-in defaults,
user config (~/.shellguard/config.toml), project config
(.shellguard/config.toml), SHELLGUARD_* environment variables.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		format := GetOutput()
		if format == "text" {
			format = "json"
		}
		out := output.New(output.Format(format))
		return out.Write(cfg)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file search paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := output.New(output.Format(GetOutput()))
		if GetOutput() == "text" {
			fmt.Printf("user:    %s\n", config.UserConfigPath())
			fmt.Printf("project: %s\n", projectConfigPath())
			return nil
		}
		return out.Write(map[string]any{
			"user":    config.UserConfigPath(),
			"project": projectConfigPath(),
		})
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a value in the user config file",
	Long: `Set a dotted key in the user config file, e.g.:

  shellguard config set audit.enabled false
  shellguard config set audit.path /var/lib/shellguard/decisions.db`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, raw := args[0], args[1]

		// Booleans and integers are stored typed, everything else as string.
		var value any = raw
		if b, err := strconv.ParseBool(raw); err == nil {
			value = b
		} else if n, err := strconv.Atoi(raw); err == nil {
			value = n
		}

		configPath := flagConfig
		if configPath == "" {
			configPath = config.UserConfigPath()
		}
		if configPath == "" {
			return fmt.Errorf("cannot resolve config path")
		}
		if err := config.WriteValue(configPath, key, value); err != nil {
			return err
		}

		out := output.New(output.Format(GetOutput()))
		return out.Write(map[string]any{
			"status":      "set",
			"key":         key,
			"value":       value,
			"config_path": configPath,
		})
	},
}
