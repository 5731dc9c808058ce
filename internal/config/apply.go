package config

import (
	"github.com/charmbracelet/log"

	"github.com/Dicklesworthstone/shellguard/internal/rules"
)

// ApplyRules appends user rules from cfg to the engine. Rules that fail to
// compile are skipped with a warning rather than aborting the guard: a bad
// user pattern must never disable the builtin tables.
func ApplyRules(cfg *Config, engine *rules.Engine, logger *log.Logger) {
	for _, r := range cfg.Rules.Blocking {
		if err := engine.AddBlockingRule(r.Pattern, r.Message, "config"); err != nil {
			logger.Warn("skipping config rule", "table", "blocking", "pattern", r.Pattern, "error", err)
		}
	}
	for _, r := range cfg.Rules.Suggestions {
		if err := engine.AddSuggestionRule(r.Pattern, r.Message, "config"); err != nil {
			logger.Warn("skipping config rule", "table", "suggestions", "pattern", r.Pattern, "error", err)
		}
	}
}
