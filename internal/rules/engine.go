// Package rules implements pattern matching for shell command screening.
//
// Two ordered rule tables drive classification: blocking rules veto a
// command outright (first match wins), suggestion rules produce advisory
// messages (every match is collected). Matching is substring regex search,
// case-insensitive for blocking rules and case-sensitive for suggestions.
package rules

import (
	"fmt"
	"regexp"
	"sync"
)

// Rule is one classification pattern paired with its human-readable message.
type Rule struct {
	// Pattern is the regex source string as written in the table.
	Pattern string
	// Message explains the match: the violation for blocking rules, the
	// advised alternative for suggestion rules.
	Message string
	// Compiled is the compiled regex (blocking rules compile with (?i)).
	Compiled *regexp.Regexp
	// Source indicates where this rule came from: "builtin" or "config".
	Source string

	// exclude, when set, suppresses a match if the text after the matched
	// region also matches it. Go's RE2 has no lookahead, so "grep not
	// followed by a pipe" is expressed as pattern `\bgrep\b` with exclude
	// `\|` applied to the remainder of the command.
	exclude *regexp.Regexp
}

// matches reports whether the rule matches anywhere in command.
func (r *Rule) matches(command string) bool {
	if r.exclude == nil {
		return r.Compiled.MatchString(command)
	}
	for _, loc := range r.Compiled.FindAllStringIndex(command, -1) {
		if !r.exclude.MatchString(command[loc[1]:]) {
			return true
		}
	}
	return false
}

// Engine holds the blocking and suggestion rule tables.
//
// The builtin tables are compiled once at construction and never mutated.
// Config-sourced rules may be appended after construction; the mutex only
// guards those appends, classification itself is read-only.
type Engine struct {
	mu          sync.RWMutex
	blocking    []*Rule
	suggestions []*Rule
}

// NewEngine creates an engine loaded with the builtin rule tables.
func NewEngine() *Engine {
	e := &Engine{}
	e.loadBuiltinRules()
	return e
}

type ruleSpec struct {
	pattern string
	message string
	exclude string
}

func (e *Engine) loadBuiltinRules() {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Blocking rules: first match vetoes execution. Case-insensitive.
	e.blocking = compileRules([]ruleSpec{
		{pattern: `\brm\s+-rf\s+/`, message: "Attempting to delete root directory"},
		{pattern: `\brm\s+-rf\s+~`, message: "Attempting to delete home directory"},
		{pattern: `\bsudo\s+rm`, message: "Using sudo with rm command"},
		{pattern: `\bchmod\s+777`, message: "Setting overly permissive file permissions"},
		{pattern: `curl.*\|\s*sh`, message: "Piping curl output directly to shell"},
		{pattern: `wget.*\|\s*sh`, message: "Piping wget output directly to shell"},
		{pattern: `\beval\s+`, message: "Using eval command"},
		{pattern: `>\s*/dev/sd[a-z]`, message: "Writing directly to disk device"},
	}, "builtin", true)

	// Suggestion rules: every match is collected. Case-sensitive.
	e.suggestions = compileRules([]ruleSpec{
		{pattern: `\bgrep\b`, exclude: `\|`, message: "Use 'rg' (ripgrep) instead of 'grep' for better performance"},
		{pattern: `\bfind\s+.*-name`, message: "Use 'rg --files -g pattern' instead of 'find -name'"},
		{pattern: `\bcat\s+.*\|\s*grep`, message: "Use 'rg pattern file' instead of 'cat file | grep'"},
	}, "builtin", false)
}

func compileRules(specs []ruleSpec, source string, caseInsensitive bool) []*Rule {
	result := make([]*Rule, 0, len(specs))
	for _, s := range specs {
		r, err := compileRule(s, source, caseInsensitive)
		if err != nil {
			// Builtin rules must always be valid.
			if source == "builtin" {
				panic(fmt.Sprintf("invalid builtin rule %q: %v", s.pattern, err))
			}
			continue // Skip invalid non-builtin rules
		}
		result = append(result, r)
	}
	return result
}

func compileRule(s ruleSpec, source string, caseInsensitive bool) (*Rule, error) {
	pattern := s.pattern
	if caseInsensitive {
		pattern = "(?i)" + pattern
	}
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	r := &Rule{
		Pattern:  s.pattern,
		Message:  s.message,
		Compiled: compiled,
		Source:   source,
	}
	if s.exclude != "" {
		excl, err := regexp.Compile(s.exclude)
		if err != nil {
			return nil, err
		}
		r.exclude = excl
	}
	return r, nil
}

// Classify evaluates command against both rule tables and returns a Verdict.
//
// Blocking rules are checked first, in table order; the first match
// short-circuits with a Blocked verdict and no suggestion evaluation.
// Otherwise every suggestion rule is evaluated and each match contributes
// its message once, in table order. Classification is a pure function of
// the command string: no I/O, no logging, no state.
func (e *Engine) Classify(command string) Verdict {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, r := range e.blocking {
		if r.matches(command) {
			return Verdict{
				Kind:   VerdictBlocked,
				Reason: "Security violation: " + r.Message,
			}
		}
	}

	var suggestions []string
	for _, r := range e.suggestions {
		if r.matches(command) {
			suggestions = append(suggestions, r.Message)
		}
	}
	if len(suggestions) > 0 {
		return Verdict{
			Kind:        VerdictAllowedWithSuggestions,
			Suggestions: suggestions,
		}
	}

	return Verdict{Kind: VerdictAllowedSilently}
}

// AddBlockingRule appends a blocking rule to the table.
// Adding rules makes screening stricter, so config and agents may do it
// freely; builtin rules can never be removed.
func (e *Engine) AddBlockingRule(pattern, message, source string) error {
	r, err := compileRule(ruleSpec{pattern: pattern, message: message}, source, true)
	if err != nil {
		return fmt.Errorf("invalid blocking rule %q: %w", pattern, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.blocking = append(e.blocking, r)
	return nil
}

// AddSuggestionRule appends a suggestion rule to the table.
func (e *Engine) AddSuggestionRule(pattern, message, source string) error {
	r, err := compileRule(ruleSpec{pattern: pattern, message: message}, source, false)
	if err != nil {
		return fmt.Errorf("invalid suggestion rule %q: %w", pattern, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.suggestions = append(e.suggestions, r)
	return nil
}

// BlockingRules returns the blocking rule table in evaluation order.
func (e *Engine) BlockingRules() []*Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*Rule(nil), e.blocking...)
}

// SuggestionRules returns the suggestion rule table in evaluation order.
func (e *Engine) SuggestionRules() []*Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*Rule(nil), e.suggestions...)
}

// Global engine instance used by the CLI.
var defaultEngine = NewEngine()

// Default returns the global engine.
func Default() *Engine {
	return defaultEngine
}

// Classify is a convenience function using the default engine.
func Classify(command string) Verdict {
	return defaultEngine.Classify(command)
}
