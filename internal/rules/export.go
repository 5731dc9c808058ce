package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Export represents the exported rule set for external tools.
type Export struct {
	Version     string               `json:"version"`
	GeneratedAt time.Time            `json:"generated_at"`
	SHA256      string               `json:"sha256"`
	Tables      map[string]TableExport `json:"tables"`
	Metadata    ExportMetadata       `json:"metadata"`
}

// TableExport represents a single rule table for export.
type TableExport struct {
	Description     string        `json:"description"`
	CaseInsensitive bool          `json:"case_insensitive"`
	Rules           []RuleDetails `json:"rules"`
}

// RuleDetails represents a single rule for export.
type RuleDetails struct {
	Pattern string `json:"pattern"`
	Message string `json:"message"`
	Source  string `json:"source"`
}

// ExportMetadata contains summary information about the export.
type ExportMetadata struct {
	RuleCount   int            `json:"rule_count"`
	TableCounts map[string]int `json:"table_counts"`
}

// ExportVersion is the rule-set export format version.
const ExportVersion = "1.0.0"

// Export exports both rule tables in a structured format suitable for
// external tools and change detection.
func (e *Engine) Export() *Export {
	e.mu.RLock()
	defer e.mu.RUnlock()

	export := &Export{
		Version:     ExportVersion,
		GeneratedAt: time.Now().UTC(),
		Tables:      make(map[string]TableExport),
		Metadata: ExportMetadata{
			TableCounts: make(map[string]int),
		},
	}

	tables := []struct {
		name            string
		rules           []*Rule
		description     string
		caseInsensitive bool
	}{
		{"blocking", e.blocking, "Rules whose first match vetoes execution", true},
		{"suggestions", e.suggestions, "Rules producing non-blocking advisory messages", false},
	}

	for _, table := range tables {
		details := make([]RuleDetails, 0, len(table.rules))
		for _, r := range table.rules {
			details = append(details, RuleDetails{
				Pattern: r.Pattern,
				Message: r.Message,
				Source:  r.Source,
			})
		}
		export.Tables[table.name] = TableExport{
			Description:     table.description,
			CaseInsensitive: table.caseInsensitive,
			Rules:           details,
		}
		export.Metadata.TableCounts[table.name] = len(details)
		export.Metadata.RuleCount += len(details)
	}

	export.SHA256 = e.computeHashLocked()
	return export
}

// ComputeHash returns a deterministic hash of both rule tables.
// The hash changes when rules are added, enabling change detection for
// installed hooks.
func (e *Engine) ComputeHash() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.computeHashLocked()
}

// computeHashLocked computes the hash without acquiring the lock.
func (e *Engine) computeHashLocked() string {
	var all []string

	for _, r := range e.blocking {
		all = append(all, fmt.Sprintf("blocking:%s", r.Pattern))
	}
	for _, r := range e.suggestions {
		all = append(all, fmt.Sprintf("suggestions:%s", r.Pattern))
	}

	// Sort for deterministic hashing
	sort.Strings(all)

	h := sha256.New()
	for _, p := range all {
		h.Write([]byte(p))
		h.Write([]byte{0}) // Separator
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ExportJSON returns the rule set as an indented JSON string.
func (e *Engine) ExportJSON() (string, error) {
	data, err := json.MarshalIndent(e.Export(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
