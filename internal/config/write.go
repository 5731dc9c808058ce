package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// AppendRule appends a rule to the named table ("blocking" or "suggestions")
// in the TOML file at path, creating the file if needed.
func AppendRule(path, table, pattern, message string) error {
	doc := make(map[string]any)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("reading %s: %w", path, err)
		}
	} else if err := toml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	rulesTable, ok := doc["rules"].(map[string]any)
	if !ok {
		rulesTable = make(map[string]any)
		doc["rules"] = rulesTable
	}
	var list []map[string]any
	switch existing := rulesTable[table].(type) {
	case []map[string]any:
		list = existing
	case []any:
		for _, item := range existing {
			if m, ok := item.(map[string]any); ok {
				list = append(list, m)
			}
		}
	}
	list = append(list, map[string]any{
		"pattern": pattern,
		"message": message,
	})
	rulesTable[table] = list

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(doc); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}

// WriteValue sets a dotted key (e.g. "audit.enabled") in the TOML file at
// path, creating the file and parent directories if needed. Existing keys
// are preserved.
func WriteValue(path, key string, value any) error {
	doc := make(map[string]any)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("reading %s: %w", path, err)
		}
	} else if err := toml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	// Walk/create intermediate tables for all but the last key segment.
	parts := strings.Split(key, ".")
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(doc); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}
