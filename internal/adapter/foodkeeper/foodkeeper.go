// Package foodkeeper serves static storage guidance for foods.
package foodkeeper

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

//go:embed foodkeeper.json
var defaultTable []byte

// Record is one storage guidance entry.
type Record struct {
	Category      string `json:"category"`
	Name          string `json:"name"`
	Notes         string `json:"notes"`
	FridgeDays    int    `json:"fridge_days"`
	FreezerMonths int    `json:"freezer_months"`
}

type document struct {
	Items []Record `json:"items"`
}

// Table is an immutable guidance table, safe for concurrent use.
type Table struct {
	items []Record
}

// Default returns the embedded table.
func Default() *Table {
	t, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("foodkeeper: embedded table is invalid: %v", err))
	}
	return t
}

// Load reads a table from path, or returns the embedded table when path is empty.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read foodkeeper table: %w", err)
	}
	return Parse(data)
}

// Parse decodes a table document.
func Parse(data []byte) (*Table, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse foodkeeper table: %w", err)
	}
	items := make([]Record, 0, len(doc.Items))
	for _, item := range doc.Items {
		if item.Category == "" && item.Name == "" {
			continue
		}
		items = append(items, item)
	}
	return &Table{items: items}, nil
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.items)
}

// Lookup returns the first record whose category or name occurs in query,
// compared case-insensitively, or nil.
func (t *Table) Lookup(query string) *Record {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	for i := range t.items {
		item := t.items[i]
		if (item.Category != "" && strings.Contains(q, strings.ToLower(item.Category))) ||
			(item.Name != "" && strings.Contains(q, strings.ToLower(item.Name))) {
			return &item
		}
	}
	return nil
}

// MentionsRisk reports whether the notes carry a risk keyword.
func (r *Record) MentionsRisk() bool {
	return r != nil && strings.Contains(strings.ToLower(r.Notes), "risk")
}

// Summary renders the storage periods in one sentence.
func (r *Record) Summary() string {
	return fmt.Sprintf("Follow storage: %d days in fridge; %d months frozen.", r.FridgeDays, r.FreezerMonths)
}
