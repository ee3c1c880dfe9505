// Package workflow holds the operator association patterns used to suggest
// what to add after a given operator.
package workflow

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hpungsan/tddocs/internal/errors"
)

// Suggestion is one recommended next operator.
type Suggestion struct {
	Operator  string  `json:"operator" yaml:"operator"`
	Weight    float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
	Rationale string  `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}

// Pattern associates an operator with weighted follow-ups.
// Next references need not name a loaded operator.
type Pattern struct {
	Operator string       `json:"operator" yaml:"operator"`
	Next     []Suggestion `json:"next" yaml:"next"`
}

// patternBody is the value side of the object form.
type patternBody struct {
	Next []Suggestion `json:"next" yaml:"next"`
}

// Table is a read-only set of patterns.
type Table struct {
	patterns []Pattern
	byKey    map[string]int // lower-cased operator -> index into patterns
}

// NewTable builds a Table. Patterns for the same operator (case-insensitive)
// are merged in table order.
func NewTable(patterns []Pattern) *Table {
	t := &Table{byKey: make(map[string]int)}
	for _, p := range patterns {
		key := strings.ToLower(strings.TrimSpace(p.Operator))
		if key == "" {
			continue
		}
		next := append([]Suggestion(nil), p.Next...)
		if i, ok := t.byKey[key]; ok {
			t.patterns[i].Next = append(t.patterns[i].Next, next...)
			continue
		}
		t.byKey[key] = len(t.patterns)
		t.patterns = append(t.patterns, Pattern{Operator: strings.TrimSpace(p.Operator), Next: next})
	}
	return t
}

// LoadTable reads a pattern file. Files ending in .yaml or .yml are parsed as
// YAML, everything else as JSON. Both the object form
//
//	{"noiseTOP": {"next": [{"operator": "levelTOP", "weight": 0.9}]}}
//
// and the list form
//
//	[{"operator": "noiseTOP", "next": [...]}]
//
// are accepted. Object keys are applied in sorted order.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read patterns", err)
	}

	unmarshal := json.Unmarshal
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
	}

	patterns, err := parse(data, unmarshal)
	if err != nil {
		return nil, errors.NewInvalidRequest("invalid pattern file " + path + ": " + err.Error())
	}
	return NewTable(patterns), nil
}

func parse(data []byte, unmarshal func([]byte, any) error) ([]Pattern, error) {
	var list []Pattern
	listErr := unmarshal(data, &list)
	if listErr == nil {
		return list, nil
	}

	var obj map[string]patternBody
	if err := unmarshal(data, &obj); err != nil {
		return nil, listErr
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Pattern, 0, len(keys))
	for _, k := range keys {
		out = append(out, Pattern{Operator: k, Next: obj[k].Next})
	}
	return out, nil
}

// Len returns the number of operators with patterns.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.patterns)
}

// Suggest returns the follow-ups for the first key that has a pattern,
// ordered by descending weight and stable on ties. Keys are matched
// case-insensitively. Unknown keys yield an empty slice.
func (t *Table) Suggest(keys ...string) []Suggestion {
	if t == nil {
		return []Suggestion{}
	}
	for _, k := range keys {
		i, ok := t.byKey[strings.ToLower(strings.TrimSpace(k))]
		if !ok {
			continue
		}
		out := append([]Suggestion{}, t.patterns[i].Next...)
		sort.SliceStable(out, func(a, b int) bool { return out[a].Weight > out[b].Weight })
		return out
	}
	return []Suggestion{}
}
