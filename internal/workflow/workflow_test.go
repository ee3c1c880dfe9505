package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tddocs/internal/errors"
)

func TestSuggest_OrderedByWeight(t *testing.T) {
	table := NewTable([]Pattern{{
		Operator: "noiseTOP",
		Next: []Suggestion{
			{Operator: "levelTOP", Weight: 0.5, Rationale: "adjust contrast"},
			{Operator: "compositeTOP", Weight: 0.9},
			{Operator: "blurTOP", Weight: 0.5},
			{Operator: "nullTOP", Weight: 0.1},
		},
	}})

	got := table.Suggest("noiseTOP")
	var names []string
	for _, s := range got {
		names = append(names, s.Operator)
	}
	require.Equal(t, []string{"compositeTOP", "levelTOP", "blurTOP", "nullTOP"}, names)
}

func TestSuggest_DoesNotMutateTable(t *testing.T) {
	table := NewTable([]Pattern{{
		Operator: "a",
		Next:     []Suggestion{{Operator: "low", Weight: 1}, {Operator: "high", Weight: 2}},
	}})

	_ = table.Suggest("a")
	require.Equal(t, "low", table.patterns[0].Next[0].Operator)
}

func TestSuggest_KeyFallback(t *testing.T) {
	table := NewTable([]Pattern{{Operator: "Noise TOP", Next: []Suggestion{{Operator: "levelTOP"}}}})

	require.Len(t, table.Suggest("noiseTOP", "noise top"), 1)
	require.Empty(t, table.Suggest("circleTOP"))
	require.NotNil(t, table.Suggest("circleTOP"))
}

func TestSuggest_NilTable(t *testing.T) {
	var table *Table
	require.Empty(t, table.Suggest("x"))
	require.Zero(t, table.Len())
}

func TestNewTable_MergesDuplicates(t *testing.T) {
	table := NewTable([]Pattern{
		{Operator: "a", Next: []Suggestion{{Operator: "b"}}},
		{Operator: "A", Next: []Suggestion{{Operator: "c"}}},
		{Operator: "  ", Next: []Suggestion{{Operator: "ignored"}}},
	})
	require.Equal(t, 1, table.Len())
	require.Len(t, table.Suggest("a"), 2)
}

func TestLoadTable(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{
			name: "json object",
			file: "patterns.json",
			body: `{"noiseTOP": {"next": [{"operator": "levelTOP", "weight": 0.8, "rationale": "tone"}]}}`,
		},
		{
			name: "json list",
			file: "patterns.json",
			body: `[{"operator": "noiseTOP", "next": [{"operator": "levelTOP", "weight": 0.8, "rationale": "tone"}]}]`,
		},
		{
			name: "yaml object",
			file: "patterns.yaml",
			body: "noiseTOP:\n  next:\n    - operator: levelTOP\n      weight: 0.8\n      rationale: tone\n",
		},
		{
			name: "yaml list",
			file: "patterns.yml",
			body: "- operator: noiseTOP\n  next:\n    - operator: levelTOP\n      weight: 0.8\n      rationale: tone\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))

			table, err := LoadTable(path)
			require.NoError(t, err)
			require.Equal(t, []Suggestion{{Operator: "levelTOP", Weight: 0.8, Rationale: "tone"}}, table.Suggest("noiseTOP"))
		})
	}
}

func TestLoadTable_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadTable(filepath.Join(dir, "missing.json"))
	require.True(t, errors.Is(err, errors.ErrIO))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"a": `), 0o644))
	_, err = LoadTable(bad)
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}
