package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Environment variables that override file configuration.
const (
	EnvWikiPath   = "TDDOCS_WIKI_PATH"
	EnvTDDocsPath = "TDDOCS_TD_DOCS_PATH"
)

// Config holds application configuration.
type Config struct {
	// WikiPath is the root of the source documentation (operators/ and tutorials/ live under it).
	WikiPath string `json:"wiki_path"`

	// DataPath is the root for generated data. Defaults to <wiki_path>/data.
	DataPath string `json:"data_path,omitempty"`

	// ProcessedPath is where the normalized corpus cache is written. Defaults to <data_path>/processed.
	ProcessedPath string `json:"processed_path,omitempty"`

	// SearchIndexPath is where the built search index is written. Defaults to <data_path>/search-index.
	SearchIndexPath string `json:"search_index_path,omitempty"`

	// TDDocsPath is the root of the Python API stub documentation. Defaults to <wiki_path>/docs/python.
	TDDocsPath string `json:"td_docs_path,omitempty"`

	// PatternsPath is the workflow pattern table (JSON or YAML). Defaults to <data_path>/patterns.json.
	PatternsPath string `json:"patterns_path,omitempty"`

	// EnablePersistence enables reading and writing the corpus and index caches.
	// Pointer so an overlay can explicitly turn it off.
	EnablePersistence *bool `json:"enable_persistence,omitempty"`

	// AutoIndex builds the search index automatically after loading when no valid cached index exists.
	AutoIndex *bool `json:"auto_index,omitempty"`

	// ProgressIntervalMS is the minimum spacing between progress events, in milliseconds.
	ProgressIntervalMS int `json:"progress_interval_ms,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		WikiPath:           "wiki",
		EnablePersistence:  boolPtr(true),
		AutoIndex:          boolPtr(true),
		ProgressIntervalMS: 1000,
	}
}

// Load loads configuration from baseDir/config.json, applies environment
// overrides, and resolves derived paths.
// Returns default config if the file doesn't exist.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	applyEnv(cfg)
	return cfg.Resolve(), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvWikiPath)); v != "" {
		cfg.WikiPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTDDocsPath)); v != "" {
		cfg.TDDocsPath = v
	}
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.WikiPath = firstNonEmpty(overlay.WikiPath, base.WikiPath)
	result.DataPath = firstNonEmpty(overlay.DataPath, base.DataPath)
	result.ProcessedPath = firstNonEmpty(overlay.ProcessedPath, base.ProcessedPath)
	result.SearchIndexPath = firstNonEmpty(overlay.SearchIndexPath, base.SearchIndexPath)
	result.TDDocsPath = firstNonEmpty(overlay.TDDocsPath, base.TDDocsPath)
	result.PatternsPath = firstNonEmpty(overlay.PatternsPath, base.PatternsPath)

	result.ProgressIntervalMS = overlay.ProgressIntervalMS
	if result.ProgressIntervalMS == 0 {
		result.ProgressIntervalMS = base.ProgressIntervalMS
	}

	// Booleans: overlay wins if set, else base
	result.EnablePersistence = overlay.EnablePersistence
	if result.EnablePersistence == nil {
		result.EnablePersistence = base.EnablePersistence
	}
	result.AutoIndex = overlay.AutoIndex
	if result.AutoIndex == nil {
		result.AutoIndex = base.AutoIndex
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// Resolve returns a copy of cfg with derived paths filled in from WikiPath and DataPath.
func (c *Config) Resolve() *Config {
	out := *c
	if out.DataPath == "" {
		out.DataPath = filepath.Join(out.WikiPath, "data")
	}
	if out.ProcessedPath == "" {
		out.ProcessedPath = filepath.Join(out.DataPath, "processed")
	}
	if out.SearchIndexPath == "" {
		out.SearchIndexPath = filepath.Join(out.DataPath, "search-index")
	}
	if out.TDDocsPath == "" {
		out.TDDocsPath = filepath.Join(out.WikiPath, "docs", "python")
	}
	if out.PatternsPath == "" {
		out.PatternsPath = filepath.Join(out.DataPath, "patterns.json")
	}
	return &out
}

// PersistenceEnabled reports whether cache reads and writes are on.
func (c *Config) PersistenceEnabled() bool {
	return c.EnablePersistence == nil || *c.EnablePersistence
}

// AutoIndexEnabled reports whether the index is built automatically after loading.
func (c *Config) AutoIndexEnabled() bool {
	return c.AutoIndex == nil || *c.AutoIndex
}

// ProgressInterval returns the minimum spacing between progress events.
func (c *Config) ProgressInterval() time.Duration {
	if c.ProgressIntervalMS <= 0 {
		return 0
	}
	return time.Duration(c.ProgressIntervalMS) * time.Millisecond
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

func boolPtr(b bool) *bool {
	return &b
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
