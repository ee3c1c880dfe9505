package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tddocs/internal/docs"
	"github.com/hpungsan/tddocs/internal/errors"
)

func TestInit(t *testing.T) {
	tmpDir := t.TempDir()

	database, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer database.Close()

	if _, err := os.Stat(filepath.Join(tmpDir, FileName)); os.IsNotExist(err) {
		t.Error("corpus.db was not created")
	}

	version, err := GetUserVersion(database)
	if err != nil {
		t.Fatalf("GetUserVersion failed: %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, CurrentSchemaVersion)
	}

	for _, table := range []string{"operators", "tutorials", "python_classes", "aliases", "meta"} {
		var name string
		err := database.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestInit_Idempotent(t *testing.T) {
	tmpDir := t.TempDir()

	db1, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("first Init failed: %v", err)
	}
	db1.Close()

	db2, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
	defer db2.Close()

	version, err := GetUserVersion(db2)
	if err != nil {
		t.Fatalf("GetUserVersion failed: %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, CurrentSchemaVersion)
	}
}

func sampleCorpus() *docs.Corpus {
	c := docs.NewCorpus()
	c.Operators.Add(&docs.Entry{
		Header:      docs.Header{Name: "noiseTOP", DisplayName: "Noise TOP", Category: "TOP"},
		Description: "Generates noise.",
		Parameters:  []docs.Parameter{{Name: "seed", Label: "Seed"}},
		Tips:        []string{"Animate the seed."},
	})
	c.Operators.Add(&docs.Entry{
		Header: docs.Header{Name: "circleTOP", DisplayName: "Circle TOP", Category: "TOP"},
	})
	// duplicate name: becomes an alias of the first noiseTOP
	c.Operators.Add(&docs.Entry{Header: docs.Header{Name: "noiseTOP", DisplayName: "Noise Texture"}})

	c.Tutorials.Add(&docs.Tutorial{
		Header:  docs.Header{Name: "intro", DisplayName: "Introduction"},
		Content: "# Introduction\n\nHello.",
	})
	c.Classes.Add(&docs.PythonClass{Header: docs.Header{Name: "OP", DisplayName: "OP"}})
	c.Classes.Add(&docs.PythonClass{
		Header:  docs.Header{Name: "TOP", DisplayName: "TOP"},
		Parent:  "OP",
		Methods: []docs.Method{{Name: "save", Signature: "save(filepath)"}},
	})
	return c
}

func TestSaveLoadCorpus_RoundTrip(t *testing.T) {
	database, err := Init(t.TempDir())
	require.NoError(t, err)
	defer database.Close()
	ctx := context.Background()

	orig := sampleCorpus()
	require.NoError(t, SaveCorpus(ctx, database, orig, "fp", "01BUILD"))

	loaded, meta, err := LoadCorpus(ctx, database, "fp")
	require.NoError(t, err)
	require.Equal(t, "01BUILD", meta.BuildID)
	require.NotZero(t, meta.SavedAt)

	require.Equal(t, orig.Operators.Names(), loaded.Operators.Names())
	require.Equal(t, orig.Tutorials.Names(), loaded.Tutorials.Names())
	require.Equal(t, orig.Classes.Names(), loaded.Classes.Names())
	require.Equal(t, orig.Operators.All(), loaded.Operators.All())
	require.Equal(t, orig.Classes.All(), loaded.Classes.All())

	got, ok := loaded.Operators.Resolve("noise texture")
	require.True(t, ok, "alias should survive the round trip")
	require.Equal(t, "noiseTOP", got.Name)

	tut, ok := loaded.Tutorials.Resolve("Introduction")
	require.True(t, ok)
	require.Equal(t, "# Introduction\n\nHello.", tut.Content)
}

func TestSaveLoadCorpus_AliasOwnershipKept(t *testing.T) {
	database, err := Init(t.TempDir())
	require.NoError(t, err)
	defer database.Close()
	ctx := context.Background()

	orig := docs.NewCorpus()
	orig.Operators.Add(&docs.Entry{Header: docs.Header{Name: "a", DisplayName: "A"}})
	// the duplicate's display name is claimed by a before b declares it
	orig.Operators.Add(&docs.Entry{Header: docs.Header{Name: "a", DisplayName: "Shared"}})
	orig.Operators.Add(&docs.Entry{Header: docs.Header{Name: "b", DisplayName: "B"}, Aliases: []string{"Shared"}})

	before, ok := orig.Operators.Resolve("Shared")
	require.True(t, ok)
	require.Equal(t, "a", before.Name)

	require.NoError(t, SaveCorpus(ctx, database, orig, "fp", "01BUILD"))
	loaded, _, err := LoadCorpus(ctx, database, "fp")
	require.NoError(t, err)

	after, ok := loaded.Operators.Resolve("Shared")
	require.True(t, ok)
	require.Equal(t, "a", after.Name)
	require.Equal(t, orig.Operators.Aliases(), loaded.Operators.Aliases())
}

func TestLoadCorpus_Empty(t *testing.T) {
	database, err := Init(t.TempDir())
	require.NoError(t, err)
	defer database.Close()

	_, _, err = LoadCorpus(context.Background(), database, "fp")
	require.True(t, errors.Is(err, errors.ErrCacheInvalid), "got %v", err)
}

func TestLoadCorpus_FingerprintMismatch(t *testing.T) {
	database, err := Init(t.TempDir())
	require.NoError(t, err)
	defer database.Close()
	ctx := context.Background()

	require.NoError(t, SaveCorpus(ctx, database, sampleCorpus(), "old", "b"))

	_, meta, err := LoadCorpus(ctx, database, "new")
	require.True(t, errors.Is(err, errors.ErrCacheInvalid), "got %v", err)
	require.Equal(t, "old", meta.Fingerprint)
}

func TestSaveCorpus_Replaces(t *testing.T) {
	database, err := Init(t.TempDir())
	require.NoError(t, err)
	defer database.Close()
	ctx := context.Background()

	require.NoError(t, SaveCorpus(ctx, database, sampleCorpus(), "fp1", "b1"))

	small := docs.NewCorpus()
	small.Operators.Add(&docs.Entry{Header: docs.Header{Name: "only", DisplayName: "only"}})
	require.NoError(t, SaveCorpus(ctx, database, small, "fp2", "b2"))

	loaded, _, err := LoadCorpus(ctx, database, "fp2")
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Total())
}
