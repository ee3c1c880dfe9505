package manager

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tddocs/internal/db"
	"github.com/hpungsan/tddocs/internal/docs"
	"github.com/hpungsan/tddocs/internal/errors"
	"github.com/hpungsan/tddocs/internal/workflow"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

// fixtureWiki lays out a small documentation tree and returns options for it.
func fixtureWiki(t *testing.T) Options {
	t.Helper()
	wiki := t.TempDir()
	ops := filepath.Join(wiki, "operators")

	writeFile(t, filepath.Join(ops, "TOP", "noiseTOP.html"),
		`<h1>Noise TOP</h1><p>Generates noise patterns.</p>
<table class="parameters"><tr><td>seed</td><td>Seed</td><td>1</td><td>Random seed.</td></tr></table>
<div id="tips"><ul><li>Animate the seed.</li></ul></div>
<div id="examples"><pre>op('noise1').par.seed = 2</pre></div>`)
	writeFile(t, filepath.Join(ops, "TOP", "circleTOP.html"), `<h1>Circle TOP</h1><p>Draws a circle.</p>`)
	writeFile(t, filepath.Join(ops, "CHOP", "lfoCHOP.html"), `<h1>LFO CHOP</h1><p>Low frequency oscillator.</p>`)
	writeFile(t, filepath.Join(ops, "Misc", "widgetX.html"), `<h1>Widget X</h1><p>Unknown family.</p>`)
	// no heading: the display name falls back to the file name
	writeFile(t, filepath.Join(ops, "TOP", "levelTOP.html"), `<p>Adjusts levels.</p>`)

	writeFile(t, filepath.Join(wiki, "tutorials", "intro.md"), "---\ntitle: Getting Started\ntags: [basics]\n---\n# Intro\n\nFirst steps.\n\n## Networks\n")
	writeFile(t, filepath.Join(wiki, "tutorials", "feedback.md"), "# Feedback Loops\n\nFeedback with the Feedback TOP.\n")

	py := filepath.Join(wiki, "docs", "python")
	writeFile(t, filepath.Join(py, "td.pyi"), `class OP:
    """Base operator."""
    name: str
    def cook(self) -> None: ...

class TOP(OP):
    """Texture operator."""
    width: int
    def save(self, filepath: str) -> str: ...

class Ouro(Boros):
    """Half of a cycle."""
    a: int

class Boros(Ouro):
    b: int
`)

	data := filepath.Join(wiki, "data")
	return Options{
		WikiPath:          wiki,
		TDDocsPath:        py,
		ProcessedPath:     filepath.Join(data, "processed"),
		SearchIndexPath:   filepath.Join(data, "search-index"),
		EnablePersistence: true,
		AutoIndex:         true,
		LockTimeout:       time.Second,
	}
}

func ready(t *testing.T, opts Options) *Manager {
	t.Helper()
	m := New(opts)
	require.NoError(t, m.Initialize(context.Background()))
	require.Equal(t, StateReady, m.State())
	return m
}

func TestQueriesBeforeInitialize(t *testing.T) {
	m := New(fixtureWiki(t))
	require.Equal(t, StateUninitialized, m.State())

	_, err := m.GetOperator("noiseTOP", docs.AllOperatorSections)
	require.True(t, errors.Is(err, errors.ErrInitialization), "got %v", err)
	_, err = m.Stats()
	require.True(t, errors.Is(err, errors.ErrInitialization))
	_, err = m.SearchOperators("noise", 0)
	require.True(t, errors.Is(err, errors.ErrInitialization))
}

func TestInitialize_LoadsEveryCorpus(t *testing.T) {
	m := ready(t, fixtureWiki(t))

	st, err := m.Stats()
	require.NoError(t, err)
	require.Equal(t, 5, st.Operators)
	require.Equal(t, 2, st.Tutorials)
	require.Equal(t, 4, st.PythonClasses)
	require.Equal(t, 11, st.SearchStats.TotalEntries)
	require.Greater(t, st.SearchStats.TotalTokens, st.SearchStats.TotalEntries)
	require.Equal(t, SourceDocuments, st.Source)
	require.Equal(t, map[string]int{"TOP": 3, "CHOP": 1, "Misc": 1}, st.Categories)
}

func TestInitialize_Idempotent(t *testing.T) {
	var started atomic.Int32
	opts := fixtureWiki(t)
	opts.Progress = func(ev ProgressEvent) {
		if ev.Type == ProgressStarted {
			started.Add(1)
		}
	}
	m := New(opts)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- m.Initialize(context.Background())
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.NoError(t, m.Initialize(context.Background()))

	require.Equal(t, int32(1), started.Load())
	require.Equal(t, StateReady, m.State())
}

func TestInitialize_EmptySourcesFail(t *testing.T) {
	opts := fixtureWiki(t)
	opts.WikiPath = filepath.Join(t.TempDir(), "nothing")
	opts.TDDocsPath = filepath.Join(t.TempDir(), "nothing")
	m := New(opts)

	err := m.Initialize(context.Background())
	require.True(t, errors.Is(err, errors.ErrInitialization), "got %v", err)
	require.Equal(t, StateFailed, m.State())
	require.Equal(t, err, m.LastError())

	_, err = m.ListOperators(ListOptions{})
	require.True(t, errors.Is(err, errors.ErrInitialization))
}

func TestInitialize_RetryAfterFailure(t *testing.T) {
	opts := fixtureWiki(t)
	good := opts.WikiPath
	opts.WikiPath = filepath.Join(t.TempDir(), "later")
	opts.TDDocsPath = filepath.Join(t.TempDir(), "later")
	m := New(opts)
	require.Error(t, m.Initialize(context.Background()))

	require.NoError(t, os.Rename(good, opts.WikiPath))
	require.NoError(t, m.Initialize(context.Background()))
	require.Equal(t, StateReady, m.State())
	require.NoError(t, m.LastError())
}

func TestGetOperator(t *testing.T) {
	m := ready(t, fixtureWiki(t))

	tests := []struct {
		lookup string
		want   string
	}{
		{"noiseTOP", "noiseTOP"},
		{"NOISETOP", "noiseTOP"},
		{"Noise TOP", "noiseTOP"},
		{"  noise   top ", "noiseTOP"},
		{"levelTOP", "levelTOP"},
	}
	for _, tt := range tests {
		e, err := m.GetOperator(tt.lookup, docs.AllOperatorSections)
		require.NoError(t, err, tt.lookup)
		require.Equal(t, tt.want, e.Name)
	}

	e, err := m.GetOperator("levelTOP", docs.AllOperatorSections)
	require.NoError(t, err)
	require.Equal(t, "levelTOP", e.DisplayName, "display name defaults to name")

	_, err = m.GetOperator("nopeTOP", docs.AllOperatorSections)
	require.True(t, errors.Is(err, errors.ErrNotFound))
	_, err = m.GetOperator(" ", docs.AllOperatorSections)
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestGetOperator_Projection(t *testing.T) {
	m := ready(t, fixtureWiki(t))

	full, err := m.GetOperator("noiseTOP", docs.AllOperatorSections)
	require.NoError(t, err)
	require.Len(t, full.Parameters, 1)
	require.Len(t, full.Tips, 1)
	require.Len(t, full.Examples, 1)

	bare, err := m.GetOperator("noiseTOP", docs.OperatorOptions{ShowParameters: true})
	require.NoError(t, err)
	require.Len(t, bare.Parameters, 1)
	require.Nil(t, bare.Tips)
	require.Nil(t, bare.Examples)

	again, err := m.GetOperator("noiseTOP", docs.AllOperatorSections)
	require.NoError(t, err)
	require.Len(t, again.Tips, 1, "projection must not mutate the corpus")
}

func TestListOperators(t *testing.T) {
	m := ready(t, fixtureWiki(t))

	all, err := m.ListOperators(ListOptions{})
	require.NoError(t, err)
	require.Equal(t, 5, all.Total)
	require.Empty(t, all.Category)

	tops, err := m.ListOperators(ListOptions{Category: "top"})
	require.NoError(t, err)
	require.Equal(t, "TOP", tops.Category)
	require.Equal(t, 3, tops.Total)
	for _, e := range tops.Operators {
		require.Equal(t, "TOP", e.Category)
	}

	limited, err := m.ListOperators(ListOptions{Category: "TOP", Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited.Operators, 1)
	require.Equal(t, 3, limited.Total)

	misc, err := m.ListOperators(ListOptions{Category: "Misc"})
	require.NoError(t, err)
	require.Empty(t, misc.Operators, "unknown categories never match a filter")
}

func TestSearchOperators_Prefix(t *testing.T) {
	m := ready(t, fixtureWiki(t))

	got, err := m.SearchOperators("Cir", 0)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	require.Equal(t, "circleTOP", got[0].Name)

	got, err = m.SearchOperators("top", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = m.SearchOperators("zzzz", 0)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestTutorials(t *testing.T) {
	m := ready(t, fixtureWiki(t))

	byName, err := m.GetTutorial("intro", TutorialOptions{})
	require.NoError(t, err)
	byDisplay, err := m.GetTutorial("getting started", TutorialOptions{})
	require.NoError(t, err)
	require.Equal(t, byName, byDisplay)
	require.Empty(t, byName.Content)

	withContent, err := m.GetTutorial("intro", TutorialOptions{IncludeContent: true})
	require.NoError(t, err)
	require.Contains(t, withContent.Content, "First steps.")

	list, err := m.ListTutorials(ListOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, list.Tutorials, 1)
	require.Equal(t, 2, list.Total)

	found, err := m.SearchTutorials("feedb", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "feedback", found[0].Name)
}

func TestPythonAPI(t *testing.T) {
	m := ready(t, fixtureWiki(t))

	view, err := m.GetPythonClass("TOP", PythonOptions{ShowMembers: true, ShowMethods: true, ShowInherited: true})
	require.NoError(t, err)
	require.Equal(t, "TOP", view.Class.Name)
	require.Len(t, view.Class.Methods, 1)
	require.Len(t, view.Inherited, 1)
	require.Equal(t, "OP", view.Inherited[0].From)
	require.False(t, view.Truncated)

	bare, err := m.GetPythonClass("TOP", PythonOptions{})
	require.NoError(t, err)
	require.Nil(t, bare.Class.Members)
	require.Nil(t, bare.Class.Methods)
	require.Nil(t, bare.Inherited)

	found, err := m.SearchPythonAPI("Ouro"[:4], 0)
	require.NoError(t, err)
	require.NotEmpty(t, found)
	require.Equal(t, "Ouro", found[0].Name)

	_, err = m.GetPythonClass("Nope", PythonOptions{})
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestPythonAPI_CycleTruncates(t *testing.T) {
	m := ready(t, fixtureWiki(t))

	view, err := m.GetPythonClass("Ouro", PythonOptions{ShowMembers: true, ShowInherited: true})
	require.NoError(t, err)
	require.True(t, view.Truncated)
	require.Len(t, view.Inherited, 1)
	require.Equal(t, "Boros", view.Inherited[0].From)
}

func TestSuggestWorkflow(t *testing.T) {
	m := ready(t, fixtureWiki(t))
	patterns := workflow.NewTable([]workflow.Pattern{{
		Operator: "noiseTOP",
		Next: []workflow.Suggestion{
			{Operator: "levelTOP", Weight: 0.4},
			{Operator: "notLoadedTOP", Weight: 0.9, Rationale: "dangling is fine"},
		},
	}})

	got, err := m.SuggestWorkflow("Noise TOP", patterns)
	require.NoError(t, err)
	require.Equal(t, "noiseTOP", got.Operator.Name)
	require.Len(t, got.Suggestions, 2)
	require.Equal(t, "notLoadedTOP", got.Suggestions[0].Operator)

	none, err := m.SuggestWorkflow("circleTOP", patterns)
	require.NoError(t, err)
	require.Empty(t, none.Suggestions)

	unknown, err := m.SuggestWorkflow("ghostTOP", patterns)
	require.NoError(t, err)
	require.Nil(t, unknown.Operator)
	require.Empty(t, unknown.Suggestions)
}

func searchNames(t *testing.T, m *Manager, queries ...string) [][]string {
	t.Helper()
	var out [][]string
	for _, q := range queries {
		ops, err := m.SearchOperators(q, 0)
		require.NoError(t, err)
		classes, err := m.SearchPythonAPI(q, 0)
		require.NoError(t, err)
		var names []string
		for _, e := range ops {
			names = append(names, e.Name)
		}
		for _, c := range classes {
			names = append(names, c.Name)
		}
		out = append(out, names)
	}
	return out
}

var fixedQueries = []string{"noise", "cir", "top", "op", "oscillator", "save"}

func TestPersistence_RoundTrip(t *testing.T) {
	opts := fixtureWiki(t)
	first := ready(t, opts)
	require.FileExists(t, filepath.Join(opts.ProcessedPath, db.FileName))

	second := ready(t, opts)
	st1, err := first.Stats()
	require.NoError(t, err)
	st2, err := second.Stats()
	require.NoError(t, err)

	require.Equal(t, SourceCache, st2.Source)
	require.Equal(t, st1.Operators, st2.Operators)
	require.Equal(t, st1.Tutorials, st2.Tutorials)
	require.Equal(t, st1.PythonClasses, st2.PythonClasses)
	require.Equal(t, st1.SearchStats.TotalEntries, st2.SearchStats.TotalEntries)
	require.Equal(t, st1.SearchStats.BuildID, st2.SearchStats.BuildID)
	require.Equal(t, searchNames(t, first, fixedQueries...), searchNames(t, second, fixedQueries...))

	e1, err := first.GetOperator("noiseTOP", docs.AllOperatorSections)
	require.NoError(t, err)
	e2, err := second.GetOperator("noiseTOP", docs.AllOperatorSections)
	require.NoError(t, err)
	require.Equal(t, e1, e2)
}

func TestPersistence_DisabledIsEquivalent(t *testing.T) {
	on := fixtureWiki(t)
	withCache := ready(t, on)

	off := on
	off.EnablePersistence = false
	off.ProcessedPath = filepath.Join(t.TempDir(), "processed")
	without := ready(t, off)

	_, err := os.Stat(off.ProcessedPath)
	require.True(t, os.IsNotExist(err), "nothing is written with persistence off")

	l1, err := withCache.ListOperators(ListOptions{})
	require.NoError(t, err)
	l2, err := without.ListOperators(ListOptions{})
	require.NoError(t, err)
	require.Equal(t, l1.Operators, l2.Operators)
	require.Equal(t, searchNames(t, withCache, fixedQueries...), searchNames(t, without, fixedQueries...))
}

func TestPersistence_CustomCacheDirsInsideWiki(t *testing.T) {
	opts := fixtureWiki(t)
	opts.ProcessedPath = filepath.Join(opts.WikiPath, "cache", "corpus")
	opts.SearchIndexPath = filepath.Join(opts.WikiPath, "cache", "index")
	ready(t, opts)

	m := ready(t, opts)
	st, err := m.Stats()
	require.NoError(t, err)
	require.Equal(t, SourceCache, st.Source)
}

func TestPersistence_SourceChangeInvalidates(t *testing.T) {
	opts := fixtureWiki(t)
	ready(t, opts)

	writeFile(t, filepath.Join(opts.WikiPath, "operators", "SOP", "boxSOP.html"), `<h1>Box SOP</h1>`)

	m := ready(t, opts)
	st, err := m.Stats()
	require.NoError(t, err)
	require.Equal(t, SourceDocuments, st.Source)
	require.Equal(t, 6, st.Operators)
}

func TestPersistence_CorruptIndexIsRebuilt(t *testing.T) {
	opts := fixtureWiki(t)
	ready(t, opts)

	writeFile(t, filepath.Join(opts.SearchIndexPath, "index.json"), "{not json")

	m := ready(t, opts)
	st, err := m.Stats()
	require.NoError(t, err)
	require.Equal(t, SourceCache, st.Source)
	got, err := m.SearchOperators("noise", 0)
	require.NoError(t, err)
	require.NotEmpty(t, got)
}

func TestAutoIndexDisabled(t *testing.T) {
	opts := fixtureWiki(t)
	opts.AutoIndex = false
	m := ready(t, opts)

	got, err := m.SearchOperators("noise", 0)
	require.NoError(t, err)
	require.Empty(t, got, "no index until rebuild")

	op, err := m.GetOperator("noiseTOP", docs.AllOperatorSections)
	require.NoError(t, err)
	require.Equal(t, "Noise TOP", op.DisplayName)

	require.NoError(t, m.Rebuild(context.Background()))
	got, err = m.SearchOperators("noise", 0)
	require.NoError(t, err)
	require.NotEmpty(t, got)
}

func TestProgress_ObserverPanicIsContained(t *testing.T) {
	opts := fixtureWiki(t)
	var finished atomic.Bool
	opts.Progress = func(ev ProgressEvent) {
		if ev.Type == ProgressFinished {
			finished.Store(true)
		}
		panic("observer exploded")
	}
	ready(t, opts)
	require.True(t, finished.Load())
}

func TestProgress_Throttled(t *testing.T) {
	opts := fixtureWiki(t)
	opts.EnablePersistence = false
	opts.ProgressInterval = time.Hour
	var events []ProgressEvent
	opts.Progress = func(ev ProgressEvent) { events = append(events, ev) }
	ready(t, opts)

	var periodic int
	for _, ev := range events {
		if ev.Type == ProgressNormalizing || ev.Type == ProgressIndexing {
			periodic++
		}
	}
	require.Equal(t, 1, periodic, "only the first periodic event fits in the interval")
	require.Equal(t, ProgressStarted, events[0].Type)
	require.Equal(t, ProgressFinished, events[len(events)-1].Type)
}
