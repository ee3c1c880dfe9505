package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tddocs/internal/docs"
	"github.com/hpungsan/tddocs/internal/errors"
)

func testCorpus() *docs.Corpus {
	c := docs.NewCorpus()
	c.Operators.Add(&docs.Entry{
		Header:      docs.Header{Name: "circleTOP", DisplayName: "Circle TOP", Category: "TOP"},
		Description: "Draws a circle or ring.",
	})
	c.Operators.Add(&docs.Entry{
		Header:      docs.Header{Name: "noiseTOP", DisplayName: "Noise TOP", Category: "TOP"},
		Description: "Generates noise patterns that can look like a circle when masked.",
	})
	c.Operators.Add(&docs.Entry{
		Header:      docs.Header{Name: "circle", DisplayName: "circle", Category: "SOP"},
		Description: "Circle SOP.",
	})
	c.Tutorials.Add(&docs.Tutorial{
		Header:  docs.Header{Name: "getting-started", DisplayName: "Getting Started"},
		Summary: "First steps with networks.",
		Tags:    []string{"beginner"},
	})
	c.Classes.Add(&docs.PythonClass{
		Header:  docs.Header{Name: "textureTOP", DisplayName: "textureTOP"},
		Methods: []docs.Method{{Name: "sample", Signature: "sample(x, y)"}},
	})
	c.Classes.Add(&docs.PythonClass{Header: docs.Header{Name: "???", DisplayName: "???"}})
	return c
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"Noise TOP", []string{"noise", "top"}},
		{"movie-file_in.v2", []string{"movie", "file", "in", "v2"}},
		{"  ", nil},
		{"Über Filter", []string{"über", "filter"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Tokenize(tt.input)
			if len(tt.want) == 0 {
				require.Empty(t, got)
				return
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestSearch_PrefixMatchesName(t *testing.T) {
	idx := Build(testCorpus(), nil)

	got := idx.Search("Cir", SearchOptions{Kind: docs.KindOperator})
	names := refNames(got)
	require.Contains(t, names, "circleTOP")
	require.Contains(t, names, "circle")
}

func TestSearch_Ranking(t *testing.T) {
	idx := Build(testCorpus(), nil)

	got := idx.Search("circle", SearchOptions{Kind: docs.KindOperator})
	require.Equal(t, []string{"circle", "circleTOP", "noiseTOP"}, refNames(got))
	require.Equal(t, RankExactName, got[0].Rank)
	require.Equal(t, RankNameMatch, got[1].Rank)
	require.Equal(t, RankDescriptionMatch, got[2].Rank)
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	c := docs.NewCorpus()
	for _, name := range []string{"noiseTOP", "blurTOP", "levelTOP"} {
		c.Operators.Add(&docs.Entry{Header: docs.Header{Name: name, DisplayName: name, Category: "TOP"}})
	}
	idx := Build(c, nil)

	got := idx.Search("top", SearchOptions{Kind: docs.KindOperator})
	require.Equal(t, []string{"noiseTOP", "blurTOP", "levelTOP"}, refNames(got))
	for _, m := range got {
		require.Equal(t, RankNameMatch, m.Rank)
	}

	got = idx.Search("top", SearchOptions{Kind: docs.KindOperator, Limit: 2})
	require.Equal(t, []string{"noiseTOP", "blurTOP"}, refNames(got))
}

func TestSearch_AnyTokenMatches(t *testing.T) {
	idx := Build(testCorpus(), nil)

	got := idx.Search("zzz noise", SearchOptions{})
	require.Equal(t, []string{"noiseTOP"}, refNames(got))
}

func TestSearch_Limit(t *testing.T) {
	idx := Build(testCorpus(), nil)

	require.Len(t, idx.Search("top", SearchOptions{Limit: 1}), 1)
	require.Len(t, idx.Search("top", SearchOptions{}), 3)
}

func TestSearch_KindFilter(t *testing.T) {
	idx := Build(testCorpus(), nil)

	got := idx.Search("text", SearchOptions{Kind: docs.KindPythonClass})
	require.Equal(t, []string{"textureTOP"}, refNames(got))

	got = idx.Search("sample", SearchOptions{Kind: docs.KindPythonClass})
	require.Equal(t, []string{"textureTOP"}, refNames(got))
	require.Equal(t, RankOtherMatch, got[0].Rank)
}

func TestSearch_EmptyIndex(t *testing.T) {
	var nilIdx *Index
	require.Empty(t, nilIdx.Search("anything", SearchOptions{}))
	require.Empty(t, (&Index{}).Search("anything", SearchOptions{}))
	require.Empty(t, Build(testCorpus(), nil).Search("  --  ", SearchOptions{}))
}

func TestStats(t *testing.T) {
	c := testCorpus()
	idx := Build(c, nil)
	st := idx.Stats()

	require.Equal(t, c.Total(), st.TotalEntries, "every record contributes at least its name")
	require.Equal(t, 3, st.ByKind[docs.KindOperator])
	require.Equal(t, 1, st.ByKind[docs.KindTutorial])
	require.Equal(t, 2, st.ByKind[docs.KindPythonClass])
	require.Greater(t, st.TotalTokens, st.TotalEntries)
	require.NotEmpty(t, st.BuildID)
}

func TestBuild_Progress(t *testing.T) {
	c := testCorpus()
	var calls, last int
	Build(c, func(done, total int) {
		calls++
		last = done
		require.Equal(t, c.Total(), total)
	})
	require.Equal(t, c.Total(), calls)
	require.Equal(t, c.Total(), last)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	idx := Build(testCorpus(), nil)

	require.NoError(t, Save(dir, idx, "fp-1"))

	loaded, err := Load(dir, "fp-1")
	require.NoError(t, err)
	require.Equal(t, idx.Stats(), loaded.Stats())
	require.Equal(t, idx.Refs(), loaded.Refs())

	for _, q := range []string{"cir", "noise", "getting", "sample", "???"} {
		require.Equal(t, idx.Search(q, SearchOptions{}), loaded.Search(q, SearchOptions{}), "query %q", q)
	}
}

func TestLoad_FingerprintMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, Build(testCorpus(), nil), "fp-1"))

	_, err := Load(dir, "fp-2")
	require.True(t, errors.Is(err, errors.ErrCacheInvalid), "got %v", err)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(t.TempDir(), "fp")
	require.True(t, errors.Is(err, errors.ErrCacheInvalid), "got %v", err)
}

func TestLoad_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{nope"), 0o644))

	_, err := Load(dir, "fp")
	require.True(t, errors.Is(err, errors.ErrCacheInvalid), "got %v", err)
}

func TestLoad_DanglingPosting(t *testing.T) {
	dir := t.TempDir()
	body := `{"version":1,"fingerprint":"fp","documents":[],"postings":{"x":[3]}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0o644))

	_, err := Load(dir, "fp")
	require.True(t, errors.Is(err, errors.ErrCacheInvalid), "got %v", err)
}

func refNames(ms []Match) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Name
	}
	return out
}
