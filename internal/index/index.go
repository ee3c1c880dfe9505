// Package index implements the inverted search index over the corpus:
// tokenization, building, substring lookup with ranking, and on-disk
// persistence of the built index.
package index

import (
	"slices"
	"strings"
	"unicode"

	"github.com/hpungsan/tddocs/internal/docs"
)

// FormatVersion is bumped whenever the persisted layout changes.
const FormatVersion = 1

// Ref points at one record in the corpus.
type Ref struct {
	Kind docs.Kind `json:"kind"`
	Name string    `json:"name"`
}

// Document is the indexed view of one record.
// Text fields are stored lower-cased for ranking.
type Document struct {
	Ref
	Name        string `json:"name_lc"`
	DisplayName string `json:"display_lc"`
	Description string `json:"description_lc,omitempty"`
}

// Rank orders matches; lower is better.
type Rank int

const (
	RankExactName Rank = iota
	RankNameMatch
	RankDescriptionMatch
	RankOtherMatch
)

// Match is one search hit.
type Match struct {
	Ref
	Rank Rank `json:"rank"`
}

// Stats summarizes an index.
type Stats struct {
	// TotalEntries counts distinct records that contributed at least one token.
	TotalEntries int `json:"totalEntries"`
	// TotalTokens counts distinct tokens.
	TotalTokens int               `json:"totalTokens"`
	ByKind      map[docs.Kind]int `json:"byKind"`
	BuildID     string            `json:"buildId,omitempty"`
}

// Index is an immutable inverted index. The zero value and nil are valid
// empty indexes.
type Index struct {
	BuildID  string
	docs     []Document
	postings map[string][]int // token -> ascending document positions
}

// Tokenize case-folds s and splits it on non-alphanumeric boundaries,
// dropping empty tokens.
func Tokenize(s string) []string {
	return strings.FieldsFunc(docs.Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.docs)
}

// Stats reports index size.
func (idx *Index) Stats() Stats {
	st := Stats{ByKind: map[docs.Kind]int{}}
	if idx == nil {
		return st
	}
	st.BuildID = idx.BuildID
	st.TotalTokens = len(idx.postings)

	contributing := make(map[int]bool, len(idx.docs))
	for _, ids := range idx.postings {
		for _, id := range ids {
			contributing[id] = true
		}
	}
	for id := range contributing {
		st.TotalEntries++
		st.ByKind[idx.docs[id].Kind]++
	}
	return st
}

// SearchOptions narrows a search.
type SearchOptions struct {
	// Kind restricts matches to one corpus; empty searches all.
	Kind docs.Kind
	// Limit caps the number of matches; <= 0 returns all.
	Limit int
}

// Search returns the records for which any query token is a substring of
// any of the record's indexed tokens. Results are ordered by rank, then by
// insertion order. An empty or unbuilt index yields no matches.
func (idx *Index) Search(query string, opts SearchOptions) []Match {
	if idx.Len() == 0 {
		return []Match{}
	}
	terms := dedupe(Tokenize(query))
	if len(terms) == 0 {
		return []Match{}
	}

	hits := make(map[int]bool)
	for token, ids := range idx.postings {
		if !containsAny(token, terms) {
			continue
		}
		for _, id := range ids {
			hits[id] = true
		}
	}

	ids := make([]int, 0, len(hits))
	for id := range hits {
		if opts.Kind != "" && idx.docs[id].Kind != opts.Kind {
			continue
		}
		ids = append(ids, id)
	}

	folded := docs.Fold(query)
	ranks := make(map[int]Rank, len(ids))
	for _, id := range ids {
		ranks[id] = rankOf(idx.docs[id], folded, terms)
	}
	slices.SortFunc(ids, func(a, b int) int {
		if ranks[a] != ranks[b] {
			return int(ranks[a]) - int(ranks[b])
		}
		return a - b
	})

	if opts.Limit > 0 && len(ids) > opts.Limit {
		ids = ids[:opts.Limit]
	}

	out := make([]Match, len(ids))
	for i, id := range ids {
		out[i] = Match{Ref: idx.docs[id].Ref, Rank: ranks[id]}
	}
	return out
}

func rankOf(d Document, folded string, terms []string) Rank {
	if d.Name == folded || d.DisplayName == folded {
		return RankExactName
	}
	if strings.Contains(d.Name, folded) || strings.Contains(d.DisplayName, folded) ||
		anySubstring(d.Name, terms) || anySubstring(d.DisplayName, terms) {
		return RankNameMatch
	}
	if anySubstring(d.Description, terms) {
		return RankDescriptionMatch
	}
	return RankOtherMatch
}

func containsAny(token string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(token, t) {
			return true
		}
	}
	return false
}

func anySubstring(text string, terms []string) bool {
	if text == "" {
		return false
	}
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func dedupe(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := tokens[:0]
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
