package index

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/tddocs/internal/docs"
)

// ProgressFunc is called as records are indexed.
type ProgressFunc func(done, total int)

// builder accumulates documents and postings.
type builder struct {
	docs     []Document
	postings map[string][]int
}

// Build indexes every record of c: operators, then tutorials, then Python
// classes, each in insertion order. progress may be nil.
func Build(c *docs.Corpus, progress ProgressFunc) *Index {
	b := &builder{postings: make(map[string][]int)}
	total := c.Total()
	done := 0
	tick := func() {
		done++
		if progress != nil {
			progress(done, total)
		}
	}

	for _, e := range c.Operators.All() {
		description := e.Description
		if description == "" {
			description = e.Summary
		}
		b.add(docs.KindOperator, e.Header, description, e.Aliases)
		tick()
	}
	for _, t := range c.Tutorials.All() {
		extra := append(append([]string{}, t.Tags...), t.Sections...)
		b.add(docs.KindTutorial, t.Header, t.Summary, extra)
		tick()
	}
	for _, p := range c.Classes.All() {
		extra := make([]string, 0, len(p.Members)+len(p.Methods))
		for _, m := range p.Members {
			extra = append(extra, m.Name)
		}
		for _, m := range p.Methods {
			extra = append(extra, m.Name)
		}
		b.add(docs.KindPythonClass, p.Header, p.Description, extra)
		tick()
	}

	return &Index{
		BuildID:  newBuildID(),
		docs:     b.docs,
		postings: b.postings,
	}
}

func (b *builder) add(kind docs.Kind, h docs.Header, description string, extra []string) {
	id := len(b.docs)
	b.docs = append(b.docs, Document{
		Ref:         Ref{Kind: kind, Name: h.Name},
		Name:        docs.Fold(h.Name),
		DisplayName: docs.Fold(h.Label()),
		Description: docs.Fold(description),
	})

	seen := make(map[string]bool)
	post := func(tok string) {
		if tok == "" || seen[tok] {
			return
		}
		seen[tok] = true
		b.postings[tok] = append(b.postings[tok], id)
	}

	for _, text := range []string{h.Name, h.DisplayName, description} {
		for _, tok := range Tokenize(text) {
			post(tok)
		}
	}
	for _, text := range extra {
		for _, tok := range Tokenize(text) {
			post(tok)
		}
	}
	// A name made only of punctuation still has to be findable.
	if len(seen) == 0 {
		post(docs.Fold(h.Name))
	}
}

func newBuildID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
