package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/hpungsan/tddocs/internal/cache"
	"github.com/hpungsan/tddocs/internal/db"
	"github.com/hpungsan/tddocs/internal/docs"
	"github.com/hpungsan/tddocs/internal/errors"
	"github.com/hpungsan/tddocs/internal/index"
	"github.com/hpungsan/tddocs/internal/loader"
)

// build produces a fresh snapshot. With force set the caches are not read
// and the index is always built.
func (m *Manager) build(ctx context.Context, force bool) (*snapshot, error) {
	m.buildMu.Lock()
	defer m.buildMu.Unlock()

	start := time.Now()
	prog := newProgress(m.opts.Progress, m.opts.ProgressInterval, m.logger)
	prog.always(ProgressEvent{Type: ProgressStarted})

	var fingerprint string
	if m.opts.EnablePersistence {
		fp, err := cache.Fingerprint([]string{m.opts.WikiPath, m.opts.TDDocsPath},
			m.opts.ProcessedPath, m.opts.SearchIndexPath)
		if err != nil {
			m.logger.Warn("fingerprint failed, caching disabled for this run", "error", err)
		} else {
			fingerprint = fp
		}
	}

	if fingerprint != "" && !force {
		snap, err := m.fromCache(ctx, fingerprint, prog)
		if err == nil {
			m.finish(prog, snap, start)
			return snap, nil
		}
		if errors.Is(err, errors.ErrCacheInvalid) {
			m.logger.Info("cache miss", "reason", err)
		} else {
			m.logger.Warn("cache read failed, rebuilding", "error", err)
		}
	}

	prog.always(ProgressEvent{Type: ProgressLoading, Source: SourceDocuments})
	res, err := m.loader.LoadAll(ctx)
	if err != nil {
		prog.always(ProgressEvent{Type: ProgressFinished, Error: err})
		return nil, errors.NewIO("load documentation", err)
	}

	corpus := m.normalize(res, prog)
	if corpus.Total() == 0 {
		err := errors.NewInitialization(fmt.Sprintf(
			"no documentation records loaded from %s and %s", m.opts.WikiPath, m.opts.TDDocsPath))
		prog.always(ProgressEvent{Type: ProgressFinished, Error: err})
		return nil, err
	}

	var idx *index.Index
	if m.opts.AutoIndex || force {
		idx = m.buildIndex(corpus, prog)
	} else {
		idx = &index.Index{}
		m.logger.Info("auto index disabled, search is empty until rebuild")
	}

	if fingerprint != "" {
		prog.always(ProgressEvent{Type: ProgressPersisting})
		if err := m.save(ctx, corpus, idx, fingerprint); err != nil {
			m.logger.Warn("cache write failed", "error", err)
		}
	}

	snap := &snapshot{
		corpus:      corpus,
		index:       idx,
		source:      SourceDocuments,
		fingerprint: fingerprint,
		loadedAt:    time.Now(),
	}
	m.finish(prog, snap, start)
	return snap, nil
}

func (m *Manager) finish(prog *progress, snap *snapshot, start time.Time) {
	m.logger.Info("documentation ready",
		"source", string(snap.source),
		"operators", snap.corpus.Operators.Len(),
		"tutorials", snap.corpus.Tutorials.Len(),
		"python_classes", snap.corpus.Classes.Len(),
		"indexed", snap.index.Len(),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	prog.always(ProgressEvent{
		Type:      ProgressFinished,
		Completed: snap.corpus.Total(),
		Total:     snap.corpus.Total(),
		Source:    snap.source,
	})
}

// normalize turns raw records into a corpus. Malformed records and name
// collisions are logged and skipped.
func (m *Manager) normalize(res *loader.Result, prog *progress) *docs.Corpus {
	c := docs.NewCorpus()
	total := res.Total()
	done := 0
	tick := func() {
		done++
		prog.emit(ProgressEvent{Type: ProgressNormalizing, Completed: done, Total: total})
	}
	skip := func(kind docs.Kind, err error) {
		m.logger.Warn("skipping malformed record", "kind", string(kind), "error", err)
	}
	dup := func(kind docs.Kind, h docs.Header, source string) {
		m.logger.Warn("duplicate record name, keeping first", "kind", string(kind), "name", h.Name, "source", source)
	}

	for _, raw := range res.Operators {
		e, err := docs.NormalizeOperator(raw)
		switch {
		case err != nil:
			skip(docs.KindOperator, err)
		case !c.Operators.Add(e):
			dup(docs.KindOperator, e.Header, e.SourcePath)
		}
		tick()
	}
	for _, raw := range res.Tutorials {
		t, err := docs.NormalizeTutorial(raw)
		switch {
		case err != nil:
			skip(docs.KindTutorial, err)
		case !c.Tutorials.Add(t):
			dup(docs.KindTutorial, t.Header, t.SourcePath)
		}
		tick()
	}
	for _, raw := range res.Classes {
		p, err := docs.NormalizePythonClass(raw)
		switch {
		case err != nil:
			skip(docs.KindPythonClass, err)
		case !c.Classes.Add(p):
			dup(docs.KindPythonClass, p.Header, p.SourcePath)
		}
		tick()
	}
	return c
}

func (m *Manager) buildIndex(c *docs.Corpus, prog *progress) *index.Index {
	return index.Build(c, func(done, total int) {
		prog.emit(ProgressEvent{Type: ProgressIndexing, Completed: done, Total: total})
	})
}

// fromCache restores a snapshot from the corpus and index caches. A valid
// corpus with a stale index is re-indexed when AutoIndex is set.
func (m *Manager) fromCache(ctx context.Context, fingerprint string, prog *progress) (*snapshot, error) {
	conn, err := db.Init(m.opts.ProcessedPath)
	if err != nil {
		return nil, errors.NewIO("open corpus cache", err)
	}
	corpus, meta, err := db.LoadCorpus(ctx, conn, fingerprint)
	conn.Close()
	if err != nil {
		return nil, err
	}
	if corpus.Total() == 0 {
		return nil, errors.NewCacheInvalid("cached corpus is empty")
	}

	idx, err := index.Load(m.opts.SearchIndexPath, fingerprint)
	if err == nil && (idx.BuildID != meta.BuildID || !indexCovers(corpus, idx)) {
		err = errors.NewCacheInvalid("cached index does not match cached corpus")
	}
	if err != nil {
		if !errors.Is(err, errors.ErrCacheInvalid) {
			m.logger.Warn("index cache read failed", "error", err)
		}
		if !m.opts.AutoIndex {
			idx = &index.Index{}
		} else {
			idx = m.buildIndex(corpus, prog)
			if err := m.save(ctx, corpus, idx, fingerprint); err != nil {
				m.logger.Warn("cache write failed", "error", err)
			}
		}
	}

	return &snapshot{
		corpus:      corpus,
		index:       idx,
		source:      SourceCache,
		fingerprint: fingerprint,
		loadedAt:    time.Now(),
	}, nil
}

// indexCovers reports whether every indexed ref resolves in c and every
// record of c is indexed.
func indexCovers(c *docs.Corpus, idx *index.Index) bool {
	refs := idx.Refs()
	if len(refs) != c.Total() {
		return false
	}
	for _, ref := range refs {
		var ok bool
		switch ref.Kind {
		case docs.KindOperator:
			_, ok = c.Operators.Get(ref.Name)
		case docs.KindTutorial:
			_, ok = c.Tutorials.Get(ref.Name)
		case docs.KindPythonClass:
			_, ok = c.Classes.Get(ref.Name)
		}
		if !ok {
			return false
		}
	}
	return true
}

// save writes the corpus and, when built, the index under the cache lock.
func (m *Manager) save(ctx context.Context, c *docs.Corpus, idx *index.Index, fingerprint string) error {
	release, err := cache.AcquireLock(ctx, m.opts.ProcessedPath, m.opts.LockTimeout)
	if err != nil {
		return err
	}
	defer release()

	conn, err := db.Init(m.opts.ProcessedPath)
	if err != nil {
		return errors.NewIO("open corpus cache", err)
	}
	defer conn.Close()

	if err := db.SaveCorpus(ctx, conn, c, fingerprint, idx.BuildID); err != nil {
		return err
	}
	if idx.Len() == 0 {
		return nil
	}
	return index.Save(m.opts.SearchIndexPath, idx, fingerprint)
}
