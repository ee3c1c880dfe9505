// Package loader reads the on-disk documentation sources and turns them into
// raw records for the normalizer.
//
// Layout:
//
//	<wiki>/operators/<CATEGORY>/*.html   operator reference pages
//	<wiki>/tutorials/*.md                tutorials with optional YAML frontmatter
//	<tdDocs>/*.pyi                       Python API stubs
//
// A missing source directory yields no records. Files that cannot be read
// or parsed are logged and skipped.
package loader

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/tddocs/internal/docs"
)

// Directory names under the wiki path.
const (
	OperatorsDir = "operators"
	TutorialsDir = "tutorials"
)

// Result is the raw output of one load across all sources.
type Result struct {
	Operators []docs.RawOperator
	Tutorials []docs.RawTutorial
	Classes   []docs.RawPythonClass
}

// Total returns the number of raw records loaded.
func (r *Result) Total() int {
	return len(r.Operators) + len(r.Tutorials) + len(r.Classes)
}

// Loader reads the three documentation sources.
type Loader struct {
	wikiPath   string
	tdDocsPath string
	logger     *slog.Logger
	wiki       *WikiParser
}

// New creates a Loader. logger may be nil.
func New(wikiPath, tdDocsPath string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{
		wikiPath:   wikiPath,
		tdDocsPath: tdDocsPath,
		logger:     logger,
		wiki:       NewWikiParser(),
	}
}

// LoadAll reads the three sources concurrently. A failing source is logged
// and contributes no records; only context cancellation is returned.
func (l *Loader) LoadAll(ctx context.Context) (*Result, error) {
	var res Result
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ops, err := l.LoadOperators(ctx)
		if err != nil {
			l.logger.Warn("operator source failed", "path", l.wikiPath, "error", err)
		}
		res.Operators = ops
		return ctx.Err()
	})
	g.Go(func() error {
		tuts, err := l.LoadTutorials(ctx)
		if err != nil {
			l.logger.Warn("tutorial source failed", "path", l.wikiPath, "error", err)
		}
		res.Tutorials = tuts
		return ctx.Err()
	})
	g.Go(func() error {
		classes, err := l.LoadPythonClasses(ctx)
		if err != nil {
			l.logger.Warn("python source failed", "path", l.tdDocsPath, "error", err)
		}
		res.Classes = classes
		return ctx.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &res, nil
}

// LoadOperators parses every operators/<CATEGORY>/*.html page.
// Categories are visited in lexical order, pages in lexical order within each.
func (l *Loader) LoadOperators(ctx context.Context) ([]docs.RawOperator, error) {
	root := filepath.Join(l.wikiPath, OperatorsDir)
	dirs, err := readDirSorted(root)
	if err != nil {
		return nil, err
	}

	var out []docs.RawOperator
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		category := d.Name()
		files, err := listFiles(filepath.Join(root, category), ".html", ".htm")
		if err != nil {
			l.logger.Warn("skipping category", "category", category, "error", err)
			continue
		}
		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			raw, err := l.wiki.ParseFile(path, category)
			if err != nil {
				l.logger.Warn("skipping operator page", "path", path, "error", err)
				continue
			}
			out = append(out, raw)
		}
	}
	return out, nil
}

// LoadTutorials parses every tutorials/*.md document.
func (l *Loader) LoadTutorials(ctx context.Context) ([]docs.RawTutorial, error) {
	files, err := listFiles(filepath.Join(l.wikiPath, TutorialsDir), ".md", ".markdown")
	if err != nil {
		return nil, err
	}

	out := make([]docs.RawTutorial, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			l.logger.Warn("skipping tutorial", "path", path, "error", err)
			continue
		}
		raw, err := ParseTutorial(path, data)
		if err != nil {
			l.logger.Warn("skipping tutorial", "path", path, "error", err)
			continue
		}
		out = append(out, raw)
	}
	return out, nil
}

// LoadPythonClasses parses every *.pyi stub under the Python docs path.
// A stub may declare several classes.
func (l *Loader) LoadPythonClasses(ctx context.Context) ([]docs.RawPythonClass, error) {
	files, err := listFiles(l.tdDocsPath, ".pyi")
	if err != nil {
		return nil, err
	}

	var out []docs.RawPythonClass
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		f, err := os.Open(path)
		if err != nil {
			l.logger.Warn("skipping stub", "path", path, "error", err)
			continue
		}
		classes, err := ParseStub(path, f)
		f.Close()
		if err != nil {
			l.logger.Warn("skipping stub", "path", path, "error", err)
			continue
		}
		out = append(out, classes...)
	}
	return out, nil
}

// readDirSorted lists dir. A missing dir is not an error.
func readDirSorted(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

// listFiles returns the regular files in dir with one of exts, sorted.
func listFiles(dir string, exts ...string) ([]string, error) {
	entries, err := readDirSorted(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, want := range exts {
			if ext == want {
				out = append(out, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	return out, nil
}

// stem returns the file name without directory or extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
