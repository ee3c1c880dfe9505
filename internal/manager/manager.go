// Package manager owns the documentation corpus and its search index: it
// loads and normalizes the sources (or restores them from cache), builds the
// index, and answers queries over the resulting immutable snapshot.
package manager

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hpungsan/tddocs/internal/config"
	"github.com/hpungsan/tddocs/internal/docs"
	"github.com/hpungsan/tddocs/internal/errors"
	"github.com/hpungsan/tddocs/internal/index"
	"github.com/hpungsan/tddocs/internal/loader"
)

// State is the lifecycle state of a Manager.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options configures a Manager.
type Options struct {
	WikiPath        string
	TDDocsPath      string
	ProcessedPath   string
	SearchIndexPath string

	// EnablePersistence turns the corpus and index caches on.
	EnablePersistence bool
	// AutoIndex builds the index after loading when no valid cached index exists.
	AutoIndex bool

	// Progress, if set, receives progress events no more often than
	// ProgressInterval. Start and finish events are always delivered.
	Progress         func(ProgressEvent)
	ProgressInterval time.Duration

	// LockTimeout bounds the wait for the cache write lock.
	LockTimeout time.Duration

	Logger *slog.Logger
}

// OptionsFromConfig maps a resolved config onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		WikiPath:          cfg.WikiPath,
		TDDocsPath:        cfg.TDDocsPath,
		ProcessedPath:     cfg.ProcessedPath,
		SearchIndexPath:   cfg.SearchIndexPath,
		EnablePersistence: cfg.PersistenceEnabled(),
		AutoIndex:         cfg.AutoIndexEnabled(),
		ProgressInterval:  cfg.ProgressInterval(),
	}
}

// Source reports where a snapshot came from.
type Source string

const (
	SourceDocuments Source = "documents"
	SourceCache     Source = "cache"
)

// snapshot is one immutable corpus/index pair.
type snapshot struct {
	corpus      *docs.Corpus
	index       *index.Index
	source      Source
	fingerprint string
	loadedAt    time.Time
}

// Manager is the documentation query engine. It is safe for concurrent use.
type Manager struct {
	opts   Options
	logger *slog.Logger
	loader *loader.Loader

	state   atomic.Int32
	snap    atomic.Pointer[snapshot]
	lastErr atomic.Pointer[error]

	flight  singleflight.Group
	buildMu sync.Mutex
}

// New creates an uninitialized Manager.
func New(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 10 * time.Second
	}
	return &Manager{
		opts:   opts,
		logger: opts.Logger,
		loader: loader.New(opts.WikiPath, opts.TDDocsPath, opts.Logger),
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// LastError returns the error of the most recent failed initialize or rebuild.
func (m *Manager) LastError() error {
	if p := m.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Initialize loads the corpus and index. Concurrent callers share one run
// and observe its result. Once ready, further calls return immediately; after
// a failure a new call retries. A started run is not cancelled with ctx.
func (m *Manager) Initialize(ctx context.Context) error {
	if m.State() == StateReady {
		return nil
	}
	_, err, _ := m.flight.Do("initialize", func() (any, error) {
		if m.State() == StateReady {
			return nil, nil
		}
		m.state.Store(int32(StateInitializing))

		snap, err := m.build(context.WithoutCancel(ctx), false)
		if err != nil {
			m.lastErr.Store(&err)
			m.state.Store(int32(StateFailed))
			m.logger.Error("initialize failed", "error", err)
			return nil, err
		}
		m.snap.Store(snap)
		m.lastErr.Store(nil)
		m.state.Store(int32(StateReady))
		return nil, nil
	})
	return err
}

// Rebuild reparses every source, rebuilds the index regardless of AutoIndex,
// refreshes the caches and swaps the new snapshot in atomically. Readers see
// either the old or the new snapshot. On failure the old snapshot stays.
func (m *Manager) Rebuild(ctx context.Context) error {
	_, err, _ := m.flight.Do("rebuild", func() (any, error) {
		snap, err := m.build(context.WithoutCancel(ctx), true)
		if err != nil {
			m.lastErr.Store(&err)
			m.logger.Error("rebuild failed", "error", err)
			if m.snap.Load() == nil {
				m.state.Store(int32(StateFailed))
			}
			return nil, err
		}
		m.snap.Store(snap)
		m.lastErr.Store(nil)
		m.state.Store(int32(StateReady))
		return nil, nil
	})
	return err
}

// current returns the live snapshot or an initialization error.
func (m *Manager) current() (*snapshot, error) {
	snap := m.snap.Load()
	if snap == nil {
		return nil, errors.NewInitialization("documentation is not ready (state: " + m.State().String() + ")")
	}
	return snap, nil
}
