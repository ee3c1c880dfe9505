package manager

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// ProgressType indicates the kind of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressLoading
	ProgressNormalizing
	ProgressIndexing
	ProgressPersisting
	ProgressFinished
)

func (t ProgressType) String() string {
	switch t {
	case ProgressStarted:
		return "started"
	case ProgressLoading:
		return "loading"
	case ProgressNormalizing:
		return "normalizing"
	case ProgressIndexing:
		return "indexing"
	case ProgressPersisting:
		return "persisting"
	case ProgressFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// ProgressEvent reports progress during initialize or rebuild.
type ProgressEvent struct {
	Type      ProgressType
	Completed int
	Total     int
	Source    Source
	Error     error
}

// progress throttles and guards the observer. A panicking observer is
// recovered and logged; it never affects the load.
type progress struct {
	fn     func(ProgressEvent)
	every  *rate.Sometimes
	logger *slog.Logger
}

func newProgress(fn func(ProgressEvent), interval time.Duration, logger *slog.Logger) *progress {
	every := &rate.Sometimes{Interval: interval}
	if interval <= 0 {
		every = &rate.Sometimes{Every: 1}
	}
	return &progress{fn: fn, every: every, logger: logger}
}

// emit delivers ev if the interval allows it.
func (p *progress) emit(ev ProgressEvent) {
	if p.fn == nil {
		return
	}
	p.every.Do(func() { p.deliver(ev) })
}

// always delivers ev regardless of the interval.
func (p *progress) always(ev ProgressEvent) {
	if p.fn == nil {
		return
	}
	p.deliver(ev)
}

func (p *progress) deliver(ev ProgressEvent) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("progress observer panicked", "event", ev.Type.String(), "panic", r)
		}
	}()
	p.fn(ev)
}
