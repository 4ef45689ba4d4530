package stats

import (
	"log/slog"
	"sync"
	"time"

	"github.com/docker/go-units"
)

type Stage string

const (
	StageParse    Stage = "parse"
	StageValidate Stage = "validate"
	StageArchive  Stage = "archive"
)

type EventType string

const (
	EventTypeParsed   EventType = "parsed"
	EventTypeResolved EventType = "resolved"
	EventTypeMissing  EventType = "missing"
	EventTypeStaged   EventType = "staged"
	EventTypeAdded    EventType = "added"
	EventTypeWritten  EventType = "written"
	EventTypeError    EventType = "error"
)

// Event is published for every step of an archive run. Count is only set on
// staged events and carries the number of entries about to be packed.
type Event struct {
	Stage Stage
	Type  EventType
	ID    string
	Path  string
	Size  int64
	Count int
	Err   error
}

// Observer receives events synchronously, in the order they happen.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(evt Event) { f(evt) }

// Multi fans an event out to every non-nil observer.
func Multi(observers ...Observer) Observer {
	return ObserverFunc(func(evt Event) {
		for _, o := range observers {
			if o != nil {
				o.Observe(evt)
			}
		}
	})
}

type Summary struct {
	Parsed       int
	Resolved     int
	Missing      int
	Added        int
	SourceBytes  int64
	ArchiveBytes int64
	Archives     int
	Errors       int
	LastError    error
}

func (s Summary) LogAttrs() []any {
	attrs := []any{
		"parsed", s.Parsed,
		"resolved", s.Resolved,
		"missing", s.Missing,
		"added", s.Added,
		"sourceSize", units.HumanSize(float64(s.SourceBytes)),
		"archiveSize", units.HumanSize(float64(s.ArchiveBytes)),
		"archives", s.Archives,
		"errors", s.Errors,
	}
	if s.LastError != nil {
		attrs = append(attrs, "lastError", s.LastError.Error())
	}
	return attrs
}

type Collector struct {
	mu      sync.Mutex
	summary Summary
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Observe(evt Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch evt.Type {
	case EventTypeParsed:
		c.summary.Parsed++
	case EventTypeResolved:
		c.summary.Resolved++
	case EventTypeMissing:
		c.summary.Missing++
	case EventTypeAdded:
		c.summary.Added++
		c.summary.SourceBytes += evt.Size
	case EventTypeWritten:
		c.summary.Archives++
		c.summary.ArchiveBytes += evt.Size
	case EventTypeError:
		c.summary.Errors++
		if evt.Err != nil {
			c.summary.LastError = evt.Err
		}
	}
}

func (c *Collector) Snapshot() Summary {
	c.mu.Lock()
	summary := c.summary
	c.mu.Unlock()
	return summary
}

// Reporter collects events and logs a summary once the run is over.
type Reporter struct {
	collector *Collector
	logger    *slog.Logger
	started   time.Time
}

func NewReporter(logger *slog.Logger) *Reporter {
	return &Reporter{
		collector: NewCollector(),
		logger:    logger,
		started:   time.Now(),
	}
}

func (r *Reporter) Observe(evt Event) {
	r.collector.Observe(evt)
}

func (r *Reporter) Report() {
	if r.logger == nil {
		return
	}
	summary := r.collector.Snapshot()
	attrs := append(summary.LogAttrs(), "duration", time.Since(r.started))
	if summary.Errors > 0 {
		r.logger.Warn("stats summary", attrs...)
		return
	}
	r.logger.Info("stats summary", attrs...)
}

func (r *Reporter) Summary() Summary {
	return r.collector.Snapshot()
}
