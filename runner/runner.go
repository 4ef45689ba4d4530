package runner

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dhcgn/attachment-archiver/archive"
	"github.com/dhcgn/attachment-archiver/config"
	"github.com/dhcgn/attachment-archiver/ids"
	"github.com/dhcgn/attachment-archiver/model"
	"github.com/dhcgn/attachment-archiver/stats"
)

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseParsing    Phase = "parsing"
	PhaseValidating Phase = "validating"
	PhaseArchiving  Phase = "archiving"
)

// Runner drives one archive run at a time through
// idle -> parsing -> validating -> archiving -> idle.
type Runner struct {
	cfg    config.Config
	logger *slog.Logger

	builder   *archive.Builder
	observers []stats.Observer

	phase Phase
	since time.Time
}

func New(cfg config.Config, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := &Runner{
		cfg:    cfg,
		logger: logger,
		phase:  PhaseIdle,
	}

	builder, err := archive.New(archive.Options{MaxArchiveSize: cfg.MaxArchiveSize}, logger, r)
	if err != nil {
		return nil, fmt.Errorf("archive builder: %w", err)
	}
	r.builder = builder
	return r, nil
}

func (r *Runner) Phase() Phase {
	return r.phase
}

// Subscribe registers an observer for every event of subsequent runs.
func (r *Runner) Subscribe(obs stats.Observer) {
	if obs != nil {
		r.observers = append(r.observers, obs)
	}
}

// Observe forwards builder events to the subscribers.
func (r *Runner) Observe(evt stats.Event) {
	for _, obs := range r.observers {
		obs.Observe(evt)
	}
}

// Run parses text into identifiers and archives the matching attachments from
// the configured folder. Classify the returned error with archive.Classify.
func (r *Runner) Run(text string) (archive.Result, error) {
	r.since = time.Now()
	defer r.enter(PhaseIdle)

	r.enter(PhaseParsing)
	tokens := ids.Parse(text)
	for _, id := range tokens {
		r.Observe(stats.Event{Stage: stats.StageParse, Type: stats.EventTypeParsed, ID: id})
	}

	job := model.Job{
		SourceDir: r.cfg.AttachmentsDir,
		DestDir:   r.cfg.ArchiveDir,
		IDs:       tokens,
	}
	r.logger.Debug("identifiers parsed", "count", len(job.IDs), "source", job.SourceDir, "dest", job.DestDir)

	r.enter(PhaseValidating)
	entries, err := r.builder.Resolve(job)
	if err != nil {
		return r.finish(archive.Result{}, err)
	}

	r.enter(PhaseArchiving)
	res, err := r.builder.Archive(job.DestDir, entries)
	return r.finish(res, err)
}

func (r *Runner) enter(phase Phase) {
	if r.phase == phase {
		return
	}
	r.logger.Debug("phase changed", "from", r.phase, "to", phase)
	r.phase = phase
}

func (r *Runner) finish(res archive.Result, err error) (archive.Result, error) {
	duration := time.Since(r.since)
	if err != nil {
		outcome := archive.Classify(res, err)
		r.logger.Error("archive run failed", "phase", r.phase, "kind", outcome.Kind, "duration", duration, "err", err)
		return archive.Result{}, err
	}

	r.logger.Info("archive run completed", "path", res.Path, "entries", len(res.Entries), "duration", duration)
	return res, nil
}
