package progress

import (
	"log/slog"
	"os"
	"sync"

	"github.com/pterm/pterm"
	"golang.org/x/term"

	"github.com/dhcgn/attachment-archiver/stats"
)

// Bar shows a progress bar while attachments are packed into the archive.
type Bar struct {
	pb      *pterm.ProgressbarPrinter
	total   int
	mu      sync.Mutex
	enabled bool

	// level is raised to warn while the bar is drawn so info logs do not
	// interleave with it, and restored afterwards.
	level *slog.LevelVar
	saved slog.Level
}

// New creates a bar that only renders for log level "info" on an interactive
// stdout. level may be nil.
func New(logLevel string, level *slog.LevelVar) *Bar {
	return &Bar{
		enabled: logLevel == "info" && term.IsTerminal(int(os.Stdout.Fd())),
		level:   level,
	}
}

func (b *Bar) Enabled() bool {
	return b.enabled
}

// Observe starts the bar when entries are staged and advances it per added file.
func (b *Bar) Observe(evt stats.Event) {
	if !b.enabled {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch evt.Type {
	case stats.EventTypeStaged:
		b.total = evt.Count
		pb, err := pterm.DefaultProgressbar.
			WithTotal(evt.Count).
			WithTitle("Packing attachments").
			Start()
		if err != nil {
			b.enabled = false
			return
		}
		b.pb = pb
		if b.level != nil {
			b.saved = b.level.Level()
			if b.saved < slog.LevelWarn {
				b.level.Set(slog.LevelWarn)
			}
		}
	case stats.EventTypeAdded:
		if b.pb == nil {
			return
		}
		b.pb.UpdateTitle("Packing " + evt.Path)
		b.pb.Increment()
	case stats.EventTypeWritten:
		b.stop()
		pterm.Success.Printf("Archive written: %s\n", evt.Path)
	case stats.EventTypeMissing:
		pterm.Error.Printf("Missing: %s\n", evt.Path)
	case stats.EventTypeError:
		b.stop()
	}
}

func (b *Bar) stop() {
	if b.pb == nil {
		return
	}
	if b.pb.Current < b.total {
		b.pb.Current = b.total
	}
	_, _ = b.pb.Stop()
	b.pb = nil
	if b.level != nil {
		b.level.Set(b.saved)
	}
}
