package stats

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestCollector_Observe(t *testing.T) {
	c := NewCollector()
	boom := errors.New("boom")

	events := []Event{
		{Stage: StageParse, Type: EventTypeParsed, ID: "1"},
		{Stage: StageParse, Type: EventTypeParsed, ID: "2"},
		{Stage: StageValidate, Type: EventTypeResolved, ID: "1", Size: 10},
		{Stage: StageValidate, Type: EventTypeMissing, ID: "2"},
		{Stage: StageArchive, Type: EventTypeAdded, ID: "1", Size: 10},
		{Stage: StageArchive, Type: EventTypeWritten, Size: 128},
		{Stage: StageValidate, Type: EventTypeError, Err: boom},
	}
	for _, evt := range events {
		c.Observe(evt)
	}

	got := c.Snapshot()
	want := Summary{
		Parsed:       2,
		Resolved:     1,
		Missing:      1,
		Added:        1,
		SourceBytes:  10,
		ArchiveBytes: 128,
		Archives:     1,
		Errors:       1,
		LastError:    boom,
	}
	if got != want {
		t.Errorf("Snapshot() = %+v, want %+v", got, want)
	}
}

func TestMulti(t *testing.T) {
	var seen []EventType
	a := ObserverFunc(func(evt Event) { seen = append(seen, evt.Type) })
	c := NewCollector()

	obs := Multi(a, nil, c)
	obs.Observe(Event{Type: EventTypeParsed})
	obs.Observe(Event{Type: EventTypeAdded, Size: 3})

	if len(seen) != 2 || seen[0] != EventTypeParsed || seen[1] != EventTypeAdded {
		t.Errorf("observer saw %v", seen)
	}
	if c.Snapshot().Added != 1 {
		t.Errorf("collector added = %d, want 1", c.Snapshot().Added)
	}
}

func TestReporter_Report(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := NewReporter(logger)
	r.Observe(Event{Type: EventTypeAdded, Size: 2048})
	r.Observe(Event{Type: EventTypeWritten, Size: 1024})
	r.Report()

	out := buf.String()
	if !strings.Contains(out, "stats summary") {
		t.Fatalf("missing summary line: %s", out)
	}
	if !strings.Contains(out, "added=1") || !strings.Contains(out, "archives=1") {
		t.Errorf("unexpected summary: %s", out)
	}
	if !strings.Contains(out, "level=INFO") {
		t.Errorf("want info level without errors: %s", out)
	}
}

func TestReporter_ReportWarnsOnError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := NewReporter(logger)
	r.Observe(Event{Type: EventTypeError, Err: errors.New("disk full")})
	r.Report()

	if !strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("want warn level: %s", buf.String())
	}
	if r.Summary().Errors != 1 {
		t.Errorf("Errors = %d, want 1", r.Summary().Errors)
	}
}
