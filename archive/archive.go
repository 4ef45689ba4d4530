// Package archive bundles attachments from the sharded store into a single
// zip file. The archive is assembled in memory and only written once it is
// complete, so a failed run never leaves a partial file behind.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/docker/go-units"
	"github.com/klauspost/compress/zip"

	"github.com/dhcgn/attachment-archiver/layout"
	"github.com/dhcgn/attachment-archiver/model"
	"github.com/dhcgn/attachment-archiver/stats"
)

// maxNameAttempts bounds the search for a free archive name.
const maxNameAttempts = 1000

// Options tunes a Builder.
type Options struct {
	// MaxArchiveSize limits the summed size of the source files. Zero means no limit.
	MaxArchiveSize int64
}

// Result describes a written archive.
type Result struct {
	Path     string
	FileTime int64
	Size     int64
	Entries  []model.Entry
}

// Builder turns archive jobs into zip files on disk.
type Builder struct {
	opts     Options
	logger   *slog.Logger
	observer stats.Observer
	now      func() time.Time
}

// New returns a Builder. A nil logger or observer discards output.
func New(opts Options, logger *slog.Logger, observer stats.Observer) (*Builder, error) {
	if opts.MaxArchiveSize < 0 {
		return nil, fmt.Errorf("max archive size must not be negative")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if observer == nil {
		observer = stats.Multi()
	}
	return &Builder{
		opts:     opts,
		logger:   logger,
		observer: observer,
		now:      time.Now,
	}, nil
}

// Build resolves, packs and writes the archive for job in one call.
func (b *Builder) Build(job model.Job) (Result, error) {
	entries, err := b.Resolve(job)
	if err != nil {
		return Result{}, err
	}
	return b.Archive(job.DestDir, entries)
}

// Resolve derives the relative path of every identifier and checks that each
// file exists below job.SourceDir. It stops at the first invalid identifier or
// missing file.
func (b *Builder) Resolve(job model.Job) ([]model.Entry, error) {
	entries := make([]model.Entry, 0, len(job.IDs))
	for _, id := range job.IDs {
		rel, err := layout.DerivePath(id)
		if err != nil {
			b.emitError(stats.StageValidate, id, err)
			return nil, fmt.Errorf("derive path: %w", err)
		}
		entries = append(entries, model.Entry{ID: id, RelativePath: rel})
	}

	if len(entries) == 0 {
		b.emitError(stats.StageValidate, "", ErrEmptyInput)
		return nil, ErrEmptyInput
	}

	var total int64
	for i := range entries {
		entry := &entries[i]
		entry.AbsolutePath = layout.Resolve(job.SourceDir, entry.RelativePath)

		info, err := os.Stat(entry.AbsolutePath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			b.emitError(stats.StageValidate, entry.ID, err)
			return nil, fmt.Errorf("stat attachment: %w", err)
		}
		if err != nil || !info.Mode().IsRegular() {
			missing := &MissingFileError{ID: entry.ID, Path: entry.AbsolutePath}
			b.observer.Observe(stats.Event{Stage: stats.StageValidate, Type: stats.EventTypeMissing, ID: entry.ID, Path: entry.AbsolutePath})
			b.emitError(stats.StageValidate, entry.ID, missing)
			b.logger.Warn("attachment missing", "id", entry.ID, "path", entry.AbsolutePath)
			return nil, missing
		}

		entry.Size = info.Size()
		entry.ModTime = info.ModTime()
		total += entry.Size
		b.observer.Observe(stats.Event{Stage: stats.StageValidate, Type: stats.EventTypeResolved, ID: entry.ID, Path: entry.AbsolutePath, Size: entry.Size})
		b.logger.Debug("attachment resolved", "id", entry.ID, "path", entry.AbsolutePath, "size", entry.Size)
	}

	if b.opts.MaxArchiveSize > 0 && total > b.opts.MaxArchiveSize {
		err := fmt.Errorf("%w: %s > %s", ErrArchiveTooLarge,
			units.HumanSize(float64(total)), units.HumanSize(float64(b.opts.MaxArchiveSize)))
		b.emitError(stats.StageValidate, "", err)
		return nil, err
	}

	return entries, nil
}

// Archive packs entries into an in-memory zip and writes it to destDir.
func (b *Builder) Archive(destDir string, entries []model.Entry) (Result, error) {
	if len(entries) == 0 {
		b.emitError(stats.StageArchive, "", ErrEmptyInput)
		return Result{}, ErrEmptyInput
	}

	b.observer.Observe(stats.Event{Stage: stats.StageArchive, Type: stats.EventTypeStaged, Count: len(entries)})

	data, err := b.pack(entries)
	if err != nil {
		b.emitError(stats.StageArchive, "", err)
		return Result{}, err
	}

	path, tick, err := b.write(destDir, data)
	if err != nil {
		b.emitError(stats.StageArchive, "", err)
		return Result{}, err
	}

	size := int64(len(data))
	b.observer.Observe(stats.Event{Stage: stats.StageArchive, Type: stats.EventTypeWritten, Path: path, Size: size, Count: len(entries)})
	b.logger.Info("archive written", "path", path, "entries", len(entries), "size", units.HumanSize(float64(size)))

	return Result{
		Path:     path,
		FileTime: tick,
		Size:     size,
		Entries:  entries,
	}, nil
}

func (b *Builder) pack(entries []model.Entry) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, entry := range entries {
		if err := addEntry(zw, entry); err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("add %s: %w", entry.RelativePath, err)
		}
		b.observer.Observe(stats.Event{Stage: stats.StageArchive, Type: stats.EventTypeAdded, ID: entry.ID, Path: entry.RelativePath, Size: entry.Size})
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish zip: %w", err)
	}
	return buf.Bytes(), nil
}

func addEntry(zw *zip.Writer, entry model.Entry) error {
	src, err := os.Open(entry.AbsolutePath)
	if err != nil {
		return err
	}
	defer src.Close()

	header := &zip.FileHeader{
		Name:     entry.RelativePath,
		Method:   zip.Deflate,
		Modified: entry.ModTime,
	}
	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}

// write stores data under <filetime>.zip. The name is claimed with O_EXCL and
// the tick is bumped while it is taken, so an existing archive is never
// overwritten.
func (b *Builder) write(destDir string, data []byte) (string, int64, error) {
	tick := FileTime(b.now())
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		path := filepath.Join(destDir, strconv.FormatInt(tick, 10)+".zip")
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			tick++
			continue
		}
		if err != nil {
			return "", 0, fmt.Errorf("create archive: %w", err)
		}

		if err := writeAndClose(file, data); err != nil {
			_ = os.Remove(path)
			return "", 0, err
		}
		return path, tick, nil
	}
	return "", 0, fmt.Errorf("create archive: no free name in %s after %d attempts", destDir, maxNameAttempts)
}

func writeAndClose(file *os.File, data []byte) error {
	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("write archive: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("sync archive: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}

func (b *Builder) emitError(stage stats.Stage, id string, err error) {
	b.observer.Observe(stats.Event{Stage: stage, Type: stats.EventTypeError, ID: id, Err: err})
}
