package model

import "time"

// Job is a single archive request: where attachments live, where the archive
// goes and which identifiers to bundle.
type Job struct {
	SourceDir string
	DestDir   string
	IDs       []string
}

// Entry describes one attachment resolved on disk.
type Entry struct {
	ID           string
	RelativePath string
	AbsolutePath string
	Size         int64
	ModTime      time.Time
}
