package archive

import (
	"errors"
	"fmt"

	"github.com/dhcgn/attachment-archiver/layout"
)

var (
	// ErrEmptyInput means no identifier survived parsing.
	ErrEmptyInput = errors.New("no files to archive")
	// ErrArchiveTooLarge means the source files exceed Options.MaxArchiveSize.
	ErrArchiveTooLarge = errors.New("attachments exceed the archive size limit")
)

// MissingFileError reports the first attachment that was not found on disk.
type MissingFileError struct {
	ID   string
	Path string
}

func (e *MissingFileError) Error() string {
	return "file not found: " + e.Path
}

// Kind tags the outcome of an archive run.
type Kind int

const (
	KindSuccess Kind = iota
	KindEmptyInput
	KindInvalidIdentifier
	KindMissingFile
	KindUnclassified
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindEmptyInput:
		return "empty_input"
	case KindInvalidIdentifier:
		return "invalid_identifier"
	case KindMissingFile:
		return "missing_file"
	default:
		return "unclassified"
	}
}

// Outcome is what a caller presents to the user: either a Result or a tagged error.
type Outcome struct {
	Kind   Kind
	Result Result
	Err    error
}

// Classify folds the return values of a run into an Outcome.
func Classify(res Result, err error) Outcome {
	if err == nil {
		return Outcome{Kind: KindSuccess, Result: res}
	}

	var missing *MissingFileError
	switch {
	case errors.Is(err, ErrEmptyInput):
		return Outcome{Kind: KindEmptyInput, Err: err}
	case errors.Is(err, layout.ErrInvalidIdentifier):
		return Outcome{Kind: KindInvalidIdentifier, Err: err}
	case errors.As(err, &missing):
		return Outcome{Kind: KindMissingFile, Err: missing}
	default:
		return Outcome{Kind: KindUnclassified, Err: err}
	}
}

func (o Outcome) OK() bool {
	return o.Kind == KindSuccess
}

// Message renders the outcome as a single human readable line.
func (o Outcome) Message() string {
	switch o.Kind {
	case KindSuccess:
		return fmt.Sprintf("archive created: %s (files: %d)", o.Result.Path, len(o.Result.Entries))
	case KindEmptyInput:
		return ErrEmptyInput.Error()
	case KindMissingFile:
		return o.Err.Error()
	default:
		return fmt.Sprintf("error occurred: %v", o.Err)
	}
}
