// Package layout maps attachment identifiers onto the sharded on-disk layout
// used by the attachment store: XX/XX/XX/XXXXXXXX.stream.
package layout

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// Extension is appended to the hex name of every stored attachment.
const Extension = ".stream"

// ErrInvalidIdentifier is returned for tokens that are not base-10 32-bit integers.
var ErrInvalidIdentifier = errors.New("identifier cannot be converted to an integer")

// DerivePath returns the slash separated relative path for an identifier token.
// The token is parsed as a base-10 32-bit integer; surrounding whitespace and a
// leading sign are accepted.
func DerivePath(token string) (string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty identifier", ErrInvalidIdentifier)
	}

	id, err := strconv.ParseInt(trimmed, 10, 32)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, token)
	}

	return FromID(int32(id)), nil
}

// FromID formats id as eight uppercase hex digits of its 32-bit pattern and
// splits the first six into three directory levels.
func FromID(id int32) string {
	hex := fmt.Sprintf("%08X", uint32(id))
	return path.Join(hex[0:2], hex[2:4], hex[4:6], hex+Extension)
}

// Resolve joins a relative path produced by DerivePath onto base using the
// OS separator.
func Resolve(base, rel string) string {
	return filepath.Join(base, filepath.FromSlash(rel))
}
