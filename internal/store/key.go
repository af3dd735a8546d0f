package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrInvalidKey is returned for paths that cannot be stored one per line.
var ErrInvalidKey = errors.New("path cannot be used as a processed-set key")

// Key derives the stable processed-set key for an audio file: the absolute,
// cleaned path in Unicode NFC form.
func Key(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve key for %s: %w", path, err)
	}
	if strings.ContainsAny(abs, "\r\n") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, abs)
	}
	return norm.NFC.String(filepath.Clean(abs)), nil
}
