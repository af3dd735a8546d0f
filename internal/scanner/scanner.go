package scanner

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrInvalidRoot is returned when the root folder is missing or unreadable.
	ErrInvalidRoot = errors.New("invalid root folder")
	// ErrUnsupported is returned by Inspect for non-audio files.
	ErrUnsupported = errors.New("unsupported audio format")
)

var supportedExtensions = []string{".mp3", ".m4a", ".wav", ".flac", ".ogg", ".aac", ".wma", ".webm"}

// Candidate is one audio file found during a scan.
type Candidate struct {
	Path    string
	Ext     string
	Size    int64
	ModTime time.Time
}

// Name returns the base file name.
func (c Candidate) Name() string {
	return filepath.Base(c.Path)
}

// Stem returns the file name without its extension.
func (c Candidate) Stem() string {
	name := c.Name()
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// ArtifactPath returns <dir>/<stem><ext> next to the source file.
func (c Candidate) ArtifactPath(ext string) string {
	return filepath.Join(filepath.Dir(c.Path), c.Stem()+ext)
}

// SupportedExtensions returns a copy of the recognised extensions.
func SupportedExtensions() []string {
	return append([]string(nil), supportedExtensions...)
}

// IsSupported reports whether path has a supported audio extension.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range supportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Scan lists dir once and yields candidates lazily, in file-name order.
func (s *implScanner) Scan(ctx context.Context, dir string) (iter.Seq[Candidate], error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRoot, dir, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, abs)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}

	return func(yield func(Candidate) bool) {
		for _, e := range entries {
			if ctx.Err() != nil {
				return
			}
			if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !s.supported(e.Name()) {
				continue
			}

			c, err := s.Inspect(filepath.Join(abs, e.Name()))
			if err != nil {
				// Removed or turned into a directory since the listing.
				continue
			}
			if !yield(c) {
				return
			}
		}
	}, nil
}

// Inspect stats path, following symlinks, and builds its Candidate.
func (s *implScanner) Inspect(path string) (Candidate, error) {
	if !s.supported(path) {
		return Candidate{}, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(path))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return Candidate{}, fmt.Errorf("resolve %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return Candidate{}, fmt.Errorf("stat candidate: %w", err)
	}
	if !info.Mode().IsRegular() {
		return Candidate{}, fmt.Errorf("%w: %s is not a regular file", ErrUnsupported, filepath.Base(path))
	}

	return Candidate{
		Path:    abs,
		Ext:     strings.ToLower(filepath.Ext(abs)),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

func (s *implScanner) supported(name string) bool {
	_, ok := s.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}
