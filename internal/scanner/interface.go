package scanner

import (
	"context"
	"iter"
)

// Scanner discovers audio candidates in a root folder.
type Scanner interface {
	// Scan validates dir and returns the supported audio files directly inside it.
	Scan(ctx context.Context, dir string) (iter.Seq[Candidate], error)
	// Inspect builds a Candidate for a single file.
	Inspect(path string) (Candidate, error)
}
