package scanner

import "strings"

type implScanner struct {
	extensions map[string]struct{}
}

// New creates a Scanner for the default set of audio extensions
func New() Scanner {
	return NewWithExtensions(supportedExtensions...)
}

// NewWithExtensions creates a Scanner that accepts only exts, e.g. ".txt".
func NewWithExtensions(exts ...string) Scanner {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = struct{}{}
	}
	return &implScanner{extensions: set}
}
