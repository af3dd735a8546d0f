package exporter

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"unicode"

	"golang.org/x/image/font/sfnt"
)

var (
	// ErrFontUnavailable is returned at startup when no candidate font can
	// render the Vietnamese alphabet.
	ErrFontUnavailable = errors.New("no Unicode TrueType font available for PDF export")
	// ErrMissingGlyph is returned per file when the transcript contains
	// characters the selected font has no glyph for.
	ErrMissingGlyph = errors.New("font has no glyph for character")
)

// vietnameseAlphabet is the coverage a font must provide to be selected.
const vietnameseAlphabet = "AĂÂBCDĐEÊGHIKLMNOÔƠPQRSTUƯVXY" +
	"aăâbcdđeêghiklmnoôơpqrstuưvxy" +
	"àáảãạằắẳẵặầấẩẫậèéẻẽẹềếểễệìíỉĩịòóỏõọồốổỗộờớởỡợùúủũụừứửữựỳýỷỹỵ" +
	"ÀÁẢÃẠẰẮẲẴẶẦẤẨẪẬÈÉẺẼẸỀẾỂỄỆÌÍỈĨỊÒÓỎÕỌỒỐỔỖỘỜỚỞỠỢÙÚỦŨỤỪỨỬỮỰỲÝỶỸỴ" +
	"0123456789.,;:!?'\"()-"

// fontCandidates are tried in order when no font is configured.
var fontCandidates = []string{
	"arial.ttf",
	`C:\Windows\Fonts\arial.ttf`,
	"/Library/Fonts/Arial Unicode.ttf",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
	"/usr/share/fonts/truetype/msttcorefonts/Arial.ttf",
	"/usr/share/fonts/truetype/msttcorefonts/arial.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
	"/usr/share/fonts/truetype/noto/NotoSans-Regular.ttf",
	"/usr/share/fonts/noto/NotoSans-Regular.ttf",
}

// Font is a parsed TrueType font with a glyph coverage cache.
type Font struct {
	Path string
	data []byte

	mu     sync.Mutex
	parsed *sfnt.Font
	buf    sfnt.Buffer
	cache  map[rune]bool
}

// FindFont returns the configured font when set, otherwise the first
// candidate that covers the Vietnamese alphabet.
func FindFont(configured string) (*Font, error) {
	if configured != "" {
		f, err := LoadFont(configured)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFontUnavailable, err)
		}
		return f, nil
	}

	var errs []error
	for _, path := range fontCandidates {
		f, err := LoadFont(path)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrFontUnavailable, errors.Join(errs...))
	}
	return nil, ErrFontUnavailable
}

// LoadFont reads and parses the font at path and checks it covers the
// Vietnamese alphabet.
func LoadFont(path string) (*Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseFont(path, data, vietnameseAlphabet)
}

func parseFont(name string, data []byte, required string) (*Font, error) {
	parsed, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", name, err)
	}

	f := &Font{
		Path:   name,
		data:   data,
		parsed: parsed,
		cache:  make(map[rune]bool),
	}
	if missing := f.Missing(required); len(missing) > 0 {
		return nil, fmt.Errorf("font %s lacks %q", name, string(missing))
	}
	return f, nil
}

// Missing returns the distinct printable runes of text the font cannot draw.
func (f *Font) Missing(text string) []rune {
	f.mu.Lock()
	defer f.mu.Unlock()

	var missing []rune
	seen := make(map[rune]struct{})
	for _, r := range text {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		if !f.covers(r) {
			missing = append(missing, r)
		}
	}
	return missing
}

func (f *Font) covers(r rune) bool {
	if ok, cached := f.cache[r]; cached {
		return ok
	}
	idx, err := f.parsed.GlyphIndex(&f.buf, r)
	ok := err == nil && idx != 0
	f.cache[r] = ok
	return ok
}
