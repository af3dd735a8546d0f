package exporter

import (
	"fmt"

	"github.com/nguyentantai21042004/audio-transcriber/internal/config"
)

// New returns the text, docx and pdf exporters, in that order. It fails with
// ErrFontUnavailable when no usable PDF font can be found.
func New(cfg config.ExportConfig) ([]Exporter, error) {
	font, err := FindFont(cfg.PDFFont)
	if err != nil {
		return nil, err
	}
	pdf, err := newPDFExporter(font, float64(cfg.PDFFontSize), cfg.Title)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFontUnavailable, err)
	}

	return []Exporter{
		NewText(),
		NewDocx(cfg.DocxFont, uint64(cfg.DocxFontSize), cfg.Title),
		pdf,
	}, nil
}
