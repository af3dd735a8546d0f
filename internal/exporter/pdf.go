package exporter

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/unicode/norm"
)

const (
	pdfFamily    = "transcript"
	pdfMargin    = 30.0
	pdfBottom    = 18.0
	pdfLeading   = 18.0
	pdfParaSpace = 28.35 // 10 mm
	maxReported  = 10
)

type pdfExporter struct {
	font  *Font
	size  float64
	title bool
}

// NewPDF returns the paginated document exporter rendering with font. With
// title set every document opens with a "Transcription: <file>" heading.
func NewPDF(font *Font, size float64, title bool) (Exporter, error) {
	return newPDFExporter(font, size, title)
}

func newPDFExporter(font *Font, size float64, title bool) (*pdfExporter, error) {
	if size <= 0 {
		size = 12
	}
	e := &pdfExporter{font: font, size: size, title: title}

	// fpdf only embeds glyf-based TrueType; reject anything else up front.
	doc := e.newDocument()
	doc.MultiCell(0, pdfLeading, "Aa", "", "J", false)
	if err := doc.Output(io.Discard); err != nil {
		return nil, fmt.Errorf("font %s: %w", font.Path, err)
	}
	return e, nil
}

func (e *pdfExporter) Name() string { return "pdf" }
func (e *pdfExporter) Ext() string  { return ".pdf" }

func (e *pdfExporter) Export(text, targetPath string) error {
	text = norm.NFC.String(text)
	var heading string
	if e.title {
		heading = norm.NFC.String(documentTitle(targetPath))
	}
	if missing := e.font.Missing(heading + text); len(missing) > 0 {
		if len(missing) > maxReported {
			missing = missing[:maxReported]
		}
		return fmt.Errorf("%w: %s lacks %q", ErrMissingGlyph, e.font.Path, string(missing))
	}

	doc := e.newDocument()
	if heading != "" {
		doc.SetFont(pdfFamily, "", e.size+4)
		doc.MultiCell(0, pdfLeading+4, heading, "", "L", false)
		doc.Ln(pdfParaSpace)
		doc.SetFont(pdfFamily, "", e.size)
	}
	for _, para := range paragraphs(text) {
		doc.MultiCell(0, pdfLeading, para, "", "J", false)
		doc.Ln(pdfParaSpace)
	}
	if err := doc.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}

	return replaceFile(targetPath, func(tmpPath string) error {
		return doc.OutputFileAndClose(tmpPath)
	})
}

func (e *pdfExporter) newDocument() *fpdf.Fpdf {
	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	doc.SetAutoPageBreak(true, pdfBottom)
	doc.AddUTF8FontFromBytes(pdfFamily, "", e.font.data)
	doc.SetFont(pdfFamily, "", e.size)
	doc.AddPage()
	return doc
}
