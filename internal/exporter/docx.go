package exporter

import (
	"fmt"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
)

type docxExporter struct {
	font  string
	size  uint64
	title bool
}

// NewDocx returns the rich-document exporter. Each blank-line separated block
// of the transcript becomes one paragraph.
func NewDocx(font string, size uint64, title bool) Exporter {
	return &docxExporter{font: font, size: size, title: title}
}

func (e *docxExporter) Name() string { return "docx" }
func (e *docxExporter) Ext() string  { return ".docx" }

func (e *docxExporter) Export(text, targetPath string) error {
	return replaceFile(targetPath, func(tmpPath string) error {
		doc, err := godocx.NewDocument()
		if err != nil {
			return fmt.Errorf("create document: %w", err)
		}

		if e.title {
			e.addRun(doc.AddParagraph(""), documentTitle(targetPath), true, e.size+3)
		}
		for _, para := range paragraphs(text) {
			e.addRun(doc.AddParagraph(""), para, false, e.size)
		}

		if err := doc.SaveTo(tmpPath); err != nil {
			return fmt.Errorf("save document: %w", err)
		}
		return nil
	})
}

func (e *docxExporter) addRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	run := p.AddText(text).Font(e.font).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}
