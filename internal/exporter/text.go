package exporter

import "os"

type textExporter struct{}

// NewText returns the plain-text exporter. Text is written verbatim as UTF-8.
func NewText() Exporter {
	return textExporter{}
}

func (textExporter) Name() string { return "text" }
func (textExporter) Ext() string  { return ".txt" }

func (textExporter) Export(text, targetPath string) error {
	return replaceFile(targetPath, func(tmpPath string) error {
		return os.WriteFile(tmpPath, []byte(text), 0o644)
	})
}
