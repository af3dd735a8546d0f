package exporter

// Exporter renders a transcript into one artifact format.
type Exporter interface {
	Name() string
	// Ext is the artifact extension including the dot, e.g. ".pdf".
	Ext() string
	// Export writes text to targetPath, replacing any previous file.
	Export(text, targetPath string) error
}
