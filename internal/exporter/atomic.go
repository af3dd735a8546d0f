package exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var reBlankLine = regexp.MustCompile(`\n[ \t\r]*\n`)

// paragraphs splits text on blank lines and folds the remaining line breaks
// into spaces.
func paragraphs(text string) []string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return nil
	}

	var out []string
	for _, block := range reBlankLine.Split(text, -1) {
		block = strings.Join(strings.Fields(block), " ")
		if block != "" {
			out = append(out, block)
		}
	}
	return out
}

// replaceFile renders into a temp file in the target directory and renames
// it over dest, so readers never see a half-written artifact.
func replaceFile(dest string, render func(tmpPath string) error) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if err := render(tmpPath); err != nil {
		return err
	}
	if err := syncFile(tmpPath); err != nil {
		return fmt.Errorf("sync %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("replace %s: %w", dest, err)
	}
	committed = true

	// Best effort: persist the rename itself.
	_ = syncDir(dir)
	return nil
}

func syncFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

// documentTitle is the heading for the artifact at targetPath.
func documentTitle(targetPath string) string {
	name := filepath.Base(targetPath)
	return "Transcription: " + strings.TrimSuffix(name, filepath.Ext(name))
}
