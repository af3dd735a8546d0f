package store

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"golang.org/x/text/unicode/norm"
)

// ErrStoreIO wraps every failure to read or append the processed list.
var ErrStoreIO = errors.New("processed-set store I/O")

// Open reads the processed list at path once and keeps it open for appends.
// A missing file is an empty set.
func Open(path string) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create parent dir: %v", ErrStoreIO, err)
	}

	keys, endsClean, err := readKeys(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStoreIO, path, err)
	}

	s := &implStore{
		path: path,
		keys: keys,
		file: f,
		lock: flock.New(path + ".lock"),
	}

	// A previous run died mid-line; terminate it so the next key starts fresh.
	if !endsClean {
		if err := s.appendLine(""); err != nil {
			f.Close()
			return nil, err
		}
	}
	return s, nil
}

func readKeys(path string) (map[string]struct{}, bool, error) {
	keys := make(map[string]struct{})

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return keys, true, nil
		}
		return nil, false, fmt.Errorf("%w: open %s: %v", ErrStoreIO, path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	endsClean := true
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			endsClean = strings.HasSuffix(line, "\n")
			line = strings.TrimRight(line, "\r\n")
			if strings.TrimSpace(line) != "" {
				keys[norm.NFC.String(line)] = struct{}{}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, fmt.Errorf("%w: read %s: %v", ErrStoreIO, path, err)
		}
	}
	return keys, endsClean, nil
}
