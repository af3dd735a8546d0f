package store

import (
	"fmt"
	"os"
	"sync"

	"github.com/gofrs/flock"
)

type implStore struct {
	path string
	mu   sync.Mutex
	keys map[string]struct{}
	file *os.File
	lock *flock.Flock
}

func (s *implStore) Load() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]struct{}, len(s.keys))
	for k := range s.keys {
		out[k] = struct{}{}
	}
	return out
}

func (s *implStore) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok
}

func (s *implStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

func (s *implStore) Mark(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("%w: store is closed", ErrStoreIO)
	}
	if _, ok := s.keys[key]; ok {
		return nil
	}
	if err := s.appendLine(key); err != nil {
		return err
	}
	s.keys[key] = struct{}{}
	return nil
}

// appendLine writes line+"\n" in one write under the cross-process lock.
func (s *implStore) appendLine(line string) error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("%w: lock %s: %v", ErrStoreIO, s.lock.Path(), err)
	}
	defer s.lock.Unlock()

	if _, err := s.file.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("%w: append %s: %v", ErrStoreIO, s.path, err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %v", ErrStoreIO, s.path, err)
	}
	return nil
}

func (s *implStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	if err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrStoreIO, s.path, err)
	}
	return nil
}
