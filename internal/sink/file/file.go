// Package file implements the append-only JSONL sink.
package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/codetime/auditproxy/internal/model"
)

// Sink appends one JSON object per entry to a line-delimited file. A single
// write lock serializes line emission so concurrent appends never interleave
// partial lines; the lock is held only for the duration of the write.
type Sink struct {
	path string
	mu   sync.Mutex
	f    *os.File
}

func NewSink(path string) *Sink {
	return &Sink{path: path}
}

func (s *Sink) Name() string { return "file" }

func (s *Sink) Save(_ context.Context, entry *model.Entry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return err
		}
		f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		s.f = f
	}
	_, err = s.f.Write(line)
	return err
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
