// Package csv implements the legacy tabular export sink. It exists for
// consumers of the historical traffic.csv format and is disabled unless
// explicitly configured.
package csv

import (
	"context"
	stdcsv "encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/codetime/auditproxy/internal/model"
)

var columns = []string{
	"timestamp",
	"method",
	"path",
	"query",
	"request_headers",
	"request_body",
	"response_status",
	"response_headers",
	"response_body",
	"duration_ms",
}

// Sink appends one row per entry, writing the header only when the file is
// new. The same single-writer lock discipline as the JSONL sink applies.
type Sink struct {
	path   string
	mu     sync.Mutex
	f      *os.File
	writer *stdcsv.Writer
}

func NewSink(path string) *Sink {
	return &Sink{path: path}
}

func (s *Sink) Name() string { return "csv" }

func (s *Sink) Save(_ context.Context, entry *model.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writer == nil {
		if err := s.open(); err != nil {
			return err
		}
	}
	if err := s.writer.Write(buildRow(entry)); err != nil {
		return err
	}
	s.writer.Flush()
	return s.writer.Error()
}

func (s *Sink) open() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	s.f = f
	s.writer = stdcsv.NewWriter(f)
	if info.Size() == 0 {
		if err := s.writer.Write(columns); err != nil {
			return err
		}
		s.writer.Flush()
	}
	return s.writer.Error()
}

func buildRow(entry *model.Entry) []string {
	return []string{
		entry.Timestamp.Format(time.RFC3339),
		entry.Method,
		entry.Path,
		encodeJSON(entry.Query),
		encodeJSON(entry.RequestHeaders),
		entry.RequestBody,
		strconv.Itoa(entry.ResponseStatus),
		encodeJSON(entry.ResponseHeaders),
		entry.ResponseBody,
		fmt.Sprintf("%.2f", entry.DurationMS),
	}
}

func encodeJSON(v map[string]string) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	s.writer.Flush()
	err := s.f.Close()
	s.f = nil
	s.writer = nil
	return err
}
