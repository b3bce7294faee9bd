package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codetime/auditproxy/internal/model"
)

func testEntry(path string) *model.Entry {
	return model.NewEntry(model.Exchange{
		Method:          "GET",
		Path:            path,
		Query:           map[string]string{},
		RequestHeaders:  map[string]string{"User-Agent": "CodeTime Client"},
		ResponseStatus:  200,
		ResponseHeaders: map[string]string{},
		ResponseBody:    "{}",
		Duration:        3 * time.Millisecond,
	}, model.Metadata{})
}

func TestSaveCreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "traffic.jsonl")
	s := NewSink(path)
	defer s.Close()

	require.NoError(t, s.Save(context.Background(), testEntry("/v3/users/self/minutes")))

	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestSaveAppendsOneEntryPerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traffic.jsonl")
	s := NewSink(path)
	defer s.Close()

	require.NoError(t, s.Save(context.Background(), testEntry("/a")))
	require.NoError(t, s.Save(context.Background(), testEntry("/b")))
	require.NoError(t, s.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 2)

	var first model.Entry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "/a", first.Path)
	assert.Equal(t, 200, first.ResponseStatus)
	assert.NotEmpty(t, first.RowHash)
}

func TestConcurrentAppendsNeverInterleave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traffic.jsonl")
	s := NewSink(path)
	defer s.Close()

	const writers = 32
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Save(context.Background(), testEntry(fmt.Sprintf("/req/%d", i))))
		}(i)
	}
	wg.Wait()
	require.NoError(t, s.Close())

	lines := readLines(t, path)
	require.Len(t, lines, writers)
	seen := make(map[string]bool)
	for _, line := range lines {
		var entry model.Entry
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "each line must be one complete entry")
		seen[entry.Path] = true
	}
	assert.Len(t, seen, writers)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	return lines
}
