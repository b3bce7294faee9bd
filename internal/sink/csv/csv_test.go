package csv

import (
	"context"
	stdcsv "encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codetime/auditproxy/internal/model"
)

func testEntry() *model.Entry {
	return model.NewEntry(model.Exchange{
		Method:          "POST",
		Path:            "/v3/users/event-log",
		Query:           map[string]string{"a": "1"},
		RequestHeaders:  map[string]string{"User-Agent": "CodeTime Client"},
		RequestBody:     `{"project":"x"}`,
		ResponseStatus:  201,
		ResponseHeaders: map[string]string{"Content-Type": "application/json"},
		ResponseBody:    "{}",
		Duration:        2 * time.Millisecond,
	}, model.Metadata{})
}

func TestHeaderWrittenOnceForNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traffic.csv")

	s := NewSink(path)
	require.NoError(t, s.Save(context.Background(), testEntry()))
	require.NoError(t, s.Save(context.Background(), testEntry()))
	require.NoError(t, s.Close())

	// Reopening an existing file must not repeat the header.
	s = NewSink(path)
	require.NoError(t, s.Save(context.Background(), testEntry()))
	require.NoError(t, s.Close())

	records := readAll(t, path)
	require.Len(t, records, 4)
	assert.Equal(t, columns, records[0])
	assert.Equal(t, "POST", records[1][1])
	assert.Equal(t, "201", records[1][6])
	assert.NotEqual(t, columns, records[3])
}

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := stdcsv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}
