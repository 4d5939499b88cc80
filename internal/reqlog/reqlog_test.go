package reqlog

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ts = time.Date(2024, 3, 1, 9, 30, 15, 0, time.UTC)

func TestLine(t *testing.T) {
	assert.Equal(t,
		"2024-03-01 09:30:15 - User: alice (id:4) - Path: /api/messages/",
		Entry{Time: ts, UserID: 4, Username: "alice", Path: "/api/messages/"}.Line())
	assert.Equal(t,
		"2024-03-01 09:30:15 - User: Anonymous - Path: /api/token/",
		Entry{Time: ts, Path: "/api/token/"}.Line())
}

func TestOpenFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.log")
	require.NoError(t, os.WriteFile(path, []byte("existing\n"), 0o644))

	sink, got := OpenFile(path)
	assert.Equal(t, path, got)
	sink.Record(Entry{Time: ts, Path: "/a"})
	sink.Record(Entry{Time: ts, UserID: 1, Username: "bob", Path: "/b"})
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "existing\n"+
		"2024-03-01 09:30:15 - User: Anonymous - Path: /a\n"+
		"2024-03-01 09:30:15 - User: bob (id:1) - Path: /b\n", string(data))
}

func TestOpenFileFallsBack(t *testing.T) {
	missingDir := filepath.Join(t.TempDir(), "nope", "requests.log")
	sink, got := OpenFile(missingDir)
	defer sink.Close()
	assert.Equal(t, filepath.Join(os.TempDir(), "requests.log"), got)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriterSinkSwallowsErrors(t *testing.T) {
	sink := NewWriterSink(failingWriter{})
	assert.NotPanics(t, func() { sink.Record(Entry{Time: ts, Path: "/"}) })
	assert.NoError(t, sink.Close())

	var buf bytes.Buffer
	NewWriterSink(&buf).Record(Entry{Time: ts, Path: "/x"})
	assert.Equal(t, "2024-03-01 09:30:15 - User: Anonymous - Path: /x\n", buf.String())
}

func TestWriterSinkConcurrentLinesStayWhole(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sink.Record(Entry{Time: ts, UserID: uint(i + 1), Username: "u", Path: "/p"})
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 50)
	for _, l := range lines {
		assert.Regexp(t, `^2024-03-01 09:30:15 - User: u \(id:\d+\) - Path: /p$`, l)
	}
}
