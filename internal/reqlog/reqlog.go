// Package reqlog appends one line per request to a plain text file. Writing is
// best effort: a request never fails because its log line could not be written.
package reqlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap/zapcore"
)

type Entry struct {
	Time     time.Time
	UserID   uint
	Username string // empty for anonymous requests
	Path     string
}

// Line renders e in the requests.log format, without the line ending.
func (e Entry) Line() string {
	user := "Anonymous"
	if e.Username != "" {
		user = fmt.Sprintf("%s (id:%d)", e.Username, e.UserID)
	}
	return fmt.Sprintf("%s - User: %s - Path: %s", e.Time.Format("2006-01-02 15:04:05"), user, e.Path)
}

type Sink interface {
	Record(e Entry)
	Close() error
}

// WriterSink writes entries to w through a zap core whose encoder emits the
// message only. Write errors are discarded.
type WriterSink struct {
	core   zapcore.Core
	closer io.Closer
}

func NewWriterSink(w io.Writer) *WriterSink {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey: "msg",
		LineEnding: zapcore.DefaultLineEnding,
	})
	s := &WriterSink{core: zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), zapcore.InfoLevel)}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

func (s *WriterSink) Record(e Entry) {
	_ = s.core.Write(zapcore.Entry{Level: zapcore.InfoLevel, Time: e.Time, Message: e.Line()}, nil)
}

func (s *WriterSink) Close() error {
	_ = s.core.Sync()
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

type nop struct{}

func (nop) Record(Entry) {}
func (nop) Close() error { return nil }

// Nop drops every entry.
func Nop() Sink { return nop{} }

// OpenFile opens path for appending, falling back to requests.log in the
// system temp dir and finally to a sink that drops everything. The returned
// path is empty in the last case.
func OpenFile(path string) (Sink, string) {
	candidates := []string{path, filepath.Join(os.TempDir(), "requests.log")}
	for _, p := range candidates {
		if p == "" {
			continue
		}
		f, err := os.OpenFile(p, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			continue
		}
		return NewWriterSink(f), p
	}
	return Nop(), ""
}
