package mail

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FallbackEntry is one undelivered message.
type FallbackEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Error     string    `json:"error,omitempty"`
}

// FallbackLog appends undelivered messages as JSON lines.
type FallbackLog struct {
	mu sync.Mutex
	w  io.Writer
}

// NewFallbackLog writes to a size-rotated file. Rotated files are never pruned.
func NewFallbackLog(path string) *FallbackLog {
	return NewFallbackLogWriter(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 0,
		MaxAge:     0,
		Compress:   true,
	})
}

func NewFallbackLogWriter(w io.Writer) *FallbackLog {
	return &FallbackLog{w: w}
}

func (l *FallbackLog) Append(entry FallbackEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.w.Write(line); err != nil {
		return fmt.Errorf("write fallback log: %w", err)
	}
	return nil
}

func (l *FallbackLog) Close() error {
	if c, ok := l.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ReadFallbackEntries parses a fallback log stream.
func ReadFallbackEntries(r io.Reader) ([]FallbackEntry, error) {
	var out []FallbackEntry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e FallbackEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
