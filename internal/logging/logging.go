package logging

import (
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultBufferSize bounds the diagnostics ring when no size is configured.
const DefaultBufferSize = 1000

// New builds the service logger: level-filtered, timestamped, writing to
// stdout and to a bounded in-memory buffer that backs the diagnostics
// endpoint. The logger is injected everywhere; there is no package-global.
func New(level string, bufferSize int) (zerolog.Logger, *Buffer) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}

	buffer := NewBuffer(bufferSize)
	writer := zerolog.MultiLevelWriter(os.Stdout, buffer)
	logger := zerolog.New(writer).Level(parsed).With().Timestamp().Logger()
	return logger, buffer
}

// Buffer retains the most recent log lines, oldest dropped first. It is safe
// for concurrent use and lives for the length of the process.
type Buffer struct {
	mu      sync.Mutex
	max     int
	entries []string
}

// NewBuffer constructs a buffer holding up to max entries.
func NewBuffer(max int) *Buffer {
	if max <= 0 {
		max = DefaultBufferSize
	}
	return &Buffer{max: max, entries: make([]string, 0, max)}
}

// Write stores one rendered log line. It never fails; the buffer exists for
// diagnostics and must not interfere with logging itself.
func (b *Buffer) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) == b.max {
		copy(b.entries, b.entries[1:])
		b.entries = b.entries[:b.max-1]
	}
	b.entries = append(b.entries, line)
	return len(p), nil
}

// Entries returns a snapshot of the retained lines, oldest first.
func (b *Buffer) Entries() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len reports the number of retained lines.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
