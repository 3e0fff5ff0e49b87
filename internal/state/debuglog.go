package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DebugLog is an append-only session log for diagnosing routing and tool
// activity after the fact. A DebugLog with no file is a no-op, so callers
// never need to nil-check.
type DebugLog struct {
	mu   sync.Mutex
	file *os.File
}

// ProjectLogPath returns the session log path inside a project root.
func ProjectLogPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".rill", "logs", "session.log")
}

// OpenDebugLog opens the project session log, creating parent directories
// as needed. On any failure it returns a no-op log; a missing debug log
// should never prevent a session from starting.
func OpenDebugLog(projectRoot string) *DebugLog {
	path := ProjectLogPath(projectRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &DebugLog{}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return &DebugLog{}
	}
	l := &DebugLog{file: f}
	l.Printf("=== session started %s ===", time.Now().Format(time.RFC3339))
	return l
}

// Printf writes a timestamped line to the log. No-op when there is no file.
func (l *DebugLog) Printf(format string, args ...interface{}) {
	if l == nil || l.file == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.file, "[%s] %s\n", time.Now().Format("15:04:05.000"), fmt.Sprintf(format, args...))
}

// Close closes the underlying file. Safe on a no-op log.
func (l *DebugLog) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	f := l.file
	l.file = nil
	return f.Close()
}
