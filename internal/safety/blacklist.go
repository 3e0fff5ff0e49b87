// Package safety guards tool execution against dangerous shell commands.
// Patterns live in a versioned JSON file under the project's .rill
// directory so operators can extend the list without rebuilding.
package safety

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

const blacklistVersion = 1

// defaultPatterns are the built-in dangerous command patterns. A pattern
// matches when its '*'-separated segments appear in order anywhere in the
// command, case-insensitively.
var defaultPatterns = []string{
	// File deletion
	"rm -rf*",
	"rm -fr*",
	"rm -r*",
	// Privilege escalation
	"sudo*",
	"su *",
	"doas*",
	// Disk operations
	"dd if=*",
	"dd of=*",
	"mkfs*",
	"fdisk*",
	"parted*",
	// Device access
	"/dev/sda*",
	"/dev/sdb*",
	"/dev/nvme*",
	"of=/dev/*",
	// System control
	"shutdown*",
	"reboot*",
	"halt*",
	"poweroff*",
	"init 0*",
	"init 6*",
	// Piped execution
	"*curl*|*sh*",
	"*wget*|*sh*",
	"*curl*|*bash*",
	"*wget*|*bash*",
}

// blacklistFile is the on-disk format.
type blacklistFile struct {
	Version  int      `json:"version"`
	Patterns []string `json:"patterns"`
}

// Blacklist holds the active set of blocked command patterns. It is safe
// for concurrent use; Watch replaces the pattern set when the file changes.
type Blacklist struct {
	path string

	mu       sync.RWMutex
	patterns []string

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// BlacklistPath returns the blacklist file path for a project root.
func BlacklistPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".rill", "bash_blacklist.json")
}

// LoadBlacklist loads the project blacklist, creating a default file when
// none exists. A file written by a newer version is rejected rather than
// partially understood.
func LoadBlacklist(projectRoot string) (*Blacklist, error) {
	path := BlacklistPath(projectRoot)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefault(path); err != nil {
			return nil, err
		}
	}

	patterns, err := readPatterns(path)
	if err != nil {
		return nil, err
	}

	return &Blacklist{
		path:     path,
		patterns: patterns,
	}, nil
}

func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create blacklist directory: %w", err)
	}
	data, err := json.MarshalIndent(blacklistFile{
		Version:  blacklistVersion,
		Patterns: defaultPatterns,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func readPatterns(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blacklist: %w", err)
	}
	var file blacklistFile
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("parse blacklist: %w", err)
	}
	if file.Version > blacklistVersion {
		return nil, fmt.Errorf("unsupported blacklist version %d", file.Version)
	}
	return file.Patterns, nil
}

// Blocked reports whether the command matches a blacklist pattern, and
// which one.
func (b *Blacklist) Blocked(command string) (bool, string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, pattern := range b.patterns {
		if MatchesPattern(command, pattern) {
			return true, pattern
		}
	}
	return false, ""
}

// Patterns returns a copy of the active pattern set.
func (b *Blacklist) Patterns() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string{}, b.patterns...)
}

// Watch reloads the pattern set whenever the blacklist file is rewritten.
// Call Close to stop watching.
func (b *Blacklist) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(b.path)); err != nil {
		watcher.Close()
		return err
	}

	b.watcher = watcher
	b.done = make(chan struct{})

	go func() {
		for {
			select {
			case <-b.done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != b.path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				patterns, err := readPatterns(b.path)
				if err != nil {
					continue
				}
				b.mu.Lock()
				b.patterns = patterns
				b.mu.Unlock()
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return nil
}

// Close stops the file watcher if one is running.
func (b *Blacklist) Close() error {
	if b.watcher == nil {
		return nil
	}
	close(b.done)
	return b.watcher.Close()
}

// MatchesPattern reports whether a command matches a blacklist pattern.
// Matching is case-insensitive; '*' matches any run of characters, and a
// pattern without wildcards matches as a substring.
func MatchesPattern(command, pattern string) bool {
	cmd := strings.ToLower(command)
	pat := strings.ToLower(pattern)

	segments := strings.Split(pat, "*")
	pos := 0
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		idx := strings.Index(cmd[pos:], segment)
		if idx < 0 {
			return false
		}
		pos += idx + len(segment)
	}
	return true
}
