package permissions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

const storeVersion = 1

// storeFile is the on-disk format for standing grants.
type storeFile struct {
	Version int      `json:"version"`
	Allowed []string `json:"allowed"`
}

// Store persists "always allow" grants per project under
// .rill/permissions.json.
type Store struct {
	path string

	mu      sync.RWMutex
	allowed map[string]bool
}

// StorePath returns the permissions file path for a project root.
func StorePath(projectRoot string) string {
	return filepath.Join(projectRoot, ".rill", "permissions.json")
}

// OpenStore loads the project's standing grants; a missing file means no
// grants.
func OpenStore(projectRoot string) (*Store, error) {
	s := &Store{
		path:    StorePath(projectRoot),
		allowed: make(map[string]bool),
	}

	content, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read permissions: %w", err)
	}

	var file storeFile
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("parse permissions: %w", err)
	}
	if file.Version > storeVersion {
		return nil, fmt.Errorf("unsupported permissions version %d", file.Version)
	}
	for _, tool := range file.Allowed {
		s.allowed[tool] = true
	}
	return s, nil
}

// Allowed reports whether the tool has a standing grant.
func (s *Store) Allowed(tool string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allowed[tool]
}

// Grant records a standing grant for the tool and writes it to disk.
func (s *Store) Grant(tool string) error {
	s.mu.Lock()
	s.allowed[tool] = true
	tools := make([]string, 0, len(s.allowed))
	for t := range s.allowed {
		tools = append(tools, t)
	}
	s.mu.Unlock()
	sort.Strings(tools)

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create permissions directory: %w", err)
	}
	data, err := json.MarshalIndent(storeFile{Version: storeVersion, Allowed: tools}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}

// Revoke removes a standing grant and persists the change.
func (s *Store) Revoke(tool string) error {
	s.mu.Lock()
	delete(s.allowed, tool)
	tools := make([]string, 0, len(s.allowed))
	for t := range s.allowed {
		tools = append(tools, t)
	}
	s.mu.Unlock()
	sort.Strings(tools)

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create permissions directory: %w", err)
	}
	data, err := json.MarshalIndent(storeFile{Version: storeVersion, Allowed: tools}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}
