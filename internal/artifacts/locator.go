// Package artifacts maps opaque capability ids to files on disk.
package artifacts

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"mediagrab/internal/platform"

	"github.com/google/uuid"
)

type entry struct {
	path     string
	filename string
}

// Locator resolves artifact ids to on-disk files. Ids are random, so holding
// one is the only way to fetch the file.
type Locator struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewLocator creates an empty locator.
func NewLocator() *Locator {
	return &Locator{entries: make(map[string]entry)}
}

// Register records filePath and returns a fresh 128-bit id.
func (l *Locator) Register(filePath, filename string) (string, error) {
	if filePath == "" {
		return "", fmt.Errorf("artifact path is empty")
	}
	if filename == "" {
		return "", fmt.Errorf("artifact filename is empty")
	}

	raw, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate artifact id: %w", err)
	}
	id := strings.ReplaceAll(raw.String(), "-", "")

	l.mu.Lock()
	l.entries[id] = entry{path: filePath, filename: filename}
	l.mu.Unlock()

	return id, nil
}

// Resolve returns the path and download filename for id. The file is
// re-checked on every call; a missing or non-regular file is ErrNotFound.
func (l *Locator) Resolve(id string) (string, string, error) {
	l.mu.RLock()
	e, ok := l.entries[id]
	l.mu.RUnlock()
	if !ok {
		return "", "", platform.ErrNotFound
	}

	info, err := os.Stat(e.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", platform.ErrNotFound
		}
		return "", "", fmt.Errorf("failed to stat artifact: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", "", platform.ErrNotFound
	}

	return e.path, e.filename, nil
}

// Len returns the number of registered artifacts.
func (l *Locator) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
