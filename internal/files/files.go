// Package files provides the file collaborator: enumeration, content
// reads and modification-time stats for the engine. The index core never
// touches the filesystem directly.
package files

import (
	"fmt"
	"os"
	"time"
)

// FS is the file collaborator interface consumed by the engine and the
// extractor.
type FS interface {
	// ListFiles returns the files under the root matching any of the
	// glob patterns, in walk order.
	ListFiles(patterns []string) ([]string, error)

	// ReadFile returns the file's content as text.
	ReadFile(path string) (string, error)

	// ModTime returns the file's last modification time.
	ModTime(path string) (time.Time, error)
}

// osFS implements FS against the real filesystem.
type osFS struct {
	rootDir        string
	ignorePatterns []string
}

// NewOS creates an FS rooted at rootDir. Paths matching ignorePatterns
// are excluded from enumeration.
func NewOS(rootDir string, ignorePatterns []string) FS {
	return &osFS{rootDir: rootDir, ignorePatterns: ignorePatterns}
}

// ListFiles walks the root directory and returns files matching any
// pattern, minus ignored paths.
func (f *osFS) ListFiles(patterns []string) ([]string, error) {
	d, err := newDiscovery(f.rootDir, patterns, f.ignorePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to compile path patterns: %w", err)
	}
	return d.discover()
}

// ReadFile returns the file's content.
func (f *osFS) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ModTime returns the file's modification time.
func (f *osFS) ModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
