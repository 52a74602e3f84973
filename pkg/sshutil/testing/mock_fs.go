// Package testing provides remote session mocks for testing.
// This package simulates a Home Assistant host with an in-memory filesystem.
package testing

import (
	"errors"
	"path"
	"strings"
	"sync"
)

// MockFS simulates an in-memory remote filesystem.
// It backs the shell commands and uploads of MockClient.
type MockFS struct {
	mu    sync.RWMutex
	files map[string][]byte   // path -> content
	dirs  map[string]struct{} // directories
}

// NewMockFS creates a new empty mock filesystem.
func NewMockFS() *MockFS {
	return &MockFS{
		files: make(map[string][]byte),
		dirs:  make(map[string]struct{}),
	}
}

// MkdirAll creates a directory and all parent directories.
// This mimics the behavior of `mkdir -p`.
func (fs *MockFS) MkdirAll(p string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = path.Clean(p)

	// Create all parent directories
	parts := strings.Split(p, "/")
	current := ""
	for _, part := range parts {
		if part == "" {
			current = "/"
			continue
		}
		if current == "/" {
			current = "/" + part
		} else {
			current = current + "/" + part
		}
		fs.dirs[current] = struct{}{}
	}
	return nil
}

// WriteFile writes content to a file, creating parent directories as needed.
func (fs *MockFS) WriteFile(p string, content []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = path.Clean(p)

	// Create parent directory
	dir := path.Dir(p)
	if dir != "." && dir != "/" {
		fs.dirs[dir] = struct{}{}
	}

	fs.files[p] = content
	return nil
}

// ReadFile reads the content of a file. Returns error if file doesn't exist.
func (fs *MockFS) ReadFile(p string) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	p = path.Clean(p)

	content, exists := fs.files[p]
	if !exists {
		return nil, errors.New("file not found")
	}
	return content, nil
}

// Exists returns true if the path exists (file or directory).
func (fs *MockFS) Exists(p string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	p = path.Clean(p)

	if _, exists := fs.dirs[p]; exists {
		return true
	}
	if _, exists := fs.files[p]; exists {
		return true
	}
	return false
}

// IsDir returns true if the path exists and is a directory.
func (fs *MockFS) IsDir(p string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	p = path.Clean(p)
	_, exists := fs.dirs[p]
	return exists
}

// IsFile returns true if the path exists and is a file.
func (fs *MockFS) IsFile(p string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	p = path.Clean(p)
	_, exists := fs.files[p]
	return exists
}
