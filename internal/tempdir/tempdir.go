// Package tempdir manages a uniquely named working directory whose removal
// can be switched off after creation.
package tempdir

import (
	"fmt"
	"os"
	"sync"
)

// Dir is a temporary directory owned by its creator.
type Dir struct {
	path string

	mu           sync.Mutex
	cleanOnClose bool
	released     bool
}

// New creates a directory under parent (the system temp dir when empty).
// The pattern follows os.MkdirTemp.
func New(parent, pattern string, cleanOnClose bool) (*Dir, error) {
	path, err := os.MkdirTemp(parent, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary directory: %w", err)
	}
	return &Dir{path: path, cleanOnClose: cleanOnClose}, nil
}

func (d *Dir) Path() string {
	return d.path
}

// SetCleanOnClose toggles whether Close removes the directory.
func (d *Dir) SetCleanOnClose(clean bool) {
	d.mu.Lock()
	d.cleanOnClose = clean
	d.mu.Unlock()
}

func (d *Dir) CleanOnClose() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cleanOnClose
}

// Close removes the directory tree if clean-on-close is enabled.
// Only the first call of Close, Remove or Persist has an effect.
func (d *Dir) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return nil
	}
	d.released = true
	if !d.cleanOnClose {
		return nil
	}
	return d.removeLocked()
}

// Remove deletes the directory tree regardless of clean-on-close.
func (d *Dir) Remove() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return nil
	}
	d.released = true
	return d.removeLocked()
}

// Persist releases the directory without removing it and returns its path.
func (d *Dir) Persist() string {
	d.mu.Lock()
	d.released = true
	d.mu.Unlock()
	return d.path
}

func (d *Dir) removeLocked() error {
	if err := os.RemoveAll(d.path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", d.path, err)
	}
	return nil
}
