// Package cache stores installed runtimes on disk. Each runtime occupies a
// disjoint subpath, so concurrent resolutions for different runtimes never
// contend on the same tree.
package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// FileCache implements a file-based cache keyed by (runtime, version).
type FileCache struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileCache creates a file-based cache rooted at baseDir, defaulting to
// ~/.provis/runtimes.
func NewFileCache(baseDir string) (*FileCache, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".provis", "runtimes")
	}

	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	return &FileCache{baseDir: baseDir}, nil
}

// Get retrieves an installed runtime path.
func (c *FileCache) Get(runtime, version string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	path := c.Path(runtime, version)
	if _, err := os.Stat(path); err == nil {
		return path, true
	}
	return "", false
}

// Set moves an installed tree into the cache.
func (c *FileCache) Set(runtime, version, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cachePath := c.Path(runtime, version)
	if err := os.MkdirAll(filepath.Dir(cachePath), 0750); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	if path == cachePath {
		return nil
	}

	if err := os.Rename(path, cachePath); err != nil {
		// Rename fails across filesystems, fall back to a copy.
		if err := copyDir(path, cachePath); err != nil {
			return fmt.Errorf("moving to cache: %w", err)
		}
		_ = os.RemoveAll(path)
	}

	return nil
}

// Path returns the cache subpath for a runtime version.
func (c *FileCache) Path(runtime, version string) string {
	return filepath.Join(c.baseDir, runtime, version)
}

// Clean removes all cached versions of a runtime.
func (c *FileCache) Clean(runtime string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return os.RemoveAll(filepath.Join(c.baseDir, runtime))
}

func copyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		dstPath := filepath.Join(dst, relPath)

		if info.IsDir() {
			return os.MkdirAll(dstPath, info.Mode())
		}

		return copyFile(path, dstPath, info.Mode())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	srcFile, err := os.Open(src) // #nosec G304 - src path is controlled
	if err != nil {
		return err
	}
	defer func() { _ = srcFile.Close() }()

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode) // #nosec G304 - dst path is controlled
	if err != nil {
		return err
	}
	defer func() { _ = dstFile.Close() }()

	_, err = io.Copy(dstFile, srcFile)
	return err
}
