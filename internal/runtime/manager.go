// Package runtime composes the resolution pipeline: fetch a provider
// catalog, normalize it, select exactly one artifact for the target, and hand
// the result to the download/extract collaborators.
package runtime

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog/log"

	"github.com/provisdev/provis/internal/runtime/archive"
	"github.com/provisdev/provis/internal/runtime/cache"
	"github.com/provisdev/provis/internal/runtime/fetch"
	"github.com/provisdev/provis/internal/runtime/java"
	"github.com/provisdev/provis/internal/runtime/node"
	"github.com/provisdev/provis/internal/runtime/selector"
	"github.com/provisdev/provis/internal/runtime/types"
)

// Manager is the per-process registry of runtimes, keyed by command alias.
// It memoizes candidate catalogs per (runtime family, target) so resolving
// several aliases of one family costs at most one network fetch.
type Manager struct {
	mu       sync.RWMutex
	runtimes map[string]types.Runtime

	cache   types.Cache
	fetcher *fetch.Client

	memoMu sync.Mutex
	memo   map[string]types.Catalog
}

// NewManager creates a manager with the default runtimes registered.
func NewManager(cacheDir string) (*Manager, error) {
	fileCache, err := cache.NewFileCache(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	fetcher := fetch.NewClient()

	m := &Manager{
		runtimes: make(map[string]types.Runtime),
		cache:    fileCache,
		fetcher:  fetcher,
		memo:     make(map[string]types.Catalog),
	}

	m.Register(java.New(fetcher))
	for _, cmd := range []string{"node", "npm", "npx"} {
		m.Register(node.New(fetcher, cmd))
	}

	return m, nil
}

// Register adds a runtime under its command alias.
func (m *Manager) Register(r types.Runtime) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runtimes[r.Command()] = r
}

// Commands returns the registered command aliases, sorted.
func (m *Manager) Commands() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cmds := make([]string, 0, len(m.runtimes))
	for cmd := range m.runtimes {
		cmds = append(cmds, cmd)
	}
	sort.Strings(cmds)
	return cmds
}

// Candidates returns the target-compatible catalog for an alias, fetching at
// most once per (runtime family, target) for the life of the manager.
func (m *Manager) Candidates(ctx context.Context, alias string, target types.Target) (types.Catalog, error) {
	r, err := m.runtime(alias)
	if err != nil {
		return nil, err
	}

	key := r.Name() + "|" + target.String()

	m.memoMu.Lock()
	defer m.memoMu.Unlock()

	if catalog, ok := m.memo[key]; ok {
		return catalog, nil
	}

	catalog, err := r.Candidates(ctx, target)
	if err != nil {
		return nil, err
	}

	m.memo[key] = catalog
	return catalog, nil
}

// Resolve picks exactly one artifact for an alias and target, or fails.
func (m *Manager) Resolve(ctx context.Context, alias string, target types.Target) (types.Artifact, error) {
	r, err := m.runtime(alias)
	if err != nil {
		return types.Artifact{}, err
	}

	catalog, err := m.Candidates(ctx, alias, target)
	if err != nil {
		return types.Artifact{}, err
	}

	artifact, err := selector.Select(catalog, r.VersionConstraint())
	if err != nil {
		return types.Artifact{}, fmt.Errorf("%s on %s: %w", r.Name(), target, err)
	}

	log.Debug().
		Str("runtime", r.Name()).
		Str("version", artifact.RawVersion).
		Str("url", artifact.URL).
		Msg("resolved artifact")

	return artifact, nil
}

// Constraint exposes an alias's version constraint for display before
// committing to a download. Nil means unconstrained.
func (m *Manager) Constraint(alias string) (*semver.Constraints, error) {
	r, err := m.runtime(alias)
	if err != nil {
		return nil, err
	}
	return r.VersionConstraint(), nil
}

// Prepare resolves, downloads and unpacks the runtime for an alias, returning
// the install directory. A version already in the cache is returned without
// any network traffic.
func (m *Manager) Prepare(ctx context.Context, alias string, target types.Target) (string, error) {
	r, err := m.runtime(alias)
	if err != nil {
		return "", err
	}

	artifact, err := m.Resolve(ctx, alias, target)
	if err != nil {
		return "", err
	}

	if path, ok := m.cache.Get(r.Name(), artifact.RawVersion); ok {
		return path, nil
	}

	tempDir, err := os.MkdirTemp("", "provis-download-*")
	if err != nil {
		return "", fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	archivePath := filepath.Join(tempDir, filepath.Base(artifact.URL))
	file, err := os.Create(archivePath) // #nosec G304 - path is inside our temp dir
	if err != nil {
		return "", fmt.Errorf("creating archive file: %w", err)
	}

	if err := m.fetcher.Download(ctx, artifact.URL, file); err != nil {
		file.Close()
		return "", fmt.Errorf("downloading %s: %w", r.Name(), err)
	}
	file.Close()

	extractor, err := archive.ForFile(archivePath)
	if err != nil {
		return "", err
	}

	extractDir := filepath.Join(tempDir, "extracted")
	if err := os.MkdirAll(extractDir, 0750); err != nil {
		return "", fmt.Errorf("creating extract dir: %w", err)
	}

	if err := extractor.Extract(archivePath, extractDir); err != nil {
		return "", fmt.Errorf("extracting archive: %w", err)
	}

	root, err := archive.InstallRoot(extractDir)
	if err != nil {
		return "", fmt.Errorf("finding install root: %w", err)
	}

	if err := m.cache.Set(r.Name(), artifact.RawVersion, root); err != nil {
		return "", fmt.Errorf("caching runtime: %w", err)
	}

	return m.cache.Path(r.Name(), artifact.RawVersion), nil
}

// BinPath returns the alias's executable path relative to the install
// directory Prepare returns.
func (m *Manager) BinPath(alias string, target types.Target) (string, error) {
	r, err := m.runtime(alias)
	if err != nil {
		return "", err
	}
	return r.BinPath(target), nil
}

func (m *Manager) runtime(alias string) (types.Runtime, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.runtimes[alias]
	if !ok {
		return nil, fmt.Errorf("runtime %s not found", alias)
	}
	return r, nil
}
