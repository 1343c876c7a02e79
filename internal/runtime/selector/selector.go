// Package selector picks exactly one artifact from a normalized catalog.
package selector

import (
	"github.com/Masterminds/semver/v3"

	"github.com/provisdev/provis/internal/runtime/types"
)

// Select returns the single artifact for a catalog and optional constraint:
// the first artifact in catalog order whose version satisfies the constraint,
// or the first artifact outright when no constraint exists. Providers hand in
// target-compatible catalogs ordered newest first, so the result is the
// newest satisfying version. Selection is a pure function of its inputs; an
// empty result is ErrUnsupportedTarget, never a near-match.
func Select(catalog types.Catalog, c *semver.Constraints) (types.Artifact, error) {
	for _, artifact := range catalog {
		if c != nil && !c.Check(artifact.Version) {
			continue
		}
		return artifact, nil
	}
	return types.Artifact{}, types.ErrUnsupportedTarget
}
