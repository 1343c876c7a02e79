// Package constraint derives an optional version requirement from local
// project metadata. Sources are searched in order and never merged; the first
// source that exists decides the outcome. Unparsable content degrades to "no
// constraint" rather than failing, so callers never see a constraint error.
package constraint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog/log"
)

// packageManifest is the subset of package.json the resolver reads.
type packageManifest struct {
	Engines map[string]string `json:"engines"`
}

// Resolve returns the version constraint for the node runtime sourced from
// the project rooted at or above dir. Nil means no filter, pick newest.
func Resolve(dir string) *semver.Constraints {
	if c, ok := fromManifest(dir); ok {
		return c
	}
	return fromDotfile(filepath.Join(dir, ".nvmrc"))
}

// fromManifest reads engines.node from the nearest package.json. The second
// return value reports whether a manifest with an engines field was found; if
// so the search stops here even when the range does not parse.
func fromManifest(dir string) (*semver.Constraints, bool) {
	path, ok := locateManifest(dir)
	if !ok {
		return nil, false
	}

	data, err := os.ReadFile(path) // #nosec G304 - path comes from the project tree walk
	if err != nil {
		return nil, false
	}

	var manifest packageManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		log.Debug().Err(err).Str("path", path).Msg("unreadable package.json")
		return nil, false
	}

	rng, ok := manifest.Engines["node"]
	if !ok {
		return nil, false
	}

	c, err := semver.NewConstraint(rng)
	if err != nil {
		log.Debug().Str("range", rng).Msg("unparsable engines.node range, ignoring")
		return nil, true
	}

	log.Debug().Str("range", rng).Str("path", path).Msg("version constraint from package.json")
	return c, true
}

// fromDotfile reads a single version token, stripping the conventional "v"
// marker before parsing.
func fromDotfile(path string) *semver.Constraints {
	data, err := os.ReadFile(path) // #nosec G304 - path is <dir>/.nvmrc
	if err != nil {
		return nil
	}

	token := strings.TrimSpace(string(data))
	token = strings.TrimPrefix(token, "v")

	c, err := semver.NewConstraint(token)
	if err != nil {
		log.Debug().Str("token", token).Str("path", path).Msg("unparsable version token, ignoring")
		return nil
	}

	log.Debug().Str("token", token).Str("path", path).Msg("version constraint from dotfile")
	return c
}

// locateManifest walks up from dir looking for the closest package.json.
func locateManifest(dir string) (string, bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}

	for {
		path := filepath.Join(dir, "package.json")
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
