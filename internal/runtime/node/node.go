// Package node resolves Node.js builds from two providers: the official
// release listing (an HTML table) and the unofficial-builds index (a JSON
// array covering platforms the official listing lacks, such as musl Linux and
// Windows on ARM64). Routing between them is a pure function of the target.
package node

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/provisdev/provis/internal/runtime/constraint"
	"github.com/provisdev/provis/internal/runtime/types"
)

const (
	officialReleasesURL    = "https://nodejs.org/en/download/releases/"
	officialDownloadBase   = "https://nodejs.org/download/release/"
	unofficialIndexURL     = "https://unofficial-builds.nodejs.org/download/release/index.json"
	unofficialDownloadBase = "https://unofficial-builds.nodejs.org/download/release/"
)

// Fetcher retrieves the raw provider catalogs.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Node resolves Node.js runtime artifacts for one command alias. The node,
// npm and npx aliases share one artifact and differ only in binary path.
type Node struct {
	fetcher       Fetcher
	cmd           string
	projectDir    string
	officialURL   string
	unofficialURL string
}

// New creates a Node.js resolver for the given command alias, sourcing
// version constraints from the current directory's project metadata.
func New(fetcher Fetcher, cmd string) *Node {
	return &Node{
		fetcher:       fetcher,
		cmd:           cmd,
		projectDir:    ".",
		officialURL:   officialReleasesURL,
		unofficialURL: unofficialIndexURL,
	}
}

// Name returns the runtime family name, shared by all aliases.
func (n *Node) Name() string {
	return "node"
}

// Command returns the alias this resolver maps binaries for.
func (n *Node) Command() string {
	return n.cmd
}

// VersionConstraint sources the optional version range from package.json or
// .nvmrc. Nil means pick the newest compatible release.
func (n *Node) VersionConstraint() *semver.Constraints {
	return constraint.Resolve(n.projectDir)
}

// BinPath returns the alias's executable path inside the unpacked archive.
func (n *Node) BinPath(target types.Target) string {
	if target.OS == types.Windows {
		switch n.cmd {
		case "node":
			return "node.exe"
		case "npm":
			return "npm.cmd"
		default:
			return "npx.cmd"
		}
	}
	switch n.cmd {
	case "node":
		return "bin/node"
	case "npm":
		return "bin/npm"
	default:
		return "bin/npx"
	}
}

// Candidates routes the target to a provider and returns the compatible
// artifacts in catalog order, newest first.
func (n *Node) Candidates(ctx context.Context, target types.Target) (types.Catalog, error) {
	if usesUnofficialBuilds(target) {
		return n.unofficialCandidates(ctx, target)
	}
	return n.officialCandidates(ctx, target)
}

// usesUnofficialBuilds is the provider routing rule: platforms the official
// listing does not publish come from unofficial-builds. The rule is total
// over every supported (os, arch, variant) combination.
func usesUnofficialBuilds(target types.Target) bool {
	if target.OS == types.Linux && target.Variant == types.Musl {
		return true
	}
	if target.OS == types.Windows && target.Arch == types.Arm64 {
		return true
	}
	return false
}

// officialSuffix is the fixed per-(os, arch) filename suffix templated into
// the versioned download path. The official listing carries no direct URLs.
func officialSuffix(target types.Target) string {
	switch {
	case target.OS == types.Windows:
		return "win-x64.zip"
	case target.OS == types.Linux && target.Arch == types.Armv7:
		return "linux-armv7l.tar.gz"
	case target.OS == types.Linux && target.Arch == types.Arm64:
		return "linux-arm64.tar.gz"
	case target.OS == types.Linux:
		return "linux-x64.tar.gz"
	case target.OS == types.Mac && target.Arch == types.Arm64:
		return "darwin-arm64.tar.gz"
	default:
		return "darwin-x64.tar.gz"
	}
}

// officialCandidates parses the release table. Rows expose their fields
// through a data-label attribute per cell; a row without a Version field is
// skipped. A document without the version table at all is malformed.
func (n *Node) officialCandidates(ctx context.Context, target types.Target) (types.Catalog, error) {
	body, err := n.fetcher.Get(ctx, n.officialURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &types.MalformedCatalogError{Provider: "nodejs.org", Err: err}
	}

	rows := doc.Find("#tbVersions tbody tr")
	if rows.Length() == 0 {
		return nil, &types.MalformedCatalogError{Provider: "nodejs.org", Err: fmt.Errorf("release table not found")}
	}

	suffix := officialSuffix(target)
	catalog := make(types.Catalog, 0, rows.Length())

	rows.Each(func(_ int, row *goquery.Selection) {
		fields := map[string]string{}
		row.Find("td").Each(func(_ int, cell *goquery.Selection) {
			label, ok := cell.Attr("data-label")
			if !ok {
				return
			}
			value := strings.ReplaceAll(cell.Text(), "Node.js", "")
			fields[strings.TrimSpace(label)] = strings.TrimSpace(value)
		})

		raw, ok := fields["Version"]
		if !ok || raw == "" {
			return
		}

		version, err := semver.NewVersion(raw)
		if err != nil {
			log.Debug().Str("version", raw).Msg("skipping release row with unparseable version")
			return
		}

		catalog = append(catalog, types.Artifact{
			Version:    version,
			RawVersion: raw,
			URL:        fmt.Sprintf("%sv%s/node-v%s-%s", officialDownloadBase, raw, raw, suffix),
			OS:         target.OS,
			Arch:       target.Arch,
			LTS:        types.NamedLTS(fields["LTS"]),
			Ext:        target.ArchiveExt(),
		})
	})

	return catalog, nil
}

// unofficialRelease is one record of the unofficial-builds index.
type unofficialRelease struct {
	Version  string    `json:"version"`
	Date     string    `json:"date"`
	Files    []string  `json:"files"`
	NPM      string    `json:"npm"`
	V8       string    `json:"v8"`
	Modules  string    `json:"modules"`
	LTS      types.LTS `json:"lts"`
	Security bool      `json:"security"`
}

// unofficialFile maps the target to the file token the index lists per
// release. A release whose files lack the token has no build for the target.
func unofficialFile(target types.Target) string {
	switch {
	case target.OS == types.Windows && target.Arch == types.Arm64:
		return "win-arm64-zip"
	case target.OS == types.Windows:
		return "win-x64-zip"
	case target.OS == types.Linux && target.Arch == types.Armv7 && target.Variant == types.Musl:
		return "linux-armv7l-musl"
	case target.OS == types.Linux && target.Arch == types.Arm64 && target.Variant == types.Musl:
		return "linux-arm64-musl"
	case target.OS == types.Linux && target.Arch == types.X86_64 && target.Variant == types.Musl:
		return "linux-x64-musl"
	case target.OS == types.Linux && target.Arch == types.Armv7:
		return "linux-armv7l"
	case target.OS == types.Linux && target.Arch == types.Arm64:
		return "linux-arm64"
	default:
		return "linux-x64"
	}
}

// unofficialCandidates filters the index to releases carrying the target's
// file token. The index is pre-sorted newest first and that order must
// survive: selection traverses it first-match-wins.
func (n *Node) unofficialCandidates(ctx context.Context, target types.Target) (types.Catalog, error) {
	body, err := n.fetcher.Get(ctx, n.unofficialURL)
	if err != nil {
		return nil, err
	}

	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, &types.MalformedCatalogError{Provider: "unofficial-builds", Err: err}
	}

	file := unofficialFile(target)
	catalog := make(types.Catalog, 0, len(records))

	for _, record := range records {
		var release unofficialRelease
		if err := json.Unmarshal(record, &release); err != nil {
			log.Debug().Err(err).Msg("skipping malformed unofficial-builds record")
			continue
		}

		if !containsFile(release.Files, file) {
			continue
		}

		version, err := semver.NewVersion(release.Version)
		if err != nil {
			log.Debug().Str("version", release.Version).Msg("skipping release with unparseable version")
			continue
		}

		catalog = append(catalog, types.Artifact{
			Version:    version,
			RawVersion: release.Version,
			URL:        fmt.Sprintf("%s%s/node-%s-%s", unofficialDownloadBase, release.Version, release.Version, archiveName(file)),
			OS:         target.OS,
			Arch:       target.Arch,
			Musl:       target.Variant == types.Musl,
			LTS:        release.LTS,
			Security:   release.Security,
			Ext:        target.ArchiveExt(),
		})
	}

	return catalog, nil
}

// archiveName turns an index file token into the published archive name:
// "-zip" tokens are zip archives, everything else is tar.gz.
func archiveName(file string) string {
	if strings.HasSuffix(file, "-zip") {
		return strings.TrimSuffix(file, "-zip") + ".zip"
	}
	return file + ".tar.gz"
}

func containsFile(files []string, file string) bool {
	for _, f := range files {
		if f == file {
			return true
		}
	}
	return false
}
