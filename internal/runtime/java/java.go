// Package java resolves Azul Zulu JDK builds. The upstream catalog is a flat
// record array that already carries platform fields, so normalization is a
// per-record mapping and selection is a first-match scan.
package java

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog/log"

	"github.com/provisdev/provis/internal/runtime/types"
)

const zuluBundlesURL = "https://www.azul.com/wp-admin/admin-ajax.php?action=bundles&endpoint=community&use_stage=false&include_fields=java_version,release_status,abi,arch,bundle_type,cpu_gen,ext,features,hw_bitness,javafx,latest,os,support_term"

// Fetcher retrieves the raw provider catalog.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// JDK resolves Java runtime artifacts.
type JDK struct {
	fetcher Fetcher
	url     string
}

// New creates the Java runtime resolver.
func New(fetcher Fetcher) *JDK {
	return &JDK{fetcher: fetcher, url: zuluBundlesURL}
}

// Name returns the runtime family name.
func (j *JDK) Name() string {
	return "java"
}

// Command returns the alias this resolver maps binaries for.
func (j *JDK) Command() string {
	return "java"
}

// VersionConstraint returns nil: JDK selection takes the catalog's first
// compatible bundle, there is no project-level version source.
func (j *JDK) VersionConstraint() *semver.Constraints {
	return nil
}

// BinPath returns the java executable path inside the unpacked bundle.
func (j *JDK) BinPath(target types.Target) string {
	if target.OS == types.Windows {
		return "bin/java.exe"
	}
	return "bin/java"
}

// Candidates fetches the bundle catalog and returns the artifacts compatible
// with target, preserving the provider's order. Selection is first-match-wins
// over the returned catalog.
func (j *JDK) Candidates(ctx context.Context, target types.Target) (types.Catalog, error) {
	body, err := j.fetcher.Get(ctx, j.url)
	if err != nil {
		return nil, err
	}

	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, &types.MalformedCatalogError{Provider: "zulu", Err: err}
	}

	catalog := make(types.Catalog, 0, len(records))
	for _, record := range records {
		var b zuluBundle
		if err := json.Unmarshal(record, &b); err != nil {
			log.Debug().Err(err).Msg("skipping malformed zulu record")
			continue
		}

		artifact, ok := normalize(b)
		if !ok {
			continue
		}

		if compatible(artifact, target) {
			catalog = append(catalog, artifact)
		}
	}

	return catalog, nil
}

// zuluBundle is one record of the community bundles endpoint.
type zuluBundle struct {
	Abi           string `json:"abi"`
	Arch          string `json:"arch"`
	BundleType    string `json:"bundle_type"`
	Ext           string `json:"ext"`
	HWBitness     string `json:"hw_bitness"`
	JavaVersion   []int  `json:"java_version"`
	JdkVersion    []int  `json:"jdk_version"`
	Latest        bool   `json:"latest"`
	Name          string `json:"name"`
	OS            string `json:"os"`
	ReleaseStatus string `json:"release_status"`
	SupportTerm   string `json:"support_term"`
	URL           string `json:"url"`
}

// zuluArchTable maps the catalog's (cpu family, hw bitness) pair to a
// canonical architecture. The mapping is externally validated configuration:
// unlisted pairs drop the record from the catalog rather than failing it.
var zuluArchTable = map[[2]string]types.Arch{
	{"x86", "64"}: types.X86_64,
	{"arm", "64"}: types.Arm64,
	{"arm", "32"}: types.Armv7,
}

// normalize converts one bundle into a canonical artifact. Records with an
// unrecognized architecture pair, an unusable version or a relative URL are
// dropped, not treated as catalog errors.
func normalize(b zuluBundle) (types.Artifact, bool) {
	arch, ok := zuluArchTable[[2]string{b.Arch, b.HWBitness}]
	if !ok {
		return types.Artifact{}, false
	}

	if len(b.JavaVersion) == 0 {
		return types.Artifact{}, false
	}
	raw := joinVersion(b.JavaVersion)
	version, err := semver.NewVersion(raw)
	if err != nil {
		log.Debug().Str("version", raw).Msg("skipping zulu record with unparseable version")
		return types.Artifact{}, false
	}

	if u, err := url.Parse(b.URL); err != nil || !u.IsAbs() {
		log.Debug().Str("url", b.URL).Msg("skipping zulu record without absolute url")
		return types.Artifact{}, false
	}

	return types.Artifact{
		Version:    version,
		RawVersion: raw,
		URL:        b.URL,
		OS:         normalizeOS(b.OS),
		Arch:       arch,
		Musl:       zuluOSMatches(b.OS, types.Musl),
		LTS:        types.FlagLTS(strings.EqualFold(b.SupportTerm, "lts")),
		Ext:        b.Ext,
	}, true
}

func normalizeOS(os string) types.OS {
	switch {
	case os == "windows":
		return types.Windows
	case strings.Contains(os, "linux"):
		return types.Linux
	default:
		return types.Mac
	}
}

// zuluOSMatches reports whether the free-text os field carries the variant
// tag. Upstream has no structured variant flag, so this is a substring
// heuristic kept in one place.
func zuluOSMatches(os string, variant types.Variant) bool {
	return strings.Contains(os, string(variant))
}

// compatible is the single-best-match rule: os, arch, archive extension and
// libc variant must all equal the target's. A musl target requires a
// musl-tagged bundle and a glibc target rejects one; a selected artifact
// always matches the target's variant exactly, never as a fallback.
func compatible(a types.Artifact, target types.Target) bool {
	if a.OS != target.OS || a.Arch != target.Arch {
		return false
	}
	if a.Ext != target.ArchiveExt() {
		return false
	}
	if (target.Variant == types.Musl) != a.Musl {
		return false
	}
	return true
}

func joinVersion(parts []int) string {
	// Some bundles carry a fourth build component; the canonical version is
	// major.minor.patch.
	if len(parts) > 3 {
		parts = parts[:3]
	}
	strs := make([]string, len(parts))
	for i, p := range parts {
		strs[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(strs, ".")
}
