package types

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// OS is the operating system a build targets.
type OS string

const (
	Windows OS = "windows"
	Linux   OS = "linux"
	Mac     OS = "darwin"
)

// Arch is the CPU architecture a build targets.
type Arch string

const (
	X86_64 Arch = "x86_64"
	Arm64  Arch = "arm64"
	Armv7  Arch = "armv7"
)

// Variant is the libc/ABI flavor of a build. The empty variant means the
// platform default (glibc on Linux).
type Variant string

const (
	VariantNone Variant = ""
	Musl        Variant = "musl"
)

// Target describes the platform a runtime build must match. It is created
// once per invocation and read-only thereafter.
type Target struct {
	OS      OS
	Arch    Arch
	Variant Variant
}

func (t Target) String() string {
	if t.Variant != VariantNone {
		return fmt.Sprintf("%s/%s/%s", t.OS, t.Arch, t.Variant)
	}
	return fmt.Sprintf("%s/%s", t.OS, t.Arch)
}

// ArchiveExt returns the archive extension runtimes publish for this OS.
func (t Target) ArchiveExt() string {
	if t.OS == Windows {
		return "zip"
	}
	return "tar.gz"
}

// CurrentTarget detects the host platform.
func CurrentTarget() Target {
	t := Target{OS: OS(runtime.GOOS), Arch: X86_64}

	switch runtime.GOARCH {
	case "arm64":
		t.Arch = Arm64
	case "arm":
		t.Arch = Armv7
	}

	if t.OS == Linux && hostIsMusl() {
		t.Variant = Musl
	}

	return t
}

// hostIsMusl probes for the musl dynamic loader.
func hostIsMusl() bool {
	matches, err := filepath.Glob("/lib/ld-musl-*")
	return err == nil && len(matches) > 0
}

// ParseTarget parses an "os/arch" or "os/arch/musl" override string.
func ParseTarget(s string) (Target, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "/")
	if len(parts) < 2 || len(parts) > 3 {
		return Target{}, fmt.Errorf("invalid target %q, expected os/arch[/musl]", s)
	}

	var t Target
	switch parts[0] {
	case "windows", "win":
		t.OS = Windows
	case "linux":
		t.OS = Linux
	case "darwin", "mac", "macos":
		t.OS = Mac
	default:
		return Target{}, fmt.Errorf("unknown os %q", parts[0])
	}

	switch parts[1] {
	case "x86_64", "amd64", "x64":
		t.Arch = X86_64
	case "arm64", "aarch64":
		t.Arch = Arm64
	case "armv7", "arm":
		t.Arch = Armv7
	default:
		return Target{}, fmt.Errorf("unknown arch %q", parts[1])
	}

	if len(parts) == 3 {
		if parts[2] != string(Musl) {
			return Target{}, fmt.Errorf("unknown variant %q", parts[2])
		}
		if t.OS != Linux {
			return Target{}, fmt.Errorf("variant %s is only valid on linux", parts[2])
		}
		t.Variant = Musl
	}

	return t, nil
}

// LTS is a release's long-term-support marker. Upstream catalogs encode it as
// either a codename string or a boolean flag, so it is kept as a tagged union
// rather than collapsed at decode time.
type LTS struct {
	Name  string
	Flag  bool
	named bool
}

// NamedLTS returns the codename form of the marker.
func NamedLTS(name string) LTS {
	return LTS{Name: name, named: true}
}

// FlagLTS returns the boolean form of the marker.
func FlagLTS(flag bool) LTS {
	return LTS{Flag: flag}
}

func (l *LTS) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*l = NamedLTS(name)
		return nil
	}

	var flag bool
	if err := json.Unmarshal(data, &flag); err == nil {
		*l = FlagLTS(flag)
		return nil
	}

	return fmt.Errorf("lts field is neither string nor bool: %s", data)
}

func (l LTS) MarshalJSON() ([]byte, error) {
	if l.named {
		return json.Marshal(l.Name)
	}
	return json.Marshal(l.Flag)
}

// IsLTS reports whether the release is a long-term-support release under
// either encoding.
func (l LTS) IsLTS() bool {
	if l.named {
		return l.Name != ""
	}
	return l.Flag
}

// Artifact is one normalized, downloadable build record. Artifacts are
// produced fresh per resolution and never mutated.
type Artifact struct {
	Version    *semver.Version
	RawVersion string
	URL        string
	OS         OS
	Arch       Arch
	Musl       bool
	LTS        LTS
	Security   bool
	Ext        string
}

// Catalog is the ordered set of artifacts retrieved from one provider. The
// order is provider-defined and selection relies on first-match traversal.
type Catalog []Artifact

// Runtime is the per-runtime capability bundle: candidate generation, binary
// path mapping and version constraint sourcing. Implementations are stateless
// beyond static configuration such as the command alias requested.
type Runtime interface {
	// Name is the runtime family. Aliases sharing one artifact (npm, npx)
	// report the same family name.
	Name() string

	// Command is the alias this instance maps binaries for.
	Command() string

	// Candidates returns the target-compatible artifacts in provider order.
	Candidates(ctx context.Context, target Target) (Catalog, error)

	// BinPath is the executable path relative to the unpacked artifact root.
	BinPath(target Target) string

	// VersionConstraint is the project-sourced version range. Nil means no
	// filter, pick newest.
	VersionConstraint() *semver.Constraints
}

// Downloader handles retrieving archives.
type Downloader interface {
	Download(ctx context.Context, url string, w io.Writer) error
}

// Extractor handles archive extraction.
type Extractor interface {
	Extract(src, dest string) error
}

// Cache manages installed runtimes.
type Cache interface {
	Get(runtime, version string) (string, bool)
	Set(runtime, version, path string) error
	Path(runtime, version string) string
}

// ErrUnsupportedTarget reports that no provider routing or no surviving
// artifact exists for the target. It is distinct from network failures so
// callers can report "no build for this platform" specifically.
var ErrUnsupportedTarget = errors.New("no build available for this platform")

// NetworkError wraps a transport or non-success failure while fetching an
// upstream catalog or archive. It is fatal for the resolution attempt.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// MalformedCatalogError reports that a provider's top-level catalog structure
// failed to parse. Single malformed rows are skipped, not surfaced.
type MalformedCatalogError struct {
	Provider string
	Err      error
}

func (e *MalformedCatalogError) Error() string {
	return fmt.Sprintf("malformed %s catalog: %v", e.Provider, e.Err)
}

func (e *MalformedCatalogError) Unwrap() error {
	return e.Err
}
