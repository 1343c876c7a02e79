package java

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provisdev/provis/internal/runtime/fetch"
	"github.com/provisdev/provis/internal/runtime/selector"
	"github.com/provisdev/provis/internal/runtime/types"
)

const bundleFixture = `[
  {
    "arch": "x86", "hw_bitness": "64", "os": "linux", "ext": "tar.gz",
    "java_version": [21, 0, 3], "support_term": "lts",
    "url": "https://cdn.azul.com/zulu/bin/zulu21.34.19-ca-jdk21.0.3-linux_x64.tar.gz"
  },
  {
    "arch": "x86", "hw_bitness": "64", "os": "linux", "ext": "tar.gz",
    "java_version": [22, 0, 1], "support_term": "sts",
    "url": "https://cdn.azul.com/zulu/bin/zulu22.30.13-ca-jdk22.0.1-linux_x64.tar.gz"
  },
  {
    "arch": "x86", "hw_bitness": "64", "os": "linux-musl", "ext": "tar.gz",
    "java_version": [21, 0, 3], "support_term": "lts",
    "url": "https://cdn.azul.com/zulu/bin/zulu21.34.19-ca-jdk21.0.3-linux_musl_x64.tar.gz"
  },
  {
    "arch": "x86", "hw_bitness": "64", "os": "windows", "ext": "zip",
    "java_version": [21, 0, 3], "support_term": "lts",
    "url": "https://cdn.azul.com/zulu/bin/zulu21.34.19-ca-jdk21.0.3-win_x64.zip"
  },
  {
    "arch": "arm", "hw_bitness": "64", "os": "macos", "ext": "tar.gz",
    "java_version": [21, 0, 3], "support_term": "lts",
    "url": "https://cdn.azul.com/zulu/bin/zulu21.34.19-ca-jdk21.0.3-macosx_aarch64.tar.gz"
  },
  {
    "arch": "ppc", "hw_bitness": "64", "os": "linux", "ext": "tar.gz",
    "java_version": [21, 0, 3], "support_term": "lts",
    "url": "https://cdn.azul.com/zulu/bin/zulu21.34.19-ca-jdk21.0.3-linux_ppc64.tar.gz"
  }
]`

func newTestJDK(t *testing.T, payload string) (*JDK, *int) {
	t.Helper()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(server.Close)

	j := New(fetch.NewClient())
	j.url = server.URL
	return j, &calls
}

func TestCandidates_FirstMatchWins(t *testing.T) {
	j, _ := newTestJDK(t, bundleFixture)
	target := types.Target{OS: types.Linux, Arch: types.X86_64}

	catalog, err := j.Candidates(context.Background(), target)
	require.NoError(t, err)
	require.Len(t, catalog, 2)

	// Catalog order is preserved, selection takes the earlier record even
	// though a newer version appears later.
	artifact, err := selector.Select(catalog, nil)
	require.NoError(t, err)
	assert.Equal(t, "21.0.3", artifact.RawVersion)
	assert.Equal(t, "https://cdn.azul.com/zulu/bin/zulu21.34.19-ca-jdk21.0.3-linux_x64.tar.gz", artifact.URL)
	assert.True(t, artifact.LTS.IsLTS())
}

func TestCandidates_WindowsRequiresZip(t *testing.T) {
	j, _ := newTestJDK(t, bundleFixture)

	catalog, err := j.Candidates(context.Background(), types.Target{OS: types.Windows, Arch: types.X86_64})
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.Equal(t, "zip", catalog[0].Ext)
}

func TestCandidates_MuslTargetRequiresMuslBundle(t *testing.T) {
	j, _ := newTestJDK(t, bundleFixture)

	catalog, err := j.Candidates(context.Background(), types.Target{OS: types.Linux, Arch: types.X86_64, Variant: types.Musl})
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.Contains(t, catalog[0].URL, "linux_musl_x64")
}

func TestCandidates_MuslOnlyCatalogFailsNonMuslTarget(t *testing.T) {
	muslOnly := `[
	  {
	    "arch": "x86", "hw_bitness": "64", "os": "linux-musl", "ext": "tar.gz",
	    "java_version": [21, 0, 3], "support_term": "lts",
	    "url": "https://cdn.azul.com/zulu/bin/zulu21.34.19-ca-jdk21.0.3-linux_musl_x64.tar.gz"
	  }
	]`
	j, _ := newTestJDK(t, muslOnly)

	catalog, err := j.Candidates(context.Background(), types.Target{OS: types.Linux, Arch: types.X86_64})
	require.NoError(t, err)

	_, err = selector.Select(catalog, nil)
	assert.ErrorIs(t, err, types.ErrUnsupportedTarget)
}

func TestCandidates_UnrecognizedArchPairDropped(t *testing.T) {
	j, _ := newTestJDK(t, bundleFixture)

	// The ppc record never surfaces for any target; the mac arm64 record
	// maps through the (arm, 64) table entry.
	catalog, err := j.Candidates(context.Background(), types.Target{OS: types.Mac, Arch: types.Arm64})
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.Contains(t, catalog[0].URL, "macosx_aarch64")
}

func TestCandidates_MalformedRecordSkipped(t *testing.T) {
	mixed := `[
	  "not an object",
	  {
	    "arch": "x86", "hw_bitness": "64", "os": "linux", "ext": "tar.gz",
	    "java_version": [21, 0, 3], "support_term": "lts",
	    "url": "https://cdn.azul.com/zulu/bin/ok.tar.gz"
	  },
	  {
	    "arch": "x86", "hw_bitness": "64", "os": "linux", "ext": "tar.gz",
	    "java_version": [], "support_term": "lts",
	    "url": "https://cdn.azul.com/zulu/bin/no-version.tar.gz"
	  },
	  {
	    "arch": "x86", "hw_bitness": "64", "os": "linux", "ext": "tar.gz",
	    "java_version": [21, 0, 4], "support_term": "lts",
	    "url": "relative/path.tar.gz"
	  }
	]`
	j, _ := newTestJDK(t, mixed)

	catalog, err := j.Candidates(context.Background(), types.Target{OS: types.Linux, Arch: types.X86_64})
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.Equal(t, "https://cdn.azul.com/zulu/bin/ok.tar.gz", catalog[0].URL)
}

func TestCandidates_MalformedCatalogIsFatal(t *testing.T) {
	j, _ := newTestJDK(t, `{"not":"an array"`)

	_, err := j.Candidates(context.Background(), types.Target{OS: types.Linux, Arch: types.X86_64})

	var catErr *types.MalformedCatalogError
	require.True(t, errors.As(err, &catErr))
	assert.Equal(t, "zulu", catErr.Provider)
}

func TestCandidates_NetworkErrorSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	j := New(fetch.NewClient())
	j.url = server.URL

	_, err := j.Candidates(context.Background(), types.Target{OS: types.Linux, Arch: types.X86_64})

	var netErr *types.NetworkError
	assert.True(t, errors.As(err, &netErr))
}

func TestBinPath(t *testing.T) {
	j := New(fetch.NewClient())
	assert.Equal(t, "bin/java.exe", j.BinPath(types.Target{OS: types.Windows, Arch: types.X86_64}))
	assert.Equal(t, "bin/java", j.BinPath(types.Target{OS: types.Linux, Arch: types.X86_64}))
	assert.Equal(t, "bin/java", j.BinPath(types.Target{OS: types.Mac, Arch: types.Arm64}))
}

func TestVersionConstraint_NoneForJDK(t *testing.T) {
	assert.Nil(t, New(fetch.NewClient()).VersionConstraint())
}
