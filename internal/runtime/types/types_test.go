package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		input    string
		expected Target
	}{
		{"linux/x86_64", Target{OS: Linux, Arch: X86_64}},
		{"linux/amd64", Target{OS: Linux, Arch: X86_64}},
		{"linux/arm64/musl", Target{OS: Linux, Arch: Arm64, Variant: Musl}},
		{"windows/x64", Target{OS: Windows, Arch: X86_64}},
		{"win/arm64", Target{OS: Windows, Arch: Arm64}},
		{"darwin/aarch64", Target{OS: Mac, Arch: Arm64}},
		{"mac/x86_64", Target{OS: Mac, Arch: X86_64}},
		{"Linux/ARM", Target{OS: Linux, Arch: Armv7}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			target, err := ParseTarget(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, target)
		})
	}
}

func TestParseTarget_Invalid(t *testing.T) {
	for _, input := range []string{
		"",
		"linux",
		"linux/x86_64/musl/extra",
		"plan9/amd64",
		"linux/sparc",
		"linux/x86_64/uclibc",
		"windows/x64/musl", // musl is linux-only
	} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseTarget(input)
			assert.Error(t, err)
		})
	}
}

func TestTargetString(t *testing.T) {
	assert.Equal(t, "linux/x86_64", Target{OS: Linux, Arch: X86_64}.String())
	assert.Equal(t, "linux/arm64/musl", Target{OS: Linux, Arch: Arm64, Variant: Musl}.String())
}

func TestTargetArchiveExt(t *testing.T) {
	assert.Equal(t, "zip", Target{OS: Windows, Arch: X86_64}.ArchiveExt())
	assert.Equal(t, "tar.gz", Target{OS: Linux, Arch: X86_64}.ArchiveExt())
	assert.Equal(t, "tar.gz", Target{OS: Mac, Arch: Arm64}.ArchiveExt())
}

func TestLTSUnmarshal(t *testing.T) {
	var lts LTS
	require.NoError(t, json.Unmarshal([]byte(`"Iron"`), &lts))
	assert.True(t, lts.IsLTS())
	assert.Equal(t, "Iron", lts.Name)

	require.NoError(t, json.Unmarshal([]byte(`false`), &lts))
	assert.False(t, lts.IsLTS())

	require.NoError(t, json.Unmarshal([]byte(`true`), &lts))
	assert.True(t, lts.IsLTS())

	assert.Error(t, json.Unmarshal([]byte(`42`), &lts))
}

func TestLTSMarshalRoundTrip(t *testing.T) {
	data, err := json.Marshal(NamedLTS("Hydrogen"))
	require.NoError(t, err)
	assert.Equal(t, `"Hydrogen"`, string(data))

	data, err = json.Marshal(FlagLTS(false))
	require.NoError(t, err)
	assert.Equal(t, `false`, string(data))
}

func TestLTSEmptyNameIsNotLTS(t *testing.T) {
	// An empty LTS cell in the release table means the row is not LTS.
	assert.False(t, NamedLTS("").IsLTS())
}

func TestErrorKinds(t *testing.T) {
	netErr := &NetworkError{URL: "https://example.com/index.json", Err: fmt.Errorf("connection refused")}
	assert.Contains(t, netErr.Error(), "https://example.com/index.json")

	wrapped := fmt.Errorf("resolving node: %w", netErr)
	var asNet *NetworkError
	assert.True(t, errors.As(wrapped, &asNet))

	// UnsupportedTarget is distinguishable from network failures.
	unsupported := fmt.Errorf("node on linux/arm64/musl: %w", ErrUnsupportedTarget)
	assert.True(t, errors.Is(unsupported, ErrUnsupportedTarget))
	assert.False(t, errors.As(unsupported, &asNet))

	catErr := &MalformedCatalogError{Provider: "zulu", Err: fmt.Errorf("unexpected end of JSON input")}
	assert.Contains(t, catErr.Error(), "zulu")
	var asCat *MalformedCatalogError
	assert.True(t, errors.As(fmt.Errorf("fetch: %w", catErr), &asCat))
}
