package cli

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rtypes "github.com/provisdev/provis/internal/runtime/types"
)

func TestResolveTarget_HostDefault(t *testing.T) {
	viper.Set("target", "")
	t.Cleanup(func() { viper.Set("target", "") })

	target, err := resolveTarget()
	require.NoError(t, err)
	assert.Equal(t, rtypes.OS(runtime.GOOS), target.OS)
}

func TestResolveTarget_Override(t *testing.T) {
	viper.Set("target", "linux/arm64/musl")
	t.Cleanup(func() { viper.Set("target", "") })

	target, err := resolveTarget()
	require.NoError(t, err)
	assert.Equal(t, rtypes.Target{OS: rtypes.Linux, Arch: rtypes.Arm64, Variant: rtypes.Musl}, target)
}

func TestResolveTarget_InvalidOverride(t *testing.T) {
	viper.Set("target", "plan9/mips")
	t.Cleanup(func() { viper.Set("target", "") })

	_, err := resolveTarget()
	assert.Error(t, err)
}

func TestPrintResolution(t *testing.T) {
	var buf bytes.Buffer
	printResolution(&buf, resolution{
		Runtime:    "node",
		Version:    "v18.5.0",
		URL:        "https://unofficial-builds.nodejs.org/download/release/v18.5.0/node-v18.5.0-linux-x64-musl.tar.gz",
		Target:     "linux/x86_64/musl",
		LTS:        true,
		Constraint: "^18",
	})

	out := buf.String()
	assert.Contains(t, out, "node")
	assert.Contains(t, out, "v18.5.0")
	assert.Contains(t, out, "linux/x86_64/musl")
	assert.Contains(t, out, "constraint: ")
	assert.Contains(t, out, "lts")
	assert.Contains(t, out, "node-v18.5.0-linux-x64-musl.tar.gz")
}

func TestPrintListings(t *testing.T) {
	var buf bytes.Buffer
	printListings(&buf, []listing{
		{Version: "v20.1.0", URL: "https://example.com/a.tar.gz"},
		{Version: "v18.5.0", URL: "https://example.com/b.tar.gz", Tags: []string{"lts", "security"}},
	})

	out := buf.String()
	assert.Contains(t, out, "v20.1.0")
	assert.Contains(t, out, "v18.5.0")
	assert.Contains(t, out, "lts,security")
}

func TestArtifactTags(t *testing.T) {
	assert.Nil(t, artifactTags(rtypes.Artifact{}))
	assert.Equal(t, []string{"lts"}, artifactTags(rtypes.Artifact{LTS: rtypes.NamedLTS("Iron")}))
	assert.Equal(t, []string{"lts", "security"}, artifactTags(rtypes.Artifact{LTS: rtypes.FlagLTS(true), Security: true}))
	assert.Equal(t, []string{"security"}, artifactTags(rtypes.Artifact{Security: true}))
}

func TestResolutionConstraintOmittedWhenEmpty(t *testing.T) {
	var buf bytes.Buffer
	printResolution(&buf, resolution{
		Runtime: "java",
		Version: "21.0.3",
		URL:     "https://cdn.azul.com/zulu/bin/zulu21.34.19-ca-jdk21.0.3-linux_x64.tar.gz",
		Target:  "linux/x86_64",
	})

	assert.NotContains(t, buf.String(), "constraint:")
}

func TestVersionString(t *testing.T) {
	assert.Contains(t, getVersion(), Version)
	assert.Contains(t, getVersion(), Commit)
}
