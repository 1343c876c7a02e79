package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTarGz(t *testing.T, dir string, files map[string]string) string {
	t.Helper()

	path := filepath.Join(dir, "archive.tar.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0755,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return path
}

func makeZip(t *testing.T, dir string, files map[string]string) string {
	t.Helper()

	path := filepath.Join(dir, "archive.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

func TestTarGzExtract(t *testing.T) {
	dir := t.TempDir()
	src := makeTarGz(t, dir, map[string]string{
		"node-v20.0.0/bin/node":               "#!/bin/sh\n",
		"node-v20.0.0/lib/node_modules/.keep": "",
	})

	dest := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(dest, 0750))
	require.NoError(t, (&TarGzExtractor{}).Extract(src, dest))

	content, err := os.ReadFile(filepath.Join(dest, "node-v20.0.0", "bin", "node"))
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n", string(content))
}

func TestTarGzExtract_RejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	src := makeTarGz(t, dir, map[string]string{
		"../escape": "nope",
	})

	dest := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(dest, 0750))

	err := (&TarGzExtractor{}).Extract(src, dest)
	assert.ErrorContains(t, err, "invalid path")
}

func TestZipExtract(t *testing.T) {
	dir := t.TempDir()
	src := makeZip(t, dir, map[string]string{
		"jdk-21.0.3/bin/java.exe": "MZ",
	})

	dest := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(dest, 0750))
	require.NoError(t, (&ZipExtractor{}).Extract(src, dest))

	content, err := os.ReadFile(filepath.Join(dest, "jdk-21.0.3", "bin", "java.exe"))
	require.NoError(t, err)
	assert.Equal(t, "MZ", string(content))
}

func TestZipExtract_RejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	src := makeZip(t, dir, map[string]string{
		"../escape.txt": "nope",
	})

	dest := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(dest, 0750))

	err := (&ZipExtractor{}).Extract(src, dest)
	assert.ErrorContains(t, err, "invalid path")
}

func TestForFile(t *testing.T) {
	e, err := ForFile("node-v20.0.0-linux-x64.tar.gz")
	require.NoError(t, err)
	assert.IsType(t, &TarGzExtractor{}, e)

	e, err = ForFile("zulu21.34.19-ca-jdk21.0.3-win_x64.zip")
	require.NoError(t, err)
	assert.IsType(t, &ZipExtractor{}, e)

	_, err = ForFile("runtime.7z")
	assert.ErrorContains(t, err, "unsupported archive format")
}

func TestInstallRoot(t *testing.T) {
	// A single wrapping directory is the install root.
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node-v20.0.0", "bin"), 0750))

	root, err := InstallRoot(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "node-v20.0.0"), root)
}

func TestInstallRoot_FlatTree(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "bin"), 0750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("hi"), 0600))

	root, err := InstallRoot(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, root)
}
