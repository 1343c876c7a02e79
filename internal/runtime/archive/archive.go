// Package archive unpacks downloaded runtime archives. It is a thin I/O
// collaborator of the resolution pipeline and carries no selection logic.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/provisdev/provis/internal/runtime/types"
)

// TarGzExtractor extracts tar.gz archives.
type TarGzExtractor struct{}

// Extract extracts a tar.gz archive into dest.
func (e *TarGzExtractor) Extract(src, dest string) error {
	file, err := os.Open(src) // #nosec G304 - src is a file this process downloaded
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer func() { _ = file.Close() }()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("creating gzip reader: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading tar header: %w", err)
		}

		target := filepath.Join(dest, header.Name) // #nosec G305 - validated below
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("invalid path in archive: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0750); err != nil {
				return fmt.Errorf("creating directory: %w", err)
			}
		case tar.TypeReg:
			// #nosec G115 - tar mode fits in a FileMode
			if err := writeFile(tr, target, os.FileMode(uint32(header.Mode))); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
				return fmt.Errorf("creating directory: %w", err)
			}
			if err := os.Symlink(header.Linkname, target); err != nil && !os.IsExist(err) {
				return fmt.Errorf("creating symlink: %w", err)
			}
		}
	}

	return nil
}

// ZipExtractor extracts zip archives.
type ZipExtractor struct{}

// Extract extracts a zip archive into dest.
func (e *ZipExtractor) Extract(src, dest string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("opening zip: %w", err)
	}
	defer func() { _ = r.Close() }()

	for _, f := range r.File {
		target := filepath.Join(dest, f.Name) // #nosec G305 - validated below
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("invalid path in archive: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, f.Mode()); err != nil {
				return fmt.Errorf("creating directory: %w", err)
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("opening file in archive: %w", err)
		}

		if err := writeFile(rc, target, f.Mode()); err != nil {
			_ = rc.Close()
			return err
		}
		_ = rc.Close()
	}

	return nil
}

func writeFile(src io.Reader, dest string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	file, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode) // #nosec G304 - dest validated by the extractor
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer func() { _ = file.Close() }()

	_, err = io.Copy(file, src)
	return err
}

// ForFile returns the extractor matching the archive's extension.
func ForFile(filename string) (types.Extractor, error) {
	switch {
	case strings.HasSuffix(filename, ".tar.gz") || strings.HasSuffix(filename, ".tgz"):
		return &TarGzExtractor{}, nil
	case strings.HasSuffix(filename, ".zip"):
		return &ZipExtractor{}, nil
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", filename)
	}
}

// InstallRoot returns the directory to install from an extraction. Runtime
// archives usually wrap their tree in a single versioned directory; when
// exactly one subdirectory exists it is the root, otherwise dir itself is.
func InstallRoot(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}

	return dir, nil
}
