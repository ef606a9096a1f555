package binary

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// maxBinarySize bounds the extracted executable.
const maxBinarySize = 256 << 20

// Extractor handles archive extraction
type Extractor struct{}

// NewExtractor creates a new extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractBinary extracts the executable named binaryName from a tar.gz
// archive to destPath. Entries with absolute paths or ".." components are
// rejected. The file is written next to destPath and renamed into place.
func (e *Extractor) ExtractBinary(archivePath, destPath, binaryName string) error {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archiveFile.Close()

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return fmt.Errorf("binary %s not found in archive", binaryName)
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		if err := checkEntryName(header.Name); err != nil {
			return err
		}

		if header.Typeflag != tar.TypeReg || path.Base(header.Name) != binaryName {
			continue
		}
		if header.Size > maxBinarySize {
			return fmt.Errorf("binary %s is too large (%d bytes)", binaryName, header.Size)
		}

		return writeExecutable(tarReader, destPath)
	}
}

// checkEntryName rejects archive entries that would resolve outside the
// extraction directory.
func checkEntryName(name string) error {
	if path.IsAbs(name) || filepath.IsAbs(name) {
		return fmt.Errorf("illegal file path: %s", name)
	}
	for _, part := range strings.Split(filepath.ToSlash(name), "/") {
		if part == ".." {
			return fmt.Errorf("illegal file path: %s", name)
		}
	}
	return nil
}

func writeExecutable(r io.Reader, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	tmpPath := destPath + ".tmp"
	outFile, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(outFile, io.LimitReader(r, maxBinarySize)); err != nil {
		outFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write file: %w", err)
	}
	if err := outFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}
	return SetExecutable(destPath)
}

// SetExecutable sets executable permissions on a file
func SetExecutable(path string) error {
	// Set permissions to 0755 (rwxr-xr-x)
	if err := os.Chmod(path, 0o755); err != nil {
		return fmt.Errorf("set executable: %w", err)
	}
	return nil
}
