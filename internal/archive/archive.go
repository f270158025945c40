// Package archive extracts gzip-compressed tar archives with a fixed size
// guard, shared by the setup pipeline's managed-source unpacking and the
// conda-from-archive environment build.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// MaxUncompressedBytes is the fixed 50 MiB limit on the sum of an
// archive's entry sizes, rejected before any file is written.
const MaxUncompressedBytes = 50 * 1024 * 1024

// ErrTooLarge is returned when an archive's summed entry sizes exceed
// MaxUncompressedBytes.
type ErrTooLarge struct {
	TotalBytes int64
}

func (e *ErrTooLarge) Error() string {
	return fmt.Sprintf("archive: summed entry sizes %d bytes exceed the %d byte limit", e.TotalBytes, MaxUncompressedBytes)
}

// Extract decompresses the gzip tar archive at archivePath into destDir,
// first verifying the sum of entry sizes does not exceed
// MaxUncompressedBytes. No file is written until the whole archive has
// been scanned and passes the guard.
func Extract(archivePath, destDir string) error {
	total, err := sumEntrySizes(archivePath)
	if err != nil {
		return err
	}
	if total > MaxUncompressedBytes {
		return &ErrTooLarge{TotalBytes: total}
	}
	return extractTo(archivePath, destDir)
}

func sumEntrySizes(archivePath string) (int64, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return 0, fmt.Errorf("archive: open %s: %w", archivePath, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return 0, fmt.Errorf("archive: gzip reader: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	var total int64
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("archive: read tar header: %w", err)
		}
		if hdr.Typeflag == tar.TypeReg {
			total += hdr.Size
		}
	}
	return total, nil
}

func extractTo(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("archive: open %s: %w", archivePath, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("archive: gzip reader: %w", err)
	}
	defer gz.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("archive: create dest dir: %w", err)
	}

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("archive: read tar header: %w", err)
		}

		target, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("archive: mkdir %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("archive: mkdir %s: %w", filepath.Dir(target), err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode&0o777))
			if err != nil {
				return fmt.Errorf("archive: create %s: %w", target, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("archive: write %s: %w", target, err)
			}
			out.Close()
		default:
			// Symlinks and other special entries are not followed or
			// recreated; skip them.
		}
	}
	return nil
}

// safeJoin joins destDir with name, rejecting any entry that would escape
// destDir via ".." path components (a zip-slip style guard).
func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, name)
	if target != destDir && !isSubPath(destDir, target) {
		return "", fmt.Errorf("archive: entry %q escapes destination directory", name)
	}
	return target, nil
}

func isSubPath(base, target string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	return rel != ".." && !hasDotDotPrefix(rel)
}

func hasDotDotPrefix(rel string) bool {
	return len(rel) >= 2 && rel[0] == '.' && rel[1] == '.' &&
		(len(rel) == 2 || rel[2] == filepath.Separator)
}
