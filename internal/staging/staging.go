// Package staging manages the temporary extraction area an install
// operation owns while it unpacks a package archive.
package staging

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"lukechampine.com/blake3"
)

// DirName is the reserved staging directory name, nested inside the
// live plugins directory. The fixed name makes leftovers from a
// crashed prior run recognizable.
const DirName = "___flightcore-temp-plugin-dir"

// ArchiveError reports an unreadable or corrupt archive.
type ArchiveError struct {
	Err error
}

func (e *ArchiveError) Error() string { return "STG_ARCHIVE: " + e.Err.Error() }
func (e *ArchiveError) Unwrap() error { return e.Err }

// Dir is an exclusively-owned extraction target. The install
// operation that created it must call Remove on every exit path.
type Dir struct {
	path string
}

// Create allocates the reserved staging directory under pluginsDir.
// A leftover directory from a crashed prior run is removed first;
// the second return reports whether that recovery happened.
func Create(pluginsDir string) (*Dir, bool, error) {
	path := filepath.Join(pluginsDir, DirName)
	recovered := false
	if _, err := os.Stat(path); err == nil {
		if err := os.RemoveAll(path); err != nil {
			return nil, false, fmt.Errorf("STG_CREATE: removing leftover staging dir: %w", err)
		}
		recovered = true
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, false, fmt.Errorf("STG_CREATE: %w", err)
	}
	return &Dir{path: path}, recovered, nil
}

func (d *Dir) Path() string { return d.path }

func (d *Dir) Join(elem ...string) string {
	return filepath.Join(append([]string{d.path}, elem...)...)
}

// Remove recursively tears the staging directory down.
func (d *Dir) Remove() error {
	return os.RemoveAll(d.path)
}

// ExtractZip unpacks every safe archive entry into the staging
// directory. Entries with no resolvable relative path and entries
// whose path begins with a hidden-file marker are skipped, never
// written. Directory entries create directories; file entries create
// parents as needed and truncate any pre-existing file.
func ExtractZip(ra io.ReaderAt, size int64, dir *Dir, progress func(done, total int)) error {
	r, err := zip.NewReader(ra, size)
	if err != nil {
		return &ArchiveError{Err: err}
	}
	root := dir.Path()
	for i, f := range r.File {
		if progress != nil {
			progress(i+1, len(r.File))
		}
		name := filepath.Clean(filepath.FromSlash(f.Name))
		if name == "." || filepath.IsAbs(name) || strings.HasPrefix(name, ".") {
			continue
		}
		out := filepath.Join(root, name)
		// Belt and braces against zip slip: the joined path must stay
		// inside the staging root.
		if !strings.HasPrefix(out, root+string(os.PathSeparator)) {
			continue
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(out, 0o755); err != nil {
				return fmt.Errorf("STG_EXTRACT: %w", err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return fmt.Errorf("STG_EXTRACT: %w", err)
		}
		rc, err := f.Open()
		if err != nil {
			return &ArchiveError{Err: err}
		}
		outFile, err := os.OpenFile(out, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			rc.Close()
			return fmt.Errorf("STG_EXTRACT: %w", err)
		}
		_, err = io.Copy(outFile, rc)
		outFile.Close()
		rc.Close()
		if err != nil {
			return fmt.Errorf("STG_EXTRACT: %w", err)
		}
	}
	return nil
}

// Digest returns the hex BLAKE3-256 digest of the raw archive bytes.
func Digest(ra io.ReaderAt, size int64) (string, error) {
	h := blake3.New(32, nil)
	if _, err := io.Copy(h, io.NewSectionReader(ra, 0, size)); err != nil {
		return "", fmt.Errorf("STG_DIGEST: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
