package build

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// writeFileAtomic writes data to a temporary file in the target directory
// and renames it into place, so readers never observe a partial file.
func writeFileAtomic(target string, data []byte) error {
	return writeAtomic(target, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func writeAtomic(target string, fill func(io.Writer) error) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".sitebuilder-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := fill(tmp); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	// #nosec G302 -- published site files are world-readable
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		cleanup()
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// outputWriter owns every mutation of the output tree.
type outputWriter struct {
	root string
}

func (w outputWriter) abs(rel string) string {
	return filepath.Join(w.root, filepath.FromSlash(rel))
}

// exists reports whether an output-relative file is present.
func (w outputWriter) exists(rel string) bool {
	info, err := os.Stat(w.abs(rel))
	return err == nil && !info.IsDir()
}

// unchanged reports whether rel already holds bytes hashing to hash.
func (w outputWriter) unchanged(rel, hash string) bool {
	if hash == "" {
		return false
	}
	// #nosec G304 -- rel is an output path computed by the graph
	f, err := os.Open(w.abs(rel))
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return false
	}
	return hex.EncodeToString(h.Sum(nil)) == hash
}

func (w outputWriter) write(rel string, data []byte) error {
	if err := writeFileAtomic(w.abs(rel), data); err != nil {
		return writeFailed(rel, err)
	}
	return nil
}

// copyFrom streams src into rel atomically.
func (w outputWriter) copyFrom(rel string, open func() (fs.File, error)) error {
	err := writeAtomic(w.abs(rel), func(dst io.Writer) error {
		src, err := open()
		if err != nil {
			return err
		}
		defer func() { _ = src.Close() }()
		_, err = io.Copy(dst, src)
		return err
	})
	if err != nil {
		return writeFailed(rel, err)
	}
	return nil
}

// remove deletes rel and prunes directories it leaves empty, stopping at root.
func (w outputWriter) remove(rel string) error {
	p := w.abs(rel)
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return writeFailed(rel, err)
	}
	root := filepath.Clean(w.root)
	for dir := filepath.Dir(p); dir != root && strings.HasPrefix(dir, root+string(filepath.Separator)); dir = filepath.Dir(dir) {
		if os.Remove(dir) != nil {
			break // not empty
		}
	}
	return nil
}

func writeFailed(rel string, err error) error {
	return ferrors.FileSystemError("failed to write output").
		WithKind(ferrors.WriteFailedKind).
		WithCause(err).
		WithContext("path", rel).
		Build()
}

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
