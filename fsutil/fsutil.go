// Package fsutil pushes a directory tree into a Writer and extracts a
// Reader back out to one, the convenience layer around the core
// container package a caller reaches for instead of walking Entries or
// the filesystem by hand. Neither function is imported by reader.go or
// writer.go; this stays a separate, optional layer on top.
package fsutil

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	sevenzip "github.com/withzombies/sevenz-rust2"
)

// ExtractAll walks r's entries in order and recreates them under destDir,
// restoring directories and regular files, and setting each regular
// file's modification time when its entry carries one. Attributes and
// creation/access times are not restored.
// Anti-items (deletion markers from an incremental update) are skipped;
// this package never mutates an existing tree, only populates a fresh
// one.
//
// Entries are processed in the order Reader.Entries returns them, which
// is the archive's on-disk order — the same order Open requires within a
// solid block, so no extra bookkeeping is needed here to satisfy it.
func ExtractAll(r *sevenzip.Reader, destDir string) error {
	for _, e := range r.Entries() {
		if e.IsAnti {
			continue
		}

		target, err := safeJoin(destDir, e.Name)
		if err != nil {
			return err
		}

		if e.IsDir {
			if err := os.MkdirAll(target, 0o777); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o777); err != nil {
			return err
		}

		if err := extractFile(r, e, target); err != nil {
			return err
		}

		if !e.ModifiedAt.IsZero() {
			if err := os.Chtimes(target, e.ModifiedAt, e.ModifiedAt); err != nil {
				return err
			}
		}
	}
	return nil
}

func extractFile(r *sevenzip.Reader, e *sevenzip.Entry, target string) error {
	rc, err := r.Open(e)
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o666)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, rc)
	return err
}

// safeJoin joins root and name, rejecting any name that would escape root
// via ".." components or an absolute path — an archive is untrusted
// input, and 7z places no restriction of its own on FilesInfo names.
func safeJoin(root, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", &fs.PathError{Op: "extract", Path: name, Err: fs.ErrInvalid}
	}
	joined := filepath.Join(root, clean)
	if !strings.HasPrefix(joined, filepath.Clean(root)+string(filepath.Separator)) && joined != filepath.Clean(root) {
		return "", &fs.PathError{Op: "extract", Path: name, Err: fs.ErrInvalid}
	}
	return joined, nil
}

// CompressDir walks root and pushes every regular file and directory it
// finds into w as an entry, preserving each file's relative path
// (slash-separated, matching 7z's own convention) and modification time.
// Symlinks are skipped; w's own content-method/solid configuration
// applies to everything CompressDir pushes.
func CompressDir(w *sevenzip.Writer, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		if d.IsDir() {
			return w.PushEntry(sevenzip.Entry{Name: name, IsDir: true, ModifiedAt: info.ModTime()}, nil)
		}

		entry := sevenzip.Entry{Name: name, ModifiedAt: info.ModTime()}

		if info.Size() == 0 {
			return w.PushEntry(entry, nil)
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		return w.PushEntry(entry, f)
	})
}
