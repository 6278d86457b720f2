// Package fsutil holds the file-safety helpers used when editing a GPF:
// metadata-preserving copies and atomic replacement.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyFile copies src to dst, truncating dst. The file mode is always carried
// over; with preserveTimes the access and modification times are as well.
func CopyFile(src, dst string, preserveTimes bool) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fi.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Chmod(fi.Mode().Perm()); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if preserveTimes {
		atime, mtime, err := fileTimes(src, fi)
		if err != nil {
			return err
		}
		if err := os.Chtimes(dst, atime, mtime); err != nil {
			return fmt.Errorf("preserve times: %w", err)
		}
	}
	return nil
}

// Replace moves src over dst with a single rename. dst is never removed
// first, so a crash leaves either the old or the new file at dst.
// src and dst must be on the same filesystem.
func Replace(src, dst string) error {
	f, err := os.OpenFile(src, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		return err
	}
	return syncDir(filepath.Dir(dst))
}
