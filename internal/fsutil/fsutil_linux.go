//go:build linux

package fsutil

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

func fileTimes(path string, fi os.FileInfo) (time.Time, time.Time, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return time.Time{}, time.Time{}, err
	}
	atime := time.Unix(st.Atim.Unix())
	return atime, fi.ModTime(), nil
}

// syncDir persists a rename in dir.
func syncDir(dir string) error {
	fd, err := unix.Open(dir, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fd)
	return unix.Fsync(fd)
}
