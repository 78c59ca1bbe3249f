package rootfs

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// EnsureNode recursively creates path as either a directory (mode 0755) or
// an empty regular file (mode 0666), creating any missing parent
// directories along the way (spec.md §4.5.1).
//
// An empty path is treated as "." and trivially succeeds. If path already
// exists and matches the requested kind, EnsureNode succeeds without
// touching it — calling it twice with the same arguments is safe and
// produces the same filesystem state both times.
func EnsureNode(path string, isDir bool) error {
	if path == "" {
		return nil
	}

	info, err := os.Lstat(path)
	switch {
	case err == nil:
		if info.IsDir() != isDir {
			if isDir {
				return fmt.Errorf("%s: not a directory: %w", path, unix.ENOTDIR)
			}
			return fmt.Errorf("%s: already exists as a directory: %w", path, unix.EEXIST)
		}
		return nil
	case !os.IsNotExist(err):
		return err
	}

	if parent := filepath.Dir(path); parent != path && parent != "." {
		if err := EnsureNode(parent, true); err != nil {
			return err
		}
	}

	if isDir {
		return os.Mkdir(path, 0o755)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL, 0o666)
	if err != nil {
		return err
	}
	return f.Close()
}
