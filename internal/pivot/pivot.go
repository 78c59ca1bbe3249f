// Package pivot performs the final handoff from the assembled sandbox
// filesystem to its use as the process's actual root (spec.md §4.7).
package pivot

import (
	"os"

	petname "github.com/dustinkirkland/golang-petname"
	"golang.org/x/sys/unix"

	"github.com/nsbox/nsbox/internal/must"
)

// Pivot must be called with the current directory already at the sandbox
// root (rootfs.Anchor's postcondition). It creates a throwaway directory to
// receive the old root, pivot_roots into it, chroots to absorb the "."
// that pivot_root leaves referring to the new root, detaches and removes
// the old root, and finally chdirs to workdir if one was requested.
//
// Once Pivot returns, the old host filesystem is completely unreachable
// from this mount namespace.
func Pivot(workdir string) {
	oldRoot := uniqueOldRootName()
	must.Check(os.Mkdir(oldRoot, 0o700), "create old-root directory")

	must.Check(unix.PivotRoot(".", oldRoot), "pivot_root")
	must.Check(unix.Chroot("."), "chroot into new root")
	must.Check(os.Chdir("/"), "chdir to new root")

	must.Check(unix.Unmount("/"+oldRoot, unix.MNT_DETACH), "detach old root")
	must.Check(os.RemoveAll("/"+oldRoot), "remove old-root directory")

	if workdir == "" {
		return
	}
	must.Check(os.Chdir(workdir), "chdir to working directory")
	must.Check(os.Setenv("PWD", workdir), "set PWD")
}

// uniqueOldRootName names the old-root directory with a short two-word
// petname rather than a fixed name: pivot_root's new-root and put-old
// arguments must not collide with anything already at the sandbox root,
// and a fixed name like "old-root" could shadow a directory the caller
// legitimately wanted mounted there.
func uniqueOldRootName() string {
	name := "old-root-" + petname.Generate(2, "-")
	for {
		if _, err := os.Lstat(name); os.IsNotExist(err) {
			return name
		}
		name = "old-root-" + petname.Generate(2, "-")
	}
}
