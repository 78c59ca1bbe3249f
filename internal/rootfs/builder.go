// Package rootfs assembles the sandbox's root filesystem: the ordered
// sequence of binds, device nodes, and directories spec.md §4.5 requires
// before pivot_root can run, plus the §4.5.1/§4.5.2 helpers that sequence
// leans on.
package rootfs

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/nsbox/nsbox/internal/config"
	"github.com/nsbox/nsbox/internal/must"
)

// Anchor turns root into a mount point in its own right by bind-mounting it
// onto itself, then chdirs the process into it. pivot_root(2) requires its
// new-root argument to be a mount point distinct from the one it currently
// lives under; a sandbox root that is just an ordinary directory on the
// host's existing filesystem fails that check without this step.
//
// The self-bind is non-recursive and carries MS_NOSUID: it is the sandbox's
// baseline no-setuid guarantee for everything that ends up living on the
// sandbox-root filesystem, not just the mounts layered on top of it later.
func Anchor(root string) {
	must.Check(unix.Mount(root, root, "", unix.MS_BIND|unix.MS_NOSUID, ""), "bind-mount sandbox root onto itself")
	must.Check(os.Chdir(root), "chdir into sandbox root")
}

// MakeDirs creates every entry in paths as a directory, relative to the
// current directory (the sandbox root, once Anchor has run). Each path is
// stripped of its leading slash: -d always takes an absolute-looking path
// on the command line, but it names a location inside the sandbox, not on
// the host.
func MakeDirs(paths []string) {
	for _, p := range paths {
		rel := strings.TrimPrefix(p, "/")
		must.Check(EnsureNode(rel, true), "create directory "+p)
	}
}

// ApplyMounts bind-mounts every configured mount into the sandbox, relative
// to root (the absolute, host-visible sandbox root — needed to resolve
// InheritedFlags lookups against /proc/self/mounts, which always reports
// mount points as absolute paths). Read-only mounts are bound read-write
// first and then remounted MS_RDONLY, carrying forward whatever
// nodev/nosuid/noexec flags the source already had: the kernel rejects a
// remount that would silently relax them.
func ApplyMounts(root string, mounts []config.Mount) {
	for _, m := range mounts {
		statted, statErr := os.Stat(m.Source)
		info := must.Value(statted, statErr, fmt.Sprintf("stat mount source %s", m.Source))

		rel := strings.TrimPrefix(m.Target, "/")
		must.Check(EnsureNode(rel, info.IsDir()), "create mount target "+m.Target)
		must.Check(unix.Mount(m.Source, rel, "", unix.MS_BIND|unix.MS_REC, ""), "bind-mount "+m.Source)

		if m.RW {
			continue
		}

		absTarget := root + "/" + rel
		inherited, err := InheritedFlags(absTarget)
		if err != nil {
			must.Check(err, "read /proc/self/mounts")
		}
		err = unix.Mount("", rel, "", unix.MS_BIND|unix.MS_REC|unix.MS_REMOUNT|unix.MS_RDONLY|inherited, "")
		if err != nil {
			// A failed read-only remount leaves the mount read-write rather
			// than aborting the whole sandbox over it.
			must.Warnf("remount %s read-only: %s", m.Target, err)
		}
	}
}
