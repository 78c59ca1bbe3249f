package nsbuild

import (
	"log/slog"

	"github.com/thediveo/ioctl"
	"golang.org/x/sys/unix"

	"github.com/nsbox/nsbox/internal/nsflags"
)

// nsGetNSType is the ioctl(2) command for namespace-type queries
// (include/uapi/linux/nsfs.h), reconstructed with the same ioctl.IO helper
// used to compute it.
var nsGetNSType = ioctl.IO(0xb7, 0x3)

// LogTypes opens /proc/thread-self/ns/<name> for every namespace type nsbox
// just unshared and logs back the kernel's own idea of its type, as a debug
// sanity check that Create actually landed the calling thread in fresh
// namespaces of the expected kinds.
func LogTypes(netns bool) {
	types := append([]int{}, nsflags.All...)
	if netns {
		types = append(types, unix.CLONE_NEWNET)
	}
	for _, typ := range types {
		name := nsflags.Name(typ)
		fd, err := unix.Open("/proc/thread-self/ns/"+name, unix.O_RDONLY, 0)
		if err != nil {
			slog.Debug("cannot open namespace reference", "ns", name, "error", err)
			continue
		}
		got, err := unix.IoctlRetInt(fd, nsGetNSType)
		unix.Close(fd)
		if err != nil {
			slog.Debug("cannot query namespace type", "ns", name, "error", err)
			continue
		}
		slog.Debug("namespace active", "ns", name, "kernel_type", got, "expected_type", typ)
	}
}
