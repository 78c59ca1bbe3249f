package rootfs

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/nsbox/nsbox/internal/must"
)

// devNodes are the four device files bind-mounted in individually,
// rather than bind-mounting the whole host /dev tree: a sandbox has no
// business seeing every device node the host happens to have attached.
var devNodes = []string{"null", "random", "urandom", "zero"}

// PopulateDev builds dev/ under the current directory (which must already
// be the sandbox root): the four scalar device nodes bind-mounted in one at
// a time, a private devpts for pseudo-terminals, a tmpfs for dev/shm, and a
// dev/fd symlink to /proc/self/fd (spec.md §4.5).
func PopulateDev() {
	must.Check(EnsureNode("dev", true), "create dev/")

	for _, name := range devNodes {
		target := "dev/" + name
		must.Check(EnsureNode(target, false), "create "+target)
		must.Check(unix.Mount("/dev/"+name, target, "", unix.MS_BIND, ""), "bind-mount "+target)
	}

	must.Check(EnsureNode("dev/pts", true), "create dev/pts")
	must.Check(
		unix.Mount("devpts", "dev/pts", "devpts", unix.MS_NOSUID|unix.MS_NOEXEC, "ptmxmode=0666"),
		"mount devpts",
	)
	must.Check(os.Symlink("pts/ptmx", "dev/ptmx"), "symlink dev/ptmx")

	must.Check(EnsureNode("dev/shm", true), "create dev/shm")
	must.Check(unix.Mount("tmpfs", "dev/shm", "tmpfs", unix.MS_NOSUID|unix.MS_NODEV, ""), "mount dev/shm")

	must.Check(os.Symlink("/proc/self/fd", "dev/fd"), "symlink dev/fd")
}

// MountProc creates proc/ and recursively bind-mounts the host's /proc onto
// it. nsbox never mounts a fresh procfs instance: the host kernel's procfs
// already reflects the pid namespace nsbox does not create (spec.md
// explicitly leaves pid namespacing out of scope), so the correct view for
// the sandboxed process is a bound copy of the caller's own.
func MountProc() {
	must.Check(EnsureNode("proc", true), "create proc/")
	must.Check(unix.Mount("/proc", "proc", "", unix.MS_REC|unix.MS_BIND, ""), "bind-mount proc")
}
