// Package nsflags names the Linux kernel namespace types nsbox deals with,
// mapping CLONE_NEW* constants to the short names used under
// /proc/<pid>/ns/<name>.
package nsflags

import "golang.org/x/sys/unix"

// Name returns the procfs namespace-link name for a CLONE_NEW* constant, or
// the empty string if typ is not a namespace type nsbox recognizes.
func Name(typ int) string {
	switch typ {
	case unix.CLONE_NEWCGROUP:
		return "cgroup"
	case unix.CLONE_NEWIPC:
		return "ipc"
	case unix.CLONE_NEWNS:
		return "mnt"
	case unix.CLONE_NEWNET:
		return "net"
	case unix.CLONE_NEWPID:
		return "pid"
	case unix.CLONE_NEWTIME:
		return "time"
	case unix.CLONE_NEWUSER:
		return "user"
	case unix.CLONE_NEWUTS:
		return "uts"
	}
	return ""
}

// All is the ordered set of namespace types nsbox always requests (network
// is added on top of these when -n is given).
var All = []int{
	unix.CLONE_NEWUSER,
	unix.CLONE_NEWNS,
	unix.CLONE_NEWUTS,
	unix.CLONE_NEWIPC,
}
