// Package probe implements nsbox's -C capability-probe mode (spec.md §4.3):
// a short-circuit that detects whether the host kernel supports all five
// namespace types nsbox needs, without touching any of the rest of the
// pipeline.
//
// spec.md requires this to go through clone(2) rather than unshare(2), so
// that the EINVAL race nsbuild.Create retries around (spec.md §4.4) cannot
// masquerade as "namespaces unsupported". Go cannot issue a bare clone(2)
// without cloning the whole runtime, so the idiomatic substitute that still
// rides the clone syscall path is os/exec.Cmd with
// syscall.SysProcAttr.Cloneflags — exactly the mechanism
// spacer/service/spacer.go's Subspace method uses to fork a namespaced
// child, mappings and all.
package probe

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// ChildMarker is the argv[1] nsbox's main() checks for before doing
// anything else: its presence means this process *is* the probe child, and
// it must exit 0 immediately without parsing any further configuration.
const ChildMarker = "--nsbox-probe-child"

// Supported clones a throwaway child with every namespace type nsbox uses
// unshared at once and waits for it synchronously. A successful exit (the
// child's sole job is to exit 0 immediately, see ChildMarker) means the
// kernel supports all of them.
func Supported() error {
	self, err := os.Executable()
	if err != nil {
		return err
	}

	cmd := exec.Command(self, ChildMarker)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, os.Stdout, os.Stderr
	const flags = unix.CLONE_NEWUSER | unix.CLONE_NEWNS | unix.CLONE_NEWUTS |
		unix.CLONE_NEWIPC | unix.CLONE_NEWNET
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags:  uintptr(flags) | uintptr(syscall.SIGCHLD),
		UidMappings: []syscall.SysProcIDMap{{ContainerID: 0, HostID: os.Getuid(), Size: 1}},
		GidMappings: []syscall.SysProcIDMap{{ContainerID: 0, HostID: os.Getgid(), Size: 1}},
	}
	return cmd.Run()
}
