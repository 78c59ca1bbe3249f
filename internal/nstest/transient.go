package nstest

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/nsbox/nsbox/internal/nsflags"

	gi "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega" //nolint:staticcheck // ST1001 rule does not apply
)

// transientTypes is the set of namespace types EnterTransient/NewTransient
// support: unlike mount, user, and pid namespaces, these can always be
// re-entered by the same OS thread afterwards.
var transientTypes = []int{
	unix.CLONE_NEWCGROUP,
	unix.CLONE_NEWIPC,
	unix.CLONE_NEWNET,
	unix.CLONE_NEWUTS,
}

// EnterTransient creates and enters a new namespace of the given type,
// locking the calling goroutine to its OS thread, and returns a function
// that must be deferred to switch back and unlock the thread:
//
//	defer nstest.EnterTransient(unix.CLONE_NEWNET)()
func EnterTransient(typ int) func() {
	gi.GinkgoHelper()

	name := mustBeTransientType(typ)

	runtime.LockOSThread()

	callersNS, err := unix.Open("/proc/thread-self/ns/"+name, unix.O_RDONLY, 0)
	Expect(err).NotTo(HaveOccurred(), "cannot determine current %s namespace from procfs", name)
	Expect(unix.Unshare(typ)).To(Succeed(), "cannot create new %s namespace", name)

	return func() {
		if err := unix.Setns(callersNS, typ); err != nil {
			panic(fmt.Sprintf("leaving EnterTransient: cannot restore original %s namespace: %s", name, err))
		}
		_ = unix.Close(callersNS)
		runtime.UnlockOSThread()
	}
}

// NewTransient creates a new namespace of the given type without entering
// it, returning a file descriptor referencing it. The descriptor's closure
// is scheduled as a Ginkgo deferred cleanup.
func NewTransient(typ int) int {
	gi.GinkgoHelper()

	name := mustBeTransientType(typ)

	runtime.LockOSThread()

	callersNS, err := unix.Open("/proc/thread-self/ns/"+name, unix.O_RDONLY, 0)
	Expect(err).NotTo(HaveOccurred(), "cannot determine current %s namespace from procfs", name)
	defer func() { _ = unix.Close(callersNS) }()

	Expect(unix.Unshare(typ)).To(Succeed(), "cannot create new %s namespace", name)
	newNS, err := unix.Open("/proc/thread-self/ns/"+name, unix.O_RDONLY, 0)
	Expect(err).NotTo(HaveOccurred(), "cannot determine new %s namespace from procfs", name)
	Expect(unix.Setns(callersNS, typ)).To(Succeed(), "cannot switch back into original %s namespace", name)
	gi.DeferCleanup(func() { _ = unix.Close(newNS) })

	runtime.UnlockOSThread()
	return newNS
}

func mustBeTransientType(typ int) string {
	gi.GinkgoHelper()

	name := nsflags.Name(typ)
	Expect(typ).To(BeElementOf(transientTypes), "unsupported namespace type %s", name)
	return name
}

// EnterTransientMountNamespace creates and enters a new mount namespace,
// immediately making "/" recursively private so that subsequent mount
// point changes cannot propagate back to the host (the same discipline
// nsbuild.Create follows on the production path). Unlike EnterTransient,
// the deferred cleanup it returns never unlocks the OS thread: CLONE_FS is
// unshared as well, and there is no way to undo that for a single thread.
func EnterTransientMountNamespace() func() {
	gi.GinkgoHelper()

	runtime.LockOSThread()

	callersMountNS, err := unix.Open("/proc/thread-self/ns/mnt", unix.O_RDONLY, 0)
	Expect(err).NotTo(HaveOccurred(), "cannot determine current mount namespace from procfs")

	Expect(unix.Unshare(unix.CLONE_FS|unix.CLONE_NEWNS)).To(Succeed(), "cannot create new mount namespace")
	Expect(unix.Mount("none", "/", "/", unix.MS_REC|unix.MS_PRIVATE, "")).To(Succeed(),
		"cannot change / mount propagation to private")

	return func() {
		if err := unix.Setns(callersMountNS, 0); err != nil {
			panic(fmt.Sprintf("cannot restore original mount namespace: %s", err))
		}
		_ = unix.Close(callersMountNS)
	}
}
