package nstest

import (
	"fmt"
	"runtime"
	"slices"

	"golang.org/x/sys/unix"

	"github.com/nsbox/nsbox/internal/nsflags"

	gi "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega" //nolint:staticcheck // ST1001 rule does not apply
)

// Execute runs fn synchronously while attached to the given namespace(s),
// otherwise leaving the caller's current namespaces untouched.
//
// Execute fails the current spec if asked to switch into a different user
// namespace: the Linux kernel does not allow a multi-threaded process to do
// that. When a mount namespace reference is included, fn runs on a
// throw-away goroutine locked to a throw-away OS thread, since a mount
// namespace switch also entails unsharing CLONE_FS.
func Execute(fn func(), nsfd int, nsfds ...int) {
	gi.GinkgoHelper()

	mntnsfd := -1
	var othernsfds []int

	for _, fd := range append([]int{nsfd}, nsfds...) {
		switch Type(fd) {
		case unix.CLONE_NEWUSER:
			Expect("user").NotTo(Equal("user"), "cannot Execute() in a different user namespace")
		case unix.CLONE_NEWNS:
			mntnsfd = fd
		default:
			othernsfds = append(othernsfds, fd)
		}
	}

	if mntnsfd >= 0 {
		goSeparate(fn, mntnsfd, othernsfds...)
		return
	}
	goInAndOut(fn, othernsfds...)
}

func goInAndOut(fn func(), othernsfds ...int) {
	runtime.LockOSThread()

	var callersNamespaces []int
	defer func() {
		if r := recover(); r != nil {
			for _, fd := range slices.Backward(callersNamespaces) {
				_ = unix.Setns(fd, 0)
			}
			panic(r)
		}
		for _, fd := range slices.Backward(callersNamespaces) {
			Expect(unix.Setns(fd, 0)).To(Succeed(), func() string {
				return fmt.Sprintf("cannot restore %s namespace", nsflags.Name(Type(fd)))
			})
		}
		runtime.UnlockOSThread()
	}()

	for _, fd := range othernsfds {
		typ := Type(fd)
		callersNamespaces = append(callersNamespaces, Current(typ))
		Expect(unix.Setns(fd, typ)).To(Succeed(), func() string {
			return fmt.Sprintf("cannot switch into %s namespace", nsflags.Name(typ))
		})
	}

	fn()
}

func goSeparate(fn func(), mntnsfd int, othernsfds ...int) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	pickupTypes := []int{
		unix.CLONE_NEWCGROUP,
		unix.CLONE_NEWIPC,
		unix.CLONE_NEWNET,
		unix.CLONE_NEWPID,
		unix.CLONE_NEWUTS,
	}
	for _, fd := range othernsfds {
		typ := Type(fd)
		pickupTypes = slices.DeleteFunc(pickupTypes, func(e int) bool { return e == typ })
	}
	var pickupfds []int
	for _, typ := range pickupTypes {
		pickupfds = append(pickupfds, Current(typ))
	}

	panicCh := make(chan any)
	go func() {
		defer func() {
			for _, fd := range pickupfds {
				_ = unix.Close(fd)
			}
			if r := recover(); r != nil {
				panicCh <- r
			}
			close(panicCh)
		}()

		runtime.LockOSThread()

		Expect(unix.Unshare(unix.CLONE_FS)).To(Succeed(),
			"cannot unshare file attributes of transient func call OS thread")
		Expect(unix.Setns(mntnsfd, unix.CLONE_NEWNS)).To(Succeed(), "cannot switch into mnt namespace")

		for _, fd := range append(othernsfds, pickupfds...) {
			typ := Type(fd)
			name := nsflags.Name(typ)
			if Ino(fd, typ) == Ino("/proc/thread-self/ns/"+name, typ) {
				continue
			}
			Expect(unix.Setns(fd, 0)).To(Succeed(), "cannot switch into %s namespace", name)
		}

		fn()
	}()

	if r := <-panicCh; r != nil {
		panic(r)
	}
}
