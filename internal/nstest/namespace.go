package nstest

import (
	"fmt"

	"github.com/thediveo/ioctl"
	"golang.org/x/sys/unix"

	"github.com/nsbox/nsbox/internal/nsflags"

	gi "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega" //nolint:staticcheck // ST1001 rule does not apply
)

// nsGetNSType is the ioctl(2) command for namespace-type queries
// (include/uapi/linux/nsfs.h).
var nsGetNSType = ioctl.IO(0xb7, 0x3)

// Reference is a Linux kernel namespace reference, either a VFS path or an
// open file descriptor.
type Reference interface{ ~int | ~string }

// Type returns the CLONE_NEW* type constant of the namespace referenced by
// ref, failing the current spec if ref is invalid.
func Type[R Reference](ref R) int {
	gi.GinkgoHelper()

	switch ref := any(ref).(type) {
	case int:
		typ, err := unix.IoctlRetInt(ref, nsGetNSType)
		Expect(err).NotTo(HaveOccurred(), "cannot determine type of namespace")
		return typ
	case string:
		fd, err := unix.Open(ref, unix.O_RDONLY, 0)
		Expect(err).NotTo(HaveOccurred(), "cannot determine type of namespace referenced as %q", ref)
		defer func() { _ = unix.Close(fd) }()
		typ, err := unix.IoctlRetInt(fd, nsGetNSType)
		Expect(err).NotTo(HaveOccurred(), "cannot determine type of namespace referenced as %q", ref)
		return typ
	}
	return 0
}

// Ino returns the inode number identifying the namespace of the expected
// type typ referenced by ref, failing the current spec if ref does not
// refer to a namespace of that type.
func Ino[R Reference](ref R, typ int) uint64 {
	gi.GinkgoHelper()

	var st unix.Stat_t
	switch ref := any(ref).(type) {
	case int:
		Expect(unix.Fstat(ref, &st)).To(Succeed(), func() string {
			return fmt.Sprintf("cannot stat %s namespace reference %v", nsflags.Name(typ), ref)
		})
	case string:
		Expect(unix.Stat(ref, &st)).To(Succeed(), func() string {
			return fmt.Sprintf("cannot stat %s namespace reference %v", nsflags.Name(typ), ref)
		})
	}
	Expect(Type(ref)).To(Equal(typ), "not a %s namespace", nsflags.Name(typ))
	return st.Ino
}

// Current returns a file descriptor referencing the calling OS thread's
// current namespace of type typ, and schedules it to be closed at the end
// of the running spec. The caller's goroutine should already be
// thread-locked.
func Current(typ int) int {
	gi.GinkgoHelper()

	name := nsflags.Name(typ)
	Expect(name).NotTo(BeEmpty(), "unknown type of namespace %d", typ)
	fd, err := unix.Open("/proc/thread-self/ns/"+name, unix.O_RDONLY, 0)
	Expect(err).NotTo(HaveOccurred(), "cannot determine current %s namespace from procfs", name)
	gi.DeferCleanup(func() { _ = unix.Close(fd) })
	return fd
}

// CurrentIno returns the inode number of the calling OS thread's current
// namespace of type typ.
func CurrentIno(typ int) uint64 {
	gi.GinkgoHelper()

	name := nsflags.Name(typ)
	return Ino("/proc/thread-self/ns/"+name, typ)
}
