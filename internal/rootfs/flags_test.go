package rootfs_test

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/nsbox/nsbox/internal/nstest"
	"github.com/nsbox/nsbox/internal/rootfs"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("InheritedFlags", Ordered, func() {

	BeforeAll(func() {
		if os.Getuid() != 0 {
			Skip("needs root")
		}
	})

	It("reports no flags for a mount point it cannot find", func() {
		defer nstest.EnterTransientMountNamespace()()

		flags, err := rootfs.InheritedFlags("/no/such/mount/point")
		Expect(err).NotTo(HaveOccurred())
		Expect(flags).To(BeZero())
	})

	It("reports the nosuid/nodev/noexec bits of a matching mount point", func() {
		defer nstest.EnterTransientMountNamespace()()

		dir := GinkgoT().TempDir()
		Expect(unix.Mount("tmpfs", dir, "tmpfs", unix.MS_NOSUID|unix.MS_NODEV|unix.MS_NOEXEC, "")).To(Succeed())
		defer func() { _ = unix.Unmount(dir, unix.MNT_DETACH) }()

		flags, err := rootfs.InheritedFlags(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(flags & unix.MS_NOSUID).NotTo(BeZero())
		Expect(flags & unix.MS_NODEV).NotTo(BeZero())
		Expect(flags & unix.MS_NOEXEC).NotTo(BeZero())
	})
})
