package nstest_test

import (
	"os"
	"runtime"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nsbox/nsbox/internal/nstest"

	"github.com/thediveo/caps"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gleak"
	. "github.com/thediveo/fdooze"
	. "github.com/thediveo/success" //nolint:staticcheck // ST1001 rule does not apply
)

// Every spec here opens namespace file descriptors under /proc/thread-self
// or /proc/self; this guards against leaking them (or the goroutines
// EnterTransient/Execute spin up) past the spec that opened them.
var _ = BeforeEach(func() {
	goodfds := Filedescriptors()
	goodgos := Goroutines()
	DeferCleanup(func() {
		Eventually(Goroutines).Within(2 * time.Second).ProbeEvery(100 * time.Millisecond).
			ShouldNot(HaveLeaked(goodgos))
		Expect(Filedescriptors()).NotTo(HaveLeakedFds(goodfds))
	})
})

var _ = Describe("Type and Ino", func() {

	It("identifies a namespace referenced by VFS path", func() {
		Expect(nstest.Type("/proc/self/ns/mnt")).To(Equal(unix.CLONE_NEWNS))
	})

	It("identifies a namespace referenced by file descriptor", func() {
		fd := Successful(unix.Open("/proc/thread-self/ns/net", unix.O_RDONLY, 0))
		defer func() { _ = unix.Close(fd) }()
		Expect(nstest.Type(fd)).To(Equal(unix.CLONE_NEWNET))
	})
})

var _ = Describe("EnterTransient", func() {

	It("creates and enters a new UTS namespace, then restores the original on cleanup", func() {
		before := nstest.CurrentIno(unix.CLONE_NEWUTS)
		leave := nstest.EnterTransient(unix.CLONE_NEWUTS)
		Expect(nstest.CurrentIno(unix.CLONE_NEWUTS)).NotTo(Equal(before))
		leave()
		Expect(nstest.CurrentIno(unix.CLONE_NEWUTS)).To(Equal(before))
	})
})

var _ = Describe("Execute", func() {

	It("runs fn attached to the given namespace and restores the caller's afterwards", func() {
		netnsfd := nstest.NewTransient(unix.CLONE_NEWNET)
		before := nstest.CurrentIno(unix.CLONE_NEWNET)

		var seen uint64
		nstest.Execute(func() {
			seen = nstest.CurrentIno(unix.CLONE_NEWNET)
		}, netnsfd)

		Expect(seen).To(Equal(nstest.Ino(netnsfd, unix.CLONE_NEWNET)))
		Expect(nstest.CurrentIno(unix.CLONE_NEWNET)).To(Equal(before))
	})
})

var _ = Describe("Execute failure handling", Ordered, func() {

	BeforeAll(func() {
		if os.Getuid() != 0 {
			Skip("needs root")
		}
	})

	It("fails correctly when unable to switch back", func() {
		runtime.LockOSThread() // this thread will be tainted by dropping capabilities

		netnsfd := nstest.NewTransient(unix.CLONE_NEWNET)

		count := 0
		Expect(InterceptGomegaFailure(func() {
			nstest.Execute(func() {
				count++
				Expect(caps.SetForThisTask(caps.TaskCapabilities{})).To(Succeed())
			}, netnsfd)
		})).To(MatchError(ContainSubstring("cannot restore net namespace")))
		Expect(count).To(Equal(1))
	})
})
