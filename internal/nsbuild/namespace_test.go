package nsbuild_test

import (
	"os"
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/nsbox/nsbox/internal/nsbuild"
	"github.com/nsbox/nsbox/internal/nsflags"
	"github.com/nsbox/nsbox/internal/nstest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Create", Ordered, func() {

	BeforeAll(func() {
		if os.Getuid() != 0 {
			Skip("needs root")
		}
	})

	// Create unshares CLONE_NEWUSER, which a thread can never revert. Running
	// it on a disposable goroutine locked to its own OS thread keeps the rest
	// of the suite's process identity untouched; the thread is simply
	// abandoned once the goroutine returns, exactly as the teacher's own
	// idle-thread pattern does for mount namespaces.
	It("creates user, mount, uts, and ipc namespaces distinct from the caller's", func() {
		before := map[int]uint64{}
		for _, typ := range nsflags.All {
			before[typ] = nstest.CurrentIno(typ)
		}

		done := make(chan map[int]uint64, 1)
		go func() {
			defer GinkgoRecover()
			runtime.LockOSThread()

			nsbuild.Create(false)

			after := map[int]uint64{}
			for _, typ := range nsflags.All {
				after[typ] = nstest.CurrentIno(typ)
			}
			done <- after
		}()

		after := <-done
		for _, typ := range nsflags.All {
			Expect(after[typ]).NotTo(Equal(before[typ]), "expected a fresh %s namespace", nsflags.Name(typ))
		}
	})

	It("adds a network namespace when requested", func() {
		beforeNet := nstest.CurrentIno(unix.CLONE_NEWNET)

		done := make(chan uint64, 1)
		go func() {
			defer GinkgoRecover()
			runtime.LockOSThread()

			nsbuild.Create(true)
			done <- nstest.CurrentIno(unix.CLONE_NEWNET)
		}()

		Expect(<-done).NotTo(Equal(beforeNet))
	})
})
