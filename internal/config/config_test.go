package config_test

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/nsbox/nsbox/internal/config"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Parse", func() {

	It("requires a sandbox root", func() {
		_, err := config.Parse([]string{"--", "/bin/true"})
		Expect(err).To(MatchError(ContainSubstring("missing required -S")))
		var usageErr *config.UsageError
		Expect(err).To(BeAssignableToTypeOf(usageErr))
	})

	It("requires a command", func() {
		_, err := config.Parse([]string{"-S", "/tmp/sbx"})
		Expect(err).To(MatchError(ContainSubstring("missing command")))
	})

	It("parses a minimal invocation", func() {
		cfg, err := config.Parse([]string{"-S", "/tmp/sbx", "--", "/bin/true", "arg"})
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.SandboxRoot).To(Equal("/tmp/sbx"))
		Expect(cfg.Argv).To(Equal([]string{"/bin/true", "arg"}))
		Expect(cfg.InnerUID).To(Equal(65534))
		Expect(cfg.InnerGID).To(Equal(65534))
	})

	It("strips a trailing slash from the sandbox root, except for \"/\"", func() {
		cfg, err := config.Parse([]string{"-S", "/tmp/sbx/", "--", "/bin/true"})
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.SandboxRoot).To(Equal("/tmp/sbx"))

		cfg, err = config.Parse([]string{"-S", "/", "--", "/bin/true"})
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.SandboxRoot).To(Equal("/"))
	})

	It("rejects -S given twice", func() {
		_, err := config.Parse([]string{"-S", "/tmp/a", "-S", "/tmp/b", "--", "/bin/true"})
		Expect(err).To(MatchError(ContainSubstring("more than once")))
	})

	It("resolves -i to the caller's real identity", func() {
		cfg, err := config.Parse([]string{"-S", "/tmp/sbx", "-i", "--", "/bin/true"})
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.InnerUID).To(Equal(unix.Getuid()))
		Expect(cfg.InnerGID).To(Equal(unix.Getgid()))
	})

	It("resolves -r to root", func() {
		cfg, err := config.Parse([]string{"-S", "/tmp/sbx", "-r", "--", "/bin/true"})
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.InnerUID).To(Equal(0))
		Expect(cfg.InnerGID).To(Equal(0))
	})

	It("requires absolute paths for -W", func() {
		_, err := config.Parse([]string{"-S", "/tmp/sbx", "-W", "rel", "--", "/bin/true"})
		Expect(err).To(MatchError(ContainSubstring("must be an absolute path")))
	})

	Describe("bind mounts", func() {
		It("defaults a bare -M to a read-only mount at the same path", func() {
			cfg, err := config.Parse([]string{"-S", "/tmp/sbx", "-M", "/usr", "--", "/bin/true"})
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Mounts).To(Equal([]config.Mount{{Source: "/usr", Target: "/usr", RW: false}}))
		})

		It("combines -M with -m into a read-only retargeted mount", func() {
			cfg, err := config.Parse([]string{"-S", "/tmp/sbx", "-M", "/usr", "-m", "/host-usr", "--", "/bin/true"})
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Mounts).To(Equal([]config.Mount{{Source: "/usr", Target: "/host-usr", RW: false}}))
		})

		It("combines -M with -w into a read-write retargeted mount", func() {
			cfg, err := config.Parse([]string{"-S", "/tmp/sbx", "-M", "/usr", "-w", "/host-usr", "--", "/bin/true"})
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Mounts).To(Equal([]config.Mount{{Source: "/usr", Target: "/host-usr", RW: true}}))
		})

		It("rejects -m without a preceding -M", func() {
			_, err := config.Parse([]string{"-S", "/tmp/sbx", "-m", "/host-usr", "--", "/bin/true"})
			Expect(err).To(MatchError(ContainSubstring("without a preceding -M")))
		})

		It("flushes a pending -M when another -M follows directly", func() {
			cfg, err := config.Parse([]string{
				"-S", "/tmp/sbx",
				"-M", "/usr", "-M", "/lib",
				"--", "/bin/true",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Mounts).To(Equal([]config.Mount{
				{Source: "/usr", Target: "/usr", RW: false},
				{Source: "/lib", Target: "/lib", RW: false},
			}))
		})
	})

	It("expands @file arguments in place", func() {
		dir := GinkgoT().TempDir()
		argFile := filepath.Join(dir, "args")
		Expect(os.WriteFile(argFile, []byte("-M\n/usr\n"), 0o644)).To(Succeed())

		cfg, err := config.Parse([]string{"-S", "/tmp/sbx", "@" + argFile, "--", "/bin/true"})
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Mounts).To(Equal([]config.Mount{{Source: "/usr", Target: "/usr", RW: false}}))
	})

	It("stops option scanning at --", func() {
		cfg, err := config.Parse([]string{"-S", "/tmp/sbx", "--", "-n", "not-an-option"})
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Argv).To(Equal([]string{"-n", "not-an-option"}))
		Expect(cfg.CreateNetNS).To(BeFalse())
	})

	It("short-circuits every other validation in probe mode", func() {
		cfg, err := config.Parse([]string{"-C"})
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.ProbeMode).To(BeTrue())
	})
})
