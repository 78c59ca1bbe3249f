// Package nstest provides Ginkgo/Gomega-based helpers for nsbox's own test
// suites to create and switch between throw-away Linux kernel namespaces,
// so that nsbuild, rootfs, and netloop can be exercised without a real
// sandbox invocation. Creating those namespaces needs privilege, so the
// specs that use these helpers are gated on running as root.
//
// Every helper here fails the running Ginkgo spec (via GinkgoHelper and
// Gomega's Expect) rather than returning an error: that mirrors how nsbox's
// own internal/must package treats unrecoverable syscall failures, just
// aimed at a test's fail handler instead of os.Exit.
package nstest
