// Package must is nsbox's privileged-call wrapper: every syscall whose
// failure leaves no sane way to continue goes through Check or Value, which
// print a "file:line: context: errno" diagnostic to stderr and terminate the
// process with a non-zero exit status.
//
// The pattern is the production-side sibling of the teacher's Gomega-based
// "Expect(err).To(Succeed(), ctx)" idiom and of
// github.com/thediveo/success's Successful(v, err) — kept standalone here so
// that launching a sandbox never requires bootstrapping a Ginkgo/Gomega fail
// handler first. There is deliberately no cleanup: kernel namespace teardown
// on process exit reclaims whatever was partially constructed.
package must

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
)

// Check aborts the process if err is non-nil. context describes the
// operation that was attempted, e.g. "bind-mount sandbox root".
func Check(err error, context string) {
	if err == nil {
		return
	}
	abort(context, err)
}

// Value aborts the process if err is non-nil, otherwise returns v. Mirrors
// the call shape of github.com/thediveo/success's Successful.
func Value[T any](v T, err error, context string) T {
	if err != nil {
		abort(context, err)
	}
	return v
}

// Checkf is Check with a formatted context.
func Checkf(err error, format string, args ...any) {
	if err == nil {
		return
	}
	abort(fmt.Sprintf(format, args...), err)
}

// Warnf logs a non-fatal recoverable failure through the ambient slog
// logger: a step nsbox can carry on past, but that the operator should
// still be told about.
func Warnf(format string, args ...any) {
	slog.Warn(fmt.Sprintf(format, args...))
}

func abort(context string, err error) {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file, line = "???", 0
	}
	fmt.Fprintf(os.Stderr, "%s:%d: %s: %s\n", filepath.Base(file), line, context, err)
	os.Exit(1)
}
