// Package nsbuild creates the namespace set nsbox isolates its child
// command in (spec.md §4.4) and privatizes mount propagation immediately
// afterwards.
package nsbuild

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nsbox/nsbox/internal/must"
	"github.com/nsbox/nsbox/internal/nsflags"
)

const (
	initialBackoff = time.Microsecond
	maxBackoff     = 250_000 * time.Microsecond // 250000µs ceiling
	maxAttempts    = 100
)

// TransientError wraps the EINVAL race documented in spec.md §4.4: Linux
// can return EINVAL from unshare(2) even for valid flag combinations when
// concurrent namespace operations are in flight in unrelated processes.
type TransientError struct{ Err error }

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Create unshares the requested namespace flags (always user, mount, uts,
// ipc; network is added when netns is true), retrying only on EINVAL with
// bounded exponential backoff (1µs doubling to a 250000µs ceiling, at most
// 100 attempts), then immediately makes "/" recursively private so that
// none of the mounts nsbox is about to perform propagate back to the
// parent's mount namespace.
//
// Any error other than EINVAL, or exhaustion of the retry budget, is fatal.
func Create(netns bool) {
	var flags int
	for _, f := range nsflags.All {
		flags |= f
	}
	if netns {
		flags |= unix.CLONE_NEWNET
	}

	must.Check(unshareWithRetry(flags), "unshare namespaces")

	// The exact three-argument-"/"-twice mount call: the fstype argument is
	// inert for a propagation-only remount, kept for consistency with every
	// other private-izing remount in this codebase.
	must.Check(unix.Mount("none", "/", "/", unix.MS_REC|unix.MS_PRIVATE, ""), "make / recursively private")
}

func unshareWithRetry(flags int) error {
	backoff := initialBackoff
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := unix.Unshare(flags)
		if err == nil {
			return nil
		}
		if !errors.Is(err, unix.EINVAL) {
			return err
		}
		time.Sleep(backoff)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return &TransientError{Err: errors.New("unshare: EINVAL retry budget exhausted")}
}
