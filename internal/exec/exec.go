// Package exec replaces the nsbox process image with the sandboxed
// command, the final step of the pipeline (spec.md §4.8).
package exec

import (
	"log/slog"
	"os"
	osexec "os/exec"

	"golang.org/x/sys/unix"

	"github.com/nsbox/nsbox/internal/must"
)

// Run resolves argv[0] against PATH (inherited from the sandbox's own
// environment, since this runs after the pivot) and execve()s it in place,
// never returning on success. The umask is reset to 0022 first: nsbox's own
// umask during setup is whatever the invoking shell happened to leave it
// at, and that must not leak into the sandboxed command.
func Run(argv []string, debug bool) {
	unix.Umask(0o022)

	path, err := osexec.LookPath(argv[0])
	must.Checkf(err, "resolve %s in PATH", argv[0])

	if debug {
		slog.Debug("executing sandboxed command", "argv", argv, "resolved", path)
	}

	must.Check(unix.Exec(path, argv, os.Environ()), "execve "+path)
}
