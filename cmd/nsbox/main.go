// Command nsbox builds a lightweight Linux sandbox out of user, mount,
// UTS, IPC, and (optionally) network namespaces, then execs a command
// inside it.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/nsbox/nsbox/internal/config"
	"github.com/nsbox/nsbox/internal/exec"
	"github.com/nsbox/nsbox/internal/identity"
	"github.com/nsbox/nsbox/internal/must"
	"github.com/nsbox/nsbox/internal/netloop"
	"github.com/nsbox/nsbox/internal/nsbuild"
	"github.com/nsbox/nsbox/internal/pivot"
	"github.com/nsbox/nsbox/internal/probe"
	"github.com/nsbox/nsbox/internal/rootfs"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == probe.ChildMarker {
		os.Exit(0)
	}

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "nsbox:", err)
		os.Exit(2)
	}

	setUpLogging(cfg.Debug)

	if cfg.ProbeMode {
		if err := probe.Supported(); err != nil {
			fmt.Fprintln(os.Stderr, "nsbox: namespaces not supported:", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// The remaining sequence unshares namespaces and switches this OS
	// thread's identity; none of that may be allowed to migrate to another
	// thread partway through.
	runtime.LockOSThread()

	outerUID, outerGID := identity.SwitchToEffective()

	redirectStdio(cfg.StdoutPath, cfg.StderrPath)

	nsbuild.Create(cfg.CreateNetNS)
	if cfg.Debug {
		nsbuild.LogTypes(cfg.CreateNetNS)
	}

	rootfs.Anchor(cfg.SandboxRoot)
	rootfs.PopulateDev()
	rootfs.MountProc()
	rootfs.MakeDirs(cfg.CreateDirs)
	rootfs.ApplyMounts(cfg.SandboxRoot, cfg.Mounts)
	if home := rootfs.ResolveHome(cfg.InnerUID); home != "" {
		must.Check(os.Setenv("HOME", home), "set HOME")
	}

	identity.MapIdentities(cfg.InnerUID, outerUID, cfg.InnerGID, outerGID)

	if cfg.HostName != "" {
		must.Check(unix.Sethostname([]byte(cfg.HostName)), "set hostname")
	}
	if cfg.CreateNetNS {
		netloop.BringUpLoopback()
	}

	pivot.Pivot(cfg.WorkingDir)

	exec.Run(cfg.Argv, cfg.Debug)
}

func setUpLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// redirectStdio reopens stdout/stderr onto the requested paths before any
// namespace is unshared, so a relative path (there are none — config
// requires absolute paths or "-") is resolved against the caller's
// original filesystem view rather than the about-to-be-assembled sandbox.
func redirectStdio(stdoutPath, stderrPath string) {
	if stdoutPath != "" && stdoutPath != "-" {
		f, err := os.OpenFile(stdoutPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		must.Check(err, "open stdout redirect target")
		must.Check(unix.Dup2(int(f.Fd()), unix.Stdout), "redirect stdout")
	}
	if stderrPath != "" && stderrPath != "-" {
		f, err := os.OpenFile(stderrPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		must.Check(err, "open stderr redirect target")
		must.Check(unix.Dup2(int(f.Fd()), unix.Stderr), "redirect stderr")
	}
}
