// Package config parses nsbox's command line into an immutable Config. The
// grammar is deliberately not expressed with a flag/cobra/pflag-style
// library: the -M/-m/-w group is an order-dependent two-state machine (a
// source, optionally immediately followed by exactly one target flag) and
// @file arguments splice a whole new argument vector into the middle of the
// stream being scanned. Both of those break the "every flag accumulates into
// its own independent slice" model every flag library in the retrieval pack
// (jessevdk/go-flags, spf13/pflag, spf13/cobra) is built around, so the
// scanner below is hand-written against the standard library. See
// DESIGN.md for the full justification.
package config

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// nobodyID is the default inner identity when neither -i nor -r is given.
const nobodyID = 65534

// innerMode selects how InnerUID/InnerGID were derived.
type innerMode int

const (
	innerNobody innerMode = iota
	innerCaller
	innerRoot
)

// Mount is one {source, target, rw} bind mount entry. Order is preserved:
// later mounts may shadow earlier ones once applied inside the sandbox.
type Mount struct {
	Source string
	Target string
	RW     bool
}

// Config is the immutable, fully-resolved configuration for one sandbox
// invocation.
type Config struct {
	SandboxRoot string
	WorkingDir  string
	Argv        []string
	Mounts      []Mount
	CreateDirs  []string
	InnerUID    int
	InnerGID    int
	CreateNetNS bool
	HostName    string
	StdoutPath  string
	StderrPath  string
	Debug       bool
	ProbeMode   bool

	sandboxRootSet bool
}

// Parse scans args (typically os.Args[1:]) into a Config, expanding any
// @file tokens it encounters along the way. Parse does not look at the
// process's real/effective identity beyond resolving -i against the
// caller's *real* uid/gid, which it reads directly: this must happen before
// identity.SwitchToEffective runs, since that step is what may change them
// for a set-uid binary.
func Parse(args []string) (*Config, error) {
	cfg := &Config{}
	ts := newTokenStream(args)
	var pendingSource string
	havePending := false
	mode := innerNobody

	flushPending := func() {
		if havePending {
			cfg.Mounts = append(cfg.Mounts, Mount{Source: pendingSource, Target: pendingSource, RW: false})
			havePending = false
		}
	}

loop:
	for {
		tok, ok, err := ts.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		switch tok {
		case "--":
			break loop
		case "-n":
			cfg.CreateNetNS = true
		case "-i":
			mode = innerCaller
		case "-r":
			mode = innerRoot
		case "-D":
			cfg.Debug = true
		case "-C":
			cfg.ProbeMode = true
		case "-S":
			v, err := needArg(ts, "-S")
			if err != nil {
				return nil, err
			}
			if cfg.sandboxRootSet {
				return nil, usageErrorf("-S given more than once")
			}
			cfg.SandboxRoot = stripTrailingSlash(v)
			cfg.sandboxRootSet = true
		case "-W":
			v, err := needAbsArg(ts, "-W")
			if err != nil {
				return nil, err
			}
			cfg.WorkingDir = v
		case "-H":
			v, err := needArg(ts, "-H")
			if err != nil {
				return nil, err
			}
			cfg.HostName = v
		case "-l":
			v, err := needRedirectArg(ts, "-l")
			if err != nil {
				return nil, err
			}
			cfg.StdoutPath = v
		case "-L":
			v, err := needRedirectArg(ts, "-L")
			if err != nil {
				return nil, err
			}
			cfg.StderrPath = v
		case "-d":
			v, err := needAbsArg(ts, "-d")
			if err != nil {
				return nil, err
			}
			cfg.CreateDirs = append(cfg.CreateDirs, v)
		case "-M":
			v, err := needAbsArg(ts, "-M")
			if err != nil {
				return nil, err
			}
			flushPending()
			pendingSource = v
			havePending = true
		case "-m":
			v, err := needAbsArg(ts, "-m")
			if err != nil {
				return nil, err
			}
			if !havePending {
				return nil, usageErrorf("-m without a preceding -M")
			}
			cfg.Mounts = append(cfg.Mounts, Mount{Source: pendingSource, Target: v, RW: false})
			havePending = false
		case "-w":
			v, err := needAbsArg(ts, "-w")
			if err != nil {
				return nil, err
			}
			if !havePending {
				return nil, usageErrorf("-w without a preceding -M")
			}
			cfg.Mounts = append(cfg.Mounts, Mount{Source: pendingSource, Target: v, RW: true})
			havePending = false
		default:
			return nil, usageErrorf("unknown option %q", tok)
		}
	}
	flushPending()

	for {
		tok, ok, err := ts.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		cfg.Argv = append(cfg.Argv, tok)
	}

	if cfg.ProbeMode {
		return cfg, nil
	}
	if !cfg.sandboxRootSet {
		return nil, usageErrorf("missing required -S sandbox root")
	}
	if len(cfg.Argv) == 0 {
		return nil, usageErrorf("missing command")
	}

	switch mode {
	case innerCaller:
		cfg.InnerUID, cfg.InnerGID = unix.Getuid(), unix.Getgid()
	case innerRoot:
		cfg.InnerUID, cfg.InnerGID = 0, 0
	default:
		cfg.InnerUID, cfg.InnerGID = nobodyID, nobodyID
	}

	return cfg, nil
}

func stripTrailingSlash(p string) string {
	if p == "/" {
		return p
	}
	return strings.TrimRight(p, "/")
}

func needArg(ts *tokenStream, flag string) (string, error) {
	tok, ok, err := ts.next()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", usageErrorf("%s requires an argument", flag)
	}
	return tok, nil
}

func needAbsArg(ts *tokenStream, flag string) (string, error) {
	v, err := needArg(ts, flag)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(v, "/") {
		return "", usageErrorf("%s argument %q must be an absolute path", flag, v)
	}
	return v, nil
}

// needRedirectArg accepts either an absolute path or the literal "-" meaning
// "no redirection".
func needRedirectArg(ts *tokenStream, flag string) (string, error) {
	v, err := needArg(ts, flag)
	if err != nil {
		return "", err
	}
	if v == "-" {
		return v, nil
	}
	if !strings.HasPrefix(v, "/") {
		return "", usageErrorf("%s argument %q must be an absolute path or \"-\"", flag, v)
	}
	return v, nil
}

// UsageError describes a configuration error: bad or missing flags, a
// non-absolute path where one is required, or a missing command.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string { return e.Message }

func usageErrorf(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}
