package rootfs

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/nsbox/nsbox/internal/must"
)

// ResolveHome determines the sandbox's HOME for innerUID (spec.md §4.5): it
// scans the sandbox's own etc/passwd (relative to the current directory,
// which must already be the sandbox root) for the first entry whose uid
// field matches, using that entry's home directory field. If etc/passwd is
// absent or has no matching entry, the caller's own HOME environment
// variable is used instead. If neither yields anything, ResolveHome returns
// an empty string and the caller leaves HOME untouched.
//
// A non-empty result is required to be absolute (fatal otherwise) and is
// recursively created inside the sandbox before being returned, so that the
// directory exists by the time the sandboxed command starts.
func ResolveHome(innerUID int) string {
	home := scanPasswd(innerUID)
	if home == "" {
		home = os.Getenv("HOME")
	}
	if home == "" {
		return ""
	}
	if !strings.HasPrefix(home, "/") {
		must.Check(errNotAbsolute(home), "resolve sandbox HOME")
	}
	must.Check(EnsureNode(strings.TrimPrefix(home, "/"), true), "create HOME directory "+home)
	return home
}

type errNotAbsolute string

func (e errNotAbsolute) Error() string { return string(e) + ": HOME must be an absolute path" }

// scanPasswd looks up uid in etc/passwd, returning its home-directory
// field (the 6th colon-separated field) or "" if the file is missing or no
// entry matches.
func scanPasswd(uid int) string {
	f, err := os.Open("etc/passwd")
	if err != nil {
		return ""
	}
	defer f.Close()

	target := strconv.Itoa(uid)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), ":")
		if len(fields) < 6 {
			continue
		}
		if fields[2] == target {
			return fields[5]
		}
	}
	return ""
}
