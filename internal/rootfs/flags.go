package rootfs

import (
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// InheritedFlags scans /proc/self/mounts for the entry whose mount point is
// target and returns the nodev/nosuid/noexec bits it carries (spec.md
// §4.5.2). A read-only remount of a bind mount must carry these forward
// explicitly — the kernel does not let a MS_REMOUNT silently drop them — so
// this is consulted before every read-only bind's remount.
//
// The scan is sequential and does not stop at the first match: if target
// appears more than once (a bind mount stacked over an earlier one), the
// last entry wins, matching the order the kernel itself would report them
// to a fresh reader of the file.
func InheritedFlags(target string) (uintptr, error) {
	data, err := os.ReadFile("/proc/self/mounts")
	if err != nil {
		return 0, err
	}

	var flags uintptr
	var found bool
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		if fields[1] != target {
			continue
		}
		found = true
		flags = 0
		for _, opt := range strings.Split(fields[3], ",") {
			switch opt {
			case "nodev":
				flags |= unix.MS_NODEV
			case "nosuid":
				flags |= unix.MS_NOSUID
			case "noexec":
				flags |= unix.MS_NOEXEC
			}
		}
	}
	if !found {
		return 0, nil
	}
	return flags, nil
}
