// Package identity implements nsbox's identity switcher (spec.md §4.2) and
// identity mapper (spec.md §4.6).
package identity

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/nsbox/nsbox/internal/must"
)

// SwitchToEffective collapses the calling process's real and effective
// uid/gid to the effective value via setreuid/setregid when they differ —
// the case where the binary is installed set-uid and invoked by a shell
// (notably one commonly default on Linux) that consults the real uid and
// would otherwise drop privileges. It returns the resulting (outer) uid/gid,
// the identity later used as the host side of the uid_map/gid_map.
func SwitchToEffective() (outerUID, outerGID int) {
	ruid, euid := unix.Getuid(), unix.Geteuid()
	rgid, egid := unix.Getgid(), unix.Getegid()

	if ruid != euid {
		must.Check(unix.Setreuid(euid, euid), "collapse real/effective uid")
	}
	if rgid != egid {
		must.Check(unix.Setregid(egid, egid), "collapse real/effective gid")
	}
	return euid, egid
}

// MapIdentities writes the single-entry uid_map/gid_map that lets a fresh
// user namespace present innerUID/innerGID on the inside while outerUID/
// outerGID is the owner on the host side, then switches the calling
// process's real/effective/saved ids to the inner identity.
//
// Preconditions: the calling process is in a freshly unshared user
// namespace and has not yet called setgroups.
func MapIdentities(innerUID, outerUID, innerGID, outerGID int) {
	if err := os.WriteFile("/proc/self/setgroups", []byte("deny"), 0o644); err != nil {
		if !os.IsNotExist(err) {
			must.Check(err, "write /proc/self/setgroups")
		}
	}
	must.Check(
		os.WriteFile("/proc/self/uid_map", []byte(fmt.Sprintf("%d %d 1\n", innerUID, outerUID)), 0o644),
		"write /proc/self/uid_map",
	)
	must.Check(
		os.WriteFile("/proc/self/gid_map", []byte(fmt.Sprintf("%d %d 1\n", innerGID, outerGID)), 0o644),
		"write /proc/self/gid_map",
	)
	must.Check(unix.Setresgid(innerGID, innerGID, innerGID), "setresgid to inner identity")
	must.Check(unix.Setresuid(innerUID, innerUID, innerUID), "setresuid to inner identity")
}
