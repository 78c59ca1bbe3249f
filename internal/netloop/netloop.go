// Package netloop brings the loopback interface up inside a fresh network
// namespace (spec.md §4.6.1). A newly created network namespace starts with
// its lo interface administratively down; left that way, a sandboxed
// command that talks to itself over 127.0.0.1 simply fails to connect.
package netloop

import (
	"github.com/vishvananda/netlink"

	"github.com/nsbox/nsbox/internal/must"
)

// BringUpLoopback sets the "lo" interface of the calling network namespace
// administratively up.
func BringUpLoopback() {
	link, err := netlink.LinkByName("lo")
	must.Check(err, "find loopback interface")
	must.Check(netlink.LinkSetUp(link), "bring up loopback interface")
}
