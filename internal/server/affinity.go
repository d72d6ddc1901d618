package server

import (
	"hash/fnv"
	"net"
)

// AffinityPort computes which of the N consecutive ports starting at
// beginningPort a datagram from ip should be sent to, so that one peer's
// traffic is consistently served by one socket/worker and index
// contention for that peer is structurally reduced.
//
// This is an optimization, not a correctness requirement: any bound
// socket's worker can correctly serve any request regardless of source
// IP, so routing may safely drift (a client that ignores this, or an
// entry hop that routes differently, does not break anything). Whether
// clients consult this directly or an entry hop applies it on their
// behalf is a deployment choice left outside the dispatcher.
func AffinityPort(beginningPort, n int, ip net.IP) int {
	if n <= 0 {
		return beginningPort
	}
	h := fnv.New32a()
	_, _ = h.Write(ip.To16())
	return beginningPort + int(h.Sum32()%uint32(n))
}
