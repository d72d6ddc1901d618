// Package membership holds the seeder's in-memory view of the peer
// overlay: one Record per registered peer, kept in a primary map and
// two secondary orderings (see Index).
package membership

// Record is one registered peer. It is owned by the Index; callers never
// construct or mutate a Record directly, only through Index methods.
type Record struct {
	Address     string
	LastAlive   int64
	Connections uint64

	// liveKey and eliteKey are the composite keys this record is
	// currently filed under in the liveness and elite trees. They stand
	// in for the container iterators the C++ source stores on the
	// client object: Index.Remove/Touch/SetConnections use them to
	// erase the record's old position without recomputing it.
	liveKey  livenessKey
	eliteKey eliteKey
}

type livenessKey struct {
	lastAlive int64
	address   string
}

type eliteKey struct {
	connections uint64
	address     string
}
