package membership

import (
	"sync"

	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/emirpasic/gods/utils"

	"github.com/ethereum/go-ethereum/log"
)

// Index is the authoritative, in-memory directory of registered peers. It
// keeps a primary map alongside two secondary red-black trees so that
// elite_top and alive_since both run proportional to their output size
// rather than to the whole membership.
//
// All six operations share one exclusive discipline: both trees must stay
// consistent with the primary map, and queries must see a coherent
// snapshot, so a single mutex is cheaper and simpler than per-tree locks
// or a multiversion store for the expected fan-in of thousands of peers.
type Index struct {
	mu sync.Mutex

	primary  map[string]*Record
	liveness *redblacktree.Tree // keyed by livenessKey, descending last_alive
	elite    *redblacktree.Tree // keyed by eliteKey, ascending connections

	log log.Logger
}

func livenessComparator(a, b interface{}) int {
	ka, kb := a.(livenessKey), b.(livenessKey)
	switch {
	case ka.lastAlive > kb.lastAlive:
		return -1
	case ka.lastAlive < kb.lastAlive:
		return 1
	default:
		return utils.StringComparator(ka.address, kb.address)
	}
}

func eliteComparator(a, b interface{}) int {
	ka, kb := a.(eliteKey), b.(eliteKey)
	switch {
	case ka.connections < kb.connections:
		return -1
	case ka.connections > kb.connections:
		return 1
	default:
		return utils.StringComparator(ka.address, kb.address)
	}
}

// NewIndex returns an empty membership index.
func NewIndex() *Index {
	return &Index{
		primary:  make(map[string]*Record),
		liveness: redblacktree.NewWith(livenessComparator),
		elite:    redblacktree.NewWith(eliteComparator),
		log:      log.New("component", "membership"),
	}
}

// Add registers address, returning true if it was newly added and false
// if it was already present. A duplicate registration is not an error: it
// is a reportable boolean, left to the caller (the Hello handler) to turn
// into a HelloResponse result.
func (idx *Index) Add(address string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.primary[address]; ok {
		return false
	}

	rec := &Record{
		Address:  address,
		liveKey:  livenessKey{lastAlive: 0, address: address},
		eliteKey: eliteKey{connections: 0, address: address},
	}
	idx.primary[address] = rec
	idx.liveness.Put(rec.liveKey, rec)
	idx.elite.Put(rec.eliteKey, rec)
	return true
}

// Remove deregisters address. An unknown address is a silent no-op,
// logged as a warning.
func (idx *Index) Remove(address string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	rec, ok := idx.primary[address]
	if !ok {
		idx.log.Warn("remove of unknown peer", "address", address)
		return
	}
	delete(idx.primary, address)
	idx.liveness.Remove(rec.liveKey)
	idx.elite.Remove(rec.eliteKey)
}

// Touch updates address's last-alive timestamp and reorders the liveness
// tree accordingly. ts is accepted as-is, including values earlier than
// the record's current last_alive: the source this service is modeled on
// does not enforce monotonicity, and this preserves that permissiveness
// rather than silently extending the protocol.
func (idx *Index) Touch(address string, ts int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	rec, ok := idx.primary[address]
	if !ok {
		idx.log.Warn("touch of unknown peer", "address", address)
		return
	}
	idx.liveness.Remove(rec.liveKey)
	rec.LastAlive = ts
	rec.liveKey = livenessKey{lastAlive: ts, address: address}
	idx.liveness.Put(rec.liveKey, rec)
}

// SetConnections updates address's reported connection count and reorders
// the elite tree accordingly.
func (idx *Index) SetConnections(address string, n uint64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	rec, ok := idx.primary[address]
	if !ok {
		idx.log.Warn("connection update for unknown peer", "address", address)
		return
	}
	idx.elite.Remove(rec.eliteKey)
	rec.Connections = n
	rec.eliteKey = eliteKey{connections: n, address: address}
	idx.elite.Put(rec.eliteKey, rec)
}

// EliteTop returns up to k addresses from the head of the elite ordering
// (fewest connections first, ties broken by address).
func (idx *Index) EliteTop(k int) []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if k <= 0 {
		return nil
	}
	n := k
	if size := idx.elite.Size(); n > size {
		n = size
	}
	out := make([]string, 0, n)
	it := idx.elite.Iterator()
	for it.Next() && len(out) < k {
		out = append(out, it.Key().(eliteKey).address)
	}
	return out
}

// AliveSince returns, in descending last-alive order, every address whose
// last_alive is strictly greater than t.
func (idx *Index) AliveSince(t int64) []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var out []string
	it := idx.liveness.Iterator()
	for it.Next() {
		key := it.Key().(livenessKey)
		if key.lastAlive <= t {
			break
		}
		out = append(out, key.address)
	}
	return out
}

// Size returns the current number of registered peers.
func (idx *Index) Size() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.primary)
}
