package dedup

import "hash/maphash"

// idHashCapacity bounds the number of recently-seen identifier hashes
// kept per symbol (original_source's fixed table is sized 8192; this
// gate doubles that headroom).
const idHashCapacity = 16384

// IdHashDedup gates records by a non-cryptographic hash of an opaque
// identifier (e.g. a UUID trade id), per symbol, with FIFO eviction once
// the bounded set is full.
type IdHashDedup struct {
	seed    maphash.Seed
	perSym  map[string]*symbolHashSet
}

type symbolHashSet struct {
	seen  map[uint64]struct{}
	order []uint64
	head  int
}

// NewIdHashDedup returns an empty gate.
func NewIdHashDedup() *IdHashDedup {
	return &IdHashDedup{
		seed:   maphash.MakeSeed(),
		perSym: make(map[string]*symbolHashSet),
	}
}

// Accept hashes idBytes and returns true iff it has not been seen for
// this symbol, inserting it (evicting the oldest entry if at capacity).
func (d *IdHashDedup) Accept(symbol string, idBytes []byte) bool {
	h := maphash.Bytes(d.seed, idBytes)
	set, ok := d.perSym[symbol]
	if !ok {
		set = &symbolHashSet{
			seen:  make(map[uint64]struct{}, idHashCapacity),
			order: make([]uint64, idHashCapacity),
		}
		d.perSym[symbol] = set
	}
	if _, dup := set.seen[h]; dup {
		return false
	}
	set.insert(h)
	return true
}

func (s *symbolHashSet) insert(h uint64) {
	if len(s.seen) >= idHashCapacity {
		evict := s.order[s.head]
		delete(s.seen, evict)
	}
	s.order[s.head] = h
	s.head = (s.head + 1) % idHashCapacity
	s.seen[h] = struct{}{}
}
