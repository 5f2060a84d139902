// Package shmring implements a fixed-layout, single-writer/many-reader
// shared-memory ring store. Publication uses a release-store /
// acquire-load write-index per ring so that external readers never
// observe a torn slot without a way to detect it.
package shmring

import (
	"encoding/binary"
	"sync/atomic"
	"unsafe"

	"github.com/yanun0323/errors"
)

const (
	magic            = "K4MD"
	headerSize       = 16
	symbolEntrySize  = 24 // name[16] + ring_offset u64
	symbolNameWidth  = 16
	ringWriteIdxSize = 8
	// TornReadRetries bounds the read_latest retry loop before giving up
	// on a reader that keeps getting lapped by the writer.
	TornReadRetries = 3
)

var (
	ErrSymbolUnknown      = errors.New("shmring: symbol unknown")
	ErrBackendUnavailable = errors.New("shmring: backend unavailable")
	ErrRecordSize         = errors.New("shmring: record size mismatch")
	ErrCapacityNotPow2    = errors.New("shmring: capacity must be a power of two")
)

// Store is a mapping from symbol to its ring buffer, backed by a single
// contiguous memory region.
type Store struct {
	region     []byte
	backend    backend
	recordSize int
	capacity   uint32
	offsets    map[string]uint64 // symbol -> ring_offset within region
}

type backend interface {
	close() error
}

// Create reserves one ring buffer per symbol inside a named region sized
// from recordSize and capacity. Idempotent creation is the pipeline's
// responsibility (init_shm() checks before calling Create again).
func Create(name string, symbols []string, recordSize int, capacity uint32) (*Store, error) {
	if capacity == 0 || capacity&(capacity-1) != 0 {
		return nil, ErrCapacityNotPow2
	}
	symbolCount := uint32(len(symbols))
	dirSize := uint64(symbolCount) * symbolEntrySize
	ringSize := ringWriteIdxSize + uint64(capacity)*uint64(recordSize)
	totalSize := uint64(headerSize) + dirSize + uint64(symbolCount)*ringSize

	region, be, err := openRegion(name, totalSize)
	if err != nil {
		return nil, err
	}

	copy(region[0:4], magic)
	binary.LittleEndian.PutUint16(region[4:6], 1)
	binary.LittleEndian.PutUint16(region[6:8], uint16(recordSize))
	binary.LittleEndian.PutUint32(region[8:12], capacity)
	binary.LittleEndian.PutUint32(region[12:16], symbolCount)

	offsets := make(map[string]uint64, len(symbols))
	dirBase := uint64(headerSize)
	ringBase := dirBase + dirSize
	for i, sym := range symbols {
		entryOff := dirBase + uint64(i)*symbolEntrySize
		nameBytes := []byte(sym)
		if len(nameBytes) > symbolNameWidth {
			nameBytes = nameBytes[:symbolNameWidth]
		}
		copy(region[entryOff:entryOff+symbolNameWidth], nameBytes)
		ringOff := ringBase + uint64(i)*ringSize
		binary.LittleEndian.PutUint64(region[entryOff+symbolNameWidth:entryOff+symbolEntrySize], ringOff)
		offsets[sym] = ringOff
	}

	return &Store{
		region:     region,
		backend:    be,
		recordSize: recordSize,
		capacity:   capacity,
		offsets:    offsets,
	}, nil
}

// Close detaches the region without unlinking it; the backing shm path
// (or heap fallback) survives for the next process to reattach.
func (s *Store) Close() error {
	if s == nil || s.backend == nil {
		return nil
	}
	return s.backend.close()
}

func (s *Store) writeIdxPtr(ringOff uint64) *uint64 {
	return (*uint64)(unsafe.Pointer(&s.region[ringOff]))
}

func (s *Store) slotsBase(ringOff uint64) uint64 {
	return ringOff + ringWriteIdxSize
}

// Write copies record into slot (write_idx mod capacity), then publishes
// write_idx+1 with a release-ordered store. No per-symbol locking: the
// pipeline guarantees exactly one dedup worker owns the write side of
// each symbol.
func (s *Store) Write(symbol string, record []byte) error {
	if len(record) != s.recordSize {
		return ErrRecordSize
	}
	ringOff, ok := s.offsets[symbol]
	if !ok {
		return ErrSymbolUnknown
	}
	idxPtr := s.writeIdxPtr(ringOff)
	writeIdx := atomic.LoadUint64(idxPtr)
	slot := s.slotsBase(ringOff) + (writeIdx%uint64(s.capacity))*uint64(s.recordSize)
	copy(s.region[slot:slot+uint64(s.recordSize)], record)
	atomic.StoreUint64(idxPtr, writeIdx+1)
	return nil
}

// ReadLatest performs an acquire-load of write_idx, copies slot
// (write_idx-1 mod capacity), then re-checks write_idx to detect a torn
// read (the consumer was lapped mid-copy). Retries up to
// TornReadRetries times before giving up.
func (s *Store) ReadLatest(symbol string) ([]byte, bool, error) {
	ringOff, ok := s.offsets[symbol]
	if !ok {
		return nil, false, ErrSymbolUnknown
	}
	idxPtr := s.writeIdxPtr(ringOff)
	for attempt := 0; attempt < TornReadRetries; attempt++ {
		before := atomic.LoadUint64(idxPtr)
		if before == 0 {
			return nil, false, nil
		}
		slotIdx := (before - 1) % uint64(s.capacity)
		slot := s.slotsBase(ringOff) + slotIdx*uint64(s.recordSize)
		out := make([]byte, s.recordSize)
		copy(out, s.region[slot:slot+uint64(s.recordSize)])
		after := atomic.LoadUint64(idxPtr)
		if after-before < uint64(s.capacity) {
			return out, true, nil
		}
	}
	return nil, false, nil
}

// ReadAt reads the slot at a specific absolute ring index, for tests
// verifying that a ring at capacity C continues to accept writes while
// reads observe only the most recent C records.
func (s *Store) ReadAt(symbol string, idx uint64) ([]byte, error) {
	ringOff, ok := s.offsets[symbol]
	if !ok {
		return nil, ErrSymbolUnknown
	}
	slotIdx := idx % uint64(s.capacity)
	slot := s.slotsBase(ringOff) + slotIdx*uint64(s.recordSize)
	out := make([]byte, s.recordSize)
	copy(out, s.region[slot:slot+uint64(s.recordSize)])
	return out, nil
}

// WriteIndex returns the current write index for a symbol's ring, for
// tests asserting the "write_idx after write equals prior + 1" invariant.
func (s *Store) WriteIndex(symbol string) (uint64, error) {
	ringOff, ok := s.offsets[symbol]
	if !ok {
		return 0, ErrSymbolUnknown
	}
	return atomic.LoadUint64(s.writeIdxPtr(ringOff)), nil
}
