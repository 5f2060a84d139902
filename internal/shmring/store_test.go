package shmring

import (
	"encoding/binary"
	"testing"
)

func TestCreateRejectsNonPowerOfTwo(t *testing.T) {
	_, err := Create("test-bad-capacity", []string{"BTCUSDT"}, 8, 3)
	if err != ErrCapacityNotPow2 {
		t.Fatalf("expected ErrCapacityNotPow2, got %v", err)
	}
}

func TestWriteReadLatest(t *testing.T) {
	store, err := Create("test-write-read", []string{"BTCUSDT"}, 8, 4)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer store.Close()

	rec := make([]byte, 8)
	binary.LittleEndian.PutUint64(rec, 42)
	if err := store.Write("BTCUSDT", rec); err != nil {
		t.Fatalf("write: %v", err)
	}

	idx, err := store.WriteIndex("BTCUSDT")
	if err != nil || idx != 1 {
		t.Fatalf("expected write index 1, got %d err=%v", idx, err)
	}

	out, ok, err := store.ReadLatest("BTCUSDT")
	if err != nil || !ok {
		t.Fatalf("read_latest failed: ok=%v err=%v", ok, err)
	}
	if binary.LittleEndian.Uint64(out) != 42 {
		t.Fatalf("unexpected payload: %v", out)
	}
}

func TestUnknownSymbol(t *testing.T) {
	store, err := Create("test-unknown-symbol", []string{"BTCUSDT"}, 8, 4)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer store.Close()

	if err := store.Write("ETHUSDT", make([]byte, 8)); err != ErrSymbolUnknown {
		t.Fatalf("expected ErrSymbolUnknown, got %v", err)
	}
}

func TestRingBufferWraparound(t *testing.T) {
	store, err := Create("test-wraparound", []string{"BTCUSDT"}, 8, 2)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer store.Close()

	for i := uint64(1); i <= 5; i++ {
		rec := make([]byte, 8)
		binary.LittleEndian.PutUint64(rec, i)
		if err := store.Write("BTCUSDT", rec); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	out, ok, err := store.ReadLatest("BTCUSDT")
	if err != nil || !ok {
		t.Fatalf("read_latest failed: ok=%v err=%v", ok, err)
	}
	if binary.LittleEndian.Uint64(out) != 5 {
		t.Fatalf("expected latest value 5, got %d", binary.LittleEndian.Uint64(out))
	}
}
