package faultinjector

import "testing"

func TestNoOpConfigPassesFramesThrough(t *testing.T) {
	inj, err := New(Config{Seed: 1, ReorderWindow: 1})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out := inj.Process([]byte("a"))
	if len(out) != 1 || string(out[0]) != "a" {
		t.Fatalf("expected passthrough, got %v", out)
	}
}

func TestAlwaysDropDropsEverything(t *testing.T) {
	inj, err := New(Config{Seed: 1, DropRate: 1, ReorderWindow: 1})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if out := inj.Process([]byte("a")); out != nil {
		t.Fatalf("expected nil, got %v", out)
	}
}

func TestAlwaysDuplicateDuplicates(t *testing.T) {
	inj, err := New(Config{Seed: 1, DuplicateRate: 1, ReorderWindow: 1})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out := inj.Process([]byte("a"))
	if len(out) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(out))
	}
}

func TestInvalidRateRejected(t *testing.T) {
	if _, err := New(Config{DropRate: 2}); err == nil {
		t.Fatal("expected validation error")
	}
}
