// Package faultinjector provides deterministic drop/duplicate/reorder
// injection over a raw WebSocket frame stream, for reconnect-storm and
// idempotence boundary tests. It does not inject delays: frames are only
// held back while the reorder window fills. Adapted from the teacher's
// internal/chaos.Engine (originally built for WAL events) to wrap
// []byte frames instead.
package faultinjector

import (
	"fmt"
	"math/rand"
)

// Config controls injection rates; Seed makes a run reproducible.
type Config struct {
	Seed          int64
	DropRate      float64
	DuplicateRate float64
	ReorderWindow int
}

// Validate ensures the config is within supported ranges.
func (c Config) Validate() error {
	if c.DropRate < 0 || c.DropRate > 1 {
		return fmt.Errorf("dropRate must be between 0 and 1")
	}
	if c.DuplicateRate < 0 || c.DuplicateRate > 1 {
		return fmt.Errorf("duplicateRate must be between 0 and 1")
	}
	if c.ReorderWindow <= 0 {
		return fmt.Errorf("reorderWindow must be >= 1")
	}
	return nil
}

// Injector applies Config's rules to a sequence of frames.
type Injector struct {
	cfg     Config
	rng     *rand.Rand
	pending [][]byte
}

// New validates cfg and returns a seeded Injector.
func New(cfg Config) (*Injector, error) {
	if cfg.ReorderWindow <= 0 {
		cfg.ReorderWindow = 1
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Injector{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}, nil
}

// Process applies the configured chaos to one frame, returning zero or
// more frames to emit immediately (more may be held pending until the
// reorder window fills).
func (i *Injector) Process(frame []byte) [][]byte {
	if i == nil {
		return [][]byte{frame}
	}
	if i.shouldDrop() {
		return nil
	}
	if i.cfg.ReorderWindow <= 1 {
		return i.applyDuplicate(frame)
	}
	i.pending = append(i.pending, frame)
	if len(i.pending) < i.cfg.ReorderWindow {
		return nil
	}
	idx := i.rng.Intn(len(i.pending))
	out := i.pending[idx]
	i.pending = append(i.pending[:idx], i.pending[idx+1:]...)
	return i.applyDuplicate(out)
}

// Flush drains any buffered frames after the source is exhausted.
func (i *Injector) Flush() [][]byte {
	if i == nil || len(i.pending) == 0 {
		return nil
	}
	out := make([][]byte, 0, len(i.pending))
	for len(i.pending) > 0 {
		idx := i.rng.Intn(len(i.pending))
		frame := i.pending[idx]
		i.pending = append(i.pending[:idx], i.pending[idx+1:]...)
		out = append(out, i.applyDuplicate(frame)...)
	}
	return out
}

func (i *Injector) shouldDrop() bool {
	return i.cfg.DropRate > 0 && i.rng.Float64() < i.cfg.DropRate
}

func (i *Injector) applyDuplicate(frame []byte) [][]byte {
	out := [][]byte{frame}
	if i.cfg.DuplicateRate > 0 && i.rng.Float64() < i.cfg.DuplicateRate {
		out = append(out, frame)
	}
	return out
}
