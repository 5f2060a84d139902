// Package pipeline implements the generic pipeline engine: it wires an
// exchange adaptor's StreamDefs to redundant WebSocket clients, dedup
// workers, the SHM ring store, and optional UDP fan-out.
package pipeline

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/dedup"
	"main/internal/marketmodel"
	"main/internal/mderrors"
	"main/internal/redundant"
	"main/internal/shmring"
	"main/internal/timeutil"
	"main/internal/udppub"
)

// Engine owns the lifecycle of one connection config's worth of streams:
// init_shm() -> start() -> stop().
type Engine struct {
	Streams     []marketmodel.StreamDef
	Redundancy  int
	MdSize      uint32
	RotationWindowSeconds int
	RotationFloorRatio    float64
	CPUAffinity *int
	UDP         *udppub.Publisher

	mu         sync.Mutex
	stores     map[string]*shmring.Store // keyed by ShmName
	histograms map[string]*timeutil.Histogram // keyed by stream Name
	clients    []*redundant.Client
	wg         sync.WaitGroup
	stopOnce   sync.Once
	stopped    chan struct{}
}

// NewEngine constructs an Engine ready for InitShm.
func NewEngine(streams []marketmodel.StreamDef, redundancy int, mdSize uint32, rotationWindowSeconds int, rotationFloorRatio float64, cpuAffinity *int, udp *udppub.Publisher) *Engine {
	return &Engine{
		Streams:               streams,
		Redundancy:            redundancy,
		MdSize:                mdSize,
		RotationWindowSeconds: rotationWindowSeconds,
		RotationFloorRatio:    rotationFloorRatio,
		CPUAffinity:           cpuAffinity,
		UDP:                   udp,
		stores:                make(map[string]*shmring.Store),
		histograms:            make(map[string]*timeutil.Histogram),
		stopped:               make(chan struct{}),
	}
}

// InitShm creates one ShmStore per distinct ShmName referenced by the
// engine's StreamDefs, sized from MdSize. Idempotent if called twice.
func (e *Engine) InitShm() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, stream := range e.Streams {
		for msgType, shmName := range stream.ShmNames {
			if shmName == "" {
				continue
			}
			if _, exists := e.stores[shmName]; exists {
				continue
			}
			recordSize := marketmodel.RecordSize(msgType)
			store, err := shmring.Create(shmName, stream.Symbols, recordSize, e.MdSize)
			if err != nil {
				return errors.Wrap(mderrors.ErrShmCreate, err.Error()).With("shm_name", shmName)
			}
			e.stores[shmName] = store
		}
	}
	return nil
}

// Start instantiates a RedundantWsClient per StreamDef and one dedup
// worker per StreamDef.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.clients = make([]*redundant.Client, len(e.Streams))
	for i, stream := range e.Streams {
		client := redundant.New(stream, e.Redundancy, e.RotationWindowSeconds, e.RotationFloorRatio)
		e.clients[i] = client
		client.Start(ctx)

		hist := timeutil.NewHistogram()
		e.histograms[stream.Name] = hist

		e.wg.Add(1)
		go e.runDedupWorker(ctx, stream, client, hist)
	}
	return nil
}

// Histograms returns the per-stream exchange-to-receive latency
// histograms, keyed by StreamDef.Name, for exposure on the application's
// metrics_addr endpoint.
func (e *Engine) Histograms() map[string]*timeutil.Histogram {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]*timeutil.Histogram, len(e.histograms))
	for name, h := range e.histograms {
		out[name] = h
	}
	return out
}

// Dropped returns the per-stream count of envelopes discarded by each
// redundant.Client because its outbound channel was full, keyed by
// StreamDef.Name, for exposure on the application's metrics_addr
// endpoint alongside Histograms.
func (e *Engine) Dropped() map[string]uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]uint64, len(e.clients))
	for i, client := range e.clients {
		if client != nil {
			out[e.Streams[i].Name] = client.Dropped()
		}
	}
	return out
}

// runDedupWorker owns the dedup gate and the SHM write side for one
// StreamDef, on a dedicated goroutine (optionally CPU-pinned). It reads
// from the MPSC channel, parses via StreamDef.Parse, gates through the
// dedup, and on accept writes to SHM and (if enabled) UDP.
func (e *Engine) runDedupWorker(ctx context.Context, stream marketmodel.StreamDef, client *redundant.Client, hist *timeutil.Histogram) {
	defer e.wg.Done()

	if e.CPUAffinity != nil && *e.CPUAffinity >= 0 {
		// Keep this goroutine on the thread being pinned. The thread is not
		// unlocked, so the runtime discards it when the worker exits.
		runtime.LockOSThread()
		if !bindToCore(*e.CPUAffinity) {
			logs.Warnf("pipeline: failed to bind dedup worker to core %d", *e.CPUAffinity)
		}
	}

	seqGate := dedup.NewUpdateIdDedup()
	hashGate := dedup.NewIdHashDedup()

	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-client.Out():
			if !ok {
				return
			}
			records := stream.Parse(env.Frame)
			for _, rec := range records {
				if !e.handleRecord(stream, rec, env, seqGate, hashGate, hist, client) {
					return
				}
			}
		}
	}
}

// handleRecord gates, records and writes one record. It returns false when
// the worker must terminate (an SHM write failed).
func (e *Engine) handleRecord(stream marketmodel.StreamDef, rec marketmodel.ParsedRecord, env redundant.Envelope, seqGate *dedup.UpdateIdDedup, hashGate *dedup.IdHashDedup, hist *timeutil.Histogram, client *redundant.Client) bool {
	symbol := rec.Symbol.String()

	var accepted bool
	switch stream.DedupKindFor(rec.Type) {
	case marketmodel.DedupByIDHash:
		accepted = hashGate.Accept(symbol, rec.IDBytes)
	default:
		accepted = seqGate.Accept(symbol, rec.SeqKey())
	}
	if !accepted {
		return true
	}

	client.AddAccept(env.ConnIndex)

	exchangeTs := exchangeTimestamp(rec)
	recvTs := env.RecvTsUs
	skewUs := recvTs - exchangeTs
	if skewUs < -5000 {
		logs.Warnf("pipeline: clock skew exceeds 5ms tolerance symbol=%s skew_us=%d", symbol, skewUs)
	}
	hist.Record(recvTs - exchangeTs)

	shmName := stream.ShmNames[rec.Type]
	store := e.stores[shmName]
	if store != nil {
		payload := marketmodel.EncodeRecord(rec)
		if err := store.Write(symbol, payload); err != nil {
			logs.Errorf("pipeline: shm write failed, terminating worker: %v", errors.Wrap(mderrors.ErrShmWrite, err.Error()).With("symbol", symbol))
			return false
		}
		if e.UDP != nil {
			e.UDP.Send(1, rec.Type, rec.ProductType, payload)
		}
	}
	return true
}

func exchangeTimestamp(rec marketmodel.ParsedRecord) int64 {
	switch rec.Type {
	case marketmodel.MessageBBO:
		return rec.Bookticker.ExchangeTsUs
	case marketmodel.MessageTrade:
		return rec.Trade.ExchangeTsUs
	case marketmodel.MessageAggTrade:
		return rec.AggTrade.ExchangeTsUs
	case marketmodel.MessageDepth5:
		return rec.Depth5.ExchangeTsUs
	default:
		return 0
	}
}

// Stop cancels every client's connections and joins the dedup workers,
// bounded by timeout. After that it force-returns rather than block
// shutdown indefinitely. The workers exit when the caller's ctx is
// cancelled; the channel is not drained, so envelopes still queued at
// that point are discarded unprocessed.
func (e *Engine) Stop(timeout time.Duration) error {
	e.stopOnce.Do(func() {
		close(e.stopped)
	})

	e.mu.Lock()
	for _, c := range e.clients {
		c.Stop()
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		logs.Warnf("pipeline: stop timed out after %s, force-aborting", timeout)
		return mderrors.ErrCancelled
	}

	for _, store := range e.stores {
		_ = store.Close()
	}
	return nil
}
