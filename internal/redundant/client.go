// Package redundant implements an N-way redundant WebSocket client: N
// independent connections per StreamDef fanning into one bounded MPSC
// channel, with a rotation monitor that culls the lowest-accept-share
// connection per window.
package redundant

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/marketmodel"
	"main/internal/mderrors"
	"main/internal/wsconn"
)

// Envelope tags a raw frame with the connection index that produced it,
// so the dedup worker can attribute accepts back to a connection for the
// rotation monitor.
type Envelope struct {
	ConnIndex int
	Frame     []byte
	RecvTsUs  int64
}

// Client fans out one StreamDef across N redundant connections into a
// single bounded channel.
type Client struct {
	stream     marketmodel.StreamDef
	redundancy int
	out        chan Envelope

	windowDuration time.Duration
	floorRatio     float64

	mu          sync.Mutex
	conns       []*wsconn.Conn
	cancelFuncs []context.CancelFunc
	accepted    []uint64 // atomic-free: only the rotation goroutine reads/resets; dedup worker uses AddAccept

	dropped atomic.Uint64
}

const defaultChannelCapacity = 8192

// New creates a Client with redundancy independent connections against
// stream.URL, all sharing stream.SubscribePayload.
func New(stream marketmodel.StreamDef, redundancy int, windowSeconds int, floorRatio float64) *Client {
	if redundancy < 1 {
		redundancy = 1
	}
	if windowSeconds <= 0 {
		windowSeconds = 60
	}
	if floorRatio <= 0 {
		floorRatio = 0.05
	}
	return &Client{
		stream:         stream,
		redundancy:     redundancy,
		out:            make(chan Envelope, defaultChannelCapacity),
		windowDuration: time.Duration(windowSeconds) * time.Second,
		floorRatio:     floorRatio,
		accepted:       make([]uint64, redundancy),
	}
}

// Out returns the tagged envelope channel the dedup worker consumes.
func (c *Client) Out() <-chan Envelope {
	return c.out
}

// Dropped returns the count of frames discarded because the outbound
// channel was full, per mderrors.ErrCapacityOverflow's counted,
// oldest-dropped, non-fatal policy.
func (c *Client) Dropped() uint64 {
	return c.dropped.Load()
}

// AddAccept is called by the dedup worker on every accepted record,
// attributing the accept to its originating connection for the rotation
// monitor's accept-share computation.
func (c *Client) AddAccept(connIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if connIndex >= 0 && connIndex < len(c.accepted) {
		c.accepted[connIndex]++
	}
}

// Start opens the N connections and the rotation monitor.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	c.conns = make([]*wsconn.Conn, c.redundancy)
	c.cancelFuncs = make([]context.CancelFunc, c.redundancy)
	for i := 0; i < c.redundancy; i++ {
		c.startConn(ctx, i)
	}
	c.mu.Unlock()

	go c.runRotationMonitor(ctx)
}

// startConn must be called with c.mu held.
func (c *Client) startConn(ctx context.Context, idx int) {
	connCtx, cancel := context.WithCancel(ctx)
	idxCopy := idx
	conn := wsconn.NewConn(c.stream.URL, c.stream.SubscribePayload, func(frame []byte, recvTsUs int64) {
		c.enqueue(Envelope{ConnIndex: idxCopy, Frame: frame, RecvTsUs: recvTsUs})
	})
	c.conns[idx] = conn
	c.cancelFuncs[idx] = cancel
	go conn.Run(connCtx)
}

// enqueue delivers env to the out channel. A full channel means the
// consumer is falling behind, so the oldest queued envelope is dropped
// and counted, then env is retried.
func (c *Client) enqueue(env Envelope) {
	select {
	case c.out <- env:
		return
	default:
	}

	select {
	case <-c.out:
	default:
	}
	c.dropped.Add(1)
	logs.Warnf("redundant: %v conn_idx=%d dropped=%d", mderrors.ErrCapacityOverflow, env.ConnIndex, c.dropped.Load())

	select {
	case c.out <- env:
	default:
	}
}

// runRotationMonitor samples accept counts every window and culls the
// lowest-share connection below the configured floor. This implements an
// accept-share rule, not original_source's latency-based rule — see
// DESIGN.md.
func (c *Client) runRotationMonitor(ctx context.Context) {
	ticker := time.NewTicker(c.windowDuration)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.evaluateAndRotate(ctx)
		}
	}
}

func (c *Client) evaluateAndRotate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := make([]uint64, len(c.accepted))
	copy(snapshot, c.accepted)
	for i := range c.accepted {
		c.accepted[i] = 0
	}

	cullIdx := decideCull(snapshot, c.floorRatio)
	if cullIdx == -1 {
		return
	}

	logs.Infof("redundant: culling connection idx=%d accepted=%d", cullIdx, snapshot[cullIdx])
	if c.cancelFuncs[cullIdx] != nil {
		c.cancelFuncs[cullIdx]()
	}
	c.startConn(ctx, cullIdx)
}

// decideCull returns the index to cull, or -1 if none fall below the
// floor. Tie-break: highest connection index wins the cull. Pure
// function so the rotation rule is independently testable.
func decideCull(accepted []uint64, floorRatio float64) int {
	if len(accepted) < 2 {
		return -1
	}
	median := medianOf(accepted)
	if median == 0 {
		return -1
	}
	floor := uint64(float64(median) * floorRatio)

	cullIdx := -1
	for i, count := range accepted {
		if count < floor {
			if cullIdx == -1 || i > cullIdx {
				cullIdx = i
			}
		}
	}
	return cullIdx
}

func medianOf(values []uint64) uint64 {
	sorted := append([]uint64(nil), values...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Stop cancels all connections. Bounded by the caller's context.
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cancel := range c.cancelFuncs {
		if cancel != nil {
			cancel()
		}
	}
}
