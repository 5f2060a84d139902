// Package wsconn implements a single auto-reconnecting WebSocket
// connection: connect, subscribe, stream frames, and back off and retry
// on any error, built on gorilla/websocket in place of the teacher's
// hand-rolled RFC6455 dialer (see DESIGN.md).
package wsconn

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/mderrors"
)

// OnFrame is invoked for every inbound frame with the receive-time
// microsecond timestamp captured as close to the socket read as
// possible.
type OnFrame func(frame []byte, recvTsUs int64)

// Conn is a single auto-reconnecting WebSocket connection. Internally it
// loops: connect -> send subscribe -> read frames -> deliver via
// OnFrame -> on error/close, wait a backoff delay and reconnect.
type Conn struct {
	URL              string
	SubscribePayload []byte
	OnFrame          OnFrame
	Backoff          Backoff
	Dial             func(url string) (*websocket.Conn, error)

	state atomic.Uint32
}

// NewConn builds a connection with the default backoff policy.
func NewConn(url string, subscribePayload []byte, onFrame OnFrame) *Conn {
	return &Conn{
		URL:              url,
		SubscribePayload: subscribePayload,
		OnFrame:          onFrame,
		Backoff:          DefaultBackoff(),
	}
}

// State returns the current connection state.
func (c *Conn) State() State {
	return State(c.state.Load())
}

func (c *Conn) setState(s State) {
	c.state.Store(uint32(s))
}

func (c *Conn) dial(url string) (*websocket.Conn, error) {
	if c.Dial != nil {
		return c.Dial(url)
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	return conn, err
}

// Run drives the connect/subscribe/stream/backoff loop until ctx is
// cancelled. Cancellation is observed at every suspension point: dial,
// write, read, and the backoff sleep. The backoff attempt counter
// climbs on every failed dial or session end, and resets the moment a
// frame is successfully read, so a connection that has been streaming
// healthily for hours reconnects at the minimum delay, not the cap.
func (c *Conn) Run(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			c.setState(StateTerminated)
			return
		}

		c.setState(StateConnecting)
		conn, err := c.dial(c.URL)
		if err != nil {
			attempt++
			logs.Warnf("wsconn: dial failed url=%s attempt=%d err=%v", c.URL, attempt, errors.Wrap(mderrors.ErrNetworkDial, err.Error()))
			if !c.sleepBackoff(ctx, attempt) {
				c.setState(StateTerminated)
				return
			}
			continue
		}

		if ok := c.runSession(ctx, conn, &attempt); !ok {
			c.setState(StateTerminated)
			return
		}

		attempt++
		c.setState(StateDisconnected)
		logs.Infof("wsconn: disconnected, backing off url=%s attempt=%d", c.URL, attempt)
		if !c.sleepBackoff(ctx, attempt) {
			c.setState(StateTerminated)
			return
		}
	}
}

// runSession subscribes and reads until the socket errs or ctx is
// cancelled. Returns false if ctx was cancelled (caller should stop
// entirely), true if the session ended for a reconnect-worthy reason.
// attempt is reset to 0 the moment the first frame of the session is
// read, so a healthy session forgets any prior run of dial failures.
func (c *Conn) runSession(ctx context.Context, conn *websocket.Conn, attempt *int) bool {
	defer conn.Close()

	c.setState(StateSubscribing)
	if len(c.SubscribePayload) > 0 {
		if err := conn.WriteMessage(websocket.TextMessage, c.SubscribePayload); err != nil {
			logs.Warnf("wsconn: subscribe write failed: %v", errors.Wrap(mderrors.ErrNetworkWrite, err.Error()))
			return true
		}
	}

	c.setState(StateStreaming)
	closed := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-closed:
		}
	}()
	defer close(closed)

	for {
		if ctx.Err() != nil {
			return false
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			logs.Warnf("wsconn: read error: %v", errors.Wrap(mderrors.ErrNetworkRead, err.Error()))
			return true
		}
		recvTsUs := time.Now().UnixMicro()
		*attempt = 0
		if c.OnFrame != nil {
			c.OnFrame(payload, recvTsUs)
		}
	}
}

func (c *Conn) sleepBackoff(ctx context.Context, attempt int) bool {
	delay := c.Backoff.Next(attempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
