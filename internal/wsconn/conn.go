// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package wsconn

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/seedrunner/race-server/internal/envelope"
	"github.com/seedrunner/race-server/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 8 * 1024 // envelope.MaxFrameBytes
	maxQueueDepth  = 64
	pingPeriod     = 30 * time.Second
	maxMissedPongs = 2
)

// outboundFrame is one queued server->client frame, already JSON-encoded.
type outboundFrame struct {
	data      []byte
	frameType string
}

// isCoalescible reports whether a queued frame of this type may be dropped
// under backpressure without losing information the next tick won't
// resupply.
func isCoalescible(frameType string) bool {
	return frameType == envelope.TypeLeaderboardUpdate
}

// InboundHandler is invoked once per parsed inbound frame on a Conn's read
// pump. The handler must not block for long: it runs on the Conn's own
// goroutine and a slow handler delays this connection's pong deadline.
type InboundHandler func(frameType string, raw []byte)

// Conn owns one physical WebSocket connection: the read pump (delivering
// parsed frames to an InboundHandler) and the write pump (draining a bounded
// outbound queue, and pinging on a fixed cadence).
type Conn struct {
	id  string
	ws  *websocket.Conn
	onInbound InboundHandler
	onClose   func(reason string)
	onDrop    func(frameType string)

	mu     sync.Mutex
	queue  []outboundFrame
	closed bool

	notify  chan struct{}
	closeCh chan struct{}

	missedPongs atomic.Int32
}

// NewConn wraps ws. onInbound is called for each successfully parsed frame;
// onClose is called exactly once when the connection pump exits, with the
// reason that triggered it; onDrop (optional) observes dropped frame types
// for metrics.
func NewConn(id string, ws *websocket.Conn, onInbound InboundHandler, onClose func(reason string), onDrop func(frameType string)) *Conn {
	return &Conn{
		id:        id,
		ws:        ws,
		onInbound: onInbound,
		onClose:   onClose,
		onDrop:    onDrop,
		notify:    make(chan struct{}, 1),
		closeCh:   make(chan struct{}),
	}
}

// ID returns the connection's session identifier.
func (c *Conn) ID() string { return c.id }

// Start launches the read and write pumps. Both exit, and onClose fires
// exactly once, when the connection is closed from either side.
func (c *Conn) Start() {
	go c.writePump()
	go c.readPump()
}

// Enqueue queues a frame for delivery. Under backpressure it first tries to
// drop the oldest coalescible frame already queued; if none exists, the
// connection is closed instead of queuing.
func (c *Conn) Enqueue(data []byte, frameType string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if len(c.queue) >= maxQueueDepth {
		if idx := findOldestCoalescible(c.queue); idx >= 0 {
			dropped := c.queue[idx]
			c.queue = append(c.queue[:idx], c.queue[idx+1:]...)
			if c.onDrop != nil {
				c.onDrop(dropped.frameType)
			}
		} else {
			c.mu.Unlock()
			c.Close("queue_overflow")
			return
		}
	}
	c.queue = append(c.queue, outboundFrame{data: data, frameType: frameType})
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
}

func findOldestCoalescible(queue []outboundFrame) int {
	for i, f := range queue {
		if isCoalescible(f.frameType) {
			return i
		}
	}
	return -1
}

func (c *Conn) dequeueAll() []outboundFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return nil
	}
	drained := c.queue
	c.queue = nil
	return drained
}

// Close closes the connection exactly once, recording reason for logging.
func (c *Conn) Close(reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.closeCh)
	_ = c.ws.Close()
	if c.onClose != nil {
		c.onClose(reason)
	}
}

func (c *Conn) readPump() {
	defer c.Close("read_pump_exit")

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pingPeriod * (maxMissedPongs + 1)))
	c.ws.SetPongHandler(func(string) error {
		c.missedPongs.Store(0)
		return c.ws.SetReadDeadline(time.Now().Add(pingPeriod * (maxMissedPongs + 1)))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Debug().Str("conn_id", c.id).Err(err).Msg("websocket read error")
			}
			return
		}

		frameType, err := envelope.PeekType(raw)
		if err != nil {
			logging.Debug().Str("conn_id", c.id).Err(err).Msg("dropping unparseable frame")
			continue
		}
		if c.onInbound != nil {
			c.onInbound(frameType, raw)
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close("write_pump_exit")
	}()

	for {
		select {
		case <-c.closeCh:
			return

		case <-c.notify:
			for _, frame := range c.dequeueAll() {
				if err := c.writeOne(frame); err != nil {
					return
				}
			}

		case <-ticker.C:
			if c.missedPongs.Add(1) > maxMissedPongs {
				logging.Debug().Str("conn_id", c.id).Msg("closing idle connection: missed pongs")
				return
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Conn) writeOne(frame outboundFrame) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, frame.data)
}
