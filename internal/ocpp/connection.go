package ocpp

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"csms/internal/pkg/errors"
)

// pendingResult is delivered to a waiting outbound Call once the matching
// CALLRESULT/CALLERROR frame arrives, or when the connection is torn down.
type pendingResult struct {
	payload []byte
	err     error
}

// Connection is one charger's live WebSocket channel: a buffered writer
// goroutine plus a table of outbound calls awaiting a response.
type Connection struct {
	chargePointID string
	ws            *websocket.Conn
	logger        *zap.Logger

	send chan []byte
	done chan struct{}

	mu       sync.Mutex
	pending  map[string]chan pendingResult
	closed   bool
}

func newConnection(chargePointID string, ws *websocket.Conn, logger *zap.Logger) *Connection {
	return &Connection{
		chargePointID: chargePointID,
		ws:            ws,
		logger:        logger,
		send:          make(chan []byte, 32),
		done:          make(chan struct{}),
		pending:       make(map[string]chan pendingResult),
	}
}

// writePump drains the send channel onto the socket. It owns all writes so
// concurrent outbound calls never interleave frames on the wire.
func (c *Connection) writePump() {
	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Warn("ocpp write failed", zap.String("charge_point_id", c.chargePointID), zap.Error(err))
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// enqueue hands a frame to the writer goroutine, best-effort.
func (c *Connection) enqueue(frame []byte) error {
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return errors.TransportError(c.chargePointID, "connection closed")
	case <-time.After(5 * time.Second):
		return errors.TransportError(c.chargePointID, "write queue full")
	}
}

// registerPending opens a waiter slot for an outbound call's uniqueId.
func (c *Connection) registerPending(uniqueID string) chan pendingResult {
	ch := make(chan pendingResult, 1)
	c.mu.Lock()
	c.pending[uniqueID] = ch
	c.mu.Unlock()
	return ch
}

// resolvePending delivers a CALLRESULT payload to its waiter, if still open.
func (c *Connection) resolvePending(uniqueID string, payload []byte) bool {
	c.mu.Lock()
	ch, ok := c.pending[uniqueID]
	if ok {
		delete(c.pending, uniqueID)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	ch <- pendingResult{payload: payload}
	return true
}

// rejectPending delivers a CALLERROR (as an error) to its waiter, if still open.
func (c *Connection) rejectPending(uniqueID string, err error) bool {
	c.mu.Lock()
	ch, ok := c.pending[uniqueID]
	if ok {
		delete(c.pending, uniqueID)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	ch <- pendingResult{err: err}
	return true
}

// forgetPending drops a waiter after its caller has already given up on
// timeout, so a late CALLRESULT finds no one listening.
func (c *Connection) forgetPending(uniqueID string) {
	c.mu.Lock()
	delete(c.pending, uniqueID)
	c.mu.Unlock()
}

// Close tears down the socket and fails every outstanding outbound call with
// a transport error, per the supersede-on-reconnect contract (§4.1).
func (c *Connection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := c.pending
	c.pending = make(map[string]chan pendingResult)
	c.mu.Unlock()

	close(c.done)
	_ = c.ws.Close()

	for uniqueID, ch := range pending {
		ch <- pendingResult{err: errors.TransportError(c.chargePointID, "connection superseded or closed")}
		_ = uniqueID
	}
}
