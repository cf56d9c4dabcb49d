package hub

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lox/holdemcore/internal/auth"
	"github.com/lox/holdemcore/internal/cards"
	"github.com/lox/holdemcore/internal/protocol"
)

// Time/size constants tune the readPump/writePump pair.
const (
	writeWait = 10 * time.Second
	pongWait = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessageSize = 8192

	// sendBuffer is the per-connection outbound mailbox depth. A viewer
	// slow enough to fill it is disconnected rather than allowed to stall
	// the table actor that's fanning broadcasts out to it.
	sendBuffer = 256
)

// Connection wraps one WebSocket socket: an outbound mailbox, a read/write
// pump pair, and the authenticated identity/table association a session
// attaches to. The identity and table id are mutex-guarded fields rather
// than plain strings, since authentication and reconnect happen after the
// socket is already live.
type Connection struct {
	conn *websocket.Conn
	hub *Hub
	send chan []byte

	ctx context.Context
	cancel context.CancelFunc

	mu sync.RWMutex
	identity *auth.Identity
	tableID string
	seat int

	closeOnce sync.Once
}

func newConnection(conn *websocket.Conn, h *Hub) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn: conn,
		hub: h,
		send: make(chan []byte, sendBuffer),
		ctx: ctx,
		cancel: cancel,
		seat: -1,
	}
}

func (c *Connection) start() {
	go c.writePump()
	go c.readPump()
}

func (c *Connection) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		_ = c.conn.Close()

		id := c.getIdentity()
		if id == nil {
			return
		}
		// A socket displaced by a newer login is not a disconnect: the
		// user is still present on the connection that superseded this
		// one, so no tombstone and no disconnected flag.
		if !c.hub.unregisterConn(id.UserID, c) {
			return
		}
		tableID := c.getTableID()
		if tableID == "" {
			return
		}
		a, ok := c.hub.getTable(tableID)
		if !ok {
			return
		}
		a.removeViewer(id.UserID)

		var seated bool
		var seat, chips int
		var hole []cards.Card
		a.exec(func() {
			if s, p := a.tbl.FindPlayer(id.UserID); p != nil {
				seated, seat, chips = true, s, p.Chips
				hole = p.HoleCards
				p.Disconnected = true
			}
		})
		if seated {
			c.hub.sessions.Save(id.UserID, tableID, seat, chips, hole)
			a.broadcastDisconnected(id.UserID, c.hub.cfg.Server.ReconnectGraceSeconds)
		}
	})
}

// enqueue pushes a frame to this connection's outbound mailbox, dropping
// the connection if the mailbox is full rather than blocking the caller
// (the table actor goroutine, or a lobby-wide broadcast), per the
// teacher's SendMessage "buffer full -> close" policy.
func (c *Connection) enqueue(raw []byte) {
	defer func() { _ = recover() }() // send on a closed channel during shutdown races with close()

	select {
	case c.send <- raw:
	case <-c.ctx.Done():
	default:
		go c.close()
	}
}

func (c *Connection) getIdentity() *auth.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity
}

func (c *Connection) setIdentity(id *auth.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = id
}

func (c *Connection) getTableID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tableID
}

func (c *Connection) setTable(tableID string, seat int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tableID = tableID
	c.seat = seat
}

func (c *Connection) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug().Err(err).Msg("websocket read error")
			}
			return
		}

		c.hub.dispatch(c, raw)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Connection) sendError(code protocol.ErrorCode, message string) {
	c.enqueue(encodeErr(code, message))
}
