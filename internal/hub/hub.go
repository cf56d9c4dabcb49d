// Package hub is the connection/session/protocol core: it owns every
// WebSocket connection, decodes and dispatches the wire protocol
// (internal/protocol), and runs one single-writer command goroutine per
// table that is the only caller ever allowed to mutate a *table.Table.
package hub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lox/holdemcore/internal/auth"
	"github.com/lox/holdemcore/internal/config"
	"github.com/lox/holdemcore/internal/protocol"
	"github.com/lox/holdemcore/internal/session"
	"github.com/lox/holdemcore/internal/store"
	"github.com/lox/holdemcore/internal/table"
)

// Clock abstracts time.Now, mirroring internal/table.Clock and
// internal/session.Clock so the same quartz.Clock value (quartz.NewReal()
// in production, quartz.NewMock(t) in tests) satisfies all three without
// this package importing quartz directly.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// timeoutTick is how often each table actor checks whether the acting
// player's turn (or time bank) has expired: "at least once per second".
const timeoutTick = 500 * time.Millisecond

// sweepTick is how often each table actor sweeps its session tombstones for
// expired reconnect grace windows
const sweepTick = 1 * time.Second

// autoStartDelay is how long the hub waits after a hand_result before
// attempting to auto-start the next hand.
const autoStartDelay = 5 * time.Second

var (
	errTableExists = errors.New("hub: table already exists")
	errTableNotFound = errors.New("hub: table not found")
	errTableHasSeats = errors.New("hub: table has seated players")
)

// Hub is the top-level server object: one per process, holding every table
// actor and every live connection's registration.
type Hub struct {
	cfg *config.Config

	kv store.KVStore
	rel store.RelationalStore
	sessions *session.Store
	authv auth.Validator
	logger zerolog.Logger
	clock Clock

	mu sync.RWMutex
	tables map[string]*tableActor

	connsMu sync.Mutex
	conns map[string]*Connection // userID -> currently registered connection

	upgrader websocket.Upgrader
	mux *http.ServeMux
	httpServer *http.Server
	routesOnce sync.Once
}

// New builds a Hub from its injected collaborators
// "Singletons -> injected handles": every external dependency arrives as a
// constructor argument rather than a package-level global.
func New(cfg *config.Config, kv store.KVStore, rel store.RelationalStore, sessions *session.Store, authv auth.Validator, logger zerolog.Logger) *Hub {
	h := &Hub{
		cfg: cfg,
		kv: kv,
		rel: rel,
		sessions: sessions,
		authv: authv,
		logger: logger,
		clock: realClock{},
		tables: make(map[string]*tableActor),
		conns: make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize: 4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}
	for _, tc := range cfg.Tables {
		if err := h.CreateTable(tc.Name, tc); err != nil {
			h.logger.Error().Err(err).Str("table_id", tc.Name).Msg("failed to create configured table")
		}
	}
	return h
}

// WithClock overrides the hub's clock (tests only); it propagates to every
// table actor created afterwards.
func (h *Hub) WithClock(c Clock) *Hub {
	h.clock = c
	return h
}

func (h *Hub) ensureRoutes() {
	h.routesOnce.Do(func() {
		h.mux.HandleFunc("/ws", h.handleWebSocket)
		h.mux.HandleFunc("/health", h.handleHealth)
	})
}

// Start listens on addr and serves until the process is asked to stop.
func (h *Hub) Start(addr string) error {
	h.ensureRoutes()
	h.httpServer = &http.Server{Addr: addr, Handler: h.mux}
	h.logger.Info().Str("addr", addr).Msg("hub starting")
	err := h.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains every table actor, backs up its final state, and stops
// the HTTP server: "a final snapshot of each
// table state is persisted."
func (h *Hub) Shutdown(ctx context.Context) error {
	h.logger.Info().Msg("hub shutting down")

	h.mu.RLock()
	actors := make([]*tableActor, 0, len(h.tables))
	for _, a := range h.tables {
		actors = append(actors, a)
	}
	h.mu.RUnlock()

	for _, a := range actors {
		a.backupAndStop(ctx, h.rel)
	}

	if h.httpServer != nil {
		return h.httpServer.Shutdown(ctx)
	}
	return nil
}

func (h *Hub) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := newConnection(conn, h)
	h.logger.Debug().Msg("connection opened")
	c.start()
}

// CreateTable registers a new table actor.
func (h *Hub) CreateTable(id string, tc config.TableConfig) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.tables[id]; exists {
		return errTableExists
	}

	maxSeats := tc.MaxPlayers
	if maxSeats == 0 {
		maxSeats = h.cfg.Server.MaxPlayers
	}
	tblCfg := table.Config{
		SmallBlind: tc.SmallBlind,
		BigBlind: tc.BigBlind,
		MinSeats: h.cfg.Server.MinPlayers,
		MaxSeats: maxSeats,
		TurnSeconds: h.cfg.Server.DefaultTurnTimeSeconds,
		StartingTimeBank: h.cfg.Server.DefaultTimeBankSeconds,
		TimeBankReplenish: h.cfg.Server.TimeBankReplenishPerHand,
	}

	a := newTableActor(id, tblCfg, h)
	h.tables[id] = a
	go a.run()
	return nil
}

// DeleteTable removes an empty table.
func (h *Hub) DeleteTable(id string) error {
	h.mu.Lock()
	a, ok := h.tables[id]
	if !ok {
		h.mu.Unlock()
		return errTableNotFound
	}
	delete(h.tables, id)
	h.mu.Unlock()

	if a.seatedCount() > 0 {
		h.mu.Lock()
		h.tables[id] = a
		h.mu.Unlock()
		return errTableHasSeats
	}
	a.stop()
	return nil
}

func (h *Hub) getTable(id string) (*tableActor, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	a, ok := h.tables[id]
	return a, ok
}

// ListTables renders every table's lobby summary, used to answer a
// tables_list request.
func (h *Hub) ListTables() []protocol.TableSummaryMsg {
	h.mu.RLock()
	actors := make([]*tableActor, 0, len(h.tables))
	for _, a := range h.tables {
		actors = append(actors, a)
	}
	h.mu.RUnlock()

	out := make([]protocol.TableSummaryMsg, 0, len(actors))
	for _, a := range actors {
		out = append(out, a.summary())
	}
	return out
}

// broadcastAll sends a frame to every currently registered connection, for
// lobby-wide events (table_created, table_deleted)
func (h *Hub) broadcastAll(t protocol.Type, payload any) {
	raw, err := protocol.Encode(t, payload)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to encode lobby broadcast")
		return
	}
	h.connsMu.Lock()
	defer h.connsMu.Unlock()
	for _, c := range h.conns {
		c.enqueue(raw)
	}
}

// broadcastLobby pushes a refreshed tables_list to every connection after
// a membership or table-set change. Must not be called from a table actor
// goroutine (ListTables round-trips through every actor).
func (h *Hub) broadcastLobby() {
	h.broadcastAll(protocol.TypeTablesList, protocol.TablesListMsg{Tables: h.ListTables()})
}

func (h *Hub) registerConn(userID string, c *Connection) *Connection {
	h.connsMu.Lock()
	defer h.connsMu.Unlock()
	prior := h.conns[userID]
	h.conns[userID] = c
	return prior
}

// unregisterConn removes c's registration and reports whether c was still
// the user's current connection. A connection displaced by a newer login
// returns false and must not treat its closure as the user disconnecting.
func (h *Hub) unregisterConn(userID string, c *Connection) bool {
	h.connsMu.Lock()
	defer h.connsMu.Unlock()
	if h.conns[userID] == c {
		delete(h.conns, userID)
		return true
	}
	return false
}

func encodeErr(code protocol.ErrorCode, message string) []byte {
	raw, err := protocol.Encode(protocol.TypeError, protocol.ErrorMsg{Code: code, Message: message})
	if err != nil {
		// Encode only fails on a payload json.Marshal can't handle; ErrorMsg
		// always can, so this is unreachable outside a future payload bug.
		return []byte(`{"type":"error","code":"SERVER_ERROR","message":"failed to encode error"}`)
	}
	return raw
}

func mustEncode(t protocol.Type, payload any) []byte {
	raw, err := protocol.Encode(t, payload)
	if err != nil {
		return encodeErr(protocol.CodeServerError, err.Error())
	}
	return raw
}
