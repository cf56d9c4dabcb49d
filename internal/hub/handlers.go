package hub

import (
	"context"
	"errors"

	"github.com/lox/holdemcore/internal/auth"
	"github.com/lox/holdemcore/internal/config"
	"github.com/lox/holdemcore/internal/protocol"
	"github.com/lox/holdemcore/internal/store"
	"github.com/lox/holdemcore/internal/table"
)

// startingChips is the buy-in every newly seated player receives. Buy-in
// amounts are not configurable: the core hands out a fixed stack and lets
// chip admin operations correct it afterwards.
const startingChips = 1000

// unauthenticatedAllowed is the set of message types a connection may send
// before a successful "auth" frame.
var unauthenticatedAllowed = map[protocol.Type]bool{
	protocol.TypeRegister: true,
	protocol.TypeLogin: true,
	protocol.TypeRefreshToken: true,
	protocol.TypeAuth: true,
	protocol.TypePing: true,
}

// dispatch decodes one inbound frame and routes it to a handler by message
// type.
func (h *Hub) dispatch(c *Connection, raw []byte) {
	t, payload, err := protocol.Decode(raw)
	if err != nil {
		switch {
		case errors.Is(err, protocol.ErrUnknownType):
			c.sendError(protocol.CodeUnknownType, "unknown message type")
		default:
			c.sendError(protocol.CodeBadJSON, "malformed message")
		}
		return
	}

	if c.getIdentity() == nil && !unauthenticatedAllowed[t] {
		c.sendError(protocol.CodeAuthRequired, "authenticate before sending "+string(t))
		return
	}

	switch t {
	case protocol.TypeRegister, protocol.TypeLogin, protocol.TypeRefreshToken:
		// Issuance (registration, login, refresh, password hashing, token
		// signing) is out of core scope; a real deployment
		// fronts this with an identity service and only ever sends this
		// core the resulting access token via "auth".
		c.sendError(protocol.CodeAuthFailed, "registration and login are not implemented by this server; obtain a token externally and send it via auth")
	case protocol.TypeAuth:
		h.handleAuth(c, payload.(*protocol.AuthMsg))
	case protocol.TypePing:
		c.enqueue(mustEncode(protocol.TypePong, protocol.PongMsg{}))
	case protocol.TypeJoinTable:
		h.handleJoinTable(c, payload.(*protocol.JoinTableMsg))
	case protocol.TypeLeaveTable:
		h.handleLeaveTable(c)
	case protocol.TypeStandUp:
		h.handleStandUp(c)
	case protocol.TypeAction:
		h.handleAction(c, payload.(*protocol.ActionMsg))
	case protocol.TypeChat:
		h.handleChat(c, payload.(*protocol.ChatMsg))
	case protocol.TypeStartGame:
		h.handleStartGame(c)
	case protocol.TypeCreateTable:
		h.handleCreateTable(c, payload.(*protocol.CreateTableMsg))
	case protocol.TypeDeleteTable:
		h.handleDeleteTable(c, payload.(*protocol.DeleteTableMsg))
	case protocol.TypeGiveChips:
		h.handleGiveChips(c, payload.(*protocol.GiveChipsMsg))
	case protocol.TypeTakeChips:
		h.handleTakeChips(c, payload.(*protocol.TakeChipsMsg))
	case protocol.TypeSetChips:
		h.handleSetChips(c, payload.(*protocol.SetChipsMsg))
	case protocol.TypeGetLedger:
		h.handleGetLedger(c)
	case protocol.TypeGetStandings:
		h.handleGetStandings(c)
	case protocol.TypeEndSession:
		h.handleEndSession(c)
	default:
		c.sendError(protocol.CodeUnknownType, "unhandled message type "+string(t))
	}
}

func (h *Hub) handleAuth(c *Connection, msg *protocol.AuthMsg) {
	id, err := h.authv.Validate(context.Background(), msg.Token)
	if err != nil {
		c.sendError(protocol.CodeAuthFailed, "invalid token")
		return
	}

	if h.rel != nil {
		_ = h.rel.EnsureUser(context.Background(), id.UserID, id.UserID, string(id.Role))
	}

	// Displace any prior connection registered for this user: only the
	// newest connection for a user id stays live.
	if prior := h.registerConn(id.UserID, c); prior != nil && prior != c {
		prior.sendError(protocol.CodeAuthFailed, "superseded by a newer connection")
		go prior.close()
	}

	c.setIdentity(id)
	c.enqueue(mustEncode(protocol.TypeAuthSuccess, protocol.AuthSuccessMsg{UserID: id.UserID, Role: string(id.Role)}))
	c.enqueue(mustEncode(protocol.TypeTablesList, protocol.TablesListMsg{Tables: h.ListTables()}))

	// A live tombstone means this user disconnected mid-session within the
	// grace window: restore their seat and private state immediately rather
	// than waiting for an explicit join.
	if tomb, ok := h.sessions.TryReconnectUser(id.UserID); ok {
		if a, found := h.getTable(tomb.TableID); found {
			if seat, held := a.reconnect(id.UserID); held {
				c.setTable(tomb.TableID, seat)
				a.addViewer(id.UserID, c)
				a.broadcastReconnected(id.UserID)
			}
		}
	}
}

func (h *Hub) handleJoinTable(c *Connection, msg *protocol.JoinTableMsg) {
	id := c.getIdentity()
	a, ok := h.getTable(msg.TableID)
	if !ok {
		c.sendError(protocol.CodeTableNotFound, "no such table")
		return
	}

	// A disconnected-but-still-seated user issuing join counts as a
	// reconnect; a different requested seat moves them if it is free.
	if _, found := h.sessions.TryReconnect(id.UserID, msg.TableID); found {
		if seat, held := a.reconnect(id.UserID); held {
			if msg.Seat != nil && *msg.Seat != seat {
				if err := a.moveSeat(id.UserID, *msg.Seat); err != nil {
					c.sendError(joinErrorCode(err), err.Error())
					return
				}
				seat = *msg.Seat
			}
			c.setTable(msg.TableID, seat)
			a.addViewer(id.UserID, c)
			a.broadcastReconnected(id.UserID)
			return
		}
		// tombstone existed but the seat is gone (swept or stood up); fall
		// through to a fresh join.
	}

	if seat, seated := a.seatOf(id.UserID); seated {
		if msg.Seat == nil || *msg.Seat == seat {
			// Benign re-sync: already seated, no new seat requested.
			c.setTable(msg.TableID, seat)
			a.addViewer(id.UserID, c)
			return
		}
		if err := a.moveSeat(id.UserID, *msg.Seat); err != nil {
			c.sendError(joinErrorCode(err), err.Error())
			return
		}
		c.setTable(msg.TableID, *msg.Seat)
		a.addViewer(id.UserID, c)
		return
	}

	// No seat requested: the user becomes a spectator, receiving the
	// spectator projection only.
	if msg.Seat == nil {
		c.setTable(msg.TableID, -1)
		a.addViewer(id.UserID, c)
		return
	}

	if err := a.join(id.UserID, *msg.Seat, startingChips); err != nil {
		c.sendError(joinErrorCode(err), err.Error())
		return
	}

	c.setTable(msg.TableID, *msg.Seat)
	a.addViewer(id.UserID, c)

	if h.rel != nil {
		sessionID, sErr := h.rel.ActiveSession(context.Background())
		if sErr == nil {
			_, _ = h.rel.RecordLedgerEntry(context.Background(), sessionID, id.UserID, store.LedgerBuyIn, startingChips, "", "table join")
		}
	}
	h.broadcastLobby()
}

func joinErrorCode(err error) protocol.ErrorCode {
	switch {
	case errors.Is(err, table.ErrSeatTaken):
		return protocol.CodeSeatTaken
	case errors.Is(err, table.ErrSeatOutOfRange):
		return protocol.CodeInvalidSeat
	case errors.Is(err, table.ErrAlreadySeated):
		return protocol.CodeAlreadySeated
	case errors.Is(err, table.ErrTableFull):
		return protocol.CodeInvalidSeat
	case errors.Is(err, table.ErrIllegalAction):
		return protocol.CodeInvalidAction
	default:
		return protocol.CodeInvalidSeat
	}
}

func (h *Hub) handleLeaveTable(c *Connection) {
	id := c.getIdentity()
	a, ok := h.tableForConn(c)
	if !ok {
		c.sendError(protocol.CodeNotAtTable, "not at a table")
		return
	}
	if err := a.leave(id.UserID); err != nil && !errors.Is(err, table.ErrPlayerNotFound) {
		c.sendError(protocol.CodePlayerNotFound, err.Error())
		return
	}
	// ErrPlayerNotFound means the user was spectating: nothing to vacate.
	a.removeViewer(id.UserID)
	c.setTable("", -1)
	h.broadcastLobby()
}

func (h *Hub) handleStandUp(c *Connection) {
	id := c.getIdentity()
	a, ok := h.tableForConn(c)
	if !ok {
		c.sendError(protocol.CodeNotAtTable, "not at a table")
		return
	}
	if err := a.standUp(id.UserID); err != nil {
		c.sendError(protocol.CodePlayerNotFound, err.Error())
	}
}

func (h *Hub) handleAction(c *Connection, msg *protocol.ActionMsg) {
	id := c.getIdentity()
	a, ok := h.tableForConn(c)
	if !ok {
		c.sendError(protocol.CodeNotAtTable, "not at a table")
		return
	}
	if err := a.action(id.UserID, table.ActionKind(msg.Kind), msg.Amount); err != nil {
		c.sendError(actionErrorCode(err), err.Error())
	}
}

func actionErrorCode(err error) protocol.ErrorCode {
	switch {
	case errors.Is(err, table.ErrNotYourTurn):
		return protocol.CodeInvalidAction
	case errors.Is(err, table.ErrIllegalAction):
		return protocol.CodeInvalidAction
	case errors.Is(err, table.ErrInsufficientChips):
		return protocol.CodeInvalidAction
	default:
		return protocol.CodeInvalidAction
	}
}

func (h *Hub) handleChat(c *Connection, msg *protocol.ChatMsg) {
	id := c.getIdentity()
	a, ok := h.tableForConn(c)
	if !ok {
		c.sendError(protocol.CodeNotAtTable, "not at a table")
		return
	}
	a.broadcastChat(id.UserID, msg.Text)
}

func (h *Hub) handleStartGame(c *Connection) {
	a, ok := h.tableForConn(c)
	if !ok {
		c.sendError(protocol.CodeNotAtTable, "not at a table")
		return
	}
	if err := a.startGame(); err != nil {
		c.sendError(protocol.CodeCannotStart, err.Error())
	}
}

func (h *Hub) requireAdmin(c *Connection) bool {
	id := c.getIdentity()
	if id.Role != auth.RoleAdmin {
		c.sendError(protocol.CodeNotAdmin, "admin role required")
		return false
	}
	return true
}

func (h *Hub) handleCreateTable(c *Connection, msg *protocol.CreateTableMsg) {
	if !h.requireAdmin(c) {
		return
	}
	tc := config.TableConfig{
		Name: msg.TableID,
		SmallBlind: msg.SmallBlind,
		BigBlind: msg.BigBlind,
		MaxPlayers: msg.MaxPlayers,
	}
	if err := h.CreateTable(msg.TableID, tc); err != nil {
		c.sendError(protocol.CodeTableNotFound, err.Error())
		return
	}
	a, _ := h.getTable(msg.TableID)
	h.broadcastAll(protocol.TypeTableCreated, protocol.TableCreatedMsg{Table: a.summary()})
}

func (h *Hub) handleDeleteTable(c *Connection, msg *protocol.DeleteTableMsg) {
	if !h.requireAdmin(c) {
		return
	}
	if err := h.DeleteTable(msg.TableID); err != nil {
		switch {
		case errors.Is(err, errTableNotFound):
			c.sendError(protocol.CodeTableNotFound, "no such table")
		case errors.Is(err, errTableHasSeats):
			c.sendError(protocol.CodeTableHasPlayers, "table has seated players")
		default:
			c.sendError(protocol.CodeServerError, err.Error())
		}
		return
	}
	h.broadcastAll(protocol.TypeTableDeleted, protocol.TableDeletedMsg{TableID: msg.TableID})
}

func (h *Hub) handleGiveChips(c *Connection, msg *protocol.GiveChipsMsg) {
	if !h.requireAdmin(c) {
		return
	}
	if msg.Amount <= 0 {
		c.sendError(protocol.CodeChipError, "give_chips amount must be positive")
		return
	}
	h.adjustChips(c, msg.Player, msg.Amount, store.LedgerBuyIn, "give_chips")
}

func (h *Hub) handleTakeChips(c *Connection, msg *protocol.TakeChipsMsg) {
	if !h.requireAdmin(c) {
		return
	}
	if msg.Amount <= 0 {
		c.sendError(protocol.CodeChipError, "take_chips amount must be positive")
		return
	}
	h.adjustChips(c, msg.Player, -msg.Amount, store.LedgerCashOut, "take_chips")
}

func (h *Hub) adjustChips(c *Connection, player string, delta int, typ store.LedgerEntryType, note string) {
	a, ok := h.tableForUser(player)
	if !ok {
		c.sendError(protocol.CodePlayerNotFound, "player is not seated at any table")
		return
	}
	if _, err := a.chipDelta(player, delta); err != nil {
		c.sendError(protocol.CodeChipError, err.Error())
		return
	}
	if h.rel != nil {
		// Ledger rows carry positive magnitudes; the entry type encodes
		// direction (buy_in subtracts from a user's standing, cash_out
		// adds to it).
		amount := delta
		if amount < 0 {
			amount = -amount
		}
		sessionID, sErr := h.rel.ActiveSession(context.Background())
		if sErr == nil {
			_, _ = h.rel.RecordLedgerEntry(context.Background(), sessionID, player, typ, amount, c.getIdentity().UserID, note)
		}
	}
}

func (h *Hub) handleSetChips(c *Connection, msg *protocol.SetChipsMsg) {
	if !h.requireAdmin(c) {
		return
	}
	a, ok := h.tableForUser(msg.Player)
	if !ok {
		c.sendError(protocol.CodePlayerNotFound, "player is not seated at any table")
		return
	}
	_, delta, err := a.chipSet(msg.Player, msg.Amount)
	if err != nil {
		c.sendError(protocol.CodeChipError, err.Error())
		return
	}
	if h.rel != nil && delta != 0 {
		sessionID, sErr := h.rel.ActiveSession(context.Background())
		if sErr == nil {
			_, _ = h.rel.RecordLedgerEntry(context.Background(), sessionID, msg.Player, store.LedgerAdjustment, delta, c.getIdentity().UserID, "set_chips")
		}
	}
}

func (h *Hub) handleGetLedger(c *Connection) {
	if !h.requireAdmin(c) {
		return
	}
	if h.rel == nil {
		c.sendError(protocol.CodeServerError, "no relational store configured")
		return
	}
	sessionID, err := h.rel.ActiveSession(context.Background())
	if err != nil {
		c.sendError(protocol.CodeServerError, err.Error())
		return
	}
	entries, err := h.rel.LedgerForSession(context.Background(), sessionID)
	if err != nil {
		c.sendError(protocol.CodeServerError, err.Error())
		return
	}
	out := make([]protocol.LedgerEntryMsg, 0, len(entries))
	for _, e := range entries {
		out = append(out, protocol.LedgerEntryMsg{
			SessionID: e.SessionID,
			UserID: e.UserID,
			Type: string(e.Type),
			Amount: e.Amount,
			Admin: e.AdminID,
			Note: e.Note,
			Timestamp: e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	c.enqueue(mustEncode(protocol.TypeLedger, protocol.LedgerMsg{Entries: out}))
}

func (h *Hub) handleGetStandings(c *Connection) {
	if h.rel == nil {
		c.sendError(protocol.CodeServerError, "no relational store configured")
		return
	}
	sessionID, err := h.rel.ActiveSession(context.Background())
	if err != nil {
		c.sendError(protocol.CodeServerError, err.Error())
		return
	}
	standings, err := h.rel.Standings(context.Background(), sessionID)
	if err != nil {
		c.sendError(protocol.CodeServerError, err.Error())
		return
	}
	out := make([]protocol.StandingEntryMsg, 0, len(standings))
	for _, s := range standings {
		out = append(out, protocol.StandingEntryMsg{UserID: s.UserID, Delta: s.Delta})
	}
	c.enqueue(mustEncode(protocol.TypeStandings, protocol.StandingsMsg{Standings: out}))
}

func (h *Hub) handleEndSession(c *Connection) {
	if !h.requireAdmin(c) {
		return
	}
	if h.rel == nil {
		c.sendError(protocol.CodeServerError, "no relational store configured")
		return
	}
	sessionID, err := h.rel.ActiveSession(context.Background())
	if err != nil {
		c.sendError(protocol.CodeServerError, err.Error())
		return
	}
	if err := h.rel.EndSession(context.Background(), sessionID); err != nil {
		c.sendError(protocol.CodeServerError, err.Error())
	}
}

func (h *Hub) tableForConn(c *Connection) (*tableActor, bool) {
	tableID := c.getTableID()
	if tableID == "" {
		return nil, false
	}
	return h.getTable(tableID)
}

// tableForUser finds the table a given user is currently seated at, for
// admin chip operations that address a player by id rather than through
// their own connection.
func (h *Hub) tableForUser(userID string) (*tableActor, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, a := range h.tables {
		if a.hasSeated(userID) {
			return a, true
		}
	}
	return nil, false
}
