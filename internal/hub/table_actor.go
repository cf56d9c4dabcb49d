package hub

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lox/holdemcore/internal/cards"
	"github.com/lox/holdemcore/internal/protocol"
	"github.com/lox/holdemcore/internal/store"
	"github.com/lox/holdemcore/internal/table"
)

// tableActor is the single goroutine permitted to call methods on its
// *table.Table: one owning goroutine drains a command channel and a ticker
// in the same select, rather than taking a lock per call.
//
// Every method on tableActor whose name ends in "Locked" assumes it is
// already executing on the actor's own goroutine (called from run(), or
// from inside a closure passed to exec). Everything else is safe to call
// from any goroutine and bridges onto the actor goroutine itself via exec.
type tableActor struct {
	id string
	tbl *table.Table
	hub *Hub

	cmds chan func()
	quit chan struct{}

	viewers map[string]*Connection
	revealedHole map[string][]cards.Card
}

func newTableActor(id string, cfg table.Config, h *Hub) *tableActor {
	a := &tableActor{
		id: id,
		tbl: table.New(id, cfg, cards.NewRNG()),
		hub: h,
		cmds: make(chan func()),
		quit: make(chan struct{}),
		viewers: make(map[string]*Connection),
		revealedHole: make(map[string][]cards.Card),
	}
	a.tbl.Clock = h.clock
	return a
}

// exec runs fn on the actor goroutine and blocks until it has completed.
// Callers must never call exec from inside a closure already running on
// the actor goroutine (i.e. from run(), or from inside another exec'd
// closure) — doing so deadlocks, since run() would be waiting on its own
// send to complete.
func (a *tableActor) exec(fn func()) {
	done := make(chan struct{})
	select {
	case a.cmds <- func() { fn(); close(done) }:
		<-done
	case <-a.quit:
	}
}

func (a *tableActor) run() {
	timeoutTicker := time.NewTicker(timeoutTick)
	sweepTicker := time.NewTicker(sweepTick)
	defer timeoutTicker.Stop()
	defer sweepTicker.Stop()

	for {
		select {
		case cmd := <-a.cmds:
			cmd()
			a.drainEventsLocked()
		case <-timeoutTicker.C:
			if a.tbl.CheckTimeout(a.hub.clock.Now()) {
				a.drainEventsLocked()
			}
		case <-sweepTicker.C:
			a.sweepExpiredLocked()
		case <-a.quit:
			return
		}
	}
}

func (a *tableActor) stop() {
	close(a.quit)
}

// drainEventsLocked pulls every event the last command produced off the
// table's buffered event channel and turns it into broadcasts.
func (a *tableActor) drainEventsLocked() {
	for {
		select {
		case ev := <-a.tbl.Events():
			a.handleEventLocked(ev)
		default:
			return
		}
	}
}

func (a *tableActor) handleEventLocked(ev table.Event) {
	switch e := ev.(type) {
	case table.HandStartedEvent:
		a.revealedHole = make(map[string][]cards.Card)
		a.broadcastGameStateLocked()
		a.cacheSnapshotLocked()
	case table.StateChangedEvent:
		a.broadcastGameStateLocked()
		a.cacheSnapshotLocked()
	case table.PlayerActionEvent:
		a.broadcastLocked(protocol.TypePlayerAction, protocol.PlayerActionMsg{
			UserID: e.UserID,
			Action: string(e.Action),
			Amount: e.Amount,
		})
		a.broadcastGameStateLocked()
	case table.HandResultEvent:
		for userID, hole := range e.RevealedHole {
			a.revealedHole[userID] = hole
		}
		winners := make([]protocol.WinnerResult, 0, len(e.Winners))
		for _, w := range e.Winners {
			winners = append(winners, protocol.WinnerResult{UserID: w.UserID, Amount: w.Amount, Category: w.Category})
		}
		a.broadcastLocked(protocol.TypeHandResult, protocol.HandResultMsg{
			Winners: winners,
			Community: e.Community,
			RevealedHole: e.RevealedHole,
		})
		a.broadcastGameStateLocked()
		a.cacheSnapshotLocked()
		a.scheduleAutoStart()
	}
}

// cacheSnapshotLocked writes the table's viewer-less projection (no seat's
// private hole cards, only hands revealed at showdown) into the
// hub's key/value cache under "table:{id}" cache key layout. A later process restart, or an operator
// inspecting table state out of band, can read this without going through
// a live connection.
func (a *tableActor) cacheSnapshotLocked() {
	if a.hub.kv == nil {
		return
	}
	view := a.tbl.ViewFor("", nil, a.revealedHole)
	raw, err := json.Marshal(view)
	if err != nil {
		return
	}
	_ = a.hub.kv.Set(context.Background(), "table:"+a.id, raw)
}

// scheduleAutoStart arranges for the next hand to be attempted
// autoStartDelay after this hand concluded. The timer fires on its own
// goroutine, so it re-enters the actor through exec like any other
// external trigger (attemptTableStart does the same for join/chip events
// that should try to start a table immediately).
func (a *tableActor) scheduleAutoStart() {
	time.AfterFunc(autoStartDelay, func() {
		a.exec(func() {
			if a.tbl.CanStartHand() {
				_ = a.tbl.StartHand()
			}
			a.drainEventsLocked()
		})
	})
}

// attemptTableStart tries to start a hand right away; called after a join,
// or a chip increase, that might have just reached min_players
func (a *tableActor) attemptTableStart() {
	a.exec(func() {
		if a.tbl.CanStartHand() {
			_ = a.tbl.StartHand()
		}
		a.drainEventsLocked()
	})
}

// sweepExpiredLocked removes players whose reconnect grace window lapsed
// without a reconnect, folding them out of the hand and recording a
// cash-out of their remaining stack. Called only from run(), already on the actor goroutine.
func (a *tableActor) sweepExpiredLocked() {
	expired := a.hub.sessions.Sweep(a.id)
	for _, tomb := range expired {
		if _, p := a.tbl.FindPlayer(tomb.UserID); p != nil {
			tomb.Chips = p.Chips
		}
		_ = a.tbl.RemovePlayer(tomb.UserID)
		a.drainEventsLocked()
		delete(a.viewers, tomb.UserID)
		a.broadcastLocked(protocol.TypePlayerLeft, protocol.PlayerLeftMsg{UserID: tomb.UserID})

		if a.hub.rel != nil {
			tomb := tomb
			go func() {
				ctx := context.Background()
				sessionID, err := a.hub.rel.ActiveSession(ctx)
				if err == nil {
					_, _ = a.hub.rel.RecordLedgerEntry(ctx, sessionID, tomb.UserID, store.LedgerCashOut, tomb.Chips, "", "reconnect grace expired")
				}
			}()
		}
	}
}

// backupAndStop persists a final snapshot of the table's live view and
// stops the actor goroutine.
func (a *tableActor) backupAndStop(ctx context.Context, rel store.RelationalStore) {
	a.exec(func() {
		if rel == nil {
			return
		}
		view := a.tbl.ViewFor("", nil, a.revealedHole)
		raw, err := json.Marshal(view)
		if err != nil {
			return
		}
		_ = rel.BackupTableState(ctx, a.id, raw)
	})
	a.stop()
}

func (a *tableActor) seatedCount() int {
	n := 0
	a.exec(func() { n = len(a.tbl.Seats) })
	return n
}

func (a *tableActor) summary() protocol.TableSummaryMsg {
	var s protocol.TableSummaryMsg
	a.exec(func() {
		s = protocol.TableSummaryMsg{
			TableID: a.id,
			SmallBlind: a.tbl.Config.SmallBlind,
			BigBlind: a.tbl.Config.BigBlind,
			MaxSeats: a.tbl.Config.MaxSeats,
			PlayersCount: len(a.tbl.Seats),
		}
	})
	return s
}

// addViewer registers a connection to receive this table's broadcasts and
// immediately sends it the current state
func (a *tableActor) addViewer(userID string, c *Connection) {
	var view table.View
	a.exec(func() {
		a.viewers[userID] = c
		view = a.tbl.ViewFor(userID, a.timeRemainingLocked, a.revealedHole)
	})
	c.enqueue(mustEncode(protocol.TypeGameState, renderGameState(view)))
}

func (a *tableActor) removeViewer(userID string) {
	a.exec(func() { delete(a.viewers, userID) })
}

func (a *tableActor) timeRemainingLocked() (float64, bool) {
	return a.tbl.TimeRemaining(a.hub.clock.Now())
}

// broadcastGameStateLocked fans the current per-viewer projection out to
// every registered viewer concurrently with golang.org/x/sync/errgroup, one
// goroutine per viewer and no concurrency limit. The per-viewer View structs are computed here, on the actor
// goroutine; only their JSON encoding and channel delivery happen
// concurrently, since neither touches table state.
func (a *tableActor) broadcastGameStateLocked() {
	views := make(map[string]table.View, len(a.viewers))
	conns := make(map[string]*Connection, len(a.viewers))
	for userID, c := range a.viewers {
		views[userID] = a.tbl.ViewFor(userID, a.timeRemainingLocked, a.revealedHole)
		conns[userID] = c
	}

	var g errgroup.Group
	for userID, c := range conns {
		userID, c := userID, c
		g.Go(func() error {
			c.enqueue(mustEncode(protocol.TypeGameState, renderGameState(views[userID])))
			return nil
		})
	}
	_ = g.Wait()
}

// broadcastLocked sends a non-game_state event to every registered viewer.
func (a *tableActor) broadcastLocked(t protocol.Type, payload any) {
	raw := mustEncode(t, payload)
	for _, c := range a.viewers {
		c.enqueue(raw)
	}
}

// broadcastDisconnected announces a player's disconnect to the remaining
// viewers.
func (a *tableActor) broadcastDisconnected(userID string, graceSeconds int) {
	a.exec(func() {
		a.broadcastLocked(protocol.TypePlayerDisconnected, protocol.PlayerDisconnectedMsg{
			UserID: userID,
			GraceSeconds: graceSeconds,
		})
	})
}

// broadcastReconnected announces a player's reconnect as a
// player_reconnected event.
func (a *tableActor) broadcastReconnected(userID string) {
	a.exec(func() {
		a.broadcastLocked(protocol.TypePlayerReconnected, protocol.PlayerReconnectedMsg{UserID: userID})
	})
}

// broadcastChat relays a chat message to every viewer as a chat_broadcast
// event.
func (a *tableActor) broadcastChat(userID, text string) {
	a.exec(func() {
		a.broadcastLocked(protocol.TypeChatBroadcast, protocol.ChatBroadcastMsg{UserID: userID, Text: text})
	})
}

// hasSeated reports whether userID currently occupies a seat at this table.
func (a *tableActor) hasSeated(userID string) bool {
	var found bool
	a.exec(func() {
		_, p := a.tbl.FindPlayer(userID)
		found = p != nil
	})
	return found
}
