package hub

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemcore/internal/auth"
	"github.com/lox/holdemcore/internal/config"
	"github.com/lox/holdemcore/internal/protocol"
	"github.com/lox/holdemcore/internal/session"
	"github.com/lox/holdemcore/internal/store"
)

func testHub(t *testing.T, identities map[string]auth.Identity) *Hub {
	t.Helper()
	cfg := config.Default()
	cfg.Server.MinPlayers = 2
	cfg.Server.MaxPlayers = 6
	kv := store.NewMemoryKV()
	rel := store.NewMemoryRelational()
	sessions := session.New(cfg.Server.ReconnectGraceSeconds)
	authv := &auth.NoopValidator{Identities: identities}
	return New(cfg, kv, rel, sessions, authv, zerolog.Nop())
}

// testConn builds a Connection bypassing the real websocket transport, so
// dispatch() can be exercised directly against its outbound mailbox.
func testConn(h *Hub) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		hub:    h,
		send:   make(chan []byte, 64),
		ctx:    ctx,
		cancel: cancel,
		seat:   -1,
	}
}

type frame struct {
	Type protocol.Type `json:"type"`
}

func drain(t *testing.T, c *Connection) []json.RawMessage {
	t.Helper()
	var out []json.RawMessage
	for {
		select {
		case raw := <-c.send:
			out = append(out, raw)
		default:
			return out
		}
	}
}

func findType(t *testing.T, frames []json.RawMessage, want protocol.Type) json.RawMessage {
	t.Helper()
	for _, raw := range frames {
		var f frame
		require.NoError(t, json.Unmarshal(raw, &f))
		if f.Type == want {
			return raw
		}
	}
	t.Fatalf("no frame of type %s among %d frames", want, len(frames))
	return nil
}

// joinSeat issues a join_table for an explicit seat; a join without a seat
// spectates instead of seating.
func joinSeat(t *testing.T, h *Hub, c *Connection, tableID string, seat int) {
	t.Helper()
	raw, err := protocol.Encode(protocol.TypeJoinTable, protocol.JoinTableMsg{TableID: tableID, Seat: &seat})
	require.NoError(t, err)
	h.dispatch(c, raw)
}

func authenticate(t *testing.T, h *Hub, c *Connection, token string) {
	t.Helper()
	raw, err := protocol.Encode(protocol.TypeAuth, protocol.AuthMsg{Token: token})
	require.NoError(t, err)
	h.dispatch(c, raw)
	frames := drain(t, c)
	ok := findType(t, frames, protocol.TypeAuthSuccess)
	var success protocol.AuthSuccessMsg
	require.NoError(t, json.Unmarshal(ok, &success))
	require.Equal(t, token, success.UserID)
}

func TestDispatch_RejectsUnauthenticatedGameplay(t *testing.T) {
	h := testHub(t, nil)
	c := testConn(h)

	raw, err := protocol.Encode(protocol.TypeJoinTable, protocol.JoinTableMsg{TableID: "main"})
	require.NoError(t, err)
	h.dispatch(c, raw)

	frames := drain(t, c)
	errRaw := findType(t, frames, protocol.TypeError)
	var em protocol.ErrorMsg
	require.NoError(t, json.Unmarshal(errRaw, &em))
	require.Equal(t, protocol.CodeAuthRequired, em.Code)
}

func TestDispatch_AuthSuccess(t *testing.T) {
	h := testHub(t, nil)
	c := testConn(h)
	authenticate(t, h, c, "alice")
}

func TestJoinTable_TwoPlayersAutoStartsHand(t *testing.T) {
	h := testHub(t, nil)
	require.NoError(t, h.CreateTable("main", config.TableConfig{SmallBlind: 1, BigBlind: 2, MaxPlayers: 6}))

	alice := testConn(h)
	bob := testConn(h)
	authenticate(t, h, alice, "alice")
	authenticate(t, h, bob, "bob")

	joinSeat(t, h, alice, "main", 0)
	drain(t, alice) // player_joined + game_state for alice alone; not yet enough to start

	joinSeat(t, h, bob, "main", 1)

	bobFrames := drain(t, bob)
	gsRaw := findType(t, bobFrames, protocol.TypeGameState)
	var gs protocol.GameStateMsg
	require.NoError(t, json.Unmarshal(gsRaw, &gs))
	require.Equal(t, "preflop", gs.Stage)
	require.Len(t, gs.Players, 2)
}

func TestAction_RejectsOutOfTurn(t *testing.T) {
	h := testHub(t, nil)
	require.NoError(t, h.CreateTable("main", config.TableConfig{SmallBlind: 1, BigBlind: 2, MaxPlayers: 6}))

	alice := testConn(h)
	bob := testConn(h)
	authenticate(t, h, alice, "alice")
	authenticate(t, h, bob, "bob")

	joinSeat(t, h, alice, "main", 0)
	drain(t, alice)
	joinSeat(t, h, bob, "main", 1)
	bobFrames := drain(t, bob)
	gsRaw := findType(t, bobFrames, protocol.TypeGameState)
	var gs protocol.GameStateMsg
	require.NoError(t, json.Unmarshal(gsRaw, &gs))

	// Whichever seat is NOT on turn should be rejected.
	var offTurn *Connection
	if gs.CurrentActor == "alice" {
		offTurn = bob
	} else {
		offTurn = alice
	}
	drain(t, offTurn)

	actionRaw, _ := protocol.Encode(protocol.TypeAction, protocol.ActionMsg{Kind: "check"})
	h.dispatch(offTurn, actionRaw)

	frames := drain(t, offTurn)
	errRaw := findType(t, frames, protocol.TypeError)
	var em protocol.ErrorMsg
	require.NoError(t, json.Unmarshal(errRaw, &em))
	require.Equal(t, protocol.CodeInvalidAction, em.Code)
}

func TestChat_BroadcastsToTableViewers(t *testing.T) {
	h := testHub(t, nil)
	require.NoError(t, h.CreateTable("main", config.TableConfig{SmallBlind: 1, BigBlind: 2, MaxPlayers: 6}))

	alice := testConn(h)
	bob := testConn(h)
	authenticate(t, h, alice, "alice")
	authenticate(t, h, bob, "bob")

	joinSeat(t, h, alice, "main", 0)
	drain(t, alice)
	joinSeat(t, h, bob, "main", 1)
	drain(t, bob)

	chatRaw, _ := protocol.Encode(protocol.TypeChat, protocol.ChatMsg{Text: "nice hand"})
	h.dispatch(alice, chatRaw)

	bobFrames := drain(t, bob)
	chatMsgRaw := findType(t, bobFrames, protocol.TypeChatBroadcast)
	var cb protocol.ChatBroadcastMsg
	require.NoError(t, json.Unmarshal(chatMsgRaw, &cb))
	require.Equal(t, "alice", cb.UserID)
	require.Equal(t, "nice hand", cb.Text)
}

func TestAdminGuard_RejectsNonAdmin(t *testing.T) {
	h := testHub(t, nil)
	c := testConn(h)
	authenticate(t, h, c, "alice")

	createRaw, _ := protocol.Encode(protocol.TypeCreateTable, protocol.CreateTableMsg{TableID: "vip", SmallBlind: 5, BigBlind: 10, MaxPlayers: 6})
	h.dispatch(c, createRaw)

	frames := drain(t, c)
	errRaw := findType(t, frames, protocol.TypeError)
	var em protocol.ErrorMsg
	require.NoError(t, json.Unmarshal(errRaw, &em))
	require.Equal(t, protocol.CodeNotAdmin, em.Code)
}

func TestAdmin_CreateTableAndGiveChips(t *testing.T) {
	h := testHub(t, map[string]auth.Identity{
		"admin-token": {UserID: "root", Role: auth.RoleAdmin},
	})
	admin := testConn(h)
	authenticate(t, h, admin, "admin-token")

	createRaw, _ := protocol.Encode(protocol.TypeCreateTable, protocol.CreateTableMsg{TableID: "vip", SmallBlind: 5, BigBlind: 10, MaxPlayers: 6})
	h.dispatch(admin, createRaw)
	drain(t, admin)

	alice := testConn(h)
	authenticate(t, h, alice, "alice")
	joinSeat(t, h, alice, "vip", 0)
	drain(t, alice)

	giveRaw, _ := protocol.Encode(protocol.TypeGiveChips, protocol.GiveChipsMsg{Player: "alice", Amount: 500})
	h.dispatch(admin, giveRaw)

	aliceFrames := drain(t, alice)
	cuRaw := findType(t, aliceFrames, protocol.TypeChipsUpdated)
	var cu protocol.ChipsUpdatedMsg
	require.NoError(t, json.Unmarshal(cuRaw, &cu))
	require.Equal(t, "alice", cu.UserID)
	require.Equal(t, 500, cu.Delta)
	require.Equal(t, startingChips+500, cu.Chips)
}

func TestLeaveTable_VacatesSeat(t *testing.T) {
	h := testHub(t, nil)
	require.NoError(t, h.CreateTable("main", config.TableConfig{SmallBlind: 1, BigBlind: 2, MaxPlayers: 6}))

	alice := testConn(h)
	authenticate(t, h, alice, "alice")
	joinSeat(t, h, alice, "main", 0)
	drain(t, alice)

	a, ok := h.getTable("main")
	require.True(t, ok)
	require.Equal(t, 1, a.seatedCount())

	leaveRaw, _ := protocol.Encode(protocol.TypeLeaveTable, protocol.LeaveTableMsg{})
	h.dispatch(alice, leaveRaw)

	require.Equal(t, 0, a.seatedCount())
}

func TestDeleteTable_RefusesWhileSeated(t *testing.T) {
	h := testHub(t, map[string]auth.Identity{"admin-token": {UserID: "root", Role: auth.RoleAdmin}})
	require.NoError(t, h.CreateTable("main", config.TableConfig{SmallBlind: 1, BigBlind: 2, MaxPlayers: 6}))

	alice := testConn(h)
	authenticate(t, h, alice, "alice")
	joinSeat(t, h, alice, "main", 0)
	drain(t, alice)

	admin := testConn(h)
	authenticate(t, h, admin, "admin-token")
	deleteRaw, _ := protocol.Encode(protocol.TypeDeleteTable, protocol.DeleteTableMsg{TableID: "main"})
	h.dispatch(admin, deleteRaw)

	frames := drain(t, admin)
	errRaw := findType(t, frames, protocol.TypeError)
	var em protocol.ErrorMsg
	require.NoError(t, json.Unmarshal(errRaw, &em))
	require.Equal(t, protocol.CodeTableHasPlayers, em.Code)
}

func TestGetStandings_ReflectsLedger(t *testing.T) {
	h := testHub(t, map[string]auth.Identity{"admin-token": {UserID: "root", Role: auth.RoleAdmin}})
	require.NoError(t, h.CreateTable("main", config.TableConfig{SmallBlind: 1, BigBlind: 2, MaxPlayers: 6}))

	alice := testConn(h)
	authenticate(t, h, alice, "alice")
	joinSeat(t, h, alice, "main", 0)
	drain(t, alice)

	admin := testConn(h)
	authenticate(t, h, admin, "admin-token")
	getRaw, _ := protocol.Encode(protocol.TypeGetStandings, protocol.GetStandingsMsg{})
	h.dispatch(admin, getRaw)

	frames := drain(t, admin)
	stRaw := findType(t, frames, protocol.TypeStandings)
	var sm protocol.StandingsMsg
	require.NoError(t, json.Unmarshal(stRaw, &sm))
	require.Len(t, sm.Standings, 1)
	require.Equal(t, "alice", sm.Standings[0].UserID)
	require.Equal(t, -startingChips, sm.Standings[0].Delta)
}

func TestJoinTable_WithoutSeatSpectates(t *testing.T) {
	h := testHub(t, nil)
	require.NoError(t, h.CreateTable("main", config.TableConfig{SmallBlind: 1, BigBlind: 2, MaxPlayers: 6}))

	alice := testConn(h)
	bob := testConn(h)
	spec := testConn(h)
	authenticate(t, h, alice, "alice")
	authenticate(t, h, bob, "bob")
	authenticate(t, h, spec, "watcher")

	joinSeat(t, h, alice, "main", 0)
	drain(t, alice)
	joinSeat(t, h, bob, "main", 1)
	drain(t, bob)

	raw, err := protocol.Encode(protocol.TypeJoinTable, protocol.JoinTableMsg{TableID: "main"})
	require.NoError(t, err)
	h.dispatch(spec, raw)

	a, ok := h.getTable("main")
	require.True(t, ok)
	require.Equal(t, 2, a.seatedCount()) // spectator holds no seat

	frames := drain(t, spec)
	gsRaw := findType(t, frames, protocol.TypeGameState)
	var gs protocol.GameStateMsg
	require.NoError(t, json.Unmarshal(gsRaw, &gs))
	require.Len(t, gs.Players, 2)
	for _, p := range gs.Players {
		require.Empty(t, p.HoleCards, "spectator snapshot must not carry hole cards")
	}
	require.Empty(t, gs.ViewerActions)
}

func TestAuth_ReconnectWithinGraceRestoresSeat(t *testing.T) {
	h := testHub(t, nil)
	require.NoError(t, h.CreateTable("main", config.TableConfig{SmallBlind: 1, BigBlind: 2, MaxPlayers: 6}))

	alice := testConn(h)
	bob := testConn(h)
	authenticate(t, h, alice, "alice")
	authenticate(t, h, bob, "bob")
	joinSeat(t, h, alice, "main", 0)
	drain(t, alice)
	joinSeat(t, h, bob, "main", 1)
	drain(t, bob)

	a, ok := h.getTable("main")
	require.True(t, ok)

	// Simulate alice's socket dropping mid-hand: tombstone plus
	// disconnected flag, exactly what Connection.close does for a seated
	// user.
	var holeBefore int
	a.exec(func() {
		_, p := a.tbl.FindPlayer("alice")
		require.NotNil(t, p)
		holeBefore = len(p.HoleCards)
		p.Disconnected = true
		h.sessions.Save("alice", "main", 0, p.Chips, p.HoleCards)
	})
	a.removeViewer("alice")
	h.unregisterConn("alice", alice)

	// A fresh socket authenticating as alice reconnects without an
	// explicit join.
	alice2 := testConn(h)
	authRaw, err := protocol.Encode(protocol.TypeAuth, protocol.AuthMsg{Token: "alice"})
	require.NoError(t, err)
	h.dispatch(alice2, authRaw)

	frames := drain(t, alice2)
	findType(t, frames, protocol.TypeAuthSuccess)
	gsRaw := findType(t, frames, protocol.TypeGameState)
	var gs protocol.GameStateMsg
	require.NoError(t, json.Unmarshal(gsRaw, &gs))
	for _, p := range gs.Players {
		if p.UserID == "alice" {
			require.False(t, p.Disconnected)
			require.Len(t, p.HoleCards, holeBefore, "reconnect must restore the original hole cards")
		}
	}

	// Tombstone consumed: no later sweep may remove the seat.
	_, ok = h.sessions.Peek("alice", "main")
	require.False(t, ok)
}
