package hub

import (
	"errors"

	"github.com/lox/holdemcore/internal/protocol"
	"github.com/lox/holdemcore/internal/table"
)

// errChipAmount is returned for non-positive give/take amounts, a take that
// would drive a stack negative, or a negative set target — the CHIP_ERROR
// cases.
var errChipAmount = errors.New("hub: invalid chip amount")

// join seats userID at an explicit seat with the given starting stack.
// Joining without a seat never reaches here: the hub registers those users
// as spectators instead.
func (a *tableActor) join(userID string, seat, chips int) error {
	var err error
	a.exec(func() {
		if err = a.tbl.AddPlayer(userID, seat, chips); err != nil {
			return
		}
		a.broadcastLocked(protocol.TypePlayerJoined, protocol.PlayerJoinedMsg{UserID: userID, Seat: seat})
	})
	if err == nil {
		a.attemptTableStart()
	}
	return err
}

// moveSeat relocates an already-seated player to a free seat, for a
// rejoining player who asked for a different seat than the one they held.
func (a *tableActor) moveSeat(userID string, seat int) error {
	var err error
	a.exec(func() {
		if err = a.tbl.MoveSeat(userID, seat); err == nil {
			a.broadcastGameStateLocked()
		}
	})
	return err
}

// seatOf reports which seat userID currently holds, if any.
func (a *tableActor) seatOf(userID string) (int, bool) {
	var seat int
	var ok bool
	a.exec(func() {
		s, p := a.tbl.FindPlayer(userID)
		if p != nil {
			seat, ok = s, true
		}
	})
	return seat, ok
}

// reconnect restores a tombstoned player's seat without consuming a new
// seat slot: the player was never removed from the table, only flagged
// disconnected.
func (a *tableActor) reconnect(userID string) (seat int, ok bool) {
	a.exec(func() {
		s, p := a.tbl.FindPlayer(userID)
		if p == nil {
			return
		}
		p.Disconnected = false
		seat, ok = s, true
		a.broadcastGameStateLocked()
	})
	return seat, ok
}

// leave removes userID from the table entirely, vacating the seat.
func (a *tableActor) leave(userID string) error {
	var err error
	a.exec(func() {
		if e := a.tbl.RemovePlayer(userID); e != nil {
			err = e
			return
		}
		delete(a.viewers, userID)
		a.broadcastLocked(protocol.TypePlayerLeft, protocol.PlayerLeftMsg{UserID: userID})
	})
	return err
}

// standUp marks the player sitting out without vacating their seat,
// folding them out of any hand they are still live in.
func (a *tableActor) standUp(userID string) error {
	var err error
	a.exec(func() {
		if err = a.tbl.SitOut(userID); err == nil {
			a.broadcastGameStateLocked()
		}
	})
	return err
}

// action applies a declared action from userID.
func (a *tableActor) action(userID string, kind table.ActionKind, amount int) error {
	var err error
	a.exec(func() {
		err = a.tbl.ProcessAction(userID, kind, amount)
	})
	return err
}

// startGame forces an immediate start attempt, bypassing the normal
// auto-start countdown.
func (a *tableActor) startGame() error {
	var err error
	a.exec(func() {
		if !a.tbl.CanStartHand() {
			err = table.ErrCannotStart
			return
		}
		err = a.tbl.StartHand()
	})
	return err
}

// chipDelta applies delta (positive or negative) to userID's stack, used by
// give_chips/take_chips. delta must be non-zero and must not drive the
// stack negative; either violation is errChipAmount.
func (a *tableActor) chipDelta(userID string, delta int) (int, error) {
	var result int
	var err error
	a.exec(func() {
		_, p := a.tbl.FindPlayer(userID)
		if p == nil {
			err = table.ErrPlayerNotFound
			return
		}
		if delta == 0 || p.Chips+delta < 0 {
			err = errChipAmount
			return
		}
		p.Chips += delta
		result = p.Chips
		a.broadcastLocked(protocol.TypeChipsUpdated, protocol.ChipsUpdatedMsg{UserID: userID, Chips: result, Delta: delta})
		a.broadcastGameStateLocked()
	})
	if err == nil && delta > 0 {
		a.attemptTableStart()
	}
	return result, err
}

// chipSet sets userID's stack to an absolute value, used by set_chips.
// amount must be non-negative. Returns the new stack and the delta applied,
// which the caller records as a ledger adjustment.
func (a *tableActor) chipSet(userID string, amount int) (int, int, error) {
	var result, delta int
	var err error
	a.exec(func() {
		_, p := a.tbl.FindPlayer(userID)
		if p == nil {
			err = table.ErrPlayerNotFound
			return
		}
		if amount < 0 {
			err = errChipAmount
			return
		}
		delta = amount - p.Chips
		p.Chips = amount
		result = p.Chips
		a.broadcastLocked(protocol.TypeChipsUpdated, protocol.ChipsUpdatedMsg{UserID: userID, Chips: result, Delta: delta})
		a.broadcastGameStateLocked()
	})
	if err == nil && delta > 0 {
		a.attemptTableStart()
	}
	return result, delta, err
}
