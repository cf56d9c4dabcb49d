// Package table implements the authoritative per-table state machine: seats,
// dealer button, betting rounds, stage transitions, showdown, timeouts and
// event emission.
package table

import (
	"math/rand"
	"time"

	"github.com/lox/holdemcore/internal/cards"
	"github.com/lox/holdemcore/internal/pot"
)

// Clock abstracts time.Now so per-turn timeout logic is testable without
// real wall-clock sleeps. Production uses realClock below; table-level unit
// tests wrap a quartz mock clock in a small adapter.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Stage is the table's current position in the hand lifecycle.
type Stage int

const (
	Waiting Stage = iota
	Starting
	StagePreflop
	StageFlop
	StageTurn
	StageRiver
	StageShowdown
	HandComplete
)

func (s Stage) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Starting:
		return "starting"
	case StagePreflop:
		return "preflop"
	case StageFlop:
		return "flop"
	case StageTurn:
		return "turn"
	case StageRiver:
		return "river"
	case StageShowdown:
		return "showdown"
	case HandComplete:
		return "hand_complete"
	default:
		return "unknown"
	}
}

// Config bundles the per-table constants the configuration table
// names that affect table behavior directly (as opposed to hub/session
// concerns).
type Config struct {
	SmallBlind int
	BigBlind int
	MinSeats int
	MaxSeats int
	TurnSeconds int
	StartingTimeBank float64
	TimeBankReplenish float64
}

// Table owns a single table's authoritative state. All methods assume
// single-writer access : callers (the hub's per-table command
// goroutine) must serialize calls themselves; Table performs no internal
// locking.
type Table struct {
	ID string
	Config Config

	Seats map[int]*Player
	DealerSeat int // -1 before the first hand

	Community []cards.Card
	Pot *pot.Pot
	deck *cards.Deck
	rng *rand.Rand

	Stage Stage
	HandNumber int
	Round *BettingRound

	CurrentActorSeat int // -1 if no actor has the turn
	TurnStartedAt time.Time
	actedAutomatically bool // guards against double-applying a turn's auto-action

	// Clock is injected so per-turn timeout tests can control elapsed time
	// deterministically instead of sleeping in real time.
	Clock Clock

	events chan Event
}

// New constructs an empty table. rng seeds both the deck and, deterministically
// for tests, any future randomized behavior; production callers pass
// cards.NewRNG().
func New(id string, cfg Config, rng *rand.Rand) *Table {
	return &Table{
		ID: id,
		Config: cfg,
		Seats: make(map[int]*Player),
		DealerSeat: -1,
		Pot: pot.New(),
		deck: cards.NewDeck(rng),
		rng: rng,
		Stage: Waiting,
		CurrentActorSeat: -1,
		Clock: realClock{},
		events: make(chan Event, 64),
	}
}

func (t *Table) now() time.Time {
	return t.Clock.Now()
}

// Events returns the table's typed event stream, a channel in place of a
// callback sink.
func (t *Table) Events() <-chan Event {
	return t.events
}

func (t *Table) emit(ev Event) {
	t.events <- ev
}

// AddPlayer seats a new player.
func (t *Table) AddPlayer(userID string, seat, chips int) error {
	if seat < 0 || seat >= t.Config.MaxSeats {
		return ErrSeatOutOfRange
	}
	if _, ok := t.Seats[seat]; ok {
		return ErrSeatTaken
	}
	for _, p := range t.Seats {
		if p.UserID == userID {
			return ErrAlreadySeated
		}
	}
	if len(t.Seats) >= t.Config.MaxSeats {
		return ErrTableFull
	}
	t.Seats[seat] = NewPlayer(userID, seat, chips, t.Config.StartingTimeBank)
	return nil
}

// RemovePlayer removes a user from their seat. If called mid-hand on an
// unfolded active player, it first applies a fold
func (t *Table) RemovePlayer(userID string) error {
	seat, p := t.findPlayer(userID)
	if p == nil {
		return ErrPlayerNotFound
	}
	if t.inHand() && !p.Folded {
		p.Fold()
		t.emit(PlayerActionEvent{UserID: userID, Action: Fold, Auto: true})
		t.afterFold(seat)
	}
	delete(t.Seats, seat)
	return nil
}

// SitOut marks a player sitting out without vacating their seat. If they
// are still live in the current hand, they are folded first so the betting
// round can complete without them.
func (t *Table) SitOut(userID string) error {
	seat, p := t.findPlayer(userID)
	if p == nil {
		return ErrPlayerNotFound
	}
	if p.SittingOut {
		return nil
	}
	p.SittingOut = true
	if t.inHand() && !p.Folded && len(p.HoleCards) > 0 {
		p.Fold()
		t.emit(PlayerActionEvent{UserID: userID, Action: Fold, Auto: true})
		t.afterFold(seat)
	}
	return nil
}

// MoveSeat relocates a seated player to a free seat. Only permitted while
// the player is not live in a hand (no hole cards, or folded), since the
// betting round's action order is keyed by seat index.
func (t *Table) MoveSeat(userID string, seat int) error {
	if seat < 0 || seat >= t.Config.MaxSeats {
		return ErrSeatOutOfRange
	}
	if _, taken := t.Seats[seat]; taken {
		return ErrSeatTaken
	}
	from, p := t.findPlayer(userID)
	if p == nil {
		return ErrPlayerNotFound
	}
	if t.inHand() && !p.Folded && len(p.HoleCards) > 0 {
		return ErrIllegalAction
	}
	delete(t.Seats, from)
	p.Seat = seat
	t.Seats[seat] = p
	return nil
}

func (t *Table) findPlayer(userID string) (int, *Player) {
	for seat, p := range t.Seats {
		if p.UserID == userID {
			return seat, p
		}
	}
	return -1, nil
}

// FindPlayer exposes findPlayer to callers outside this package (the hub's
// table actor, which already serializes every access through its own
// single-writer command goroutine).
func (t *Table) FindPlayer(userID string) (int, *Player) {
	return t.findPlayer(userID)
}

func (t *Table) inHand() bool {
	return t.Stage != Waiting && t.Stage != HandComplete
}

// CanStartHand reports whether a new hand may begin: stage is WAITING or
// HAND_COMPLETE and at least MinSeats players have chips > 0 and are not sitting out.
func (t *Table) CanStartHand() bool {
	if t.Stage != Waiting && t.Stage != HandComplete {
		return false
	}
	n := 0
	for _, p := range t.Seats {
		if p.EligibleForHand() {
			n++
		}
	}
	return n >= t.Config.MinSeats
}

// seatedSeatsAscending returns occupied seat indices in ascending order.
func (t *Table) seatedSeatsAscending() []int {
	out := make([]int, 0, len(t.Seats))
	for seat := range t.Seats {
		out = append(out, seat)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// nextOccupiedSeatAfter returns the next occupied seat strictly greater than
// from, wrapping around.
func (t *Table) nextOccupiedSeatAfter(from int) int {
	seats := t.seatedSeatsAscending()
	if len(seats) == 0 {
		return -1
	}
	for _, s := range seats {
		if s > from {
			return s
		}
	}
	return seats[0]
}

// actionOrderFrom returns the ring of players participating in the hand,
// starting one seat after `from`. A busted seat (0 chips) sits the hand
// out like a sitting-out one: it is never dealt cards, posts no blind, and
// must not push a two-player table onto the 3+ blind path.
func (t *Table) actionOrderFrom(from int) []int {
	seats := t.seatedSeatsAscending()
	var ring []int
	for _, s := range seats {
		if p := t.Seats[s]; p != nil && p.EligibleForHand() {
			ring = append(ring, s)
		}
	}
	if len(ring) == 0 {
		return nil
	}
	start := 0
	for i, s := range ring {
		if s > from {
			start = i
			break
		}
		if i == len(ring)-1 {
			start = 0
		}
	}
	// rotate so ring starts at `start`
	out := make([]int, 0, len(ring))
	out = append(out, ring[start:]...)
	out = append(out, ring[:start]...)
	return out
}
