package table

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quartzClock adapts quartz's Now(tags ...string) signature to the
// Clock interface's Now() used by this package.
type quartzClock struct{ c quartz.Clock }

func (q quartzClock) Now() time.Time { return q.c.Now() }

func newTestTable(t *testing.T, maxSeats int) *Table {
	t.Helper()
	cfg := Config{
		SmallBlind: 1, BigBlind: 2, MinSeats: 2, MaxSeats: maxSeats,
		TurnSeconds: 30, StartingTimeBank: 0, TimeBankReplenish: 0,
	}
	tb := New("t1", cfg, rand.New(rand.NewSource(7)))
	tb.Clock = quartzClock{quartz.NewReal()}
	return tb
}

func drainEvents(t *Table) []Event {
	var out []Event
	for {
		select {
		case ev := <-t.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// Scenario 1: Heads-up preflop fold.
func TestScenarioHeadsUpPreflopFold(t *testing.T) {
	tb := newTestTable(t, 2)
	require.NoError(t, tb.AddPlayer("seat0", 0, 100))
	require.NoError(t, tb.AddPlayer("seat1", 1, 100))
	tb.DealerSeat = 0 // so the first advance lands on seat 1

	require.True(t, tb.CanStartHand())
	require.NoError(t, tb.StartHand())
	drainEvents(tb)

	require.Equal(t, 1, tb.DealerSeat)
	// Heads-up: dealer (seat1) posts SB and acts first.
	require.Equal(t, 1, tb.CurrentActorSeat)

	require.NoError(t, tb.ProcessAction("seat1", Fold, 0))

	assert.Equal(t, HandComplete, tb.Stage)
	assert.Equal(t, 101, tb.Seats[0].Chips)
	assert.Equal(t, 99, tb.Seats[1].Chips)
}

// Scenario 2: Three-player preflop limp around.
func TestScenarioThreePlayerLimpAround(t *testing.T) {
	tb := newTestTable(t, 3)
	require.NoError(t, tb.AddPlayer("s0", 0, 100))
	require.NoError(t, tb.AddPlayer("s1", 1, 100))
	require.NoError(t, tb.AddPlayer("s2", 2, 100))
	tb.DealerSeat = 0
	require.NoError(t, tb.StartHand())
	drainEvents(tb)

	require.Equal(t, 1, tb.DealerSeat)
	// SB=seat2, BB=seat0, UTG=seat1
	require.Equal(t, 1, tb.CurrentActorSeat)

	require.NoError(t, tb.ProcessAction("s1", Call, 0))
	require.NoError(t, tb.ProcessAction("s2", Call, 0))
	require.NoError(t, tb.ProcessAction("s0", Check, 0))

	assert.Equal(t, StageFlop, tb.Stage)
	assert.Equal(t, 6, tb.Pot.Total())
	for _, p := range tb.Seats {
		assert.Equal(t, 0, p.Wager)
	}
}

func TestIncompleteAllInDoesNotReopenAction(t *testing.T) {
	tb := newTestTable(t, 3)
	require.NoError(t, tb.AddPlayer("s0", 0, 100))
	require.NoError(t, tb.AddPlayer("s1", 1, 100))
	require.NoError(t, tb.AddPlayer("s2", 2, 3)) // short stack
	tb.DealerSeat = 0
	require.NoError(t, tb.StartHand())
	drainEvents(tb)

	// UTG = s1 calls 2, s2 (SB posted 1, owes 1 more to call and has 2
	// chips left) goes all-in for 2 more (total wager 3), a raise of
	// only 1 over the big blind of 2 - an incomplete all-in.
	require.NoError(t, tb.ProcessAction("s1", Call, 0))
	require.NoError(t, tb.ProcessAction("s2", AllIn, 0))
	require.Equal(t, 3, tb.Round.CurrentBet)

	// s0 (BB, already wagered 2) has not acted yet, so it keeps its normal
	// options and calls the extra 1. s1 already acted before the incomplete
	// all-in, so it may only call the extra 1, not raise. The round then
	// completes once s0 and s1 have both called.
	require.Equal(t, 0, tb.CurrentActorSeat) // BB acts next
	require.NoError(t, tb.ProcessAction("s0", Call, 0))

	// s1 already acted since the last full raise: the incomplete all-in
	// leaves them with call/fold only.
	legal := ValidActions(tb.Round, tb.Seats[1])
	assert.NotContains(t, legal, Raise)
	assert.Contains(t, legal, Call)
	require.Error(t, tb.ProcessAction("s1", Raise, 8))
	require.NoError(t, tb.ProcessAction("s1", Call, 0))

	assert.Equal(t, StageFlop, tb.Stage)
}

func TestBigBlindKeepsRaiseOptionPreflop(t *testing.T) {
	tb := newTestTable(t, 3)
	require.NoError(t, tb.AddPlayer("s0", 0, 100))
	require.NoError(t, tb.AddPlayer("s1", 1, 100))
	require.NoError(t, tb.AddPlayer("s2", 2, 100))
	tb.DealerSeat = 0
	require.NoError(t, tb.StartHand())
	drainEvents(tb)

	// SB=s2, BB=s0. Everyone limps to the big blind, whose option must
	// still include a raise despite their wager matching the current bet.
	require.NoError(t, tb.ProcessAction("s1", Call, 0))
	require.NoError(t, tb.ProcessAction("s2", Call, 0))

	legal := ValidActions(tb.Round, tb.Seats[0])
	assert.Contains(t, legal, Check)
	assert.Contains(t, legal, Raise)

	require.NoError(t, tb.ProcessAction("s0", Raise, 6))
	require.Equal(t, 6, tb.Round.CurrentBet)
	// The raise reopens action for the limpers.
	require.Equal(t, 1, tb.CurrentActorSeat)
}

func TestRemovePlayerOutOfTurnKeepsActor(t *testing.T) {
	tb := newTestTable(t, 3)
	require.NoError(t, tb.AddPlayer("s0", 0, 100))
	require.NoError(t, tb.AddPlayer("s1", 1, 100))
	require.NoError(t, tb.AddPlayer("s2", 2, 100))
	tb.DealerSeat = 0
	require.NoError(t, tb.StartHand())
	drainEvents(tb)

	// UTG is s1. Removing s0 (the big blind, not on turn) folds them but
	// must not steal or skip s1's turn.
	require.Equal(t, 1, tb.CurrentActorSeat)
	require.NoError(t, tb.RemovePlayer("s0"))
	assert.Equal(t, 1, tb.CurrentActorSeat)
	assert.NotEqual(t, HandComplete, tb.Stage)

	require.NoError(t, tb.ProcessAction("s1", Call, 0))
	// s2 (SB) completes; the round ends and play reaches the flop two-handed.
	require.NoError(t, tb.ProcessAction("s2", Call, 0))
	assert.Equal(t, StageFlop, tb.Stage)
}

func TestSitOutMidHandFoldsPlayer(t *testing.T) {
	tb := newTestTable(t, 3)
	require.NoError(t, tb.AddPlayer("s0", 0, 100))
	require.NoError(t, tb.AddPlayer("s1", 1, 100))
	require.NoError(t, tb.AddPlayer("s2", 2, 100))
	tb.DealerSeat = 0
	require.NoError(t, tb.StartHand())
	drainEvents(tb)

	require.NoError(t, tb.SitOut("s0"))
	assert.True(t, tb.Seats[0].SittingOut)
	assert.True(t, tb.Seats[0].Folded)
	require.Equal(t, 1, tb.CurrentActorSeat)

	// The remaining two can finish the round without waiting on s0.
	require.NoError(t, tb.ProcessAction("s1", Call, 0))
	require.NoError(t, tb.ProcessAction("s2", Call, 0))
	assert.Equal(t, StageFlop, tb.Stage)
}

func TestBustedSeatSitsOutHand(t *testing.T) {
	tb := newTestTable(t, 3)
	require.NoError(t, tb.AddPlayer("s0", 0, 100))
	require.NoError(t, tb.AddPlayer("s1", 1, 100))
	require.NoError(t, tb.AddPlayer("s2", 2, 0)) // busted, still seated
	tb.DealerSeat = 0
	require.NoError(t, tb.StartHand())
	drainEvents(tb)

	// Only two players have chips, so the hand runs heads-up: the dealer
	// posts the small blind and acts first; the busted seat is dealt
	// nothing and posts nothing.
	assert.Empty(t, tb.Seats[2].HoleCards)
	assert.Equal(t, 0, tb.Seats[2].Wager)
	assert.Len(t, tb.Seats[0].HoleCards, 2)
	assert.Len(t, tb.Seats[1].HoleCards, 2)
	require.Equal(t, tb.DealerSeat, tb.CurrentActorSeat)
	assert.Equal(t, 1, tb.Seats[tb.DealerSeat].Wager)
	assert.Equal(t, 3, tb.Pot.Total()+tb.Seats[0].Wager+tb.Seats[1].Wager)
}

func TestLateActionConsumesTimeBank(t *testing.T) {
	cfg := Config{SmallBlind: 1, BigBlind: 2, MinSeats: 2, MaxSeats: 2, TurnSeconds: 30, StartingTimeBank: 20}
	mock := quartz.NewMock(t)
	tb := New("t1", cfg, rand.New(rand.NewSource(3)))
	tb.Clock = quartzClock{mock}
	require.NoError(t, tb.AddPlayer("a", 0, 100))
	require.NoError(t, tb.AddPlayer("b", 1, 100))
	tb.DealerSeat = 0
	require.NoError(t, tb.StartHand())
	drainEvents(tb)

	// Dealer (b) acts 10 seconds over budget: 10 seconds of bank spent.
	mock.Advance(40 * time.Second).MustWait(context.Background())
	require.NoError(t, tb.ProcessAction("b", Call, 0))
	assert.InDelta(t, 10.0, tb.Seats[1].TimeBankRemaining, 0.01)

	// Still short of full exhaustion, so no auto-action fires meanwhile.
	applied := tb.CheckTimeout(mock.Now())
	assert.False(t, applied)
}

func TestTimeoutAutoChecks(t *testing.T) {
	cfg := Config{SmallBlind: 1, BigBlind: 2, MinSeats: 2, MaxSeats: 2, TurnSeconds: 30}
	mock := quartz.NewMock(t)
	tb := New("t1", cfg, rand.New(rand.NewSource(1)))
	tb.Clock = quartzClock{mock}
	require.NoError(t, tb.AddPlayer("a", 0, 100))
	require.NoError(t, tb.AddPlayer("b", 1, 100))
	tb.DealerSeat = 0
	require.NoError(t, tb.StartHand())
	drainEvents(tb)

	// heads-up: dealer (b, after the button advanced from seat 0) posts
	// the SB and acts first. Call to get to flop with no further bet
	// owed, so a timeout there produces a CHECK.
	require.NoError(t, tb.ProcessAction("b", Call, 0))
	require.NoError(t, tb.ProcessAction("a", Check, 0))
	drainEvents(tb)
	require.Equal(t, StageFlop, tb.Stage)

	mock.Advance(31 * time.Second).MustWait(context.Background())
	applied := tb.CheckTimeout(mock.Now())
	assert.True(t, applied)
	evs := drainEvents(tb)
	found := false
	for _, ev := range evs {
		if pa, ok := ev.(PlayerActionEvent); ok && pa.Auto && pa.Action == Check {
			found = true
		}
	}
	assert.True(t, found)
}
