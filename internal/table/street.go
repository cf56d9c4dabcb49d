package table

import (
	"github.com/lox/holdemcore/internal/cards"
	"github.com/lox/holdemcore/internal/handeval"
	"github.com/lox/holdemcore/internal/pot"
)

// endBettingRound folds the round's wagers into the pot and decides what
// happens next: run out the board if at
// most one player can still act, otherwise advance to the next street.
func (t *Table) endBettingRound() {
	t.foldWagersIntoPot()

	activeCanAct := 0
	for _, p := range t.Seats {
		if !p.Folded && p.CanAct() {
			activeCanAct++
		}
	}

	if activeCanAct <= 1 {
		t.runOutBoard()
		t.showdown()
		return
	}

	t.advanceStreet()
}

func (t *Table) foldWagersIntoPot() {
	for _, p := range t.Seats {
		if p.Wager > 0 {
			t.Pot.AddContribution(p.UserID, p.Wager)
		}
		p.ResetForNewRound()
	}
}

// advanceStreet moves PREFLOP->FLOP->TURN->RIVER->SHOWDOWN, dealing the burn
// and community cards for the new street and opening a fresh betting round
// whose first actor is the first non-folded seat after the dealer.
func (t *Table) advanceStreet() {
	switch t.Stage {
	case StagePreflop:
		t.dealCommunity(3)
		t.Stage = StageFlop
	case StageFlop:
		t.dealCommunity(1)
		t.Stage = StageTurn
	case StageTurn:
		t.dealCommunity(1)
		t.Stage = StageRiver
	case StageRiver:
		t.Stage = StageShowdown
		t.showdown()
		return
	}

	t.emit(StateChangedEvent{Stage: t.Stage, Community: t.Community, PotTotal: t.Pot.Total()})
	t.openBettingRoundForStreet()
}

func (t *Table) dealCommunity(n int) {
	t.deck.Burn()
	t.Community = append(t.Community, t.deck.Deal(n)...)
}

// runOutBoard deals all remaining community cards (with the standard burn
// before each street) when at most one player can still act.
func (t *Table) runOutBoard() {
	for len(t.Community) < 5 {
		switch len(t.Community) {
		case 0:
			t.dealCommunity(3)
		default:
			t.dealCommunity(1)
		}
		t.emit(StateChangedEvent{Stage: t.Stage, Community: t.Community, PotTotal: t.Pot.Total()})
	}
}

func (t *Table) openBettingRoundForStreet() {
	order := t.actionOrderFrom(t.DealerSeat)
	var acting []int
	for _, seat := range order {
		p := t.Seats[seat]
		if p != nil && !p.Folded && p.CanAct() {
			acting = append(acting, seat)
		}
	}
	if len(acting) == 0 {
		t.runOutBoard()
		t.showdown()
		return
	}

	var street Street
	switch t.Stage {
	case StageFlop:
		street = Flop
	case StageTurn:
		street = Turn
	case StageRiver:
		street = River
	}

	t.Round = NewBettingRound(street, acting, 0, t.Config.BigBlind, -1)
	t.CurrentActorSeat = acting[0]
	t.TurnStartedAt = t.now()
	t.actedAutomatically = false
}

// endHandUncontested awards the full pot to the single remaining player
// without a showdown.
func (t *Table) endHandUncontested() {
	t.foldWagersIntoPot()

	var winner *Player
	for _, p := range t.Seats {
		if !p.Folded {
			winner = p
			break
		}
	}

	amount := t.Pot.Total()
	if winner != nil {
		winner.Chips += amount
	}

	t.Stage = HandComplete
	t.CurrentActorSeat = -1

	result := HandResultEvent{Community: t.Community}
	if winner != nil {
		result.Winners = []WinnerResult{{UserID: winner.UserID, Amount: amount}}
	}
	t.emit(result)
}

// showdown evaluates side pots and credits winners. Only hands necessary to
// contest a pot they're eligible for are revealed.
func (t *Table) showdown() {
	t.Stage = StageShowdown

	allInTotals := make(map[string]int)
	results := make(map[string]handeval.HandResult)
	seatOf := make(map[string]int, len(t.Seats))
	for seat, p := range t.Seats {
		seatOf[p.UserID] = seat
		if p.Folded {
			continue
		}
		if p.AllIn {
			allInTotals[p.UserID] = t.Pot.Contribution(p.UserID)
		}
		hole := append([]cards.Card{}, p.HoleCards...)
		results[p.UserID] = handeval.Evaluate(append(hole, t.Community...))
	}

	sidePots := t.Pot.SidePots(allInTotals)
	order := pot.SeatOrder{Seat: seatOf, DealerSeat: t.DealerSeat, NumSeats: t.Config.MaxSeats}

	revealed := make(map[string][]cards.Card)
	result := HandResultEvent{Community: t.Community, RevealedHole: revealed}

	awards := pot.Distribute(sidePots, order, func(eligible map[string]bool) []string {
		var entries []handeval.Ranked[string]
		for userID := range eligible {
			r, ok := results[userID]
			if !ok {
				continue // folded: not a showdown contender
			}
			entries = append(entries, handeval.Ranked[string]{ID: userID, Result: r})
		}
		groups := handeval.CompareAll(entries)
		if len(groups) == 0 {
			return nil
		}
		return groups[0]
	})

	for _, award := range awards {
		seat := seatOf[award.User]
		t.Seats[seat].Chips += award.Amount
		// Winners-only reveal: a losing all-in that contested a pot keeps
		// its cards hidden. Sufficient for "hands necessary to win a pot
		// they contest", though stricter than a casino's show order.
		revealed[award.User] = t.Seats[seat].HoleCards
		result.Winners = append(result.Winners, WinnerResult{
			UserID: award.User,
			Amount: award.Amount,
			Category: results[award.User].Category.String(),
		})
	}

	t.Stage = HandComplete
	t.CurrentActorSeat = -1
	t.emit(result)
}
