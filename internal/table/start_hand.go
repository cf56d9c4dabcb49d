package table

// StartHand begins a new hand:
// 1. require stage WAITING or HAND_COMPLETE and enough eligible players,
// 2. advance the dealer,
// 3. reset deck/pot/community/players,
// 4. compute action order,
// 5. post blinds (heads-up vs 3+ rules),
// 6. deal hole cards,
// 7. open the preflop betting round.
func (t *Table) StartHand() error {
	if !t.CanStartHand() {
		return ErrCannotStart
	}

	t.HandNumber++
	t.Stage = Starting

	t.DealerSeat = t.nextOccupiedSeatAfter(t.DealerSeat)

	t.deck.Reset()
	t.Pot.Reset()
	t.Community = nil
	for _, p := range t.Seats {
		p.ResetForNewHand()
		if p.EligibleForHand() {
			p.ReplenishTimeBank(t.Config.TimeBankReplenish)
		}
	}

	order := t.actionOrderFrom(t.DealerSeat)

	var utgSeat, bbSeat int
	if len(order) == 2 {
		// Heads-up: the dealer posts the small blind and acts first
		// preflop. The ring starts one seat past the dealer, so the
		// dealer is order[1] and the big blind is order[0].
		sbSeat := order[1]
		bbSeat = order[0]
		t.postBlind(sbSeat, t.Config.SmallBlind)
		t.postBlind(bbSeat, t.Config.BigBlind)
		utgSeat = sbSeat
	} else {
		sbSeat := order[0]
		bbSeat = order[1]
		t.postBlind(sbSeat, t.Config.SmallBlind)
		t.postBlind(bbSeat, t.Config.BigBlind)
		utgSeat = order[2]
	}

	for _, seat := range order {
		p := t.Seats[seat]
		cards := t.deck.Deal(2)
		p.HoleCards = cards
	}

	t.Stage = StagePreflop
	t.Round = NewBettingRound(Preflop, rotateTo(order, utgSeat), t.Config.BigBlind, t.Config.BigBlind, bbSeat)
	t.CurrentActorSeat = utgSeat
	t.TurnStartedAt = t.now()
	t.actedAutomatically = false

	t.emit(HandStartedEvent{HandNumber: t.HandNumber, DealerSeat: t.DealerSeat})
	t.emit(StateChangedEvent{Stage: t.Stage, Community: t.Community, PotTotal: t.Pot.Total()})

	return nil
}

func (t *Table) postBlind(seat, amount int) {
	p := t.Seats[seat]
	p.Bet(amount)
}

// rotateTo rotates order so it begins at seat `start`.
func rotateTo(order []int, start int) []int {
	for i, s := range order {
		if s == start {
			out := make([]int, 0, len(order))
			out = append(out, order[i:]...)
			out = append(out, order[:i]...)
			return out
		}
	}
	return order
}
