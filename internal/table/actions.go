package table

// ProcessAction applies a player's declared action
// "Betting round protocol". It validates turn order and legality before
// mutating any state.
func (t *Table) ProcessAction(userID string, kind ActionKind, amount int) error {
	seat, p := t.findPlayer(userID)
	if p == nil {
		return ErrPlayerNotFound
	}
	if t.Stage != StagePreflop && t.Stage != StageFlop && t.Stage != StageTurn && t.Stage != StageRiver {
		return ErrIllegalAction
	}
	if seat != t.CurrentActorSeat {
		return ErrNotYourTurn
	}

	legal := ValidActions(t.Round, p)
	if !containsAction(legal, kind) {
		return ErrIllegalAction
	}

	switch kind {
	case Fold:
		t.consumeTimeBank(p)
		p.Fold()
		t.emit(PlayerActionEvent{UserID: userID, Action: Fold})
		t.afterFold(seat)
		return nil
	case Check:
		p.ActedThisRound = true
		t.emit(PlayerActionEvent{UserID: userID, Action: Check})
	case Call:
		moved := p.Bet(CallAmount(t.Round, p))
		p.ActedThisRound = true
		t.emit(PlayerActionEvent{UserID: userID, Action: Call, Amount: moved})
	case Bet:
		if amount < t.Config.BigBlind || amount > p.Chips {
			return ErrInsufficientChips
		}
		p.Bet(amount)
		p.ActedThisRound = true
		t.openNewAggression(seat, amount)
		t.emit(PlayerActionEvent{UserID: userID, Action: Bet, Amount: amount})
	case Raise:
		target := MinRaiseTarget(t.Round)
		delta := amount - p.Wager
		if amount < target || delta <= 0 || delta > p.Chips {
			return ErrInsufficientChips
		}
		priorBet := t.Round.CurrentBet
		p.Bet(delta)
		p.ActedThisRound = true
		t.openNewAggression(seat, amount-priorBet)
		t.emit(PlayerActionEvent{UserID: userID, Action: Raise, Amount: amount})
	case AllIn:
		if p.Chips <= 0 {
			return ErrIllegalAction
		}
		priorBet := t.Round.CurrentBet
		moved := p.Bet(p.Chips)
		p.ActedThisRound = true
		raiseAmount := p.Wager - priorBet
		if p.Wager > t.Round.CurrentBet {
			if raiseAmount >= t.Round.MinRaise {
				// Full-raise all-in: reopens action normally.
				t.openNewAggression(seat, raiseAmount)
			} else {
				// Incomplete all-in: updates CurrentBet but does NOT
				// reopen action for players who already matched the
				// prior bet.
				t.Round.CurrentBet = p.Wager
			}
		}
		t.emit(PlayerActionEvent{UserID: userID, Action: AllIn, Amount: moved})
	}

	t.consumeTimeBank(p)
	t.Round.ActedSinceRaise[seat] = true
	t.afterAction()
	return nil
}

func containsAction(actions []ActionKind, kind ActionKind) bool {
	for _, a := range actions {
		if a == kind {
			return true
		}
	}
	return false
}

// openNewAggression records a full raise: updates CurrentBet/MinRaise,
// marks seat as the new aggressor, and clears ActedSinceRaise for everyone
// else so they must act again.
func (t *Table) openNewAggression(seat, raiseIncrement int) {
	p := t.Seats[seat]
	t.Round.CurrentBet = p.Wager
	if raiseIncrement > 0 {
		t.Round.MinRaise = raiseIncrement
	}
	t.Round.LastAggressor = seat
	for s := range t.Round.ActedSinceRaise {
		delete(t.Round.ActedSinceRaise, s)
	}
}

// afterFold handles the uncontested-pot short circuit, then re-checks
// completion. A fold out of turn (player removal, stand-up mid-hand) must
// not advance the actor: the turn belongs to whoever already held it.
func (t *Table) afterFold(seat int) {
	if t.remainingNonFolded() <= 1 {
		t.endHandUncontested()
		return
	}
	if seat == t.CurrentActorSeat {
		t.afterAction()
		return
	}
	if t.Round != nil && t.isRoundComplete() {
		t.endBettingRound()
	}
}

func (t *Table) remainingNonFolded() int {
	n := 0
	for _, p := range t.Seats {
		if !p.Folded {
			n++
		}
	}
	return n
}

// afterAction re-checks round/hand completion and either advances the
// actor, advances the stage, or ends the hand and "Stage transitions".
func (t *Table) afterAction() {
	if t.remainingNonFolded() <= 1 {
		t.endHandUncontested()
		return
	}
	if t.isRoundComplete() {
		t.endBettingRound()
		return
	}
	t.advanceActor()
}

func (t *Table) isRoundComplete() bool {
	for _, p := range t.Seats {
		if p.Folded {
			continue
		}
		if p.CanAct() {
			if p.Wager != t.Round.CurrentBet {
				return false
			}
			if !t.Round.ActedSinceRaise[p.Seat] {
				return false
			}
		} else if p.Wager != t.Round.CurrentBet && !p.AllIn {
			return false
		}
	}
	return true
}

// advanceActor moves the turn to the next seat in action order that can
// still act.
func (t *Table) advanceActor() {
	order := t.Round.ActionOrder
	startIdx := -1
	for i, s := range order {
		if s == t.CurrentActorSeat {
			startIdx = i
			break
		}
	}
	for offset := 1; offset <= len(order); offset++ {
		idx := (startIdx + offset) % len(order)
		seat := order[idx]
		p := t.Seats[seat]
		if p != nil && p.CanAct() {
			t.CurrentActorSeat = seat
			t.TurnStartedAt = t.now()
			t.actedAutomatically = false
			return
		}
	}
	// No one left who can act: round is complete even though we got here
	// from advanceActor rather than afterAction's pre-check.
	t.endBettingRound()
}
