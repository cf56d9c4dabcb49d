package table

import "time"

// CheckTimeout inspects the current actor's elapsed-on-turn and applies the
// per-turn timeout auto-action if exhausted. Meant to be driven by a
// background ticker; it is safe to call repeatedly (e.g. once per ticker
// tick), and is a no-op once the turn has already been auto-acted or there
// is no current actor.
//
// Returns true if an auto-action was applied.
func (t *Table) CheckTimeout(now time.Time) bool {
	if t.CurrentActorSeat < 0 || t.actedAutomatically {
		return false
	}
	p := t.Seats[t.CurrentActorSeat]
	if p == nil {
		return false
	}

	elapsed := now.Sub(t.TurnStartedAt).Seconds()
	budget := float64(t.Config.TurnSeconds)

	fundingBank := elapsed > budget
	totalBudget := budget
	if fundingBank {
		totalBudget += p.TimeBankRemaining
	}

	if elapsed <= totalBudget {
		return false
	}

	// Exhausted: consume whatever time bank was actually funding this
	// turn, then apply the auto-action.
	if fundingBank {
		p.TimeBankRemaining = 0
	}
	t.actedAutomatically = true

	legal := ValidActions(t.Round, p)
	kind := Fold
	if containsAction(legal, Check) {
		kind = Check
	}

	switch kind {
	case Check:
		p.ActedThisRound = true
	case Fold:
		p.Fold()
	}
	t.Round.ActedSinceRaise[t.CurrentActorSeat] = true
	t.emit(PlayerActionEvent{UserID: p.UserID, Action: kind, Auto: true})

	if kind == Fold {
		t.afterFold(t.CurrentActorSeat)
	} else {
		t.afterAction()
	}
	return true
}

// consumeTimeBank charges any over-budget turn time to the acting player's
// bank when they act late. CheckTimeout handles the full-exhaustion case.
func (t *Table) consumeTimeBank(p *Player) {
	over := t.now().Sub(t.TurnStartedAt).Seconds() - float64(t.Config.TurnSeconds)
	if over <= 0 {
		return
	}
	p.TimeBankRemaining -= over
	if p.TimeBankRemaining < 0 {
		p.TimeBankRemaining = 0
	}
}

// TimeRemaining reports how many seconds remain in the current actor's turn
// (including any time bank currently funding them), and whether the time
// bank is presently the source of that time, feeding the corresponding
// game_state snapshot fields.
func (t *Table) TimeRemaining(now time.Time) (seconds float64, bankFunding bool) {
	if t.CurrentActorSeat < 0 {
		return 0, false
	}
	p := t.Seats[t.CurrentActorSeat]
	if p == nil {
		return 0, false
	}
	elapsed := now.Sub(t.TurnStartedAt).Seconds()
	budget := float64(t.Config.TurnSeconds)
	if elapsed <= budget {
		return budget - elapsed, false
	}
	remaining := budget + p.TimeBankRemaining - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}
