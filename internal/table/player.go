package table

import "github.com/lox/holdemcore/internal/cards"

// Player is a seated player: stable user id bound to one seat, chip stack,
// hole cards, and per-hand/per-round flags
type Player struct {
	UserID string
	Seat int
	Chips int
	HoleCards []cards.Card
	Wager int // chips committed to the current betting round
	Folded bool
	AllIn bool
	SittingOut bool
	Disconnected bool
	ActedThisRound bool

	// TimeBankRemaining is the player's remaining time-bank seconds, capped
	// at maxTimeBank.
	TimeBankRemaining float64
}

const maxTimeBank = 120.0

// NewPlayer seats a fresh player with a starting stack and time bank.
func NewPlayer(userID string, seat, chips int, startingTimeBank float64) *Player {
	return &Player{
		UserID: userID,
		Seat: seat,
		Chips: chips,
		TimeBankRemaining: startingTimeBank,
	}
}

// ResetForNewHand clears cards/wager/flags but keeps chips
// step 3.
func (p *Player) ResetForNewHand() {
	p.HoleCards = nil
	p.Wager = 0
	p.Folded = false
	p.AllIn = false
	p.ActedThisRound = false
}

// ResetForNewRound zeroes the per-round wager and action-taken flag; chips
// and cards are untouched.
func (p *Player) ResetForNewRound() {
	p.Wager = 0
	p.ActedThisRound = false
}

// ReplenishTimeBank adds seconds to the bank, capped at 120 total, per the
// time_bank_replenish_per_hand configuration option.
func (p *Player) ReplenishTimeBank(seconds float64) {
	p.TimeBankRemaining += seconds
	if p.TimeBankRemaining > maxTimeBank {
		p.TimeBankRemaining = maxTimeBank
	}
}

// IsInHand reports whether the player can still contest the pot (seated,
// not folded). A player who is all-in is still "in hand" but CanAct is
// false.
func (p *Player) IsInHand() bool {
	return !p.Folded
}

// CanAct reports whether the player may take a betting action: in the hand,
// not all-in, not sitting out, has chips.
func (p *Player) CanAct() bool {
	return !p.Folded && !p.AllIn && !p.SittingOut && p.Chips > 0
}

// EligibleForHand reports whether the player counts towards starting a new hand:
// seated, has chips, not sitting out.
func (p *Player) EligibleForHand() bool {
	return p.Chips > 0 && !p.SittingOut
}

// Bet moves amount from the player's stack into their current-round wager,
// capping at the player's stack and marking all-in when it is exhausted.
func (p *Player) Bet(amount int) int {
	if amount > p.Chips {
		amount = p.Chips
	}
	p.Chips -= amount
	p.Wager += amount
	if p.Chips == 0 {
		p.AllIn = true
	}
	return amount
}

// Fold marks the player as folded; they can take no further action this
// hand.
func (p *Player) Fold() {
	p.Folded = true
}
