package table

import "github.com/lox/holdemcore/internal/cards"

// EventType names the externally observable transitions a Table emits.
type EventType string

const (
	EventHandStarted EventType = "hand_started"
	EventStateChanged EventType = "state_changed"
	EventPlayerAction EventType = "player_action"
	EventHandResult EventType = "hand_result"
)

// Event is the interface satisfied by every concrete event payload: a typed
// struct carrying a string tag a consumer can switch on.
type Event interface {
	Type() EventType
}

// HandStartedEvent fires once per new hand, before the first action.
type HandStartedEvent struct {
	HandNumber int
	DealerSeat int
}

func (HandStartedEvent) Type() EventType { return EventHandStarted }

// StateChangedEvent fires on every stage transition.
type StateChangedEvent struct {
	Stage Stage
	Community []cards.Card
	PotTotal int
}

func (StateChangedEvent) Type() EventType { return EventStateChanged }

// PlayerActionEvent fires whenever a player action is applied (including
// engine-applied timeout auto-actions).
type PlayerActionEvent struct {
	UserID string
	Action ActionKind
	Amount int
	Auto bool // true if applied by the per-turn timeout, not the player
}

func (PlayerActionEvent) Type() EventType { return EventPlayerAction }

// WinnerResult is one winner's total settlement across all pots of the hand.
type WinnerResult struct {
	UserID string
	Amount int
	Category string // hand category name, empty for an uncontested award
}

// HandResultEvent fires once a hand concludes, either by uncontested award
// or showdown.
type HandResultEvent struct {
	Winners []WinnerResult
	Community []cards.Card
	RevealedHole map[string][]cards.Card // only hands shown to contest a pot
}

func (HandResultEvent) Type() EventType { return EventHandResult }
