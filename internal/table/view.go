package table

import "github.com/lox/holdemcore/internal/cards"

// PlayerView is one seat's projection: hole cards are populated only when
// the viewer is that seat, or the hand has reached showdown and the hand
// was revealed.
type PlayerView struct {
	UserID string
	Seat int
	Chips int
	Wager int
	Folded bool
	AllIn bool
	SittingOut bool
	Disconnected bool
	HasCards bool
	HoleCards []cards.Card // nil unless this is the viewer's own seat or a hand revealed at showdown
}

// View is the per-viewer game_state snapshot.
type View struct {
	TableID string
	Stage Stage
	HandNumber int
	DealerSeat int
	SmallBlind int
	BigBlind int
	PotTotal int
	Community []cards.Card
	MaxSeats int
	Players []PlayerView
	CurrentActor string // empty if no one is on turn
	ViewerActions []ActionKind
	CallAmount int
	MinRaiseTarget int
	TurnSeconds int
	TimeRemaining float64
	BankFunding bool
	ActorBankRemain float64
}

// ViewFor constructs the projection for a given viewer: this is the single
// place hole cards are ever included, rather than ad-hoc field stripping
// elsewhere. revealedHole carries any showdown-revealed hands (from
// HandResultEvent), visible to every viewer once revealed.
func (t *Table) ViewFor(viewerID string, now func() (float64, bool), revealedHole map[string][]cards.Card) View {
	v := View{
		TableID: t.ID,
		Stage: t.Stage,
		HandNumber: t.HandNumber,
		DealerSeat: t.DealerSeat,
		SmallBlind: t.Config.SmallBlind,
		BigBlind: t.Config.BigBlind,
		PotTotal: t.Pot.Total(),
		Community: t.Community,
		MaxSeats: t.Config.MaxSeats,
		TurnSeconds: t.Config.TurnSeconds,
	}

	seats := t.seatedSeatsAscending()
	for _, seat := range seats {
		p := t.Seats[seat]
		pv := PlayerView{
			UserID: p.UserID,
			Seat: seat,
			Chips: p.Chips,
			Wager: p.Wager,
			Folded: p.Folded,
			AllIn: p.AllIn,
			SittingOut: p.SittingOut,
			Disconnected: p.Disconnected,
			HasCards: len(p.HoleCards) > 0,
		}
		if p.UserID == viewerID {
			pv.HoleCards = p.HoleCards
		} else if revealed, ok := revealedHole[p.UserID]; ok {
			pv.HoleCards = revealed
		}
		v.Players = append(v.Players, pv)
	}

	if t.CurrentActorSeat >= 0 {
		if actor := t.Seats[t.CurrentActorSeat]; actor != nil {
			v.CurrentActor = actor.UserID
			if actor.UserID == viewerID {
				v.ViewerActions = ValidActions(t.Round, actor)
				v.CallAmount = CallAmount(t.Round, actor)
				v.MinRaiseTarget = MinRaiseTarget(t.Round)
			}
			if now != nil {
				v.TimeRemaining, v.BankFunding = now()
			}
			v.ActorBankRemain = actor.TimeBankRemaining
		}
	}

	return v
}
