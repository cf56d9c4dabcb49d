package hub

import (
	"github.com/lox/holdemcore/internal/protocol"
	"github.com/lox/holdemcore/internal/table"
)

// renderGameState projects a table.View (the engine's internal-facing
// snapshot) into protocol.GameStateMsg (the wire-facing frame): the table
// package never knows about the wire protocol, and the wire protocol never
// reaches into table internals directly.
func renderGameState(v table.View) protocol.GameStateMsg {
	players := make([]protocol.PlayerView, 0, len(v.Players))
	for _, p := range v.Players {
		players = append(players, protocol.PlayerView{
			UserID: p.UserID,
			Seat: p.Seat,
			Chips: p.Chips,
			Wager: p.Wager,
			Folded: p.Folded,
			AllIn: p.AllIn,
			SittingOut: p.SittingOut,
			Disconnected: p.Disconnected,
			HasCards: p.HasCards,
			HoleCards: p.HoleCards,
		})
	}

	actions := make([]string, 0, len(v.ViewerActions))
	for _, act := range v.ViewerActions {
		actions = append(actions, string(act))
	}

	return protocol.GameStateMsg{
		TableID: v.TableID,
		Stage: v.Stage.String(),
		HandNumber: v.HandNumber,
		DealerSeat: v.DealerSeat,
		SmallBlind: v.SmallBlind,
		BigBlind: v.BigBlind,
		PotTotal: v.PotTotal,
		Community: v.Community,
		MaxSeats: v.MaxSeats,
		Players: players,
		CurrentActor: v.CurrentActor,
		ViewerActions: actions,
		CallAmount: v.CallAmount,
		MinRaiseTarget: v.MinRaiseTarget,
		TurnSeconds: v.TurnSeconds,
		TimeRemaining: v.TimeRemaining,
		BankFunding: v.BankFunding,
		ActorBankRemain: v.ActorBankRemain,
	}
}
