package pot

import "sort"

// SeatOrder maps a user id to its seat index, used to resolve the odd-chip
// remainder rule: the remainder is distributed one chip each, in ascending
// order of seat index starting from the first seat left of the dealer.
type SeatOrder struct {
	Seat map[string]int
	DealerSeat int
	NumSeats int
}

// orderFromDealer returns winners ordered by seat distance clockwise from
// the seat immediately left of the dealer.
func (o SeatOrder) orderFromDealer(winners []string) []string {
	ordered := append([]string{}, winners...)
	sort.Slice(ordered, func(i, j int) bool {
		return o.distanceFromDealer(ordered[i]) < o.distanceFromDealer(ordered[j])
	})
	return ordered
}

func (o SeatOrder) distanceFromDealer(user string) int {
	if o.NumSeats <= 0 {
		return o.Seat[user]
	}
	seat := o.Seat[user]
	first := (o.DealerSeat + 1) % o.NumSeats
	d := seat - first
	if d < 0 {
		d += o.NumSeats
	}
	return d
}

// Award is one winner's settlement: the user id and the total chip amount
// that user receives across every pot passed to Distribute.
type Award struct {
	User string
	Amount int
}

// Distribute splits each side pot among the best tie group of its eligible,
// non-folded showdown contenders. winnersOf must return, for a given set of
// eligible user ids, the user ids of the best tie group among those users —
// typically the first group of handeval.CompareAll restricted to the pot's
// eligible set.
//
// Each pot's amount is split by integer division among the winning group;
// the remainder is distributed one chip each in ascending seat order from
// the first seat left of the dealer.
func Distribute(pots []SidePot, order SeatOrder, winnersOf func(eligible map[string]bool) []string) []Award {
	totals := make(map[string]int)
	var order_ []string // preserve first-seen order for stable output

	for _, sp := range pots {
		if sp.Amount <= 0 || len(sp.Eligible) == 0 {
			continue
		}
		winners := winnersOf(sp.Eligible)
		if len(winners) == 0 {
			continue
		}
		winners = order.orderFromDealer(winners)

		share := sp.Amount / len(winners)
		remainder := sp.Amount % len(winners)

		for i, user := range winners {
			amount := share
			if i < remainder {
				amount++
			}
			if _, seen := totals[user]; !seen {
				order_ = append(order_, user)
			}
			totals[user] += amount
		}
	}

	awards := make([]Award, 0, len(totals))
	for _, user := range order_ {
		awards = append(awards, Award{User: user, Amount: totals[user]})
	}
	return awards
}
