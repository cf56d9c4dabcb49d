// Package pot tracks per-player contributions for a hand, derives ordered
// side pots from all-in levels, and distributes winnings with the
// deterministic odd-chip remainder rule.
package pot

import "sort"

// SidePot is one pot in the ordered list derived from all-in levels: an
// amount plus the set of user ids eligible to contest it.
type SidePot struct {
	Amount int
	Eligible map[string]bool
}

// Pot aggregates contributions for the current hand.
type Pot struct {
	contributions map[string]int // user -> total contributed this hand
}

// New returns an empty Pot.
func New() *Pot {
	return &Pot{contributions: make(map[string]int)}
}

// AddContribution folds a betting round's wager into the hand-long
// contribution total for user. Callers zero the round wager themselves
// once this call returns.
func (p *Pot) AddContribution(user string, amount int) {
	if amount <= 0 {
		return
	}
	p.contributions[user] += amount
}

// Contribution returns how much user has put into the pot this hand.
func (p *Pot) Contribution(user string) int {
	return p.contributions[user]
}

// Total returns the sum of all contributions this hand.
func (p *Pot) Total() int {
	total := 0
	for _, amt := range p.contributions {
		total += amt
	}
	return total
}

// Reset clears all contributions for a new hand.
func (p *Pot) Reset() {
	p.contributions = make(map[string]int)
}

// SidePots derives the ordered list of side pots given the current
// contribution map and the set of all-in users with their final contributed
// total, via a level-by-level algorithm:
//
// Sort the all-in totals ascending; for each level L with previous level P,
// form a pot whose amount equals the sum, over still-eligible contributors,
// of min(contrib-P, L-P) (only counting positive amounts); its eligible set
// is the contributors whose total contribution is >= L. After all all-in
// levels are processed, any residual forms a final pot eligible only to
// players who contributed strictly more than the highest all-in.
func (p *Pot) SidePots(allInTotals map[string]int) []SidePot {
	if len(p.contributions) == 0 {
		return nil
	}

	levels := uniqueSortedLevels(allInTotals)

	contributors := make([]string, 0, len(p.contributions))
	for user := range p.contributions {
		contributors = append(contributors, user)
	}
	sort.Strings(contributors)

	var pots []SidePot
	prev := 0
	for _, level := range levels {
		amount := 0
		eligible := make(map[string]bool)
		for _, user := range contributors {
			contrib := p.contributions[user]
			if contrib <= prev {
				continue
			}
			share := contrib - prev
			if cap := level - prev; share > cap {
				share = cap
			}
			if share > 0 {
				amount += share
			}
			if contrib >= level {
				eligible[user] = true
			}
		}
		if amount > 0 {
			pots = append(pots, SidePot{Amount: amount, Eligible: eligible})
		}
		prev = level
	}

	// Residual pot: players who contributed strictly more than the highest
	// all-in level.
	residual := 0
	eligible := make(map[string]bool)
	for _, user := range contributors {
		contrib := p.contributions[user]
		if contrib > prev {
			residual += contrib - prev
			eligible[user] = true
		}
	}
	if residual > 0 {
		pots = append(pots, SidePot{Amount: residual, Eligible: eligible})
	}

	return pots
}

func uniqueSortedLevels(allInTotals map[string]int) []int {
	set := make(map[int]bool, len(allInTotals))
	for _, total := range allInTotals {
		if total > 0 {
			set[total] = true
		}
	}
	levels := make([]int, 0, len(set))
	for lvl := range set {
		levels = append(levels, lvl)
	}
	sort.Ints(levels)
	return levels
}
