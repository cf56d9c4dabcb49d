package pot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allIn is a winnersOf stub for tests where every eligible
// contender is tied for the pot (used to isolate distribution arithmetic
// from hand evaluation).
func allIn(eligible map[string]bool) []string {
	out := make([]string, 0, len(eligible))
	for u := range eligible {
		out = append(out, u)
	}
	return out
}

func TestThreeWayChopRemainderBySeatOrder(t *testing.T) {
	p := New()
	p.AddContribution("a", 100)
	p.AddContribution("b", 100)
	p.AddContribution("c", 101)

	pots := []SidePot{{Amount: 301, Eligible: map[string]bool{"a": true, "b": true, "c": true}}}
	order := SeatOrder{Seat: map[string]int{"a": 0, "b": 1, "c": 2}, DealerSeat: 2, NumSeats: 3}

	awards := Distribute(pots, order, allIn)
	total := make(map[string]int)
	for _, a := range awards {
		total[a.User] = a.Amount
	}
	// First seat left of dealer (seat 2) is seat 0 ("a"), so "a" gets the
	// extra chip first.
	assert.Equal(t, 151, total["a"])
	assert.Equal(t, 150, total["b"])
	assert.Equal(t, 150, total["c"])
}

func TestScenarioAllInTriggersSinglePot(t *testing.T) {
	// Scenario 3: A(30) all-in, B(100) calls 30, C(100) calls 30.
	p := New()
	p.AddContribution("A", 30)
	p.AddContribution("B", 30)
	p.AddContribution("C", 30)

	allInTotals := map[string]int{"A": 30}
	pots := p.SidePots(allInTotals)
	require.Len(t, pots, 1)
	assert.Equal(t, 90, pots[0].Amount)
	assert.Equal(t, map[string]bool{"A": true, "B": true, "C": true}, pots[0].Eligible)
}

func TestScenarioSidePotWithResidual(t *testing.T) {
	// Scenario 4: A(30) all-in, B(60) all-in after A, C calls 60.
	p := New()
	p.AddContribution("A", 30)
	p.AddContribution("B", 60)
	p.AddContribution("C", 60)

	allInTotals := map[string]int{"A": 30, "B": 60}
	pots := p.SidePots(allInTotals)
	require.Len(t, pots, 2)

	assert.Equal(t, 90, pots[0].Amount)
	assert.Equal(t, map[string]bool{"A": true, "B": true, "C": true}, pots[0].Eligible)

	assert.Equal(t, 60, pots[1].Amount)
	assert.Equal(t, map[string]bool{"B": true, "C": true}, pots[1].Eligible)
}

func TestSidePotMonotonicEligibility(t *testing.T) {
	p := New()
	p.AddContribution("A", 10)
	p.AddContribution("B", 20)
	p.AddContribution("C", 30)
	pots := p.SidePots(map[string]int{"A": 10, "B": 20})

	require.Len(t, pots, 3)
	for i := 1; i < len(pots); i++ {
		for user := range pots[i].Eligible {
			assert.True(t, pots[i-1].Eligible[user], "eligibility sets must be non-increasing by inclusion")
		}
	}
}

func TestPotConservation(t *testing.T) {
	p := New()
	contribs := map[string]int{"A": 30, "B": 60, "C": 100}
	for user, amt := range contribs {
		p.AddContribution(user, amt)
	}
	pots := p.SidePots(map[string]int{"A": 30, "B": 60})
	sum := 0
	for _, sp := range pots {
		sum += sp.Amount
	}
	assert.Equal(t, p.Total(), sum)
}
