package handeval

import "sort"

// Ranked pairs a participant id with their evaluated hand.
type Ranked[ID comparable] struct {
	ID ID
	Result HandResult
}

// CompareAll groups a set of evaluated hands into ordered tie groups: group 0
// is the best hand(s) (tied together), group 1 the next best, and so on.
func CompareAll[ID comparable](entries []Ranked[ID]) [][]ID {
	sorted := append([]Ranked[ID]{}, entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[j].Result.Less(sorted[i].Result) // descending
	})

	var groups [][]ID
	for i := 0; i < len(sorted); {
		j := i + 1
		for j < len(sorted) && sorted[j].Result.Equal(sorted[i].Result) {
			j++
		}
		group := make([]ID, 0, j-i)
		for _, e := range sorted[i:j] {
			group = append(group, e.ID)
		}
		groups = append(groups, group)
		i = j
	}
	return groups
}
