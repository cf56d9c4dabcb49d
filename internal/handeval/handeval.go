// Package handeval evaluates Texas Hold'em hands: best 5-of-7 selection,
// category classification and tiebreak comparison producing tie groups.
package handeval

import (
	"sort"

	"github.com/lox/holdemcore/internal/cards"
)

// Category is the hand category, ordered weakest to strongest.
type Category int

const (
	HighCard Category = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

func (c Category) String() string {
	switch c {
	case HighCard:
		return "high_card"
	case Pair:
		return "pair"
	case TwoPair:
		return "two_pair"
	case ThreeOfAKind:
		return "three_of_a_kind"
	case Straight:
		return "straight"
	case Flush:
		return "flush"
	case FullHouse:
		return "full_house"
	case FourOfAKind:
		return "four_of_a_kind"
	case StraightFlush:
		return "straight_flush"
	case RoyalFlush:
		return "royal_flush"
	default:
		return "unknown"
	}
}

// HandResult is the outcome of evaluating the best five cards available to a
// player: a category plus an ordered tiebreak vector of rank values. Earlier
// entries in Tiebreak dominate later ones when comparing two results of the
// same category (e.g. for FullHouse: [tripsRank, pairRank]; for HighCard:
// the five ranks descending).
type HandResult struct {
	Category Category
	Tiebreak []cards.Rank
	Best [5]cards.Card
}

// Less reports whether h is a strictly weaker hand than other.
func (h HandResult) Less(other HandResult) bool {
	if h.Category != other.Category {
		return h.Category < other.Category
	}
	for i := 0; i < len(h.Tiebreak) && i < len(other.Tiebreak); i++ {
		if h.Tiebreak[i] != other.Tiebreak[i] {
			return h.Tiebreak[i] < other.Tiebreak[i]
		}
	}
	return false
}

// Equal reports equal category and equal tiebreak vector.
func (h HandResult) Equal(other HandResult) bool {
	if h.Category != other.Category || len(h.Tiebreak) != len(other.Tiebreak) {
		return false
	}
	for i := range h.Tiebreak {
		if h.Tiebreak[i] != other.Tiebreak[i] {
			return false
		}
	}
	return true
}

// Evaluate enumerates every 5-card subset of the supplied cards (hole plus
// 3-5 community) and retains the best by (category, tiebreaks) lexicographic
// order
func Evaluate(allCards []cards.Card) HandResult {
	var best HandResult
	haveBest := false
	forEachCombination(len(allCards), 5, func(idx []int) {
		hand := [5]cards.Card{
			allCards[idx[0]], allCards[idx[1]], allCards[idx[2]],
			allCards[idx[3]], allCards[idx[4]],
		}
		result := evaluate5(hand)
		if !haveBest || best.Less(result) {
			best = result
			haveBest = true
		}
	})
	return best
}

// forEachCombination calls fn with every k-length index combination of
// [0,n).
func forEachCombination(n, k int, fn func(idx []int)) {
	if k > n {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		fn(idx)
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

func evaluate5(hand [5]cards.Card) HandResult {
	ranks := make([]cards.Rank, 5)
	for i, c := range hand {
		ranks[i] = c.Rank
	}

	flush := isFlush(hand)
	straightHigh, isStraight := straightHigh(ranks)

	if flush && isStraight {
		cat := StraightFlush
		if straightHigh == cards.Ace {
			cat = RoyalFlush
		}
		return HandResult{Category: cat, Tiebreak: []cards.Rank{straightHigh}, Best: hand}
	}

	counts := rankCounts(ranks)
	groups := groupByCount(counts)

	switch {
	case len(groups[4]) > 0:
		kicker := highestExcluding(ranks, groups[4])
		return HandResult{Category: FourOfAKind, Tiebreak: append(append([]cards.Rank{}, groups[4]...), kicker), Best: hand}
	case len(groups[3]) > 0 && len(groups[2]) > 0:
		return HandResult{Category: FullHouse, Tiebreak: []cards.Rank{groups[3][0], groups[2][0]}, Best: hand}
	case flush:
		return HandResult{Category: Flush, Tiebreak: descending(ranks), Best: hand}
	case isStraight:
		return HandResult{Category: Straight, Tiebreak: []cards.Rank{straightHigh}, Best: hand}
	case len(groups[3]) > 0:
		kickers := highestNExcluding(ranks, groups[3], 2)
		return HandResult{Category: ThreeOfAKind, Tiebreak: append(append([]cards.Rank{}, groups[3]...), kickers...), Best: hand}
	case len(groups[2]) >= 2:
		pairs := groups[2]
		sort.Sort(sort.Reverse(rankSlice(pairs)))
		kicker := highestExcluding(ranks, pairs)
		tb := append([]cards.Rank{}, pairs[:2]...)
		tb = append(tb, kicker)
		return HandResult{Category: TwoPair, Tiebreak: tb, Best: hand}
	case len(groups[2]) == 1:
		kickers := highestNExcluding(ranks, groups[2], 3)
		return HandResult{Category: Pair, Tiebreak: append(append([]cards.Rank{}, groups[2]...), kickers...), Best: hand}
	default:
		return HandResult{Category: HighCard, Tiebreak: descending(ranks), Best: hand}
	}
}

func isFlush(hand [5]cards.Card) bool {
	suit := hand[0].Suit
	for _, c := range hand[1:] {
		if c.Suit != suit {
			return false
		}
	}
	return true
}

// straightHigh reports the high card of a straight, handling the wheel
// (A-2-3-4-5, high card 5)
func straightHigh(ranks []cards.Rank) (cards.Rank, bool) {
	uniq := uniqueSorted(ranks)
	if len(uniq) != 5 {
		return 0, false
	}
	if uniq[0] == cards.Two && uniq[1] == cards.Three && uniq[2] == cards.Four &&
		uniq[3] == cards.Five && uniq[4] == cards.Ace {
		return cards.Five, true
	}
	for i := 1; i < len(uniq); i++ {
		if uniq[i] != uniq[i-1]+1 {
			return 0, false
		}
	}
	return uniq[len(uniq)-1], true
}

func uniqueSorted(ranks []cards.Rank) []cards.Rank {
	set := make(map[cards.Rank]bool, len(ranks))
	for _, r := range ranks {
		set[r] = true
	}
	out := make([]cards.Rank, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Sort(rankSlice(out))
	return out
}

func rankCounts(ranks []cards.Rank) map[cards.Rank]int {
	counts := make(map[cards.Rank]int, 5)
	for _, r := range ranks {
		counts[r]++
	}
	return counts
}

// groupByCount maps a count (2,3,4) to the ranks achieving that count,
// descending by rank.
func groupByCount(counts map[cards.Rank]int) map[int][]cards.Rank {
	groups := map[int][]cards.Rank{2: {}, 3: {}, 4: {}}
	for rank, n := range counts {
		if n >= 2 {
			groups[n] = append(groups[n], rank)
		}
	}
	for _, g := range groups {
		sort.Sort(sort.Reverse(rankSlice(g)))
	}
	return groups
}

func descending(ranks []cards.Rank) []cards.Rank {
	out := append([]cards.Rank{}, ranks...)
	sort.Sort(sort.Reverse(rankSlice(out)))
	return out
}

func highestExcluding(ranks []cards.Rank, exclude []cards.Rank) cards.Rank {
	all := highestNExcluding(ranks, exclude, 1)
	if len(all) == 0 {
		return 0
	}
	return all[0]
}

func highestNExcluding(ranks []cards.Rank, exclude []cards.Rank, n int) []cards.Rank {
	excluded := make(map[cards.Rank]bool, len(exclude))
	for _, r := range exclude {
		excluded[r] = true
	}
	var remaining []cards.Rank
	for _, r := range ranks {
		if !excluded[r] {
			remaining = append(remaining, r)
		}
	}
	sort.Sort(sort.Reverse(rankSlice(remaining)))
	if len(remaining) > n {
		remaining = remaining[:n]
	}
	return remaining
}

type rankSlice []cards.Rank

func (s rankSlice) Len() int { return len(s) }
func (s rankSlice) Less(i, j int) bool { return s[i] < s[j] }
func (s rankSlice) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
