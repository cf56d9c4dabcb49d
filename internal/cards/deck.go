package cards

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"
	mrand "math/rand"
)

// Deck is an ordered sequence of 52 distinct cards supporting shuffle,
// pop-front deal and pop-front-discard burn.
type Deck struct {
	cards [52]Card
	next int
	rng *mrand.Rand
}

// NewRNG returns a math/rand source seeded from a cryptographically secure
// random seed. Shuffling itself stays on math/rand's Fisher-Yates (the
// teacher's approach); only the seed is upgraded per the
// "cryptographically seeded PRNG" requirement.
func NewRNG() *mrand.Rand {
	var seedBytes [8]byte
	if _, err := rand.Read(seedBytes[:]); err != nil {
		// crypto/rand.Read on a supported platform does not fail; if it
		// somehow does, fall back to a big.Int-derived seed rather than a
		// fixed constant so shuffles still vary run to run.
		n, _ := rand.Int(rand.Reader, big.NewInt(1<<62))
		return mrand.New(mrand.NewSource(n.Int64()))
	}
	seed := int64(binary.LittleEndian.Uint64(seedBytes[:]))
	return mrand.New(mrand.NewSource(seed))
}

// NewDeck builds a fresh, shuffled 52-card deck using the supplied RNG. Tests
// pass a seeded *mrand.Rand for determinism; production callers pass NewRNG().
func NewDeck(rng *mrand.Rand) *Deck {
	d := &Deck{rng: rng}
	i := 0
	for suit := Clubs; suit <= Spades; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards[i] = New(rank, suit)
			i++
		}
	}
	d.Shuffle()
	return d
}

// Shuffle resets the deal pointer and reshuffles in place (Fisher-Yates).
func (d *Deck) Shuffle() {
	d.next = 0
	for i := len(d.cards) - 1; i > 0; i-- {
		var j int
		if d.rng != nil {
			j = d.rng.Intn(i + 1)
		} else {
			j = mrand.Intn(i + 1)
		}
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Reset rebuilds the deal pointer to the top of a freshly shuffled deck.
// Every new hand calls Reset ("Resets on new hand").
func (d *Deck) Reset() {
	d.Shuffle()
}

// Deal pops n cards from the front of the deck. Returns nil if n exceeds
// what remains.
func (d *Deck) Deal(n int) []Card {
	if d.next+n > len(d.cards) {
		return nil
	}
	out := make([]Card, n)
	copy(out, d.cards[d.next:d.next+n])
	d.next += n
	return out
}

// DealOne pops a single card from the front of the deck.
func (d *Deck) DealOne() (Card, bool) {
	if d.next >= len(d.cards) {
		return Card{}, false
	}
	c := d.cards[d.next]
	d.next++
	return c, true
}

// Burn discards one card without returning it.
func (d *Deck) Burn() {
	d.next++
}

// Remaining reports how many cards are left to deal.
func (d *Deck) Remaining() int {
	return len(d.cards) - d.next
}
