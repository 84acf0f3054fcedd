/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package taboo

import (
	"math/rand/v2"
	"time"
)

// Card is a secret word and the words the leader may not say while
// describing it.
type Card struct {
	Word  string   `yaml:"word" json:"word"`
	Taboo []string `yaml:"taboo" json:"taboo"`
}

// Deck hands out cards in a random order without repeating one until the
// whole pool has been shown.
type Deck struct {
	cards     []Card
	remaining []int        // indexes into cards not yet drawn this cycle
	cycle     int          // cards put back by the last refill
	last      int          // index of the most recently drawn card, -1 before the first draw
	rng       *rand.Rand
}

// NewDeck copies cards into a new deck. A nil rng gets a time-seeded source.
func NewDeck(cards []Card, rng *rand.Rand) (*Deck, error) {
	if len(cards) == 0 {
		return nil, ErrDeckExhausted
	}

	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}

	pool := make([]Card, len(cards))
	for i, c := range cards {
		pool[i] = Card{Word: c.Word, Taboo: append([]string(nil), c.Taboo...)}
	}

	d := &Deck{
		cards: pool,
		last: -1,
		rng:  rng,
	}
	d.refill()

	return d, nil
}

// refill puts every card back into the pool except the last one shown, so
// the first draw of a new cycle can never repeat the card before it. A
// single-card pool has no alternative and is refilled whole.
func (d *Deck) refill() {
	d.remaining = d.remaining[:0]

	for i := range d.cards {
		if i == d.last && len(d.cards) > 1 {
			continue
		}
		d.remaining = append(d.remaining, i)
	}
	d.cycle = len(d.remaining)
}

// Draw removes a uniformly chosen card from the remaining pool.
func (d *Deck) Draw() Card {
	if len(d.remaining) == 0 {
		d.refill()
	}

	n := d.rng.IntN(len(d.remaining))
	idx := d.remaining[n]

	last := len(d.remaining) - 1
	d.remaining[n] = d.remaining[last]
	d.remaining = d.remaining[:last]

	d.last = idx

	c := d.cards[idx]
	return Card{Word: c.Word, Taboo: append([]string(nil), c.Taboo...)}
}

// Size is the number of cards in the full pool.
func (d *Deck) Size() int {
	return len(d.cards)
}

// Remaining is the number of cards left before the next refill.
func (d *Deck) Remaining() int {
	return len(d.remaining)
}

// Shown reports how many cards have been drawn in the current cycle.
func (d *Deck) Shown() int {
	return d.cycle - len(d.remaining)
}
