package bingo

import (
	"math/rand"

	"github.com/Seednode/bingobox/snapshot"
)

// CardSize is the number of squares on a card.
const CardSize = 25

// intN returns a uniform int in [0, n). Tests replace it to pin shuffles.
var intN = rand.Intn

// Shuffle returns a uniformly random permutation of items, leaving items
// untouched.
func Shuffle(items []string) []string {
	out := make([]string, len(items))
	copy(out, items)

	// Fisher-Yates
	for i := len(out) - 1; i > 0; i-- {
		j := intN(i + 1)
		out[i], out[j] = out[j], out[i]
	}

	return out
}

// DrawCard returns the first CardSize items of a fresh shuffle of pool. A pool
// smaller than CardSize yields a short card.
func DrawCard(pool []string) []string {
	card := Shuffle(pool)
	if len(card) > CardSize {
		card = card[:CardSize:CardSize]
	}

	return card
}

// DrawCards deals two independent cards, which may share items.
func DrawCards(pool []string) snapshot.Cards {
	return snapshot.Cards{
		Card1: DrawCard(pool),
		Card2: DrawCard(pool),
	}
}
