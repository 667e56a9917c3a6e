package bingo

import (
	"slices"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func songs(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "song-" + strconv.Itoa(i)
	}
	return out
}

// pinIntN replaces the random source for the duration of the test.
func pinIntN(t *testing.T, fn func(n int) int) {
	t.Helper()
	orig := intN
	intN = fn
	t.Cleanup(func() { intN = orig })
}

func TestShuffleDoesNotMutateInput(t *testing.T) {
	in := songs(40)
	orig := slices.Clone(in)

	out := Shuffle(in)

	assert.Equal(t, orig, in)
	require.Len(t, out, len(in))

	sorted := slices.Clone(out)
	slices.Sort(sorted)
	want := slices.Clone(orig)
	slices.Sort(want)
	assert.Equal(t, want, sorted, "shuffle must be a permutation")
}

func TestShuffleWalksFromLastIndexDown(t *testing.T) {
	var bounds []int
	pinIntN(t, func(n int) int {
		bounds = append(bounds, n)
		return 0
	})

	out := Shuffle([]string{"a", "b", "c", "d"})

	assert.Equal(t, []int{4, 3, 2}, bounds)
	assert.Equal(t, []string{"b", "c", "d", "a"}, out)
}

func TestShuffleEmpty(t *testing.T) {
	out := Shuffle(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestDrawCardSize(t *testing.T) {
	cases := []struct {
		name string
		pool int
		want int
	}{
		{name: "large pool", pool: 80, want: CardSize},
		{name: "exact pool", pool: 25, want: CardSize},
		{name: "short pool", pool: 10, want: 10},
		{name: "single song", pool: 1, want: 1},
		{name: "empty pool", pool: 0, want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			card := DrawCard(songs(tc.pool))
			assert.Len(t, card, tc.want)

			seen := make(map[string]bool)
			for _, item := range card {
				assert.False(t, seen[item], "duplicate %q on one card", item)
				seen[item] = true
			}
		})
	}
}

func TestDrawCardsAreIndependent(t *testing.T) {
	calls := 0
	pinIntN(t, func(n int) int {
		calls++
		return calls % n
	})

	pool := songs(30)
	cards := DrawCards(pool)

	assert.Len(t, cards.Card1, CardSize)
	assert.Len(t, cards.Card2, CardSize)
	assert.Equal(t, 2*(len(pool)-1), calls, "each card gets its own shuffle")
	assert.NotEqual(t, cards.Card1, cards.Card2)
}
