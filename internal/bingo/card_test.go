package bingo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firaghost/YegnaBingoBot-sub002/internal/randutil"
)

func TestGenerateCardColumnBands(t *testing.T) {
	t.Parallel()
	rng := randutil.New(42)

	for i := 0; i < 100; i++ {
		card := GenerateCard(rng)
		seen := make(map[int]bool)
		for row := 0; row < CardSize; row++ {
			for col := 0; col < CardSize; col++ {
				v := card.Cell(row, col)
				if card.IsFree(row, col) {
					assert.Equal(t, FreeCell, v, "center must be free")
					continue
				}
				low := col*15 + 1
				assert.GreaterOrEqual(t, v, low, "column %d band floor", col)
				assert.LessOrEqual(t, v, low+14, "column %d band ceiling", col)
				assert.False(t, seen[v], "duplicate value %d", v)
				seen[v] = true
			}
		}
	}
}

func TestCardFreeCenterAlwaysMatched(t *testing.T) {
	t.Parallel()
	card := GenerateCard(randutil.New(1))

	matched, total := card.MatchCount(&NumberSet{})
	assert.Equal(t, 25, total)
	assert.Equal(t, 1, matched, "only the free center matches with nothing called")
	assert.True(t, card.Matched(2, 2, &NumberSet{}))
}

func TestCardMatchCount(t *testing.T) {
	t.Parallel()
	card := GenerateCard(randutil.New(7))

	called := &NumberSet{}
	for col := 0; col < CardSize; col++ {
		called.Add(card.Cell(0, col))
	}

	matched, _ := card.MatchCount(called)
	assert.Equal(t, 6, matched, "top row plus free center")
}

func TestCardContains(t *testing.T) {
	t.Parallel()
	card := GenerateCard(randutil.New(3))

	for _, v := range card.Numbers() {
		if v == FreeCell {
			continue
		}
		assert.True(t, card.Contains(v))
	}
	assert.False(t, card.Contains(0))
	assert.False(t, card.Contains(76))
}

func TestCardFromNumbersRoundTrip(t *testing.T) {
	t.Parallel()
	card := GenerateCard(randutil.New(11))

	rebuilt, err := CardFromNumbers(card.Numbers())
	require.NoError(t, err)
	assert.Equal(t, card.Numbers(), rebuilt.Numbers())
}

func TestCardFromNumbersRejectsBadGrids(t *testing.T) {
	t.Parallel()

	_, err := CardFromNumbers([]int{1, 2, 3})
	assert.Error(t, err, "short grid")

	card := GenerateCard(randutil.New(5))
	values := card.Numbers()
	values[0] = 40 // B column value from the N band
	_, err = CardFromNumbers(values)
	assert.Error(t, err, "band violation")

	values = card.Numbers()
	values[5] = values[10] // duplicate within the B column
	_, err = CardFromNumbers(values)
	assert.Error(t, err, "duplicate value")

	values = card.Numbers()
	values[12] = 33 // center must stay free
	_, err = CardFromNumbers(values)
	assert.Error(t, err, "occupied center")
}

func TestNumberSet(t *testing.T) {
	t.Parallel()
	s := SetOf(1, 75, 75, 0, 80)

	assert.True(t, s.Has(1))
	assert.True(t, s.Has(75))
	assert.False(t, s.Has(0))
	assert.False(t, s.Has(80))
	assert.Equal(t, 2, s.Len())
}
