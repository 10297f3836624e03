// Package bingo implements the number-bingo domain: cards, the draw pool,
// winning patterns and prize arithmetic. It has no knowledge of sessions,
// rooms or transports.
package bingo

import (
	"fmt"
	rand "math/rand/v2"
	"strings"
)

const (
	// CardSize is the width and height of a card grid.
	CardSize = 5

	// MaxNumber is the highest callable number.
	MaxNumber = 75

	// FreeCell marks the permanently matched center cell.
	FreeCell = 0

	bandWidth = MaxNumber / CardSize // 15 numbers per column band
)

// Card is a 5x5 grid of numbers. Each column draws from a fixed band
// (B 1-15, I 16-30, N 31-45, G 46-60, O 61-75) and the center cell is
// free. Cells are addressed as [row][col].
type Card struct {
	cells [CardSize][CardSize]int
}

// GenerateCard produces a card honoring the column bands with no duplicate
// values and a free center. The rng only shapes card layout, never draws,
// so a seeded source is fine here.
func GenerateCard(rng *rand.Rand) *Card {
	var c Card
	for col := 0; col < CardSize; col++ {
		low := col*bandWidth + 1
		perm := rng.Perm(bandWidth)
		for row := 0; row < CardSize; row++ {
			c.cells[row][col] = low + perm[row]
		}
	}
	c.cells[CardSize/2][CardSize/2] = FreeCell
	return &c
}

// Cell returns the value at the given row and column. The center cell
// returns FreeCell.
func (c *Card) Cell(row, col int) int {
	return c.cells[row][col]
}

// IsFree reports whether the cell at row, col is the free center.
func (c *Card) IsFree(row, col int) bool {
	return row == CardSize/2 && col == CardSize/2
}

// Contains reports whether the card carries the given number.
func (c *Card) Contains(n int) bool {
	if n < 1 || n > MaxNumber {
		return false
	}
	col := (n - 1) / bandWidth
	for row := 0; row < CardSize; row++ {
		if c.cells[row][col] == n {
			return true
		}
	}
	return false
}

// Matched reports whether the cell at row, col counts as matched against
// the called set. The free center always matches.
func (c *Card) Matched(row, col int, called *NumberSet) bool {
	if c.IsFree(row, col) {
		return true
	}
	return called.Has(c.cells[row][col])
}

// MatchCount returns how many of the 25 cells are matched against the
// called set, counting the free center, and the cell total.
func (c *Card) MatchCount(called *NumberSet) (matched, total int) {
	for row := 0; row < CardSize; row++ {
		for col := 0; col < CardSize; col++ {
			if c.Matched(row, col, called) {
				matched++
			}
		}
	}
	return matched, CardSize * CardSize
}

// Numbers returns the card values in row-major order, FreeCell included.
func (c *Card) Numbers() []int {
	out := make([]int, 0, CardSize*CardSize)
	for row := 0; row < CardSize; row++ {
		out = append(out, c.cells[row][:]...)
	}
	return out
}

// CardFromNumbers rebuilds a card from a row-major slice as produced by
// Numbers. It rejects grids that violate the column bands or repeat a value.
func CardFromNumbers(values []int) (*Card, error) {
	if len(values) != CardSize*CardSize {
		return nil, fmt.Errorf("card requires %d values, got %d", CardSize*CardSize, len(values))
	}
	var c Card
	seen := make(map[int]bool, CardSize*CardSize)
	for i, v := range values {
		row, col := i/CardSize, i%CardSize
		if row == CardSize/2 && col == CardSize/2 {
			if v != FreeCell {
				return nil, fmt.Errorf("center cell must be free, got %d", v)
			}
			c.cells[row][col] = FreeCell
			continue
		}
		low := col*bandWidth + 1
		if v < low || v >= low+bandWidth {
			return nil, fmt.Errorf("value %d outside band [%d,%d] for column %d", v, low, low+bandWidth-1, col)
		}
		if seen[v] {
			return nil, fmt.Errorf("duplicate value %d", v)
		}
		seen[v] = true
		c.cells[row][col] = v
	}
	return &c, nil
}

// String renders the grid for logs and debugging.
func (c *Card) String() string {
	var b strings.Builder
	for row := 0; row < CardSize; row++ {
		for col := 0; col < CardSize; col++ {
			if col > 0 {
				b.WriteByte(' ')
			}
			if c.IsFree(row, col) {
				b.WriteString(" *")
			} else {
				fmt.Fprintf(&b, "%2d", c.cells[row][col])
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// NumberSet tracks which of the 1-75 numbers have been called.
type NumberSet struct {
	has [MaxNumber + 1]bool
}

// Add marks a number as called. Out-of-range values are ignored.
func (s *NumberSet) Add(n int) {
	if n >= 1 && n <= MaxNumber {
		s.has[n] = true
	}
}

// Has reports whether the number has been called.
func (s *NumberSet) Has(n int) bool {
	return n >= 1 && n <= MaxNumber && s.has[n]
}

// Len returns how many numbers are in the set.
func (s *NumberSet) Len() int {
	count := 0
	for n := 1; n <= MaxNumber; n++ {
		if s.has[n] {
			count++
		}
	}
	return count
}

// SetOf builds a NumberSet from the given numbers.
func SetOf(numbers ...int) *NumberSet {
	var s NumberSet
	for _, n := range numbers {
		s.Add(n)
	}
	return &s
}
