package bingo

import (
	"fmt"
	"strings"
)

// Pattern is a named arrangement of cells that constitutes a win when every
// cell in it is matched.
type Pattern struct {
	Name  string
	cells [][2]int // row, col pairs
}

// Satisfied reports whether every cell of the pattern is matched on the
// card against the called set. The free center counts as matched.
func (p Pattern) Satisfied(card *Card, called *NumberSet) bool {
	for _, cell := range p.cells {
		if !card.Matched(cell[0], cell[1], called) {
			return false
		}
	}
	return true
}

// Cells returns the row/col pairs the pattern covers.
func (p Pattern) Cells() [][2]int {
	out := make([][2]int, len(p.cells))
	copy(out, p.cells)
	return out
}

func rowPattern(row int) Pattern {
	p := Pattern{Name: fmt.Sprintf("row-%d", row+1)}
	for col := 0; col < CardSize; col++ {
		p.cells = append(p.cells, [2]int{row, col})
	}
	return p
}

func colPattern(col int) Pattern {
	p := Pattern{Name: fmt.Sprintf("col-%d", col+1)}
	for row := 0; row < CardSize; row++ {
		p.cells = append(p.cells, [2]int{row, col})
	}
	return p
}

func diagonalDown() Pattern {
	p := Pattern{Name: "diagonal-down"}
	for i := 0; i < CardSize; i++ {
		p.cells = append(p.cells, [2]int{i, i})
	}
	return p
}

func diagonalUp() Pattern {
	p := Pattern{Name: "diagonal-up"}
	for i := 0; i < CardSize; i++ {
		p.cells = append(p.cells, [2]int{CardSize - 1 - i, i})
	}
	return p
}

func fourCorners() Pattern {
	return Pattern{
		Name: "four-corners",
		cells: [][2]int{
			{0, 0}, {0, CardSize - 1},
			{CardSize - 1, 0}, {CardSize - 1, CardSize - 1},
		},
	}
}

func fullHouse() Pattern {
	p := Pattern{Name: "full-house"}
	for row := 0; row < CardSize; row++ {
		for col := 0; col < CardSize; col++ {
			p.cells = append(p.cells, [2]int{row, col})
		}
	}
	return p
}

// PatternSet is an ordered collection of recognized patterns. Evaluation
// order is fixed so outcomes are reproducible.
type PatternSet struct {
	patterns []Pattern
}

// DefaultPatterns returns the standard set: every row, every column and
// both diagonals.
func DefaultPatterns() *PatternSet {
	ps := &PatternSet{}
	for row := 0; row < CardSize; row++ {
		ps.patterns = append(ps.patterns, rowPattern(row))
	}
	for col := 0; col < CardSize; col++ {
		ps.patterns = append(ps.patterns, colPattern(col))
	}
	ps.patterns = append(ps.patterns, diagonalDown(), diagonalUp())
	return ps
}

// namedPatterns maps config names to pattern groups.
func namedPatterns(name string) ([]Pattern, bool) {
	switch strings.ToLower(name) {
	case "rows":
		out := make([]Pattern, 0, CardSize)
		for row := 0; row < CardSize; row++ {
			out = append(out, rowPattern(row))
		}
		return out, true
	case "columns", "cols":
		out := make([]Pattern, 0, CardSize)
		for col := 0; col < CardSize; col++ {
			out = append(out, colPattern(col))
		}
		return out, true
	case "diagonals":
		return []Pattern{diagonalDown(), diagonalUp()}, true
	case "four-corners", "corners":
		return []Pattern{fourCorners()}, true
	case "full-house", "blackout":
		return []Pattern{fullHouse()}, true
	default:
		return nil, false
	}
}

// PatternsByName builds a pattern set from config names. Unknown names are
// rejected rather than silently dropped.
func PatternsByName(names ...string) (*PatternSet, error) {
	if len(names) == 0 {
		return DefaultPatterns(), nil
	}
	ps := &PatternSet{}
	for _, name := range names {
		group, ok := namedPatterns(name)
		if !ok {
			return nil, fmt.Errorf("unknown pattern %q", name)
		}
		ps.patterns = append(ps.patterns, group...)
	}
	return ps, nil
}

// Evaluate returns the first satisfied pattern in set order, or false when
// the card has no winning arrangement yet.
func (ps *PatternSet) Evaluate(card *Card, called *NumberSet) (Pattern, bool) {
	for _, p := range ps.patterns {
		if p.Satisfied(card, called) {
			return p, true
		}
	}
	return Pattern{}, false
}

// Names lists the pattern names in evaluation order.
func (ps *PatternSet) Names() []string {
	out := make([]string, len(ps.patterns))
	for i, p := range ps.patterns {
		out[i] = p.Name
	}
	return out
}

// Len returns the number of patterns in the set.
func (ps *PatternSet) Len() int {
	return len(ps.patterns)
}
