package gobblet

import (
	"strconv"
	"strings"

	"github.com/rocketscienceinc/minigames-backend/internal/entity"
)

const (
	Size        = 3
	MaxStrength = 6
)

// Mark is signed so that a line of three equal marks sums to +3 or -3.
type Mark int

const (
	Empty Mark = 0
	X     Mark = -1
	O     Mark = 1
)

func (that Mark) String() string {
	switch that {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return "."
	}
}

// Cell is a board square; Strength 0 means empty.
type Cell struct {
	Mark     Mark `json:"mark"`
	Strength int  `json:"strength"`
}

func (that Cell) IsEmpty() bool {
	return that.Mark == Empty
}

func (that Cell) String() string {
	if that.IsEmpty() {
		return "."
	}
	return that.Mark.String() + strconv.Itoa(that.Strength)
}

// Board is indexed [y][x].
type Board [Size][Size]Cell

// WinLines are the rows, columns and both diagonals.
var WinLines = [][Size]entity.Coord{
	{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}},
	{{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 2, Y: 1}},
	{{X: 0, Y: 2}, {X: 1, Y: 2}, {X: 2, Y: 2}},
	{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: 2}},
	{{X: 1, Y: 0}, {X: 1, Y: 1}, {X: 1, Y: 2}},
	{{X: 2, Y: 0}, {X: 2, Y: 1}, {X: 2, Y: 2}},
	{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}},
	{{X: 2, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 2}},
}

func (that *Board) At(at entity.Coord) Cell {
	return that[at.Y][at.X]
}

func (that *Board) set(at entity.Coord, cell Cell) {
	that[at.Y][at.X] = cell
}

// Winner returns the mark owning a full line, or Empty.
func (that *Board) Winner() Mark {
	for _, line := range WinLines {
		sum := 0
		for _, at := range line {
			sum += int(that.At(at).Mark)
		}

		switch sum {
		case Size:
			return O
		case -Size:
			return X
		}
	}

	return Empty
}

func (that *Board) Full() bool {
	for _, row := range that {
		for _, cell := range row {
			if cell.IsEmpty() {
				return false
			}
		}
	}

	return true
}

func (that *Board) String() string {
	var sb strings.Builder

	for y, row := range that {
		if y > 0 {
			sb.WriteString("\n")
		}
		for x, cell := range row {
			if x > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(padCell(cell.String()))
		}
	}

	return sb.String()
}

func padCell(s string) string {
	if len(s) < 2 {
		return " " + s
	}
	return s
}

// Pool is a bit set of the strengths 1..6 a player still holds.
type Pool uint8

const FullPool Pool = 0b1111110

func (that Pool) Has(strength int) bool {
	return strength >= 1 && strength <= MaxStrength && that&(1<<strength) != 0
}

func (that Pool) With(strength int) Pool {
	return that | 1<<strength
}

func (that Pool) Without(strength int) Pool {
	return that &^ (1 << strength)
}

// Max is the available strength, 0 once the pool is exhausted.
func (that Pool) Max() int {
	for strength := MaxStrength; strength >= 1; strength-- {
		if that.Has(strength) {
			return strength
		}
	}

	return 0
}

func (that Pool) Values() []int {
	values := make([]int, 0, MaxStrength)
	for strength := 1; strength <= MaxStrength; strength++ {
		if that.Has(strength) {
			values = append(values, strength)
		}
	}

	return values
}
