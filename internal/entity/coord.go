package entity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMalformedCoord = errors.New("malformed coordinate")

// Coord is a grid position, X is the column and Y the row.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// In reports whether the coordinate lies on a size x size grid.
func (that Coord) In(size int) bool {
	return that.X >= 0 && that.X < size && that.Y >= 0 && that.Y < size
}

func (that Coord) String() string {
	return fmt.Sprintf("%d,%d", that.X, that.Y)
}

// ParseCoord - parses the "x,y" form produced by Coord.String.
func ParseCoord(value string) (Coord, error) {
	xs, ys, ok := strings.Cut(value, ",")
	if !ok {
		return Coord{}, fmt.Errorf("%w: %q", ErrMalformedCoord, value)
	}

	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return Coord{}, fmt.Errorf("%w: %q", ErrMalformedCoord, value)
	}

	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return Coord{}, fmt.Errorf("%w: %q", ErrMalformedCoord, value)
	}

	return Coord{X: x, Y: y}, nil
}
