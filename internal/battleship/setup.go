package battleship

import (
	"fmt"

	"github.com/rocketscienceinc/minigames-backend/internal/apperror"
	"github.com/rocketscienceinc/minigames-backend/internal/entity"
)

const Size = 5

// Ship is one of the three fixed-length pieces every player places.
type Ship struct {
	Name   string
	Length int
	Symbol string
}

var Fleet = []Ship{
	{Name: "ship", Length: 4, Symbol: "S"},
	{Name: "sailboat", Length: 3, Symbol: "B"},
	{Name: "canoe", Length: 2, Symbol: "C"},
}

// ShipCells is the number of cells the whole fleet covers.
var ShipCells = func() int {
	total := 0
	for _, ship := range Fleet {
		total += ship.Length
	}
	return total
}()

func shipOfLength(length int) (Ship, bool) {
	for _, ship := range Fleet {
		if ship.Length == length {
			return ship, true
		}
	}

	return Ship{}, false
}

func shipNamed(name string) (Ship, bool) {
	for _, ship := range Fleet {
		if ship.Name == name {
			return ship, true
		}
	}

	return Ship{}, false
}

// Placement is one committed ship cell.
type Placement struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Ship string `json:"ship"`
}

// Setup is one player's ship placement in progress. A ship is placed by
// selecting both of its ends; selecting the anchor again drops it.
type Setup struct {
	anchor     *entity.Coord
	placements []Placement
	taken      map[int]bool
}

func NewSetup() *Setup {
	return &Setup{taken: make(map[int]bool)}
}

func (that *Setup) Anchor() (entity.Coord, bool) {
	if that.anchor == nil {
		return entity.Coord{}, false
	}
	return *that.anchor, true
}

func (that *Setup) Placements() []Placement {
	out := make([]Placement, len(that.placements))
	copy(out, that.placements)
	return out
}

// Done reports whether the whole fleet is placed.
func (that *Setup) Done() bool {
	return len(that.placements) == ShipCells
}

func (that *Setup) occupied(at entity.Coord) (string, bool) {
	for _, p := range that.placements {
		if p.X == at.X && p.Y == at.Y {
			return p.Ship, true
		}
	}

	return "", false
}

// span is the ship between the anchor and at, if it is a straight line.
func (that *Setup) span(at entity.Coord) (start entity.Coord, dx, dy, length int, err error) {
	from := *that.anchor

	switch {
	case from.X != at.X && from.Y != at.Y:
		return start, 0, 0, 0, apperror.ErrDiagonalShip
	case from.X != at.X:
		return entity.Coord{X: min(from.X, at.X), Y: at.Y}, 1, 0, abs(from.X-at.X) + 1, nil
	default:
		return entity.Coord{X: at.X, Y: min(from.Y, at.Y)}, 0, 1, abs(from.Y-at.Y) + 1, nil
	}
}

// Check validates selecting at without changing anything.
func (that *Setup) Check(at entity.Coord) error {
	if that.Done() {
		return apperror.ErrSetupDone
	}

	if !at.In(Size) {
		return fmt.Errorf("%w: %s", apperror.ErrInvalidCell, at)
	}

	if _, ok := that.occupied(at); ok {
		return fmt.Errorf("%w: %s already holds a ship", apperror.ErrShipBlocked, at)
	}

	if that.anchor == nil || *that.anchor == at {
		return nil
	}

	start, dx, dy, length, err := that.span(at)
	if err != nil {
		return err
	}

	if _, ok := shipOfLength(length); !ok {
		return fmt.Errorf("%w: got %d", apperror.ErrShipSize, length)
	}

	if that.taken[length] {
		return fmt.Errorf("%w: %d units long", apperror.ErrShipTaken, length)
	}

	if !that.canPlace(start, dx, dy, length) {
		return apperror.ErrShipBlocked
	}

	return nil
}

func (that *Setup) canPlace(at entity.Coord, dx, dy, length int) bool {
	for range length {
		if !at.In(Size) {
			return false
		}

		if _, ok := that.occupied(at); ok {
			return false
		}

		at.X += dx
		at.Y += dy
	}

	return true
}

// PlaceAt applies a selection. It returns the ship when the selection
// completed one.
func (that *Setup) PlaceAt(at entity.Coord) (*Ship, error) {
	if err := that.Check(at); err != nil {
		return nil, err
	}

	switch {
	case that.anchor == nil:
		that.anchor = &at
		return nil, nil
	case *that.anchor == at:
		that.anchor = nil
		return nil, nil
	}

	start, dx, dy, length, _ := that.span(at)
	ship, _ := shipOfLength(length)

	for range length {
		that.placements = append(that.placements, Placement{X: start.X, Y: start.Y, Ship: ship.Name})
		start.X += dx
		start.Y += dy
	}

	that.taken[length] = true
	that.anchor = nil

	return &ship, nil
}

// verifyPlacements checks a finished fleet: every ship once, straight,
// contiguous, in bounds and not overlapping.
func verifyPlacements(placements []Placement) error {
	if len(placements) != ShipCells {
		return fmt.Errorf("%w: %d ship cells placed, want %d", apperror.ErrInvariant, len(placements), ShipCells)
	}

	cells := make(map[string][]entity.Coord)
	seen := make(map[entity.Coord]bool)

	for _, p := range placements {
		at := entity.Coord{X: p.X, Y: p.Y}
		if !at.In(Size) || seen[at] {
			return fmt.Errorf("%w: bad placement at %s", apperror.ErrInvariant, at)
		}
		seen[at] = true
		cells[p.Ship] = append(cells[p.Ship], at)
	}

	for _, ship := range Fleet {
		if !isLine(cells[ship.Name], ship.Length) {
			return fmt.Errorf("%w: %s is not a straight line of %d", apperror.ErrInvariant, ship.Name, ship.Length)
		}
	}

	return nil
}

func isLine(cells []entity.Coord, length int) bool {
	if len(cells) != length {
		return false
	}

	minX, minY, maxX, maxY := Size, Size, -1, -1
	for _, at := range cells {
		minX, minY = min(minX, at.X), min(minY, at.Y)
		maxX, maxY = max(maxX, at.X), max(maxY, at.Y)
	}

	horizontal := minY == maxY && maxX-minX+1 == length
	vertical := minX == maxX && maxY-minY+1 == length

	return horizontal || vertical
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
