package battleship

import (
	"fmt"

	"github.com/rocketscienceinc/minigames-backend/internal/apperror"
	"github.com/rocketscienceinc/minigames-backend/internal/entity"
)

// Shot is the outcome of firing at one cell.
type Shot int

const (
	Unfired Shot = iota
	Hit
	Miss
)

func (that Shot) String() string {
	switch that {
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	default:
		return "unfired"
	}
}

// Ledger records every shot fired at one board. Each entry is written once
// and is the single fact both players read: the owner as what the enemy hit,
// the shooter as its own bombardment record.
type Ledger struct {
	shots [Size * Size]Shot
	hits  int
}

func index(at entity.Coord) int {
	return at.Y*Size + at.X
}

func (that *Ledger) At(at entity.Coord) Shot {
	return that.shots[index(at)]
}

// Record stores the outcome of a shot. A cell can only be fired upon once.
func (that *Ledger) Record(at entity.Coord, shot Shot) error {
	if !at.In(Size) {
		return fmt.Errorf("%w: %s", apperror.ErrInvalidCell, at)
	}

	if shot == Unfired {
		return fmt.Errorf("%w: cannot record an unfired shot", apperror.ErrInvariant)
	}

	i := index(at)
	if that.shots[i] != Unfired {
		return fmt.Errorf("%w: %s", apperror.ErrAlreadyFired, at)
	}

	that.shots[i] = shot
	if shot == Hit {
		that.hits++
	}

	return nil
}

func (that *Ledger) Hits() int {
	return that.hits
}
