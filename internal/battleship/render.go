package battleship

import (
	"strings"

	"github.com/rocketscienceinc/minigames-backend/internal/entity"
)

const setupInstructions = `Set up your board!
Select the two ends of each ship to place it. Select a lone end again to drop it.
You have a ship (4 long), a sailboat (3 long) and a canoe (2 long).
Ships cannot be diagonal and cannot overlap.`

const guide = `Cheatsheet:
S B C - your ship, sailboat and canoe
* - one of your ships was hit
o - the enemy missed
X - you hit an enemy ship
~ - you missed
. - nothing known yet
If you accidentally dismissed your board, reopen it. Note that it invalidates your previous board.`

// Render shows viewer's fleet with the enemy's shots, next to viewer's own
// shots at the enemy. Both halves read the same ledgers.
func (that *Game) Render(viewer entity.Player) string {
	side, err := that.Side(viewer)
	if err != nil {
		return ""
	}

	enemy := that.enemyOf(side)

	var sb strings.Builder
	sb.WriteString("Your fleet   Enemy waters\n")

	for y := range Size {
		for x := range Size {
			sb.WriteString(fleetCell(side, entity.Coord{X: x, Y: y}))
			if x < Size-1 {
				sb.WriteByte(' ')
			}
		}

		sb.WriteString("    ")

		for x := range Size {
			sb.WriteString(watersCell(enemy.incoming.At(entity.Coord{X: x, Y: y})))
			if x < Size-1 {
				sb.WriteByte(' ')
			}
		}

		if y < Size-1 {
			sb.WriteByte('\n')
		}
	}

	return sb.String()
}

func fleetCell(side *Side, at entity.Coord) string {
	switch side.incoming.At(at) {
	case Hit:
		return "*"
	case Miss:
		return "o"
	}

	if name, ok := side.ShipAt(at); ok {
		ship, _ := shipNamed(name)
		return ship.Symbol
	}

	return "."
}

func watersCell(shot Shot) string {
	switch shot {
	case Hit:
		return "X"
	case Miss:
		return "~"
	default:
		return "."
	}
}

func renderSetup(setup *Setup) string {
	anchor, anchored := setup.Anchor()

	var sb strings.Builder
	for y := range Size {
		for x := range Size {
			at := entity.Coord{X: x, Y: y}

			switch name, ok := setup.occupied(at); {
			case ok:
				ship, _ := shipNamed(name)
				sb.WriteString(ship.Symbol)
			case anchored && anchor == at:
				sb.WriteByte('+')
			default:
				sb.WriteByte('.')
			}

			if x < Size-1 {
				sb.WriteByte(' ')
			}
		}

		if y < Size-1 {
			sb.WriteByte('\n')
		}
	}

	return sb.String()
}
