package battleship

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/minigames-backend/internal/apperror"
	"github.com/rocketscienceinc/minigames-backend/internal/entity"
)

var (
	alice = entity.Player{ID: "1", Name: "alice"}
	bob   = entity.Player{ID: "2", Name: "bob"}
	carol = entity.Player{ID: "3", Name: "carol"}
)

// fleet: ship on row 0, sailboat on row 2, canoe on row 4.
var fleet = [][2]entity.Coord{
	{at(0, 0), at(3, 0)},
	{at(0, 2), at(2, 2)},
	{at(0, 4), at(1, 4)},
}

var fleetCells = []entity.Coord{
	at(0, 0), at(1, 0), at(2, 0), at(3, 0),
	at(0, 2), at(1, 2), at(2, 2),
	at(0, 4), at(1, 4),
}

var openWater = []entity.Coord{
	at(0, 1), at(1, 1), at(2, 1), at(3, 1), at(4, 1),
	at(0, 3), at(1, 3), at(2, 3), at(3, 3), at(4, 3),
}

func setUp(t *testing.T, game *Game, player entity.Player) {
	t.Helper()

	_, err := game.Ready(player)
	require.NoError(t, err)

	for _, ends := range fleet {
		_, err = game.PlaceAt(player, ends[0])
		require.NoError(t, err)
		_, err = game.PlaceAt(player, ends[1])
		require.NoError(t, err)
	}
}

func started(t *testing.T) *Game {
	t.Helper()

	game := New(alice, bob)
	setUp(t, game, alice)
	setUp(t, game, bob)
	require.Equal(t, PhaseInProgress, game.Phase())

	return game
}

func fire(t *testing.T, game *Game, player entity.Player, cell entity.Coord) string {
	t.Helper()

	notices, err := game.Fire(player, cell)
	require.NoError(t, err)
	require.NotEmpty(t, notices)

	return notices[0].Message
}

func TestGame_Setup(t *testing.T) {
	t.Run("Placement needs the ready button first", func(t *testing.T) {
		// Given: a new game
		game := New(alice, bob)

		// When: alice selects a cell before pressing ready
		_, err := game.PlaceAt(alice, at(0, 0))

		// Then: ErrGameIsNotStarted is returned
		assert.ErrorIs(t, err, apperror.ErrGameIsNotStarted)
	})

	t.Run("Ready twice is rejected", func(t *testing.T) {
		game := New(alice, bob)
		_, err := game.Ready(alice)
		require.NoError(t, err)

		_, err = game.Ready(alice)
		assert.ErrorIs(t, err, apperror.ErrSetupDone)
	})

	t.Run("Firing before the enemy is ready is rejected", func(t *testing.T) {
		// Given: only alice placed her fleet
		game := New(alice, bob)
		setUp(t, game, alice)

		// When: alice fires
		_, err := game.Fire(alice, at(0, 0))

		// Then: ErrNotReady is returned and the game is still in setup
		assert.ErrorIs(t, err, apperror.ErrNotReady)
		assert.Equal(t, PhaseSetup, game.Phase())
		assert.Equal(t, SideReady, game.sides[0].State)
		assert.Equal(t, SideUnready, game.sides[1].State)
	})

	t.Run("Both fleets start the game", func(t *testing.T) {
		// Given: alice is ready
		game := New(alice, bob)
		setUp(t, game, alice)

		// When: bob places his last ship
		_, err := game.Ready(bob)
		require.NoError(t, err)
		for _, ends := range fleet[:2] {
			_, err = game.PlaceAt(bob, ends[0])
			require.NoError(t, err)
			_, err = game.PlaceAt(bob, ends[1])
			require.NoError(t, err)
		}
		_, err = game.PlaceAt(bob, fleet[2][0])
		require.NoError(t, err)
		notices, err := game.PlaceAt(bob, fleet[2][1])

		// Then: both are told the game is in progress and alice fires first
		require.NoError(t, err)
		require.Len(t, notices, 2)
		assert.Contains(t, notices[0].Message, "You go second!")
		assert.ElementsMatch(t, []entity.Player{alice, bob}, notices[1].To)
		assert.Contains(t, notices[1].Message, "Cheatsheet")
		assert.Equal(t, PhaseInProgress, game.Phase())
		assert.Equal(t, alice, game.Current().Player)

		for _, cell := range fleetCells {
			name, ok := game.sides[1].ShipAt(cell)
			assert.True(t, ok, cell.String())
			assert.NotEmpty(t, name)
		}
	})
}

func TestGame_Fire(t *testing.T) {
	t.Run("Turn passes on hit and on miss", func(t *testing.T) {
		// Given: a started game
		game := started(t)

		// When: alice hits and bob misses
		hit := fire(t, game, alice, at(0, 0))
		miss := fire(t, game, bob, at(4, 4))

		// Then: both shots pass the turn
		assert.Contains(t, hit, "hit")
		assert.Contains(t, miss, "miss")
		assert.Equal(t, alice, game.Current().Player)
	})

	t.Run("Both views read the same fact", func(t *testing.T) {
		// Given: a started game
		game := started(t)

		// When: alice hits bob's ship and bob misses
		fire(t, game, alice, at(2, 0))
		fire(t, game, bob, at(4, 4))

		// Then: the owner sees the incoming shot and the shooter sees the result
		bobView, err := game.CellView(bob, at(2, 0))
		require.NoError(t, err)
		aliceView, err := game.CellView(alice, at(2, 0))
		require.NoError(t, err)

		assert.Equal(t, Hit, bobView.Incoming)
		assert.Equal(t, "ship", bobView.Ship)
		assert.Equal(t, Hit, aliceView.FireResult)
		assert.Equal(t, Unfired, aliceView.Incoming)

		aliceView, err = game.CellView(alice, at(4, 4))
		require.NoError(t, err)
		bobView, err = game.CellView(bob, at(4, 4))
		require.NoError(t, err)

		assert.Equal(t, Miss, aliceView.Incoming)
		assert.Equal(t, Miss, bobView.FireResult)
	})

	t.Run("Rejected shots change nothing", func(t *testing.T) {
		// Given: alice fired at the corner
		game := started(t)
		fire(t, game, alice, at(0, 0))
		fire(t, game, bob, at(4, 4))

		tests := []struct {
			name    string
			player  entity.Player
			cell    entity.Coord
			wantErr error
		}{
			{name: "same cell", player: alice, cell: at(0, 0), wantErr: apperror.ErrAlreadyFired},
			{name: "out of bounds", player: alice, cell: at(5, 5), wantErr: apperror.ErrInvalidCell},
			{name: "not your turn", player: bob, cell: at(1, 1), wantErr: apperror.ErrNotYourTurn},
			{name: "outsider", player: carol, cell: at(1, 1), wantErr: apperror.ErrNotParticipant},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				// When: the shot is fired
				_, err := game.Fire(tt.player, tt.cell)

				// Then: it is rejected and it is still alice's turn
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, alice, game.Current().Player)
				assert.Equal(t, 2, game.shots)
			})
		}
	})

	t.Run("Sinking a ship is announced to both", func(t *testing.T) {
		// Given: alice hit one end of bob's canoe
		game := started(t)
		fire(t, game, alice, at(0, 4))
		fire(t, game, bob, at(4, 4))

		// When: alice hits the other end
		notices, err := game.Fire(alice, at(1, 4))

		// Then: the shooter and the owner are told
		require.NoError(t, err)
		require.Len(t, notices, 2)
		assert.Contains(t, notices[0].Message, "You sunk their canoe!")
		assert.Equal(t, []entity.Player{bob}, notices[1].To)
		assert.Contains(t, notices[1].Message, "Your canoe was sunk :(")
	})

	t.Run("Last ship cell wins", func(t *testing.T) {
		// Given: a started game where bob only misses
		game := started(t)

		var notices []string
		for i, cell := range fleetCells {
			if i == len(fleetCells)-1 {
				break
			}
			fire(t, game, alice, cell)
			fire(t, game, bob, openWater[i])
		}

		// When: alice hits the last cell
		final, err := game.Fire(alice, fleetCells[len(fleetCells)-1])
		require.NoError(t, err)
		for _, notice := range final {
			notices = append(notices, notice.Message)
		}

		// Then: alice wins and no more prompts are open
		assert.Equal(t, []string{
			"You win!\n\nYou sunk their canoe!",
			"You lose :(\n\nYour canoe was sunk :(",
			"alice wins this game of Battleship! Congratulations.",
		}, notices)
		assert.Equal(t, PhaseFinished, game.Phase())

		outcome, ok := game.Terminal()
		require.True(t, ok)
		require.NotNil(t, outcome.Winner)
		assert.Equal(t, alice, *outcome.Winner)
		assert.Empty(t, game.Prompts())

		_, err = game.Fire(bob, at(4, 4))
		assert.ErrorIs(t, err, apperror.ErrGameFinished)
	})

	t.Run("Hit on open water is an invariant violation", func(t *testing.T) {
		// Given: a corrupted ledger claiming a hit on open water
		game := started(t)
		game.sides[1].incoming.shots[index(at(4, 4))] = Hit
		game.sides[1].incoming.hits++

		// When: alice fires
		_, err := game.Fire(alice, at(0, 0))

		// Then: ErrInvariant is returned
		assert.ErrorIs(t, err, apperror.ErrInvariant)
	})
}

func TestGame_Reopen(t *testing.T) {
	t.Run("Not possible before both fleets are placed", func(t *testing.T) {
		game := New(alice, bob)
		setUp(t, game, alice)

		_, err := game.Reopen(alice)
		assert.ErrorIs(t, err, apperror.ErrGameIsNotStarted)
	})

	t.Run("Reopen invalidates the open board and keeps the state", func(t *testing.T) {
		// Given: a started game with one shot fired
		game := started(t)
		fire(t, game, alice, at(0, 0))
		before := game.Prompts()
		require.Len(t, before, 1)

		// When: bob reopens his board twice
		first, err := game.Reopen(bob)
		require.NoError(t, err)
		second, err := game.Reopen(bob)
		require.NoError(t, err)

		// Then: the board is the same, the old prompt is stale
		assert.Equal(t, first.View, second.View)
		assert.Equal(t, game.Render(bob), second.View)

		after := game.Prompts()
		require.Len(t, after, 1)
		assert.NotEqual(t, before[0].Key, after[0].Key)
		assert.Equal(t, before[0].Clock(), after[0].Clock())
		assert.Equal(t, before[0].Options, after[0].Options)

		err = game.Validate(before[0].Key, bob, "1,1")
		assert.ErrorIs(t, err, apperror.ErrStaleView)
		require.NoError(t, game.Validate(after[0].Key, bob, "1,1"))
	})

	t.Run("Not possible after the game ended", func(t *testing.T) {
		game := started(t)
		game.phase = PhaseFinished

		_, err := game.Reopen(alice)
		assert.ErrorIs(t, err, apperror.ErrGameFinished)
	})
}

func TestGame_Engine(t *testing.T) {
	t.Run("Setup prompts go to both players", func(t *testing.T) {
		// Given: a new game
		game := New(alice, bob)

		// When: prompts are listed
		prompts := game.Prompts()

		// Then: both get a ready button that only they may press
		require.Len(t, prompts, 2)
		assert.Equal(t, StepReady, prompts[0].Step)
		assert.Equal(t, alice, prompts[0].To)
		assert.Equal(t, bob, prompts[1].To)

		assert.ErrorIs(t, game.Validate(prompts[0].Key, bob, readyValue), apperror.ErrNotForYou)
		assert.ErrorIs(t, game.Validate(prompts[0].Key, carol, readyValue), apperror.ErrNotParticipant)
		require.NoError(t, game.Validate(prompts[0].Key, alice, readyValue))
	})

	t.Run("Setup prompt follows the placement", func(t *testing.T) {
		// Given: alice pressed ready
		game := New(alice, bob)
		notices, err := game.Apply(game.readyKey(0), alice, readyValue)
		require.NoError(t, err)
		require.Len(t, notices, 1)
		assert.Contains(t, notices[0].Message, "Set up your board!")

		prompt := game.Prompts()[0]
		require.Equal(t, StepSetup, prompt.Step)

		// When: alice places a canoe
		_, err = game.Apply(prompt.Key, alice, "0,0")
		require.NoError(t, err)
		anchored := game.Prompts()[0]
		_, err = game.Apply(anchored.Key, alice, "1,0")
		require.NoError(t, err)

		// Then: the prompt moved on and disables the canoe cells
		placed := game.Prompts()[0]
		assert.NotEqual(t, anchored.Key, placed.Key)
		assert.Equal(t, prompt.Clock(), anchored.Clock())
		assert.NotEqual(t, anchored.Clock(), placed.Clock())
		option, ok := placed.Option("0,0")
		require.True(t, ok)
		assert.True(t, option.Disabled)
		assert.Contains(t, placed.View, "C C")

		assert.ErrorIs(t, game.Validate(anchored.Key, alice, "4,4"), apperror.ErrStaleView)
	})

	t.Run("Fire prompt disables fired cells", func(t *testing.T) {
		// Given: a started game with one shot each
		game := started(t)
		fire(t, game, alice, at(2, 2))
		fire(t, game, bob, at(3, 3))

		// When: prompts are listed
		prompts := game.Prompts()

		// Then: only alice is prompted and the fired cell is disabled
		require.Len(t, prompts, 1)
		assert.Equal(t, alice, prompts[0].To)
		option, ok := prompts[0].Option("2,2")
		require.True(t, ok)
		assert.True(t, option.Disabled)
		option, ok = prompts[0].Option("3,3")
		require.True(t, ok)
		assert.False(t, option.Disabled)
	})

	t.Run("Render overlays shots on both halves", func(t *testing.T) {
		// Given: alice hit bob's ship and bob missed
		game := started(t)
		fire(t, game, alice, at(0, 0))
		fire(t, game, bob, at(4, 4))

		// Then: each side sees the fact from its own point of view
		assert.Equal(t, "Your fleet   Enemy waters\n"+
			"S S S S .    X . . . .\n"+
			". . . . .    . . . . .\n"+
			"B B B . .    . . . . .\n"+
			". . . . .    . . . . .\n"+
			"C C . . o    . . . . .", game.Render(alice))
		assert.Equal(t, "Your fleet   Enemy waters\n"+
			"* S S S .    . . . . .\n"+
			". . . . .    . . . . .\n"+
			"B B B . .    . . . . .\n"+
			". . . . .    . . . . .\n"+
			"C C . . .    . . . . ~", game.Render(bob))
	})
}
