// Package battleship implements two-player Battleship on a 5x5 board with a
// fixed fleet of three ships.
package battleship

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/minigames-backend/internal/apperror"
	"github.com/rocketscienceinc/minigames-backend/internal/entity"
	"github.com/rocketscienceinc/minigames-backend/internal/session"
	"github.com/rocketscienceinc/minigames-backend/internal/surface"
)

const Kind = "battleship"

const (
	StepReady = "ready"
	StepSetup = "setup"
	StepFire  = "fire"

	readyValue = "ready"
)

type Phase string

const (
	PhaseSetup      Phase = "setup"
	PhaseInProgress Phase = "in_progress"
	PhaseFinished   Phase = "finished"
)

type SideState string

const (
	SideUnready SideState = "unready"
	SidePlacing SideState = "placing"
	SideReady   SideState = "ready"
)

// Side is one player's half of the game: its fleet and the shots fired at it.
type Side struct {
	Player entity.Player
	State  SideState

	setup    *Setup
	ships    [Size * Size]string
	incoming Ledger
	view     int
}

// ShipAt returns the name of the ship covering at, if any.
func (that *Side) ShipAt(at entity.Coord) (string, bool) {
	name := that.ships[index(at)]
	return name, name != ""
}

func (that *Side) Setup() *Setup {
	return that.setup
}

// CellView is what one cell of a board means to its owner.
type CellView struct {
	Ship       string
	Incoming   Shot
	FireResult Shot
}

type Game struct {
	sides  [2]*Side
	turn   int
	shots  int
	phase  Phase
	winner *Side
}

// New starts a game where first fires first once both fleets are placed.
func New(first, second entity.Player) *Game {
	return &Game{
		sides: [2]*Side{
			{Player: first, State: SideUnready, setup: NewSetup()},
			{Player: second, State: SideUnready, setup: NewSetup()},
		},
		phase: PhaseSetup,
	}
}

func (that *Game) Kind() string {
	return Kind
}

func (that *Game) Players() []entity.Player {
	return []entity.Player{that.sides[0].Player, that.sides[1].Player}
}

func (that *Game) Phase() Phase {
	return that.phase
}

func (that *Game) Current() *Side {
	return that.sides[that.turn]
}

func (that *Game) sideIndex(player entity.Player) (int, error) {
	for i, side := range that.sides {
		if side.Player.Equal(player) {
			return i, nil
		}
	}

	return 0, apperror.ErrNotParticipant
}

// Side returns the half of the game owned by player.
func (that *Game) Side(player entity.Player) (*Side, error) {
	i, err := that.sideIndex(player)
	if err != nil {
		return nil, err
	}

	return that.sides[i], nil
}

func (that *Game) enemyOf(side *Side) *Side {
	if that.sides[0] == side {
		return that.sides[1]
	}
	return that.sides[0]
}

// CellView combines the owner's fleet with both shot ledgers for one cell.
func (that *Game) CellView(player entity.Player, at entity.Coord) (CellView, error) {
	side, err := that.Side(player)
	if err != nil {
		return CellView{}, err
	}

	if !at.In(Size) {
		return CellView{}, fmt.Errorf("%w: %s", apperror.ErrInvalidCell, at)
	}

	ship, _ := side.ShipAt(at)

	return CellView{
		Ship:       ship,
		Incoming:   side.incoming.At(at),
		FireResult: that.enemyOf(side).incoming.At(at),
	}, nil
}

// Ready moves player from the ready button into ship placement.
func (that *Game) Ready(player entity.Player) ([]session.Notice, error) {
	side, err := that.Side(player)
	if err != nil {
		return nil, err
	}

	if side.State != SideUnready {
		return nil, apperror.ErrSetupDone
	}

	side.State = SidePlacing

	return []session.Notice{{
		To:      []entity.Player{player},
		Message: setupInstructions,
	}}, nil
}

func (that *Game) placingSide(player entity.Player) (*Side, error) {
	if that.phase != PhaseSetup {
		return nil, apperror.ErrSetupDone
	}

	side, err := that.Side(player)
	if err != nil {
		return nil, err
	}

	switch side.State {
	case SideUnready:
		return nil, apperror.ErrGameIsNotStarted
	case SideReady:
		return nil, apperror.ErrSetupDone
	}

	return side, nil
}

// PlaceAt is one cell selection during setup. The fleet is committed once the
// last ship is placed.
func (that *Game) PlaceAt(player entity.Player, at entity.Coord) ([]session.Notice, error) {
	side, err := that.placingSide(player)
	if err != nil {
		return nil, err
	}

	if _, err = side.setup.PlaceAt(at); err != nil {
		return nil, err
	}

	if !side.setup.Done() {
		return nil, nil
	}

	return that.commit(side)
}

func (that *Game) commit(side *Side) ([]session.Notice, error) {
	placements := side.setup.Placements()
	if err := verifyPlacements(placements); err != nil {
		return nil, err
	}

	for _, p := range placements {
		side.ships[index(entity.Coord{X: p.X, Y: p.Y})] = p.Ship
	}
	side.State = SideReady

	order := "first"
	if that.sides[1] == side {
		order = "second"
	}

	notices := []session.Notice{{
		To:      []entity.Player{side.Player},
		Message: fmt.Sprintf("Alright you're ready! This is your board. You go %s!", order),
		View:    that.Render(side.Player),
	}}

	if that.sides[0].State == SideReady && that.sides[1].State == SideReady {
		that.phase = PhaseInProgress
		notices = append(notices, session.Notice{
			To: that.Players(),
			Message: fmt.Sprintf("Game currently in progress between %s and %s.\n\n%s",
				that.sides[0].Player.Label(), that.sides[1].Player.Label(), guide),
		})
	}

	return notices, nil
}

func (that *Game) checkFire(player entity.Player, at entity.Coord) (*Side, error) {
	switch that.phase {
	case PhaseSetup:
		return nil, apperror.ErrNotReady
	case PhaseFinished:
		return nil, apperror.ErrGameFinished
	}

	side, err := that.Side(player)
	if err != nil {
		return nil, err
	}

	if side != that.Current() {
		return nil, apperror.ErrNotYourTurn
	}

	if !at.In(Size) {
		return nil, fmt.Errorf("%w: %s", apperror.ErrInvalidCell, at)
	}

	if that.enemyOf(side).incoming.At(at) != Unfired {
		return nil, fmt.Errorf("%w: %s", apperror.ErrAlreadyFired, at)
	}

	return side, nil
}

// Fire shoots at the enemy board. The turn passes whatever the result.
func (that *Game) Fire(player entity.Player, at entity.Coord) ([]session.Notice, error) {
	side, err := that.checkFire(player, at)
	if err != nil {
		return nil, err
	}

	enemy := that.enemyOf(side)

	shot := Miss
	ship, hit := enemy.ShipAt(at)
	if hit {
		shot = Hit
	}

	if err = enemy.incoming.Record(at, shot); err != nil {
		return nil, err
	}

	that.shots++
	that.turn = 1 - that.turn

	if err = that.checkHits(enemy); err != nil {
		return nil, err
	}

	var shooterSunk, targetSunk string
	if hit && that.sunk(enemy, ship) {
		shooterSunk = fmt.Sprintf("\n\nYou sunk their %s!", ship)
		targetSunk = fmt.Sprintf("\n\nYour %s was sunk :(", ship)
	}

	if enemy.incoming.Hits() == ShipCells {
		that.phase = PhaseFinished
		that.winner = side

		return []session.Notice{
			{To: []entity.Player{side.Player}, Message: "You win!" + shooterSunk, View: that.Render(side.Player)},
			{To: []entity.Player{enemy.Player}, Message: "You lose :(" + targetSunk, View: that.Render(enemy.Player)},
			{To: that.Players(), Message: fmt.Sprintf("%s wins this game of Battleship! Congratulations.", side.Player.Label())},
		}, nil
	}

	shooterMessage := fmt.Sprintf("You fired at %s: %s. %s's turn.", at, shot, enemy.Player.Label())
	targetMessage := fmt.Sprintf("%s fired at %s: %s. Your turn!", side.Player.Label(), at, shot)

	return []session.Notice{
		{To: []entity.Player{side.Player}, Message: shooterMessage + shooterSunk, View: that.Render(side.Player)},
		{To: []entity.Player{enemy.Player}, Message: targetMessage + targetSunk, View: that.Render(enemy.Player)},
	}, nil
}

func (that *Game) sunk(side *Side, ship string) bool {
	for i, name := range side.ships {
		if name == ship && side.incoming.shots[i] != Hit {
			return false
		}
	}

	return true
}

// checkHits verifies that every recorded hit lies on a ship and that a board
// never takes more hits than it has ship cells.
func (that *Game) checkHits(side *Side) error {
	hits := 0
	for i, shot := range side.incoming.shots {
		if shot != Hit {
			continue
		}

		if side.ships[i] == "" {
			return fmt.Errorf("%w: hit recorded on open water", apperror.ErrInvariant)
		}
		hits++
	}

	if hits != side.incoming.Hits() || hits > ShipCells {
		return fmt.Errorf("%w: %d hits on a fleet of %d cells", apperror.ErrInvariant, hits, ShipCells)
	}

	return nil
}

// Reopen re-issues player's board. Whatever was presented before is stale.
func (that *Game) Reopen(player entity.Player) (session.Notice, error) {
	switch that.phase {
	case PhaseSetup:
		return session.Notice{}, apperror.ErrGameIsNotStarted
	case PhaseFinished:
		return session.Notice{}, apperror.ErrGameFinished
	}

	side, err := that.Side(player)
	if err != nil {
		return session.Notice{}, err
	}

	side.view++

	return session.Notice{
		To:      []entity.Player{player},
		Message: "This is your board!",
		View:    that.Render(player),
	}, nil
}

func (that *Game) readyKey(i int) string {
	return fmt.Sprintf("%s/%d", StepReady, i)
}

func (that *Game) setupKey(i int) string {
	setup := that.sides[i].setup

	anchor := "-"
	if at, ok := setup.Anchor(); ok {
		anchor = at.String()
	}

	return fmt.Sprintf("%s/%d/%d/%s", StepSetup, i, len(setup.placements), anchor)
}

// setupClock only advances when a ship is placed, toggling an anchor does not
// buy more time.
func (that *Game) setupClock(i int) string {
	return fmt.Sprintf("%s/%d/%d", StepSetup, i, len(that.sides[i].setup.placements))
}

// fireClock ignores the view generation so reopening a board keeps the deadline.
func (that *Game) fireClock() string {
	return fmt.Sprintf("%s/%d", StepFire, that.shots)
}

func (that *Game) fireKey() string {
	return fmt.Sprintf("%s/%d/%d", StepFire, that.shots, that.Current().view)
}

// Prompts implements session.Engine. During setup both players are prompted
// at once; afterwards only the player whose turn it is.
func (that *Game) Prompts() []surface.Prompt {
	switch that.phase {
	case PhaseSetup:
		prompts := make([]surface.Prompt, 0, len(that.sides))
		for i, side := range that.sides {
			switch side.State {
			case SideUnready:
				prompts = append(prompts, surface.Prompt{
					Key:     that.readyKey(i),
					Step:    StepReady,
					To:      side.Player,
					Text:    fmt.Sprintf("%s, press ready to set up your board.", side.Player.Label()),
					Options: []surface.Option{{Value: readyValue, Label: side.Player.Label() + "'s Button"}},
				})
			case SidePlacing:
				prompts = append(prompts, surface.Prompt{
					Key:         that.setupKey(i),
					DeadlineKey: that.setupClock(i),
					Step:        StepSetup,
					To:          side.Player,
					Text:        "Select both ends of a ship.",
					View:        renderSetup(side.setup),
					Options:     that.setupOptions(side.setup),
				})
			}
		}
		return prompts
	case PhaseInProgress:
		side := that.Current()
		return []surface.Prompt{{
			Key:         that.fireKey(),
			DeadlineKey: that.fireClock(),
			Step:        StepFire,
			To:          side.Player,
			Text:        "Your turn!",
			View:        that.Render(side.Player),
			Options:     that.fireOptions(side),
		}}
	default:
		return nil
	}
}

func (that *Game) setupOptions(setup *Setup) []surface.Option {
	options := make([]surface.Option, 0, Size*Size)
	for y := range Size {
		for x := range Size {
			at := entity.Coord{X: x, Y: y}
			_, taken := setup.occupied(at)
			options = append(options, surface.Option{Value: at.String(), Label: at.String(), Disabled: taken})
		}
	}

	return options
}

func (that *Game) fireOptions(side *Side) []surface.Option {
	enemy := that.enemyOf(side)

	options := make([]surface.Option, 0, Size*Size)
	for y := range Size {
		for x := range Size {
			at := entity.Coord{X: x, Y: y}
			options = append(options, surface.Option{
				Value:    at.String(),
				Label:    at.String(),
				Disabled: enemy.incoming.At(at) != Unfired,
			})
		}
	}

	return options
}

func (that *Game) Validate(key string, actor entity.Player, value string) error {
	step, rest, _ := strings.Cut(key, "/")

	switch step {
	case StepReady, StepSetup:
		owner, _, _ := strings.Cut(rest, "/")
		i, err := that.sideIndex(actor)
		if err != nil {
			return err
		}

		if strconv.Itoa(i) != owner {
			return apperror.ErrNotForYou
		}

		if step == StepReady {
			if that.sides[i].State != SideUnready || key != that.readyKey(i) || value != readyValue {
				return apperror.ErrStaleView
			}
			return nil
		}

		if _, err = that.placingSide(actor); err != nil {
			return err
		}

		if key != that.setupKey(i) {
			return apperror.ErrStaleView
		}

		at, err := entity.ParseCoord(value)
		if err != nil {
			return fmt.Errorf("%w: %w", apperror.ErrInvalidCell, err)
		}

		return that.sides[i].setup.Check(at)
	case StepFire:
		at, err := entity.ParseCoord(value)
		if err != nil {
			return fmt.Errorf("%w: %w", apperror.ErrInvalidCell, err)
		}

		if _, err = that.checkFire(actor, at); err != nil {
			return err
		}

		if key != that.fireKey() {
			return apperror.ErrStaleView
		}

		return nil
	default:
		return fmt.Errorf("%w: unknown step %q", apperror.ErrInvariant, step)
	}
}

func (that *Game) Apply(key string, actor entity.Player, value string) ([]session.Notice, error) {
	if err := that.Validate(key, actor, value); err != nil {
		return nil, err
	}

	step, _, _ := strings.Cut(key, "/")
	if step == StepReady {
		return that.Ready(actor)
	}

	at, _ := entity.ParseCoord(value)
	if step == StepSetup {
		return that.PlaceAt(actor, at)
	}

	return that.Fire(actor, at)
}

// Cancel is a no-op: dismissing a board only hides it, the step stays open.
func (that *Game) Cancel(_ string, _ entity.Player) []session.Notice {
	return nil
}

func (that *Game) Terminal() (session.Outcome, bool) {
	if that.phase != PhaseFinished {
		return session.Outcome{}, false
	}

	winner := that.winner.Player

	return session.Outcome{Winner: &winner, Reason: "sunk"}, true
}
