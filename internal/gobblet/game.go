// Package gobblet implements Gobblet Gobblers: tic-tac-toe where every piece
// has a strength and a stronger piece may be placed over a weaker one.
package gobblet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/minigames-backend/internal/apperror"
	"github.com/rocketscienceinc/minigames-backend/internal/entity"
	"github.com/rocketscienceinc/minigames-backend/internal/session"
	"github.com/rocketscienceinc/minigames-backend/internal/surface"
)

const Kind = "gobblet"

const (
	StepCell     = "cell"
	StepStrength = "strength"
)

type Status string

const (
	StatusOngoing   Status = "ongoing"
	StatusWon       Status = "won"
	StatusTie       Status = "tie"
	StatusStalemate Status = "stalemate"
)

// Slot is one seat at the board.
type Slot struct {
	Player entity.Player
	Mark   Mark
	Pool   Pool

	placed    Pool
	selection *entity.Coord
}

func (that *Slot) banner() string {
	return fmt.Sprintf("It is now %s %s's turn.", that.Mark, that.Player.Label())
}

// Selection returns the cell picked in the first half of a move.
func (that *Slot) Selection() (entity.Coord, bool) {
	if that.selection == nil {
		return entity.Coord{}, false
	}
	return *that.selection, true
}

type Game struct {
	board  Board
	slots  [2]*Slot
	turn   int
	moves  int
	status Status
	winner *Slot
}

// New starts a game where first plays X and moves first.
func New(first, second entity.Player) *Game {
	return &Game{
		slots: [2]*Slot{
			{Player: first, Mark: X, Pool: FullPool},
			{Player: second, Mark: O, Pool: FullPool},
		},
		status: StatusOngoing,
	}
}

func (that *Game) Kind() string {
	return Kind
}

func (that *Game) Players() []entity.Player {
	return []entity.Player{that.slots[0].Player, that.slots[1].Player}
}

func (that *Game) Board() Board {
	return that.board
}

func (that *Game) Status() Status {
	return that.status
}

func (that *Game) Current() *Slot {
	return that.slots[that.turn]
}

func (that *Game) IsFinished() bool {
	return that.status != StatusOngoing
}

// Slot returns the seat of player.
func (that *Game) Slot(player entity.Player) (*Slot, error) {
	for _, slot := range that.slots {
		if slot.Player.Equal(player) {
			return slot, nil
		}
	}

	return nil, apperror.ErrNotParticipant
}

// checkTurn - the turn gate: only the current player may act.
func (that *Game) checkTurn(player entity.Player) (*Slot, error) {
	if that.IsFinished() {
		return nil, apperror.ErrGameFinished
	}

	slot, err := that.Slot(player)
	if err != nil {
		return nil, err
	}

	if slot != that.Current() {
		return nil, apperror.ErrNotYourTurn
	}

	return slot, nil
}

// SelectCell is the first half of a move.
func (that *Game) SelectCell(player entity.Player, at entity.Coord) error {
	slot, err := that.checkTurn(player)
	if err != nil {
		return err
	}

	if err = that.validateCell(slot, at); err != nil {
		return err
	}

	slot.selection = &at

	return nil
}

func (that *Game) validateCell(slot *Slot, at entity.Coord) error {
	if !at.In(Size) {
		return fmt.Errorf("%w: %s", apperror.ErrInvalidCell, at)
	}

	cell := that.board.At(at)
	if cell.Mark == slot.Mark {
		return apperror.ErrCellOwned
	}

	if slot.Pool.Max() <= cell.Strength {
		return apperror.ErrTooWeak
	}

	if slot.selection != nil {
		return apperror.ErrSelectionPending
	}

	return nil
}

// StrengthOptions lists every strength with the ones that cannot take the
// selected cell disabled. All of them may be disabled.
func (that *Game) StrengthOptions(player entity.Player) ([]surface.Option, error) {
	slot, err := that.Slot(player)
	if err != nil {
		return nil, err
	}

	at, ok := slot.Selection()
	if !ok {
		return nil, apperror.ErrNoSelection
	}

	defender := that.board.At(at).Strength
	options := make([]surface.Option, 0, MaxStrength)
	for strength := 1; strength <= MaxStrength; strength++ {
		options = append(options, surface.Option{
			Value:    strconv.Itoa(strength),
			Label:    strconv.Itoa(strength),
			Disabled: !slot.Pool.Has(strength) || strength <= defender,
		})
	}

	return options, nil
}

func (that *Game) validateStrength(slot *Slot, strength int) error {
	at, ok := slot.Selection()
	if !ok {
		return apperror.ErrNoSelection
	}

	if !slot.Pool.Has(strength) || strength <= that.board.At(at).Strength {
		return fmt.Errorf("%w: %d", apperror.ErrStrengthUnavailable, strength)
	}

	return nil
}

// CommitStrength is the second half of a move: the selected cell is taken
// with the given strength and the turn passes.
func (that *Game) CommitStrength(player entity.Player, strength int) ([]session.Notice, error) {
	slot, err := that.checkTurn(player)
	if err != nil {
		return nil, err
	}

	if err = that.validateStrength(slot, strength); err != nil {
		return nil, err
	}

	at := *slot.selection
	that.board.set(at, Cell{Mark: slot.Mark, Strength: strength})
	slot.Pool = slot.Pool.Without(strength)
	slot.placed = slot.placed.With(strength)
	slot.selection = nil
	that.moves++
	that.turn = 1 - that.turn

	if err = that.checkAccounting(); err != nil {
		return nil, err
	}

	that.updateGameStatus()

	return []session.Notice{{
		To:      that.Players(),
		Message: that.statusLine(),
		View:    that.board.String(),
	}}, nil
}

// CancelSelection aborts a half-made move without any other change.
func (that *Game) CancelSelection(player entity.Player) {
	if slot, err := that.Slot(player); err == nil {
		slot.selection = nil
	}
}

// updateGameStatus - checks the game status after a move.
func (that *Game) updateGameStatus() {
	switch winner := that.board.Winner(); {
	case winner != Empty:
		that.status = StatusWon
		that.winner = that.slotByMark(winner)
	case that.board.Full():
		that.status = StatusTie
	case !that.hasLegalMove(that.Current()):
		that.status = StatusStalemate
	}
}

func (that *Game) hasLegalMove(slot *Slot) bool {
	available := slot.Pool.Max()
	for _, row := range that.board {
		for _, cell := range row {
			if cell.Mark != slot.Mark && available > cell.Strength {
				return true
			}
		}
	}

	return false
}

// checkAccounting verifies that every strength is either held or has been
// placed, never both, and that pieces on the board were placed by their owner.
func (that *Game) checkAccounting() error {
	for _, slot := range that.slots {
		if slot.Pool&slot.placed != 0 || slot.Pool|slot.placed != FullPool {
			return fmt.Errorf("%w: %s pool %06b placed %06b", apperror.ErrInvariant, slot.Mark, slot.Pool>>1, slot.placed>>1)
		}
	}

	var seen [2]Pool
	for _, row := range that.board {
		for _, cell := range row {
			if cell.IsEmpty() {
				continue
			}

			i := that.slotIndex(cell.Mark)
			if !that.slots[i].placed.Has(cell.Strength) || seen[i].Has(cell.Strength) {
				return fmt.Errorf("%w: %s on board was never placed once", apperror.ErrInvariant, cell)
			}
			seen[i] = seen[i].With(cell.Strength)
		}
	}

	return nil
}

func (that *Game) slotIndex(mark Mark) int {
	if that.slots[0].Mark == mark {
		return 0
	}
	return 1
}

func (that *Game) slotByMark(mark Mark) *Slot {
	return that.slots[that.slotIndex(mark)]
}

func (that *Game) statusLine() string {
	switch that.status {
	case StatusWon:
		return fmt.Sprintf("%s %s won!", that.winner.Mark, that.winner.Player.Label())
	case StatusTie:
		return "It's a tie!"
	case StatusStalemate:
		return fmt.Sprintf("%s %s has no piece strong enough to move, it's a tie!", that.Current().Mark, that.Current().Player.Label())
	default:
		return that.Current().banner()
	}
}

// moveClock is shared by both halves of a move so cancelling the strength
// prompt does not restart the move deadline.
func (that *Game) moveClock() string {
	return fmt.Sprintf("move/%d", that.moves)
}

func (that *Game) cellKey() string {
	return fmt.Sprintf("%s/%d", StepCell, that.moves)
}

func (that *Game) strengthKey(at entity.Coord) string {
	return fmt.Sprintf("%s/%d/%s", StepStrength, that.moves, at)
}

// Prompts implements session.Engine: the current player is asked for a cell,
// or for a strength once a cell is selected.
func (that *Game) Prompts() []surface.Prompt {
	if that.IsFinished() {
		return nil
	}

	slot := that.Current()
	if at, ok := slot.Selection(); ok {
		options, _ := that.StrengthOptions(slot.Player)
		return []surface.Prompt{{
			Key:         that.strengthKey(at),
			DeadlineKey: that.moveClock(),
			Step:        StepStrength,
			To:          slot.Player,
			Text:        "Select a piece strength",
			Options:     options,
			Cancellable: true,
		}}
	}

	options := make([]surface.Option, 0, Size*Size)
	for y := range Size {
		for x := range Size {
			at := entity.Coord{X: x, Y: y}
			options = append(options, surface.Option{
				Value: at.String(),
				Label: that.board.At(at).String(),
			})
		}
	}

	return []surface.Prompt{{
		Key:         that.cellKey(),
		DeadlineKey: that.moveClock(),
		Step:        StepCell,
		To:          slot.Player,
		Text:        slot.banner(),
		View:        that.Render(slot.Player),
		Options:     options,
	}}
}

func (that *Game) Validate(key string, actor entity.Player, value string) error {
	slot, err := that.checkTurn(actor)
	if err != nil {
		return err
	}

	switch {
	case slot.selection == nil && key == that.cellKey():
		at, err := entity.ParseCoord(value)
		if err != nil {
			return fmt.Errorf("%w: %w", apperror.ErrInvalidCell, err)
		}
		return that.validateCell(slot, at)
	case slot.selection != nil && key == that.strengthKey(*slot.selection):
		strength, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %q", apperror.ErrStrengthUnavailable, value)
		}
		return that.validateStrength(slot, strength)
	default:
		return apperror.ErrStaleView
	}
}

func (that *Game) Apply(key string, actor entity.Player, value string) ([]session.Notice, error) {
	if err := that.Validate(key, actor, value); err != nil {
		return nil, err
	}

	if strings.HasPrefix(key, StepCell+"/") {
		at, _ := entity.ParseCoord(value)
		return nil, that.SelectCell(actor, at)
	}

	strength, _ := strconv.Atoi(value)

	return that.CommitStrength(actor, strength)
}

// Cancel releases the pending selection when the strength prompt is dismissed.
func (that *Game) Cancel(key string, actor entity.Player) []session.Notice {
	if strings.HasPrefix(key, StepStrength+"/") {
		that.CancelSelection(actor)
	}

	return nil
}

func (that *Game) Terminal() (session.Outcome, bool) {
	switch that.status {
	case StatusWon:
		winner := that.winner.Player
		return session.Outcome{Winner: &winner, Reason: string(that.status)}, true
	case StatusTie, StatusStalemate:
		return session.Outcome{Tie: true, Reason: string(that.status)}, true
	default:
		return session.Outcome{}, false
	}
}

// Render shows the board and what every player still holds.
func (that *Game) Render(_ entity.Player) string {
	var sb strings.Builder

	sb.WriteString(that.board.String())
	for _, slot := range that.slots {
		fmt.Fprintf(&sb, "\n%s %s: %v", slot.Mark, slot.Player.Label(), slot.Pool.Values())
	}

	return sb.String()
}
