package apperror

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// validation errors are reported to the acting player only and never change game state.
var (
	ErrGameFinished       = errors.New("game is already finished")
	ErrGameIsNotStarted   = errors.New("game is not started")
	ErrNotYourTurn        = errors.New("it's not your turn")
	ErrNotParticipant     = errors.New("this is a game between two other people, sorry")
	ErrNotForYou          = errors.New("this prompt is not meant for you")
	ErrInvalidCell        = errors.New("invalid cell")
	ErrDisallowedOpponent = errors.New("you cannot play against this opponent")
	ErrUnknownGame        = errors.New("unknown game")

	ErrCellOwned           = errors.New("you already have this piece")
	ErrTooWeak             = errors.New("you do not have the strength necessary to take down this piece")
	ErrSelectionPending    = errors.New("you've already selected a piece, you can't select multiple pieces")
	ErrNoSelection         = errors.New("no cell is selected")
	ErrStrengthUnavailable = errors.New("this strength is not available")

	ErrDiagonalShip = errors.New("sorry, you can't have diagonal pieces")
	ErrShipSize     = errors.New("sorry, this ship is too big, only ships sizes 4, 3, or 2 are supported")
	ErrShipTaken    = errors.New("you already have a boat of this length")
	ErrShipBlocked  = errors.New("this ship would be blocked off")
	ErrAlreadyFired = errors.New("this cell has already been fired upon")
	ErrNotReady     = errors.New("your enemy is not ready yet, please wait until they are")
	ErrSetupDone    = errors.New("your board is already set up")
	ErrStaleView    = errors.New("this board is out of date, please use the latest one")
)

// ErrInvariant marks a programmer error that is fatal to the session it happened in.
var ErrInvariant = errors.New("session invariant violated")

var validation = []error{
	ErrGameFinished,
	ErrGameIsNotStarted,
	ErrNotYourTurn,
	ErrNotParticipant,
	ErrNotForYou,
	ErrInvalidCell,
	ErrDisallowedOpponent,
	ErrUnknownGame,
	ErrCellOwned,
	ErrTooWeak,
	ErrSelectionPending,
	ErrNoSelection,
	ErrStrengthUnavailable,
	ErrDiagonalShip,
	ErrShipSize,
	ErrShipTaken,
	ErrShipBlocked,
	ErrAlreadyFired,
	ErrNotReady,
	ErrSetupDone,
	ErrStaleView,
}

// IsValidation reports whether err is a recoverable rejection of a player's input.
func IsValidation(err error) bool {
	for _, target := range validation {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}

// Sentence turns an error into a notice for a player: first letter upper-cased, final period.
func Sentence(err error) string {
	text := err.Error()
	r, size := utf8.DecodeRuneInString(text)
	text = string(unicode.ToUpper(r)) + text[size:]

	if !strings.HasSuffix(text, ".") {
		text += "."
	}

	return text
}
