package session

import (
	"github.com/rocketscienceinc/minigames-backend/internal/entity"
	"github.com/rocketscienceinc/minigames-backend/internal/surface"
)

// Notice is a message the engine wants delivered after a step. View, when
// set, is the freshly rendered board of the recipients.
type Notice struct {
	To      []entity.Player
	Message string
	View    string
}

// Outcome is the terminal result of a game. Winner is nil on a tie.
type Outcome struct {
	Winner *entity.Player
	Tie    bool
	Reason string
}

// Engine is the capability set the supervisor drives a game through.
//
// Prompts returns every prompt currently open, at most one per player. A
// prompt keeps its Key for as long as the step behind it is unchanged; a new
// Key withdraws the previous presentation.
type Engine interface {
	Kind() string
	Players() []entity.Player
	Prompts() []surface.Prompt
	Validate(key string, actor entity.Player, value string) error
	Apply(key string, actor entity.Player, value string) ([]Notice, error)
	Cancel(key string, actor entity.Player) []Notice
	Terminal() (Outcome, bool)
	Render(viewer entity.Player) string
}

// Reopener is implemented by engines whose board presentation may be
// re-issued mid-game without touching game state.
type Reopener interface {
	Reopen(player entity.Player) (Notice, error)
}
