// Package surface describes the only boundary between the game engines and
// the outside world: a prompt is presented to one player and exactly one
// selection, cancellation or timeout comes back.
package surface

import (
	"context"
	"time"

	"github.com/rocketscienceinc/minigames-backend/internal/entity"
)

type ResponseKind string

const (
	Selected  ResponseKind = "select"
	Cancelled ResponseKind = "cancel"
	TimedOut  ResponseKind = "timeout"
)

// Option is one selectable choice of a prompt.
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Disabled bool   `json:"disabled,omitempty"`
}

// Prompt is a set of choices presented to a single player.
//
// Key identifies the engine step the prompt belongs to and stays the same
// when the prompt is re-presented after a rejected selection. ID is unique
// per presentation. Prompts sharing a DeadlineKey share one deadline; an
// empty DeadlineKey falls back to Key.
type Prompt struct {
	ID          string        `json:"id"`
	Key         string        `json:"key"`
	DeadlineKey string        `json:"-"`
	Step        string        `json:"step"`
	To          entity.Player `json:"to"`
	Text        string        `json:"text"`
	View        string        `json:"view,omitempty"`
	Options     []Option      `json:"options"`
	Cancellable bool          `json:"cancellable,omitempty"`
	Deadline    time.Time     `json:"deadline"`
}

// Response is what came back from a prompt. Actor is whoever answered,
// which is not necessarily the player the prompt was meant for.
type Response struct {
	Kind  ResponseKind  `json:"kind"`
	Actor entity.Player `json:"actor"`
	Value string        `json:"value,omitempty"`
}

type Surface interface {
	// Present blocks until the prompt is answered, ctx is done or the
	// prompt deadline passes.
	Present(ctx context.Context, prompt Prompt) (Response, error)
	// Notify is fire-and-forget.
	Notify(ctx context.Context, players []entity.Player, message string)
}

// Clock is the key the deadline of the prompt is tracked under.
func (that Prompt) Clock() string {
	if that.DeadlineKey != "" {
		return that.DeadlineKey
	}
	return that.Key
}

// Option returns the option with the given value.
func (that Prompt) Option(value string) (Option, bool) {
	for _, option := range that.Options {
		if option.Value == value {
			return option, true
		}
	}

	return Option{}, false
}
