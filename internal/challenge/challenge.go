// Package challenge turns a proposal from one player to another into a
// running game session.
package challenge

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/minigames-backend/internal/apperror"
	"github.com/rocketscienceinc/minigames-backend/internal/battleship"
	"github.com/rocketscienceinc/minigames-backend/internal/entity"
	"github.com/rocketscienceinc/minigames-backend/internal/gobblet"
	"github.com/rocketscienceinc/minigames-backend/internal/session"
	"github.com/rocketscienceinc/minigames-backend/internal/surface"
)

type State string

const (
	StatePending  State = "pending"
	StateAccepted State = "accepted"
	StateDeclined State = "declined"
	StateExpired  State = "expired"
)

const (
	StepAnswer = "challenge"

	accept  = "accept"
	decline = "decline"
)

type sessionStarter interface {
	Start(ctx context.Context, engine session.Engine, opts ...session.StartOption) *session.Session
}

type Timeouts struct {
	Challenge      time.Duration
	GobbletCeiling time.Duration
}

// Handle follows one challenge from proposal to its terminal state.
type Handle struct {
	ID         string
	Kind       string
	Challenger entity.Player
	Opponent   entity.Player

	done chan struct{}

	mu      sync.RWMutex
	state   State
	session *session.Session
}

func newHandle(kind string, challenger, opponent entity.Player) *Handle {
	return &Handle{
		ID:         uuid.NewString(),
		Kind:       kind,
		Challenger: challenger,
		Opponent:   opponent,
		done:       make(chan struct{}),
		state:      StatePending,
	}
}

func (that *Handle) State() State {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.state
}

// Session is the game started by an accepted challenge, nil otherwise.
func (that *Handle) Session() *session.Session {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.session
}

func (that *Handle) Done() <-chan struct{} {
	return that.done
}

// Wait blocks until the challenge leaves the pending state or ctx is done.
func (that *Handle) Wait(ctx context.Context) (State, error) {
	select {
	case <-that.done:
		return that.State(), nil
	case <-ctx.Done():
		return StatePending, ctx.Err()
	}
}

func (that *Handle) resolve(state State, sess *session.Session) {
	that.mu.Lock()
	that.state = state
	that.session = sess
	that.mu.Unlock()

	close(that.done)
}

type Protocol struct {
	logger   *slog.Logger
	surface  surface.Surface
	sessions sessionStarter
	timeouts Timeouts

	// coin reports whether the challenger moves first.
	coin func() bool
}

func New(logger *slog.Logger, surface surface.Surface, sessions sessionStarter, timeouts Timeouts) *Protocol {
	return &Protocol{
		logger:   logger.With("component", "challenge"),
		surface:  surface,
		sessions: sessions,
		timeouts: timeouts,
		coin: func() bool {
			return rand.Intn(2) == 0 //nolint: gosec // it's ok
		},
	}
}

// Propose starts a challenge of the given kind. Disallowed opponents are
// rejected before anything is presented. ctx bounds both the wait for an
// answer and the game that follows.
func (that *Protocol) Propose(ctx context.Context, kind string, challenger, opponent entity.Player) (*Handle, error) {
	log := that.logger.With("method", "Propose", "kind", kind, "player_id", challenger.ID)

	if kind != gobblet.Kind && kind != battleship.Kind {
		return nil, fmt.Errorf("%w: %q", apperror.ErrUnknownGame, kind)
	}

	if !opponent.IsPlayable() || opponent.Equal(challenger) {
		log.Debug("opponent rejected", "opponent_id", opponent.ID)
		return nil, apperror.ErrDisallowedOpponent
	}

	handle := newHandle(kind, challenger, opponent)

	// battleship has no accept gate, each side gets its own ready prompt.
	if kind == battleship.Kind {
		first, second := that.order(challenger, opponent)
		sess := that.sessions.Start(ctx, battleship.New(first, second))
		handle.resolve(StateAccepted, sess)

		log.Info("battleship started", "session_id", sess.ID)

		return handle, nil
	}

	go that.await(ctx, handle)

	return handle, nil
}

func (that *Protocol) order(challenger, opponent entity.Player) (entity.Player, entity.Player) {
	if that.coin() {
		return challenger, opponent
	}
	return opponent, challenger
}

func (that *Protocol) await(parent context.Context, handle *Handle) {
	log := that.logger.With("method", "await", "challenge_id", handle.ID)

	ctx, cancel := context.WithTimeout(parent, that.timeouts.Challenge)
	defer cancel()

	deadline, _ := ctx.Deadline()
	prompt := surface.Prompt{
		Key:  "challenge/" + handle.ID,
		Step: StepAnswer,
		To:   handle.Opponent,
		Text: fmt.Sprintf("%s has challenged %s to a game of Gobblet Gobblers!",
			handle.Challenger.Label(), handle.Opponent.Label()),
		Options: []surface.Option{
			{Value: accept, Label: "Accept"},
			{Value: decline, Label: "Decline"},
		},
		Cancellable: true,
		Deadline:    deadline,
	}

	players := []entity.Player{handle.Challenger, handle.Opponent}
	notifyCtx := context.WithoutCancel(parent)

	for {
		prompt.ID = uuid.NewString()

		resp, err := that.surface.Present(ctx, prompt)
		if err != nil || resp.Kind == surface.TimedOut {
			if err != nil && ctx.Err() == nil {
				log.Error("failed to present challenge", "error", err)
			}

			log.Info("challenge expired")
			that.surface.Notify(notifyCtx, players, fmt.Sprintf("%s did not answer in time, challenge expired.", handle.Opponent.Label()))
			handle.resolve(StateExpired, nil)

			return
		}

		if !resp.Actor.Equal(handle.Opponent) {
			that.surface.Notify(notifyCtx, []entity.Player{resp.Actor}, "This challenge is not meant for you.")
			continue
		}

		switch {
		case resp.Kind == surface.Cancelled, resp.Value == decline:
			log.Info("challenge declined")
			that.surface.Notify(notifyCtx, players, "Challenge declined :(")
			handle.resolve(StateDeclined, nil)

			return
		case resp.Value == accept:
			first, second := that.order(handle.Challenger, handle.Opponent)
			sess := that.sessions.Start(parent, gobblet.New(first, second), session.WithCeiling(that.timeouts.GobbletCeiling))

			log.Info("challenge accepted", "session_id", sess.ID)
			that.surface.Notify(notifyCtx, players, fmt.Sprintf("Challenge accepted! %s goes first and %s goes second.", first.Label(), second.Label()))
			handle.resolve(StateAccepted, sess)

			return
		}
	}
}
