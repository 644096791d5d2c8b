package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/minigames-backend/internal/apperror"
	"github.com/rocketscienceinc/minigames-backend/internal/challenge"
	"github.com/rocketscienceinc/minigames-backend/internal/entity"
	"github.com/rocketscienceinc/minigames-backend/internal/session"
)

const (
	ChallengeChannel = prefix + "challenge"
	ReopenChannel    = prefix + "reopen"

	somethingWentWrong = "Something went wrong, please try again."
)

var ErrMalformedCommand = errors.New("malformed command")

// ChallengeCommand asks for a new game between two players.
type ChallengeCommand struct {
	Kind       string        `json:"kind"`
	Challenger entity.Player `json:"challenger"`
	Opponent   entity.Player `json:"opponent"`
}

// ReopenCommand asks for a player's board to be presented again.
type ReopenCommand struct {
	SessionID string        `json:"session_id"`
	Player    entity.Player `json:"player"`
}

type challenger interface {
	Propose(ctx context.Context, kind string, challenger, opponent entity.Player) (*challenge.Handle, error)
}

type reopener interface {
	Reopen(ctx context.Context, id string, player entity.Player) error
}

type notifier interface {
	Notify(ctx context.Context, players []entity.Player, message string)
}

// Listener turns commands published by the front end into protocol calls.
type Listener struct {
	logger     *slog.Logger
	client     *redis.Client
	challenges challenger
	sessions   reopener
	notifier   notifier

	// handlers return protocol errors unwrapped, their text is shown to the player.
	handlers map[string]func(ctx context.Context, payload string) (entity.Player, error)
}

func NewListener(logger *slog.Logger, client *redis.Client, challenges challenger, sessions reopener, notifier notifier) *Listener {
	listener := &Listener{
		logger:     logger.With("component", "redis-listener"),
		client:     client,
		challenges: challenges,
		sessions:   sessions,
		notifier:   notifier,
	}

	listener.handlers = map[string]func(ctx context.Context, payload string) (entity.Player, error){
		ChallengeChannel: listener.handleChallenge,
		ReopenChannel:    listener.handleReopen,
	}

	return listener
}

// Run consumes commands until ctx is done.
func (that *Listener) Run(ctx context.Context) error {
	log := that.logger.With("method", "Run")

	channels := make([]string, 0, len(that.handlers))
	for channel := range that.handlers {
		channels = append(channels, channel)
	}

	sub := that.client.Subscribe(ctx, channels...)
	defer func() {
		if err := sub.Close(); err != nil {
			log.Error("failed to close subscription", "error", err)
		}
	}()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe for commands: %w", err)
	}

	log.Info("listening for commands", "channels", channels)

	messages := sub.Channel()
	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return ErrSubscriptionClosed
			}
			that.dispatch(ctx, msg)
		case <-ctx.Done():
			return nil
		}
	}
}

func (that *Listener) dispatch(ctx context.Context, msg *redis.Message) {
	log := that.logger.With("method", "dispatch", "channel", msg.Channel)

	handler, ok := that.handlers[msg.Channel]
	if !ok {
		log.Warn("no handler for channel")
		return
	}

	player, err := handler(ctx, msg.Payload)
	switch {
	case err == nil:
	case errors.Is(err, ErrMalformedCommand):
		log.Warn("dropping command", "error", err)
	case apperror.IsValidation(err), errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrReopenUnsupported):
		log.Debug("command rejected", "player_id", player.ID, "error", err)
		that.notifier.Notify(ctx, []entity.Player{player}, apperror.Sentence(err))
	default:
		log.Error("command failed", "player_id", player.ID, "error", err)
		that.notifier.Notify(ctx, []entity.Player{player}, somethingWentWrong)
	}
}

func (that *Listener) handleChallenge(ctx context.Context, payload string) (entity.Player, error) {
	var cmd ChallengeCommand
	if err := json.Unmarshal([]byte(payload), &cmd); err != nil || cmd.Challenger.ID == "" {
		return entity.Player{}, fmt.Errorf("%w: challenge %q", ErrMalformedCommand, payload)
	}

	if _, err := that.challenges.Propose(ctx, cmd.Kind, cmd.Challenger, cmd.Opponent); err != nil {
		return cmd.Challenger, err
	}

	return cmd.Challenger, nil
}

func (that *Listener) handleReopen(ctx context.Context, payload string) (entity.Player, error) {
	var cmd ReopenCommand
	if err := json.Unmarshal([]byte(payload), &cmd); err != nil || cmd.Player.ID == "" {
		return entity.Player{}, fmt.Errorf("%w: reopen %q", ErrMalformedCommand, payload)
	}

	if err := that.sessions.Reopen(ctx, cmd.SessionID, cmd.Player); err != nil {
		return cmd.Player, err
	}

	return cmd.Player, nil
}
