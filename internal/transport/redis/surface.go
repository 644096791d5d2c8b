// Package redis carries prompts, answers and notices over redis pub/sub so
// any chat front end can play the part of the move surface.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/minigames-backend/internal/entity"
	"github.com/rocketscienceinc/minigames-backend/internal/surface"
)

const prefix = "minigames:"

var ErrSubscriptionClosed = errors.New("answer subscription closed")

func PromptChannel(playerID string) string {
	return prefix + "prompt:" + playerID
}

func WithdrawChannel(playerID string) string {
	return prefix + "withdraw:" + playerID
}

func AnswerChannel(promptID string) string {
	return prefix + "answer:" + promptID
}

func NoticeChannel(playerID string) string {
	return prefix + "notice:" + playerID
}

// Notice is the payload published on a player's notice channel.
type Notice struct {
	To      entity.Player `json:"to"`
	Message string        `json:"message"`
}

// Withdrawal tells the front end that a prompt no longer accepts answers.
type Withdrawal struct {
	PromptID string `json:"prompt_id"`
}

type Surface struct {
	logger *slog.Logger
	client *redis.Client
}

func NewSurface(logger *slog.Logger, client *redis.Client) *Surface {
	return &Surface{
		logger: logger.With("component", "redis-surface"),
		client: client,
	}
}

// Present publishes prompt to its player and waits for the first well-formed
// answer on the prompt's own answer channel.
func (that *Surface) Present(ctx context.Context, prompt surface.Prompt) (surface.Response, error) {
	log := that.logger.With("method", "Present", "prompt_id", prompt.ID, "player_id", prompt.To.ID)

	sub := that.client.Subscribe(ctx, AnswerChannel(prompt.ID))
	defer func() {
		if err := sub.Close(); err != nil {
			log.Error("failed to close subscription", "error", err)
		}
	}()

	// the subscription must be live before anyone can see the prompt
	if _, err := sub.Receive(ctx); err != nil {
		return surface.Response{}, fmt.Errorf("failed to subscribe for answers: %w", err)
	}

	if err := that.publish(ctx, PromptChannel(prompt.To.ID), prompt); err != nil {
		return surface.Response{}, err
	}

	answers := sub.Channel()
	for {
		select {
		case msg, ok := <-answers:
			if !ok {
				return surface.Response{}, ErrSubscriptionClosed
			}

			var resp surface.Response
			if err := json.Unmarshal([]byte(msg.Payload), &resp); err != nil {
				log.Warn("dropping malformed answer", "error", err)
				continue
			}

			return resp, nil
		case <-ctx.Done():
			withdrawCtx := context.WithoutCancel(ctx)
			if err := that.publish(withdrawCtx, WithdrawChannel(prompt.To.ID), Withdrawal{PromptID: prompt.ID}); err != nil {
				log.Error("failed to withdraw prompt", "error", err)
			}

			return surface.Response{}, ctx.Err()
		}
	}
}

// Notify publishes message on the notice channel of every player.
func (that *Surface) Notify(ctx context.Context, players []entity.Player, message string) {
	log := that.logger.With("method", "Notify")

	for _, player := range players {
		if err := that.publish(ctx, NoticeChannel(player.ID), Notice{To: player, Message: message}); err != nil {
			log.Error("failed to notify player", "player_id", player.ID, "error", err)
		}
	}
}

func (that *Surface) publish(ctx context.Context, channel string, payload any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("could not marshal payload: %w", err)
	}

	if err = that.client.Publish(ctx, channel, payloadJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}

	return nil
}
