package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/minigames-backend/internal/entity"
	"github.com/rocketscienceinc/minigames-backend/internal/session"
)

var ErrResultNotFound = errors.New("result not found")

// resultTTL keeps finished games around long enough to be looked up.
const resultTTL = 24 * time.Hour

// Result is the stored summary of a session that ended.
type Result struct {
	SessionID  string          `json:"session_id"`
	Kind       string          `json:"kind"`
	Players    []entity.Player `json:"players"`
	Status     session.Status  `json:"status"`
	Winner     *entity.Player  `json:"winner,omitempty"`
	Tie        bool            `json:"tie,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	Error      string          `json:"error,omitempty"`
	FinishedAt time.Time       `json:"finished_at"`
}

type ResultRepository struct {
	client *redis.Client
}

func NewResultRepository(client *redis.Client) *ResultRepository {
	return &ResultRepository{
		client: client,
	}
}

// Record implements session.Recorder.
func (that *ResultRepository) Record(ctx context.Context, sess *session.Session, result session.Result) error {
	stored := &Result{
		SessionID:  sess.ID,
		Kind:       sess.Kind,
		Players:    sess.Players,
		Status:     result.Status,
		Winner:     result.Outcome.Winner,
		Tie:        result.Outcome.Tie,
		Reason:     result.Outcome.Reason,
		FinishedAt: time.Now().UTC(),
	}

	if result.Err != nil {
		stored.Error = result.Err.Error()
	}

	return that.Save(ctx, stored)
}

func (that *ResultRepository) Save(ctx context.Context, result *Result) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("could not marshal result: %w", err)
	}

	if err = that.client.Set(ctx, resultKey(result.SessionID), resultJSON, resultTTL).Err(); err != nil {
		return fmt.Errorf("failed to set result: %w", err)
	}

	return nil
}

func (that *ResultRepository) GetByID(ctx context.Context, id string) (*Result, error) {
	response, err := that.client.Get(ctx, resultKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrResultNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	var result Result
	if err = json.Unmarshal([]byte(response), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return &result, nil
}

func resultKey(id string) string {
	return "result:" + id
}
