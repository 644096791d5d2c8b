package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/minigames-backend/internal/apperror"
	"github.com/rocketscienceinc/minigames-backend/internal/challenge"
	"github.com/rocketscienceinc/minigames-backend/internal/entity"
	"github.com/rocketscienceinc/minigames-backend/internal/session"
	"github.com/rocketscienceinc/minigames-backend/testing/suite"
)

type recorder struct {
	mu       sync.Mutex
	proposed []ChallengeCommand
	reopened []ReopenCommand
	notices  []Notice

	proposeErr error
	reopenErr  error
}

func (that *recorder) Propose(_ context.Context, kind string, challenger, opponent entity.Player) (*challenge.Handle, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.proposed = append(that.proposed, ChallengeCommand{Kind: kind, Challenger: challenger, Opponent: opponent})
	if that.proposeErr != nil {
		return nil, that.proposeErr
	}

	return &challenge.Handle{Kind: kind, Challenger: challenger, Opponent: opponent}, nil
}

func (that *recorder) Reopen(_ context.Context, id string, player entity.Player) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.reopened = append(that.reopened, ReopenCommand{SessionID: id, Player: player})

	return that.reopenErr
}

func (that *recorder) Notify(_ context.Context, players []entity.Player, message string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, player := range players {
		that.notices = append(that.notices, Notice{To: player, Message: message})
	}
}

func (that *recorder) snapshot() ([]ChallengeCommand, []ReopenCommand, []Notice) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]ChallengeCommand(nil), that.proposed...),
		append([]ReopenCommand(nil), that.reopened...),
		append([]Notice(nil), that.notices...)
}

func startListener(t *testing.T, rec *recorder) (context.Context, *suite.Suite) {
	t.Helper()

	ctx, st := suite.New(t)
	runCtx, cancel := context.WithCancel(ctx)

	listener := NewListener(st.Logger, st.Storage, rec, rec, rec)
	done := make(chan error, 1)
	go func() {
		done <- listener.Run(runCtx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool {
		counts, err := st.Storage.PubSubNumSub(ctx, ChallengeChannel, ReopenChannel).Result()
		return err == nil && counts[ChallengeChannel] > 0 && counts[ReopenChannel] > 0
	}, 5*time.Second, 10*time.Millisecond)

	return ctx, st
}

func publish(ctx context.Context, t *testing.T, st *suite.Suite, channel string, payload any) {
	t.Helper()

	payloadJSON, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, st.Storage.Publish(ctx, channel, payloadJSON).Err())
}

func TestListener_Challenge(t *testing.T) {
	t.Run("Command is proposed", func(t *testing.T) {
		// Given: a running listener
		rec := &recorder{}
		ctx, st := startListener(t, rec)

		// When: a malformed and then a valid challenge are published
		require.NoError(t, st.Storage.Publish(ctx, ChallengeChannel, "{").Err())
		publish(ctx, t, st, ChallengeChannel, ChallengeCommand{Kind: "gobblet", Challenger: alice, Opponent: bob})

		// Then: only the valid one reaches the protocol
		require.Eventually(t, func() bool {
			proposed, _, _ := rec.snapshot()
			return len(proposed) == 1
		}, 5*time.Second, 10*time.Millisecond)

		proposed, _, notices := rec.snapshot()
		assert.Equal(t, ChallengeCommand{Kind: "gobblet", Challenger: alice, Opponent: bob}, proposed[0])
		assert.Empty(t, notices)
	})

	t.Run("Rejection is sent to the challenger", func(t *testing.T) {
		// Given: a protocol that rejects the opponent
		rec := &recorder{proposeErr: apperror.ErrDisallowedOpponent}
		ctx, st := startListener(t, rec)

		// When: the challenge is published
		publish(ctx, t, st, ChallengeChannel, ChallengeCommand{Kind: "gobblet", Challenger: alice, Opponent: alice})

		// Then: alice is told why
		require.Eventually(t, func() bool {
			_, _, notices := rec.snapshot()
			return len(notices) == 1
		}, 5*time.Second, 10*time.Millisecond)

		_, _, notices := rec.snapshot()
		assert.Equal(t, Notice{To: alice, Message: "You cannot play against this opponent."}, notices[0])
	})

	t.Run("Unexpected failure is reported generically", func(t *testing.T) {
		rec := &recorder{proposeErr: errors.New("boom")}
		ctx, st := startListener(t, rec)

		publish(ctx, t, st, ChallengeChannel, ChallengeCommand{Kind: "gobblet", Challenger: carol, Opponent: bob})

		require.Eventually(t, func() bool {
			_, _, notices := rec.snapshot()
			return len(notices) == 1
		}, 5*time.Second, 10*time.Millisecond)

		_, _, notices := rec.snapshot()
		assert.Equal(t, Notice{To: carol, Message: somethingWentWrong}, notices[0])
	})
}

func TestListener_Reopen(t *testing.T) {
	t.Run("Command reaches the supervisor", func(t *testing.T) {
		rec := &recorder{}
		ctx, st := startListener(t, rec)

		publish(ctx, t, st, ReopenChannel, ReopenCommand{SessionID: "s-1", Player: bob})

		require.Eventually(t, func() bool {
			_, reopened, _ := rec.snapshot()
			return len(reopened) == 1
		}, 5*time.Second, 10*time.Millisecond)

		_, reopened, notices := rec.snapshot()
		assert.Equal(t, ReopenCommand{SessionID: "s-1", Player: bob}, reopened[0])
		assert.Empty(t, notices)
	})

	t.Run("Unknown session is reported to the player", func(t *testing.T) {
		rec := &recorder{reopenErr: session.ErrSessionNotFound}
		ctx, st := startListener(t, rec)

		publish(ctx, t, st, ReopenChannel, ReopenCommand{SessionID: "gone", Player: bob})

		require.Eventually(t, func() bool {
			_, _, notices := rec.snapshot()
			return len(notices) == 1
		}, 5*time.Second, 10*time.Millisecond)

		_, _, notices := rec.snapshot()
		assert.Equal(t, Notice{To: bob, Message: "Session not found."}, notices[0])
	})
}
