package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/minigames-backend/internal/entity"
	"github.com/rocketscienceinc/minigames-backend/internal/surface"
	"github.com/rocketscienceinc/minigames-backend/testing/suite"
)

var (
	alice = entity.Player{ID: "1", Name: "alice"}
	bob   = entity.Player{ID: "2", Name: "bob"}
	carol = entity.Player{ID: "3", Name: "carol"}
)

func testPrompt() surface.Prompt {
	return surface.Prompt{
		ID:       "prompt-1",
		Key:      "cell/0",
		Step:     "cell",
		To:       alice,
		Text:     "It is now X alice's turn.",
		Options:  []surface.Option{{Value: "0,0", Label: "."}},
		Deadline: time.Now().Add(time.Minute).UTC(),
	}
}

type presented struct {
	resp surface.Response
	err  error
}

func present(ctx context.Context, s *Surface, prompt surface.Prompt) <-chan presented {
	out := make(chan presented, 1)
	go func() {
		resp, err := s.Present(ctx, prompt)
		out <- presented{resp: resp, err: err}
	}()

	return out
}

func TestSurface_Present(t *testing.T) {
	t.Run("First well-formed answer is returned", func(t *testing.T) {
		ctx, st := suite.New(t)
		s := NewSurface(st.Logger, st.Storage)
		prompts := st.Listen(ctx, PromptChannel(alice.ID))

		// Given: a prompt presented to alice
		prompt := testPrompt()
		result := present(ctx, s, prompt)

		var published surface.Prompt
		require.NoError(t, json.Unmarshal([]byte(st.Next(prompts).Payload), &published))
		assert.Equal(t, prompt.Key, published.Key)
		assert.Equal(t, prompt.Options, published.Options)
		assert.True(t, prompt.Deadline.Equal(published.Deadline))

		// When: garbage and then an answer arrive
		require.NoError(t, st.Storage.Publish(ctx, AnswerChannel(prompt.ID), "{not json").Err())
		answer, err := json.Marshal(surface.Response{Kind: surface.Selected, Actor: alice, Value: "0,0"})
		require.NoError(t, err)
		require.NoError(t, st.Storage.Publish(ctx, AnswerChannel(prompt.ID), answer).Err())

		// Then: the answer is returned
		select {
		case got := <-result:
			require.NoError(t, got.err)
			assert.Equal(t, surface.Response{Kind: surface.Selected, Actor: alice, Value: "0,0"}, got.resp)
		case <-time.After(5 * time.Second):
			t.Fatal("Present did not return")
		}
	})

	t.Run("Done context withdraws the prompt", func(t *testing.T) {
		ctx, st := suite.New(t)
		s := NewSurface(st.Logger, st.Storage)
		prompts := st.Listen(ctx, PromptChannel(alice.ID))
		withdrawals := st.Listen(ctx, WithdrawChannel(alice.ID))

		// Given: a prompt presented to alice
		presentCtx, cancel := context.WithCancel(ctx)
		result := present(presentCtx, s, testPrompt())
		st.Next(prompts)

		// When: the presentation is cancelled
		cancel()

		// Then: Present returns the context error and the front end is told
		select {
		case got := <-result:
			require.ErrorIs(t, got.err, context.Canceled)
		case <-time.After(5 * time.Second):
			t.Fatal("Present did not return")
		}

		var withdrawal Withdrawal
		require.NoError(t, json.Unmarshal([]byte(st.Next(withdrawals).Payload), &withdrawal))
		assert.Equal(t, "prompt-1", withdrawal.PromptID)
	})
}

func TestSurface_Notify(t *testing.T) {
	ctx, st := suite.New(t)
	s := NewSurface(st.Logger, st.Storage)
	aliceNotices := st.Listen(ctx, NoticeChannel(alice.ID))
	bobNotices := st.Listen(ctx, NoticeChannel(bob.ID))

	// When: both players are notified
	s.Notify(ctx, []entity.Player{alice, bob}, "It's a tie!")

	// Then: each gets the message on their own channel
	var notice Notice
	require.NoError(t, json.Unmarshal([]byte(st.Next(aliceNotices).Payload), &notice))
	assert.Equal(t, Notice{To: alice, Message: "It's a tie!"}, notice)

	require.NoError(t, json.Unmarshal([]byte(st.Next(bobNotices).Payload), &notice))
	assert.Equal(t, Notice{To: bob, Message: "It's a tie!"}, notice)
}
