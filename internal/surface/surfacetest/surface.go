// Package surfacetest provides an in-memory surface.Surface that lets tests
// play the part of the players.
package surfacetest

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/minigames-backend/internal/entity"
	"github.com/rocketscienceinc/minigames-backend/internal/surface"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type Notice struct {
	To      entity.Player
	Message string
}

type pending struct {
	prompt surface.Prompt
	answer chan surface.Response
}

type Surface struct {
	mu      sync.Mutex
	open    map[string]*pending
	notices []Notice
}

func New() *Surface {
	return &Surface{
		open: make(map[string]*pending),
	}
}

func (that *Surface) Present(ctx context.Context, prompt surface.Prompt) (surface.Response, error) {
	p := &pending{prompt: prompt, answer: make(chan surface.Response, 1)}

	that.mu.Lock()
	that.open[prompt.ID] = p
	that.mu.Unlock()

	defer func() {
		that.mu.Lock()
		if that.open[prompt.ID] == p {
			delete(that.open, prompt.ID)
		}
		that.mu.Unlock()
	}()

	select {
	case resp := <-p.answer:
		return resp, nil
	case <-ctx.Done():
		return surface.Response{}, ctx.Err()
	}
}

func (that *Surface) Notify(_ context.Context, players []entity.Player, message string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, player := range players {
		that.notices = append(that.notices, Notice{To: player, Message: message})
	}
}

// Await waits until a prompt for the given step is open for player.
func (that *Surface) Await(t testing.TB, player entity.Player, step string) surface.Prompt {
	t.Helper()

	var found surface.Prompt
	require.Eventually(t, func() bool {
		prompt, ok := that.find(player, step)
		if ok {
			found = prompt
		}
		return ok
	}, waitFor, tick, "no %q prompt for %s", step, player.ID)

	return found
}

// AwaitReplaced waits until old is withdrawn and another prompt of the same
// step is open for the same player.
func (that *Surface) AwaitReplaced(t testing.TB, old surface.Prompt) surface.Prompt {
	t.Helper()

	var found surface.Prompt
	require.Eventually(t, func() bool {
		that.mu.Lock()
		_, stillOpen := that.open[old.ID]
		that.mu.Unlock()

		prompt, ok := that.find(old.To, old.Step)
		if ok && !stillOpen {
			found = prompt
		}
		return ok && !stillOpen
	}, waitFor, tick, "%q prompt for %s was never replaced", old.Step, old.To.ID)

	return found
}

// Pending reports whether a prompt for the given step is open for player.
func (that *Surface) Pending(player entity.Player, step string) bool {
	_, ok := that.find(player, step)
	return ok
}

// Lookup returns the open prompt for the given step of player, if any.
func (that *Surface) Lookup(player entity.Player, step string) (surface.Prompt, bool) {
	return that.find(player, step)
}

// OpenCount returns the number of prompts currently being presented.
func (that *Surface) OpenCount() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.open)
}

func (that *Surface) find(player entity.Player, step string) (surface.Prompt, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, p := range that.open {
		if p.prompt.To.Equal(player) && p.prompt.Step == step {
			return p.prompt, true
		}
	}

	return surface.Prompt{}, false
}

// Answer delivers resp to an open prompt. The prompt stops being open
// before the answer is delivered.
func (that *Surface) Answer(t testing.TB, prompt surface.Prompt, resp surface.Response) {
	t.Helper()

	require.True(t, that.TryAnswer(prompt, resp), "prompt %s is not open", prompt.Key)
}

// TryAnswer delivers resp if prompt is still open and reports whether it was.
func (that *Surface) TryAnswer(prompt surface.Prompt, resp surface.Response) bool {
	that.mu.Lock()
	p, ok := that.open[prompt.ID]
	if ok {
		delete(that.open, prompt.ID)
	}
	that.mu.Unlock()

	if ok {
		p.answer <- resp
	}

	return ok
}

func (that *Surface) Select(t testing.TB, prompt surface.Prompt, actor entity.Player, value string) {
	t.Helper()
	that.Answer(t, prompt, surface.Response{Kind: surface.Selected, Actor: actor, Value: value})
}

func (that *Surface) Cancel(t testing.TB, prompt surface.Prompt, actor entity.Player) {
	t.Helper()
	that.Answer(t, prompt, surface.Response{Kind: surface.Cancelled, Actor: actor})
}

func (that *Surface) Expire(t testing.TB, prompt surface.Prompt) {
	t.Helper()
	that.Answer(t, prompt, surface.Response{Kind: surface.TimedOut})
}

// Notices returns every message delivered to player so far.
func (that *Surface) Notices(player entity.Player) []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	var messages []string
	for _, notice := range that.notices {
		if notice.To.Equal(player) {
			messages = append(messages, notice.Message)
		}
	}

	return messages
}

// AwaitNotice waits until player received a message containing substr.
func (that *Surface) AwaitNotice(t testing.TB, player entity.Player, substr string) {
	t.Helper()

	require.Eventually(t, func() bool {
		for _, message := range that.Notices(player) {
			if strings.Contains(message, substr) {
				return true
			}
		}
		return false
	}, waitFor, tick, "%s never received %q", player.ID, substr)
}
