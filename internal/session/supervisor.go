package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/minigames-backend/internal/apperror"
	"github.com/rocketscienceinc/minigames-backend/internal/entity"
	"github.com/rocketscienceinc/minigames-backend/internal/surface"
)

type Status string

const (
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
	StatusExpired  Status = "expired"
	StatusFailed   Status = "failed"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrReopenUnsupported = errors.New("this game has no board to reopen")
)

const (
	timedOutMessage = "This game has timed out..."
	stoppedMessage  = "This game has been stopped."
	failedMessage   = "Something went wrong, this game has been stopped."
)

// Result is the terminal state of a session.
type Result struct {
	Status  Status
	Outcome Outcome
	Err     error
}

type Session struct {
	ID      string
	Kind    string
	Players []entity.Player

	engine  Engine
	ceiling time.Duration
	reopen  chan reopenRequest
	done    chan struct{}

	mu     sync.RWMutex
	result Result
}

type StartOption func(*Session)

// WithCeiling bounds the whole session regardless of per-prompt deadlines.
func WithCeiling(ceiling time.Duration) StartOption {
	return func(sess *Session) {
		sess.ceiling = ceiling
	}
}

func (that *Session) Done() <-chan struct{} {
	return that.done
}

func (that *Session) Result() Result {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.result
}

func (that *Session) Status() Status {
	return that.Result().Status
}

// Wait blocks until the session ends or ctx is done.
func (that *Session) Wait(ctx context.Context) (Result, error) {
	select {
	case <-that.done:
		return that.Result(), nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (that *Session) finish(result Result) {
	that.mu.Lock()
	that.result = result
	that.mu.Unlock()

	close(that.done)
}

type reopenRequest struct {
	player entity.Player
	reply  chan error
}

// Recorder keeps the result of every session that ended.
type Recorder interface {
	Record(ctx context.Context, sess *Session, result Result) error
}

// Supervisor owns every running session. Each session runs in its own
// goroutine and is the only writer of its engine.
type Supervisor struct {
	logger      *slog.Logger
	surface     surface.Surface
	moveTimeout time.Duration
	recorder    Recorder

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSupervisor(logger *slog.Logger, surface surface.Surface, moveTimeout time.Duration) *Supervisor {
	return &Supervisor{
		logger:      logger.With("component", "supervisor"),
		surface:     surface,
		moveTimeout: moveTimeout,
		sessions:    make(map[string]*Session),
	}
}

// WithRecorder makes the supervisor hand every terminal result to recorder.
func (that *Supervisor) WithRecorder(recorder Recorder) *Supervisor {
	that.recorder = recorder
	return that
}

// Start runs engine in a new session until it reaches a terminal state.
func (that *Supervisor) Start(ctx context.Context, engine Engine, opts ...StartOption) *Session {
	sess := &Session{
		ID:      uuid.NewString(),
		Kind:    engine.Kind(),
		Players: engine.Players(),
		engine:  engine,
		reopen:  make(chan reopenRequest),
		done:    make(chan struct{}),
		result:  Result{Status: StatusRunning},
	}

	for _, opt := range opts {
		opt(sess)
	}

	that.mu.Lock()
	that.sessions[sess.ID] = sess
	that.mu.Unlock()

	that.logger.Info("session started", "session_id", sess.ID, "kind", sess.Kind)

	go that.run(ctx, sess)

	return sess
}

func (that *Supervisor) Get(id string) (*Session, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	sess, ok := that.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	return sess, nil
}

// Active returns the number of running sessions.
func (that *Supervisor) Active() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.sessions)
}

// Reopen re-issues the board presentation of player in session id.
func (that *Supervisor) Reopen(ctx context.Context, id string, player entity.Player) error {
	sess, err := that.Get(id)
	if err != nil {
		return err
	}

	req := reopenRequest{player: player, reply: make(chan error, 1)}

	select {
	case sess.reopen <- req:
	case <-sess.done:
		return apperror.ErrGameFinished
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err = <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (that *Supervisor) run(parent context.Context, sess *Session) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)

	if sess.ceiling > 0 {
		ctx, cancel = context.WithTimeout(parent, sess.ceiling)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	defer cancel()

	r := &runner{
		supervisor: that,
		sess:       sess,
		engine:     sess.engine,
		log:        that.logger.With("session_id", sess.ID, "kind", sess.Kind),
		ctx:        ctx,
		answers:    make(chan answer),
		open:       make(map[string]*presentation),
		deadlines:  make(map[string]time.Time),
	}

	result := r.loop()
	r.withdrawAll()

	if that.recorder != nil {
		if err := that.recorder.Record(context.WithoutCancel(ctx), sess, result); err != nil {
			r.log.Error("failed to record session result", "error", err)
		}
	}

	that.mu.Lock()
	delete(that.sessions, sess.ID)
	that.mu.Unlock()

	sess.finish(result)
}

type answer struct {
	key      string
	promptID string
	resp     surface.Response
	err      error
	expired  bool
}

type presentation struct {
	prompt surface.Prompt
	cancel context.CancelFunc
}

// runner is the per-session loop state; it is only touched by the session goroutine.
type runner struct {
	supervisor *Supervisor
	sess       *Session
	engine     Engine
	log        *slog.Logger
	ctx        context.Context

	answers   chan answer
	open      map[string]*presentation
	// deadlines is keyed by prompt clock, not by prompt key.
	deadlines map[string]time.Time
}

func (that *runner) loop() (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			result = that.fail(fmt.Errorf("%w: panic: %v", apperror.ErrInvariant, rec))
		}
	}()

	for {
		if outcome, ok := that.engine.Terminal(); ok {
			that.log.Info("session finished", "reason", outcome.Reason, "winner", winnerID(outcome))
			return Result{Status: StatusFinished, Outcome: outcome}
		}

		that.sync()

		select {
		case <-that.ctx.Done():
			if errors.Is(that.ctx.Err(), context.DeadlineExceeded) {
				return that.expire(timedOutMessage)
			}
			return that.expire(stoppedMessage)
		case a := <-that.answers:
			if res, done := that.handle(a); done {
				return res
			}
		case req := <-that.sess.reopen:
			req.reply <- that.reopen(req.player)
		}
	}
}

// sync makes the set of presented prompts match what the engine has open.
func (that *runner) sync() {
	prompts := that.engine.Prompts()
	current := make(map[string]struct{}, len(prompts))
	clocks := make(map[string]struct{}, len(prompts))

	for _, prompt := range prompts {
		current[prompt.Key] = struct{}{}
		clocks[prompt.Clock()] = struct{}{}
		if _, ok := that.open[prompt.Key]; !ok {
			that.present(prompt)
		}
	}

	for key, p := range that.open {
		if _, ok := current[key]; !ok {
			p.cancel()
			delete(that.open, key)
		}
	}

	for clock := range that.deadlines {
		if _, ok := clocks[clock]; !ok {
			delete(that.deadlines, clock)
		}
	}
}

// present keeps one deadline per clock across re-presentations and sub-steps.
func (that *runner) present(prompt surface.Prompt) {
	deadline, ok := that.deadlines[prompt.Clock()]
	if !ok {
		deadline = time.Now().Add(that.supervisor.moveTimeout)
		that.deadlines[prompt.Clock()] = deadline
	}

	prompt.ID = uuid.NewString()
	prompt.Deadline = deadline

	pctx, cancel := context.WithDeadline(that.ctx, deadline)
	that.open[prompt.Key] = &presentation{prompt: prompt, cancel: cancel}

	go func() {
		resp, err := that.supervisor.surface.Present(pctx, prompt)
		a := answer{
			key:      prompt.Key,
			promptID: prompt.ID,
			resp:     resp,
			err:      err,
			expired:  errors.Is(pctx.Err(), context.DeadlineExceeded),
		}

		select {
		case that.answers <- a:
		case <-that.ctx.Done():
		}
	}()
}

func (that *runner) withdrawAll() {
	for key, p := range that.open {
		p.cancel()
		delete(that.open, key)
	}
}

func (that *runner) handle(a answer) (Result, bool) {
	p, ok := that.open[a.key]
	if !ok || p.prompt.ID != a.promptID {
		if a.err == nil && a.resp.Kind == surface.Selected {
			that.reject(a.resp.Actor, apperror.ErrStaleView)
		}
		return Result{}, false
	}

	p.cancel()
	delete(that.open, a.key)

	switch {
	case a.expired, a.err == nil && a.resp.Kind == surface.TimedOut:
		return that.expire(timedOutMessage), true
	case a.err != nil:
		return that.fail(fmt.Errorf("present %s: %w", a.key, a.err)), true
	}

	actor := a.resp.Actor
	log := that.log.With("key", a.key, "player_id", actor.ID)

	switch a.resp.Kind {
	case surface.Cancelled:
		if !actor.Equal(p.prompt.To) {
			that.reject(actor, that.foreign(actor))
			return Result{}, false
		}

		log.Debug("step cancelled")
		that.deliver(that.engine.Cancel(a.key, actor))
	case surface.Selected:
		if err := that.engine.Validate(a.key, actor, a.resp.Value); err != nil {
			if !apperror.IsValidation(err) {
				return that.fail(err), true
			}

			log.Debug("selection rejected", "value", a.resp.Value, "reason", err)
			that.reject(actor, err)
			return Result{}, false
		}

		notices, err := that.engine.Apply(a.key, actor, a.resp.Value)
		if err != nil {
			return that.fail(fmt.Errorf("apply %s: %w", a.key, err)), true
		}

		that.deliver(notices)
	default:
		return that.fail(fmt.Errorf("%w: unknown response kind %q", apperror.ErrInvariant, a.resp.Kind)), true
	}

	return Result{}, false
}

func (that *runner) reopen(player entity.Player) error {
	reopener, ok := that.engine.(Reopener)
	if !ok {
		return ErrReopenUnsupported
	}

	notice, err := reopener.Reopen(player)
	if err != nil {
		return err
	}

	that.deliver([]Notice{notice})

	return nil
}

func (that *runner) foreign(actor entity.Player) error {
	for _, player := range that.sess.Players {
		if player.Equal(actor) {
			return apperror.ErrNotForYou
		}
	}

	return apperror.ErrNotParticipant
}

func (that *runner) reject(actor entity.Player, err error) {
	that.supervisor.surface.Notify(that.notifyCtx(), []entity.Player{actor}, apperror.Sentence(err))
}

func (that *runner) deliver(notices []Notice) {
	for _, notice := range notices {
		message := notice.Message
		if notice.View != "" {
			message += "\n\n" + notice.View
		}

		that.supervisor.surface.Notify(that.notifyCtx(), notice.To, message)
	}
}

func (that *runner) expire(message string) Result {
	that.log.Warn("session expired", "reason", message)
	that.supervisor.surface.Notify(that.notifyCtx(), that.sess.Players, message)

	return Result{Status: StatusExpired}
}

func (that *runner) fail(err error) Result {
	that.log.Error("session failed", "error", err)
	that.supervisor.surface.Notify(that.notifyCtx(), that.sess.Players, failedMessage)

	return Result{Status: StatusFailed, Err: err}
}

// notifyCtx outlives the session so terminal notices still go out.
func (that *runner) notifyCtx() context.Context {
	return context.WithoutCancel(that.ctx)
}

func winnerID(outcome Outcome) string {
	if outcome.Winner == nil {
		return ""
	}
	return outcome.Winner.ID
}
