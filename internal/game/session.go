// Package game holds the client-side play loop: the per-task countdown,
// the task session state machine, and the replay cooldown tracker.
package game

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quizquest/quizquest-go/internal/api"
	"github.com/quizquest/quizquest-go/internal/model"
)

// SessionState is the task session lifecycle.
type SessionState int

const (
	StateIdle SessionState = iota
	StateLoading
	StateReady
	StateSubmitting
	StateExplaining
	StateAdvancing
	StateLevelComplete
	StateLevelLocked
)

// NotifyKind classifies user-facing notifications from the session.
type NotifyKind int

const (
	NotifyExplanation NotifyKind = iota
	NotifyIncorrect
	NotifyNoAttemptsLeft
	NotifyTimeout
	NotifyLevelLocked
	NotifyLoadFailed
	NotifySubmitFailed
)

// Notifier surfaces session events to the UI.
type Notifier interface {
	Notify(kind NotifyKind, message string)
}

// Navigator moves the UI between surfaces.
type Navigator interface {
	ToLevelSummary(levelID string)
}

// GameAPI is the slice of the backend client the session needs.
type GameAPI interface {
	NextTask(ctx context.Context, levelID string) (model.NextTaskResult, error)
	SubmitTask(ctx context.Context, taskID string, req model.SubmitRequest, idempotencyKey string) (model.SubmitResult, error)
}

// Attempt is the client-side record of the task currently on screen.
// It is replaced wholesale when the next task is fetched; a result
// arriving for a superseded attempt must not touch newer state.
type Attempt struct {
	Task      model.TaskView
	StartedAt time.Time
	Selected  map[string]struct{}
}

// TaskSession orchestrates the play loop for one level: fetch next
// task, arm the countdown, collect the selection, submit exactly once
// per attempt, interpret the verdict, advance or terminate.
type TaskSession struct {
	api       GameAPI
	timer     *AttemptTimer
	notifier  Notifier
	navigator Navigator
	log       zerolog.Logger

	// explanationDelay postpones summary navigation after a correct
	// final answer so the explanation can be read.
	explanationDelay time.Duration
	// schedule defaults to time.AfterFunc; injected in tests.
	schedule        func(d time.Duration, fn func())
	now             func() time.Time
	timerResolution time.Duration

	mu         sync.Mutex
	state      SessionState
	levelID    string
	epoch      uint64
	attempt    *Attempt
	submitting bool
	ctx        context.Context
}

// SessionOption customizes a TaskSession.
type SessionOption func(*TaskSession)

// WithExplanationDelay overrides the summary navigation delay.
func WithExplanationDelay(d time.Duration) SessionOption {
	return func(s *TaskSession) { s.explanationDelay = d }
}

// WithScheduler injects a deterministic scheduler for tests.
func WithScheduler(fn func(d time.Duration, fn func())) SessionOption {
	return func(s *TaskSession) { s.schedule = fn }
}

// WithSessionClock injects a deterministic clock for tests.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *TaskSession) { s.now = now }
}

// WithTimerResolution shortens the countdown tick for tests.
func WithTimerResolution(d time.Duration) SessionOption {
	return func(s *TaskSession) { s.timerResolution = d }
}

// NewTaskSession creates a session. The attempt timer is owned by the
// session so cancellation-on-supersede happens in a single code path.
func NewTaskSession(gameAPI GameAPI, notifier Notifier, navigator Navigator, log zerolog.Logger, opts ...SessionOption) *TaskSession {
	s := &TaskSession{
		api:              gameAPI,
		notifier:         notifier,
		navigator:        navigator,
		log:              log.With().Str("component", "task_session").Logger(),
		explanationDelay: 3 * time.Second,
		schedule:         func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
		now:              time.Now,
		state:            StateIdle,
		ctx:              context.Background(),
		timerResolution:  time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.timer = NewAttemptTimer(s.handleLocalTimeout, WithResolution(s.timerResolution))
	return s
}

// State returns the current session state.
func (s *TaskSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentAttempt returns a copy of the attempt on screen, if any.
func (s *TaskSession) CurrentAttempt() (Attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempt == nil {
		return Attempt{}, false
	}
	cp := *s.attempt
	cp.Selected = make(map[string]struct{}, len(s.attempt.Selected))
	for id := range s.attempt.Selected {
		cp.Selected[id] = struct{}{}
	}
	return cp, true
}

// Timer exposes the attempt timer for countdown display wiring.
func (s *TaskSession) Timer() *AttemptTimer {
	return s.timer
}

// LoadNext fetches the next task (or level-completion signal) for the
// level. It supersedes any outstanding attempt: the epoch is bumped
// first, so a late result from the previous attempt is discarded.
func (s *TaskSession) LoadNext(ctx context.Context, levelID string) error {
	s.mu.Lock()
	s.epoch++
	epoch := s.epoch
	s.levelID = levelID
	s.state = StateLoading
	s.attempt = nil
	s.submitting = false
	s.ctx = ctx
	s.mu.Unlock()

	// A stale timer must never fire against the task we are about to load.
	s.timer.Cancel()

	res, err := s.api.NextTask(ctx, levelID)

	s.mu.Lock()
	if epoch != s.epoch {
		// Superseded while in flight; a newer attempt owns the screen.
		s.mu.Unlock()
		return nil
	}

	if err != nil {
		if api.IsForbidden(err) {
			s.state = StateLevelLocked
			s.mu.Unlock()
			s.notifier.Notify(NotifyLevelLocked, "This level is locked")
			return err
		}
		s.state = StateIdle
		s.mu.Unlock()
		s.notifier.Notify(NotifyLoadFailed, "Could not load the next task")
		return err
	}

	switch res.Status {
	case model.NextStatusCompleted:
		s.state = StateLevelComplete
		s.mu.Unlock()
		s.navigator.ToLevelSummary(levelID)
		return nil

	case model.NextStatusLocked:
		s.state = StateLevelLocked
		s.mu.Unlock()
		s.notifier.Notify(NotifyLevelLocked, "This level is locked")
		return nil

	default:
		if res.Task == nil {
			s.state = StateIdle
			s.mu.Unlock()
			s.notifier.Notify(NotifyLoadFailed, "Backend returned no task")
			return nil
		}
		s.attempt = &Attempt{
			Task:      *res.Task,
			StartedAt: s.now(),
			Selected:  make(map[string]struct{}),
		}
		s.state = StateReady
		limit := res.Task.TimeLimitSec
		s.mu.Unlock()

		// Tasks without a limit never arm the timer; no timeout possible.
		if limit > 0 {
			s.timer.Arm(limit)
		}
		return nil
	}
}

// ToggleOption flips an option in the multi-select set. Selecting the
// same option twice deselects it. No network call.
func (s *TaskSession) ToggleOption(optionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady || s.attempt == nil {
		return
	}
	if _, ok := s.attempt.Selected[optionID]; ok {
		delete(s.attempt.Selected, optionID)
	} else {
		s.attempt.Selected[optionID] = struct{}{}
	}
}

// Submit sends the current selection. Guarded: a call with an empty
// selection, or while a submission is already in flight, is a no-op —
// at most one outstanding submission exists per attempt.
func (s *TaskSession) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateReady || s.attempt == nil || len(s.attempt.Selected) == 0 || s.submitting {
		s.mu.Unlock()
		return nil
	}
	s.submitting = true
	s.state = StateSubmitting
	epoch := s.epoch
	task := s.attempt.Task
	selected := make([]string, 0, len(s.attempt.Selected))
	for id := range s.attempt.Selected {
		selected = append(selected, id)
	}
	s.mu.Unlock()
	sort.Strings(selected)

	// Fresh transport-level key per call; the attempt token in the body
	// is the server's protocol-level anchor and is echoed verbatim.
	key := uuid.NewString()
	res, err := s.api.SubmitTask(ctx, task.TaskID, model.SubmitRequest{
		SelectedOptionIDs: selected,
		AttemptToken:      task.AttemptToken,
	}, key)

	s.mu.Lock()
	if epoch != s.epoch {
		// A newer attempt owns the screen; this verdict is irrelevant.
		s.mu.Unlock()
		return nil
	}
	s.submitting = false

	if err != nil {
		// Not retried automatically: a duplicate could create a second
		// logical attempt against a task with a pending server verdict.
		s.state = StateReady
		s.mu.Unlock()
		s.notifier.Notify(NotifySubmitFailed, "Submission failed, please try again")
		return err
	}

	levelID := s.levelID

	switch res.Result {
	case model.VerdictCorrect:
		s.state = StateExplaining
		s.mu.Unlock()
		s.timer.Cancel()
		if res.ExplanationText != "" {
			s.notifier.Notify(NotifyExplanation, res.ExplanationText)
		}
		if res.LevelCompleted {
			// Let the explanation be read before leaving the screen.
			s.schedule(s.explanationDelay, func() {
				s.mu.Lock()
				if epoch != s.epoch {
					s.mu.Unlock()
					return
				}
				s.state = StateLevelComplete
				s.mu.Unlock()
				s.navigator.ToLevelSummary(levelID)
			})
		}
		return nil

	case model.VerdictIncorrect:
		s.state = StateAdvancing
		s.mu.Unlock()
		if res.AttemptsLeft > 0 {
			s.notifier.Notify(NotifyIncorrect, "Incorrect — on to the next task")
		} else {
			s.notifier.Notify(NotifyNoAttemptsLeft, "Incorrect — no attempts left")
		}
		// The server already decided the next task either way.
		return s.LoadNext(ctx, levelID)

	default: // model.VerdictTimeout — the server's ruling, not the local timer
		s.state = StateAdvancing
		s.mu.Unlock()
		s.notifier.Notify(NotifyTimeout, "Time ran out for this task")
		return s.LoadNext(ctx, levelID)
	}
}

// Continue advances past the explanation of a correct, non-final
// answer. No-op outside the Explaining state.
func (s *TaskSession) Continue(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateExplaining {
		s.mu.Unlock()
		return nil
	}
	levelID := s.levelID
	s.mu.Unlock()
	return s.LoadNext(ctx, levelID)
}

// handleLocalTimeout runs when the attempt timer elapses while the
// task is still on screen. This is client-initiated recovery: no
// submission is sent for an elapsed timer, the next task is fetched.
func (s *TaskSession) handleLocalTimeout() {
	s.mu.Lock()
	if s.state != StateReady {
		// A submission is in flight or the screen moved on; the server
		// verdict owns the outcome.
		s.mu.Unlock()
		return
	}
	levelID := s.levelID
	ctx := s.ctx
	s.state = StateAdvancing
	s.mu.Unlock()

	s.notifier.Notify(NotifyTimeout, "Time is up")
	if err := s.LoadNext(ctx, levelID); err != nil {
		s.log.Warn().Err(err).Str("level_id", levelID).Msg("Load after local timeout failed")
	}
}
