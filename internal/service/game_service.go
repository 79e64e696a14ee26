package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quizquest/quizquest-go/internal/config"
	"github.com/quizquest/quizquest-go/internal/model"
	"github.com/quizquest/quizquest-go/internal/repository"
)

// Game flow errors.
var (
	ErrLevelNotFound     = errors.New("level not found")
	ErrLevelLocked       = errors.New("level locked")
	ErrLevelNotStarted   = errors.New("level not started")
	ErrLevelNotCompleted = errors.New("level not completed")
	ErrTaskNotFound      = errors.New("task not found")
	ErrAttemptMismatch   = errors.New("attempt token mismatch")
)

// CooldownActiveError rejects a replay while the cooldown is running.
type CooldownActiveError struct {
	Until time.Time
}

func (e *CooldownActiveError) Error() string {
	return fmt.Sprintf("replay on cooldown until %s", e.Until.Format(time.RFC3339))
}

// How long a graded verdict stays replayable under its Idempotency-Key.
const idempotencyTTL = 10 * time.Minute

// How long a minted attempt token survives without being submitted.
const pendingAttemptTTL = 24 * time.Hour

// GameService is the server-side authority for level progression,
// attempt grading and scoring. The client renders; this decides.
type GameService struct {
	cfg    *config.Config
	repo   *repository.PlayRepository
	levels []model.Level // ordered by Seq
	byID   map[string]int
	byTask map[string]string // task ID -> level ID
	log    zerolog.Logger
	now    func() time.Time
}

// NewGameService creates a GameService over a fixed level pack.
func NewGameService(cfg *config.Config, repo *repository.PlayRepository, levels []model.Level, log zerolog.Logger) *GameService {
	ordered := make([]model.Level, len(levels))
	copy(ordered, levels)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	byID := make(map[string]int, len(ordered))
	byTask := make(map[string]string)
	for i, l := range ordered {
		byID[l.ID] = i
		for _, t := range l.Tasks {
			byTask[t.ID] = l.ID
		}
	}

	return &GameService{
		cfg:    cfg,
		repo:   repo,
		levels: ordered,
		byID:   byID,
		byTask: byTask,
		log:    log.With().Str("component", "game_service").Logger(),
		now:    time.Now,
	}
}

// Levels returns the ordered level pack.
func (s *GameService) Levels() []model.Level {
	return s.levels
}

// ─── Level lifecycle ─────────────────────────────────────────────────

// Intro returns the pre-level screen data: status, score so far and the
// replay cooldown if one is running.
func (s *GameService) Intro(ctx context.Context, userID, levelID string) (model.LevelIntro, error) {
	level, idx, err := s.level(levelID)
	if err != nil {
		return model.LevelIntro{}, err
	}

	status, prog, err := s.status(ctx, userID, levelID, idx)
	if err != nil {
		return model.LevelIntro{}, err
	}

	intro := model.LevelIntro{
		LevelID:   level.ID,
		Title:     level.Title,
		Status:    status,
		MaxScore:  level.MaxScore(),
		TaskCount: len(level.Tasks),
	}
	if prog != nil {
		intro.Score = prog.Score
	}
	if status == model.LevelCompleted {
		until, err := s.repo.GetCooldown(ctx, userID, levelID)
		if err != nil {
			return model.LevelIntro{}, err
		}
		intro.ReplayAvailableAt = until
	}
	return intro, nil
}

// Start begins a level. Starting an already running level returns the
// current progress unchanged, so a reconnecting client resumes rather
// than resets.
func (s *GameService) Start(ctx context.Context, userID, levelID string) (model.LevelProgress, error) {
	level, idx, err := s.level(levelID)
	if err != nil {
		return model.LevelProgress{}, err
	}

	status, prog, err := s.status(ctx, userID, levelID, idx)
	if err != nil {
		return model.LevelProgress{}, err
	}
	if status == model.LevelLocked {
		return model.LevelProgress{}, ErrLevelLocked
	}
	if prog != nil {
		return s.progressView(ctx, userID, level, prog)
	}

	prog = &model.PlayerProgress{Status: model.LevelInProgress}
	if err := s.repo.SaveProgress(ctx, userID, levelID, prog); err != nil {
		return model.LevelProgress{}, err
	}

	s.log.Info().Str("user_id", userID).Str("level_id", levelID).Msg("Level started")
	return s.progressView(ctx, userID, level, prog)
}

// Replay restarts a completed level from scratch. Rejected with a
// CooldownActiveError while the replay cooldown is running.
func (s *GameService) Replay(ctx context.Context, userID, levelID string) (model.LevelProgress, error) {
	level, _, err := s.level(levelID)
	if err != nil {
		return model.LevelProgress{}, err
	}

	prog, err := s.repo.GetProgress(ctx, userID, levelID)
	if err != nil {
		return model.LevelProgress{}, err
	}
	if prog == nil || prog.Status != model.LevelCompleted {
		return model.LevelProgress{}, ErrLevelNotCompleted
	}

	until, err := s.repo.GetCooldown(ctx, userID, levelID)
	if err != nil {
		return model.LevelProgress{}, err
	}
	if until != nil && s.now().Before(*until) {
		return model.LevelProgress{}, &CooldownActiveError{Until: *until}
	}

	prog = &model.PlayerProgress{Status: model.LevelInProgress}
	if err := s.repo.SaveProgress(ctx, userID, levelID, prog); err != nil {
		return model.LevelProgress{}, err
	}
	if err := s.repo.DeletePendingAttempt(ctx, userID, levelID); err != nil {
		return model.LevelProgress{}, err
	}
	if err := s.repo.SetCooldown(ctx, userID, levelID, s.now().Add(s.cfg.ReplayCooldown)); err != nil {
		return model.LevelProgress{}, err
	}

	s.log.Info().Str("user_id", userID).Str("level_id", levelID).Msg("Level replay started")
	return s.progressView(ctx, userID, level, prog)
}

// ─── Tasks ───────────────────────────────────────────────────────────

// NextTask serves the task the player should see now. Each call mints a
// fresh attempt token; an earlier token for the level is superseded.
func (s *GameService) NextTask(ctx context.Context, userID, levelID string) (model.NextTaskResult, error) {
	level, idx, err := s.level(levelID)
	if err != nil {
		return model.NextTaskResult{}, err
	}

	status, prog, err := s.status(ctx, userID, levelID, idx)
	if err != nil {
		return model.NextTaskResult{}, err
	}
	if status == model.LevelLocked {
		return model.NextTaskResult{}, ErrLevelLocked
	}
	if prog == nil {
		return model.NextTaskResult{}, ErrLevelNotStarted
	}
	if prog.Status == model.LevelCompleted || prog.TaskIndex >= len(level.Tasks) {
		return model.NextTaskResult{Status: model.NextStatusCompleted}, nil
	}

	task := level.Tasks[prog.TaskIndex]
	attempt := &model.PendingAttempt{
		Token:    uuid.New().String(),
		TaskID:   task.ID,
		IssuedAt: s.now(),
	}
	if task.TimeLimitSec > 0 {
		attempt.Deadline = attempt.IssuedAt.
			Add(time.Duration(task.TimeLimitSec) * time.Second).
			Add(s.cfg.TimeoutGrace)
	}
	if err := s.repo.SavePendingAttempt(ctx, userID, levelID, attempt, pendingAttemptTTL); err != nil {
		return model.NextTaskResult{}, err
	}

	view := &model.TaskView{
		TaskID:       task.ID,
		LevelID:      level.ID,
		Question:     task.Question,
		Options:      task.ClientOptions(),
		AttemptToken: attempt.Token,
		TimeLimitSec: task.TimeLimitSec,
		AttemptsLeft: maxAttempts(task) - prog.AttemptsUsed,
	}
	return model.NextTaskResult{Status: model.NextStatusTask, Task: view}, nil
}

// Submit grades a submission. The attempt token must match the pending
// attempt minted by NextTask; duplicate deliveries under the same
// Idempotency-Key replay the original verdict.
func (s *GameService) Submit(ctx context.Context, userID, displayName, taskID string, req model.SubmitRequest, idemKey string) (model.SubmitResult, error) {
	if idemKey != "" {
		cached, err := s.repo.GetCachedSubmit(ctx, userID, idemKey)
		if err != nil {
			return model.SubmitResult{}, err
		}
		if cached != nil {
			s.log.Debug().Str("user_id", userID).Str("task_id", taskID).Msg("Replayed cached verdict")
			return *cached, nil
		}
	}

	levelID, ok := s.byTask[taskID]
	if !ok {
		return model.SubmitResult{}, ErrTaskNotFound
	}
	level := s.levels[s.byID[levelID]]

	prog, err := s.repo.GetProgress(ctx, userID, levelID)
	if err != nil {
		return model.SubmitResult{}, err
	}
	if prog == nil || prog.Status != model.LevelInProgress {
		return model.SubmitResult{}, ErrLevelNotStarted
	}

	pending, err := s.repo.GetPendingAttempt(ctx, userID, levelID)
	if err != nil {
		return model.SubmitResult{}, err
	}
	if pending == nil || pending.Token != req.AttemptToken || pending.TaskID != taskID {
		return model.SubmitResult{}, ErrAttemptMismatch
	}

	task := level.Tasks[prog.TaskIndex]
	if task.ID != taskID {
		// The pending attempt outlived a progress reset.
		return model.SubmitResult{}, ErrAttemptMismatch
	}

	res := s.grade(level, task, pending, req, prog)

	// The token is one-shot regardless of verdict.
	if err := s.repo.DeletePendingAttempt(ctx, userID, levelID); err != nil {
		return model.SubmitResult{}, err
	}

	if res.LevelCompleted {
		now := s.now()
		prog.Status = model.LevelCompleted
		prog.CompletedAt = &now
		if err := s.repo.RecordScore(ctx, levelID, userID, displayName, prog.Score); err != nil {
			return model.SubmitResult{}, err
		}
		if err := s.repo.SetCooldown(ctx, userID, levelID, now.Add(s.cfg.ReplayCooldown)); err != nil {
			return model.SubmitResult{}, err
		}
		if err := s.repo.PublishLeaderboard(ctx, levelID); err != nil {
			s.log.Warn().Err(err).Str("level_id", levelID).Msg("Leaderboard publish failed")
		}
		s.log.Info().
			Str("user_id", userID).
			Str("level_id", levelID).
			Int("score", prog.Score).
			Msg("Level completed")
	}

	if err := s.repo.SaveProgress(ctx, userID, levelID, prog); err != nil {
		return model.SubmitResult{}, err
	}

	if idemKey != "" {
		if err := s.repo.CacheSubmit(ctx, userID, idemKey, &res, idempotencyTTL); err != nil {
			s.log.Warn().Err(err).Msg("Idempotency cache write failed")
		}
	}
	return res, nil
}

// Leaderboard returns the current top-10 snapshot for a level.
func (s *GameService) Leaderboard(ctx context.Context, levelID string) (model.Leaderboard, error) {
	if _, _, err := s.level(levelID); err != nil {
		return model.Leaderboard{}, err
	}
	return s.repo.Leaderboard(ctx, levelID, 10)
}

// ─── Internals ───────────────────────────────────────────────────────

// grade applies the verdict rules and mutates prog accordingly.
func (s *GameService) grade(level model.Level, task model.Task, pending *model.PendingAttempt, req model.SubmitRequest, prog *model.PlayerProgress) model.SubmitResult {
	// Server-authoritative timeout: a submission after the deadline is a
	// timeout no matter what the client's own timer said.
	if !pending.Deadline.IsZero() && s.now().After(pending.Deadline) {
		completed := advance(prog, level)
		return model.SubmitResult{
			Result:         model.VerdictTimeout,
			LevelCompleted: completed,
		}
	}

	if selectionMatches(task.CorrectSet(), req.SelectedOptionIDs) {
		prog.Score += task.Points
		completed := advance(prog, level)
		return model.SubmitResult{
			Result:          model.VerdictCorrect,
			ScoreDelta:      task.Points,
			LevelCompleted:  completed,
			ExplanationText: task.Explanation,
		}
	}

	prog.AttemptsUsed++
	left := maxAttempts(task) - prog.AttemptsUsed
	if left <= 0 {
		completed := advance(prog, level)
		return model.SubmitResult{
			Result:         model.VerdictIncorrect,
			AttemptsLeft:   0,
			LevelCompleted: completed,
		}
	}
	return model.SubmitResult{
		Result:       model.VerdictIncorrect,
		AttemptsLeft: left,
	}
}

// advance moves progress to the next task and reports whether the level
// just ran out of tasks.
func advance(prog *model.PlayerProgress, level model.Level) bool {
	prog.TaskIndex++
	prog.AttemptsUsed = 0
	return prog.TaskIndex >= len(level.Tasks)
}

func (s *GameService) level(levelID string) (model.Level, int, error) {
	idx, ok := s.byID[levelID]
	if !ok {
		return model.Level{}, 0, ErrLevelNotFound
	}
	return s.levels[idx], idx, nil
}

// status derives the effective level status for a player. A level is
// locked while the preceding level is incomplete.
func (s *GameService) status(ctx context.Context, userID, levelID string, idx int) (model.LevelStatus, *model.PlayerProgress, error) {
	if idx > 0 {
		prev, err := s.repo.GetProgress(ctx, userID, s.levels[idx-1].ID)
		if err != nil {
			return "", nil, err
		}
		if prev == nil || prev.Status != model.LevelCompleted {
			return model.LevelLocked, nil, nil
		}
	}

	prog, err := s.repo.GetProgress(ctx, userID, levelID)
	if err != nil {
		return "", nil, err
	}
	if prog == nil {
		return model.LevelNotStarted, nil, nil
	}
	return prog.Status, prog, nil
}

func (s *GameService) progressView(ctx context.Context, userID string, level model.Level, prog *model.PlayerProgress) (model.LevelProgress, error) {
	view := model.LevelProgress{
		LevelID:  level.ID,
		Status:   prog.Status,
		Score:    prog.Score,
		MaxScore: level.MaxScore(),
	}
	if prog.Status == model.LevelCompleted {
		until, err := s.repo.GetCooldown(ctx, userID, level.ID)
		if err != nil {
			return model.LevelProgress{}, err
		}
		view.ReplayAvailableAt = until
	}
	return view, nil
}

func maxAttempts(task model.Task) int {
	if task.MaxAttempts <= 0 {
		return 1
	}
	return task.MaxAttempts
}

// selectionMatches requires exact set equality between the selected
// options and the correct options.
func selectionMatches(correct map[string]struct{}, selected []string) bool {
	seen := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		seen[id] = struct{}{}
	}
	if len(seen) != len(correct) {
		return false
	}
	for id := range correct {
		if _, ok := seen[id]; !ok {
			return false
		}
	}
	return true
}
