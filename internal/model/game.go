package model

import "time"

// LevelStatus mirrors the server-side progression state of a level.
// The client never computes Completed/Locked on its own.
type LevelStatus string

const (
	LevelNotStarted LevelStatus = "not_started"
	LevelInProgress LevelStatus = "in_progress"
	LevelCompleted  LevelStatus = "completed"
	LevelLocked     LevelStatus = "locked"
)

// LevelIntro is the metadata shown before a level is started or replayed.
type LevelIntro struct {
	LevelID           string      `json:"level_id"`
	Title             string      `json:"title"`
	Status            LevelStatus `json:"status"`
	Score             int         `json:"score"`
	MaxScore          int         `json:"max_score"`
	TaskCount         int         `json:"task_count"`
	ReplayAvailableAt *time.Time  `json:"replay_available_at,omitempty"`
}

// LevelProgress is the per-user progression state returned by start/replay.
type LevelProgress struct {
	LevelID           string      `json:"level_id"`
	Status            LevelStatus `json:"status"`
	Score             int         `json:"score"`
	MaxScore          int         `json:"max_score"`
	ReplayAvailableAt *time.Time  `json:"replay_available_at,omitempty"`
}

// TaskOption is a selectable answer option. Correctness is never sent
// to the client before the task is resolved.
type TaskOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// TaskView is a single task as served to the player. AttemptToken is a
// server-issued opaque value binding a submission to this task instance
// and must be echoed back verbatim on submit.
type TaskView struct {
	TaskID       string       `json:"task_id"`
	LevelID      string       `json:"level_id"`
	Question     string       `json:"question"`
	Options      []TaskOption `json:"options"`
	AttemptToken string       `json:"attempt_token"`
	// TimeLimitSec is the effective time limit; zero means no limit.
	TimeLimitSec int `json:"time_limit_sec_effective"`
	AttemptsLeft int `json:"attempts_left"`
}

// NextTaskStatus tells the client whether a task follows or the level
// progression has ended.
type NextTaskStatus string

const (
	NextStatusTask      NextTaskStatus = "task"
	NextStatusCompleted NextTaskStatus = "completed"
	NextStatusLocked    NextTaskStatus = "locked"
)

// NextTaskResult is the response of the next-task endpoint.
type NextTaskResult struct {
	Status NextTaskStatus `json:"status"`
	Task   *TaskView      `json:"task,omitempty"`
}

// SubmitRequest carries the player's answer. AttemptToken is the
// protocol-level anchor; the transport-level Idempotency-Key travels
// as a header, not in the body.
type SubmitRequest struct {
	SelectedOptionIDs []string `json:"selected_option_ids" binding:"required,min=1"`
	AttemptToken      string   `json:"attempt_token" binding:"required"`
}

// SubmitVerdict is the server's ruling on a submission.
type SubmitVerdict string

const (
	VerdictCorrect   SubmitVerdict = "correct"
	VerdictIncorrect SubmitVerdict = "incorrect"
	VerdictTimeout   SubmitVerdict = "timeout"
)

// SubmitResult is the outcome of a task submission.
type SubmitResult struct {
	Result          SubmitVerdict `json:"result"`
	AttemptsLeft    int           `json:"attempts_left"`
	LevelCompleted  bool          `json:"level_completed"`
	ScoreDelta      int           `json:"score_delta"`
	ExplanationText string        `json:"explanation_text,omitempty"`
}

// LeaderboardEntry is one row of a level leaderboard.
type LeaderboardEntry struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Score       int    `json:"score"`
}

// Leaderboard is an ordered scoreboard snapshot for a level. It is also
// the payload pushed over the leaderboard WebSocket stream.
type Leaderboard struct {
	LevelID   string             `json:"level_id"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updated_at"`
}
