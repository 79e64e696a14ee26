package model

import "time"

// AnswerOption is a server-side answer option. Correct never leaves the
// server; TaskOption is the client-facing projection.
type AnswerOption struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Task is the server-side task definition.
type Task struct {
	ID           string         `json:"id"`
	Question     string         `json:"question"`
	Options      []AnswerOption `json:"options"`
	TimeLimitSec int            `json:"time_limit_sec"`
	Points       int            `json:"points"`
	MaxAttempts  int            `json:"max_attempts"`
	Explanation  string         `json:"explanation"`
}

// CorrectSet returns the IDs of the correct options.
func (t Task) CorrectSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, o := range t.Options {
		if o.Correct {
			set[o.ID] = struct{}{}
		}
	}
	return set
}

// ClientOptions projects the options without the correctness flags.
func (t Task) ClientOptions() []TaskOption {
	opts := make([]TaskOption, 0, len(t.Options))
	for _, o := range t.Options {
		opts = append(opts, TaskOption{ID: o.ID, Text: o.Text})
	}
	return opts
}

// Level is the server-side level definition. Seq orders levels; a level
// is locked until the previous one is completed.
type Level struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Seq   int    `json:"seq"`
	Tasks []Task `json:"tasks"`
}

// MaxScore sums the points of all tasks in the level.
func (l Level) MaxScore() int {
	total := 0
	for _, t := range l.Tasks {
		total += t.Points
	}
	return total
}

// PlayerProgress is the per-player state of one level, stored in Redis.
type PlayerProgress struct {
	Status       LevelStatus `json:"status"`
	TaskIndex    int         `json:"task_index"`
	Score        int         `json:"score"`
	AttemptsUsed int         `json:"attempts_used"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
}

// PendingAttempt binds an issued attempt token to the task instance it
// was minted for. Deadline already includes the timeout grace window.
type PendingAttempt struct {
	Token    string    `json:"token"`
	TaskID   string    `json:"task_id"`
	IssuedAt time.Time `json:"issued_at"`
	Deadline time.Time `json:"deadline"`
}
