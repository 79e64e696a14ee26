package main

import (
	"fmt"
	"sync"

	"github.com/quizquest/quizquest-go/internal/game"
)

// consoleUI renders session events to the terminal. It implements both
// game.Notifier and game.Navigator.
type consoleUI struct {
	session *game.TaskSession

	mu      sync.Mutex
	options []string // option IDs of the task on screen, in display order

	done chan struct{}
	once sync.Once
}

func newConsoleUI() *consoleUI {
	return &consoleUI{done: make(chan struct{})}
}

// Notify prints session events and redraws the task when it changes.
func (ui *consoleUI) Notify(kind game.NotifyKind, message string) {
	switch kind {
	case game.NotifyExplanation:
		fmt.Printf("\nCorrect! %s\n(press c to continue)\n", message)
	case game.NotifyIncorrect, game.NotifyNoAttemptsLeft, game.NotifyTimeout:
		fmt.Printf("\n%s\n", message)
		ui.drawCurrentTask()
	case game.NotifyLevelLocked:
		fmt.Printf("\n%s\n", message)
		ui.finish()
	case game.NotifyLoadFailed, game.NotifySubmitFailed:
		fmt.Printf("\n%s\n", message)
	}
}

// ToLevelSummary ends the play loop.
func (ui *consoleUI) ToLevelSummary(levelID string) {
	fmt.Println("\nLevel finished!")
	ui.finish()
}

// toggleByNumber maps a 1-based display number to an option toggle.
func (ui *consoleUI) toggleByNumber(n int) {
	ui.mu.Lock()
	defer ui.mu.Unlock()
	if n < 1 || n > len(ui.options) {
		fmt.Println("No such option")
		return
	}
	ui.session.ToggleOption(ui.options[n-1])
	fmt.Printf("Toggled option %d\n", n)
}

// drawCurrentTask renders the attempt currently on screen, if any.
func (ui *consoleUI) drawCurrentTask() {
	attempt, ok := ui.session.CurrentAttempt()
	if !ok {
		return
	}
	task := attempt.Task

	ui.mu.Lock()
	ui.options = ui.options[:0]
	for _, o := range task.Options {
		ui.options = append(ui.options, o.ID)
	}
	ui.mu.Unlock()

	fmt.Printf("\n%s\n", task.Question)
	for i, o := range task.Options {
		fmt.Printf("  %d) %s\n", i+1, o.Text)
	}
	if task.TimeLimitSec > 0 {
		fmt.Printf("You have %d seconds.\n", task.TimeLimitSec)
	}
	if task.AttemptsLeft > 0 {
		fmt.Printf("Attempts left: %d\n", task.AttemptsLeft)
	}
}

func (ui *consoleUI) finish() {
	ui.once.Do(func() { close(ui.done) })
}
