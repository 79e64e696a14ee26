// Command play is a terminal client for the QuizQuest game server. It
// drives the same session machinery a graphical client would: token
// refresh happens transparently, countdowns run locally and verdicts
// come from the server.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/quizquest/quizquest-go/internal/api"
	"github.com/quizquest/quizquest-go/internal/config"
	"github.com/quizquest/quizquest-go/internal/game"
	"github.com/quizquest/quizquest-go/internal/logger"
	"github.com/quizquest/quizquest-go/internal/model"
	"github.com/quizquest/quizquest-go/internal/token"
	"github.com/quizquest/quizquest-go/internal/transport"
)

func main() {
	var (
		levelID  = flag.String("level", "warmup", "Level to play")
		username = flag.String("user", "demo", "Username to log in with")
		watch    = flag.Bool("watch", false, "Stream leaderboard updates after the level ends")
	)
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Wire the authorized client ────────────────────────────────────
	// The api.Client and the refresher reference each other, so the
	// client pointer is bound late through the exchange closure.
	store := token.NewStore(token.WithSkew(cfg.TokenSkew))

	var client *api.Client
	refresher := token.NewRefresher(store, func(ctx context.Context, rt string) (model.Token, error) {
		return client.Refresh(ctx, rt)
	}, log)

	hooks := transport.Hooks{
		OnSessionExpired: func() {
			fmt.Println("\nYour session has expired. Please log in again.")
		},
		OnPayloadTooLarge: func() {
			fmt.Println("\nThe submission was too large and was rejected.")
		},
	}
	authorized := &http.Client{
		Timeout:   cfg.HTTPTimeout,
		Transport: transport.NewAuthorizer(nil, store, refresher, hooks, log),
	}
	client = api.New(cfg.BaseURL, authorized, log)

	// ─── Login ─────────────────────────────────────────────────────────
	fmt.Printf("Password for %s: ", *username)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not read password")
	}

	tok, err := client.Login(ctx, *username, strings.TrimSpace(string(password)))
	if err != nil {
		log.Fatal().Err(err).Msg("Login failed")
	}
	store.Set(tok)
	fmt.Printf("Logged in as %s.\n\n", *username)

	// ─── Level intro ───────────────────────────────────────────────────
	intro, err := client.LevelIntro(ctx, *levelID)
	if err != nil {
		log.Fatal().Err(err).Str("level_id", *levelID).Msg("Could not load level")
	}
	fmt.Printf("=== %s ===\n%d tasks, up to %d points.\n\n", intro.Title, intro.TaskCount, intro.MaxScore)

	if err := enterLevel(ctx, client, intro.Status == "completed", *levelID); err != nil {
		log.Fatal().Err(err).Msg("Could not enter level")
	}

	// ─── Play loop ─────────────────────────────────────────────────────
	ui := newConsoleUI()
	session := game.NewTaskSession(client, ui, ui, log)
	ui.session = session

	if err := session.LoadNext(ctx, *levelID); err != nil {
		log.Fatal().Err(err).Msg("Could not load first task")
	}
	ui.drawCurrentTask()

	runLoop(ctx, session, ui)

	// ─── Summary ───────────────────────────────────────────────────────
	printLeaderboard(ctx, client, *levelID)
	if *watch {
		watchLeaderboard(ctx, client, store, *levelID)
	}
}

// enterLevel starts or replays the level depending on its status.
func enterLevel(ctx context.Context, client *api.Client, completed bool, levelID string) error {
	if !completed {
		_, err := client.StartLevel(ctx, levelID)
		return err
	}

	_, err := client.ReplayLevel(ctx, levelID)
	if cd, ok := api.AsCooldown(err); ok {
		fmt.Println(game.CooldownMessage(cd.RetryAfter, time.Now()))
		os.Exit(0)
	}
	return err
}

// runLoop reads player commands until the session leaves the level.
func runLoop(ctx context.Context, session *game.TaskSession, ui *consoleUI) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-ui.done:
			return
		default:
		}

		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		input := strings.TrimSpace(scanner.Text())

		switch {
		case input == "q":
			return
		case input == "s":
			if err := session.Submit(ctx); err != nil && !errors.Is(err, context.Canceled) {
				continue
			}
		case input == "c":
			_ = session.Continue(ctx)
			ui.drawCurrentTask()
		default:
			if n, err := strconv.Atoi(input); err == nil {
				ui.toggleByNumber(n)
			} else {
				fmt.Println("Commands: <number> toggle option, s submit, c continue, q quit")
			}
		}
	}
}

func printLeaderboard(ctx context.Context, client *api.Client, levelID string) {
	lb, err := client.Leaderboard(ctx, levelID)
	if err != nil {
		return
	}
	fmt.Println("\n─── Leaderboard ───")
	for i, e := range lb.Entries {
		fmt.Printf("%2d. %-20s %d\n", i+1, e.DisplayName, e.Score)
	}
}

func watchLeaderboard(ctx context.Context, client *api.Client, store *token.Store, levelID string) {
	cur, ok := store.Current()
	if !ok {
		return
	}
	updates, stop, err := client.LeaderboardStream(ctx, levelID, cur.AccessToken)
	if err != nil {
		fmt.Println("Leaderboard stream unavailable:", err)
		return
	}
	defer stop()

	fmt.Println("\nWatching leaderboard (Ctrl-C to quit)...")
	for lb := range updates {
		fmt.Printf("\n[%s]\n", lb.UpdatedAt.Format("15:04:05"))
		for i, e := range lb.Entries {
			fmt.Printf("%2d. %-20s %d\n", i+1, e.DisplayName, e.Score)
		}
	}
}
