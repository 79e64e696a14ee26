package worker

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/quizquest/quizquest-go/internal/websocket"
)

// LeaderboardWorker bridges Redis PubSub to the WebSocket hub. Score
// changes are published per level; this worker forwards each snapshot
// to the subscribers of that level. Running it through PubSub keeps the
// fan-out correct when several server instances share one Redis.
type LeaderboardWorker struct {
	rdb *redis.Client
	hub *ws.Hub
	log zerolog.Logger
}

func NewLeaderboardWorker(rdb *redis.Client, hub *ws.Hub, log zerolog.Logger) *LeaderboardWorker {
	return &LeaderboardWorker{
		rdb: rdb,
		hub: hub,
		log: log.With().Str("component", "leaderboard_worker").Logger(),
	}
}

// Start blocks until ctx is cancelled, forwarding leaderboard updates.
func (w *LeaderboardWorker) Start(ctx context.Context) {
	w.log.Info().Msg("LeaderboardWorker started")

	psub := w.rdb.PSubscribe(ctx, "level:*:leaderboard:updates")
	defer psub.Close()

	ch := psub.Channel()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("LeaderboardWorker stopped")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			levelID := levelIDFromChannel(msg.Channel)
			if levelID == "" {
				w.log.Warn().Str("channel", msg.Channel).Msg("Unparseable channel name")
				continue
			}
			w.hub.Broadcast(levelID, []byte(msg.Payload))
		}
	}
}

// levelIDFromChannel extracts <id> from "level:<id>:leaderboard:updates".
func levelIDFromChannel(channel string) string {
	rest, ok := strings.CutPrefix(channel, "level:")
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, ":leaderboard:updates")
	if !ok {
		return ""
	}
	return id
}
