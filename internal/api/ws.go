package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/quizquest/quizquest-go/internal/model"
)

// LeaderboardStream subscribes to live leaderboard updates for a level.
// The token travels as a query parameter because browsers cannot set
// headers on WebSocket upgrades; the dev server validates it the same
// way as a bearer header.
//
// The returned cancel function must be called to release the
// connection; the channel closes when the stream ends.
func (c *Client) LeaderboardStream(ctx context.Context, levelID, accessToken string) (<-chan model.Leaderboard, func(), error) {
	wsURL, err := c.wsEndpoint("/game/levels/"+url.PathEscape(levelID)+"/leaderboard/ws", accessToken)
	if err != nil {
		return nil, nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("dial leaderboard stream: %w", err)
	}

	updates := make(chan model.Leaderboard, 8)
	done := make(chan struct{})

	go func() {
		defer close(updates)
		for {
			var lb model.Leaderboard
			if err := conn.ReadJSON(&lb); err != nil {
				select {
				case <-done:
					// Cancelled by the caller; not an error.
				default:
					c.log.Debug().Err(err).Msg("Leaderboard stream closed")
				}
				return
			}
			select {
			case updates <- lb:
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = conn.Close()
		})
	}
	return updates, cancel, nil
}

func (c *Client) wsEndpoint(path, accessToken string) (string, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return "", fmt.Errorf("parse ws endpoint: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	if !strings.HasPrefix(u.Scheme, "ws") {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set("token", accessToken)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
