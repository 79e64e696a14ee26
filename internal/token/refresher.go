package token

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/quizquest/quizquest-go/internal/model"
)

// ErrNoRefreshToken is returned when a refresh is requested but the
// store holds no refresh token to exchange.
var ErrNoRefreshToken = errors.New("no refresh token available")

// RefreshFunc performs the actual backend exchange. Injected by the
// wiring layer to avoid a dependency on the HTTP client package.
type RefreshFunc func(ctx context.Context, refreshToken string) (model.Token, error)

// Refresher coordinates token refreshes. Concurrent callers share a
// single in-flight backend call and receive the same outcome.
type Refresher struct {
	store    *Store
	exchange RefreshFunc
	sf       singleflight.Group
	log      zerolog.Logger
}

// NewRefresher creates a Refresher bound to a store.
func NewRefresher(store *Store, exchange RefreshFunc, log zerolog.Logger) *Refresher {
	return &Refresher{
		store:    store,
		exchange: exchange,
		log:      log.With().Str("component", "token_refresher").Logger(),
	}
}

// Refresh exchanges the current refresh token for a new pair. On
// success the store is updated and all waiters receive the new token.
// On failure the store is cleared and the error is returned to all
// waiters; there is no automatic retry — a failed refresh usually
// means the refresh token itself is invalid or expired.
func (r *Refresher) Refresh(ctx context.Context) (model.Token, error) {
	v, err, shared := r.sf.Do("refresh", func() (interface{}, error) {
		cur, ok := r.store.Current()
		if !ok || !cur.HasRefresh() {
			return model.Token{}, ErrNoRefreshToken
		}

		fresh, err := r.exchange(ctx, cur.RefreshToken)
		if err != nil {
			r.log.Warn().Err(err).Msg("Refresh failed, clearing token store")
			r.store.Clear()
			return model.Token{}, err
		}

		r.store.Set(fresh)
		return fresh, nil
	})
	if err != nil {
		return model.Token{}, err
	}
	if shared {
		r.log.Debug().Msg("Refresh result shared with concurrent caller")
	}
	return v.(model.Token), nil
}
