// Package websocket fans leaderboard snapshots out to connected
// clients. The hub only routes bytes; producing snapshots is the
// worker's job.
package websocket

import "sync"

// subscriber buffer size. A slow reader loses intermediate snapshots,
// which is fine: only the latest leaderboard matters.
const subscriberBuffer = 8

// Hub routes per-level payloads to subscribers.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan []byte]struct{})}
}

// Subscribe registers interest in a level's updates. The returned
// cancel func must be called when the connection closes.
func (h *Hub) Subscribe(levelID string) (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)

	h.mu.Lock()
	if h.subs[levelID] == nil {
		h.subs[levelID] = make(map[chan []byte]struct{})
	}
	h.subs[levelID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[levelID], ch)
			if len(h.subs[levelID]) == 0 {
				delete(h.subs, levelID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Broadcast delivers a payload to every subscriber of the level. Full
// buffers are skipped rather than blocked on.
func (h *Hub) Broadcast(levelID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[levelID] {
		select {
		case ch <- payload:
		default:
		}
	}
}

// Subscribers reports the current subscriber count for a level.
func (h *Hub) Subscribers(levelID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[levelID])
}
