package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/carepath/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// StreamManager handles active SSE connections and the last state each one has seen.
type StreamManager struct {
	mu          sync.Mutex
	subscribers map[string]map[chan<- string]struct{} // SubscriptionID -> Set of Channels
	last        map[string]*domain.FlowState
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		last:        make(map[string]*domain.FlowState),
		logger:      logger,
	}
}

// Subscribe registers a listener for a subscription's flow.
func (sm *StreamManager) Subscribe(subscriptionID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[subscriptionID]; !ok {
		sm.subscribers[subscriptionID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[subscriptionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[subscriptionID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, subscriptionID)
				delete(sm.last, subscriptionID)
			}
		}
	}
}

// Publish sends the difference between the last published state and state.
// Nothing is tracked for subscriptions without listeners.
func (sm *StreamManager) Publish(state *domain.FlowState) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	subs, ok := sm.subscribers[state.SubscriptionID]
	if !ok {
		return
	}

	diff := domain.Diff(sm.last[state.SubscriptionID], state)
	sm.last[state.SubscriptionID] = state.Clone()
	if diff == nil {
		return
	}

	payload, err := json.Marshal(diff)
	if err != nil {
		sm.logger.Error("SSE: diff encode failed", "subscription_id", state.SubscriptionID, "err", err)
		return
	}

	for ch := range subs {
		select {
		case ch <- string(payload):
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: client buffer full, dropping message", "subscription_id", state.SubscriptionID)
		}
	}
}

// SubscribeEvents handles GET /subscriptions/{id}/flow/events (SSE).
// Each event is a domain.FlowDiff against the previous event; the first one carries the whole flow.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming not supported"), nil)
		return
	}

	id := chi.URLParam(r, "id")
	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Debug("SSE: subscribed", "subscription_id", id)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE: client disconnected", "subscription_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
