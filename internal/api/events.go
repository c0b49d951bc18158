package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// EventHub fans pipeline events out to connected front ends over
// Server-Sent Events. It implements report.Observer.
type EventHub struct {
	mu          sync.RWMutex
	subscribers map[string]chan []byte
}

// NewEventHub creates an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{
		subscribers: make(map[string]chan []byte),
	}
}

// Emit publishes an event to every connected subscriber. Slow clients
// are skipped rather than blocking the pipeline.
func (h *EventHub) Emit(event string, payload interface{}) error {
	msg, err := json.Marshal(map[string]interface{}{
		"event":   event,
		"payload": payload,
	})
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event, err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subscribers {
		select {
		case ch <- msg:
		default:
			// slow client — drop message
		}
	}
	return nil
}

func (h *EventHub) subscribe() (string, chan []byte) {
	id := uuid.NewString()
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.subscribers[id] = ch
	h.mu.Unlock()
	return id, ch
}

func (h *EventHub) unsubscribe(id string) {
	h.mu.Lock()
	ch, ok := h.subscribers[id]
	delete(h.subscribers, id)
	h.mu.Unlock()
	if ok {
		close(ch)
	}
}

// HandleSSE handles GET /api/events as a Server-Sent Events stream.
func (h *EventHub) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id, ch := h.subscribe()
	defer h.unsubscribe(id)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: "))
			w.Write(msg)
			w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}
