package api

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"gobrick/models"
)

// SSEHub manages Server-Sent Events for live evaluation updates
type SSEHub struct {
	clients   map[chan models.EvaluationEvent]struct{}
	clientsMu sync.RWMutex
	broadcast chan models.EvaluationEvent
	done      chan struct{}
	closeOnce sync.Once

	// PingInterval keeps idle connections alive
	PingInterval time.Duration
}

// NewSSEHub creates a new SSE hub
func NewSSEHub() *SSEHub {
	hub := &SSEHub{
		clients:      make(map[chan models.EvaluationEvent]struct{}),
		broadcast:    make(chan models.EvaluationEvent, 100),
		done:         make(chan struct{}),
		PingInterval: 30 * time.Second,
	}

	go hub.run()
	return hub
}

// run fans broadcast events out to every subscriber
func (h *SSEHub) run() {
	for {
		select {
		case event := <-h.broadcast:
			h.clientsMu.RLock()
			for clientChan := range h.clients {
				select {
				case clientChan <- event:
				default:
					log.Printf("[SSE] Client channel full, skipping %s", event.Type)
				}
			}
			h.clientsMu.RUnlock()
		case <-h.done:
			return
		}
	}
}

// Publish queues an event for every subscriber; it never blocks
func (h *SSEHub) Publish(event models.EvaluationEvent) {
	select {
	case h.broadcast <- event:
	default:
		log.Printf("[SSE] Broadcast channel full, dropping event: %s", event.Type)
	}
}

// Subscribe registers a client channel; call the returned func to leave
func (h *SSEHub) Subscribe() (<-chan models.EvaluationEvent, func()) {
	ch := make(chan models.EvaluationEvent, 10)
	h.clientsMu.Lock()
	h.clients[ch] = struct{}{}
	total := len(h.clients)
	h.clientsMu.Unlock()
	log.Printf("[SSE] Client registered (total clients: %d)", total)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.clientsMu.Lock()
			delete(h.clients, ch)
			h.clientsMu.Unlock()
		})
	}
}

// ClientCount returns the number of connected subscribers
func (h *SSEHub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Close stops the fan-out loop
func (h *SSEHub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// HandleSSE streams evaluation events until the client disconnects
func (h *SSEHub) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, `{"error":"streaming unsupported"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, leave := h.Subscribe()
	defer leave()

	ping := time.NewTicker(h.PingInterval)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case event := <-events:
			eventJSON, err := json.Marshal(event)
			if err != nil {
				log.Printf("[SSE] Failed to marshal event: %v", err)
				continue
			}
			fmt.Fprintf(w, "event: evaluation\ndata: %s\n\n", eventJSON)
			flusher.Flush()

		case <-ping.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%q}\n\n", time.Now().UTC().Format(time.RFC3339))
			flusher.Flush()

		case <-ctx.Done():
			return
		}
	}
}
