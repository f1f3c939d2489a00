package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/holdfast/holdfast/internal/events"
	"github.com/rs/zerolog"
)

const eventBuffer = 100

// wireEvent is the JSON form of an event sent to clients
type wireEvent struct {
	Type      string                 `json:"type"`
	Module    string                 `json:"module,omitempty"`
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Message   string                 `json:"message,omitempty"`
}

func toWire(event *events.Event) wireEvent {
	return wireEvent{
		Type:      string(event.Type),
		Module:    event.Module,
		Timestamp: event.Timestamp.Format(time.RFC3339),
		Data:      event.Data,
	}
}

// parseTypes reads ?types=A,B. nil means every type.
func parseTypes(r *http.Request) []events.EventType {
	raw := r.URL.Query().Get("types")
	if raw == "" {
		return nil
	}
	var out []events.EventType
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, events.EventType(strings.ToUpper(t)))
		}
	}
	return out
}

// subscribe forwards bus events into a buffered channel. Events are dropped
// when the client falls behind.
func subscribe(bus *events.Bus, log zerolog.Logger, types []events.EventType) (<-chan *events.Event, func()) {
	ch := make(chan *events.Event, eventBuffer)
	unsubscribe := bus.Subscribe(func(event *events.Event) {
		select {
		case ch <- event:
		default:
			log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	}, types...)
	return ch, unsubscribe
}

// EventsStreamHandler streams bus events as Server-Sent Events
type EventsStreamHandler struct {
	eventBus  *events.Bus
	heartbeat time.Duration
	log       zerolog.Logger
}

// NewEventsStreamHandler creates a new events stream handler
func NewEventsStreamHandler(eventBus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus:  eventBus,
		heartbeat: 30 * time.Second,
		log:       log.With().Str("component", "events_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/events/stream?types=A,B
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	types := parseTypes(r)
	eventChan, unsubscribe := subscribe(h.eventBus, h.log, types)
	defer unsubscribe()

	h.log.Info().Int("types", len(types)).Msg("Client connected to event stream")

	h.send(w, wireEvent{
		Type:      "connected",
		Timestamp: time.Now().Format(time.RFC3339),
		Message:   "Connected to event stream",
	})
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.log.Info().Msg("Client disconnected from event stream")
			return

		case event := <-eventChan:
			h.send(w, toWire(event))
			flusher.Flush()

		case <-heartbeat.C:
			h.send(w, wireEvent{Type: "heartbeat", Timestamp: time.Now().Format(time.RFC3339)})
			flusher.Flush()
		}
	}
}

func (h *EventsStreamHandler) send(w http.ResponseWriter, event wireEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
