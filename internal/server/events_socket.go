package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/holdfast/holdfast/internal/events"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

// EventsSocketHandler pushes bus events over a websocket. Clients only
// receive; anything they send is discarded.
type EventsSocketHandler struct {
	eventBus     *events.Bus
	writeTimeout time.Duration
	log          zerolog.Logger
}

// NewEventsSocketHandler creates a new websocket events handler
func NewEventsSocketHandler(eventBus *events.Bus, log zerolog.Logger) *EventsSocketHandler {
	return &EventsSocketHandler{
		eventBus:     eventBus,
		writeTimeout: 5 * time.Second,
		log:          log.With().Str("component", "events_ws").Logger(),
	}
}

// ServeHTTP handles GET /api/events/ws?types=A,B
func (h *EventsSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket handshake failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected close")

	// CloseRead answers control frames and cancels ctx when the client goes away
	ctx := conn.CloseRead(r.Context())

	eventChan, unsubscribe := subscribe(h.eventBus, h.log, parseTypes(r))
	defer unsubscribe()

	h.log.Info().Msg("Client connected to event socket")

	if err := h.write(ctx, conn, wireEvent{
		Type:      "connected",
		Timestamp: time.Now().Format(time.RFC3339),
		Message:   "Connected to event socket",
	}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			h.log.Info().Msg("Client disconnected from event socket")
			return
		case event := <-eventChan:
			if err := h.write(ctx, conn, toWire(event)); err != nil {
				h.log.Debug().Err(err).Msg("Websocket write failed")
				return
			}
		}
	}
}

func (h *EventsSocketHandler) write(ctx context.Context, conn *websocket.Conn, event wireEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		return nil
	}

	writeCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
