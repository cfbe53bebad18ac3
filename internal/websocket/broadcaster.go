package websocket

import (
	"context"
	"encoding/json"
	"log"

	"backend/internal/event"
)

// envelope is the wire shape pushed to connected dashboards.
type envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Broadcaster returns a bus handler that pushes every domain event to all
// connected WebSocket clients. Dashboards use it to refresh request lists and
// surface stock alerts without polling.
func Broadcaster(hub *Hub) func(ctx context.Context, e event.Event) {
	return func(_ context.Context, e event.Event) {
		raw, err := json.Marshal(envelope{Type: e.Type(), Data: e})
		if err != nil {
			log.Printf("websocket broadcast: failed to marshal %s: %v", e.Type(), err)
			return
		}
		hub.Broadcast <- raw
	}
}
