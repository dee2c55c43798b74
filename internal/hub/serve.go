package hub

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// NewUpgrader returns a WebSocket upgrader accepting the given origins.
// An empty list or "*" accepts any origin.
func NewUpgrader(origins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
		},
	}
}

// ServeWS upgrades the request and attaches a new client. The client pumps
// run on ctx, not the request context, so they outlive the handler.
func (h *Hub) ServeWS(ctx context.Context, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		c := NewClient(uuid.NewString(), conn, h)
		h.Register(c)

		go c.WritePump(ctx)
		go c.ReadPump(ctx)
	}
}
