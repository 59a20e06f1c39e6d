package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	ws "github.com/coder/websocket"
)

// AttachFunc runs alongside one connected display, typically an embedded
// sync engine streaming rendered countdown frames via Client.Send. It must
// return when ctx is cancelled.
type AttachFunc func(ctx context.Context, c *Client, eventID int64)

// HandleWebSocket upgrades connections and runs them as hub displays. When
// the request names an event (?event_id=N) and attach is non-nil, attach
// runs for the lifetime of the connection.
func HandleWebSocket(hub *Hub, logger *slog.Logger, attach AttachFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // displays connect from anywhere on the venue LAN
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		if attach != nil {
			if eventID, err := strconv.ParseInt(r.URL.Query().Get("event_id"), 10, 64); err == nil && eventID > 0 {
				go attach(ctx, client, eventID)
			}
		}

		client.Run(ctx)
	}
}
