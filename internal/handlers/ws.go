package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by the CORS layer; the socket itself only requires
	// a valid session token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Events upgrades to a WebSocket and streams lab events (notifications,
// inventory refreshes, new requests) to the signed-in user.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(r)
	if !ok {
		fail(w, http.StatusUnauthorized, "Not signed in")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("events: websocket upgrade failed: %v", err)
		return
	}

	h.Hub.Register(u.ID, conn)

	// Reads are only used to detect the close; clients don't send anything.
	go func() {
		defer func() {
			h.Hub.Unregister(u.ID)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
