package stream

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// WSHandler upgrades viewers onto the content stream. Connections receive
// events published after they attach; there is no replay.
type WSHandler struct {
	Hub *Hub
	Log *zap.Logger

	upgrader websocket.Upgrader
}

func NewWSHandler(hub *Hub, log *zap.Logger) *WSHandler {
	return &WSHandler{
		Hub: hub,
		Log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// origin policy is enforced by the CORS layer on the rest of
			// the API; the stream itself carries only public event IDs
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	events, cancel := h.Hub.Subscribe()

	go h.writeLoop(conn, events, cancel)
	h.readLoop(conn, cancel)
}

// readLoop drains client frames so pings/pongs and close frames are
// processed; viewers do not send meaningful messages.
func (h *WSHandler) readLoop(conn *websocket.Conn, cancel func()) {
	defer func() {
		cancel()
		_ = conn.Close()
	}()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WSHandler) writeLoop(conn *websocket.Conn, events <-chan Event, cancel func()) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		_ = conn.Close()
	}()

	for {
		select {
		case ev, ok := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// dropped by the hub or unsubscribed
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
