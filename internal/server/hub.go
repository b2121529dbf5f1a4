// internal/server/hub.go
package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	reloadMessage = "reload"
	writeWait     = time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Local dev server only; any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// reloadHub is the set of open browser tabs. It serves the /ws endpoint and
// tells every tab to reload after a successful rebuild.
type reloadHub struct {
	mu   sync.Mutex
	tabs map[*websocket.Conn]struct{}
	log  *slog.Logger
}

func newReloadHub(log *slog.Logger) *reloadHub {
	return &reloadHub{tabs: make(map[*websocket.Conn]struct{}), log: log}
}

// ServeHTTP upgrades the request and holds the connection until the tab
// goes away. Tabs never send anything; reading only detects the close.
func (h *reloadHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", "err", err)
		return
	}
	h.add(conn)
	defer h.drop(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *reloadHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.tabs[conn] = struct{}{}
	n := len(h.tabs)
	h.mu.Unlock()
	h.log.Debug("live-reload tab connected", "remote", conn.RemoteAddr().String(), "tabs", n)
}

func (h *reloadHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.tabs[conn]
	delete(h.tabs, conn)
	h.mu.Unlock()
	if ok {
		conn.Close()
		h.log.Debug("live-reload tab disconnected", "remote", conn.RemoteAddr().String())
	}
}

func (h *reloadHub) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.tabs)
}

// reload asks every tab to reload. Tabs that cannot be written to within
// writeWait are dropped.
func (h *reloadHub) reload() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.tabs {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(reloadMessage)); err != nil {
			h.log.Warn("dropping live-reload tab", "remote", conn.RemoteAddr().String(), "err", err)
			conn.Close()
			delete(h.tabs, conn)
		}
	}
}

func (h *reloadHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.tabs {
		conn.Close()
		delete(h.tabs, conn)
	}
}
