package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/avoran/huddle/internal/core"
	"github.com/avoran/huddle/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// RosterWS streams participant view-model snapshots for one room until the
// client goes away. The update subscription is released before the socket
// closes, so no write can race a closed connection.
func (h *Handlers) RosterWS(c *gin.Context) {
	room := domain.RoomName(c.Query("room"))
	sync, err := h.roster.Watch(c.Request.Context(), room)
	if err != nil {
		h.fail(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Str("module", "adapters.ws").Err(err).Msg("roster upgrade failed")
		return
	}
	defer conn.Close()

	updates := make(chan core.ViewModel, 8)
	unsubscribe := sync.Updates().Subscribe(func(vm core.ViewModel) {
		// Drop when the writer is behind; every snapshot is the full
		// state, so the next one supersedes anything missed.
		select {
		case updates <- vm:
		default:
		}
	})
	defer unsubscribe()

	if err := writeSnapshot(conn, sync.ViewModel()); err != nil {
		return
	}

	// Reader goroutine only observes the close handshake.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case vm := <-updates:
			if err := writeSnapshot(conn, vm); err != nil {
				return
			}
			if vm.State == core.StateFailed {
				// The watcher session is gone for good; evict it so
				// the next client connects a fresh one.
				h.roster.Drop(room, sync)
				return
			}
		}
	}
}

func writeSnapshot(conn *websocket.Conn, vm core.ViewModel) error {
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteJSON(vm)
}
