package http

import (
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/gorilla/websocket"
)

const (
	liveWriteTimeout = 10 * time.Second
	livePingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// GET /api/v1/cart/live
//
// Streams the cart to a websocket client: the current state first, then one
// message per transition. Only the newest pending state is kept for slow readers.
func (h *CartHandler) Live(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	updates := make(chan domain.CartState, 1)
	unsubscribe := h.cart.Subscribe(func(state domain.CartState) {
		select {
		case updates <- state:
		default:
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- state:
			default:
			}
		}
	})
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.writeLive(conn, h.cart.State()); err != nil {
		return
	}

	ping := time.NewTicker(livePingInterval)
	defer ping.Stop()

	for {
		select {
		case state := <-updates:
			if err := h.writeLive(conn, state); err != nil {
				h.log.WithError(err).Debug("live cart client gone")
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteTimeout)); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (h *CartHandler) writeLive(conn *websocket.Conn, state domain.CartState) error {
	_ = conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
	return conn.WriteJSON(cartResponse(state))
}
