package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/rustyeddy/papertrade/engine"
	"github.com/rustyeddy/papertrade/market"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Local dashboard clients; origin checks belong on a fronting proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	wsPushInterval = time.Second
	wsWriteTimeout = 5 * time.Second
)

// stateFrame is one full push of the derived account view. Clients render
// from whole frames; there is no delta protocol.
type stateFrame struct {
	Account   engine.AccountSnapshot `json:"account"`
	Positions []engine.Position      `json:"positions"`
	Pending   []engine.PendingOrder  `json:"pending"`
	Prices    []market.Price         `json:"prices"`
	Time      time.Time              `json:"time"`
}

func (s *Server) frame() stateFrame {
	return stateFrame{
		Account:   s.engine.Snapshot(),
		Positions: s.engine.Positions(),
		Pending:   s.engine.Pending(),
		Prices:    s.prices.All(),
		Time:      time.Now().UTC(),
	}
}

// handleWS streams the account state once a second until the client hangs
// up. Incoming messages are drained and ignored.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPushInterval)
	defer ticker.Stop()

	// First frame immediately, then on cadence.
	for {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(s.frame()); err != nil {
			return
		}

		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
