package broadcast

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/agentarena/arena/internal/logging"
)

// Gateway is a thin optional WebSocket forwarder: it subscribes one
// goroutine per connection to a group's events on the Broadcaster and
// writes each as a JSON frame. It contains no orchestration logic (§4.8).
type Gateway struct {
	broadcaster *Broadcaster
	upgrader    websocket.Upgrader
	log         *logging.Logger
}

// NewGateway returns a Gateway forwarding events from broadcaster.
func NewGateway(broadcaster *Broadcaster, log *logging.Logger) *Gateway {
	if log == nil {
		log = logging.Default()
	}
	return &Gateway{
		broadcaster: broadcaster,
		upgrader:    websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		log:         log,
	}
}

// ServeGroup upgrades the request to a WebSocket and forwards every event
// for groupID until the connection closes. It blocks until then.
func (g *Gateway) ServeGroup(w http.ResponseWriter, r *http.Request, groupID string) error {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	var writeMu sync.Mutex
	done := make(chan struct{})

	sub, err := g.broadcaster.Subscribe(groupID, func(event *Event) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		select {
		case <-done:
			return nil
		default:
		}
		frame, err := json.Marshal(event)
		if err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, frame)
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	// Block reading incoming frames purely to detect close/error; the
	// gateway never accepts client-sent messages.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			close(done)
			g.log.Debug("broadcast: gateway connection closed")
			return nil
		}
	}
}
