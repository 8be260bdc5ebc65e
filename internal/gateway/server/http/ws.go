package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/bambui-io/bambui/internal/gateway/command"
	"github.com/bambui-io/bambui/internal/gateway/session"
)

const (
	// closeInvalidPrinter is the application close code sent when the
	// requested printer is not configured.
	closeInvalidPrinter = 4004

	writeTimeout = 10 * time.Second

	// eventBuffer is the per-client queue. The camera produces the bulk
	// of the traffic; a client that cannot keep up loses frames, not the
	// connection.
	eventBuffer = 128
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The gateway runs on a trusted LAN and has no cookie-based auth.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handlePrinterWS upgrades the connection and bridges it to the printer's
// session: events out, commands in.
func (s *Server) handlePrinterWS(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["printer"]
	sess := s.registry.Get(name)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	if sess == nil {
		msg := websocket.FormatCloseMessage(closeInvalidPrinter, "Invalid Printer Name")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)) //nolint:errcheck
		return
	}

	subscriber := uuid.NewString()
	logger := s.logger.WithValues("printer", name, "subscriber", subscriber)

	events := make(chan session.Event, eventBuffer)
	handle := sess.Subscribe(subscriber, func(ev session.Event) {
		select {
		case events <- ev:
		default:
			// Slow client; drop rather than stall the transports.
		}
	})
	defer sess.Unsubscribe(handle)

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case ev := <-events:
				conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
				if err := conn.WriteJSON(ev); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	logger.Info("WebSocket client connected")
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			logger.Info("WebSocket client disconnected", "err", err)
			return
		}
		cmd, err := command.Decode(data)
		if err != nil {
			logger.Warn("Rejected command", "err", err)
			select {
			case events <- session.Event{Type: session.EventError, Message: err.Error()}:
			default:
			}
			continue
		}
		sess.Dispatch(r.Context(), cmd)
	}
}
