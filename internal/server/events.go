package server

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Iron-Ham/squadron/internal/event"
)

const (
	wsReadBufferSize  = 1024
	wsWriteBufferSize = 1024
	wsWriteTimeout    = 10 * time.Second
	// eventBufferSize is how many events a slow client may lag behind
	// before events are dropped for it.
	eventBufferSize = 256
)

// handleEvents streams domain events to a WebSocket client. The optional
// types query parameter is a comma separated list of event types to keep.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	bus := s.facade.Events()
	if bus == nil {
		writeJSONError(w, &apiError{Status: http.StatusServiceUnavailable, Code: "unavailable", Message: "event stream disabled"})
		return
	}

	wanted := map[string]bool{}
	if raw := r.URL.Query().Get("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			wanted[strings.TrimSpace(t)] = true
		}
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  wsReadBufferSize,
		WriteBufferSize: wsWriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return isOriginAllowed(r, s.allowedOrigins)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	out := make(chan event.Event, eventBufferSize)
	subID := bus.SubscribeAll(func(e event.Event) {
		if len(wanted) > 0 && !wanted[e.EventType()] {
			return
		}
		select {
		case out <- e:
		default:
			s.logger.Warn("event stream client lagging, dropping event", "event_type", e.EventType())
		}
	})
	defer bus.Unsubscribe(subID)

	// The read loop only detects the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case e := <-out:
			payload, err := event.MarshalJSON(e)
			if err != nil {
				s.logger.Warn("failed to encode event", "event_type", e.EventType(), "error", err.Error())
				continue
			}
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// isOriginAllowed accepts requests without an Origin, origins listed in
// allowed (full origin or host), and same-host origins when allowed is empty.
func isOriginAllowed(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	originHost := parsed.Hostname()
	if originHost == "" {
		return false
	}
	if len(allowed) > 0 {
		for _, a := range allowed {
			if strings.EqualFold(origin, a) || strings.EqualFold(originHost, a) {
				return true
			}
		}
		return false
	}
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.EqualFold(originHost, strings.Trim(host, "[]"))
}
