// Package httpserver wires the edge node's HTTP surface: the websocket
// upgrade endpoint that feeds the protocol dispatcher, the liveness probe,
// and a read-only stats endpoint used by the operator monitor command.
package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/fireline-edge/fireline/internal/domain/dispatcher"
	"github.com/fireline-edge/fireline/internal/domain/store"
	"github.com/fireline-edge/fireline/internal/transport"
)

// Server exposes the edge node's framed-message channel over a chi mux,
// mirroring the teacher's ws.WSHandler but keeping the pump loop on the
// Transport/Session boundary instead of inlining marshalling.
type Server struct {
	router      *chi.Mux
	dispatcher  *dispatcher.Dispatcher
	logger      *slog.Logger
	upgrader    websocket.Upgrader
	mailboxSize int
}

// NewServer builds the router. mailboxSize bounds each connection's
// outbound mailbox (spec §5 backpressure policy).
func NewServer(d *dispatcher.Dispatcher, logger *slog.Logger, mailboxSize int) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		dispatcher:  d,
		logger:      logger,
		mailboxSize: mailboxSize,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Get("/", s.handleWS)
	s.router = r
	return s
}

// Handler returns the root http.Handler for this server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// handleStats serves the aggregate store.Stats consumed by `fireline
// monitor` (SPEC_FULL.md §2b). It is observability-only: never part of
// the framed-message protocol.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.dispatcher.Store.Snapshot())
}

// handleWS upgrades the connection and runs its event loop until close.
// incidentId, if present as a query parameter, is a routing convenience
// only — CLIENT_HELLO remains the sole source of truth (SPEC_FULL.md §6).
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("ws upgrade failed", "error", err)
		return
	}

	sc := transport.NewServerConn(ws)
	conn := store.NewConnection(r.Context(), s.mailboxSize, sc.Send, sc.Close)
	session := s.dispatcher.NewSession(conn)

	for ev := range sc.Events() {
		switch ev.Kind {
		case transport.EventMessage:
			session.HandleFrame(r.Context(), ev.Data)
		case transport.EventClose, transport.EventError:
			session.Close()
			return
		}
	}
}
