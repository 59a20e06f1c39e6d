package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rfoster/cuecall/internal/config"
	"github.com/rfoster/cuecall/internal/dispatch"
	"github.com/rfoster/cuecall/internal/handler"
	"github.com/rfoster/cuecall/internal/middleware"
	"github.com/rfoster/cuecall/internal/store"
	"github.com/rfoster/cuecall/internal/sync"
	ws "github.com/rfoster/cuecall/internal/websocket"
)

// Server wires the stores, the dispatcher, the HTTP fallback handlers, and
// the display broadcast hub.
type Server struct {
	db         *sql.DB
	cfg        config.Config
	hub        *ws.Hub
	dispatcher *dispatch.Dispatcher
	timerH     *handler.TimerHandler
	logger     *slog.Logger
}

func New(db *sql.DB, cfg config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	scheduleStore := store.NewScheduleStore(db)
	cueTimerStore := store.NewCueTimerStore(db)
	subTimerStore := store.NewSubCueTimerStore(db)

	dispatcher := dispatch.New(
		scheduleStore, cueTimerStore, subTimerStore,
		hub, logger.With("component", "dispatch"),
	)

	return &Server{
		db:         db,
		cfg:        cfg,
		hub:        hub,
		dispatcher: dispatcher,
		timerH:     handler.NewTimerHandler(dispatcher, logger.With("component", "timer_handler")),
		logger:     logger,
	}
}

// Dispatcher exposes the shared dispatcher so the wire ingress uses the same
// state machine as the HTTP surface.
func (s *Server) Dispatcher() *dispatch.Dispatcher {
	return s.dispatcher
}

// Hub returns the display broadcast hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Command API
	mux.HandleFunc("POST /api/events/load", s.timerH.LoadEvent)
	mux.HandleFunc("POST /api/cues/load", s.timerH.LoadCue)
	mux.HandleFunc("POST /api/timers/start", s.timerH.StartTimer)
	mux.HandleFunc("POST /api/timers/stop", s.timerH.StopTimer)
	mux.HandleFunc("POST /api/timers/reset", s.timerH.ResetTimer)
	mux.HandleFunc("POST /api/subtimers/start", s.timerH.StartSub)
	mux.HandleFunc("POST /api/subtimers/stop", s.timerH.StopSub)

	// Read-only state for display clients
	mux.HandleFunc("GET /api/status", s.timerH.Status)
	mux.HandleFunc("GET /api/cues", s.timerH.CueList)

	// Push channel for displays. Naming an event attaches an embedded sync
	// engine that streams drift-corrected countdown frames to the client.
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket"), s.attachDisplay))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

// attachDisplay runs one sync engine for the lifetime of a websocket display
// connection, pushing each rendered frame to that client alone. Thin clients
// get drift-corrected countdowns without doing the timestamp math.
func (s *Server) attachDisplay(ctx context.Context, c *ws.Client, eventID int64) {
	engine := sync.New(
		sync.Config{
			EventID:          eventID,
			ClientID:         c.ID(),
			TickInterval:     s.cfg.TickInterval(),
			ResyncInterval:   s.cfg.ResyncInterval(),
			ForceResyncAfter: s.cfg.ForceResyncInterval(),
		},
		sync.NewDispatcherFetcher(s.dispatcher),
		func(d sync.Display) {
			data, err := json.Marshal(d)
			if err != nil {
				return
			}
			c.Send(data)
		},
		s.logger.With("component", "display"),
	)
	engine.Run(ctx)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"displays": s.hub.ClientCount(),
	})
}
