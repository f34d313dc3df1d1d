// Package api is the thin HTTP surface above the liveness core: health,
// configuration echo, session creation, and the websocket upgrade that
// hands a connection off to internal/connection.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/livenessd/server/internal/config"
	"github.com/livenessd/server/internal/connection"
	"github.com/livenessd/server/internal/detector"
	"github.com/livenessd/server/internal/liveness"
	"github.com/livenessd/server/internal/models"
	"github.com/livenessd/server/internal/pad"
)

// Version is set at build time via -ldflags; "dev" otherwise.
var Version = "dev"

// Server wires the configuration, session manager, and model catalog
// into a chi router.
type Server struct {
	Config   *config.Config
	Manager  *liveness.Manager
	Catalog  models.SelectedCatalog
	Detector *detector.Adapter
	Pad      *pad.Engine
}

// NewServer builds a Server ready to produce a router via Router().
func NewServer(cfg *config.Config, mgr *liveness.Manager, catalog models.SelectedCatalog, det *detector.Adapter) *Server {
	return &Server{
		Config:   cfg,
		Manager:  mgr,
		Catalog:  catalog,
		Detector: det,
		Pad:      pad.New(padConfigFrom(cfg)),
	}
}

func padConfigFrom(cfg *config.Config) pad.Config {
	return pad.Config{
		ReplayWindowMs:            cfg.ReplayWindowMs,
		AllowClockSkewMs:          cfg.AllowClockSkewMs,
		MaxRecentHashes:           cfg.MaxRecentHashes,
		DuplicateHammingThreshold: cfg.DuplicateHammingThreshold,
		FlickerSize:               cfg.FlickerSize,
		FlickerSuspectThreshold:   cfg.FlickerSuspectThreshold,
	}
}

// Router builds the chi router for the HTTP surface described in spec §6.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(permissiveCORS)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Get("/config", s.handleConfig)
	r.Post("/session", s.handleCreateSession)
	r.Get("/session/{id}", s.handleGetSession)
	r.Get("/ws", s.handleWebSocket)

	return r
}

// permissiveCORS allows all methods, origins, and headers per spec §6.
func permissiveCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// connectionHandler builds the per-connection handler shared by the
// websocket upgrade path.
func (s *Server) connectionHandler() *connection.Handler {
	return connection.NewHandler(s.Manager, s.Detector, s.Pad, s.Config.MaxFPS)
}
