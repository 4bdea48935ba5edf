package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/doodlesbykumbi/membersync/pkg/batch"
	"github.com/doodlesbykumbi/membersync/pkg/config"
	"github.com/doodlesbykumbi/membersync/pkg/directory"
	"github.com/doodlesbykumbi/membersync/pkg/membership"
	"github.com/doodlesbykumbi/membersync/pkg/reconcile"
	"github.com/doodlesbykumbi/membersync/pkg/rules"
)

// Components are the collaborators the endpoints operate on.
type Components struct {
	Config      *config.Config
	Rules       *rules.Manager
	Coordinator *batch.Coordinator
	Engine      *reconcile.Engine
	Aggregator  *membership.Aggregator
	Hooks       *reconcile.Hooks
	Directory   directory.Directory
	Gatherer    prometheus.Gatherer
}

type Server struct {
	Components
	Router *mux.Router
	Logger *slog.Logger
	srv    *http.Server
}

func NewServer(c Components, logger *slog.Logger, host string, port string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if c.Gatherer == nil {
		c.Gatherer = prometheus.DefaultGatherer
	}

	router := mux.NewRouter().UseEncodedPath()
	srv := &http.Server{
		Handler:      handlers.LoggingHandler(os.Stdout, router),
		Addr:         host + ":" + port,
		WriteTimeout: 60 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	return &Server{
		Components: c,
		Router:     router,
		Logger:     logger,
		srv:        srv,
	}
}

// Handler returns the router wrapped in access logging.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) Start() error {
	s.Logger.Info("listening", "addr", s.srv.Addr)
	return s.srv.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
