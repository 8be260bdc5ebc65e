// Package http serves the gateway's browser-facing surface: the REST API,
// the per-printer websocket, health probes and metrics.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/bambui-io/bambui/internal/gateway/session"
	"github.com/bambui-io/bambui/internal/gateway/storage"
	"github.com/bambui-io/bambui/internal/pkg/metrics"
	"github.com/bambui-io/bambui/pkg/log"
	"github.com/bambui-io/bambui/pkg/options"
)

type Server struct {
	server   *http.Server
	registry *session.Registry
	library  *storage.Library
	logger   log.Logger
}

// NewServer wires the routes. library may be nil, in which case the
// library endpoints are not registered.
func NewServer(opts *options.HttpOptions, registry *session.Registry, library *storage.Library) *Server {
	s := &Server{
		registry: registry,
		library:  library,
		logger:   log.WithName("http"),
	}

	r := mux.NewRouter()

	// Basic Liveness Probe
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Readiness Probe
	r.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Handle("/metrics", metrics.Handler())

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/printers", s.handleListPrinters).Methods(http.MethodGet)
	api.HandleFunc("/printers/{printer}/files", s.handleListFiles).Methods(http.MethodGet)
	api.HandleFunc("/printers/{printer}/files/{name}", s.handleDeleteFile).Methods(http.MethodDelete)

	if library != nil {
		api.HandleFunc("/library", s.handleLibraryList).Methods(http.MethodGet)
		api.HandleFunc("/library/{name}", s.handleLibraryUpload).Methods(http.MethodPut)
		api.HandleFunc("/library/{name}", s.handleLibraryDelete).Methods(http.MethodDelete)
		api.HandleFunc("/printers/{printer}/library/{name}/print", s.handleLibraryPrint).Methods(http.MethodPost)
	}

	r.HandleFunc("/ws/printer/{printer}", s.handlePrinterWS)

	s.server = &http.Server{
		Addr:    opts.Addr,
		Handler: r,
	}
	return s
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
