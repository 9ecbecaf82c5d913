package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"jordanella.com/mtg-scanner-go/internal/app"
	"jordanella.com/mtg-scanner-go/internal/logging"
	"jordanella.com/mtg-scanner-go/internal/scanner"
	"jordanella.com/mtg-scanner-go/internal/vision"
)

const maxStoredCaptures = 20

// Server exposes the scanner over HTTP and pushes events over a websocket
type Server struct {
	app    *app.App
	logger *logging.Logger
	hub    *Hub
	router *mux.Router

	removeListener func()

	mu        sync.RWMutex
	lastError string
	captures  map[string]*vision.CaptureResult
	order     []string
}

// New creates a server for a; call Close when done
func New(a *app.App, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewLogger("Server")
	}
	s := &Server{
		app:      a,
		logger:   logger,
		hub:      NewHub(a.Bus, logger.Named("Hub")),
		captures: make(map[string]*vision.CaptureResult),
	}
	s.removeListener = a.Scanner.AddListener(scanner.ListenerFuncs{
		OnErrorChanged: func(msg string) {
			s.mu.Lock()
			s.lastError = msg
			s.mu.Unlock()
		},
		OnCaptureTaken: s.storeCapture,
	})
	s.router = s.routes()
	return s
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthcheck", s.handleHealthcheck).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/cameras", s.handleListCameras).Methods("GET")
	api.HandleFunc("/cameras/detect", s.handleDetectCameras).Methods("POST")
	api.HandleFunc("/cameras/selected", s.handleSelectCamera).Methods("PUT")

	api.HandleFunc("/scanner", s.handleScannerStatus).Methods("GET")
	api.HandleFunc("/scanner/options", s.handleUpdateOptions).Methods("PUT")
	api.HandleFunc("/scanner/start", s.handleStart).Methods("POST")
	api.HandleFunc("/scanner/stop", s.handleStop).Methods("POST")
	api.HandleFunc("/scanner/overlay.png", s.handleOverlay).Methods("GET")
	api.HandleFunc("/scanner/capture", s.handleCapture).Methods("POST")

	api.HandleFunc("/captures/{id}", s.handleCaptureImage).Methods("GET")
	api.HandleFunc("/recognize", s.handleRecognizeUpload).Methods("POST")

	api.HandleFunc("/catalog", s.handleCatalogStatus).Methods("GET")
	api.HandleFunc("/catalog/reload", s.handleCatalogReload).Methods("POST")
	api.HandleFunc("/cards/search", s.handleSearch).Methods("GET")

	api.HandleFunc("/collection", s.handleListCollection).Methods("GET")
	api.HandleFunc("/collection", s.handleAddToCollection).Methods("POST")
	api.HandleFunc("/collection/{id}", s.handleRemoveFromCollection).Methods("DELETE")
	api.HandleFunc("/scans", s.handleScans).Methods("GET")
	api.HandleFunc("/errors", s.handleErrors).Methods("GET")

	r.Handle("/ws/events", s.hub).Methods("GET")
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.InfoWithContext("Scanner API available", logging.Fields{"addr": addr, "url": "http://" + addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.hub.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Server shutdown failed", err)
			return err
		}
		s.logger.Info("Server stopped")
		return nil
	case err := <-serverErr:
		return err
	}
}

// Close detaches the server from the app
func (s *Server) Close() {
	s.hub.Close()
	if s.removeListener != nil {
		s.removeListener()
	}
}

func (s *Server) storeCapture(c *vision.CaptureResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.captures[c.ID]; ok {
		return
	}
	s.captures[c.ID] = c
	s.order = append(s.order, c.ID)
	for len(s.order) > maxStoredCaptures {
		delete(s.captures, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *Server) capture(id string) (*vision.CaptureResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.captures[id]
	return c, ok
}

func (s *Server) currentError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}
