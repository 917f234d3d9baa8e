package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/psycacid/musichub/config"
	"github.com/psycacid/musichub/core/catalog"
	"github.com/psycacid/musichub/core/playback"
	"github.com/psycacid/musichub/logger"
	"github.com/psycacid/musichub/repository"

	"github.com/gorilla/mux"
)

const shutdownTimeout = 5 * time.Second

// Server exposes the catalog over HTTP.
type Server struct {
	cfg      *config.Config
	songs    repository.SongRepository
	catalog  *catalog.Service
	resolver *playback.Resolver
	router   *mux.Router
}

// New wires the routes. songs serves the read endpoints; writes go through svc.
func New(cfg *config.Config, songs repository.SongRepository, svc *catalog.Service, resolver *playback.Resolver) *Server {
	s := &Server{
		cfg:      cfg,
		songs:    songs,
		catalog:  svc,
		resolver: resolver,
		router:   mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/songs", s.listSongsHandler).Methods(http.MethodGet)
	api.HandleFunc("/songs", s.addSongHandler).Methods(http.MethodPost)
	api.HandleFunc("/songs/{id:[0-9]+}", s.getSongHandler).Methods(http.MethodGet)
	api.HandleFunc("/songs/{id:[0-9]+}", s.editSongHandler).Methods(http.MethodPost)
	api.HandleFunc("/songs/{id:[0-9]+}", s.deleteSongHandler).Methods(http.MethodDelete)
	api.HandleFunc("/songs/{id:[0-9]+}/cover", s.coverHandler).Methods(http.MethodGet, http.MethodHead)

	r.HandleFunc("/play/{id:[0-9]+}", s.playHandler).Methods(http.MethodGet, http.MethodHead)
}

// Handler returns the root handler. The middleware wraps the router instead of
// being registered on it, since mux only runs middleware on matched routes and
// a CORS preflight matches none.
func (s *Server) Handler() http.Handler {
	return requestIDMiddleware(accessLogMiddleware(corsMiddleware(s.router)))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ServerAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", logger.String("addr", s.cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
