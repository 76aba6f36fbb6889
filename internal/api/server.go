// Package api expose les préférences en HTTP (équivalent du popup de
// l'extension) et sert la page de réglages.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/patrickprogramme/captionsync/internal/logging"
	"github.com/patrickprogramme/captionsync/internal/prefs"
)

// taille max d'un PATCH
const maxBodyBytes = 64 << 10

// Server : routes /api/v1/preferences, /healthz et fichiers du popup.
type Server struct {
	store  prefs.Store
	static fs.FS
	logger *slog.Logger
}

// New : static peut être nil (pas de page servie).
func New(store prefs.Store, static fs.FS, logger *slog.Logger) *Server {
	return &Server{store: store, static: static, logger: logging.Component(logger, "api")}
}

// Handler construit le routeur chi.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthzHandler)
	r.Get("/api/v1/preferences", s.getPreferencesHandler)
	r.Patch("/api/v1/preferences", s.patchPreferencesHandler)

	if s.static != nil {
		r.Handle("/*", http.FileServer(http.FS(s.static)))
	}
	return r
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getPreferencesHandler(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Get(r.Context())
	if err != nil {
		s.logger.Error("read preferences", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "read preferences failed")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) patchPreferencesHandler(w http.ResponseWriter, r *http.Request) {
	var u prefs.Update
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	if u.Empty() {
		writeError(w, http.StatusBadRequest, "no preference to update")
		return
	}

	if err := s.store.Set(r.Context(), u); err != nil {
		if errors.Is(err, prefs.ErrInvalid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("store preferences", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "store preferences failed")
		return
	}

	p, err := s.store.Get(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "read preferences failed")
		return
	}
	s.logger.Info("preferences updated from popup", slog.String(prefs.KeyLanguage, p.Language), slog.Bool(prefs.KeyEnabled, p.Enabled))
	writeJSON(w, http.StatusOK, p)
}

// Run écoute sur addr jusqu'à l'annulation de ctx, puis arrête proprement.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve : comme Run, sur un listener existant.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("preferences page available", slog.String(logging.FieldURL, "http://"+ln.Addr().String()+"/"))
		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serve: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
