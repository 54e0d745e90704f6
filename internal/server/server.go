// Package server exposes the indexing service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/deidaraiorek/lemmasearch/internal/indexing"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Indexer is the part of indexing.Service the HTTP layer drives.
type Indexer interface {
	StartIndexing(ctx context.Context) error
	StopIndexing(ctx context.Context) error
	IndexPage(ctx context.Context, rawURL string) error
	Statistics(ctx context.Context) (*indexing.Statistics, error)
}

type Response struct {
	Result bool   `json:"result"`
	Error  string `json:"error,omitempty"`
}

type StatisticsResponse struct {
	Result     bool                 `json:"result"`
	Statistics *indexing.Statistics `json:"statistics"`
}

type Server struct {
	indexer Indexer
	logger  *slog.Logger
}

func New(indexer Indexer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{indexer: indexer, logger: logger.With("component", "server")}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/startIndexing", s.startIndexing)
		r.Get("/stopIndexing", s.stopIndexing)
		r.Post("/indexPage", s.indexPage)
		r.Get("/statistics", s.statistics)
	})

	return r
}

func (s *Server) startIndexing(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.indexer.StartIndexing(r.Context()))
}

func (s *Server) stopIndexing(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.indexer.StopIndexing(r.Context()))
}

func (s *Server) indexPage(w http.ResponseWriter, r *http.Request) {
	pageURL := r.FormValue("url")
	if pageURL == "" {
		writeJSON(w, http.StatusBadRequest, Response{Error: "url parameter is required"})
		return
	}
	s.respond(w, r, s.indexer.IndexPage(r.Context(), pageURL))
}

func (s *Server) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.indexer.Statistics(r.Context())
	if err != nil {
		s.respond(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatisticsResponse{Result: true, Statistics: stats})
}

// respond maps the outcome of a service call to a status code.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, Response{Result: true})
	case errors.Is(err, indexing.ErrAlreadyRunning), errors.Is(err, indexing.ErrNotRunning):
		writeJSON(w, http.StatusForbidden, Response{Error: err.Error()})
	case errors.Is(err, indexing.ErrPageOutOfRange):
		writeJSON(w, http.StatusNotFound, Response{Error: err.Error()})
	default:
		s.logger.Error("request failed", "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()), "error", err)
		writeJSON(w, http.StatusInternalServerError, Response{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
