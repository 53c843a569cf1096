// Package api exposes the record store over HTTP. Responses use a uniform
// envelope: {"success":true,"data":...} or {"success":false,"error":"..."}.
package api

import (
	"net/http"
	"time"

	"finstmt/internal/ingest"
	"finstmt/internal/repository"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server holds the HTTP handler graph.
type Server struct {
	repo   *repository.Repository
	ingest *ingest.Service
	log    zerolog.Logger
	router *mux.Router
}

// NewServer wires all routes.
func NewServer(repo *repository.Repository, svc *ingest.Service, log zerolog.Logger) *Server {
	s := &Server{repo: repo, ingest: svc, log: log, router: mux.NewRouter()}

	r := s.router
	r.HandleFunc("/api/db-status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/companies", s.handleCompanies).Methods(http.MethodGet)

	r.HandleFunc("/api/records/{type}", s.handleFind).Methods(http.MethodGet)
	r.HandleFunc("/api/records/{type}", s.handleUpsert).Methods(http.MethodPost)
	r.HandleFunc("/api/records/{type}/batch", s.handleBatch).Methods(http.MethodPost)
	r.HandleFunc("/api/records/{type}/{taxId}/{year}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/api/records/{type}/{taxId}/{year}", s.handleUpdate).Methods(http.MethodPut, http.MethodPatch)
	r.HandleFunc("/api/records/{type}/{taxId}/{year}", s.handleDelete).Methods(http.MethodDelete)

	r.HandleFunc("/api/workbooks/import", s.handleImport).Methods(http.MethodPost)
	r.HandleFunc("/api/workbooks/export", s.handleExport).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	}).Methods(http.MethodGet)

	return s
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return withLogging(s.log, withCORS(s.router))
}

// ListenAndServe runs the server until it fails.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		Addr:         addr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	s.log.Info().Str("addr", addr).Msg("started serving requests")
	return srv.ListenAndServe()
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withLogging(log zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).Msg("request")
	})
}
