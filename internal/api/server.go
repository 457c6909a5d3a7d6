// Package api exposes the platform over HTTP: problem and connection
// CRUD, ratings, and search over the loaded geographic records.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/commonground-app/commonground/internal/problems"
	"github.com/commonground-app/commonground/internal/store"
)

// Server routes API requests to a store.
type Server struct {
	store store.Store
	log   *zap.Logger
}

// NewServer builds a server over the given store.
func NewServer(st store.Store) *Server {
	return &Server{
		store: st,
		log:   zap.L().With(zap.String("component", "api")),
	}
}

// Router assembles the HTTP routes.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/geos/search", s.handleGeoSearch)

		r.Route("/problems", func(r chi.Router) {
			r.Get("/", s.handleListProblems)
			r.Post("/", s.handleCreateProblem)
			r.Get("/{slug}", s.handleGetProblem)
			r.Get("/{slug}/connections", s.handleListConnections)
			r.Get("/{slug}/ratings", s.handleListRatings)
		})

		r.Post("/connections", s.handleCreateConnection)
		r.Post("/ratings", s.handleUpsertRating)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGeoSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.GeoSearchFilter{
		Query:     q.Get("q"),
		Sumlev:    q.Get("sumlev"),
		StateAbbr: q.Get("state"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}

	hits, err := s.store.SearchGeos(r.Context(), filter)
	if err != nil {
		s.internalError(w, "geo search", err)
		return
	}
	if hits == nil {
		hits = []store.GeoResult{}
	}
	s.respond(w, http.StatusOK, map[string]any{"results": hits})
}

func (s *Server) handleListProblems(w http.ResponseWriter, r *http.Request) {
	filter := store.ProblemFilter{Query: r.URL.Query().Get("q")}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}

	list, err := s.store.ListProblems(r.Context(), filter)
	if err != nil {
		s.internalError(w, "list problems", err)
		return
	}
	if list == nil {
		list = []problems.Problem{}
	}
	s.respond(w, http.StatusOK, map[string]any{"problems": list})
}

func (s *Server) handleCreateProblem(w http.ResponseWriter, r *http.Request) {
	var p problems.Problem
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := s.store.UpsertProblem(r.Context(), p)
	if err != nil {
		s.storeError(w, "upsert problem", err)
		return
	}
	s.respond(w, http.StatusOK, saved)
}

func (s *Server) handleGetProblem(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	p, err := s.store.GetProblem(r.Context(), slug)
	if err != nil {
		s.internalError(w, "get problem", err)
		return
	}
	if p == nil {
		s.respondError(w, http.StatusNotFound, "problem not found")
		return
	}
	s.respond(w, http.StatusOK, p)
}

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	conns, err := s.store.ListConnections(r.Context(), slug)
	if err != nil {
		s.internalError(w, "list connections", err)
		return
	}
	if conns == nil {
		conns = []problems.Connection{}
	}
	s.respond(w, http.StatusOK, map[string]any{"connections": conns})
}

func (s *Server) handleCreateConnection(w http.ResponseWriter, r *http.Request) {
	var c problems.Connection
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := s.store.CreateConnection(r.Context(), c)
	if err != nil {
		s.storeError(w, "create connection", err)
		return
	}
	s.respond(w, http.StatusCreated, saved)
}

func (s *Server) handleUpsertRating(w http.ResponseWriter, r *http.Request) {
	var rating problems.Rating
	if err := json.NewDecoder(r.Body).Decode(&rating); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := s.store.UpsertRating(r.Context(), rating)
	if err != nil {
		s.storeError(w, "upsert rating", err)
		return
	}
	s.respond(w, http.StatusOK, saved)
}

func (s *Server) handleListRatings(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	ratings, err := s.store.ListRatings(r.Context(), slug)
	if err != nil {
		s.internalError(w, "list ratings", err)
		return
	}
	if ratings == nil {
		ratings = []problems.Rating{}
	}
	s.respond(w, http.StatusOK, map[string]any{"ratings": ratings})
}

func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respond(w, status, map[string]string{"error": msg})
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.log.Error(op, zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, "internal error")
}

// storeError maps validation failures to 400 and everything else to 500.
func (s *Server) storeError(w http.ResponseWriter, op string, err error) {
	var (
		missing  *problems.MissingFieldError
		axis     *problems.InvalidAxisError
		circular *problems.CircularConnectionError
		bounds   *problems.RatingBoundsError
	)
	if errors.As(err, &missing) || errors.As(err, &axis) ||
		errors.As(err, &circular) || errors.As(err, &bounds) {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.internalError(w, op, err)
}
