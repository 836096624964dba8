package catalog

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ItemCatalog/pkg/kit"
)

const maxBodyBytes = 1 << 20

type Server struct {
	Service *Service
	Log     *zap.Logger

	// Limiter, when set, guards the mutating routes.
	Limiter *kit.IPRateLimiter
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()

		if err := s.Service.Ping(ctx); err != nil {
			s.logger().Warn("readyz failed", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/items", func(rr chi.Router) {
		rr.Get("/", s.list)
		rr.Get("/{id}", s.get)

		rr.Group(func(wr chi.Router) {
			if s.Limiter != nil {
				wr.Use(s.Limiter.Middleware)
			}
			wr.Post("/", s.create)
			wr.Put("/{id}", s.update)
			wr.Delete("/{id}", s.delete)
		})
	})

	return r
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	items, err := s.Service.List(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}
	kit.WriteJSON(w, http.StatusOK, items)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	item, err := s.Service.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, id)
		return
	}
	kit.WriteJSON(w, http.StatusOK, item)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req CreateItemDto
	if err := kit.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	item, err := s.Service.Create(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}

	w.Header().Set("Location", "/items/"+item.ID)
	kit.WriteJSON(w, http.StatusCreated, item)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateItemDto
	if err := kit.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	if err := s.Service.Update(r.Context(), id, req); err != nil {
		s.writeServiceError(w, r, err, id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.Service.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err, id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, id string) {
	switch {
	case errors.Is(err, ErrNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
	case errors.Is(err, ErrInvalidName):
		kit.WriteError(w, r, http.StatusBadRequest, "name is required", nil)
	case errors.Is(err, ErrNegativePrice):
		kit.WriteError(w, r, http.StatusBadRequest, "price must not be negative", nil)
	case errors.Is(err, ErrValidation):
		kit.WriteError(w, r, http.StatusBadRequest, "invalid item", nil)
	default:
		s.logger().Error("catalog request failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("id", id),
		)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func (s *Server) logger() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return zap.NewNop()
}
