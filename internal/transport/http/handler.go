package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cwrk-planet/presence-service/internal/presence"
	httpmw "github.com/cwrk-planet/presence-service/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
)

type PresenceSource interface {
	Snapshot(spaceID string) []presence.PrincipalView
}

// Pinger: зависимость, без которой сервис не готов (БД, Redis).
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Handler struct {
	presence PresenceSource
	deps     map[string]Pinger
}

func NewHandler(src PresenceSource, deps map[string]Pinger) *Handler {
	return &Handler{presence: src, deps: deps}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type PresenceResponse struct {
	SpaceID string                   `json:"spaceId"`
	Count   int                      `json:"count"`
	Users   []presence.PrincipalView `json:"users"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json response failed", slog.Any("err", err))
	}
}

// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	for name, dep := range h.deps {
		if err := dep.Ping(r.Context()); err != nil {
			httpmw.L(r.Context()).Warn("health check failed", "dep", name, "err", err)
			writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: name + " unavailable"})
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// GET /spaces/{id}/presence
func (h *Handler) GetPresence(w http.ResponseWriter, r *http.Request) {
	spaceID := chi.URLParam(r, "id")
	if spaceID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "missing space id"})
		return
	}

	users := h.presence.Snapshot(spaceID)
	writeJSON(w, http.StatusOK, PresenceResponse{
		SpaceID: spaceID,
		Count:   len(users),
		Users:   users,
	})
}
