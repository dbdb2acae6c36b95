package http

import (
	"log/slog"
	"net/http"
	"time"

	httpmw "github.com/cwrk-planet/presence-service/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Deps struct {
	Handler        *Handler
	WS             http.HandlerFunc
	AllowedOrigins []string
	Logger         *slog.Logger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// WS endpoint: обёртки ResponseWriter ломают Hijack
	r.Get("/ws", d.WS)

	r.Group(func(rr chi.Router) {
		rr.Use(httpmw.RequestLogger(d.Logger))
		rr.Use(middlewareChi.Timeout(30 * time.Second))

		rr.Get("/healthz", d.Handler.Health)
		rr.Get("/spaces/{id}/presence", d.Handler.GetPresence)
	})

	return r
}
