package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"plexd/internal/diag"
	"plexd/internal/handler/ask"
	"plexd/internal/handler/debugws"
	"plexd/internal/handler/sessions"
	"plexd/internal/middleware"
	"plexd/internal/session"
)

// NewRouter wires HTTP routes to the controller and stores.
func NewRouter(svc ask.Service, store *session.Store, hub *diag.Hub, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS)

	ask.New(svc).RegisterRoutes(r)
	sessions.New(store).RegisterRoutes(r)
	if hub != nil {
		debugws.New(hub, log).RegisterRoutes(r)
	}

	return r
}
