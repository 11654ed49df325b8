// Package sessions exposes read-only conversation bookkeeping.
package sessions

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"plexd/internal/session"
	"plexd/pkg/utils"
)

// Handler serves GET /sessions.
type Handler struct {
	store *session.Store
}

func New(store *session.Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions", h.handleList)
}

type sessionView struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	Current    bool      `json:"current"`
}

func (h *Handler) handleList(w http.ResponseWriter, _ *http.Request) {
	current := h.store.CurrentSession()

	list := h.store.List()
	views := make([]sessionView, 0, len(list))
	for _, s := range list {
		views = append(views, sessionView{
			ID:         s.ID,
			URL:        s.URL,
			CreatedAt:  s.CreatedAt,
			LastUsedAt: s.LastUsedAt,
			Current:    s.ID == current,
		})
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions":        views,
		"current_session": current,
	})
}
