package web

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/domain"
	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/game"
)

type Handlers struct {
	store game.Store
}

func NewHandlers(store game.Store) *Handlers {
	return &Handlers{store: store}
}

type statsResponse struct {
	Collections    int `json:"collections"`
	Images         int `json:"images"`
	ActiveSessions int `json:"activeSessions"`
}

func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	collections, images, err := h.store.Collections().Stats(r.Context())
	if err != nil {
		log.Printf("Error getting stats: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	active, err := h.store.Sessions().Active(r.Context())
	if err != nil {
		log.Printf("Error getting sessions: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, statsResponse{
		Collections:    collections,
		Images:         images,
		ActiveSessions: len(active),
	})
}

type sessionView struct {
	ID       int64         `json:"id"`
	Code     string        `json:"code"`
	Status   domain.Status `json:"status"`
	Stage    domain.Stage  `json:"stage,omitempty"`
	Single   bool          `json:"single"`
	WithHost bool          `json:"withHost"`
	Players  []playerView  `json:"players"`
}

type playerView struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

func (h *Handlers) Sessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions().Active(r.Context())
	if err != nil {
		log.Printf("Error getting sessions: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		players, err := h.store.Players().BySession(r.Context(), sess.ID)
		if err != nil {
			log.Printf("Error getting session players: %v", err)
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		view := sessionView{
			ID:       sess.ID,
			Code:     sess.Code,
			Status:   sess.Status,
			Stage:    sess.Stage,
			Single:   sess.Single,
			WithHost: sess.WithHost,
		}
		for _, pl := range players {
			view.Players = append(view.Players, playerView{Name: pl.Name, Score: pl.Score})
		}
		views = append(views, view)
	}

	writeJSON(w, views)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
