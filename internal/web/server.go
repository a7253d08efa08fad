package web

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/game"
)

// Server — служебный HTTP-интерфейс: статистика, доска сессий и выдача
// картинок карточек. Только чтение, игрой он не управляет.
type Server struct {
	httpServer *http.Server
	handlers   *Handlers
	botAPI     *tgbotapi.BotAPI
}

func NewServer(addr string, store game.Store, botAPI *tgbotapi.BotAPI) *Server {
	handlers := NewHandlers(store)

	mux := http.NewServeMux()

	s := &Server{
		handlers: handlers,
		botAPI:   botAPI,
	}

	mux.HandleFunc("/api/stats", s.methodGet(handlers.Stats))
	mux.HandleFunc("/api/sessions", s.methodGet(handlers.Sessions))
	mux.HandleFunc("/api/photo/", s.servePhoto)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	return s
}

func (s *Server) Run() error {
	log.Printf("Web server starting on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) servePhoto(w http.ResponseWriter, r *http.Request) {
	fileID := strings.TrimPrefix(r.URL.Path, "/api/photo/")
	if fileID == "" {
		http.Error(w, "File ID required", http.StatusBadRequest)
		return
	}

	file, err := s.botAPI.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		log.Printf("Error getting file from Telegram: %v", err)
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	resp, err := http.Get(file.Link(s.botAPI.Token))
	if err != nil {
		log.Printf("Error downloading file: %v", err)
		http.Error(w, "Error downloading file", http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	io.Copy(w, resp.Body)
}

func (s *Server) methodGet(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
