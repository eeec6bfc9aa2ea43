package handlers

import (
	"log/slog"
	"net/http"

	"github.com/MegaGrindStone/faey-assistant/internal/models"
)

type homePageData struct {
	Title            string
	Welcome          string
	DefaultImageSize string
	HistoryLimit     int
}

const welcomeMessage = "Hi! I'm your AI assistant. I can help you with all kinds of tasks:\n\n" +
	"💬 Answering questions\n🔨 Helping with code\n📝 Writing content\n🎯 Getting things done\n\n" +
	"What can I help you with today?"

// HandleHome renders the assistant page. The page keeps all of its state in the browser, so the server only
// supplies the welcome message and the limits the client should respect.
func (m Main) HandleHome(w http.ResponseWriter, r *http.Request) {
	data := homePageData{
		Title:            "Faey Assistant",
		Welcome:          welcomeMessage,
		DefaultImageSize: models.DefaultImageSize,
		HistoryLimit:     m.historyLimit,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := m.templates.ExecuteTemplate(w, "home.html", data); err != nil {
		m.logger.Error("Failed to render home page", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
