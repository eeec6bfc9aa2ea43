package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/MegaGrindStone/faey-assistant/internal/models"
)

type chatResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
	HTML     string `json:"html,omitempty"`
}

const (
	chatEndpoint = "chat"
	chatFallback = "Failed to process request"
)

var errEmptyChat = errors.New("Empty response from AI")

// HandleChat forwards a user message, together with the trailing part of the conversation, to the
// assistant and answers with its reply.
//
// The handler expects a JSON body with a string "message" and an optional "history" array of
// {role, content} objects. A missing or non-string message is rejected with 400 before the assistant is
// called. Any failure after validation, including an empty reply, is answered with 500 and a
// {success: false, error} envelope.
func (m Main) HandleChat(w http.ResponseWriter, r *http.Request) {
	defer m.recoverFailure(w, chatEndpoint, chatFallback)

	body, err := decodeBody(w, r)
	if err != nil {
		m.fail(w, chatEndpoint, err, chatFallback)
		return
	}

	msg, ok := requiredString(body, "message")
	if !ok {
		m.reject(w, chatEndpoint, "Message is required and must be a string")
		return
	}

	messages := m.chatMessages(historyMessages(body["history"], m.historyLimit), msg)

	done := timeProvider(chatEndpoint)
	reply, err := m.assistant.Chat(r.Context(), messages)
	if err == nil && reply == "" {
		err = errEmptyChat
	}
	done(err)
	if err != nil {
		m.fail(w, chatEndpoint, err, chatFallback)
		return
	}

	m.ok(w, chatEndpoint, chatResponse{
		Success:  true,
		Response: reply,
		HTML:     m.renderReply(reply),
	})
}

// chatMessages builds the provider request: persona, then history, then the new user message.
func (m Main) chatMessages(history []models.ChatMessage, msg string) []models.ChatMessage {
	messages := make([]models.ChatMessage, 0, len(history)+2)
	messages = append(messages, models.NewChatMessage(m.personaRole, m.systemPrompt))
	messages = append(messages, history...)
	return append(messages, models.NewChatMessage(models.RoleUser, msg))
}

// historyMessages keeps the last limit entries of a client supplied history, then drops the entries that
// are not {role: user|assistant, content: string}.
func historyMessages(raw any, limit int) []models.ChatMessage {
	entries, ok := raw.([]any)
	if !ok {
		return nil
	}

	entries = models.TrailingHistory(entries, limit)
	msgs := make([]models.ChatMessage, 0, len(entries))
	for _, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		role, _ := obj["role"].(string)
		content, ok := obj["content"].(string)
		if !ok || !models.Role(role).Valid() {
			continue
		}
		msgs = append(msgs, models.NewChatMessage(models.Role(role), content))
	}
	return msgs
}

// renderReply returns the HTML form of a reply, or an empty string when rendering fails; the page then
// shows the plain text.
func (m Main) renderReply(reply string) string {
	html, err := models.RenderMarkdown(reply)
	if err != nil {
		m.logger.Warn("Failed to render reply", slog.String(errLoggerKey, err.Error()))
		return ""
	}
	return html
}
