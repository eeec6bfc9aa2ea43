package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MegaGrindStone/faey-assistant/internal/handlers"
	"github.com/MegaGrindStone/faey-assistant/internal/models"
	"github.com/MegaGrindStone/faey-assistant/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAssistant struct {
	reply    string
	image    string
	analysis string
	err      error
	panics   bool

	chatCalls     int
	generateCalls int
	describeCalls int

	lastMessages []models.ChatMessage
	lastPrompt   string
	lastSize     string
	lastImage    string
	lastQuestion string
}

type mockIndex struct {
	images []models.GeneratedImage
	err    error
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestMain(t *testing.T, assistant *mockAssistant, index handlers.ImageIndex) (handlers.Main, string) {
	t.Helper()

	dir := t.TempDir()
	images, err := services.NewImageDir(dir, "/generated-images")
	require.NoError(t, err)

	m, err := handlers.NewMain(assistant, images, index, handlers.Options{}, discardLogger)
	require.NoError(t, err)
	return m, dir
}

func postJSON(t *testing.T, h http.HandlerFunc, url string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var raw []byte
	switch b := body.(type) {
	case string:
		raw = []byte(b)
	default:
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h(w, req)

	var res map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), "body: %s", w.Body.String())
	return w, res
}

func TestNewMain(t *testing.T) {
	_, err := handlers.NewMain(&mockAssistant{}, nil, nil, handlers.Options{}, discardLogger)
	require.NoError(t, err)
}

func TestHandleHome(t *testing.T) {
	m, _ := newTestMain(t, &mockAssistant{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	m.HandleHome(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	for _, want := range []string{
		"Faey Assistant",
		`data-tab="chat"`,
		`data-tab="image-gen"`,
		`data-tab="image-analysis"`,
		`data-default-size="1024x1024"`,
		`data-history-limit="10"`,
		"/static/app.js",
	} {
		assert.Contains(t, body, want)
	}
}

func (m *mockAssistant) Chat(_ context.Context, messages []models.ChatMessage) (string, error) {
	m.chatCalls++
	m.lastMessages = messages
	if m.panics {
		panic("boom")
	}
	return m.reply, m.err
}

func (m *mockAssistant) GenerateImage(_ context.Context, prompt, size string) (string, error) {
	m.generateCalls++
	m.lastPrompt = prompt
	m.lastSize = size
	return m.image, m.err
}

func (m *mockAssistant) DescribeImage(_ context.Context, image, question string) (string, error) {
	m.describeCalls++
	m.lastImage = image
	m.lastQuestion = question
	return m.analysis, m.err
}

func (m *mockIndex) AddImage(_ context.Context, image models.GeneratedImage) error {
	if m.err != nil {
		return m.err
	}
	m.images = append([]models.GeneratedImage{image}, m.images...)
	return nil
}

func (m *mockIndex) Images(_ context.Context, limit int) ([]models.GeneratedImage, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit > 0 && len(m.images) > limit {
		return m.images[:limit], nil
	}
	return m.images, nil
}
