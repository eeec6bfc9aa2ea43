package services_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MegaGrindStone/faey-assistant/internal/models"
	"github.com/MegaGrindStone/faey-assistant/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeOpenAI struct {
	reply    string
	b64Image string

	lastChat  map[string]any
	lastImage map[string]any
}

func (f *fakeOpenAI) server(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastChat))
		choices := []map[string]any{}
		if f.reply != "" {
			choices = append(choices, map[string]any{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": f.reply},
				"finish_reason": "stop",
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": choices,
		})
	})
	mux.HandleFunc("POST /v1/images/generations", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastImage))
		data := []map[string]any{}
		if f.b64Image != "" {
			data = append(data, map[string]any{"b64_json": f.b64Image})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"created": 1, "data": data})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestOpenAI(t *testing.T, f *fakeOpenAI) services.OpenAI {
	t.Helper()
	srv := f.server(t)
	return services.NewOpenAI(services.OpenAIOptions{
		APIKey:  "test",
		BaseURL: srv.URL + "/v1",
		Model:   "gpt-test",
	}, discardLogger)
}

func TestOpenAIChat(t *testing.T) {
	f := &fakeOpenAI{reply: "Hello there"}
	o := newTestOpenAI(t, f)

	reply, err := o.Chat(context.Background(), []models.ChatMessage{
		{Role: models.RoleAssistant, Content: "You are helpful."},
		{Role: models.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there", reply)

	assert.Equal(t, "gpt-test", f.lastChat["model"])
	msgs, ok := f.lastChat["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "assistant", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "hi", msgs[1].(map[string]any)["content"])
}

func TestOpenAIChatEmpty(t *testing.T) {
	o := newTestOpenAI(t, &fakeOpenAI{})

	_, err := o.Chat(context.Background(), []models.ChatMessage{{Role: models.RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, services.ErrEmptyResponse)
}

func TestOpenAIGenerateImage(t *testing.T) {
	f := &fakeOpenAI{b64Image: "aGVsbG8="}
	o := newTestOpenAI(t, f)

	img, err := o.GenerateImage(context.Background(), "a cat", "1024x1024")
	require.NoError(t, err)
	assert.Equal(t, "aGVsbG8=", img)

	assert.Equal(t, "a cat", f.lastImage["prompt"])
	assert.Equal(t, "1024x1024", f.lastImage["size"])
	assert.Equal(t, "b64_json", f.lastImage["response_format"])
}

func TestOpenAIGenerateImageNoData(t *testing.T) {
	o := newTestOpenAI(t, &fakeOpenAI{})

	_, err := o.GenerateImage(context.Background(), "a cat", "1024x1024")
	assert.ErrorIs(t, err, services.ErrNoImageData)
}

func TestOpenAIDescribeImage(t *testing.T) {
	f := &fakeOpenAI{reply: "A cat on a sofa"}
	o := newTestOpenAI(t, f)

	answer, err := o.DescribeImage(context.Background(), "data:image/png;base64,aGVsbG8=", "what is this?")
	require.NoError(t, err)
	assert.Equal(t, "A cat on a sofa", answer)

	msgs := f.lastChat["messages"].([]any)
	require.Len(t, msgs, 1)
	parts, ok := msgs[0].(map[string]any)["content"].([]any)
	require.True(t, ok, "vision message must be multi-part")
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].(map[string]any)["type"])
	assert.Equal(t, "what is this?", parts[0].(map[string]any)["text"])
	assert.Equal(t, "image_url", parts[1].(map[string]any)["type"])
	imageURL := parts[1].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", imageURL["url"])
}

func TestOpenAIDescribeImageEmpty(t *testing.T) {
	o := newTestOpenAI(t, &fakeOpenAI{})

	_, err := o.DescribeImage(context.Background(), "data:image/png;base64,aGVsbG8=", "what is this?")
	assert.ErrorIs(t, err, services.ErrNoAnalysis)
}
