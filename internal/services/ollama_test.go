package services_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MegaGrindStone/faey-assistant/internal/models"
	"github.com/MegaGrindStone/faey-assistant/internal/services"
	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOllama(t *testing.T, reply string, got *api.ChatRequest) services.Ollama {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.ChatResponse{
			Model:   got.Model,
			Message: api.Message{Role: "assistant", Content: reply},
			Done:    true,
		})
	}))
	t.Cleanup(srv.Close)

	o, err := services.NewOllama(srv.URL, "llama3", "llava", services.LLMParameters{}, discardLogger)
	require.NoError(t, err)
	return o
}

func TestOllamaChat(t *testing.T) {
	var got api.ChatRequest
	o := newTestOllama(t, "Hello from llama", &got)

	reply, err := o.Chat(context.Background(), []models.ChatMessage{
		{Role: models.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello from llama", reply)
	assert.Equal(t, "llama3", got.Model)
	require.NotNil(t, got.Stream)
	assert.False(t, *got.Stream)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hi", got.Messages[0].Content)
}

func TestOllamaChatEmpty(t *testing.T) {
	var got api.ChatRequest
	o := newTestOllama(t, "", &got)

	_, err := o.Chat(context.Background(), []models.ChatMessage{{Role: models.RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, services.ErrEmptyResponse)
}

func TestOllamaDescribeImage(t *testing.T) {
	var got api.ChatRequest
	o := newTestOllama(t, "A cat", &got)

	answer, err := o.DescribeImage(context.Background(), "data:image/png;base64,aGVsbG8=", "what is this?")
	require.NoError(t, err)
	assert.Equal(t, "A cat", answer)
	assert.Equal(t, "llava", got.Model)
	require.Len(t, got.Messages, 1)
	require.Len(t, got.Messages[0].Images, 1)
	assert.Equal(t, []byte("hello"), []byte(got.Messages[0].Images[0]))
}

func TestOllamaDescribeImageInvalid(t *testing.T) {
	var got api.ChatRequest
	o := newTestOllama(t, "A cat", &got)

	_, err := o.DescribeImage(context.Background(), "data:image/png,notbase64", "what is this?")
	assert.ErrorIs(t, err, models.ErrInvalidImageData)
}

func TestOllamaGenerateImageUnavailable(t *testing.T) {
	var got api.ChatRequest
	o := newTestOllama(t, "", &got)

	_, err := o.GenerateImage(context.Background(), "a cat", models.DefaultImageSize)
	assert.ErrorIs(t, err, services.ErrImageGenerationUnavailable)
}
