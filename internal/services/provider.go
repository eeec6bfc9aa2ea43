package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MegaGrindStone/faey-assistant/internal/models"
)

// Assistant is the full capability set the gateway endpoints consume. Implementations return the first
// usable result of each call, or an error.
type Assistant interface {
	Chat(ctx context.Context, messages []models.ChatMessage) (string, error)
	GenerateImage(ctx context.Context, prompt, size string) (string, error)
	DescribeImage(ctx context.Context, image, question string) (string, error)
}

// Chatter produces a completion for a conversation.
type Chatter interface {
	Chat(ctx context.Context, messages []models.ChatMessage) (string, error)
}

// ImageGenerator synthesizes an image and returns it base64 encoded.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt, size string) (string, error)
}

// VisionModel answers a question about an image given as a data URI or base64 string.
type VisionModel interface {
	DescribeImage(ctx context.Context, image, question string) (string, error)
}

// LLMParameters holds optional sampling parameters shared by the chat providers.
type LLMParameters struct {
	Temperature *float32 `yaml:"temperature"`
	TopP        *float32 `yaml:"topP"`
	MaxTokens   *int     `yaml:"maxTokens"`
	Seed        *int     `yaml:"seed"`
}

var (
	// ErrEmptyResponse is returned when a provider answered a chat request without any content.
	ErrEmptyResponse = errors.New("Empty response from AI")
	// ErrNoImageData is returned when a provider answered an image request without image data.
	ErrNoImageData = errors.New("No image data in response")
	// ErrNoAnalysis is returned when a provider answered a vision request without any content.
	ErrNoAnalysis = errors.New("No analysis result in response")
	// ErrImageGenerationUnavailable is returned by providers that cannot synthesize images.
	ErrImageGenerationUnavailable = errors.New("image generation is not configured")
)

// Composite joins a chat+vision provider with a separate image generator, so that e.g. a local Ollama model
// can answer questions while OpenAI draws pictures. A nil Images field disables image generation.
type Composite struct {
	Chatter
	VisionModel
	Images ImageGenerator
}

// GenerateImage delegates to the configured image generator.
func (c Composite) GenerateImage(ctx context.Context, prompt, size string) (string, error) {
	if c.Images == nil {
		return "", ErrImageGenerationUnavailable
	}
	return c.Images.GenerateImage(ctx, prompt, size)
}

// Lazy builds an Assistant on first use and keeps it for the lifetime of the process. A failed build is
// not remembered, the next call tries again.
type Lazy struct {
	build func() (Assistant, error)

	mu        sync.Mutex
	assistant Assistant
}

// NewLazy returns a Lazy that calls build at most once successfully.
func NewLazy(build func() (Assistant, error)) *Lazy {
	return &Lazy{build: build}
}

func (l *Lazy) get() (Assistant, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.assistant != nil {
		return l.assistant, nil
	}

	a, err := l.build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize provider: %w", err)
	}
	l.assistant = a
	return a, nil
}

// Chat implements Assistant.
func (l *Lazy) Chat(ctx context.Context, messages []models.ChatMessage) (string, error) {
	a, err := l.get()
	if err != nil {
		return "", err
	}
	return a.Chat(ctx, messages)
}

// GenerateImage implements Assistant.
func (l *Lazy) GenerateImage(ctx context.Context, prompt, size string) (string, error) {
	a, err := l.get()
	if err != nil {
		return "", err
	}
	return a.GenerateImage(ctx, prompt, size)
}

// DescribeImage implements Assistant.
func (l *Lazy) DescribeImage(ctx context.Context, image, question string) (string, error) {
	a, err := l.get()
	if err != nil {
		return "", err
	}
	return a.DescribeImage(ctx, image, question)
}
