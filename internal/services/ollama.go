package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/MegaGrindStone/faey-assistant/internal/models"
	"github.com/ollama/ollama/api"
)

// Ollama provides chat and vision analysis through an Ollama server. Ollama has no image synthesis, so it
// is paired with another ImageGenerator through Composite when generation is wanted.
type Ollama struct {
	host        string
	model       string
	visionModel string

	params LLMParameters

	client *api.Client

	logger *slog.Logger
}

// NewOllama creates a new Ollama instance with the specified host URL and model names. The host parameter
// should be a valid URL pointing to an Ollama server. An empty visionModel reuses model.
func NewOllama(host, model, visionModel string, params LLMParameters, logger *slog.Logger) (Ollama, error) {
	u, err := url.Parse(host)
	if err != nil {
		return Ollama{}, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	if visionModel == "" {
		visionModel = model
	}

	return Ollama{
		host:        host,
		model:       model,
		visionModel: visionModel,
		params:      params,
		client:      api.NewClient(u, &http.Client{}),
		logger:      logger.With(slog.String("module", "ollama")),
	}, nil
}

// Chat sends the conversation in a single non-streaming request and returns the reply.
func (o Ollama) Chat(ctx context.Context, messages []models.ChatMessage) (string, error) {
	msgs := make([]api.Message, len(messages))
	for i, msg := range messages {
		msgs[i] = api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}

	content, err := o.complete(ctx, o.model, msgs)
	if err != nil {
		return "", err
	}
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

// DescribeImage decodes the image and attaches it to a user message carrying the question.
func (o Ollama) DescribeImage(ctx context.Context, image, question string) (string, error) {
	_, raw, err := models.DecodeImageData(image)
	if err != nil {
		return "", err
	}

	content, err := o.complete(ctx, o.visionModel, []api.Message{
		{
			Role:    string(models.RoleUser),
			Content: question,
			Images:  []api.ImageData{raw},
		},
	})
	if err != nil {
		return "", err
	}
	if content == "" {
		return "", ErrNoAnalysis
	}
	return content, nil
}

// GenerateImage always fails: Ollama cannot synthesize images.
func (o Ollama) GenerateImage(context.Context, string, string) (string, error) {
	return "", ErrImageGenerationUnavailable
}

func (o Ollama) complete(ctx context.Context, model string, msgs []api.Message) (string, error) {
	f := false
	req := api.ChatRequest{
		Model:    model,
		Messages: msgs,
		Stream:   &f,
		Options:  o.options(),
	}

	var content string
	if err := o.client.Chat(ctx, &req, func(res api.ChatResponse) error {
		content += res.Message.Content
		return nil
	}); err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}

	o.logger.Debug("Completion received", slog.String("model", model), slog.Int("length", len(content)))

	return content, nil
}

func (o Ollama) options() map[string]any {
	opts := map[string]any{}
	if o.params.Temperature != nil {
		opts["temperature"] = *o.params.Temperature
	}
	if o.params.TopP != nil {
		opts["top_p"] = *o.params.TopP
	}
	if o.params.MaxTokens != nil {
		opts["num_predict"] = *o.params.MaxTokens
	}
	if o.params.Seed != nil {
		opts["seed"] = *o.params.Seed
	}
	if len(opts) == 0 {
		return nil
	}
	return opts
}
