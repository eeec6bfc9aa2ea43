package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/MegaGrindStone/faey-assistant/internal/models"
	goopenai "github.com/sashabaranov/go-openai"
)

// OpenAI provides chat completion, image generation and vision analysis through the OpenAI API, or any
// OpenAI-compatible endpoint when a base URL is given.
type OpenAI struct {
	model       string
	visionModel string
	imageModel  string

	params LLMParameters

	client *goopenai.Client

	logger *slog.Logger
}

// OpenAIOptions configures an OpenAI provider. Empty models fall back to the package defaults.
type OpenAIOptions struct {
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string
	ImageModel  string
	Params      LLMParameters
}

const (
	defaultOpenAIModel      = goopenai.GPT4oMini
	defaultOpenAIImageModel = goopenai.CreateImageModelDallE3
)

// NewOpenAI creates a new OpenAI instance from the given options.
func NewOpenAI(opts OpenAIOptions, logger *slog.Logger) OpenAI {
	cfg := goopenai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	model := opts.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	visionModel := opts.VisionModel
	if visionModel == "" {
		visionModel = model
	}
	imageModel := opts.ImageModel
	if imageModel == "" {
		imageModel = defaultOpenAIImageModel
	}

	return OpenAI{
		model:       model,
		visionModel: visionModel,
		imageModel:  imageModel,
		params:      opts.Params,
		client:      goopenai.NewClientWithConfig(cfg),
		logger:      logger.With(slog.String("module", "openai")),
	}
}

func openAIMessages(messages []models.ChatMessage) []goopenai.ChatCompletionMessage {
	msgs := make([]goopenai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		msgs[i] = goopenai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}
	return msgs
}

// Chat is a wrapper around the OpenAI chat completion API.
func (o OpenAI) Chat(ctx context.Context, messages []models.ChatMessage) (string, error) {
	req := o.chatRequest(o.model, openAIMessages(messages))

	reqJSON, err := json.Marshal(req)
	if err == nil {
		o.logger.Debug("Request", slog.String("req", string(reqJSON)))
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}

// GenerateImage is a wrapper around the OpenAI image generation API. The image is requested as base64 so
// that it can be written to disk without a second download.
func (o OpenAI) GenerateImage(ctx context.Context, prompt, size string) (string, error) {
	req := goopenai.ImageRequest{
		Prompt:         prompt,
		Model:          o.imageModel,
		Size:           size,
		N:              1,
		ResponseFormat: goopenai.CreateImageResponseFormatB64JSON,
	}

	resp, err := o.client.CreateImage(ctx, req)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}

	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return "", ErrNoImageData
	}

	if resp.Data[0].RevisedPrompt != "" {
		o.logger.Debug("Prompt revised by provider",
			slog.String("prompt", prompt),
			slog.String("revisedPrompt", resp.Data[0].RevisedPrompt))
	}

	return resp.Data[0].B64JSON, nil
}

// DescribeImage sends the question together with the image as a single multi-part user message.
func (o OpenAI) DescribeImage(ctx context.Context, image, question string) (string, error) {
	msgs := []goopenai.ChatCompletionMessage{
		{
			Role: goopenai.ChatMessageRoleUser,
			MultiContent: []goopenai.ChatMessagePart{
				{
					Type: goopenai.ChatMessagePartTypeText,
					Text: question,
				},
				{
					Type: goopenai.ChatMessagePartTypeImageURL,
					ImageURL: &goopenai.ChatMessageImageURL{
						URL:    models.ImageDataURL(image),
						Detail: goopenai.ImageURLDetailAuto,
					},
				},
			},
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, o.chatRequest(o.visionModel, msgs))
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrNoAnalysis
	}

	return resp.Choices[0].Message.Content, nil
}

func (o OpenAI) chatRequest(model string, messages []goopenai.ChatCompletionMessage) goopenai.ChatCompletionRequest {
	req := goopenai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}

	if o.params.Temperature != nil {
		req.Temperature = *o.params.Temperature
	}
	if o.params.TopP != nil {
		req.TopP = *o.params.TopP
	}
	if o.params.MaxTokens != nil {
		req.MaxTokens = *o.params.MaxTokens
	}
	if o.params.Seed != nil {
		req.Seed = o.params.Seed
	}

	return req
}
