package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MegaGrindStone/faey-assistant/internal/models"
	"github.com/tmaxmax/go-sse"
)

// Anthropic provides chat and vision analysis through the Anthropic Messages API. Responses are streamed
// and collected into a single reply.
type Anthropic struct {
	apiKey    string
	model     string
	maxTokens int
	endpoint  string

	params LLMParameters

	client *http.Client

	logger *slog.Logger
}

type anthropicChatRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float32           `json:"temperature,omitempty"`
	TopP        *float32           `json:"top_p,omitempty"`
	Stream      bool               `json:"stream"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type   string                `json:"type"`
	Text   string                `json:"text,omitempty"`
	Source *anthropicImageSource `json:"source,omitempty"`
}

type anthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicStreamResponse struct {
	Type  string `json:"type"`
	Delta struct {
		Text string `json:"text"`
	} `json:"delta"`
}

type anthropicError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

const (
	anthropicAPIEndpoint    = "https://api.anthropic.com/v1"
	anthropicDefaultTokens  = 1024
	anthropicRequestVersion = "2023-06-01"
)

// NewAnthropic creates a new Anthropic instance with the specified API key, model name, and maximum
// token limit. An empty endpoint targets the public API.
func NewAnthropic(apiKey, model, endpoint string, maxTokens int, params LLMParameters, logger *slog.Logger) Anthropic {
	if endpoint == "" {
		endpoint = anthropicAPIEndpoint
	}
	if maxTokens == 0 {
		maxTokens = anthropicDefaultTokens
	}
	return Anthropic{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		endpoint:  strings.TrimSuffix(endpoint, "/"),
		params:    params,
		client:    &http.Client{},
		logger:    logger.With(slog.String("module", "anthropic")),
	}
}

func extractSystemMessage(messages []models.ChatMessage) (string, []models.ChatMessage) {
	if len(messages) == 0 {
		return "", messages
	}

	if messages[0].Role == models.RoleSystem {
		return messages[0].Content, messages[1:]
	}

	return "", messages
}

// Chat streams a reply from the Anthropic API and returns it once the stream ends. A leading system
// message is sent through the dedicated system field.
func (a Anthropic) Chat(ctx context.Context, messages []models.ChatMessage) (string, error) {
	systemMessage, ms := extractSystemMessage(messages)

	msgs := make([]anthropicMessage, len(ms))
	for i, msg := range ms {
		msgs[i] = anthropicMessage{
			Role:    string(msg.Role),
			Content: []anthropicContent{{Type: "text", Text: msg.Content}},
		}
	}

	reply, err := a.stream(ctx, systemMessage, msgs)
	if err != nil {
		return "", err
	}
	if reply == "" {
		return "", ErrEmptyResponse
	}
	return reply, nil
}

// DescribeImage sends the image as a base64 content block followed by the question.
func (a Anthropic) DescribeImage(ctx context.Context, image, question string) (string, error) {
	mediaType, raw, err := models.DecodeImageData(image)
	if err != nil {
		return "", err
	}
	if len(raw) == 0 {
		return "", models.ErrInvalidImageData
	}

	reply, err := a.stream(ctx, "", []anthropicMessage{
		{
			Role: string(models.RoleUser),
			Content: []anthropicContent{
				{
					Type: "image",
					Source: &anthropicImageSource{
						Type:      "base64",
						MediaType: mediaType,
						Data:      base64.StdEncoding.EncodeToString(raw),
					},
				},
				{Type: "text", Text: question},
			},
		},
	})
	if err != nil {
		return "", err
	}
	if reply == "" {
		return "", ErrNoAnalysis
	}
	return reply, nil
}

// GenerateImage always fails: the Messages API cannot synthesize images.
func (a Anthropic) GenerateImage(context.Context, string, string) (string, error) {
	return "", ErrImageGenerationUnavailable
}

func (a Anthropic) stream(ctx context.Context, system string, msgs []anthropicMessage) (string, error) {
	reqBody := anthropicChatRequest{
		Model:       a.model,
		Messages:    msgs,
		System:      system,
		MaxTokens:   a.maxTokens,
		Temperature: a.params.Temperature,
		TopP:        a.params.TopP,
		Stream:      true,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"/messages", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicRequestVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", a.responseError(resp)
	}

	var sb strings.Builder
	for ev, err := range sse.Read(resp.Body, nil) {
		if err != nil {
			return "", fmt.Errorf("error reading response: %w", err)
		}
		switch ev.Type {
		case "error":
			var e anthropicError
			if err := json.Unmarshal([]byte(ev.Data), &e); err != nil {
				return "", fmt.Errorf("error unmarshaling error: %w", err)
			}
			return "", fmt.Errorf("anthropic error %s: %s", e.Error.Type, e.Error.Message)
		case "message_stop":
			return sb.String(), nil
		case "content_block_delta":
			var res anthropicStreamResponse
			if err := json.Unmarshal([]byte(ev.Data), &res); err != nil {
				return "", fmt.Errorf("error unmarshaling response: %w", err)
			}
			sb.WriteString(res.Delta.Text)
		default:
			continue
		}
	}

	a.logger.Warn("Stream ended without message_stop")
	return sb.String(), nil
}

func (a Anthropic) responseError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var e anthropicError
	if err := json.Unmarshal(body, &e); err != nil || e.Error.Message == "" {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return fmt.Errorf("anthropic error %s: %s", e.Error.Type, e.Error.Message)
}
