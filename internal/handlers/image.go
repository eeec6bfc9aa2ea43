package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/MegaGrindStone/faey-assistant/internal/models"
	"github.com/google/uuid"
)

type generateResponse struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"imageUrl"`
	Prompt   string `json:"prompt"`
	Size     string `json:"size"`
}

type analyzeResponse struct {
	Success  bool   `json:"success"`
	Analysis string `json:"analysis"`
	HTML     string `json:"html,omitempty"`
}

type imagesResponse struct {
	Success bool                    `json:"success"`
	Images  []models.GeneratedImage `json:"images"`
}

const (
	generateEndpoint = "generate-image"
	generateFallback = "Failed to generate image"
	analyzeEndpoint  = "analyze-image"
	analyzeFallback  = "Failed to analyze image"
	imagesEndpoint   = "images"

	defaultImagesLimit = 50
)

var (
	errNoImageData = errors.New("No image data in response")
	errNoAnalysis  = errors.New("No analysis result in response")
)

// HandleGenerateImage asks the assistant for an image, writes the decoded bytes to the public image
// directory and answers with the URL of the written file.
//
// The handler expects a JSON body with a string "prompt" and an optional string "size" that defaults to
// 1024x1024. The file is written before the response is sent, so the returned URL always resolves.
func (m Main) HandleGenerateImage(w http.ResponseWriter, r *http.Request) {
	defer m.recoverFailure(w, generateEndpoint, generateFallback)

	body, err := decodeBody(w, r)
	if err != nil {
		m.fail(w, generateEndpoint, err, generateFallback)
		return
	}

	prompt, ok := requiredString(body, "prompt")
	if !ok {
		m.reject(w, generateEndpoint, "Prompt is required and must be a string")
		return
	}

	size := models.DefaultImageSize
	if raw := body["size"]; raw != nil {
		s, ok := raw.(string)
		if !ok {
			m.reject(w, generateEndpoint, "Size must be a string")
			return
		}
		if s != "" {
			size = s
		}
	}

	done := timeProvider(generateEndpoint)
	b64, err := m.assistant.GenerateImage(r.Context(), prompt, size)
	if err == nil && b64 == "" {
		err = errNoImageData
	}
	done(err)
	if err != nil {
		m.fail(w, generateEndpoint, err, generateFallback)
		return
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		m.fail(w, generateEndpoint, fmt.Errorf("failed to decode image data: %w", err), generateFallback)
		return
	}

	now := time.Now()
	imageURL, err := m.images.Save(data, now)
	if err != nil {
		m.fail(w, generateEndpoint, err, generateFallback)
		return
	}

	if m.index != nil {
		img := models.GeneratedImage{
			ID:        uuid.New().String(),
			Prompt:    prompt,
			Size:      size,
			ImageURL:  imageURL,
			CreatedAt: now,
		}
		// The file is already in place, so a failed index write only costs the gallery listing.
		if err := m.index.AddImage(r.Context(), img); err != nil {
			m.logger.Warn("Failed to index generated image",
				slog.String("imageURL", imageURL),
				slog.String(errLoggerKey, err.Error()))
		}
	}

	m.ok(w, generateEndpoint, generateResponse{
		Success:  true,
		ImageURL: imageURL,
		Prompt:   prompt,
		Size:     size,
	})
}

// HandleAnalyzeImage asks the assistant a question about an uploaded image.
//
// The handler expects a JSON body with "image", a data URI or bare base64 string, and a string "question".
// Either being missing is rejected with 400 before the assistant is called.
func (m Main) HandleAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	defer m.recoverFailure(w, analyzeEndpoint, analyzeFallback)

	body, err := decodeBody(w, r)
	if err != nil {
		m.fail(w, analyzeEndpoint, err, analyzeFallback)
		return
	}

	image, ok := requiredString(body, "image")
	if !ok {
		m.reject(w, analyzeEndpoint, "Image data (base64) is required")
		return
	}
	question, ok := requiredString(body, "question")
	if !ok {
		m.reject(w, analyzeEndpoint, "Question is required and must be a string")
		return
	}

	done := timeProvider(analyzeEndpoint)
	answer, err := m.assistant.DescribeImage(r.Context(), image, question)
	if err == nil && answer == "" {
		err = errNoAnalysis
	}
	done(err)
	if err != nil {
		m.fail(w, analyzeEndpoint, err, analyzeFallback)
		return
	}

	result := models.AnalysisResult{
		SourceImage: image,
		Question:    question,
		Answer:      answer,
	}
	m.logger.Debug("Image analyzed",
		slog.String("question", result.Question),
		slog.Int("imageLength", len(result.SourceImage)))

	m.ok(w, analyzeEndpoint, analyzeResponse{
		Success:  true,
		Analysis: result.Answer,
		HTML:     m.renderReply(result.Answer),
	})
}

// HandleImages lists indexed generated images, most recent first. The optional "limit" query parameter
// caps the number of records.
func (m Main) HandleImages(w http.ResponseWriter, r *http.Request) {
	limit := defaultImagesLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			m.reject(w, imagesEndpoint, "Limit must be a positive integer")
			return
		}
		limit = n
	}

	images := []models.GeneratedImage{}
	if m.index != nil {
		stored, err := m.index.Images(r.Context(), limit)
		if err != nil {
			m.fail(w, imagesEndpoint, err, "Failed to list images")
			return
		}
		if stored != nil {
			images = stored
		}
	}

	m.ok(w, imagesEndpoint, imagesResponse{
		Success: true,
		Images:  images,
	})
}
