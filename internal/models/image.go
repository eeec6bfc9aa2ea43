package models

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// GeneratedImage is a record of a successful image generation. ImageURL is the public path of the file
// that was written before the record was created.
type GeneratedImage struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Size      string    `json:"size"`
	ImageURL  string    `json:"imageUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

// AnalysisResult is the answer to a question asked about an uploaded image.
type AnalysisResult struct {
	SourceImage string `json:"-"`
	Question    string `json:"question"`
	Answer      string `json:"analysis"`
}

// DefaultImageSize is used when a generation request does not name a size.
const DefaultImageSize = "1024x1024"

// ErrInvalidImageData is returned when an image payload is neither a base64 data URI nor plain base64.
var ErrInvalidImageData = errors.New("invalid image data")

// ImageDataURL normalizes an uploaded image into something a provider accepts as an image URL. Data URIs
// and http(s) URLs pass through untouched; bare base64 is wrapped into a data URI with a sniffed media type.
func ImageDataURL(image string) string {
	if strings.HasPrefix(image, "data:") ||
		strings.HasPrefix(image, "http://") ||
		strings.HasPrefix(image, "https://") {
		return image
	}

	mediaType := "image/png"
	if raw, err := base64.StdEncoding.DecodeString(image); err == nil {
		mediaType = http.DetectContentType(raw)
	}
	return fmt.Sprintf("data:%s;base64,%s", mediaType, image)
}

// DecodeImageData extracts the media type and raw bytes from a base64 data URI or a bare base64 string.
func DecodeImageData(image string) (string, []byte, error) {
	payload := image
	mediaType := ""

	if rest, ok := strings.CutPrefix(image, "data:"); ok {
		header, data, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(header, ";base64") {
			return "", nil, fmt.Errorf("%w: data URI is not base64 encoded", ErrInvalidImageData)
		}
		mediaType = strings.TrimSuffix(header, ";base64")
		payload = data
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalidImageData, err)
	}
	if mediaType == "" {
		mediaType = http.DetectContentType(raw)
	}
	return mediaType, raw, nil
}
