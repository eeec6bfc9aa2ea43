package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

type failureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type rejectionResponse struct {
	Error string `json:"error"`
}

// maxBodyBytes bounds request bodies; analysis requests carry a whole image as a data URI.
const maxBodyBytes = 20 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody reads a JSON body. Anything that is not an object decodes to an empty body, so missing fields
// are reported by validation rather than as a processing failure.
func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	var v any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	body, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}
	return body, nil
}

// requiredString returns the field when it is a non-empty string.
func requiredString(body map[string]any, key string) (string, bool) {
	s, ok := body[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func (m Main) ok(w http.ResponseWriter, endpoint string, v any) {
	writeJSON(w, http.StatusOK, v)
	gatewayRequests.WithLabelValues(endpoint, strconv.Itoa(http.StatusOK)).Inc()
}

// reject answers a validation failure. The provider must not have been called.
func (m Main) reject(w http.ResponseWriter, endpoint, message string) {
	m.logger.Warn("Rejected request", slog.String("endpoint", endpoint), slog.String("reason", message))
	writeJSON(w, http.StatusBadRequest, rejectionResponse{Error: message})
	gatewayRequests.WithLabelValues(endpoint, strconv.Itoa(http.StatusBadRequest)).Inc()
}

// fail answers a processing failure with the error message, or fallback when the message is empty.
func (m Main) fail(w http.ResponseWriter, endpoint string, err error, fallback string) {
	msg := fallback
	if err != nil {
		m.logger.Error("Request failed", slog.String("endpoint", endpoint), slog.String(errLoggerKey, err.Error()))
		if err.Error() != "" {
			msg = err.Error()
		}
	}
	writeJSON(w, http.StatusInternalServerError, failureResponse{Success: false, Error: msg})
	gatewayRequests.WithLabelValues(endpoint, strconv.Itoa(http.StatusInternalServerError)).Inc()
}

// recoverFailure turns a panic inside a handler into a failure envelope.
func (m Main) recoverFailure(w http.ResponseWriter, endpoint, fallback string) {
	if rec := recover(); rec != nil {
		m.logger.Error("Handler panicked", slog.String("endpoint", endpoint), slog.Any("panic", rec))
		m.fail(w, endpoint, nil, fallback)
	}
}
