// Package httpapi exposes the shopping assistant over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/omnicart/assistant/internal/assistant"
	"github.com/omnicart/assistant/internal/query"
	"github.com/omnicart/assistant/internal/retrieval"
)

// DefaultRequestTimeout bounds one chat request end to end. On expiry the
// shopper gets the temporarily-unavailable reply instead of a hung request.
const DefaultRequestTimeout = 20 * time.Second

type chatEnvelope struct {
	Success bool                `json:"success"`
	Data    *assistant.Response `json:"data,omitempty"`
	Message string              `json:"message,omitempty"`
}

// Handler serves the chat endpoints.
type Handler struct {
	service *assistant.Service
	timeout time.Duration
	logger  *slog.Logger
}

// NewHandler creates a Handler. A non-positive timeout falls back to
// DefaultRequestTimeout; a nil logger falls back to slog.Default().
func NewHandler(service *assistant.Service, timeout time.Duration, logger *slog.Logger) *Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, timeout: timeout, logger: logger}
}

// Register mounts the chat routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /chat", h.handleChat)
	mux.HandleFunc("GET /chat/health", h.handleHealth)
	mux.HandleFunc("GET /health", h.handleHealth)
}

// handleHealth is a static readiness acknowledgement; it touches no core
// state.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, chatEnvelope{
		Success: true,
		Message: "Chat assistant is ready",
	})
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	start := time.Now()

	var body struct {
		Message any `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, chatEnvelope{
			Success: false,
			Message: "Please provide a message to process.",
		})
		return
	}
	message, ok := body.Message.(string)
	if !ok || message == "" {
		writeJSON(w, http.StatusBadRequest, chatEnvelope{
			Success: false,
			Message: "Please provide a message to process.",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	done := make(chan *assistant.Response, 1)
	go func() {
		done <- h.service.Respond(ctx, message)
	}()

	var response *assistant.Response
	select {
	case response = <-done:
	case <-ctx.Done():
		response = &assistant.Response{
			Reply:    assistant.ReplyUnavailable,
			Sources:  []string{},
			Products: []retrieval.Product{},
			Shops:    []retrieval.Shop{},
			Actions:  []assistant.Action{},
			Intent:   query.IntentError,
		}
	}

	h.logger.Info("Chat request resolved",
		"request_id", requestID,
		"intent", response.Intent,
		"products", len(response.Products),
		"duration", time.Since(start),
	)
	writeJSON(w, http.StatusOK, chatEnvelope{Success: true, Data: response})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
