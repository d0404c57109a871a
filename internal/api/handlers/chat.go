package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/api/middleware"
	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/llm"
	"github.com/dvloznov/finance-assistant/internal/pipeline"
)

const maxChatBodyBytes = 1 << 20

// TurnRunner runs one chat turn.
type TurnRunner interface {
	Run(ctx context.Context, userID string, messages []domain.ChatMessage) (*pipeline.TurnResult, error)
}

// ChatHandler handles the chat endpoint.
type ChatHandler struct {
	runner TurnRunner
	log    zerolog.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(runner TurnRunner, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		runner: runner,
		log:    log,
	}
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Messages []domain.ChatMessage `json:"messages"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := pipeline.WithRequestID(r.Context(), middleware.RequestIDFromContext(r.Context()))

	result, err := h.runner.Run(ctx, userID, req.Messages)
	switch {
	case err == nil:
	case errors.Is(err, llm.ErrNotConfigured):
		h.log.Error().Msg("completion API key not configured")
		middleware.WriteError(w, http.StatusInternalServerError,
			"Completion API key not configured. Please set GROQ_API_KEY or FINANCE_LLM_API_KEY.")
		return
	case errors.Is(err, pipeline.ErrNoUserMessage):
		middleware.WriteError(w, http.StatusBadRequest, "messages must contain at least one user message")
		return
	default:
		h.log.Error().Err(err).Str("user_id", userID).Msg("Chat request failed")
		middleware.WriteErrorDetails(w, http.StatusInternalServerError, middleware.ErrorResponse{
			Error:   "Failed to process chat request. Please check your API configuration.",
			Details: err.Error(),
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}
