package chatbot

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/trading-academy/internal/chatbot/booking"
	"github.com/wolfman30/trading-academy/internal/http/respond"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

const maxAIHistory = 8

// Handler exposes the engine over HTTP.
type Handler struct {
	engine *Engine
	llm    LLMClient
	logger *logging.Logger
}

func NewHandler(engine *Engine, llm LLMClient, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, llm: llm, logger: logger}
}

// MessageRequest is the body of POST /chatbot/message. Exactly one of
// Message and QuickReply is expected; an empty SessionID starts a session.
type MessageRequest struct {
	SessionID  string `json:"session_id"`
	Message    string `json:"message"`
	QuickReply string `json:"quick_reply,omitempty"`
}

// Message handles POST /chatbot/message.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		req.SessionID = uuid.NewString()
	}

	var (
		resp Response
		err  error
	)
	if req.QuickReply != "" {
		resp, err = h.engine.QuickReply(r.Context(), req.SessionID, req.QuickReply)
	} else {
		resp, err = h.engine.HandleMessage(r.Context(), req.SessionID, req.Message)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, resp)
}

// StartBookingRequest is the body of POST /chatbot/booking/start.
type StartBookingRequest struct {
	SessionID string `json:"session_id"`
	OfferID   string `json:"offer_id"`
	OfferName string `json:"offer_name"`
	Source    string `json:"source"`
}

// StartBooking handles POST /chatbot/booking/start.
func (h *Handler) StartBooking(w http.ResponseWriter, r *http.Request) {
	var req StartBookingRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		req.SessionID = uuid.NewString()
	}
	resp, err := h.engine.StartBooking(r.Context(), req.SessionID, booking.Offer{
		OfferID:   req.OfferID,
		OfferName: req.OfferName,
		Source:    req.Source,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, resp)
}

// AIRequest is the body of POST /chatbot/ai.
type AIRequest struct {
	Message string        `json:"message"`
	History []ChatMessage `json:"history"`
}

// AIResponse is returned by POST /chatbot/ai.
type AIResponse struct {
	Reply    string `json:"reply"`
	Fallback bool   `json:"fallback"`
}

// AI handles POST /chatbot/ai, a stateless proxy to the LLM. Upstream
// errors collapse into the static apology.
func (h *Handler) AI(w http.ResponseWriter, r *http.Request) {
	var req AIRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		respond.Error(w, http.StatusBadRequest, "message is required")
		return
	}
	if h.llm == nil {
		respond.JSON(w, http.StatusOK, AIResponse{Reply: apologyText, Fallback: true})
		return
	}

	history := req.History
	if len(history) > maxAIHistory {
		history = history[len(history)-maxAIHistory:]
	}
	messages := make([]ChatMessage, 0, len(history)+1)
	for _, m := range history {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			continue
		}
		messages = append(messages, m)
	}
	messages = append(messages, ChatMessage{Role: RoleUser, Content: msg})

	start := time.Now()
	resp, err := h.llm.Complete(r.Context(), LLMRequest{
		System:      defaultSystemPrompt,
		Messages:    messages,
		MaxTokens:   300,
		Temperature: 0.4,
	})
	h.engine.metrics.ObserveLLM(h.llm.Provider(), err == nil, time.Since(start).Seconds())
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		if err != nil {
			h.logger.Warn("chatbot ai proxy failed", "error", err)
		}
		respond.JSON(w, http.StatusOK, AIResponse{Reply: apologyText, Fallback: true})
		return
	}
	respond.JSON(w, http.StatusOK, AIResponse{Reply: resp.Text})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, msg := clientError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("chatbot request failed", "error", err)
	}
	respond.Error(w, status, msg)
}

// clientError maps engine errors to what the widget is shown. The HTTP and
// socket surfaces share it.
func clientError(err error) (int, string) {
	switch {
	case errors.Is(err, ErrEmptyMessage):
		return http.StatusBadRequest, "message is required"
	case errors.Is(err, ErrMissingSession):
		return http.StatusBadRequest, "session_id is required"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
