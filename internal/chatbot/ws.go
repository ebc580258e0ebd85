package chatbot

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wolfman30/trading-academy/internal/chatbot/booking"
	httpmiddleware "github.com/wolfman30/trading-academy/internal/http/middleware"
	"github.com/wolfman30/trading-academy/internal/observability/metrics"
	"github.com/wolfman30/trading-academy/internal/ratelimit"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsReadLimit  = 8 << 10
)

// InboundFrame is what the widget sends over the socket.
type InboundFrame struct {
	Type      string `json:"type"` // "message", "quick_reply", "start_booking", "ping"
	Text      string `json:"text,omitempty"`
	Value     string `json:"value,omitempty"`
	OfferID   string `json:"offer_id,omitempty"`
	OfferName string `json:"offer_name,omitempty"`
	Source    string `json:"source,omitempty"`
}

// OutboundFrame is what the widget receives.
type OutboundFrame struct {
	Type       string         `json:"type"` // "session", "reply", "pong", "error"
	SessionID  string         `json:"session_id,omitempty"`
	Replies    []Reply        `json:"replies,omitempty"`
	Booking    *BookingStatus `json:"booking,omitempty"`
	Error      string         `json:"error,omitempty"`
	RetryAfter int            `json:"retry_after,omitempty"` // seconds, on rate-limited frames
}

const rateLimitScope = "chatbot"

// WSHandler serves GET /chatbot/ws.
type WSHandler struct {
	engine   *Engine
	upgrader websocket.Upgrader
	limiter  ratelimit.Limiter
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

// NewWSHandler builds the socket handler. allowOrigin guards the upgrade;
// nil accepts any origin.
func NewWSHandler(engine *Engine, allowOrigin func(string) bool, logger *logging.Logger) *WSHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WSHandler{
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowOrigin == nil || allowOrigin(origin)
			},
		},
		logger: logger,
	}
}

// WithLimiter meters every engine-bound frame against limiter, sharing the
// key the chatbot HTTP routes use for the client IP.
func (h *WSHandler) WithLimiter(limiter ratelimit.Limiter, m *metrics.Metrics) *WSHandler {
	h.limiter = limiter
	h.metrics = m
	return h
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("chatbot ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	limitKey := rateLimitScope + ":ip:" + httpmiddleware.ClientIP(r)
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	out := make(chan OutboundFrame, 8)
	go h.writeLoop(ctx, cancel, conn, out)

	out <- OutboundFrame{Type: "session", SessionID: sessionID}
	h.logger.Info("chatbot ws connection opened", "session_id", sessionID)

	for {
		var frame InboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			h.logger.Debug("chatbot ws connection closed", "session_id", sessionID, "error", err)
			return
		}
		reply, ok := h.limited(ctx, limitKey, sessionID, frame)
		if !ok {
			reply, ok = h.handleFrame(ctx, sessionID, frame)
		}
		if !ok {
			continue
		}
		select {
		case out <- reply:
		case <-ctx.Done():
			return
		}
	}
}

// limited returns an error frame when frame would reach the engine over
// the limit. Limiter failures let the frame through.
func (h *WSHandler) limited(ctx context.Context, key, sessionID string, frame InboundFrame) (OutboundFrame, bool) {
	if h.limiter == nil {
		return OutboundFrame{}, false
	}
	switch frame.Type {
	case "message", "quick_reply", "start_booking":
	default:
		return OutboundFrame{}, false
	}
	res, err := h.limiter.Allow(ctx, key)
	if err != nil {
		h.logger.Warn("rate limiter unavailable", "error", err, "scope", rateLimitScope)
		return OutboundFrame{}, false
	}
	if res.Allowed {
		return OutboundFrame{}, false
	}
	h.metrics.ObserveRateLimited(rateLimitScope)
	h.logger.Info("rate limit exceeded", "scope", rateLimitScope, "session_id", sessionID, "count", res.Count)
	return OutboundFrame{
		Type:       "error",
		SessionID:  sessionID,
		Error:      "too many requests",
		RetryAfter: res.RetryAfterSeconds(),
	}, true
}

func (h *WSHandler) handleFrame(ctx context.Context, sessionID string, frame InboundFrame) (OutboundFrame, bool) {
	var (
		resp Response
		err  error
	)
	switch frame.Type {
	case "ping":
		return OutboundFrame{Type: "pong"}, true
	case "message":
		resp, err = h.engine.HandleMessage(ctx, sessionID, frame.Text)
	case "quick_reply":
		resp, err = h.engine.QuickReply(ctx, sessionID, frame.Value)
	case "start_booking":
		resp, err = h.engine.StartBooking(ctx, sessionID, booking.Offer{
			OfferID:   frame.OfferID,
			OfferName: frame.OfferName,
			Source:    frame.Source,
		})
	default:
		return OutboundFrame{}, false
	}
	if err != nil {
		status, msg := clientError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("chatbot ws frame failed", "error", err, "session_id", sessionID)
		}
		return OutboundFrame{Type: "error", SessionID: sessionID, Error: msg}, true
	}
	return OutboundFrame{Type: "reply", SessionID: sessionID, Replies: resp.Replies, Booking: &resp.Booking}, true
}

// writeLoop owns all writes. When it stops it cancels ctx and closes conn,
// which unblocks the reader.
func (h *WSHandler) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out <-chan OutboundFrame) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		conn.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(frame); err != nil {
				h.logger.Debug("chatbot ws write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
