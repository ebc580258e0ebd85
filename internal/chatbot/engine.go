// Package chatbot runs the website chat widget: FAQ intent answers, the
// appointment booking dialogue and an LLM fallback for everything else.
package chatbot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/trading-academy/internal/appointments"
	"github.com/wolfman30/trading-academy/internal/chatbot/booking"
	"github.com/wolfman30/trading-academy/internal/chatbot/intents"
	"github.com/wolfman30/trading-academy/internal/observability/metrics"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

var (
	ErrEmptyMessage   = errors.New("chatbot: message is empty")
	ErrMissingSession = errors.New("chatbot: session id is required")
)

// Reply sources.
const (
	SourceIntent   = "intent"
	SourceBooking  = "booking"
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

const maxMessageLength = 2000

const contactSupportText = "Vous pouvez joindre notre équipe à support@trading-academy.fr ou via le formulaire de contact. Nous répondons sous 24 h ouvrées."

// Submitter persists a confirmed booking draft.
type Submitter interface {
	Submit(ctx context.Context, req *appointments.CreateRequest) (*appointments.Request, error)
}

// Reply is one bot message.
type Reply struct {
	Text         string               `json:"text"`
	QuickReplies []booking.QuickReply `json:"quick_replies,omitempty"`
	Source       string               `json:"source"`
	IntentID     string               `json:"intent_id,omitempty"`
}

// BookingStatus mirrors the machine for the widget.
type BookingStatus struct {
	Active bool   `json:"active"`
	State  string `json:"state"`
}

// Response carries the replies to one visitor action.
type Response struct {
	SessionID string        `json:"session_id"`
	Replies   []Reply       `json:"replies"`
	Booking   BookingStatus `json:"booking"`
}

// EngineConfig wires an Engine.
type EngineConfig struct {
	Matcher    *intents.Matcher
	Sessions   SessionStore
	LLM        LLMClient
	Submitter  Submitter
	Transcript Transcript
	Metrics    *metrics.Metrics
	Logger     *logging.Logger
}

// Engine processes widget messages one at a time per session.
type Engine struct {
	matcher    *intents.Matcher
	sessions   SessionStore
	llm        LLMClient
	submitter  Submitter
	transcript Transcript
	metrics    *metrics.Metrics
	logger     *logging.Logger

	locksMu sync.Mutex
	locks   map[string]*sessionLock
}

// sessionLock serializes one session's turns. Entries live only while a
// turn holds or waits on them.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Submitter == nil {
		panic("chatbot: appointment submitter cannot be nil")
	}
	if cfg.Matcher == nil {
		cfg.Matcher = intents.NewMatcher(intents.Default)
	}
	if cfg.Sessions == nil {
		cfg.Sessions = NewMemorySessionStore(0)
	}
	if cfg.Transcript == nil {
		cfg.Transcript = nopTranscript{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Engine{
		matcher:    cfg.Matcher,
		sessions:   cfg.Sessions,
		llm:        cfg.LLM,
		submitter:  cfg.Submitter,
		transcript: cfg.Transcript,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		locks:      make(map[string]*sessionLock),
	}
}

// HandleMessage processes a typed visitor message.
func (e *Engine) HandleMessage(ctx context.Context, sessionID, text string) (Response, error) {
	text, err := cleanInput(sessionID, text)
	if err != nil {
		return Response{}, err
	}
	return e.withSession(ctx, sessionID, func(s *Session) []Reply {
		e.record(ctx, sessionID, RoleUser, text, "")
		return e.route(ctx, s, text)
	})
}

// QuickReply processes a quick-reply click. Retry and contact-support are
// only meaningful as clicks; every other value is handled like text.
func (e *Engine) QuickReply(ctx context.Context, sessionID, value string) (Response, error) {
	value, err := cleanInput(sessionID, value)
	if err != nil {
		return Response{}, err
	}
	return e.withSession(ctx, sessionID, func(s *Session) []Reply {
		e.record(ctx, sessionID, RoleUser, value, "quick_reply")
		switch {
		case value == booking.ValueRetry && !s.Machine.Active:
			m, effects := booking.Retry(s.Machine)
			s.Machine = m
			e.event(ctx, sessionID, EventBookingStarted, "")
			return e.apply(ctx, s, effects)
		case value == booking.ValueContactSupport:
			if s.Machine.Active {
				s.Machine = booking.Initial()
			}
			return []Reply{{Text: contactSupportText, Source: SourceIntent, IntentID: "contact"}}
		}
		return e.route(ctx, s, value)
	})
}

// StartBooking opens the dialogue from a UI action (an offer's "book a
// call" button). An in-progress dialogue is restarted.
func (e *Engine) StartBooking(ctx context.Context, sessionID string, offer booking.Offer) (Response, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Response{}, ErrMissingSession
	}
	return e.withSession(ctx, sessionID, func(s *Session) []Reply {
		offer.SessionID = sessionID
		m, effects := booking.Start(offer)
		s.Machine = m
		e.event(ctx, sessionID, EventBookingStarted, offer.OfferID)
		return e.apply(ctx, s, effects)
	})
}

func (e *Engine) route(ctx context.Context, s *Session, text string) []Reply {
	if s.Machine.Active {
		cancelling := booking.IsCancel(text)
		m, effects := booking.Step(s.Machine, text)
		s.Machine = m
		if cancelling {
			e.event(ctx, s.ID, EventBookingCancelled, "")
			e.metrics.ObserveBooking("cancelled")
		}
		return e.apply(ctx, s, effects)
	}

	if match, ok := e.matcher.Match(text); ok {
		intent := match.Intent
		e.event(ctx, s.ID, EventIntentMatched, intent.ID)
		e.metrics.ObserveChatbotReply(SourceIntent)

		reply := Reply{Text: intent.Answer, Source: SourceIntent, IntentID: intent.ID}
		for _, f := range intent.FollowUps {
			reply.QuickReplies = append(reply.QuickReplies, booking.QuickReply{Label: f, Value: f})
		}
		if intent.Action != intents.ActionStartBooking {
			s.remember(RoleUser, text)
			s.remember(RoleAssistant, intent.Answer)
			return []Reply{reply}
		}

		m, effects := booking.Start(booking.Offer{Source: "chatbot", SessionID: s.ID})
		s.Machine = m
		e.event(ctx, s.ID, EventBookingStarted, "")
		return append([]Reply{reply}, e.apply(ctx, s, effects)...)
	}

	return []Reply{e.fallback(ctx, s, text)}
}

// apply executes booking effects. A Submit effect triggers exactly one
// call to the submitter; its outcome is fed back through booking.Complete.
func (e *Engine) apply(ctx context.Context, s *Session, effects []booking.Effect) []Reply {
	var out []Reply
	for _, eff := range effects {
		switch v := eff.(type) {
		case booking.Reply:
			out = append(out, Reply{Text: v.Text, QuickReplies: v.QuickReplies, Source: SourceBooking})
			e.metrics.ObserveChatbotReply(SourceBooking)
		case booking.Submit:
			_, err := e.submitter.Submit(ctx, draftToRequest(v.Draft, s.ID))
			if err != nil {
				e.logger.Error("failed to submit appointment request", "error", err, "session_id", s.ID)
				e.event(ctx, s.ID, EventBookingFailed, "")
				e.metrics.ObserveBooking("failed")
			} else {
				e.event(ctx, s.ID, EventBookingSubmitted, "")
				e.metrics.ObserveBooking("submitted")
			}
			m, more := booking.Complete(s.Machine, err)
			s.Machine = m
			out = append(out, e.apply(ctx, s, more)...)
		}
	}
	return out
}

func (e *Engine) fallback(ctx context.Context, s *Session, text string) Reply {
	if e.llm == nil {
		e.event(ctx, s.ID, EventLLMError, "")
		e.metrics.ObserveChatbotReply(SourceFallback)
		return Reply{Text: apologyText, Source: SourceFallback}
	}

	req := LLMRequest{
		System:      defaultSystemPrompt,
		Messages:    append(append([]ChatMessage(nil), s.History...), ChatMessage{Role: RoleUser, Content: text}),
		MaxTokens:   300,
		Temperature: 0.4,
	}
	start := time.Now()
	resp, err := e.llm.Complete(ctx, req)
	e.metrics.ObserveLLM(e.llm.Provider(), err == nil, time.Since(start).Seconds())
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		if err != nil {
			e.logger.Warn("llm fallback failed", "error", err, "provider", e.llm.Provider(), "session_id", s.ID)
		}
		e.event(ctx, s.ID, EventLLMError, "")
		e.metrics.ObserveChatbotReply(SourceFallback)
		return Reply{Text: apologyText, Source: SourceFallback}
	}

	e.event(ctx, s.ID, EventLLMFallback, "")
	e.metrics.ObserveChatbotReply(SourceLLM)
	s.remember(RoleUser, text)
	s.remember(RoleAssistant, resp.Text)
	return Reply{Text: resp.Text, Source: SourceLLM}
}

func (e *Engine) withSession(ctx context.Context, sessionID string, fn func(s *Session) []Reply) (Response, error) {
	unlock := e.lock(sessionID)
	defer unlock()

	s, err := e.sessions.Load(ctx, sessionID)
	if err != nil {
		e.logger.Warn("session load failed, starting fresh", "error", err, "session_id", sessionID)
		s = newSession(sessionID)
	}

	replies := fn(s)
	for _, r := range replies {
		e.record(ctx, sessionID, RoleAssistant, r.Text, r.Source)
	}
	if err := e.sessions.Save(ctx, s); err != nil {
		e.logger.Warn("session save failed", "error", err, "session_id", sessionID)
	}

	return Response{
		SessionID: sessionID,
		Replies:   replies,
		Booking:   BookingStatus{Active: s.Machine.Active, State: string(s.Machine.State)},
	}, nil
}

func (e *Engine) lock(sessionID string) func() {
	e.locksMu.Lock()
	l, ok := e.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		e.locks[sessionID] = l
	}
	l.refs++
	e.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.locksMu.Lock()
		if l.refs--; l.refs == 0 {
			delete(e.locks, sessionID)
		}
		e.locksMu.Unlock()
	}
}

func (e *Engine) heldLocks() int {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	return len(e.locks)
}

func (e *Engine) record(ctx context.Context, sessionID, role, content, source string) {
	if err := e.transcript.RecordMessage(ctx, sessionID, role, content, source); err != nil {
		e.logger.Warn("transcript write failed", "error", err, "session_id", sessionID)
	}
}

func (e *Engine) event(ctx context.Context, sessionID, eventType, intentID string) {
	if err := e.transcript.RecordEvent(ctx, sessionID, eventType, intentID); err != nil {
		e.logger.Warn("analytics write failed", "error", err, "session_id", sessionID, "event", eventType)
	}
}

func cleanInput(sessionID, text string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrMissingSession
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	if r := []rune(text); len(r) > maxMessageLength {
		text = string(r[:maxMessageLength])
	}
	return text, nil
}

func draftToRequest(d booking.Draft, sessionID string) *appointments.CreateRequest {
	if d.SessionID == "" {
		d.SessionID = sessionID
	}
	return &appointments.CreateRequest{
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Email:        d.Email,
		Phone:        d.Phone,
		Location:     d.Location,
		Type:         string(d.Type),
		Availability: d.Availability,
		Goals:        d.Goals,
		OfferID:      d.OfferID,
		OfferName:    d.OfferName,
		Source:       d.Source,
		SessionID:    d.SessionID,
	}
}
