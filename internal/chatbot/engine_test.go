package chatbot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/trading-academy/internal/appointments"
	"github.com/wolfman30/trading-academy/internal/chatbot/booking"
)

type stubSubmitter struct {
	mu   sync.Mutex
	err  error
	reqs []*appointments.CreateRequest
}

func (s *stubSubmitter) Submit(_ context.Context, req *appointments.CreateRequest) (*appointments.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return nil, s.err
	}
	return &appointments.Request{ID: "rdv-1", Status: appointments.StatusPending}, nil
}

func (s *stubSubmitter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reqs)
}

type stubLLM struct {
	text string
	err  error
	reqs []LLMRequest
}

func (s *stubLLM) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return LLMResponse{}, s.err
	}
	return LLMResponse{Text: s.text}, nil
}

func (s *stubLLM) Provider() string { return "stub" }

type recordingTranscript struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (r *recordingTranscript) RecordMessage(context.Context, string, string, string, string) error {
	return r.err
}

func (r *recordingTranscript) RecordEvent(_ context.Context, _ string, eventType, _ string) error {
	r.mu.Lock()
	r.events = append(r.events, eventType)
	r.mu.Unlock()
	return r.err
}

func newTestEngine(sub Submitter, llm LLMClient, tr Transcript) *Engine {
	return NewEngine(EngineConfig{Submitter: sub, LLM: llm, Transcript: tr})
}

var bookingAnswers = []string{"Jean Dupont", "jean@example.com", "06 12 34 56 78", "Paris", "1", "lundi matin", "apprendre"}

func TestHandleMessageMatchesIntent(t *testing.T) {
	e := newTestEngine(&stubSubmitter{}, nil, nil)

	resp, err := e.HandleMessage(context.Background(), "s1", "Quels sont vos TARIFS ?")
	require.NoError(t, err)
	require.Len(t, resp.Replies, 1)
	assert.Equal(t, SourceIntent, resp.Replies[0].Source)
	assert.Equal(t, "pricing", resp.Replies[0].IntentID)
	assert.NotEmpty(t, resp.Replies[0].QuickReplies)
	assert.False(t, resp.Booking.Active)
}

func TestBookingIntentOpensDialogue(t *testing.T) {
	tr := &recordingTranscript{}
	e := newTestEngine(&stubSubmitter{}, nil, tr)

	resp, err := e.HandleMessage(context.Background(), "s1", "Je voudrais prendre rendez-vous")
	require.NoError(t, err)
	require.Len(t, resp.Replies, 2)
	assert.Equal(t, "booking", resp.Replies[0].IntentID)
	assert.Equal(t, SourceBooking, resp.Replies[1].Source)
	assert.Equal(t, BookingStatus{Active: true, State: string(booking.AskName)}, resp.Booking)
	assert.Contains(t, tr.events, EventBookingStarted)
}

func TestBookingDialogueSubmitsOnce(t *testing.T) {
	ctx := context.Background()
	sub := &stubSubmitter{}
	e := newTestEngine(sub, nil, nil)

	_, err := e.StartBooking(ctx, "s1", booking.Offer{OfferID: "elite", OfferName: "Elite", Source: "pricing"})
	require.NoError(t, err)
	for _, answer := range bookingAnswers {
		_, err := e.HandleMessage(ctx, "s1", answer)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, sub.calls())

	resp, err := e.HandleMessage(ctx, "s1", "oui")
	require.NoError(t, err)
	require.Equal(t, 1, sub.calls())
	assert.False(t, resp.Booking.Active)
	require.NotEmpty(t, resp.Replies)
	assert.Contains(t, resp.Replies[len(resp.Replies)-1].Text, "enregistrée")

	req := sub.reqs[0]
	assert.Equal(t, "Jean", req.FirstName)
	assert.Equal(t, "Dupont", req.LastName)
	assert.Equal(t, "jean@example.com", req.Email)
	assert.Equal(t, "0612345678", req.Phone)
	assert.Equal(t, "Paris", req.Location)
	assert.Equal(t, "discovery", req.Type)
	assert.Equal(t, "lundi matin", req.Availability)
	assert.Equal(t, "apprendre", req.Goals)
	assert.Equal(t, "elite", req.OfferID)
	assert.Equal(t, "s1", req.SessionID)

	// The dialogue is over: a second "oui" is an ordinary message.
	_, err = e.HandleMessage(ctx, "s1", "oui")
	require.NoError(t, err)
	assert.Equal(t, 1, sub.calls())
}

func TestBookingDraftIsAcceptedByAppointments(t *testing.T) {
	ctx := context.Background()
	repo := appointments.NewMemoryRepository()
	e := newTestEngine(appointments.NewService(repo, nil), nil, nil)

	_, err := e.StartBooking(ctx, "s1", booking.Offer{})
	require.NoError(t, err)
	for _, answer := range append(bookingAnswers, "confirmer") {
		_, err := e.HandleMessage(ctx, "s1", answer)
		require.NoError(t, err)
	}

	rows, err := repo.List(ctx, appointments.ListFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, appointments.StatusPending, rows[0].Status)
}

func TestSubmitFailureOffersRetry(t *testing.T) {
	ctx := context.Background()
	sub := &stubSubmitter{err: errors.New("db down")}
	e := newTestEngine(sub, nil, nil)

	_, err := e.StartBooking(ctx, "s1", booking.Offer{OfferID: "pro"})
	require.NoError(t, err)
	var resp Response
	for _, answer := range append(bookingAnswers, "oui") {
		resp, err = e.HandleMessage(ctx, "s1", answer)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, sub.calls())
	assert.False(t, resp.Booking.Active)

	last := resp.Replies[len(resp.Replies)-1]
	values := []string{}
	for _, q := range last.QuickReplies {
		values = append(values, q.Value)
	}
	assert.Contains(t, values, booking.ValueRetry)

	resp, err = e.QuickReply(ctx, "s1", booking.ValueRetry)
	require.NoError(t, err)
	assert.Equal(t, BookingStatus{Active: true, State: string(booking.AskName)}, resp.Booking)
	assert.Equal(t, 1, sub.calls())
}

func TestContactSupportQuickReply(t *testing.T) {
	e := newTestEngine(&stubSubmitter{}, nil, nil)
	resp, err := e.QuickReply(context.Background(), "s1", booking.ValueContactSupport)
	require.NoError(t, err)
	require.Len(t, resp.Replies, 1)
	assert.Equal(t, contactSupportText, resp.Replies[0].Text)
}

func TestCancelDuringBooking(t *testing.T) {
	ctx := context.Background()
	tr := &recordingTranscript{}
	sub := &stubSubmitter{}
	e := newTestEngine(sub, nil, tr)

	_, err := e.StartBooking(ctx, "s1", booking.Offer{})
	require.NoError(t, err)
	_, err = e.HandleMessage(ctx, "s1", "Jean")
	require.NoError(t, err)

	resp, err := e.HandleMessage(ctx, "s1", "Annuler")
	require.NoError(t, err)
	assert.False(t, resp.Booking.Active)
	assert.Equal(t, string(booking.AskName), resp.Booking.State)
	assert.Contains(t, tr.events, EventBookingCancelled)
	assert.Equal(t, 0, sub.calls())
}

func TestFallbackUsesLLM(t *testing.T) {
	llm := &stubLLM{text: "Bonne question, voici la réponse."}
	e := newTestEngine(&stubSubmitter{}, llm, nil)

	resp, err := e.HandleMessage(context.Background(), "s1", "quelle est la meteo a paris")
	require.NoError(t, err)
	require.Len(t, resp.Replies, 1)
	assert.Equal(t, SourceLLM, resp.Replies[0].Source)
	assert.Equal(t, "Bonne question, voici la réponse.", resp.Replies[0].Text)

	require.Len(t, llm.reqs, 1)
	assert.Equal(t, defaultSystemPrompt, llm.reqs[0].System)
	msgs := llm.reqs[0].Messages
	assert.Equal(t, ChatMessage{Role: RoleUser, Content: "quelle est la meteo a paris"}, msgs[len(msgs)-1])

	_, err = e.HandleMessage(context.Background(), "s1", "et a lyon demain")
	require.NoError(t, err)
	require.Len(t, llm.reqs, 2)
	assert.Len(t, llm.reqs[1].Messages, 3)
}

func TestFallbackApologyOnLLMError(t *testing.T) {
	tr := &recordingTranscript{}
	e := newTestEngine(&stubSubmitter{}, &stubLLM{err: errors.New("quota")}, tr)

	resp, err := e.HandleMessage(context.Background(), "s1", "quelle est la meteo a paris")
	require.NoError(t, err)
	assert.Equal(t, apologyText, resp.Replies[0].Text)
	assert.Equal(t, SourceFallback, resp.Replies[0].Source)
	assert.Contains(t, tr.events, EventLLMError)
}

func TestFallbackApologyWithoutLLM(t *testing.T) {
	e := newTestEngine(&stubSubmitter{}, nil, nil)
	resp, err := e.HandleMessage(context.Background(), "s1", "quelle est la meteo a paris")
	require.NoError(t, err)
	assert.Equal(t, apologyText, resp.Replies[0].Text)
}

func TestTranscriptFailuresAreNotFatal(t *testing.T) {
	e := newTestEngine(&stubSubmitter{}, nil, &recordingTranscript{err: errors.New("db down")})
	resp, err := e.HandleMessage(context.Background(), "s1", "bonjour")
	require.NoError(t, err)
	assert.Equal(t, "greeting", resp.Replies[0].IntentID)
}

func TestHandleMessageRejectsEmptyInput(t *testing.T) {
	e := newTestEngine(&stubSubmitter{}, nil, nil)
	_, err := e.HandleMessage(context.Background(), "s1", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = e.HandleMessage(context.Background(), "", "bonjour")
	assert.ErrorIs(t, err, ErrMissingSession)
}

func TestSessionLocksReleasedAfterTurn(t *testing.T) {
	e := newTestEngine(&stubSubmitter{}, nil, nil)

	for i := 0; i < 500; i++ {
		_, err := e.HandleMessage(context.Background(), fmt.Sprintf("visitor-%d", i), "Quels sont vos tarifs ?")
		require.NoError(t, err)
	}
	assert.Equal(t, 0, e.heldLocks())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.HandleMessage(context.Background(), "shared", "Quels sont vos tarifs ?")
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, e.heldLocks())
}
