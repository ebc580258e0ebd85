package newsletter

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGuideSender struct {
	to   []string
	pdfs [][]byte
	err  error
}

func (f *fakeGuideSender) SendGuide(_ context.Context, to, _ string, pdf []byte) error {
	f.to = append(f.to, to)
	f.pdfs = append(f.pdfs, pdf)
	return f.err
}

type fakeArchiver struct {
	calls int
	err   error
}

func (f *fakeArchiver) ArchiveGuide(_ context.Context, subscriberID, _ string, _ []byte) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "newsletter/guides/" + subscriberID + ".pdf", nil
}

func TestRenderGuideProducesPDF(t *testing.T) {
	pdf, err := RenderGuide("Élodie")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")), "output must be a PDF document")
	assert.Greater(t, len(pdf), 1000)
}

func TestSubscribeSendsAndArchivesGuide(t *testing.T) {
	repo := NewMemoryRepository()
	sender := &fakeGuideSender{}
	arch := &fakeArchiver{}
	svc := NewService(repo, sender, arch, nil)

	sub, err := svc.Subscribe(context.Background(), &SubscribeRequest{Email: " Reader@Example.com ", FirstName: "Lea"})
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", sub.Email)
	assert.Equal(t, []string{"reader@example.com"}, sender.to)
	assert.True(t, bytes.HasPrefix(sender.pdfs[0], []byte("%PDF-")))
	assert.Equal(t, 1, arch.calls)

	stored, ok := repo.Get("reader@example.com")
	require.True(t, ok)
	require.NotNil(t, stored.GuideSentAt)
	assert.Equal(t, "newsletter/guides/"+sub.ID+".pdf", stored.ArchiveKey)
}

func TestSubscribeProviderFailureKeepsRow(t *testing.T) {
	repo := NewMemoryRepository()
	sender := &fakeGuideSender{err: errors.New("provider 500")}
	svc := NewService(repo, sender, nil, nil)

	_, err := svc.Subscribe(context.Background(), &SubscribeRequest{Email: "reader@example.com"})
	assert.ErrorIs(t, err, ErrDeliveryFailed)

	stored, ok := repo.Get("reader@example.com")
	require.True(t, ok, "subscriber row is kept")
	assert.Nil(t, stored.GuideSentAt)
}

func TestSubscribeArchiveFailureStillSends(t *testing.T) {
	sender := &fakeGuideSender{}
	svc := NewService(NewMemoryRepository(), sender, &fakeArchiver{err: errors.New("s3 down")}, nil)

	_, err := svc.Subscribe(context.Background(), &SubscribeRequest{Email: "reader@example.com"})
	require.NoError(t, err)
	assert.Len(t, sender.to, 1)
}

func TestSubscribeHandler(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		sendErr error
		status  int
	}{
		{name: "ok", body: `{"email":"a@example.com"}`, status: http.StatusOK},
		{name: "invalid email", body: `{"email":"nope"}`, status: http.StatusBadRequest},
		{name: "bad json", body: `nope`, status: http.StatusBadRequest},
		{name: "provider down", body: `{"email":"a@example.com"}`, sendErr: errors.New("quota exceeded for key abc"), status: http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(NewMemoryRepository(), &fakeGuideSender{err: tc.sendErr}, nil, nil)
			h := NewHandler(svc, nil)

			req := httptest.NewRequest(http.MethodPost, "/newsletter/subscribe", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.Subscribe(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			assert.NotContains(t, rec.Body.String(), "quota")
		})
	}
}

func TestPostgresRepository(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO newsletter_subscribers").
		WithArgs(pgxmock.AnyArg(), "a@example.com", "Lea", "footer").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "first_name", "source", "guide_sent_at", "archive_key", "created_at"}).
			AddRow("sub-1", "a@example.com", "Lea", "footer", (*time.Time)(nil), "", now))
	mock.ExpectExec("UPDATE newsletter_subscribers").
		WithArgs("sub-1", "key.pdf").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE newsletter_subscribers").
		WithArgs("ghost", "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewPostgresRepository(mock)
	sub, err := repo.Upsert(context.Background(), &SubscribeRequest{Email: "a@example.com", FirstName: "Lea", Source: "footer"})
	require.NoError(t, err)
	assert.Equal(t, "sub-1", sub.ID)
	assert.Nil(t, sub.GuideSentAt)

	require.NoError(t, repo.MarkGuideSent(context.Background(), "sub-1", "key.pdf"))
	assert.ErrorIs(t, repo.MarkGuideSent(context.Background(), "ghost", ""), ErrSubscriberNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
