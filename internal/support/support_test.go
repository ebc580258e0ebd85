package support

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/trading-academy/internal/notify"
)

var messageColumns = []string{"id", "name", "email", "subject", "message", "status", "created_at", "updated_at"}

type recordingNotifier struct {
	notices []notify.SupportNotice
	err     error
}

func (n *recordingNotifier) SendSupportNotice(_ context.Context, notice notify.SupportNotice) error {
	n.notices = append(n.notices, notice)
	return n.err
}

func newTestHandler(t *testing.T, notifier *recordingNotifier) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var n inboxNotifier
	if notifier != nil {
		n = notifier
	}
	h := NewHandler(NewService(NewStore(db), n, "support@academy.example", nil), nil)
	r := chi.NewRouter()
	r.Post("/contact", h.Create)
	r.Route("/admin/support-messages", h.AdminRoutes)
	return r, mock
}

func TestCreateStoresAndNotifies(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	router, mock := newTestHandler(t, notifier)
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO contact_messages").
		WithArgs(sqlmock.AnyArg(), "Camille", "camille@example.com", "Formation", "Bonjour, une question.", "new").
		WillReturnRows(sqlmock.NewRows(messageColumns).
			AddRow("m-1", "Camille", "camille@example.com", "Formation", "Bonjour, une question.", "new", now, now))

	body := `{"name":" Camille ","email":"Camille@Example.com","subject":"Formation","message":"Bonjour, une question."}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"m-1"}`, rec.Body.String())
	require.Len(t, notifier.notices, 1)
	assert.Equal(t, "support@academy.example", notifier.notices[0].Inbox)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateValidation(t *testing.T) {
	router, mock := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(`{"name":"A","email":"nope","message":"x"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"email"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminListFiltersByStatus(t *testing.T) {
	router, mock := newTestHandler(t, nil)
	now := time.Now().UTC()
	mock.ExpectQuery(`FROM contact_messages WHERE status = \$1 ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("new", 50, 0).
		WillReturnRows(sqlmock.NewRows(messageColumns).
			AddRow("m-1", "Camille", "camille@example.com", "", "Bonjour", "new", now, now))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/support-messages/?status=new", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"m-1"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminStatusAndDelete(t *testing.T) {
	router, mock := newTestHandler(t, nil)
	now := time.Now().UTC()
	mock.ExpectQuery("UPDATE contact_messages SET status").WithArgs("m-1", "replied").
		WillReturnRows(sqlmock.NewRows(messageColumns).
			AddRow("m-1", "Camille", "camille@example.com", "", "Bonjour", "replied", now, now))
	mock.ExpectExec("DELETE FROM contact_messages").WithArgs("m-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/admin/support-messages/m-1/status", strings.NewReader(`{"status":"Replied"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"replied"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/admin/support-messages/m-1/status", strings.NewReader(`{"status":"spam"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/support-messages/m-2", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, mock.ExpectationsWereMet())
}
