package challenges

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var challengeColumns = []string{"id", "title", "description", "difficulty", "reward_coins", "status", "starts_at", "ends_at", "created_at", "updated_at"}

func newTestRouter(t *testing.T) (http.Handler, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	r := chi.NewRouter()
	r.Route("/admin/challenges", NewHandler(NewRepository(mock), nil).Routes)
	return r, mock
}

func TestInputValidate(t *testing.T) {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)

	in := Input{Title: "  Semaine du trend  "}
	require.NoError(t, in.Validate())
	assert.Equal(t, "Semaine du trend", in.Title)
	assert.Equal(t, DifficultyBeginner, in.Difficulty)
	assert.Equal(t, StatusDraft, in.Status)

	cases := map[string]Input{
		"title":        {},
		"difficulty":   {Title: "x", Difficulty: "legendary"},
		"status":       {Title: "x", Status: "live"},
		"reward_coins": {Title: "x", RewardCoins: -5},
		"ends_at":      {Title: "x", StartsAt: &start, EndsAt: &end},
	}
	for field, in := range cases {
		err := in.Validate()
		require.Error(t, err, field)
		assert.Contains(t, err.Error(), field)
	}
}

func TestListAppliesFilterAndSort(t *testing.T) {
	router, mock := newTestRouter(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`FROM challenges WHERE status = \$1 ORDER BY reward_coins DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("active", 50, 0).
		WillReturnRows(pgxmock.NewRows(challengeColumns).
			AddRow("c-1", "Zéro perte", "", "advanced", int64(500), "active", (*time.Time)(nil), (*time.Time)(nil), now, now))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/challenges/?status=active&sort=-reward_coins&owner=x", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reward_coins":500`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRejectsInvalidBody(t *testing.T) {
	router, mock := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/challenges/", strings.NewReader(`{"title":"x","difficulty":"legendary"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"difficulty"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate(t *testing.T) {
	router, mock := newTestRouter(t)
	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO challenges").
		WithArgs(pgxmock.AnyArg(), "Semaine du trend", "", "intermediate", int64(100), "draft", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(challengeColumns).
			AddRow("c-2", "Semaine du trend", "", "intermediate", int64(100), "draft", (*time.Time)(nil), (*time.Time)(nil), now, now))

	rec := httptest.NewRecorder()
	body := `{"title":"Semaine du trend","difficulty":"intermediate","reward_coins":100}`
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/challenges/", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"c-2"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAndDeleteNotFound(t *testing.T) {
	router, mock := newTestRouter(t)
	mock.ExpectQuery("UPDATE challenges SET").
		WithArgs("missing", "x", "", "beginner", int64(0), "draft", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(challengeColumns))
	mock.ExpectExec("DELETE FROM challenges").WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin/challenges/missing", strings.NewReader(`{"title":"x"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/challenges/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, mock.ExpectationsWereMet())
}
