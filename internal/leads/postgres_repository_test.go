package leads

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var leadRowColumns = []string{
	"id", "first_name", "last_name", "email", "phone", "capital", "segment",
	"source", "consent", "status", "profile_id", "created_at", "updated_at",
}

func leadRow(id string, capital float64, segment, status string, at time.Time) []any {
	return []any{id, "Jean", "Dupont", "jean@example.com", "", capital, segment, "landing", true, status, "", at, at}
}

func TestPostgresUpsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO leads").
		WithArgs(pgxmock.AnyArg(), "Jean", "Dupont", "jean@example.com", "", 250.0, "low", "landing", true, "new").
		WillReturnRows(pgxmock.NewRows(leadRowColumns).AddRow(leadRow("lead-1", 250, "low", "new", now)...))

	repo := NewPostgresRepository(mock)
	lead, err := repo.Upsert(context.Background(), &RegisterLeadRequest{
		FirstName: "Jean", LastName: "Dupont", Email: "jean@example.com", Capital: 250, Source: "landing", Consent: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "lead-1", lead.ID)
	assert.Equal(t, SegmentLow, lead.Segment)
	assert.Equal(t, StatusNew, lead.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateCapitalNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("UPDATE leads SET capital").
		WithArgs("ghost@example.com", 5000.0, "medium").
		WillReturnError(pgx.ErrNoRows)

	_, err = NewPostgresRepository(mock).UpdateCapital(context.Background(), "ghost@example.com", 5000)
	assert.ErrorIs(t, err, ErrLeadNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListFilters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`FROM leads WHERE segment = \$1 AND status = \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("high", "new", 20, 0).
		WillReturnRows(pgxmock.NewRows(leadRowColumns).AddRow(leadRow("lead-2", 20000, "high", "new", now)...))

	rows, err := NewPostgresRepository(mock).List(context.Background(), ListFilter{Segment: SegmentHigh, Status: StatusNew, Limit: 20})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, SegmentHigh, rows[0].Segment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMarkConverted(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE leads SET status").
		WithArgs("lead-1", "converted", "profile-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE leads SET status").
		WithArgs("missing", "converted", "profile-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewPostgresRepository(mock)
	require.NoError(t, repo.MarkConverted(context.Background(), "lead-1", "profile-1"))
	assert.ErrorIs(t, repo.MarkConverted(context.Background(), "missing", "profile-1"), ErrLeadNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
