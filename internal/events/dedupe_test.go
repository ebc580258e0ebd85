package events

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDeduperClaimOnce(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDeduper(time.Minute)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	first, err := d.Claim(ctx, "stripe", "evt_1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := d.Claim(ctx, "stripe", "evt_1")
	require.NoError(t, err)
	assert.False(t, again)

	other, err := d.Claim(ctx, "stripe", "evt_2")
	require.NoError(t, err)
	assert.True(t, other)

	now = now.Add(2 * time.Minute)
	expired, err := d.Claim(ctx, "stripe", "evt_1")
	require.NoError(t, err)
	assert.True(t, expired)
}

func TestMemoryDeduperRelease(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDeduper(time.Minute)

	_, _ = d.Claim(ctx, "stripe", "evt_1")
	require.NoError(t, d.Release(ctx, "stripe", "evt_1"))

	fresh, err := d.Claim(ctx, "stripe", "evt_1")
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestLayeredDeduperFallsThroughToStore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ctx := context.Background()
	d := NewLayeredDeduper(NewMemoryDeduper(time.Minute), NewProcessedStore(mock))

	// Seen by another instance before this one restarted.
	mock.ExpectExec("INSERT INTO processed_events").WithArgs("stripe", "evt_old").WillReturnResult(pgxmock.NewResult("INSERT", 0))
	fresh, err := d.Claim(ctx, "stripe", "evt_old")
	require.NoError(t, err)
	assert.False(t, fresh)

	mock.ExpectExec("INSERT INTO processed_events").WithArgs("stripe", "evt_new").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	fresh, err = d.Claim(ctx, "stripe", "evt_new")
	require.NoError(t, err)
	assert.True(t, fresh)

	// Memory hit: no query.
	fresh, err = d.Claim(ctx, "stripe", "evt_new")
	require.NoError(t, err)
	assert.False(t, fresh)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLayeredDeduperStoreErrorReleasesCache(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ctx := context.Background()
	cache := NewMemoryDeduper(time.Minute)
	d := NewLayeredDeduper(cache, NewProcessedStore(mock))

	mock.ExpectExec("INSERT INTO processed_events").WithArgs("stripe", "evt_1").WillReturnError(errors.New("db down"))
	_, err = d.Claim(ctx, "stripe", "evt_1")
	require.Error(t, err)

	fresh, err := cache.Claim(ctx, "stripe", "evt_1")
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestLayeredDeduperWithoutStore(t *testing.T) {
	d := NewLayeredDeduper(NewMemoryDeduper(time.Minute), nil)
	fresh, err := d.Claim(context.Background(), "stripe", "evt_1")
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.NoError(t, d.Release(context.Background(), "stripe", "evt_1"))
}
