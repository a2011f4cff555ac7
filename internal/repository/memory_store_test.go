package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carezone/internal/models"
)

func TestMemoryStore_UpsertLocationKeepsOneRow(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		latest, err := m.GetLatestLocation(ctx, 1, 2)
		require.NoError(t, err)

		loc := &models.Location{UsersID: 1, TakecareID: 2, Distance: float64(i), Timestamp: time.Now()}
		if latest != nil {
			loc.LocationID = latest.LocationID
		}
		require.NoError(t, m.UpsertLocation(ctx, loc))
	}

	n, err := m.CountLocations(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	latest, err := m.GetLatestLocation(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 4.0, latest.Distance)
}

func TestMemoryStore_AppendFallSerializedConcurrent(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	var calls int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.AppendFallSerialized(ctx, 1, 2, func(latest *models.FallRecord) (*models.FallRecord, error) {
				atomic.AddInt32(&calls, 1)
				next := &models.FallRecord{FallStatus: 2, NotiCount: 1, Timestamp: time.Now()}
				if latest != nil {
					next.NotiCount = latest.NotiCount + 1
				}
				return next, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	recs := m.FallRecords(1, 2)
	require.Len(t, recs, 20)
	for i, r := range recs {
		assert.Equal(t, i+1, r.NotiCount)
	}
	assert.Equal(t, int32(20), calls)
}

func TestMemoryStore_GuardedAcceptAndClose(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	c := &models.ExtendedHelp{UsersID: 1, TakecareID: 2, Status: models.CaseStatusCreated, CreatedAt: time.Now()}
	require.NoError(t, m.CreateCase(ctx, c))

	open, err := m.FindOpenCase(ctx, 1, 2)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, c.ExtenID, open.ExtenID)

	n, resent, err := m.MarkResent(ctx, c.ExtenID)
	require.NoError(t, err)
	assert.True(t, resent)
	assert.Equal(t, 1, n)

	ok, err := m.MarkReceived(ctx, c.ExtenID, 7, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = m.MarkReceived(ctx, c.ExtenID, 8, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	open, err = m.FindOpenCase(ctx, 1, 2)
	require.NoError(t, err)
	assert.Nil(t, open)

	_, resent, err = m.MarkResent(ctx, c.ExtenID)
	require.NoError(t, err)
	assert.False(t, resent)
	got, err := m.GetCase(ctx, c.ExtenID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusReceived, got.Status)
	assert.Equal(t, 1, got.ResendCount)

	ok, err = m.MarkClosed(ctx, c.ExtenID, 7, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = m.GetCase(ctx, c.ExtenID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusClosed, got.Status)
	assert.Equal(t, int64(7), *got.ReceivedUserID)
	assert.Equal(t, int64(7), *got.ClosedUserID)
}

func TestMemoryStore_ReturnedCasesAreCopies(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	c := &models.ExtendedHelp{UsersID: 1, TakecareID: 2, Status: models.CaseStatusCreated, CreatedAt: time.Now()}
	require.NoError(t, m.CreateCase(ctx, c))

	got, err := m.GetCase(ctx, c.ExtenID)
	require.NoError(t, err)
	got.Status = models.CaseStatusClosed

	again, err := m.GetCase(ctx, c.ExtenID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusCreated, again.Status)
}

func TestMemoryStore_NotFoundContract(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	_, err := m.GetSafezone(ctx, 1, 2)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = m.GetUser(ctx, 1)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = m.GetActiveGroup(ctx)
	assert.True(t, errors.Is(err, ErrNotFound))

	m.PutTakecareperson(models.Takecareperson{TakecareID: 2, UsersID: 1, Status: 0})
	_, err = m.GetTakecareperson(ctx, 1, 2)
	assert.True(t, errors.Is(err, ErrNotFound), "inactive takecareperson is not returned")

	fall, err := m.GetLatestFall(ctx, 1, 2)
	require.NoError(t, err)
	assert.Nil(t, fall)
	open, err := m.FindOpenCase(ctx, 1, 2)
	require.NoError(t, err)
	assert.Nil(t, open)
}

func TestMemoryStore_CaretakerLocationLatest(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, m.CreateCaretakerLocation(ctx, &models.CaretakerLocation{UsersID: 1, TakecareID: 2, Latitude: 1, Timestamp: base}))
	require.NoError(t, m.CreateCaretakerLocation(ctx, &models.CaretakerLocation{UsersID: 1, TakecareID: 2, Latitude: 2, Timestamp: base.Add(time.Second)}))

	latest, err := m.GetLatestCaretakerLocation(ctx, 1, 2)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 2.0, latest.Latitude)

	none, err := m.GetLatestCaretakerLocation(ctx, 9, 9)
	require.NoError(t, err)
	assert.Nil(t, none)
}
