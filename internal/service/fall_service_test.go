package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carezone/internal/models"
	"carezone/internal/notify"
	"carezone/internal/repository"
)

func fallReq(status int) RecordFallRequest {
	return RecordFallRequest{
		UsersID:    1,
		TakecareID: 2,
		XAxis:      0.1,
		YAxis:      -9.7,
		ZAxis:      0.4,
		FallStatus: status,
		Latitude:   13.7501,
		Longitude:  100.5001,
	}
}

func TestDecideFall(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	notified := now.Add(-time.Minute)
	stale := now.Add(-FallResetWindow)

	tests := []struct {
		name       string
		status     int
		prior      *models.FallRecord
		wantCount  int
		wantStatus int
	}{
		{"first fall", models.FallStatusNoResponse, nil, 1, 1},
		{"continues round", models.FallStatusPressedNotOK, &models.FallRecord{NotiCount: 2, NotiTime: &notified}, 3, 1},
		{"hits cap", models.FallStatusNoResponse, &models.FallRecord{NotiCount: 3, NotiTime: &notified}, 4, 1},
		{"exceeds cap", models.FallStatusNoResponse, &models.FallRecord{NotiCount: 4, NotiTime: &notified}, 5, 0},
		{"reset window reached", models.FallStatusNoResponse, &models.FallRecord{NotiCount: 4, NotiTime: &stale}, 1, 1},
		{"prior without noti time starts new round", models.FallStatusNoResponse, &models.FallRecord{NotiCount: 5}, 1, 1},
		{"non fall", 1, &models.FallRecord{NotiCount: 2, NotiTime: &notified}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := decideFall(now, fallReq(tt.status), tt.prior)
			assert.Equal(t, tt.wantCount, rec.NotiCount)
			assert.Equal(t, tt.wantStatus, rec.NotiStatus)
			if tt.wantStatus == 1 {
				require.NotNil(t, rec.NotiTime)
				assert.Equal(t, now, *rec.NotiTime)
			} else {
				assert.Nil(t, rec.NotiTime)
			}
			assert.Equal(t, now, rec.Timestamp)
		})
	}
}

func TestRecordFall_ThrottlesWithinRound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var statuses, counts []int
	for i := 0; i < 5; i++ {
		res, err := f.fall.RecordFall(ctx, fallReq(models.FallStatusNoResponse))
		require.NoError(t, err)
		statuses = append(statuses, res.Record.NotiStatus)
		counts = append(counts, res.Record.NotiCount)
		f.clock.Advance(30 * time.Second)
	}

	assert.Equal(t, []int{1, 1, 1, 1, 0}, statuses)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, counts)

	sent := f.channel.SentTo(caregiverLineID)
	require.Len(t, sent, 4)
	require.Len(t, sent[0].Messages, 2)
	assert.Equal(t, notify.KindFlex, sent[0].Messages[0].Kind)
	assert.Equal(t, notify.KindLocation, sent[0].Messages[1].Kind)
}

func TestRecordFall_AlertTextFollowsFallStatus(t *testing.T) {
	alertText := func(status int) string {
		f := newFixture(t)
		_, err := f.fall.RecordFall(context.Background(), fallReq(status))
		require.NoError(t, err)

		sent := f.channel.SentTo(caregiverLineID)
		require.Len(t, sent, 1)
		body := sent[0].Messages[0].Flex.Contents["body"].(map[string]any)["contents"].([]any)
		return body[1].(map[string]any)["text"].(string)
	}

	assert.Contains(t, alertText(models.FallStatusPressedNotOK), `pressed "not OK"`)
	assert.Contains(t, alertText(models.FallStatusNoResponse), "30 seconds")
}

func TestRecordFall_ResetAfterWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.fall.RecordFall(ctx, fallReq(models.FallStatusPressedNotOK))
		require.NoError(t, err)
		f.clock.Advance(10 * time.Second)
	}

	f.clock.Advance(FallResetWindow)
	res, err := f.fall.RecordFall(ctx, fallReq(models.FallStatusPressedNotOK))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Record.NotiCount)
	assert.Equal(t, 1, res.Record.NotiStatus)
	assert.True(t, res.Notified)
	assert.True(t, res.Delivered)
}

func TestRecordFall_NonFallIsRecordedSilently(t *testing.T) {
	f := newFixture(t)

	res, err := f.fall.RecordFall(context.Background(), fallReq(0))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Record.NotiCount)
	assert.Equal(t, 0, res.Record.NotiStatus)
	assert.Nil(t, res.Record.NotiTime)
	assert.False(t, res.Notified)
	assert.Empty(t, f.channel.Sent())
	assert.Len(t, f.store.FallRecords(1, 2), 1)
}

func TestRecordFall_AppendOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.fall.RecordFall(ctx, fallReq(models.FallStatusNoResponse))
	require.NoError(t, err)
	second, err := f.fall.RecordFall(ctx, fallReq(models.FallStatusNoResponse))
	require.NoError(t, err)

	assert.NotEqual(t, first.Record.FallID, second.Record.FallID)
	recs := f.store.FallRecords(1, 2)
	require.Len(t, recs, 2)
	assert.Equal(t, 1, recs[0].NotiCount)
	assert.Equal(t, 2, recs[1].NotiCount)
}

func TestRecordFall_MissingProfileWritesNothing(t *testing.T) {
	store := repository.NewMemoryStore()
	store.PutUser(models.User{UsersID: 1, LineID: caregiverLineID})
	f := newFixtureWithStore(t, store)

	_, err := f.fall.RecordFall(context.Background(), fallReq(models.FallStatusNoResponse))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Empty(t, store.FallRecords(1, 2))
	assert.Empty(t, f.channel.Sent())
}

func TestRecordFall_Validation(t *testing.T) {
	f := newFixture(t)

	bad := fallReq(-1)
	_, err := f.fall.RecordFall(context.Background(), bad)
	assert.True(t, errors.Is(err, ErrValidation))

	bad = fallReq(2)
	bad.ZAxis = math.NaN()
	_, err = f.fall.RecordFall(context.Background(), bad)
	assert.True(t, errors.Is(err, ErrValidation))

	assert.Empty(t, f.store.FallRecords(1, 2))
}

func TestRecordFall_ChannelFailureStillPersists(t *testing.T) {
	f := newFixture(t)
	f.channel.Err = errors.New("line unavailable")

	res, err := f.fall.RecordFall(context.Background(), fallReq(models.FallStatusNoResponse))
	require.NoError(t, err)
	assert.True(t, res.Notified)
	assert.False(t, res.Delivered)
	assert.Len(t, f.store.FallRecords(1, 2), 1)
}

func TestRecordFall_ConcurrentEventsAreSerialized(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.fall.RecordFall(context.Background(), fallReq(models.FallStatusNoResponse))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	recs := f.store.FallRecords(1, 2)
	require.Len(t, recs, 5)
	counts := make([]int, 0, len(recs))
	notified := 0
	for _, r := range recs {
		counts = append(counts, r.NotiCount)
		notified += r.NotiStatus
	}
	sort.Ints(counts)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, counts)
	assert.Equal(t, 4, notified)
	assert.Len(t, f.channel.SentTo(caregiverLineID), 4)
}

func TestRecordFall_ConcurrentMatchesSequentialReplay(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.fall.RecordFall(context.Background(), fallReq(models.FallStatusPressedNotOK))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// 上一条被抑制（noti_time 为空）时下一条按新一轮计数
	recs := f.store.FallRecords(1, 2)
	require.Len(t, recs, 20)
	for i, r := range recs {
		assert.Equal(t, i%5+1, r.NotiCount, "record %d", i)
	}
	assert.Len(t, f.channel.SentTo(caregiverLineID), 16)
}
