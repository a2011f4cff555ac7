package service

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"carezone/internal/models"
	"carezone/internal/notify"
	"carezone/internal/repository"
)

const (
	caregiverLineID = "U-caregiver"
	groupLineID     = "C-responders"
	responderA      = "U-responder-a"
	responderB      = "U-responder-b"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	store      *repository.MemoryStore
	channel    *notify.RecordingChannel
	clock      *testClock
	escalation *escalationService
	location   *locationService
	fall       *fallService
}

// newFixture 照护人 1 / 被照护人 2，安全区 r1=10 r2=20，启用的响应者群组，两个已登记的响应者
func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := repository.NewMemoryStore()
	store.PutUser(models.User{UsersID: 1, LineID: caregiverLineID, FirstName: "Dan", LastName: "Caregiver", Tel: "0811111111"})
	store.PutUser(models.User{UsersID: 10, LineID: responderA, FirstName: "Alice"})
	store.PutUser(models.User{UsersID: 11, LineID: responderB, FirstName: "Bob"})
	store.PutTakecareperson(models.Takecareperson{TakecareID: 2, UsersID: 1, FirstName: "Mae", LastName: "Subject", Tel: "0822222222", Status: 1})
	store.PutSafezone(models.Safezone{UsersID: 1, TakecareID: 2, Latitude: 13.75, Longitude: 100.5, RadiusLv1: 10, RadiusLv2: 20})
	store.PutGroup(models.GroupLine{GroupLineID: groupLineID, GroupName: "Responders", Status: 1})

	return newFixtureWithStore(t, store)
}

func newFixtureWithStore(t *testing.T, store *repository.MemoryStore) *fixture {
	t.Helper()

	logger := zap.NewNop()
	channel := notify.NewRecordingChannel()
	dispatcher := notify.NewDispatcher(channel, time.Second, nil, logger)
	clock := newTestClock()

	escalation := NewEscalationService(store, dispatcher, nil, nil, logger).(*escalationService)
	escalation.now = clock.Now
	location := NewLocationService(store, escalation, dispatcher, nil, logger).(*locationService)
	location.now = clock.Now
	fall := NewFallService(store, dispatcher, nil, logger).(*fallService)
	fall.now = clock.Now

	return &fixture{
		store:      store,
		channel:    channel,
		clock:      clock,
		escalation: escalation,
		location:   location,
		fall:       fall,
	}
}
