package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"carezone/internal/models"
)

// MemoryStore supports the full Store contract when DB is disabled (dev mode, tests).
// A single mutex serializes writes, which also gives AppendFallSerialized its per-pair ordering.
type MemoryStore struct {
	mu sync.RWMutex

	safezones  []models.Safezone
	users      map[int64]models.User
	takecare   map[int64]models.Takecareperson
	groups     []models.GroupLine
	locations  []models.Location
	falls      []models.FallRecord
	cases      map[int64]*models.ExtendedHelp
	dlocations []models.CaretakerLocation
	nextID     int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    map[int64]models.User{},
		takecare: map[int64]models.Takecareperson{},
		cases:    map[int64]*models.ExtendedHelp{},
	}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) allocID() int64 {
	m.nextID++
	return m.nextID
}

// ============================================
// Seed helpers (dev mode / tests)
// ============================================

func (m *MemoryStore) PutSafezone(z models.Safezone) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if z.SafezoneID == 0 {
		z.SafezoneID = m.allocID()
	}
	m.safezones = append(m.safezones, z)
}

func (m *MemoryStore) PutUser(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.UsersID] = u
}

func (m *MemoryStore) PutTakecareperson(t models.Takecareperson) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.takecare[t.TakecareID] = t
}

func (m *MemoryStore) PutGroup(g models.GroupLine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g.GroupID == 0 {
		g.GroupID = m.allocID()
	}
	m.groups = append(m.groups, g)
}

// FallRecords returns a copy of the pair's fall history in append order.
func (m *MemoryStore) FallRecords(usersID, takecareID int64) []models.FallRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.FallRecord
	for _, f := range m.falls {
		if f.UsersID == usersID && f.TakecareID == takecareID {
			out = append(out, f)
		}
	}
	return out
}

// ============================================
// SafezoneRepository
// ============================================

func (m *MemoryStore) GetSafezone(_ context.Context, usersID, takecareID int64) (*models.Safezone, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, z := range m.safezones {
		if z.UsersID == usersID && z.TakecareID == takecareID {
			out := z
			return &out, nil
		}
	}
	return nil, fmt.Errorf("safezone users_id=%d takecare_id=%d: %w", usersID, takecareID, ErrNotFound)
}

// ============================================
// LocationRepository
// ============================================

func (m *MemoryStore) GetLatestLocation(_ context.Context, usersID, takecareID int64) (*models.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *models.Location
	for i := range m.locations {
		l := &m.locations[i]
		if l.UsersID != usersID || l.TakecareID != takecareID {
			continue
		}
		if latest == nil || l.Timestamp.After(latest.Timestamp) ||
			(l.Timestamp.Equal(latest.Timestamp) && l.LocationID > latest.LocationID) {
			latest = l
		}
	}
	if latest == nil {
		return nil, nil
	}
	out := *latest
	return &out, nil
}

func (m *MemoryStore) UpsertLocation(_ context.Context, loc *models.Location) error {
	if loc == nil {
		return fmt.Errorf("location is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if loc.LocationID > 0 {
		for i := range m.locations {
			if m.locations[i].LocationID == loc.LocationID {
				m.locations[i] = *loc
				return nil
			}
		}
		return fmt.Errorf("location_id=%d: %w", loc.LocationID, ErrNotFound)
	}
	loc.LocationID = m.allocID()
	m.locations = append(m.locations, *loc)
	return nil
}

func (m *MemoryStore) CountLocations(_ context.Context, usersID, takecareID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, l := range m.locations {
		if l.UsersID == usersID && l.TakecareID == takecareID {
			n++
		}
	}
	return n, nil
}

// ============================================
// FallRepository
// ============================================

// latestFallLocked returns the pair's most recent record by timestamp, then id.
func (m *MemoryStore) latestFallLocked(usersID, takecareID int64) *models.FallRecord {
	var latest *models.FallRecord
	for i := range m.falls {
		f := &m.falls[i]
		if f.UsersID != usersID || f.TakecareID != takecareID {
			continue
		}
		if latest == nil || f.Timestamp.After(latest.Timestamp) ||
			(f.Timestamp.Equal(latest.Timestamp) && f.FallID > latest.FallID) {
			latest = f
		}
	}
	if latest == nil {
		return nil
	}
	out := *latest
	return &out
}

func (m *MemoryStore) GetLatestFall(_ context.Context, usersID, takecareID int64) (*models.FallRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latestFallLocked(usersID, takecareID), nil
}

func (m *MemoryStore) AppendFall(_ context.Context, rec *models.FallRecord) error {
	if rec == nil {
		return fmt.Errorf("fall record is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.FallID = m.allocID()
	m.falls = append(m.falls, *rec)
	return nil
}

func (m *MemoryStore) AppendFallSerialized(ctx context.Context, usersID, takecareID int64, decide FallDecider) (*models.FallRecord, error) {
	if decide == nil {
		return nil, fmt.Errorf("decide is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	next, err := decide(m.latestFallLocked(usersID, takecareID))
	if err != nil {
		return nil, err
	}
	next.UsersID = usersID
	next.TakecareID = takecareID
	next.FallID = m.allocID()
	m.falls = append(m.falls, *next)
	out := *next
	return &out, nil
}

// ============================================
// ExtendedHelpRepository
// ============================================

func copyCase(c *models.ExtendedHelp) *models.ExtendedHelp {
	out := *c
	if c.ReceivedUserID != nil {
		v := *c.ReceivedUserID
		out.ReceivedUserID = &v
	}
	if c.ReceivedAt != nil {
		v := *c.ReceivedAt
		out.ReceivedAt = &v
	}
	if c.ClosedUserID != nil {
		v := *c.ClosedUserID
		out.ClosedUserID = &v
	}
	if c.ClosedAt != nil {
		v := *c.ClosedAt
		out.ClosedAt = &v
	}
	return &out
}

func (m *MemoryStore) FindOpenCase(_ context.Context, usersID, takecareID int64) (*models.ExtendedHelp, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found *models.ExtendedHelp
	for _, c := range m.cases {
		if c.UsersID != usersID || c.TakecareID != takecareID || !c.IsOpen() {
			continue
		}
		if found == nil || c.CreatedAt.After(found.CreatedAt) ||
			(c.CreatedAt.Equal(found.CreatedAt) && c.ExtenID > found.ExtenID) {
			found = c
		}
	}
	if found == nil {
		return nil, nil
	}
	return copyCase(found), nil
}

func (m *MemoryStore) GetCase(_ context.Context, extenID int64) (*models.ExtendedHelp, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cases[extenID]
	if !ok {
		return nil, fmt.Errorf("case exten_id=%d: %w", extenID, ErrNotFound)
	}
	return copyCase(c), nil
}

func (m *MemoryStore) CreateCase(_ context.Context, c *models.ExtendedHelp) error {
	if c == nil {
		return fmt.Errorf("case is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ExtenID = m.allocID()
	m.cases[c.ExtenID] = copyCase(c)
	return nil
}

func (m *MemoryStore) MarkResent(_ context.Context, extenID int64) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[extenID]
	if !ok || c.ReceivedAt != nil || c.ClosedAt != nil {
		return 0, false, nil
	}
	c.Status = models.CaseStatusResent
	c.ResendCount++
	return c.ResendCount, true, nil
}

func (m *MemoryStore) MarkReceived(_ context.Context, extenID, userID int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[extenID]
	if !ok || c.ReceivedAt != nil {
		return false, nil
	}
	if c.ClosedAt == nil {
		c.Status = models.CaseStatusReceived
	}
	c.ReceivedUserID = &userID
	c.ReceivedAt = &at
	return true, nil
}

func (m *MemoryStore) MarkClosed(_ context.Context, extenID, userID int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[extenID]
	if !ok || c.ClosedAt != nil {
		return false, nil
	}
	c.Status = models.CaseStatusClosed
	c.ClosedUserID = &userID
	c.ClosedAt = &at
	return true, nil
}

func (m *MemoryStore) ListCases(_ context.Context, filter CaseFilter) ([]*models.ExtendedHelp, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.ExtendedHelp
	for _, c := range m.cases {
		if filter.UsersID != nil && c.UsersID != *filter.UsersID {
			continue
		}
		if filter.TakecareID != nil && c.TakecareID != *filter.TakecareID {
			continue
		}
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		if filter.StartTime != nil && c.CreatedAt.Before(*filter.StartTime) {
			continue
		}
		if filter.EndTime != nil && c.CreatedAt.After(*filter.EndTime) {
			continue
		}
		out = append(out, copyCase(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ExtenID > out[j].ExtenID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ============================================
// UserRepository / GroupLineRepository
// ============================================

func (m *MemoryStore) GetUser(_ context.Context, usersID int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[usersID]
	if !ok {
		return nil, fmt.Errorf("user users_id=%d: %w", usersID, ErrNotFound)
	}
	return &u, nil
}

func (m *MemoryStore) GetUserByLineID(_ context.Context, lineID string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found *models.User
	for _, u := range m.users {
		if lineID == "" || u.LineID != lineID {
			continue
		}
		if found == nil || u.UsersID < found.UsersID {
			u := u
			found = &u
		}
	}
	if found == nil {
		return nil, fmt.Errorf("user line_id=%s: %w", lineID, ErrNotFound)
	}
	return found, nil
}

func (m *MemoryStore) GetTakecareperson(_ context.Context, usersID, takecareID int64) (*models.Takecareperson, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.takecare[takecareID]
	if !ok || t.Status != 1 || (usersID > 0 && t.UsersID != usersID) {
		return nil, fmt.Errorf("takecareperson takecare_id=%d: %w", takecareID, ErrNotFound)
	}
	return &t, nil
}

func (m *MemoryStore) GetActiveGroup(_ context.Context) (*models.GroupLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, g := range m.groups {
		if g.Status == 1 {
			out := g
			return &out, nil
		}
	}
	return nil, fmt.Errorf("active group: %w", ErrNotFound)
}

// ============================================
// CaretakerLocationRepository
// ============================================

func (m *MemoryStore) CreateCaretakerLocation(_ context.Context, loc *models.CaretakerLocation) error {
	if loc == nil {
		return fmt.Errorf("caretaker location is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	loc.DLocationID = m.allocID()
	m.dlocations = append(m.dlocations, *loc)
	return nil
}

func (m *MemoryStore) GetLatestCaretakerLocation(_ context.Context, usersID, takecareID int64) (*models.CaretakerLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *models.CaretakerLocation
	for i := range m.dlocations {
		l := &m.dlocations[i]
		if l.UsersID != usersID || l.TakecareID != takecareID {
			continue
		}
		if latest == nil || l.Timestamp.After(latest.Timestamp) ||
			(l.Timestamp.Equal(latest.Timestamp) && l.DLocationID > latest.DLocationID) {
			latest = l
		}
	}
	if latest == nil {
		return nil, nil
	}
	out := *latest
	return &out, nil
}
