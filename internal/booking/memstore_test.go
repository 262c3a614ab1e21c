package booking

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/room-booking-backend/internal/room"
)

// memStore is an in-memory catalog and ledger. Units of work hold mu for
// their whole duration, which gives them serializable isolation.
type memStore struct {
	mu           sync.Mutex
	rooms        []*room.Room
	reservations map[string]*Reservation
	references   map[string]bool

	// undo collects compensations for writes made inside a unit of work.
	undo []func()

	// createErr, when set, is returned by the next Create calls.
	createErr   error
	createCalls int
}

func newMemStore(rooms ...*room.Room) *memStore {
	return &memStore{
		rooms:        rooms,
		reservations: map[string]*Reservation{},
		references:   map[string]bool{},
	}
}

// seed stores r directly, bypassing every check.
func (s *memStore) seed(r *Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservations[r.ID] = r
	s.references[r.ReferenceCode] = true
}

func (s *memStore) rollback() {
	for i := len(s.undo) - 1; i >= 0; i-- {
		s.undo[i]()
	}
	s.undo = nil
}

// confirmed returns a copy of every confirmed reservation.
func (s *memStore) confirmed() []Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Reservation
	for _, r := range s.reservations {
		if r.Status == StatusConfirmed {
			out = append(out, *r)
		}
	}
	return out
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reservations)
}

type memUnitOfWork struct {
	store *memStore
}

func (u *memUnitOfWork) Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	u.store.undo = nil
	if err := fn(ctx, &memTx{store: u.store}); err != nil {
		u.store.rollback()
		return err
	}
	u.store.undo = nil
	return nil
}

type memTx struct {
	store *memStore
}

func (t *memTx) Rooms() Catalog           { return &memCatalog{store: t.store, locked: true} }
func (t *memTx) Reservations() Repository { return &memLedger{store: t.store, locked: true} }

type memCatalog struct {
	store  *memStore
	locked bool
}

func (c *memCatalog) FindEligible(ctx context.Context, minCapacity int) ([]*room.Room, error) {
	if !c.locked {
		c.store.mu.Lock()
		defer c.store.mu.Unlock()
	}
	var out []*room.Room
	for _, rm := range c.store.rooms {
		if rm.IsActive && rm.Capacity >= minCapacity {
			out = append(out, rm)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Capacity != out[j].Capacity {
			return out[i].Capacity < out[j].Capacity
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// memLedger implements Repository. locked is true inside a unit of work.
type memLedger struct {
	store  *memStore
	locked bool
}

func (l *memLedger) lock() func() {
	if l.locked {
		return func() {}
	}
	l.store.mu.Lock()
	return l.store.mu.Unlock
}

func (l *memLedger) onRollback(fn func()) {
	if l.locked {
		l.store.undo = append(l.store.undo, fn)
	}
}

func (l *memLedger) setStatus(r *Reservation, status Status) {
	prev := r.Status
	r.Status = status
	l.onRollback(func() { r.Status = prev })
}

func (l *memLedger) LockRoomDate(ctx context.Context, roomID string, date time.Time) error {
	return nil
}

func (l *memLedger) HasConflict(ctx context.Context, roomID string, date time.Time, start, end TimeOfDay) (bool, error) {
	defer l.lock()()
	return l.conflict(roomID, date, Interval{Start: start, End: end}), nil
}

func (l *memLedger) conflict(roomID string, date time.Time, iv Interval) bool {
	for _, r := range l.store.reservations {
		if r.RoomID == roomID && r.Date.Equal(date) && r.Status == StatusConfirmed && Overlaps(r.Interval(), iv) {
			return true
		}
	}
	return false
}

func (l *memLedger) Create(ctx context.Context, res *Reservation) error {
	defer l.lock()()
	l.store.createCalls++
	if l.store.createErr != nil {
		return l.store.createErr
	}
	if l.store.references[res.ReferenceCode] {
		return ErrReferenceCollision
	}
	if l.conflict(res.RoomID, res.Date, res.Interval()) {
		return errors.New("exclusion constraint violated")
	}

	res.ID = uuid.NewString()
	res.CreatedAt = time.Now().UTC()
	res.UpdatedAt = res.CreatedAt
	stored := *res
	l.store.reservations[stored.ID] = &stored
	l.store.references[stored.ReferenceCode] = true
	l.onRollback(func() {
		delete(l.store.reservations, stored.ID)
		delete(l.store.references, stored.ReferenceCode)
	})
	return nil
}

func (l *memLedger) get(id string) (*Reservation, error) {
	r, ok := l.store.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *r
	return &out, nil
}

func (l *memLedger) GetByID(ctx context.Context, id string) (*Reservation, error) {
	defer l.lock()()
	return l.get(id)
}

func (l *memLedger) GetForUpdate(ctx context.Context, id string) (*Reservation, error) {
	defer l.lock()()
	return l.get(id)
}

func (l *memLedger) GetByReference(ctx context.Context, code string) (*Reservation, error) {
	defer l.lock()()
	for _, r := range l.store.reservations {
		if r.ReferenceCode == code {
			out := *r
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (l *memLedger) List(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	defer l.lock()()
	var out []*Reservation
	for _, r := range l.store.reservations {
		if filter.UserID != "" && r.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		switch filter.When {
		case WhenUpcoming:
			if r.Date.Before(filter.Today) {
				continue
			}
		case WhenPast:
			if !r.Date.Before(filter.Today) {
				continue
			}
		case WhenToday:
			if !r.Date.Equal(filter.Today) {
				continue
			}
		}
		cp := *r
		out = append(out, &cp)
	}
	// Same order as the SQL repository: upcoming and today soonest first,
	// everything else newest first.
	ascending := filter.When == WhenUpcoming || filter.When == WhenToday
	slices.SortFunc(out, func(a, b *Reservation) int {
		c := a.Date.Compare(b.Date)
		if c == 0 {
			c = int(a.Start - b.Start)
		}
		if !ascending {
			c = -c
		}
		return c
	})
	return out, len(out), nil
}

func (l *memLedger) UpdateStatus(ctx context.Context, id string, status Status) error {
	defer l.lock()()
	r, ok := l.store.reservations[id]
	if !ok {
		return ErrNotFound
	}
	l.setStatus(r, status)
	return nil
}

func (l *memLedger) AttachArtifact(ctx context.Context, id, path string) error {
	defer l.lock()()
	r, ok := l.store.reservations[id]
	if !ok {
		return ErrNotFound
	}
	prev := r.ArtifactPath
	r.ArtifactPath = path
	l.onRollback(func() { r.ArtifactPath = prev })
	return nil
}

func (l *memLedger) CompleteEnded(ctx context.Context, today time.Time, now TimeOfDay) (int64, error) {
	defer l.lock()()
	var n int64
	for _, r := range l.store.reservations {
		if r.Status != StatusConfirmed {
			continue
		}
		if r.Date.Before(today) || (r.Date.Equal(today) && r.End <= now) {
			l.setStatus(r, StatusCompleted)
			n++
		}
	}
	return n, nil
}
