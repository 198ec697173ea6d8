package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adrianmirek/darterassistant-sub002/internal/domain"
)

// fakeLockStore mirrors the repository's conditional-upsert semantics
// under a mutex, so acquire races behave like the real CAS.
type fakeLockStore struct {
	mu         sync.Mutex
	locks      map[uuid.UUID]*domain.MatchLock
	releaseErr error
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{locks: make(map[uuid.UUID]*domain.MatchLock)}
}

func (f *fakeLockStore) Acquire(_ context.Context, lock *domain.MatchLock, ttl time.Duration) (*domain.MatchLock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	if existing, ok := f.locks[lock.MatchID]; ok && !existing.Takeoverable(lock.SessionID, now) {
		holder := *existing
		return nil, &domain.LockConflictError{Holder: &holder}
	}

	acquired := *lock
	acquired.AcquiredAt = now
	acquired.ExpiresAt = now.Add(ttl)
	acquired.LastActivityAt = now
	f.locks[lock.MatchID] = &acquired

	out := acquired
	return &out, nil
}

func (f *fakeLockStore) Extend(_ context.Context, matchID uuid.UUID, sessionID string, d time.Duration) (*domain.MatchLock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	existing, ok := f.locks[matchID]
	if !ok || !existing.OwnedBy(sessionID) || existing.IsExpired(time.Now()) {
		return nil, domain.ErrLockNotFound
	}
	existing.ExpiresAt = time.Now().Add(d)
	existing.LastActivityAt = time.Now()
	out := *existing
	return &out, nil
}

func (f *fakeLockStore) Touch(_ context.Context, matchID uuid.UUID, sessionID string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if existing, ok := f.locks[matchID]; ok && existing.OwnedBy(sessionID) {
		existing.LastActivityAt = time.Now()
		if existing.AutoExtend {
			existing.ExpiresAt = time.Now().Add(ttl)
		}
	}
	return nil
}

func (f *fakeLockStore) Release(_ context.Context, matchID uuid.UUID, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.releaseErr != nil {
		return f.releaseErr
	}
	if existing, ok := f.locks[matchID]; ok && existing.OwnedBy(sessionID) {
		delete(f.locks, matchID)
	}
	return nil
}

func (f *fakeLockStore) Get(_ context.Context, matchID uuid.UUID) (*domain.MatchLock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	existing, ok := f.locks[matchID]
	if !ok {
		return nil, domain.ErrLockNotFound
	}
	out := *existing
	return &out, nil
}

type fakeMatchStore struct {
	mu      sync.Mutex
	matches map[uuid.UUID]*domain.Match
}

func newFakeMatchStore() *fakeMatchStore {
	return &fakeMatchStore{matches: make(map[uuid.UUID]*domain.Match)}
}

func (f *fakeMatchStore) Create(_ context.Context, m *domain.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	cp := *m
	f.matches[m.ID] = &cp
	return nil
}

func (f *fakeMatchStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return nil, domain.ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMatchStore) Update(_ context.Context, m *domain.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.matches[m.ID]; !ok {
		return domain.ErrMatchNotFound
	}
	m.UpdatedAt = time.Now()
	cp := *m
	f.matches[m.ID] = &cp
	return nil
}

func (f *fakeMatchStore) ListRecent(_ context.Context, limit int) ([]domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Match, 0, len(f.matches))
	for _, m := range f.matches {
		out = append(out, *m)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeThrowStore struct {
	mu     sync.Mutex
	throws []domain.Throw
	nextID int
}

func newFakeThrowStore() *fakeThrowStore {
	return &fakeThrowStore{}
}

func (f *fakeThrowStore) Insert(_ context.Context, t *domain.Throw) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	if t.ID == "" {
		t.ID = fmt.Sprintf("throw-%d", f.nextID)
	}
	t.CreatedAt = time.Now()
	f.throws = append(f.throws, *t)
	return nil
}

func (f *fakeThrowStore) InsertBatch(ctx context.Context, throws []domain.Throw) error {
	for i := range throws {
		if err := f.Insert(ctx, &throws[i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeThrowStore) GetByID(_ context.Context, matchID uuid.UUID, throwID string) (*domain.Throw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.throws {
		if t.MatchID == matchID && t.ID == throwID {
			cp := t
			return &cp, nil
		}
	}
	return nil, domain.ErrThrowNotFound
}

func (f *fakeThrowStore) Update(_ context.Context, t *domain.Throw) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.throws {
		if f.throws[i].MatchID == t.MatchID && f.throws[i].ID == t.ID {
			f.throws[i] = *t
			return nil
		}
	}
	return domain.ErrThrowNotFound
}

func (f *fakeThrowStore) Delete(_ context.Context, matchID uuid.UUID, throwID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.throws {
		if f.throws[i].MatchID == matchID && f.throws[i].ID == throwID {
			f.throws = append(f.throws[:i], f.throws[i+1:]...)
			return nil
		}
	}
	return domain.ErrThrowNotFound
}

func (f *fakeThrowStore) ListByMatch(_ context.Context, matchID uuid.UUID) ([]domain.Throw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Throw, 0)
	for _, t := range f.throws {
		if t.MatchID == matchID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeThrowStore) ListByLeg(_ context.Context, matchID uuid.UUID, setNumber, legNumber, playerNumber int) ([]domain.Throw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Throw, 0)
	for _, t := range f.throws {
		if t.MatchID == matchID && t.SetNumber == setNumber && t.LegNumber == legNumber && t.PlayerNumber == playerNumber {
			out = append(out, t)
		}
	}
	return out, nil
}
