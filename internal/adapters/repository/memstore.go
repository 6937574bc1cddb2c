package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/dwell/internal/domain/model"
	"github.com/okian/dwell/pkg/metrics"
)

// MemStore is an in-memory Store with optimistic concurrency. Every record
// carries a version; a read-modify-write commits only if the version it
// read is still current, otherwise the closure is re-run against the latest
// committed value. This mirrors the isolation contract of the durable
// store so it doubles as the test store and the default standalone store.
type MemStore struct {
	mu        sync.Mutex
	buildings map[string]versionedBuilding
	users     map[string]versionedUser
	sessions  map[string]model.ProcessingStatus

	maxTxnRetries int
}

type versionedBuilding struct {
	profile model.BuildingProfile
	version uint64
}

type versionedUser struct {
	profile model.UserProfile
	version uint64
}

// NewMemStore constructs an in-memory store.
func NewMemStore(opts ...Option) *MemStore {
	cfg := newStoreConfig(opts...)

	return &MemStore{
		buildings:     make(map[string]versionedBuilding),
		users:         make(map[string]versionedUser),
		sessions:      make(map[string]model.ProcessingStatus),
		maxTxnRetries: cfg.maxTxnRetries,
	}
}

// UpdateBuilding implements Store.UpdateBuilding.
func (s *MemStore) UpdateBuilding(ctx context.Context, buildingID string, fn BuildingTxn) (model.BuildingProfile, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	for attempt := 0; attempt <= s.maxTxnRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return model.BuildingProfile{}, fmt.Errorf("building txn aborted: %w", err)
		}
		if attempt > 0 {
			metrics.RecordTxnRetry()
		}

		s.mu.Lock()
		cur, exists := s.buildings[buildingID]
		s.mu.Unlock()

		// The closure runs outside the lock; it is pure, so re-running it
		// after a conflict is safe.
		next, err := fn(cur.profile, exists)
		if err != nil {
			return model.BuildingProfile{}, err
		}

		s.mu.Lock()
		latest, stillExists := s.buildings[buildingID]
		if exists != stillExists || (exists && latest.version != cur.version) {
			s.mu.Unlock()
			metrics.RecordTxnConflict()
			continue
		}
		s.buildings[buildingID] = versionedBuilding{profile: next, version: cur.version + 1}
		s.mu.Unlock()

		return next, nil
	}

	metrics.RecordTxnExhausted()
	return model.BuildingProfile{}, fmt.Errorf("building %s: %w", buildingID, ErrTxnExhausted)
}

// UpdateUser implements Store.UpdateUser.
func (s *MemStore) UpdateUser(ctx context.Context, userID string, fn UserTxn) (model.UserProfile, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	for attempt := 0; attempt <= s.maxTxnRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return model.UserProfile{}, fmt.Errorf("user txn aborted: %w", err)
		}
		if attempt > 0 {
			metrics.RecordTxnRetry()
		}

		s.mu.Lock()
		cur, exists := s.users[userID]
		s.mu.Unlock()

		next, err := fn(cur.profile, exists)
		if err != nil {
			return model.UserProfile{}, err
		}

		s.mu.Lock()
		latest, stillExists := s.users[userID]
		if exists != stillExists || (exists && latest.version != cur.version) {
			s.mu.Unlock()
			metrics.RecordTxnConflict()
			continue
		}
		s.users[userID] = versionedUser{profile: next, version: cur.version + 1}
		s.mu.Unlock()

		return next, nil
	}

	metrics.RecordTxnExhausted()
	return model.UserProfile{}, fmt.Errorf("user %s: %w", userID, ErrTxnExhausted)
}

// GetBuilding implements Store.GetBuilding.
func (s *MemStore) GetBuilding(_ context.Context, buildingID string) (model.BuildingProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.buildings[buildingID]
	if !ok {
		return model.BuildingProfile{}, ErrNotFound
	}
	return rec.profile, nil
}

// GetUser implements Store.GetUser.
func (s *MemStore) GetUser(_ context.Context, userID string) (model.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[userID]
	if !ok {
		return model.UserProfile{}, ErrNotFound
	}
	return rec.profile, nil
}

// WriteSessionStatus implements Store.WriteSessionStatus.
func (s *MemStore) WriteSessionStatus(_ context.Context, status model.ProcessingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[status.SessionID] = status
	return nil
}

// GetSessionStatus implements Store.GetSessionStatus.
func (s *MemStore) GetSessionStatus(_ context.Context, sessionID string) (model.ProcessingStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.sessions[sessionID]
	if !ok {
		return model.ProcessingStatus{}, ErrNotFound
	}
	return status, nil
}

// CountBuildings implements Store.CountBuildings.
func (s *MemStore) CountBuildings(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buildings)
}

// CountUsers implements Store.CountUsers.
func (s *MemStore) CountUsers(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// Close implements Store.Close.
func (s *MemStore) Close() error { return nil }
