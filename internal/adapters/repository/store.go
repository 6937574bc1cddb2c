// Package repository defines the profile store contract and errors.
//
// The store owns the two shared aggregate records. All mutation goes
// through a retryable read-modify-write transaction: the caller supplies a
// pure closure over the freshly-read state, and the store retries it a
// bounded number of times when a conflicting commit intervenes. Each
// transaction touches exactly one record.
package repository

import (
	"context"

	"github.com/okian/dwell/internal/domain/model"
)

// BuildingTxn computes the next building profile from the current one.
// exists is false when no profile is stored yet; cur is then the zero value.
// The closure must be pure: it may run more than once.
type BuildingTxn func(cur model.BuildingProfile, exists bool) (model.BuildingProfile, error)

// UserTxn computes the next user profile from the current one.
type UserTxn func(cur model.UserProfile, exists bool) (model.UserProfile, error)

// Store provides transactional access to profiles and terminal session
// status records.
type Store interface {
	// UpdateBuilding runs fn as one atomic read-modify-write against the
	// building's profile and returns the committed value.
	UpdateBuilding(ctx context.Context, buildingID string, fn BuildingTxn) (model.BuildingProfile, error)

	// UpdateUser runs fn as one atomic read-modify-write against the user's
	// profile and returns the committed value.
	UpdateUser(ctx context.Context, userID string, fn UserTxn) (model.UserProfile, error)

	// GetBuilding returns the stored building profile.
	// Returns ErrNotFound when the building is unknown.
	GetBuilding(ctx context.Context, buildingID string) (model.BuildingProfile, error)

	// GetUser returns the stored user profile.
	// Returns ErrNotFound when the user is unknown.
	GetUser(ctx context.Context, userID string) (model.UserProfile, error)

	// WriteSessionStatus records the terminal processing outcome for a
	// session, replacing any previous status.
	WriteSessionStatus(ctx context.Context, status model.ProcessingStatus) error

	// GetSessionStatus returns the terminal status written for a session.
	// Returns ErrNotFound while the session is still in flight.
	GetSessionStatus(ctx context.Context, sessionID string) (model.ProcessingStatus, error)

	// CountBuildings returns the number of building profiles tracked.
	CountBuildings(ctx context.Context) int

	// CountUsers returns the number of user profiles tracked.
	CountUsers(ctx context.Context) int

	// Close releases store resources.
	Close() error
}
