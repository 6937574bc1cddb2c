package pipeline

import (
	"context"
	"time"

	"github.com/okian/dwell/internal/adapters/repository"
	"github.com/okian/dwell/internal/domain/aggregate"
	"github.com/okian/dwell/internal/domain/blend"
	"github.com/okian/dwell/internal/domain/model"
	"github.com/okian/dwell/pkg/logger"
	"github.com/okian/dwell/pkg/metrics"
)

// Transactor applies a processed dwell time to the two shared aggregates.
// Each apply is one atomic read-modify-write against the store; the next
// state is a pure function of the freshly-read state and the new sample, so
// the store may retry conflicting transactions freely.
type Transactor struct {
	store   repository.Store
	blender blend.Blender
	logger  logger.Logger
	now     func() time.Time
}

// NewTransactor creates a Transactor bound to a store.
func NewTransactor(store repository.Store, blender blend.Blender, log logger.Logger) *Transactor {
	return &Transactor{
		store:   store,
		blender: blender,
		logger:  log.Named("transactor"),
		now:     time.Now,
	}
}

// ApplyBuildingUpdate folds the processed dwell time into the building
// profile and recomputes the blended estimate from the immutable heuristic
// baseline and the new live average.
func (t *Transactor) ApplyBuildingUpdate(ctx context.Context, s *model.Session, dwellSeconds float64) (model.BuildingProfile, error) {
	now := t.now()
	committed, err := t.store.UpdateBuilding(ctx, s.BuildingID, func(cur model.BuildingProfile, exists bool) (model.BuildingProfile, error) {
		return aggregate.NextBuilding(cur, exists, s, dwellSeconds, t.blender, now), nil
	})
	if err != nil {
		return model.BuildingProfile{}, err
	}

	confidence := t.blender.Confidence(committed.VisitCount)
	metrics.RecordBlendConfidence(confidence)
	t.logger.Debug(ctx, "building aggregate updated",
		logger.String("buildingID", committed.BuildingID),
		logger.Int64("visitCount", committed.VisitCount),
		logger.Float64("confidence", confidence),
		logger.Float64("liveAverage", committed.LiveAverageDwellTime),
		logger.Float64("blended", committed.BlendedDwellTime),
	)

	return committed, nil
}

// ApplyUserUpdate folds the processed dwell time into the user profile.
func (t *Transactor) ApplyUserUpdate(ctx context.Context, s *model.Session, dwellSeconds float64) (model.UserProfile, error) {
	now := t.now()
	committed, err := t.store.UpdateUser(ctx, s.UserID, func(cur model.UserProfile, exists bool) (model.UserProfile, error) {
		return aggregate.NextUser(cur, exists, s, dwellSeconds, now), nil
	})
	if err != nil {
		return model.UserProfile{}, err
	}

	t.logger.Debug(ctx, "user aggregate updated",
		logger.String("userID", committed.UserID),
		logger.Int64("totalSessions", committed.TotalSessions),
		logger.Float64("averageDwell", committed.AverageDwellTime),
	)

	return committed, nil
}
