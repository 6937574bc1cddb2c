// Package aggregate computes the next state of the shared profile records.
//
// Both functions are pure: the next state depends only on the freshly-read
// current state and the new sample, so the store may retry a conflicting
// transaction any number of times without side effects.
package aggregate

import (
	"time"

	"github.com/okian/dwell/internal/domain/blend"
	"github.com/okian/dwell/internal/domain/model"
)

// NextBuilding folds one processed dwell time into a building profile.
// When the profile does not exist yet it is synthesized with the default
// heuristic baseline. The heuristic itself is never changed here; only the
// derived blended estimate is recomputed.
func NextBuilding(cur model.BuildingProfile, exists bool, s *model.Session, dwellSeconds float64, b blend.Blender, now time.Time) model.BuildingProfile {
	if !exists {
		cur = model.BuildingProfile{
			BuildingID:         s.BuildingID,
			HeuristicDwellTime: model.DefaultHeuristicDwellSeconds,
			BlendedDwellTime:   model.DefaultHeuristicDwellSeconds,
			CreatedAt:          now,
		}
	}

	next := cur
	next.VisitCount = cur.VisitCount + 1
	next.TotalDwellSeconds = cur.TotalDwellSeconds + dwellSeconds
	next.LiveAverageDwellTime = next.TotalDwellSeconds / float64(next.VisitCount)
	next.BlendedDwellTime = b.Blend(next.VisitCount, next.HeuristicDwellTime, next.LiveAverageDwellTime)
	next.LastUpdated = now

	return next
}

// NextUser folds one processed dwell time into a user profile. The user
// type is fixed at creation and kept on subsequent updates.
func NextUser(cur model.UserProfile, exists bool, s *model.Session, dwellSeconds float64, now time.Time) model.UserProfile {
	if !exists {
		return model.UserProfile{
			UserID:            s.UserID,
			UserType:          s.UserType,
			TotalSessions:     1,
			TotalDwellSeconds: dwellSeconds,
			AverageDwellTime:  dwellSeconds,
			FirstSessionAt:    now,
			LastSessionAt:     now,
		}
	}

	next := cur
	next.TotalSessions = cur.TotalSessions + 1
	next.TotalDwellSeconds = cur.TotalDwellSeconds + dwellSeconds
	next.AverageDwellTime = next.TotalDwellSeconds / float64(next.TotalSessions)
	next.LastSessionAt = now

	return next
}
