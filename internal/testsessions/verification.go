package testsessions

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/dwell/pkg/logger"
)

// retrieveStatuses fetches the terminal status of every submitted session
// concurrently and tallies the outcomes.
func retrieveStatuses(ctx context.Context, config *Config, sessions []Session, stats *Stats) error {
	logger.Get().Info(ctx, "retrieving session statuses", logger.Int("count", len(sessions)))

	client := newHTTPClient(config.Timeout)

	var (
		retrieved int64
		completed int64
		invalid   int64
	)

	sessionChan := make(chan Session, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for s := range sessionChan {
				select {
				case <-ctx.Done():
					return
				default:
					status, err := fetchStatus(ctx, client, config.BaseURL, s.SessionID)
					if err != nil {
						continue
					}
					atomic.AddInt64(&retrieved, 1)
					switch status.State {
					case "completed":
						atomic.AddInt64(&completed, 1)
					case "invalid":
						atomic.AddInt64(&invalid, 1)
					}
				}
			}
		}()
	}

	go func() {
		defer close(sessionChan)
		for _, s := range sessions {
			select {
			case <-ctx.Done():
				return
			case sessionChan <- s:
			}
		}
	}()

	wg.Wait()

	stats.StatusesRetrieved = int(atomic.LoadInt64(&retrieved))
	stats.StatusesCompleted = int(atomic.LoadInt64(&completed))
	stats.StatusesInvalid = int(atomic.LoadInt64(&invalid))

	logger.Get().Info(ctx, "retrieved session statuses",
		logger.Int("retrieved", stats.StatusesRetrieved),
		logger.Int("completed", stats.StatusesCompleted),
		logger.Int("invalid", stats.StatusesInvalid))

	return nil
}

// fetchStatus fetches one session's terminal status.
func fetchStatus(ctx context.Context, client *HTTPClient, baseURL, sessionID string) (StatusResponse, error) {
	var status StatusResponse

	resp, err := client.Get(ctx, baseURL+"/sessions/"+sessionID)
	if err != nil {
		return status, fmt.Errorf("failed to fetch status: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return status, fmt.Errorf("failed to read status body: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return status, fmt.Errorf("status fetch returned %d", resp.StatusCode)
	}

	if err := unmarshalJSON(body, &status); err != nil {
		return status, fmt.Errorf("failed to parse status: %w", err)
	}
	return status, nil
}

// fetchBuildingProfiles fetches every registered building's aggregate.
func fetchBuildingProfiles(ctx context.Context, config *Config, stats *Stats) ([]BuildingResponse, error) {
	client := newHTTPClient(config.Timeout)

	profiles := make([]BuildingResponse, 0, config.NumBuildings)
	for i := 0; i < config.NumBuildings; i++ {
		resp, err := client.Get(ctx, config.BaseURL+"/buildings/"+buildingID(i))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", buildingID(i), err)
		}

		body, err := readResponseBody(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s body: %w", buildingID(i), err)
		}
		if resp.StatusCode != StatusOK {
			return nil, fmt.Errorf("fetching %s returned %d", buildingID(i), resp.StatusCode)
		}

		var profile BuildingResponse
		if err := unmarshalJSON(body, &profile); err != nil {
			return nil, fmt.Errorf("failed to parse %s profile: %w", buildingID(i), err)
		}
		profiles = append(profiles, profile)
	}

	stats.ProfilesRetrieved = len(profiles)
	return profiles, nil
}

// verifyResults checks the aggregates against the submission tallies.
func verifyResults(ctx context.Context, profiles []BuildingResponse, stats *Stats) error {
	var totalVisits int64
	for _, p := range profiles {
		totalVisits += p.VisitCount

		// A visited building must have a live average and a blend pulled
		// off its pure heuristic.
		if p.VisitCount > 0 && p.LiveAverageDwellTime <= 0 {
			return fmt.Errorf("building %s has %d visits but no live average", p.BuildingID, p.VisitCount)
		}
		if p.BlendedDwellTime <= 0 {
			return fmt.Errorf("building %s has a non-positive blended dwell time", p.BuildingID)
		}
	}

	// Every completed session lands in exactly one building aggregate.
	if totalVisits != int64(stats.StatusesCompleted) {
		return fmt.Errorf("aggregate visit count %d does not match completed sessions %d", totalVisits, stats.StatusesCompleted)
	}

	logger.Get().Info(ctx, "verification passed",
		logger.Int64("totalVisits", totalVisits),
		logger.Int("completedSessions", stats.StatusesCompleted))

	return nil
}
