package testsessions

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/dwell/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	dwellCaseDivisor   = 8
	sensorCaseDivisor  = 4
)

// Constants for dwell time generation ranges (seconds).
const (
	quickVisitMin      = 30.0
	quickVisitRange    = 90.0
	shortVisitMin      = 120.0
	shortVisitRange    = 180.0
	typicalVisitMin    = 300.0
	typicalVisitRange  = 600.0
	longVisitMin       = 900.0
	longVisitRange     = 1800.0
	extendedVisitMin   = 2700.0
	extendedVisitRange = 3600.0
)

// Constants for dwell distribution cases.
const (
	caseQuickVisit = iota
	caseShortVisit
	caseTypicalVisitA
	caseTypicalVisitB
	caseTypicalVisitC
	caseLongVisitA
	caseLongVisitB
	caseExtendedVisit
)

// User types cycled over generated sessions.
var userTypes = []string{"friend", "carrier", "admin"}

// Manhattan zip codes exercised by building registration.
var zipCodes = []string{"10001", "10005", "10012", "10021", "10036", "10128", "10282", "11201"}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// generateSessions creates the specified number of sessions spread over the
// configured building and user populations.
func generateSessions(ctx context.Context, config *Config, stats *Stats) ([]Session, error) {
	logger.Get().Info(ctx, "generating sessions",
		logger.Int("numSessions", config.NumSessions),
		logger.Int("numBuildings", config.NumBuildings),
		logger.Int("numUsers", config.NumUsers))

	// Pre-allocate user IDs so sessions can share them
	userIDs := make([]string, config.NumUsers)
	for i := 0; i < config.NumUsers; i++ {
		userIDs[i] = uuid.New().String()
	}

	sessions := make([]Session, config.NumSessions)

	type sessionResult struct {
		index   int
		session Session
		err     error
	}

	resultChan := make(chan sessionResult, config.NumSessions)

	workerCount := minInt(config.Workers, config.NumSessions)
	sessionsPerWorker := config.NumSessions / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * sessionsPerWorker
		end := start + sessionsPerWorker
		if worker == workerCount-1 {
			end = config.NumSessions
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- sessionResult{index: i, err: ctx.Err()}
					return
				default:
					s := generateSingleSession(i, config, userIDs)
					resultChan <- sessionResult{index: i, session: s}
				}
			}
		}(start, end)
	}

	for i := 0; i < config.NumSessions; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during session generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate session %d: %w", result.index, result.err)
			}
			sessions[result.index] = result.session
		}
	}

	stats.SessionsGenerated = len(sessions)
	logger.Get().Info(ctx, "generated sessions successfully", logger.Int("count", len(sessions)))

	return sessions, nil
}

// generateSingleSession creates one session assigned to a building and user
// by round-robin, with a varied dwell distribution and occasional sensor data.
func generateSingleSession(index int, config *Config, userIDs []string) Session {
	dwell := generateVariedDwell()

	end := time.Now().UTC()
	start := end.Add(-time.Duration(dwell * float64(time.Second)))

	randNum, _ := rand.Int(rand.Reader, big.NewInt(dwellCaseDivisor))
	sessionID := "session_" + strconv.FormatInt(int64(index), 10) + "_" + strconv.FormatInt(end.Unix(), 10) + "_" + strconv.FormatInt(randNum.Int64(), 10)

	s := Session{
		SessionID:    sessionID,
		BuildingID:   buildingID(index % config.NumBuildings),
		UserID:       userIDs[index%len(userIDs)],
		UserType:     userTypes[index%len(userTypes)],
		StartTime:    start.Format(time.RFC3339),
		EndTime:      end.Format(time.RFC3339),
		DwellSeconds: dwell,
	}

	// Roughly a quarter of sessions carry sensor batches.
	sensorCase, _ := rand.Int(rand.Reader, big.NewInt(sensorCaseDivisor))
	if sensorCase.Int64() == 0 {
		s.Accelerometer, s.Barometer = generateSensorBatches(start)
	}

	return s
}

// buildingID formats the deterministic id used both for registration and
// session assignment.
func buildingID(i int) string {
	return "building_" + strconv.Itoa(i)
}

// generateVariedDwell creates a dwell time with varied distribution.
func generateVariedDwell() float64 {
	randNum, _ := rand.Int(rand.Reader, big.NewInt(dwellCaseDivisor))
	switch randNum.Int64() {
	case caseQuickVisit:
		return quickVisitMin + getRandomFloat()*quickVisitRange
	case caseShortVisit:
		return shortVisitMin + getRandomFloat()*shortVisitRange
	case caseTypicalVisitA, caseTypicalVisitB, caseTypicalVisitC:
		return typicalVisitMin + getRandomFloat()*typicalVisitRange
	case caseLongVisitA, caseLongVisitB:
		return longVisitMin + getRandomFloat()*longVisitRange
	case caseExtendedVisit:
		return extendedVisitMin + getRandomFloat()*extendedVisitRange
	default:
		return typicalVisitMin + getRandomFloat()*typicalVisitRange
	}
}

// generateSensorBatches produces small accelerometer and barometer batches.
// About half the accelerometer batches contain deltas large enough to count
// as movement so refinement paths get exercised.
func generateSensorBatches(start time.Time) ([]AccelSample, []BaroSample) {
	const samples = 12

	moving := getRandomFloat() < 0.5
	accel := make([]AccelSample, samples)
	for i := range accel {
		base := 9.8
		if moving && i%3 == 0 {
			base += 3.0 + getRandomFloat()*2.0
		}
		accel[i] = AccelSample{
			X:  base * getRandomFloat(),
			Y:  base * getRandomFloat(),
			Z:  base,
			TS: start.Add(time.Duration(i) * time.Second).Format(time.RFC3339),
		}
	}

	baro := make([]BaroSample, samples)
	pressure := 1013.0
	for i := range baro {
		if moving && i == samples/2 {
			// One floor's worth of pressure drop mid-batch.
			pressure -= 13.0
		}
		baro[i] = BaroSample{
			Pressure: pressure + getRandomFloat(),
			TS:       start.Add(time.Duration(i) * time.Second).Format(time.RFC3339),
		}
	}

	return accel, baro
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
