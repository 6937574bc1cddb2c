// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"sync"
	"time"

	sessionqueue "github.com/okian/dwell/internal/adapters/mq/queue"
	workerpool "github.com/okian/dwell/internal/adapters/mq/worker"
	repository "github.com/okian/dwell/internal/adapters/repository"
	"github.com/okian/dwell/internal/domain/baseline"
	"github.com/okian/dwell/internal/domain/blend"
	"github.com/okian/dwell/internal/domain/dedupe"
	"github.com/okian/dwell/internal/domain/fusion"
	"github.com/okian/dwell/internal/domain/model"
	"github.com/okian/dwell/internal/domain/validate"
	"github.com/okian/dwell/internal/pipeline"
	"github.com/okian/dwell/pkg/logger"
	"github.com/okian/dwell/pkg/metrics"
)

// Service owns the store, queue, dedupe cache, pipeline, and worker pool.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	deduper  dedupe.Deduper
	queue    sessionqueue.Queue
	pipeline *pipeline.Pipeline
	pool     *workerpool.Pool
	baseline baseline.Lookup

	// Configuration
	workerCount        int
	queueSize          int
	dedupeSize         int
	storePath          string
	txnMaxRetries      int
	confidenceK        float64
	movementThreshold  float64
	pressureThreshold  float64
	floorChangeSeconds float64
	minDwellSeconds    float64
	maxDwellSeconds    float64
	defaultBaseline    float64

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of pipeline workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the session queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithStorePath selects the durable SQLite store at path. Empty keeps the
// in-memory store.
func WithStorePath(path string) Option {
	return func(s *Service) {
		s.storePath = path
	}
}

// WithTxnMaxRetries sets the store's transaction retry budget.
func WithTxnMaxRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.txnMaxRetries = n
		}
	}
}

// WithConfidenceK sets the blending smoothing constant.
func WithConfidenceK(k float64) Option {
	return func(s *Service) {
		if k > 0 {
			s.confidenceK = k
		}
	}
}

// WithSensorThresholds sets the movement and pressure thresholds and the
// assumed per-floor travel time.
func WithSensorThresholds(movement, pressure, floorChangeSeconds float64) Option {
	return func(s *Service) {
		if movement > 0 {
			s.movementThreshold = movement
		}
		if pressure > 0 {
			s.pressureThreshold = pressure
		}
		if floorChangeSeconds > 0 {
			s.floorChangeSeconds = floorChangeSeconds
		}
	}
}

// WithDwellBounds sets the accepted dwell time range in seconds.
func WithDwellBounds(minSeconds, maxSeconds float64) Option {
	return func(s *Service) {
		if minSeconds > 0 && maxSeconds > minSeconds {
			s.minDwellSeconds = minSeconds
			s.maxDwellSeconds = maxSeconds
		}
	}
}

// WithDefaultBaseline sets the fallback heuristic baseline in seconds.
func WithDefaultBaseline(seconds float64) Option {
	return func(s *Service) {
		if seconds > 0 {
			s.defaultBaseline = seconds
		}
	}
}

// WithBaselineLookup sets a custom baseline lookup.
func WithBaselineLookup(l baseline.Lookup) Option {
	return func(s *Service) {
		if l != nil {
			s.baseline = l
		}
	}
}

// WithStore sets a pre-built store, overriding the store path.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:        8,
		queueSize:          100000,
		dedupeSize:         50000,
		txnMaxRetries:      5,
		confidenceK:        10,
		movementThreshold:  2.0,
		pressureThreshold:  12.0,
		floorChangeSeconds: 30,
		minDwellSeconds:    10,
		maxDwellSeconds:    7200,
		defaultBaseline:    baseline.DefaultSeconds,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting dwell service...")

	if s.store == nil {
		if s.storePath != "" {
			store, err := repository.NewSQLiteStore(s.storePath, repository.WithMaxTxnRetries(s.txnMaxRetries))
			if err != nil {
				return err
			}
			s.store = store
			s.logger.Info(ctx, "using sqlite store", logger.String("path", s.storePath))
		} else {
			s.store = repository.NewMemStore(repository.WithMaxTxnRetries(s.txnMaxRetries))
			s.logger.Info(ctx, "using in-memory store")
		}
	}

	if s.baseline == nil {
		s.baseline = baseline.NewStaticLookup(baseline.WithFallback(s.defaultBaseline))
	}

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.queue = sessionqueue.NewInMemoryQueue(
		sessionqueue.WithCapacity(s.queueSize),
	)
	s.pipeline = pipeline.New(s.store,
		pipeline.WithLogger(s.logger),
		pipeline.WithValidator(validate.New(
			validate.WithDwellBounds(s.minDwellSeconds, s.maxDwellSeconds),
		)),
		pipeline.WithFusionEngine(fusion.New(
			fusion.WithMovementThreshold(s.movementThreshold),
			fusion.WithPressureThreshold(s.pressureThreshold),
			fusion.WithFloorChangeSeconds(s.floorChangeSeconds),
			fusion.WithDwellBounds(s.minDwellSeconds, s.maxDwellSeconds),
		)),
		pipeline.WithBlender(blend.New(
			blend.WithSmoothingK(s.confidenceK),
		)),
	)

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.pipeline)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "dwell service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping dwell service...")

	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}

	if s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(ctx, "dwell service stopped")
}

// SeenAndRecord atomically checks if a session id was seen and records it
// if not. Returns true if the session was already seen.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordSessionDuplicate()
	}
	return seen
}

// Unrecord removes a session ID from the seen list, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Enqueue submits a session for asynchronous processing.
func (s *Service) Enqueue(ctx context.Context, sess model.Session) bool {
	return s.queue.Enqueue(ctx, sess)
}

// RegisterBuilding creates the building profile with a heuristic baseline
// from the lookup table. Registering an existing building is a no-op that
// returns the stored profile; the baseline is immutable once set.
func (s *Service) RegisterBuilding(ctx context.Context, buildingID, address, zipCode string) (model.BuildingProfile, error) {
	heuristic := s.baseline.Baseline(ctx, address, zipCode)
	now := time.Now()

	return s.store.UpdateBuilding(ctx, buildingID, func(cur model.BuildingProfile, exists bool) (model.BuildingProfile, error) {
		if exists {
			return cur, nil
		}
		return model.BuildingProfile{
			BuildingID:         buildingID,
			Address:            address,
			ZipCode:            zipCode,
			HeuristicDwellTime: heuristic,
			BlendedDwellTime:   heuristic,
			CreatedAt:          now,
			LastUpdated:        now,
		}, nil
	})
}

// BuildingProfile returns the stored building aggregate.
func (s *Service) BuildingProfile(ctx context.Context, buildingID string) (model.BuildingProfile, error) {
	return s.store.GetBuilding(ctx, buildingID)
}

// UserProfile returns the stored user aggregate.
func (s *Service) UserProfile(ctx context.Context, userID string) (model.UserProfile, error) {
	return s.store.GetUser(ctx, userID)
}

// SessionStatus returns the terminal processing status for a session.
func (s *Service) SessionStatus(ctx context.Context, sessionID string) (model.ProcessingStatus, error) {
	return s.store.GetSessionStatus(ctx, sessionID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		ctx := context.Background()
		queueLen := s.queue.Len(ctx)
		buildings := s.store.CountBuildings(ctx)
		users := s.store.CountUsers(ctx)

		stats["queueLength"] = queueLen
		stats["buildings"] = buildings
		stats["users"] = users

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateBuildingsTracked(buildings)
		metrics.UpdateUsersTracked(users)
	}

	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}
