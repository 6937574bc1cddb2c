// Package pipeline orchestrates the processing of one session record:
// validate, refine with sensor signals, persist the terminal status, and
// apply the result to the two shared aggregates.
//
// States: received -> validated|rejected -> (sensor-refined) -> aggregated
// -> completed, with errored reachable from any point after received. Every
// invocation produces exactly one terminal status write; failures are
// converted to a status and never re-raised to the dispatch boundary.
package pipeline

import (
	"context"
	"time"

	"github.com/okian/dwell/internal/adapters/repository"
	"github.com/okian/dwell/internal/domain/blend"
	"github.com/okian/dwell/internal/domain/fusion"
	"github.com/okian/dwell/internal/domain/model"
	"github.com/okian/dwell/internal/domain/validate"
	"github.com/okian/dwell/pkg/logger"
	"github.com/okian/dwell/pkg/metrics"
)

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithValidator sets a custom session validator.
func WithValidator(v *validate.Validator) Option {
	return func(p *Pipeline) {
		if v != nil {
			p.validator = v
		}
	}
}

// WithFusionEngine sets a custom sensor fusion engine.
func WithFusionEngine(e *fusion.Engine) Option {
	return func(p *Pipeline) {
		if e != nil {
			p.engine = e
		}
	}
}

// WithBlender sets a custom confidence blender.
func WithBlender(b blend.Blender) Option {
	return func(p *Pipeline) {
		p.blender = b
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock sets the time source used for status timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// Pipeline sequences the session-processing steps against a store.
type Pipeline struct {
	store      repository.Store
	validator  *validate.Validator
	engine     *fusion.Engine
	blender    blend.Blender
	transactor *Transactor
	logger     logger.Logger
	now        func() time.Time
}

// New constructs a Pipeline with default components.
func New(store repository.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:     store,
		validator: validate.New(),
		engine:    fusion.New(),
		blender:   blend.New(),
		logger:    logger.Get().Named("pipeline"),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	p.transactor = NewTransactor(store, p.blender, p.logger)
	p.transactor.now = p.now

	return p
}

// Process runs one full pipeline invocation for a session and returns the
// terminal status it wrote. It never returns an error: rejections and
// failures both terminate in a status write.
func (p *Pipeline) Process(ctx context.Context, s *model.Session) model.ProcessingStatus {
	metrics.RecordSessionReceived()

	// Step 1: validation. A rejection is terminal and never retried.
	if ok, rejection := p.validator.Validate(s); !ok {
		metrics.RecordSessionInvalid(string(rejection.Code))
		p.logger.Info(ctx, "session rejected",
			logger.String("sessionID", s.SessionID),
			logger.String("reason", rejection.String()),
		)
		return p.writeStatus(ctx, model.ProcessingStatus{
			SessionID:   s.SessionID,
			State:       model.StateInvalid,
			Reason:      rejection.String(),
			ProcessedAt: p.now(),
		})
	}

	// Step 2: sensor refinement, only when a sensor batch is present.
	processedDwell := s.DwellSeconds
	if s.HasSensorData() {
		movement := p.engine.AnalyzeMovement(s.Accelerometer)
		floors := p.engine.AnalyzeFloorChanges(s.Barometer)
		processedDwell = p.engine.Refine(s.DwellSeconds, movement, floors)

		if movement.Detected {
			metrics.RecordMovementDetected()
		}
		metrics.RecordFloorChanges(floors.Changes)
		metrics.RecordRefinementAdjustment(processedDwell - s.DwellSeconds)
		p.logger.Debug(ctx, "dwell time refined",
			logger.String("sessionID", s.SessionID),
			logger.Float64("rawDwell", s.DwellSeconds),
			logger.Float64("processedDwell", processedDwell),
			logger.Float64("movementConfidence", movement.Confidence),
			logger.Int("floorChanges", floors.Changes),
		)
	}

	// Step 3: persist the processed result on the session.
	completed := model.ProcessingStatus{
		SessionID:             s.SessionID,
		State:                 model.StateCompleted,
		ProcessedDwellSeconds: processedDwell,
		ProcessedAt:           p.now(),
	}
	if err := p.store.WriteSessionStatus(ctx, completed); err != nil {
		return p.fail(ctx, s, err)
	}

	// Step 4: building update first, then user update. These are two
	// independent transactions; a failure in between leaves the building
	// aggregate updated and the user aggregate stale. That window is
	// accepted and surfaced through the partial-update counter.
	if _, err := p.transactor.ApplyBuildingUpdate(ctx, s, processedDwell); err != nil {
		return p.fail(ctx, s, err)
	}
	if _, err := p.transactor.ApplyUserUpdate(ctx, s, processedDwell); err != nil {
		metrics.RecordPartialUpdate()
		return p.fail(ctx, s, err)
	}

	metrics.RecordSessionCompleted()
	p.logger.Info(ctx, "session processed",
		logger.String("sessionID", s.SessionID),
		logger.Float64("processedDwell", processedDwell),
	)

	return completed
}

// fail converts any processing failure into the terminal error status. The
// failure never propagates to the dispatch boundary, so the boundary does
// not retry the session.
func (p *Pipeline) fail(ctx context.Context, s *model.Session, cause error) model.ProcessingStatus {
	metrics.RecordSessionErrored()
	p.logger.Error(ctx, "session processing failed",
		logger.String("sessionID", s.SessionID),
		logger.Error(cause),
	)
	return p.writeStatus(ctx, model.ProcessingStatus{
		SessionID:   s.SessionID,
		State:       model.StateError,
		Message:     cause.Error(),
		ProcessedAt: p.now(),
	})
}

// writeStatus persists a terminal status. A failing status write is logged
// and the intended status still returned; there is nothing left to do for
// the session at that point.
func (p *Pipeline) writeStatus(ctx context.Context, status model.ProcessingStatus) model.ProcessingStatus {
	if err := p.store.WriteSessionStatus(ctx, status); err != nil {
		p.logger.Error(ctx, "status write failed",
			logger.String("sessionID", status.SessionID),
			logger.String("state", string(status.State)),
			logger.Error(err),
		)
	}
	return status
}
