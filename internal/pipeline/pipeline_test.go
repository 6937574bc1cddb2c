package pipeline_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/dwell/internal/adapters/repository"
	"github.com/okian/dwell/internal/domain/model"
	"github.com/okian/dwell/internal/pipeline"
	"github.com/okian/dwell/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func ts(t time.Time) *model.Timestamp {
	return &model.Timestamp{Time: t}
}

func validSession() *model.Session {
	start := fixedNow.Add(-10 * time.Minute)
	return &model.Session{
		SessionID:    "session-1",
		BuildingID:   "building-1",
		UserID:       "user-1",
		UserType:     model.UserTypeFriend,
		StartTime:    ts(start),
		EndTime:      ts(fixedNow),
		DwellSeconds: 600,
	}
}

// failingStore wraps a MemStore and injects failures per operation.
type failingStore struct {
	*repository.MemStore
	failStatusWrite    bool
	failBuildingUpdate bool
	failUserUpdate     bool
}

var errInjected = errors.New("injected store failure")

func (f *failingStore) WriteSessionStatus(ctx context.Context, status model.ProcessingStatus) error {
	if f.failStatusWrite {
		return errInjected
	}
	return f.MemStore.WriteSessionStatus(ctx, status)
}

func (f *failingStore) UpdateBuilding(ctx context.Context, id string, fn repository.BuildingTxn) (model.BuildingProfile, error) {
	if f.failBuildingUpdate {
		return model.BuildingProfile{}, errInjected
	}
	return f.MemStore.UpdateBuilding(ctx, id, fn)
}

func (f *failingStore) UpdateUser(ctx context.Context, id string, fn repository.UserTxn) (model.UserProfile, error) {
	if f.failUserUpdate {
		return model.UserProfile{}, errInjected
	}
	return f.MemStore.UpdateUser(ctx, id, fn)
}

func TestProcessRejections(t *testing.T) {
	Convey("Given a pipeline over an in-memory store", t, func() {
		store := repository.NewMemStore()
		p := pipeline.New(store, pipeline.WithClock(clock))
		ctx := context.Background()

		Convey("When the session misses a required field", func() {
			s := validSession()
			s.BuildingID = ""
			status := p.Process(ctx, s)

			Convey("Then the terminal state is invalid with the reason", func() {
				So(status.State, ShouldEqual, model.StateInvalid)
				So(status.Reason, ShouldEqual, "missing_field: building_id")
				So(status.ProcessedAt, ShouldResemble, fixedNow)
			})

			Convey("And the status is persisted", func() {
				got, err := store.GetSessionStatus(ctx, "session-1")
				So(err, ShouldBeNil)
				So(got.State, ShouldEqual, model.StateInvalid)
			})

			Convey("And no aggregate was touched", func() {
				So(store.CountBuildings(ctx), ShouldEqual, 0)
				So(store.CountUsers(ctx), ShouldEqual, 0)
			})
		})

		Convey("When the dwell time is unrealistic", func() {
			s := validSession()
			s.DwellSeconds = 3
			status := p.Process(ctx, s)

			So(status.State, ShouldEqual, model.StateInvalid)
			So(status.Reason, ShouldEqual, "unrealistic_dwell_time")
		})

		Convey("When the user type is unknown", func() {
			s := validSession()
			s.UserType = "stranger"
			status := p.Process(ctx, s)

			So(status.State, ShouldEqual, model.StateInvalid)
			So(status.Reason, ShouldStartWith, "invalid_user_type")
		})
	})
}

func TestProcessCompletion(t *testing.T) {
	Convey("Given a pipeline over an in-memory store", t, func() {
		store := repository.NewMemStore()
		p := pipeline.New(store, pipeline.WithClock(clock))
		ctx := context.Background()

		Convey("When a session without sensor data is processed", func() {
			status := p.Process(ctx, validSession())

			Convey("Then it completes with the raw dwell time", func() {
				So(status.State, ShouldEqual, model.StateCompleted)
				So(status.ProcessedDwellSeconds, ShouldEqual, 600)
			})

			Convey("And the building aggregate folds in the visit", func() {
				b, err := store.GetBuilding(ctx, "building-1")
				So(err, ShouldBeNil)
				So(b.VisitCount, ShouldEqual, 1)
				So(b.TotalDwellSeconds, ShouldEqual, 600)
				So(b.LiveAverageDwellTime, ShouldEqual, 600)
				So(b.HeuristicDwellTime, ShouldEqual, model.DefaultHeuristicDwellSeconds)
			})

			Convey("And the user aggregate folds in the session", func() {
				u, err := store.GetUser(ctx, "user-1")
				So(err, ShouldBeNil)
				So(u.TotalSessions, ShouldEqual, 1)
				So(u.AverageDwellTime, ShouldEqual, 600)
				So(u.UserType, ShouldEqual, model.UserTypeFriend)
			})
		})

		Convey("When several sessions hit the same building", func() {
			for i, dwell := range []float64{100, 200, 300} {
				s := validSession()
				s.SessionID = "session-" + string(rune('a'+i))
				s.DwellSeconds = dwell
				status := p.Process(ctx, s)
				So(status.State, ShouldEqual, model.StateCompleted)
			}

			Convey("Then the live average tracks all of them", func() {
				b, err := store.GetBuilding(ctx, "building-1")
				So(err, ShouldBeNil)
				So(b.VisitCount, ShouldEqual, 3)
				So(b.TotalDwellSeconds, ShouldEqual, 600)
				So(b.LiveAverageDwellTime, ShouldEqual, 200)
			})
		})

		Convey("When a session carries confident movement and a floor change", func() {
			s := validSession()
			base := fixedNow.Add(-10 * time.Minute)
			// Alternating magnitudes: every pair moves, confidence 1.0.
			for i := 0; i < 6; i++ {
				z := 0.0
				if i%2 == 1 {
					z = 5.0
				}
				s.Accelerometer = append(s.Accelerometer, model.AccelSample{Z: z, TS: base.Add(time.Duration(i) * time.Second)})
			}
			// One pressure jump above the floor threshold.
			s.Barometer = []model.BaroSample{
				{Pressure: 1013, TS: base},
				{Pressure: 1000, TS: base.Add(time.Second)},
			}

			status := p.Process(ctx, s)

			Convey("Then the floor change extends the dwell time", func() {
				So(status.State, ShouldEqual, model.StateCompleted)
				So(status.ProcessedDwellSeconds, ShouldEqual, 630)
			})

			Convey("And the aggregates use the refined value", func() {
				b, err := store.GetBuilding(ctx, "building-1")
				So(err, ShouldBeNil)
				So(b.TotalDwellSeconds, ShouldEqual, 630)
			})
		})

		Convey("When sensor data shows no movement", func() {
			s := validSession()
			base := fixedNow.Add(-10 * time.Minute)
			for i := 0; i < 6; i++ {
				s.Accelerometer = append(s.Accelerometer, model.AccelSample{Z: 9.8, TS: base.Add(time.Duration(i) * time.Second)})
			}
			s.Barometer = []model.BaroSample{
				{Pressure: 1013, TS: base},
				{Pressure: 1000, TS: base.Add(time.Second)},
			}

			status := p.Process(ctx, s)

			Convey("Then the floor signal is ignored and the dwell is unchanged", func() {
				So(status.State, ShouldEqual, model.StateCompleted)
				So(status.ProcessedDwellSeconds, ShouldEqual, 600)
			})
		})
	})
}

func TestProcessFailures(t *testing.T) {
	Convey("Given a pipeline over a store that fails", t, func() {
		ctx := context.Background()

		Convey("When the building update fails", func() {
			store := &failingStore{MemStore: repository.NewMemStore(), failBuildingUpdate: true}
			p := pipeline.New(store, pipeline.WithClock(clock))

			status := p.Process(ctx, validSession())

			Convey("Then the terminal state is error with the cause", func() {
				So(status.State, ShouldEqual, model.StateError)
				So(status.Message, ShouldContainSubstring, "injected store failure")
			})

			Convey("And the error status replaces the completed one", func() {
				got, err := store.GetSessionStatus(ctx, "session-1")
				So(err, ShouldBeNil)
				So(got.State, ShouldEqual, model.StateError)
			})
		})

		Convey("When only the user update fails", func() {
			store := &failingStore{MemStore: repository.NewMemStore(), failUserUpdate: true}
			p := pipeline.New(store, pipeline.WithClock(clock))

			status := p.Process(ctx, validSession())

			Convey("Then the session errors", func() {
				So(status.State, ShouldEqual, model.StateError)
			})

			Convey("And the building aggregate keeps the committed visit", func() {
				b, err := store.GetBuilding(ctx, "building-1")
				So(err, ShouldBeNil)
				So(b.VisitCount, ShouldEqual, 1)

				_, err = store.GetUser(ctx, "user-1")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When every status write fails", func() {
			store := &failingStore{MemStore: repository.NewMemStore(), failStatusWrite: true}
			p := pipeline.New(store, pipeline.WithClock(clock))

			Convey("Then processing still returns a terminal status", func() {
				status := p.Process(ctx, validSession())
				So(status.State, ShouldEqual, model.StateError)
				So(status.SessionID, ShouldEqual, "session-1")
			})
		})
	})
}
