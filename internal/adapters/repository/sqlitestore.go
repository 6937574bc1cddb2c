package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/dwell/internal/domain/model"
	"github.com/okian/dwell/pkg/metrics"
)

// SQLiteStore is the durable Store. SQLite serializes writers, so each
// read-modify-write runs inside one immediate transaction; a busy or locked
// database is treated as a transaction conflict and retried within the same
// bounded budget as the in-memory store.
type SQLiteStore struct {
	db            *sql.DB
	maxTxnRetries int
}

// NewSQLiteStore opens (or creates) the database at path and provisions the
// schema.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	cfg := newStoreConfig(opts...)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	// A single writer connection avoids spurious SQLITE_BUSY between pool
	// connections of the same process.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;

		CREATE TABLE IF NOT EXISTS building_profiles (
			building_id TEXT PRIMARY KEY,
			address TEXT,
			zip_code TEXT,
			heuristic_dwell_time DOUBLE,
			live_average_dwell_time DOUBLE,
			blended_dwell_time DOUBLE,
			visit_count INTEGER,
			total_dwell_seconds DOUBLE,
			created_at TIMESTAMP,
			last_updated TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS user_profiles (
			user_id TEXT PRIMARY KEY,
			user_type TEXT,
			total_sessions INTEGER,
			total_dwell_seconds DOUBLE,
			average_dwell_time DOUBLE,
			first_session_at TIMESTAMP,
			last_session_at TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS session_status (
			session_id TEXT PRIMARY KEY,
			state TEXT,
			reason TEXT,
			message TEXT,
			processed_dwell_seconds DOUBLE,
			processed_at TIMESTAMP
		);
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("provision sqlite schema: %w", err)
	}

	return &SQLiteStore{db: db, maxTxnRetries: cfg.maxTxnRetries}, nil
}

// isBusy reports whether err is SQLite's writer-contention error.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "sqlite_busy") || strings.Contains(msg, "database is locked")
}

// UpdateBuilding implements Store.UpdateBuilding.
func (s *SQLiteStore) UpdateBuilding(ctx context.Context, buildingID string, fn BuildingTxn) (model.BuildingProfile, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	var committed model.BuildingProfile
	err := s.withRetries(ctx, func(tx *sql.Tx) error {
		cur, exists, err := scanBuilding(tx.QueryRowContext(ctx, `
			SELECT building_id, address, zip_code, heuristic_dwell_time,
			       live_average_dwell_time, blended_dwell_time, visit_count,
			       total_dwell_seconds, created_at, last_updated
			FROM building_profiles WHERE building_id = ?`, buildingID))
		if err != nil {
			return err
		}

		next, err := fn(cur, exists)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO building_profiles (
				building_id, address, zip_code, heuristic_dwell_time,
				live_average_dwell_time, blended_dwell_time, visit_count,
				total_dwell_seconds, created_at, last_updated
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(building_id) DO UPDATE SET
				address = excluded.address,
				zip_code = excluded.zip_code,
				heuristic_dwell_time = excluded.heuristic_dwell_time,
				live_average_dwell_time = excluded.live_average_dwell_time,
				blended_dwell_time = excluded.blended_dwell_time,
				visit_count = excluded.visit_count,
				total_dwell_seconds = excluded.total_dwell_seconds,
				last_updated = excluded.last_updated`,
			next.BuildingID, next.Address, next.ZipCode, next.HeuristicDwellTime,
			next.LiveAverageDwellTime, next.BlendedDwellTime, next.VisitCount,
			next.TotalDwellSeconds, next.CreatedAt, next.LastUpdated,
		); err != nil {
			return err
		}

		committed = next
		return nil
	})
	if err != nil {
		return model.BuildingProfile{}, fmt.Errorf("building %s: %w", buildingID, err)
	}
	return committed, nil
}

// UpdateUser implements Store.UpdateUser.
func (s *SQLiteStore) UpdateUser(ctx context.Context, userID string, fn UserTxn) (model.UserProfile, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	var committed model.UserProfile
	err := s.withRetries(ctx, func(tx *sql.Tx) error {
		cur, exists, err := scanUser(tx.QueryRowContext(ctx, `
			SELECT user_id, user_type, total_sessions, total_dwell_seconds,
			       average_dwell_time, first_session_at, last_session_at
			FROM user_profiles WHERE user_id = ?`, userID))
		if err != nil {
			return err
		}

		next, err := fn(cur, exists)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_profiles (
				user_id, user_type, total_sessions, total_dwell_seconds,
				average_dwell_time, first_session_at, last_session_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				total_sessions = excluded.total_sessions,
				total_dwell_seconds = excluded.total_dwell_seconds,
				average_dwell_time = excluded.average_dwell_time,
				last_session_at = excluded.last_session_at`,
			next.UserID, next.UserType, next.TotalSessions, next.TotalDwellSeconds,
			next.AverageDwellTime, next.FirstSessionAt, next.LastSessionAt,
		); err != nil {
			return err
		}

		committed = next
		return nil
	})
	if err != nil {
		return model.UserProfile{}, fmt.Errorf("user %s: %w", userID, err)
	}
	return committed, nil
}

// withRetries runs fn inside a transaction, retrying writer contention up
// to the configured budget.
func (s *SQLiteStore) withRetries(ctx context.Context, fn func(tx *sql.Tx) error) error {
	for attempt := 0; attempt <= s.maxTxnRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("txn aborted: %w", err)
		}
		if attempt > 0 {
			metrics.RecordTxnRetry()
		}

		err := s.runTxn(ctx, fn)
		if err == nil {
			return nil
		}
		if isBusy(err) {
			metrics.RecordTxnConflict()
			continue
		}
		return err
	}

	metrics.RecordTxnExhausted()
	return ErrTxnExhausted
}

func (s *SQLiteStore) runTxn(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// GetBuilding implements Store.GetBuilding.
func (s *SQLiteStore) GetBuilding(ctx context.Context, buildingID string) (model.BuildingProfile, error) {
	profile, exists, err := scanBuilding(s.db.QueryRowContext(ctx, `
		SELECT building_id, address, zip_code, heuristic_dwell_time,
		       live_average_dwell_time, blended_dwell_time, visit_count,
		       total_dwell_seconds, created_at, last_updated
		FROM building_profiles WHERE building_id = ?`, buildingID))
	if err != nil {
		return model.BuildingProfile{}, err
	}
	if !exists {
		return model.BuildingProfile{}, ErrNotFound
	}
	return profile, nil
}

// GetUser implements Store.GetUser.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (model.UserProfile, error) {
	profile, exists, err := scanUser(s.db.QueryRowContext(ctx, `
		SELECT user_id, user_type, total_sessions, total_dwell_seconds,
		       average_dwell_time, first_session_at, last_session_at
		FROM user_profiles WHERE user_id = ?`, userID))
	if err != nil {
		return model.UserProfile{}, err
	}
	if !exists {
		return model.UserProfile{}, ErrNotFound
	}
	return profile, nil
}

// WriteSessionStatus implements Store.WriteSessionStatus.
func (s *SQLiteStore) WriteSessionStatus(ctx context.Context, status model.ProcessingStatus) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_status (
			session_id, state, reason, message, processed_dwell_seconds, processed_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			state = excluded.state,
			reason = excluded.reason,
			message = excluded.message,
			processed_dwell_seconds = excluded.processed_dwell_seconds,
			processed_at = excluded.processed_at`,
		status.SessionID, string(status.State), status.Reason, status.Message,
		status.ProcessedDwellSeconds, status.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("write session status: %w", err)
	}
	return nil
}

// GetSessionStatus implements Store.GetSessionStatus.
func (s *SQLiteStore) GetSessionStatus(ctx context.Context, sessionID string) (model.ProcessingStatus, error) {
	var (
		status model.ProcessingStatus
		state  string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, state, reason, message, processed_dwell_seconds, processed_at
		FROM session_status WHERE session_id = ?`, sessionID).
		Scan(&status.SessionID, &state, &status.Reason, &status.Message,
			&status.ProcessedDwellSeconds, &status.ProcessedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ProcessingStatus{}, ErrNotFound
	}
	if err != nil {
		return model.ProcessingStatus{}, fmt.Errorf("get session status: %w", err)
	}
	status.State = model.ProcessingState(state)
	return status, nil
}

// CountBuildings implements Store.CountBuildings.
func (s *SQLiteStore) CountBuildings(ctx context.Context) int {
	var n int
	_ = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM building_profiles`).Scan(&n)
	return n
}

// CountUsers implements Store.CountUsers.
func (s *SQLiteStore) CountUsers(ctx context.Context) int {
	var n int
	_ = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_profiles`).Scan(&n)
	return n
}

// Close implements Store.Close.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func scanBuilding(row *sql.Row) (model.BuildingProfile, bool, error) {
	var p model.BuildingProfile
	err := row.Scan(&p.BuildingID, &p.Address, &p.ZipCode, &p.HeuristicDwellTime,
		&p.LiveAverageDwellTime, &p.BlendedDwellTime, &p.VisitCount,
		&p.TotalDwellSeconds, &p.CreatedAt, &p.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BuildingProfile{}, false, nil
	}
	if err != nil {
		return model.BuildingProfile{}, false, fmt.Errorf("scan building profile: %w", err)
	}
	return p, true, nil
}

func scanUser(row *sql.Row) (model.UserProfile, bool, error) {
	var p model.UserProfile
	err := row.Scan(&p.UserID, &p.UserType, &p.TotalSessions, &p.TotalDwellSeconds,
		&p.AverageDwellTime, &p.FirstSessionAt, &p.LastSessionAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.UserProfile{}, false, nil
	}
	if err != nil {
		return model.UserProfile{}, false, fmt.Errorf("scan user profile: %w", err)
	}
	return p, true, nil
}
