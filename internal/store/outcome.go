package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/telemetry"
)

// GestureStats aggregates the outcomes of one gesture.
type GestureStats struct {
	Gesture string  `json:"gesture"`
	Success int     `json:"success"`
	Total   int     `json:"total"`
	Rate    float64 `json:"rate"`
}

// OutcomeRepository stores gesture outcomes per session.
type OutcomeRepository struct {
	db *sql.DB
}

// Outcomes returns the outcome repository for this store.
func (s *Store) Outcomes() *OutcomeRepository {
	return &OutcomeRepository{db: s.db}
}

// CreateBatch inserts outcomes for a session in one transaction.
func (r *OutcomeRepository) CreateBatch(ctx context.Context, sessionID string, outcomes []telemetry.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO outcomes (session_id, frame, at, gesture, success, status, value, attempts,
		   decision_latency_us, dispatch_latency_us, fps, hand_detection_rate, processing_rate,
		   distance_stability, avg_frame_time_us, success_rate)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range outcomes {
		_, err := stmt.ExecContext(ctx,
			sessionID, o.Frame, o.At.UTC(), o.Gesture, o.Success, o.Status, o.Value, o.Attempts,
			o.DecisionLatency.Microseconds(), o.DispatchLatency.Microseconds(),
			o.Stats.FPS, o.Stats.HandDetectionRate, o.Stats.ProcessingRate,
			o.Stats.DistanceStability, o.Stats.AvgFrameTime.Microseconds(), o.SuccessRate,
		)
		if err != nil {
			return fmt.Errorf("failed to insert outcome for frame %d: %w", o.Frame, err)
		}
	}

	return tx.Commit()
}

// List returns a session's outcomes in frame order.
func (r *OutcomeRepository) List(ctx context.Context, sessionID string) ([]telemetry.Outcome, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT frame, at, gesture, success, status, value, attempts,
		   decision_latency_us, dispatch_latency_us, fps, hand_detection_rate, processing_rate,
		   distance_stability, avg_frame_time_us, success_rate
		 FROM outcomes WHERE session_id = ? ORDER BY frame, id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []telemetry.Outcome
	for rows.Next() {
		var o telemetry.Outcome
		var decisionUs, dispatchUs, frameUs int64
		err := rows.Scan(&o.Frame, &o.At, &o.Gesture, &o.Success, &o.Status, &o.Value, &o.Attempts,
			&decisionUs, &dispatchUs, &o.Stats.FPS, &o.Stats.HandDetectionRate, &o.Stats.ProcessingRate,
			&o.Stats.DistanceStability, &frameUs, &o.SuccessRate)
		if err != nil {
			return nil, err
		}
		o.DecisionLatency = time.Duration(decisionUs) * time.Microsecond
		o.DispatchLatency = time.Duration(dispatchUs) * time.Microsecond
		o.Stats.AvgFrameTime = time.Duration(frameUs) * time.Microsecond
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// Stats returns per-gesture success counts for a session, sorted by gesture.
func (r *OutcomeRepository) Stats(ctx context.Context, sessionID string) ([]GestureStats, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT gesture, SUM(success), COUNT(*)
		 FROM outcomes WHERE session_id = ?
		 GROUP BY gesture ORDER BY gesture`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []GestureStats
	for rows.Next() {
		var s GestureStats
		if err := rows.Scan(&s.Gesture, &s.Success, &s.Total); err != nil {
			return nil, err
		}
		if s.Total > 0 {
			s.Rate = float64(s.Success) / float64(s.Total)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

// Flusher returns a telemetry flusher that writes batches into sessionID.
func (r *OutcomeRepository) Flusher(sessionID string) telemetry.Flusher {
	return telemetry.FlusherFunc(func(ctx context.Context, batch []telemetry.Outcome) error {
		return r.CreateBatch(ctx, sessionID, batch)
	})
}
