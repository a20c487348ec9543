package store

import (
	"time"
)

// FrameStat is the journal entry for one loop iteration.
type FrameStat struct {
	Index     int       `json:"index"`
	Faces     int       `json:"faces"`
	DetectMs  float64   `json:"detect_ms"`
	Skipped   bool      `json:"skipped"`
	Activity  float64   `json:"activity"`
	CreatedAt time.Time `json:"created_at"`
}

// FrameSummary aggregates the frame stats of a session.
type FrameSummary struct {
	Frames      int     `json:"frames"`
	Skipped     int     `json:"skipped"`
	Faces       int     `json:"faces"`
	AvgDetectMs float64 `json:"avg_detect_ms"`
}

// FrameRepository provides access to per-frame statistics.
type FrameRepository struct {
	s *Store
}

// Frames returns the frame stats repository for this store.
func (s *Store) Frames() *FrameRepository {
	return &FrameRepository{s: s}
}

// Record appends a frame stat to a session. A zero CreatedAt is set to now.
func (r *FrameRepository) Record(sessionID string, f FrameStat) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	skipped := 0
	if f.Skipped {
		skipped = 1
	}

	_, err := r.s.db.Exec(r.s.rebind(
		`INSERT INTO frame_stats (session_id, frame_index, faces, detect_ms, skipped, activity, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		sessionID, f.Index, f.Faces, f.DetectMs, skipped, f.Activity, f.CreatedAt,
	)
	return err
}

// ListBySession returns a session's frame stats in frame order.
func (r *FrameRepository) ListBySession(sessionID string) ([]FrameStat, error) {
	rows, err := r.s.db.Query(r.s.rebind(
		`SELECT frame_index, faces, detect_ms, skipped, activity, created_at
		 FROM frame_stats WHERE session_id = ? ORDER BY frame_index`),
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []FrameStat
	for rows.Next() {
		var (
			f       FrameStat
			skipped int
		)
		if err := rows.Scan(&f.Index, &f.Faces, &f.DetectMs, &skipped, &f.Activity, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.Skipped = skipped != 0
		stats = append(stats, f)
	}

	return stats, rows.Err()
}

// Summary aggregates a session's frame stats. Skipped frames count towards
// Skipped only.
func (r *FrameRepository) Summary(sessionID string) (FrameSummary, error) {
	var sum FrameSummary

	err := r.s.db.QueryRow(r.s.rebind(
		`SELECT
			COALESCE(SUM(CASE WHEN skipped = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(skipped), 0),
			COALESCE(SUM(faces), 0),
			COALESCE(AVG(CASE WHEN skipped = 0 THEN detect_ms END), 0)
		 FROM frame_stats WHERE session_id = ?`),
		sessionID,
	).Scan(&sum.Frames, &sum.Skipped, &sum.Faces, &sum.AvgDetectMs)

	return sum, err
}
