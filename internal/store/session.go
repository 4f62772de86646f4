package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SessionRecord is the summary of one pointer session.
type SessionRecord struct {
	ID            string     `json:"id"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	CameraWidth   int        `json:"camera_width"`
	CameraHeight  int        `json:"camera_height"`
	ScreenWidth   int        `json:"screen_width"`
	ScreenHeight  int        `json:"screen_height"`
	VolumeEnabled bool       `json:"volume_enabled"`
	Frames        int        `json:"frames"`
	HandFrames    int        `json:"hand_frames"`
	PausedFrames  int        `json:"paused_frames"`
	Presses       int        `json:"presses"`
	Releases      int        `json:"releases"`
	Scrolls       int        `json:"scrolls"`
	VolumeChanges int        `json:"volume_changes"`
	Errors        int        `json:"errors"`
	MeanFrameMs   float64    `json:"mean_frame_ms"`
}

// SessionRepository reads and writes the sessions table.
type SessionRepository struct {
	db *sql.DB
}

func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts rec, assigning a new ID when it has none and a start time
// when it is zero.
func (r *SessionRepository) Create(rec *SessionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, started_at, camera_width, camera_height, screen_width, screen_height, volume_enabled)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.StartedAt.UTC(), rec.CameraWidth, rec.CameraHeight, rec.ScreenWidth, rec.ScreenHeight, rec.VolumeEnabled,
	)
	return err
}

// Finish stores the end time and counters of rec.
func (r *SessionRepository) Finish(rec *SessionRecord) error {
	if rec.EndedAt == nil {
		now := time.Now()
		rec.EndedAt = &now
	}

	res, err := r.db.Exec(
		`UPDATE sessions SET ended_at = ?, volume_enabled = ?, frames = ?, hand_frames = ?, paused_frames = ?,
		 presses = ?, releases = ?, scrolls = ?, volume_changes = ?, errors = ?, mean_frame_ms = ?
		 WHERE id = ?`,
		rec.EndedAt.UTC(), rec.VolumeEnabled, rec.Frames, rec.HandFrames, rec.PausedFrames,
		rec.Presses, rec.Releases, rec.Scrolls, rec.VolumeChanges, rec.Errors, rec.MeanFrameMs,
		rec.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const sessionColumns = `id, started_at, ended_at, camera_width, camera_height, screen_width, screen_height,
	volume_enabled, frames, hand_frames, paused_frames, presses, releases, scrolls, volume_changes, errors, mean_frame_ms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*SessionRecord, error) {
	rec := &SessionRecord{}
	var ended sql.NullTime
	err := row.Scan(&rec.ID, &rec.StartedAt, &ended, &rec.CameraWidth, &rec.CameraHeight,
		&rec.ScreenWidth, &rec.ScreenHeight, &rec.VolumeEnabled, &rec.Frames, &rec.HandFrames,
		&rec.PausedFrames, &rec.Presses, &rec.Releases, &rec.Scrolls, &rec.VolumeChanges,
		&rec.Errors, &rec.MeanFrameMs)
	if err != nil {
		return nil, err
	}
	if ended.Valid {
		rec.EndedAt = &ended.Time
	}
	return rec, nil
}

func (r *SessionRepository) GetByID(id string) (*SessionRecord, error) {
	rec, err := scanSession(r.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// List returns up to limit sessions, newest first. A non-positive limit
// returns all of them.
func (r *SessionRepository) List(limit int) ([]*SessionRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(`SELECT `+sessionColumns+` FROM sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes the session with id.
func (r *SessionRepository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
