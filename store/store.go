// Package store persists ALPR runs and their plate readings in a local
// SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/swdee/go-alpr"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a run does not exist
var ErrNotFound = errors.New("not found")

// DB is a handle to the results database
type DB struct {
	*sql.DB
}

// Run is a processed video and its final counters
type Run struct {
	ID         string     `json:"run_id"`
	Video      string     `json:"video"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Stats      alpr.Stats `json:"stats"`
}

// PlateRecord is the best plate reading of a vehicle within a run
type PlateRecord struct {
	VehicleID  int     `json:"vehicle_id"`
	PlateText  string  `json:"plate_text"`
	Confidence float64 `json:"confidence"`
	FirstFrame int     `json:"first_frame"`
	LastFrame  int     `json:"last_frame"`
}

// Open opens the SQLite database at path and migrates it to the latest
// schema
func Open(path string) (*DB, error) {

	// pragmas are set through the DSN so every pooled connection gets them
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	sqlDB, err := sql.Open("sqlite", dsn)

	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	db := &DB{sqlDB}

	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return db, nil
}

// CreateRun records the start of processing a video and returns the new run
// ID
func (db *DB) CreateRun(ctx context.Context, video string) (string, error) {

	id := uuid.NewString()

	_, err := db.ExecContext(ctx,
		`INSERT INTO runs (run_id, video, started_at) VALUES (?, ?, ?)`,
		id, video, formatTime(time.Now()))

	if err != nil {
		return "", fmt.Errorf("error creating run: %w", err)
	}

	return id, nil
}

// InsertResults stores the frame results of a run in a single transaction
func (db *DB) InsertResults(ctx context.Context, runID string, results []alpr.Result) error {

	if len(results) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)

	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO detections (
			run_id, frame_number, vehicle_id,
			vehicle_x1, vehicle_y1, vehicle_x2, vehicle_y2,
			plate_text, plate_x1, plate_y1, plate_x2, plate_y2,
			confidence, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	if err != nil {
		return fmt.Errorf("error preparing insert: %w", err)
	}

	defer stmt.Close()

	for _, res := range results {
		_, err := stmt.ExecContext(ctx, runID, res.FrameNumber, res.VehicleID,
			res.VehicleBox.Min.X, res.VehicleBox.Min.Y,
			res.VehicleBox.Max.X, res.VehicleBox.Max.Y,
			res.PlateText,
			res.PlateBox.Min.X, res.PlateBox.Min.Y,
			res.PlateBox.Max.X, res.PlateBox.Max.Y,
			res.Confidence, formatTime(res.Timestamp))

		if err != nil {
			return fmt.Errorf("error inserting result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing results: %w", err)
	}

	return nil
}

// FinishRun records the end of a run with its final counters
func (db *DB) FinishRun(ctx context.Context, runID string, stats alpr.Stats) error {

	res, err := db.ExecContext(ctx, `
		UPDATE runs SET
			finished_at = ?, total_frames = ?, vehicles_detected = ?,
			plates_detected = ?, plates_read = ?, unique_vehicles = ?
		WHERE run_id = ?`,
		formatTime(time.Now()), stats.TotalFrames, stats.VehiclesDetected,
		stats.PlatesDetected, stats.PlatesRead, stats.UniqueVehicles, runID)

	if err != nil {
		return fmt.Errorf("error finishing run: %w", err)
	}

	n, err := res.RowsAffected()

	if err != nil {
		return fmt.Errorf("error finishing run: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}

	return nil
}

// GetRun returns the run with the given ID
func (db *DB) GetRun(ctx context.Context, runID string) (Run, error) {

	var (
		run        Run
		startedAt  string
		finishedAt sql.NullString
	)

	err := db.QueryRowContext(ctx, `
		SELECT run_id, video, started_at, finished_at, total_frames,
			vehicles_detected, plates_detected, plates_read, unique_vehicles
		FROM runs WHERE run_id = ?`, runID).Scan(
		&run.ID, &run.Video, &startedAt, &finishedAt, &run.Stats.TotalFrames,
		&run.Stats.VehiclesDetected, &run.Stats.PlatesDetected,
		&run.Stats.PlatesRead, &run.Stats.UniqueVehicles)

	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}

	if err != nil {
		return Run{}, fmt.Errorf("error reading run: %w", err)
	}

	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return Run{}, err
	}

	if finishedAt.Valid {
		t, err := parseTime(finishedAt.String)

		if err != nil {
			return Run{}, err
		}

		run.FinishedAt = &t
	}

	return run, nil
}

// PlatesForRun returns the highest confidence reading of each vehicle in the
// run ordered by vehicle ID.  Equal confidences resolve to the earliest frame
func (db *DB) PlatesForRun(ctx context.Context, runID string) ([]PlateRecord, error) {

	rows, err := db.QueryContext(ctx, `
		SELECT vehicle_id, plate_text, confidence, first_frame, last_frame
		FROM (
			SELECT vehicle_id, plate_text, confidence,
				MIN(frame_number) OVER (PARTITION BY vehicle_id) AS first_frame,
				MAX(frame_number) OVER (PARTITION BY vehicle_id) AS last_frame,
				ROW_NUMBER() OVER (
					PARTITION BY vehicle_id
					ORDER BY confidence DESC, frame_number ASC
				) AS rn
			FROM detections
			WHERE run_id = ?
		)
		WHERE rn = 1
		ORDER BY vehicle_id`, runID)

	if err != nil {
		return nil, fmt.Errorf("error querying plates: %w", err)
	}

	defer rows.Close()

	plates := make([]PlateRecord, 0)

	for rows.Next() {
		var p PlateRecord

		if err := rows.Scan(&p.VehicleID, &p.PlateText, &p.Confidence,
			&p.FirstFrame, &p.LastFrame); err != nil {
			return nil, fmt.Errorf("error scanning plate: %w", err)
		}

		plates = append(plates, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plates: %w", err)
	}

	return plates, nil
}

// ResultsForRun returns all stored results of the run in frame order
func (db *DB) ResultsForRun(ctx context.Context, runID string) ([]alpr.Result, error) {

	rows, err := db.QueryContext(ctx, `
		SELECT frame_number, vehicle_id,
			vehicle_x1, vehicle_y1, vehicle_x2, vehicle_y2,
			plate_text, plate_x1, plate_y1, plate_x2, plate_y2,
			confidence, timestamp
		FROM detections
		WHERE run_id = ?
		ORDER BY frame_number, vehicle_id`, runID)

	if err != nil {
		return nil, fmt.Errorf("error querying results: %w", err)
	}

	defer rows.Close()

	results := make([]alpr.Result, 0)

	for rows.Next() {
		var (
			res    alpr.Result
			vb, pb image.Rectangle
			ts     string
		)

		if err := rows.Scan(&res.FrameNumber, &res.VehicleID,
			&vb.Min.X, &vb.Min.Y, &vb.Max.X, &vb.Max.Y,
			&res.PlateText, &pb.Min.X, &pb.Min.Y, &pb.Max.X, &pb.Max.Y,
			&res.Confidence, &ts); err != nil {
			return nil, fmt.Errorf("error scanning result: %w", err)
		}

		if res.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}

		res.VehicleBox = vb
		res.PlateBox = pb
		results = append(results, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}

	return results, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)

	if err != nil {
		return time.Time{}, fmt.Errorf("error parsing time %q: %w", s, err)
	}

	return t, nil
}
