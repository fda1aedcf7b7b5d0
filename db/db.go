// Package db implements the diagnosis store on PostgreSQL. The full
// Diagnosis record is serialized to a JSONB payload; the columns that
// queries filter or sort on (url, status, score, grade, created_at)
// are kept alongside it.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/llmo-checker/backend/diagnosis"
	"github.com/llmo-checker/backend/evaluation"
)

// DB wraps the database connection and provides data access methods.
type DB struct {
	conn *sql.DB
}

// Config contains database configuration.
type Config struct {
	DSN string // PostgreSQL connection string
}

// New creates a new database connection and runs pending migrations.
func New(config Config) (*DB, error) {
	conn, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := Migrate(conn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection for health checks.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

var _ diagnosis.Store = (*DB)(nil)

// Save persists a diagnosis record and returns its ID. Records are
// never updated in place: a re-run inserts a new row and the old one
// simply ages out of the cache window.
func (db *DB) Save(ctx context.Context, d *diagnosis.Diagnosis) (string, error) {
	payload, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("failed to marshal diagnosis: %w", err)
	}

	query := `
		INSERT INTO diagnoses (id, url, status, overall_score, grade, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = db.conn.ExecContext(ctx, query,
		d.ID,
		d.URL,
		string(d.Status),
		d.OverallScore,
		string(d.Grade),
		payload,
		d.Timestamp,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save diagnosis: %w", err)
	}

	return d.ID, nil
}

// FindRecent returns the newest completed diagnosis for url within
// maxAge, or nil when none exists.
func (db *DB) FindRecent(ctx context.Context, url string, maxAge time.Duration) (*diagnosis.Diagnosis, error) {
	query := `
		SELECT payload FROM diagnoses
		WHERE url = $1 AND status = $2 AND created_at > $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	cutoff := time.Now().Add(-maxAge)

	var payload []byte
	err := db.conn.QueryRowContext(ctx, query, url, string(diagnosis.StatusCompleted), cutoff).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query recent diagnosis: %w", err)
	}

	var d diagnosis.Diagnosis
	if err := json.Unmarshal(payload, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal diagnosis: %w", err)
	}

	return &d, nil
}

// GetByID retrieves a diagnosis by its ID, or nil when not found.
func (db *DB) GetByID(ctx context.Context, id string) (*diagnosis.Diagnosis, error) {
	var payload []byte
	err := db.conn.QueryRowContext(ctx, "SELECT payload FROM diagnoses WHERE id = $1", id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query diagnosis: %w", err)
	}

	var d diagnosis.Diagnosis
	if err := json.Unmarshal(payload, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal diagnosis: %w", err)
	}

	return &d, nil
}

// UpdateProgress upserts the in-flight stage for a diagnosis run.
func (db *DB) UpdateProgress(ctx context.Context, diagnosisID, stage string, percent int) error {
	query := `
		INSERT INTO diagnosis_progress (diagnosis_id, stage, percent, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT(diagnosis_id) DO UPDATE SET
			stage = excluded.stage,
			percent = excluded.percent,
			updated_at = excluded.updated_at
	`

	_, err := db.conn.ExecContext(ctx, query, diagnosisID, stage, percent, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}

	return nil
}

// GetProgress returns the latest progress for a run, or nil when the
// run is unknown.
func (db *DB) GetProgress(ctx context.Context, diagnosisID string) (*diagnosis.Progress, error) {
	var p diagnosis.Progress
	query := "SELECT diagnosis_id, stage, percent, updated_at FROM diagnosis_progress WHERE diagnosis_id = $1"

	err := db.conn.QueryRowContext(ctx, query, diagnosisID).Scan(&p.DiagnosisID, &p.Stage, &p.Percent, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}

	return &p, nil
}

// History returns past diagnoses for a URL, newest first. An empty url
// returns history across all URLs.
func (db *DB) History(ctx context.Context, url string, limit int) ([]diagnosis.HistoryItem, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, url, overall_score, grade, created_at, status FROM diagnoses
		WHERE ($1 = '' OR url = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := db.conn.QueryContext(ctx, query, url, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	items := []diagnosis.HistoryItem{}
	for rows.Next() {
		var (
			item   diagnosis.HistoryItem
			grade  string
			status string
		)
		if err := rows.Scan(&item.ID, &item.URL, &item.OverallScore, &grade, &item.Timestamp, &status); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		item.Grade = evaluation.Grade(grade)
		item.Status = diagnosis.Status(status)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return items, nil
}

// Statistics aggregates completed diagnoses created within the window.
func (db *DB) Statistics(ctx context.Context, since time.Duration) (*diagnosis.Statistics, error) {
	cutoff := time.Now().Add(-since)

	stats := &diagnosis.Statistics{
		GradeDistribution: make(map[string]int),
	}

	query := `
		SELECT COUNT(*), COALESCE(AVG(overall_score), 0) FROM diagnoses
		WHERE status = $1 AND created_at > $2
	`
	err := db.conn.QueryRowContext(ctx, query, string(diagnosis.StatusCompleted), cutoff).
		Scan(&stats.TotalDiagnoses, &stats.AverageScore)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate diagnoses: %w", err)
	}

	gradeQuery := `
		SELECT grade, COUNT(*) FROM diagnoses
		WHERE status = $1 AND created_at > $2
		GROUP BY grade
	`
	rows, err := db.conn.QueryContext(ctx, gradeQuery, string(diagnosis.StatusCompleted), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query grade distribution: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			grade string
			count int
		)
		if err := rows.Scan(&grade, &count); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		stats.GradeDistribution[grade] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return stats, nil
}
