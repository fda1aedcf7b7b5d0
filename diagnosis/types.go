// Package diagnosis orchestrates the full pipeline for one URL:
// normalize, cache check, fetch, extract, score, aggregate, fuse,
// persist. It owns the Diagnosis record and the store contract.
package diagnosis

import (
	"context"
	"fmt"
	"time"

	"github.com/llmo-checker/backend/crawler"
	"github.com/llmo-checker/backend/evaluation"
	"github.com/llmo-checker/backend/gemini"
	"github.com/llmo-checker/backend/parser"
)

// Status marks whether a pipeline run completed.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Diagnosis is the persisted unit: one completed (or failed) pipeline
// run for a normalized URL. Immutable after creation; a re-run after
// the cache window supersedes it with a new record.
type Diagnosis struct {
	ID           string                   `json:"id"`
	URL          string                   `json:"url"`
	Timestamp    time.Time                `json:"timestamp"`
	Status       Status                   `json:"status"`
	ErrorMessage string                   `json:"errorMessage,omitempty"`
	Metadata     parser.PageMetadata      `json:"metadata"`
	Signals      crawler.TechnicalSignals `json:"technicalSignals"`
	Content      parser.ContentAnalysis   `json:"contentAnalysis"`
	Evaluations  []evaluation.Result      `json:"evaluations"`
	OverallScore float64                  `json:"overallScore"`
	Grade        evaluation.Grade         `json:"grade"`
	AIAnalysis   *gemini.AIAnalysis       `json:"aiAnalysis,omitempty"`

	// FromCache is set on responses served from a prior run; it is not
	// part of the persisted record.
	FromCache bool `json:"fromCache,omitempty"`
}

// HistoryItem is a compact view of a past diagnosis for one URL.
type HistoryItem struct {
	ID           string           `json:"id"`
	URL          string           `json:"url"`
	OverallScore float64          `json:"overallScore"`
	Grade        evaluation.Grade `json:"grade"`
	Timestamp    time.Time        `json:"timestamp"`
	Status       Status           `json:"status"`
}

// Statistics summarizes stored diagnoses over a period.
type Statistics struct {
	TotalDiagnoses    int            `json:"totalDiagnoses"`
	AverageScore      float64        `json:"averageScore"`
	GradeDistribution map[string]int `json:"gradeDistribution"`
}

// Progress is the side-channel state of an in-flight run.
type Progress struct {
	DiagnosisID string    `json:"diagnosisId"`
	Stage       string    `json:"stage"`
	Percent     int       `json:"percent"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Store is the persistence contract the pipeline consumes. A cache hit
// from FindRecent short-circuits the whole pipeline and must be
// structurally identical to a live run's record.
type Store interface {
	FindRecent(ctx context.Context, url string, maxAge time.Duration) (*Diagnosis, error)
	Save(ctx context.Context, d *Diagnosis) (string, error)
	UpdateProgress(ctx context.Context, diagnosisID, stage string, percent int) error
	GetByID(ctx context.Context, id string) (*Diagnosis, error)
	GetProgress(ctx context.Context, diagnosisID string) (*Progress, error)
	History(ctx context.Context, url string, limit int) ([]HistoryItem, error)
	Statistics(ctx context.Context, since time.Duration) (*Statistics, error)
}

// PersistenceError wraps a failed store write. The computed Diagnosis
// is still returned to the caller alongside this error: the scoring
// work is not wasted just because the write failed.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist diagnosis: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
