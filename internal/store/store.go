// Package store persists video assessments, their per-dimension scores and summaries.
package store

import (
	"context"
	"errors"
	"time"
)

// Status is the video assessment lifecycle state.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

var (
	// ErrNotFound is returned when an assessment, summary or row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStatusConflict is returned when a write expects a status the record no longer has.
	ErrStatusConflict = errors.New("assessment status changed concurrently")
)

// Assessment is the persisted state of one video evaluation.
type Assessment struct {
	ID                string
	VideoURL          string
	RoleFamily        string
	Status            Status
	RetryCount        int
	LastFailureReason string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	CompletedAt       *time.Time
}

// DimensionScore is one evaluated rubric dimension. It is unique per (AssessmentID, Dimension).
type DimensionScore struct {
	AssessmentID string
	Dimension    string
	Score        int
	Confidence   string
	Evidence     string
	Timestamps   []string
	TrainableGap bool
	Rationale    string
}

// Summary is the one-to-one overall narrative of an assessment with the raw model answer kept for replay.
type Summary struct {
	AssessmentID      string
	OverallScore      float64
	OverallSummary    string
	EvaluationVersion string
	RawResponse       string
}

// Store is the persistence contract of the video evaluation pipeline.
type Store interface {
	// Get returns ErrNotFound when the assessment does not exist.
	Get(ctx context.Context, id string) (*Assessment, error)
	// CreateIfMissing inserts a as PENDING unless a record with the same id exists.
	// It returns the stored record and whether it was created.
	CreateIfMissing(ctx context.Context, a *Assessment) (*Assessment, bool, error)
	// Transition moves the assessment to `to` only when its current status is one of `from`.
	// It reports whether the transition happened.
	Transition(ctx context.Context, id string, from []Status, to Status) (bool, error)
	// MarkFailed sets FAILED, increments the retry count and records reason.
	MarkFailed(ctx context.Context, id, reason string) (*Assessment, error)
	// Reset unconditionally returns the assessment to PENDING with a zero retry count and no failure reason.
	Reset(ctx context.Context, id string) (*Assessment, error)
	// Complete upserts dimension rows and the summary and marks a PROCESSING assessment COMPLETED,
	// all in one transaction.
	Complete(ctx context.Context, id string, dims []DimensionScore, summary Summary, completedAt time.Time) error
	Dimensions(ctx context.Context, id string) ([]DimensionScore, error)
	// Summary returns ErrNotFound when no summary was written yet.
	Summary(ctx context.Context, id string) (*Summary, error)
}

func containsStatus(list []Status, s Status) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
