package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Memory is a Store kept in process memory. It is used by `store.driver: memory` and tests.
type Memory struct {
	mu          sync.Mutex
	now         func() time.Time
	assessments map[string]Assessment
	dimensions  map[string]map[string]DimensionScore
	summaries   map[string]Summary
}

func NewMemory() *Memory {
	return &Memory{
		now:         time.Now,
		assessments: make(map[string]Assessment),
		dimensions:  make(map[string]map[string]DimensionScore),
		summaries:   make(map[string]Summary),
	}
}

func (m *Memory) Get(_ context.Context, id string) (*Assessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assessments[id]
	if !ok {
		return nil, fmt.Errorf("assessment %s: %w", id, ErrNotFound)
	}
	return cloneAssessment(a), nil
}

func (m *Memory) CreateIfMissing(_ context.Context, a *Assessment) (*Assessment, bool, error) {
	if a == nil || a.ID == "" {
		return nil, false, fmt.Errorf("assessment id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.assessments[a.ID]; ok {
		return cloneAssessment(existing), false, nil
	}

	now := m.now()
	created := *a
	created.Status = StatusPending
	created.RetryCount = 0
	created.LastFailureReason = ""
	created.CompletedAt = nil
	created.CreatedAt = now
	created.UpdatedAt = now
	m.assessments[a.ID] = created
	return cloneAssessment(created), true, nil
}

func (m *Memory) Transition(_ context.Context, id string, from []Status, to Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assessments[id]
	if !ok {
		return false, fmt.Errorf("assessment %s: %w", id, ErrNotFound)
	}
	if !containsStatus(from, a.Status) {
		return false, nil
	}
	a.Status = to
	a.UpdatedAt = m.now()
	m.assessments[id] = a
	return true, nil
}

func (m *Memory) MarkFailed(_ context.Context, id, reason string) (*Assessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assessments[id]
	if !ok {
		return nil, fmt.Errorf("assessment %s: %w", id, ErrNotFound)
	}
	a.Status = StatusFailed
	a.RetryCount++
	a.LastFailureReason = reason
	a.UpdatedAt = m.now()
	m.assessments[id] = a
	return cloneAssessment(a), nil
}

func (m *Memory) Reset(_ context.Context, id string) (*Assessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assessments[id]
	if !ok {
		return nil, fmt.Errorf("assessment %s: %w", id, ErrNotFound)
	}
	a.Status = StatusPending
	a.RetryCount = 0
	a.LastFailureReason = ""
	a.UpdatedAt = m.now()
	m.assessments[id] = a
	return cloneAssessment(a), nil
}

func (m *Memory) Complete(_ context.Context, id string, dims []DimensionScore, summary Summary, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assessments[id]
	if !ok {
		return fmt.Errorf("assessment %s: %w", id, ErrNotFound)
	}
	if a.Status != StatusProcessing {
		return fmt.Errorf("complete assessment %s in status %s: %w", id, a.Status, ErrStatusConflict)
	}

	rows := m.dimensions[id]
	if rows == nil {
		rows = make(map[string]DimensionScore, len(dims))
		m.dimensions[id] = rows
	}
	for _, d := range dims {
		d.AssessmentID = id
		d.Timestamps = append([]string(nil), d.Timestamps...)
		rows[d.Dimension] = d
	}

	summary.AssessmentID = id
	m.summaries[id] = summary

	at := completedAt
	a.Status = StatusCompleted
	a.CompletedAt = &at
	a.LastFailureReason = ""
	a.UpdatedAt = m.now()
	m.assessments[id] = a
	return nil
}

func (m *Memory) Dimensions(_ context.Context, id string) ([]DimensionScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.dimensions[id]
	out := make([]DimensionScore, 0, len(rows))
	for _, d := range rows {
		d.Timestamps = append([]string(nil), d.Timestamps...)
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Dimension < out[j].Dimension })
	return out, nil
}

func (m *Memory) Summary(_ context.Context, id string) (*Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.summaries[id]
	if !ok {
		return nil, fmt.Errorf("summary for %s: %w", id, ErrNotFound)
	}
	return &s, nil
}

func cloneAssessment(a Assessment) *Assessment {
	if a.CompletedAt != nil {
		at := *a.CompletedAt
		a.CompletedAt = &at
	}
	return &a
}
