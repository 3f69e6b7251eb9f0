package video

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/worksim-assessor/internal/logger"
	"github.com/spigell/worksim-assessor/internal/rubric"
	"github.com/spigell/worksim-assessor/internal/store"
)

// Reader serves the read-only status and results queries.
type Reader struct {
	store         store.Store
	rubrics       rubric.Loader
	defaultFamily string
	logger        *zap.Logger
}

// NewReader creates a Reader. An empty defaultRoleFamily uses rubric.DefaultRoleFamily.
func NewReader(st store.Store, rubrics rubric.Loader, defaultRoleFamily string, l *zap.Logger) *Reader {
	family := rubric.NormalizeRoleFamily(defaultRoleFamily)
	if family == "" {
		family = rubric.DefaultRoleFamily
	}
	return &Reader{
		store:         st,
		rubrics:       rubrics,
		defaultFamily: family,
		logger:        logger.OrNop(l).Named("video"),
	}
}

// Status returns the status query surface of an assessment.
func (r *Reader) Status(ctx context.Context, id string) (*StatusView, error) {
	a, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := statusView(a)
	return &view, nil
}

// Results returns the stored evaluation of an assessment. Scores and summary are
// empty until the assessment is COMPLETED.
func (r *Reader) Results(ctx context.Context, id string) (*Results, error) {
	a, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &Results{StatusView: statusView(a), Dimensions: []DimensionView{}}
	if a.Status != store.StatusCompleted {
		return out, nil
	}

	summary, err := r.store.Summary(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if summary != nil {
		out.OverallScore = summary.OverallScore
		out.OverallSummary = summary.OverallSummary
		out.EvaluationVersion = summary.EvaluationVersion
	}

	rows, err := r.store.Dimensions(ctx, id)
	if err != nil {
		return nil, err
	}

	lookup := map[string]rubric.Dimension{}
	if rb, err := r.loadRubric(ctx, a.RoleFamily, logger.WithAssessment(r.logger, id, a.RoleFamily)); err == nil {
		lookup = rb.Lookup()
	}
	for _, row := range rows {
		name := row.Dimension
		if meta, ok := lookup[normalizeKey(row.Dimension)]; ok && meta.Name != "" {
			name = meta.Name
		}
		timestamps := row.Timestamps
		if timestamps == nil {
			timestamps = []string{}
		}
		out.Dimensions = append(out.Dimensions, DimensionView{
			Dimension:    row.Dimension,
			Name:         name,
			Score:        row.Score,
			Confidence:   row.Confidence,
			Evidence:     row.Evidence,
			Timestamps:   timestamps,
			TrainableGap: row.TrainableGap,
			Rationale:    row.Rationale,
		})
	}
	return out, nil
}

func (r *Reader) loadRubric(ctx context.Context, roleFamily string, log *zap.Logger) (*rubric.Rubric, error) {
	family := rubric.NormalizeRoleFamily(roleFamily)
	if family == "" {
		family = r.defaultFamily
	}

	rb, err := r.rubrics.Load(ctx, family)
	if err == nil {
		return rb, nil
	}
	if family == r.defaultFamily {
		return nil, fmt.Errorf("load rubric %s: %w", family, err)
	}

	log.Warn("rubric unavailable, using default",
		zap.String("requested", family),
		zap.String("default", r.defaultFamily),
		zap.Error(err),
	)
	rb, err = r.rubrics.Load(ctx, r.defaultFamily)
	if err != nil {
		return nil, fmt.Errorf("load default rubric %s: %w", r.defaultFamily, err)
	}
	return rb, nil
}

func statusView(a *store.Assessment) StatusView {
	return StatusView{
		AssessmentID:      a.ID,
		Status:            a.Status,
		RetryCount:        a.RetryCount,
		LastFailureReason: a.LastFailureReason,
		CompletedAt:       a.CompletedAt,
		CanRetry:          a.Status == store.StatusFailed && a.RetryCount < MaxRetries,
		NeedsIntervention: a.Status == store.StatusFailed && a.RetryCount >= MaxRetries,
	}
}
