package video

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/worksim-assessor/internal/ai"
	"github.com/spigell/worksim-assessor/internal/detached"
	"github.com/spigell/worksim-assessor/internal/embedding"
	"github.com/spigell/worksim-assessor/internal/logger"
	"github.com/spigell/worksim-assessor/internal/retry"
	"github.com/spigell/worksim-assessor/internal/rubric"
	"github.com/spigell/worksim-assessor/internal/store"
	"github.com/spigell/worksim-assessor/internal/utils"
)

const (
	defaultMaxLogLength    = 500
	maxFailureReasonLength = 1000
	defaultMIMEType        = "video/mp4"
)

var (
	// ErrRetryLimitReached is returned by Retry once an assessment failed MaxRetries times.
	ErrRetryLimitReached = errors.New("retry limit reached, use force retry")
	// ErrNotRetriable is returned by Retry for assessments that are not FAILED.
	ErrNotRetriable = errors.New("assessment is not in a retriable state")
	// ErrRetryRequired is returned by Trigger for FAILED assessments.
	ErrRetryRequired = errors.New("assessment failed, use retry")

	errEmptyModelResponse = errors.New("model returned an empty response")
)

// EmbeddingTrigger asks the embedding collaborator to index a completed assessment.
type EmbeddingTrigger interface {
	Trigger(ctx context.Context, assessmentID string) error
}

// Config tunes the pipeline.
type Config struct {
	Retry             retry.Policy
	DefaultRoleFamily string
	MIMEType          string
	MaxLogLength      int
}

// Deps are the collaborators of the pipeline. Store, Rubrics and Model are required.
type Deps struct {
	Store      store.Store
	Rubrics    rubric.Loader
	Model      ai.VideoEvaluator
	Embeddings EmbeddingTrigger
	Tasks      *detached.Runner
	Logger     *zap.Logger
}

// Pipeline drives an assessment through PENDING, PROCESSING and COMPLETED or FAILED.
type Pipeline struct {
	*Reader

	model      ai.VideoEvaluator
	embeddings EmbeddingTrigger
	tasks      *detached.Runner
	retry      retry.Policy
	mimeType   string
	maxLogLen  int
	now        func() time.Time
}

func NewPipeline(cfg Config, deps Deps) (*Pipeline, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Rubrics == nil {
		return nil, fmt.Errorf("rubric loader is required")
	}
	if deps.Model == nil {
		return nil, fmt.Errorf("video evaluator is required")
	}

	reader := NewReader(deps.Store, deps.Rubrics, cfg.DefaultRoleFamily, deps.Logger)
	p := &Pipeline{
		Reader:     reader,
		model:      deps.Model,
		embeddings: deps.Embeddings,
		tasks:      deps.Tasks,
		retry:      cfg.Retry,
		mimeType:   cfg.MIMEType,
		maxLogLen:  cfg.MaxLogLength,
		now:        time.Now,
	}
	if p.embeddings == nil {
		p.embeddings = embedding.Noop{Logger: reader.logger}
	}
	if p.tasks == nil {
		p.tasks = detached.NewRunner(reader.logger, 0)
	}
	if p.retry.MaxAttempts == 0 {
		p.retry = retry.Default()
	}
	if p.mimeType == "" {
		p.mimeType = defaultMIMEType
	}
	if p.maxLogLen <= 0 {
		p.maxLogLen = defaultMaxLogLength
	}
	return p, nil
}

// Trigger evaluates the assessment if it is PENDING, creating it when missing.
// PROCESSING and COMPLETED assessments are left alone; FAILED ones need Retry.
// An evaluation failure is recorded on the assessment and also returned.
func (p *Pipeline) Trigger(ctx context.Context, req Request) (*TriggerResult, error) {
	id := strings.TrimSpace(req.AssessmentID)
	if id == "" {
		return nil, fmt.Errorf("assessment id is required")
	}
	req.AssessmentID = id

	a, created, err := p.store.CreateIfMissing(ctx, &store.Assessment{
		ID:         id,
		VideoURL:   strings.TrimSpace(req.VideoURL),
		RoleFamily: req.RoleFamily,
	})
	if err != nil {
		return nil, fmt.Errorf("load assessment: %w", err)
	}

	log := logger.WithAssessment(p.logger, id, a.RoleFamily)
	if created {
		log.Info("assessment created")
	}

	switch a.Status {
	case store.StatusProcessing, store.StatusCompleted:
		log.Info("evaluation skipped", zap.String("status", string(a.Status)))
		return &TriggerResult{AssessmentID: id, Status: a.Status}, nil
	case store.StatusFailed:
		return nil, fmt.Errorf("assessment %s: %w", id, ErrRetryRequired)
	}

	return p.start(ctx, a, req)
}

// Retry re-runs a FAILED assessment whose retry count is below MaxRetries.
func (p *Pipeline) Retry(ctx context.Context, req Request) (*TriggerResult, error) {
	a, err := p.store.Get(ctx, req.AssessmentID)
	if err != nil {
		return nil, err
	}
	if a.Status != store.StatusFailed {
		return nil, fmt.Errorf("assessment %s is %s: %w", a.ID, a.Status, ErrNotRetriable)
	}
	if a.RetryCount >= MaxRetries {
		return nil, fmt.Errorf("assessment %s failed %d times: %w", a.ID, a.RetryCount, ErrRetryLimitReached)
	}

	ok, err := p.store.Transition(ctx, a.ID, []store.Status{store.StatusFailed}, store.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("schedule retry: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("assessment %s changed state: %w", a.ID, ErrNotRetriable)
	}
	a.Status = store.StatusPending

	logger.WithAssessment(p.logger, a.ID, a.RoleFamily).Info("retry scheduled", zap.Int("retry_count", a.RetryCount))
	return p.start(ctx, a, req)
}

// ForceRetry resets the retry count and failure reason whatever the current state
// and evaluates the assessment again.
func (p *Pipeline) ForceRetry(ctx context.Context, req Request) (*TriggerResult, error) {
	before, err := p.store.Get(ctx, req.AssessmentID)
	if err != nil {
		return nil, err
	}

	a, err := p.store.Reset(ctx, before.ID)
	if err != nil {
		return nil, fmt.Errorf("reset assessment: %w", err)
	}

	logger.WithAssessment(p.logger, a.ID, a.RoleFamily).Warn("force retry, retry count reset",
		zap.String("previous_status", string(before.Status)),
		zap.Int("previous_retry_count", before.RetryCount),
	)
	return p.start(ctx, a, req)
}

// Wait blocks until detached work started by the pipeline finished.
func (p *Pipeline) Wait() {
	p.tasks.Wait()
}

func (p *Pipeline) start(ctx context.Context, a *store.Assessment, req Request) (*TriggerResult, error) {
	ok, err := p.store.Transition(ctx, a.ID, []store.Status{store.StatusPending}, store.StatusProcessing)
	if err != nil {
		return nil, fmt.Errorf("start evaluation: %w", err)
	}
	if !ok {
		current, err := p.store.Get(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		logger.WithAssessment(p.logger, a.ID, current.RoleFamily).
			Info("evaluation already claimed", zap.String("status", string(current.Status)))
		return &TriggerResult{AssessmentID: a.ID, Status: current.Status}, nil
	}

	req.AssessmentID = a.ID
	if strings.TrimSpace(req.VideoURL) == "" {
		req.VideoURL = a.VideoURL
	}
	if strings.TrimSpace(req.RoleFamily) == "" {
		req.RoleFamily = a.RoleFamily
	}

	if err := p.evaluate(ctx, req); err != nil {
		return &TriggerResult{AssessmentID: a.ID, Status: store.StatusFailed, Evaluated: true}, err
	}
	return &TriggerResult{AssessmentID: a.ID, Status: store.StatusCompleted, Evaluated: true}, nil
}

func (p *Pipeline) evaluate(ctx context.Context, req Request) error {
	log := logger.WithFields(
		logger.WithAssessment(p.logger, req.AssessmentID, req.RoleFamily),
		logger.CommonFields("gemini", p.model.Model())...,
	)
	started := p.now()
	log.Info("video evaluation started")

	result, err := p.run(ctx, req, log)
	if err != nil {
		p.fail(ctx, req.AssessmentID, err, log)
		return err
	}

	log.Info("video evaluation completed",
		zap.Float64("overall_score", result.OverallScore),
		zap.Int("dimensions", len(result.Dimensions)),
		zap.Duration("elapsed", p.now().Sub(started)),
	)

	id := req.AssessmentID
	p.tasks.Go(ctx, "embedding", func(ctx context.Context) error {
		return p.embeddings.Trigger(ctx, id)
	}, zap.String(logger.FieldAssessmentID, id))
	return nil
}

func (p *Pipeline) run(ctx context.Context, req Request, log *zap.Logger) (*RubricAssessment, error) {
	if strings.TrimSpace(req.VideoURL) == "" {
		return nil, fmt.Errorf("video url is required")
	}

	r, err := p.loadRubric(ctx, req.RoleFamily, log)
	if err != nil {
		return nil, err
	}
	prompt := buildPrompt(r, req.Context)

	mime := req.MIMEType
	if mime == "" {
		mime = p.mimeType
	}
	video := ai.Video{URI: req.VideoURL, MIMEType: mime}

	policy := p.retry.WithObserver(func(attempt int, err error, delay time.Duration) {
		log.Warn("model call failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	})
	raw, err := retry.Do(ctx, policy, func(ctx context.Context) (string, error) {
		text, err := p.model.EvaluateVideo(ctx, video, prompt)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			return "", errEmptyModelResponse
		}
		return text, nil
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate video: %w", err)
	}
	log.Debug("model response received", zap.String("response_preview", utils.PreviewForLog(raw, p.maxLogLen)))

	parsed, err := ParseResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse model response: %w", err)
	}
	parsed.RoleFamily = r.RoleFamily
	parsed.Enrich(r)

	rows := dimensionRows(parsed)
	if skipped := len(parsed.Dimensions) - len(rows); skipped > 0 {
		log.Info("dimensions without evidence not stored", zap.Int("skipped", skipped))
	}

	summary := store.Summary{
		OverallScore:      parsed.OverallScore,
		OverallSummary:    parsed.OverallSummary,
		EvaluationVersion: parsed.EvaluationVersion,
		RawResponse:       raw,
	}
	if err := p.store.Complete(ctx, req.AssessmentID, rows, summary, p.now()); err != nil {
		return nil, fmt.Errorf("persist evaluation: %w", err)
	}
	return parsed, nil
}

func (p *Pipeline) fail(ctx context.Context, id string, cause error, log *zap.Logger) {
	reason := utils.TruncateForLog(cause.Error(), maxFailureReasonLength)

	a, err := p.store.MarkFailed(context.WithoutCancel(ctx), id, reason)
	if err != nil {
		log.Error("recording evaluation failure failed", zap.Error(err), zap.NamedError("cause", cause))
		return
	}

	log.Warn("video evaluation failed", zap.Int("retry_count", a.RetryCount), zap.Error(cause))
	if a.RetryCount >= MaxRetries {
		log.Error("admin intervention required",
			zap.Int("retry_count", a.RetryCount),
			zap.String("last_failure_reason", reason),
		)
	}
}

func dimensionRows(a *RubricAssessment) []store.DimensionScore {
	out := make([]store.DimensionScore, 0, len(a.Dimensions))
	for _, d := range a.Dimensions {
		if d.Score == nil {
			continue
		}
		out = append(out, store.DimensionScore{
			Dimension:    d.Slug,
			Score:        *d.Score,
			Confidence:   string(d.Confidence.Level),
			Evidence:     evidenceText(d.Behaviors),
			Timestamps:   d.Timestamps,
			TrainableGap: d.TrainableGap,
			Rationale:    d.Rationale,
		})
	}
	return out
}

func evidenceText(behaviors []BehaviorEvidence) string {
	lines := make([]string, 0, len(behaviors))
	for _, b := range behaviors {
		if b.Timestamp == "" {
			lines = append(lines, b.Behavior)
			continue
		}
		lines = append(lines, "["+b.Timestamp+"] "+b.Behavior)
	}
	return strings.Join(lines, "\n")
}
