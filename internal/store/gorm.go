package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Gorm is the postgres-backed Store.
type Gorm struct {
	db     *gorm.DB
	logger *zap.Logger
}

// OpenPostgres connects to dsn and returns a Gorm store.
func OpenPostgres(dsn string, logger *zap.Logger) (*Gorm, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewGorm(db, logger), nil
}

func NewGorm(db *gorm.DB, logger *zap.Logger) *Gorm {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gorm{db: db, logger: logger.Named("store")}
}

// Migrate creates or updates the tables used by the store.
func (g *Gorm) Migrate(ctx context.Context) error {
	if err := g.db.WithContext(ctx).AutoMigrate(
		&videoAssessmentModel{},
		&dimensionScoreModel{},
		&assessmentSummaryModel{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (g *Gorm) Get(ctx context.Context, id string) (*Assessment, error) {
	var m videoAssessmentModel
	if err := g.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("assessment %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get assessment %s: %w", id, err)
	}
	return m.toAssessment(), nil
}

func (g *Gorm) CreateIfMissing(ctx context.Context, a *Assessment) (*Assessment, bool, error) {
	if a == nil || a.ID == "" {
		return nil, false, fmt.Errorf("assessment id is required")
	}

	m := videoAssessmentModel{
		ID:         a.ID,
		VideoURL:   a.VideoURL,
		RoleFamily: a.RoleFamily,
		Status:     string(StatusPending),
	}
	res := g.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&m)
	if res.Error != nil {
		return nil, false, fmt.Errorf("create assessment %s: %w", a.ID, res.Error)
	}

	stored, err := g.Get(ctx, a.ID)
	if err != nil {
		return nil, false, err
	}
	return stored, res.RowsAffected == 1, nil
}

func (g *Gorm) Transition(ctx context.Context, id string, from []Status, to Status) (bool, error) {
	res := g.db.WithContext(ctx).
		Model(&videoAssessmentModel{}).
		Where("id = ? AND status IN ?", id, statusStrings(from)).
		Update("status", string(to))
	if res.Error != nil {
		return false, fmt.Errorf("transition assessment %s to %s: %w", id, to, res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := g.Get(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (g *Gorm) MarkFailed(ctx context.Context, id, reason string) (*Assessment, error) {
	var out *Assessment
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&videoAssessmentModel{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"status":              string(StatusFailed),
				"retry_count":         gorm.Expr("retry_count + 1"),
				"last_failure_reason": reason,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("assessment %s: %w", id, ErrNotFound)
		}

		var m videoAssessmentModel
		if err := tx.Where("id = ?", id).First(&m).Error; err != nil {
			return err
		}
		out = m.toAssessment()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mark assessment %s failed: %w", id, err)
	}
	return out, nil
}

func (g *Gorm) Reset(ctx context.Context, id string) (*Assessment, error) {
	res := g.db.WithContext(ctx).
		Model(&videoAssessmentModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":              string(StatusPending),
			"retry_count":         0,
			"last_failure_reason": "",
		})
	if res.Error != nil {
		return nil, fmt.Errorf("reset assessment %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("assessment %s: %w", id, ErrNotFound)
	}
	return g.Get(ctx, id)
}

func (g *Gorm) Complete(ctx context.Context, id string, dims []DimensionScore, summary Summary, completedAt time.Time) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range dims {
			row, err := newDimensionRow(id, d)
			if err != nil {
				return err
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "assessment_id"}, {Name: "dimension"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"score", "confidence", "evidence", "timestamps", "trainable_gap", "rationale", "updated_at",
				}),
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("upsert dimension %s: %w", d.Dimension, err)
			}
		}

		s := assessmentSummaryModel{
			ID:                uuid.New(),
			AssessmentID:      id,
			OverallScore:      summary.OverallScore,
			OverallSummary:    summary.OverallSummary,
			EvaluationVersion: summary.EvaluationVersion,
			RawResponse:       summary.RawResponse,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "assessment_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"overall_score", "overall_summary", "evaluation_version", "raw_response", "updated_at",
			}),
		}).Create(&s).Error; err != nil {
			return fmt.Errorf("upsert summary: %w", err)
		}

		res := tx.Model(&videoAssessmentModel{}).
			Where("id = ? AND status = ?", id, string(StatusProcessing)).
			Updates(map[string]any{
				"status":              string(StatusCompleted),
				"completed_at":        completedAt,
				"last_failure_reason": "",
			})
		if res.Error != nil {
			return fmt.Errorf("mark completed: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrStatusConflict
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("complete assessment %s: %w", id, err)
	}

	g.logger.Debug("assessment completed",
		zap.String("assessment_id", id),
		zap.Int("dimensions", len(dims)),
	)
	return nil
}

func (g *Gorm) Dimensions(ctx context.Context, id string) ([]DimensionScore, error) {
	var rows []dimensionScoreModel
	if err := g.db.WithContext(ctx).
		Where("assessment_id = ?", id).
		Order("dimension ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list dimensions for %s: %w", id, err)
	}

	out := make([]DimensionScore, 0, len(rows))
	for _, r := range rows {
		var timestamps []string
		if len(r.Timestamps) > 0 {
			if err := json.Unmarshal(r.Timestamps, &timestamps); err != nil {
				g.logger.Warn("dimension timestamps unreadable",
					zap.String("assessment_id", id),
					zap.String("dimension", r.Dimension),
					zap.Error(err),
				)
			}
		}
		out = append(out, DimensionScore{
			AssessmentID: r.AssessmentID,
			Dimension:    r.Dimension,
			Score:        r.Score,
			Confidence:   r.Confidence,
			Evidence:     r.Evidence,
			Timestamps:   timestamps,
			TrainableGap: r.TrainableGap,
			Rationale:    r.Rationale,
		})
	}
	return out, nil
}

func (g *Gorm) Summary(ctx context.Context, id string) (*Summary, error) {
	var m assessmentSummaryModel
	if err := g.db.WithContext(ctx).Where("assessment_id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("summary for %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get summary for %s: %w", id, err)
	}
	return &Summary{
		AssessmentID:      m.AssessmentID,
		OverallScore:      m.OverallScore,
		OverallSummary:    m.OverallSummary,
		EvaluationVersion: m.EvaluationVersion,
		RawResponse:       m.RawResponse,
	}, nil
}

func newDimensionRow(id string, d DimensionScore) (dimensionScoreModel, error) {
	timestamps := d.Timestamps
	if timestamps == nil {
		timestamps = []string{}
	}
	encoded, err := json.Marshal(timestamps)
	if err != nil {
		return dimensionScoreModel{}, fmt.Errorf("encode timestamps for %s: %w", d.Dimension, err)
	}
	return dimensionScoreModel{
		ID:           uuid.New(),
		AssessmentID: id,
		Dimension:    d.Dimension,
		Score:        d.Score,
		Confidence:   d.Confidence,
		Evidence:     d.Evidence,
		Timestamps:   datatypes.JSON(encoded),
		TrainableGap: d.TrainableGap,
		Rationale:    d.Rationale,
	}, nil
}

func statusStrings(list []Status) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, string(s))
	}
	return out
}
