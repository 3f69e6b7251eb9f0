package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type videoAssessmentModel struct {
	ID                string     `gorm:"column:id;type:varchar(64);primaryKey"`
	VideoURL          string     `gorm:"column:video_url;type:text;not null"`
	RoleFamily        string     `gorm:"column:role_family;type:varchar(64)"`
	Status            string     `gorm:"column:status;type:varchar(16);not null;default:PENDING;index"`
	RetryCount        int        `gorm:"column:retry_count;not null;default:0"`
	LastFailureReason string     `gorm:"column:last_failure_reason;type:text"`
	CompletedAt       *time.Time `gorm:"column:completed_at"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (videoAssessmentModel) TableName() string { return "video_assessments" }

type dimensionScoreModel struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	AssessmentID string         `gorm:"column:assessment_id;type:varchar(64);not null;uniqueIndex:idx_dimension_scores_assessment_dimension"`
	Dimension    string         `gorm:"column:dimension;type:varchar(64);not null;uniqueIndex:idx_dimension_scores_assessment_dimension"`
	Score        int            `gorm:"column:score;not null"`
	Confidence   string         `gorm:"column:confidence;type:varchar(16);not null"`
	Evidence     string         `gorm:"column:evidence;type:text"`
	Timestamps   datatypes.JSON `gorm:"column:timestamps;type:jsonb"`
	TrainableGap bool           `gorm:"column:trainable_gap;not null;default:false"`
	Rationale    string         `gorm:"column:rationale;type:text"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (dimensionScoreModel) TableName() string { return "video_assessment_scores" }

type assessmentSummaryModel struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	AssessmentID      string    `gorm:"column:assessment_id;type:varchar(64);not null;uniqueIndex"`
	OverallScore      float64   `gorm:"column:overall_score;not null"`
	OverallSummary    string    `gorm:"column:overall_summary;type:text"`
	EvaluationVersion string    `gorm:"column:evaluation_version;type:varchar(16)"`
	RawResponse       string    `gorm:"column:raw_response;type:text"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (assessmentSummaryModel) TableName() string { return "video_assessment_summaries" }

func (m videoAssessmentModel) toAssessment() *Assessment {
	return &Assessment{
		ID:                m.ID,
		VideoURL:          m.VideoURL,
		RoleFamily:        m.RoleFamily,
		Status:            Status(m.Status),
		RetryCount:        m.RetryCount,
		LastFailureReason: m.LastFailureReason,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
		CompletedAt:       m.CompletedAt,
	}
}
