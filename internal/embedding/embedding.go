// Package embedding asks the embedding collaborator to index a completed assessment.
package embedding

import (
	"context"

	"go.uber.org/zap"
)

// DefaultQueue receives embedding jobs when no queue is configured.
const DefaultQueue = "assessment_embeddings"

// Noop discards triggers. It is used when embeddings are disabled.
type Noop struct {
	Logger *zap.Logger
}

func (n Noop) Trigger(_ context.Context, assessmentID string) error {
	if n.Logger != nil {
		n.Logger.Debug("embedding disabled, trigger skipped", zap.String("assessment_id", assessmentID))
	}
	return nil
}
