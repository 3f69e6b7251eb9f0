package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/worksim-assessor/internal/video"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate-video <assessment-id>",
	Short: "Evaluate the session recording of an assessment against its rubric",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		evaluate(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringP("video-url", "u", "", "recording reference passed to the model (e.g. gs:// or files API uri)")
	evaluateCmd.Flags().StringP("role-family", "r", "", "rubric role family (default rubrics.default-role-family)")
	evaluateCmd.Flags().String("mime-type", "", "recording mime type (default ai.gemini.video-mime-type)")
	evaluateCmd.Flags().Int("duration", 0, "recording length in seconds")
	evaluateCmd.Flags().String("task", "", "task description given to the candidate")
	evaluateCmd.Flags().StringSlice("expected-outcome", nil, "expected outcome of the task, repeatable")
}

func evaluate(cmd *cobra.Command, id string) {
	ctx := context.Background()
	logger, config := setup(cmd.Name())

	pipeline, shutdown, err := newPipeline(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the video pipeline", zap.Error(err))
	}
	defer shutdown()

	res, err := pipeline.Trigger(ctx, videoRequest(cmd, id))
	if err != nil {
		shutdown()
		logger.Fatal("evaluating video", zap.String("assessment_id", id), zap.Error(err))
	}

	logger.Info("evaluation finished",
		zap.String("assessment_id", res.AssessmentID),
		zap.String("status", string(res.Status)),
		zap.Bool("evaluated", res.Evaluated),
	)
}

func videoRequest(cmd *cobra.Command, id string) video.Request {
	str := func(name string) string {
		if f := cmd.Flags().Lookup(name); f != nil {
			return strings.TrimSpace(f.Value.String())
		}
		return ""
	}

	req := video.Request{
		AssessmentID: id,
		VideoURL:     str("video-url"),
		RoleFamily:   str("role-family"),
		MIMEType:     str("mime-type"),
	}
	if d, err := cmd.Flags().GetInt("duration"); err == nil {
		req.Context.DurationSeconds = d
	}
	req.Context.TaskDescription = str("task")
	if outcomes, err := cmd.Flags().GetStringSlice("expected-outcome"); err == nil {
		req.Context.ExpectedOutcomes = outcomes
	}
	return req
}
