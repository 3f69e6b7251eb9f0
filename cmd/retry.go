package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/worksim-assessor/internal/video"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var retryCmd = &cobra.Command{
	Use:   "retry <assessment-id>",
	Short: "Retry a failed video evaluation",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		retryEvaluation(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(retryCmd)

	retryCmd.Flags().Bool("force", false, "reset the retry count and failure reason and evaluate regardless of the current state")
	retryCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation on force retry")
	retryCmd.Flags().StringP("video-url", "u", "", "override the stored recording reference")
	retryCmd.Flags().StringP("role-family", "r", "", "override the stored rubric role family")
	retryCmd.Flags().String("mime-type", "", "recording mime type (default ai.gemini.video-mime-type)")
	retryCmd.Flags().Int("duration", 0, "recording length in seconds")
	retryCmd.Flags().String("task", "", "task description given to the candidate")
	retryCmd.Flags().StringSlice("expected-outcome", nil, "expected outcome of the task, repeatable")
}

func retryEvaluation(cmd *cobra.Command, id string) {
	ctx := context.Background()
	logger, config := setup(cmd.Name())

	force, _ := cmd.Flags().GetBool("force")
	yes, _ := cmd.Flags().GetBool("yes")

	pipeline, shutdown, err := newPipeline(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the video pipeline", zap.Error(err))
	}
	defer shutdown()

	req := videoRequest(cmd, id)

	if !force {
		res, err := pipeline.Retry(ctx, req)
		if err != nil {
			shutdown()
			if errors.Is(err, video.ErrRetryLimitReached) {
				logger.Fatal("retry refused", zap.Error(err), zap.String("hint", "use --force to reset the retry count"))
			}
			logger.Fatal("retrying evaluation", zap.Error(err))
		}
		logger.Info("retry finished", zap.String("assessment_id", id), zap.String("status", string(res.Status)))
		return
	}

	view, err := pipeline.Status(ctx, id)
	if err != nil {
		shutdown()
		logger.Fatal("getting assessment status", zap.Error(err))
	}

	if !yes {
		prompt := promptui.Select{
			Label: fmt.Sprintf("Force retry %s (status %s, %d failed attempts)?", id, view.Status, view.RetryCount),
			Items: []string{PromptYes, PromptNo},
		}
		_, action, err := prompt.Run()
		if err != nil {
			shutdown()
			logger.Fatal("exiting", zap.Error(err))
		}
		if action != PromptYes {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	res, err := pipeline.ForceRetry(ctx, req)
	if err != nil {
		shutdown()
		logger.Fatal("force retrying evaluation", zap.Error(err))
	}
	logger.Info("force retry finished", zap.String("assessment_id", id), zap.String("status", string(res.Status)))
}
