package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/worksim-assessor/internal/rubric"
	"github.com/spigell/worksim-assessor/internal/video"
)

var statusCmd = &cobra.Command{
	Use:   "status <assessment-id>",
	Short: "Print the status of a video evaluation, with results when completed",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		status(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().Bool("results", false, "include dimension scores and summary")
}

func status(cmd *cobra.Command, id string) {
	ctx := context.Background()
	logger, config := setup(cmd.Name())

	st, err := newStore(ctx, config.Store, logger)
	if err != nil {
		logger.Fatal("preparing the store", zap.Error(err))
	}

	reader := video.NewReader(st, rubric.NewFileLoader(config.Rubrics.Dir), config.Rubrics.DefaultRoleFamily, logger)

	var out any
	if withResults, _ := cmd.Flags().GetBool("results"); withResults {
		out, err = reader.Results(ctx, id)
	} else {
		out, err = reader.Status(ctx, id)
	}
	if err != nil {
		logger.Fatal("getting assessment", zap.String("assessment_id", id), zap.Error(err))
	}

	if err := printJSON(out); err != nil {
		logger.Fatal("printing assessment", zap.Error(err))
	}
}
