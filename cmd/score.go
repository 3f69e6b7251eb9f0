package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/worksim-assessor/internal/assessment"
	"github.com/spigell/worksim-assessor/internal/report"
)

var scoreCmd = &cobra.Command{
	Use:   "score <signals.json>",
	Short: "Score collected assessment signals and print the competency report",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		score(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().Bool("no-ai", false, "skip narrative generation and use the fallback report text")
}

func score(cmd *cobra.Command, path string) {
	ctx := context.Background()
	logger, config := setup(cmd.Name())

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Fatal("reading signals", zap.String("path", path), zap.Error(err))
	}

	var signals assessment.Signals
	if err := json.Unmarshal(data, &signals); err != nil {
		logger.Fatal("decoding signals", zap.String("path", path), zap.Error(err))
	}

	var assembler *report.Assembler
	if noAI, _ := cmd.Flags().GetBool("no-ai"); noAI {
		assembler = report.NewAssembler(nil, logger)
	} else {
		assembler = report.NewAssembler(newNarrativeWriter(ctx, config.AI.Gemini, logger), logger)
	}

	if err := printJSON(assembler.Assemble(ctx, &signals)); err != nil {
		logger.Fatal("printing report", zap.Error(err))
	}
}
