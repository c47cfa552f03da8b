package main

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/festivalops/research-cli/internal/research"
)

var (
	researchFestivalID string
	researchURL        string
	researchNoSave     bool
)

var researchCmd = &cobra.Command{
	Use:   "research <festival-name>",
	Short: "Research a single festival",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		festivalName := args[0]

		festivalID := researchFestivalID
		if festivalID == "" {
			festivalID = uuid.New().String()
		}

		orch, err := newOrchestrator(newTaskRunner())
		if err != nil {
			return err
		}
		orch.OnProgress(func(s *research.ResearchState) {
			zap.L().Debug("research progress",
				zap.String("phase", string(s.Phase)),
				zap.Int("connections", len(s.Connections)),
			)
		})

		state := orch.Run(ctx, festivalID, festivalName, researchURL)

		zap.L().Info("research finished",
			zap.String("festival", festivalName),
			zap.String("phase", string(state.Phase)),
			zap.Float64("confidence", state.OverallConfidence),
			zap.String("level", state.ConfidenceLevel),
			zap.Int("connections", len(state.Connections)),
			zap.Int("warnings", len(state.Warnings)),
		)

		if !researchNoSave {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err != nil {
				return eris.Wrap(err, "migrate store")
			}

			rec, err := st.SaveRun(ctx, state)
			if err != nil {
				return eris.Wrap(err, "save run")
			}
			zap.L().Info("run saved", zap.String("run_id", rec.ID))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	},
}

func init() {
	researchCmd.Flags().StringVar(&researchFestivalID, "id", "", "festival ID (generated when omitted)")
	researchCmd.Flags().StringVar(&researchURL, "url", "", "known festival website, skips discovery")
	researchCmd.Flags().BoolVar(&researchNoSave, "no-save", false, "do not persist the run")
	rootCmd.AddCommand(researchCmd)
}
