package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/festivalops/research-cli/internal/runner"
	"github.com/festivalops/research-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start webhook server for research requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		taskRunner := newTaskRunner()
		mux := newServeMux(ctx, taskRunner, st)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newServeMux(ctx context.Context, taskRunner *runner.TaskRunner, st store.Store) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		breaker := taskRunner.Breaker()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"breaker": map[string]any{
				"open":          breaker.IsOpen(),
				"failures":      breaker.Failures(),
				"time_to_reset": breaker.TimeToReset().String(),
			},
		})
	})

	mux.HandleFunc("POST /webhook/research", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			FestivalID   string `json:"festival_id"`
			FestivalName string `json:"festival_name"`
			URL          string `json:"url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		if req.FestivalName == "" {
			http.Error(w, `{"error":"festival_name is required"}`, http.StatusBadRequest)
			return
		}
		if req.FestivalID == "" {
			req.FestivalID = uuid.New().String()
		}

		orch, err := newOrchestrator(taskRunner)
		if err != nil {
			http.Error(w, `{"error":"orchestrator init failed"}`, http.StatusInternalServerError)
			return
		}

		// Run research asynchronously
		go func() {
			state := orch.Run(ctx, req.FestivalID, req.FestivalName, req.URL)

			if _, err := st.SaveRun(ctx, state); err != nil {
				zap.L().Error("webhook run save failed",
					zap.String("festival", req.FestivalName),
					zap.Error(err),
				)
				return
			}
			zap.L().Info("webhook research complete",
				zap.String("festival", req.FestivalName),
				zap.String("phase", string(state.Phase)),
				zap.Float64("confidence", state.OverallConfidence),
			)
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{
			"status":      "accepted",
			"festival_id": req.FestivalID,
		})
	})

	return mux
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
