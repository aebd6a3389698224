package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohanmb/swingline/internal/api"
	"github.com/rohanmb/swingline/internal/scheduler"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Serve the HTTP API with the scheduler",
	Long: `Starts the HTTP server and the cron scheduler. The scheduler
runs the weekly pipeline on Saturday mornings, the Monday gap
analysis before the open, the Friday close review and a daily
expiry sweep. The API exposes recommendations, the regime and
a manual pipeline trigger.`,
	RunE: runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// HTTP surface
	var metricsHandler http.Handler
	if a.mtr != nil {
		metricsHandler = a.mtr.Handler()
	}
	handler := api.NewHandler(a.orchestrator, a.recommendations, a.portfolio, a.regimes, a.db, a.log)
	router := api.NewRouter(handler, metricsHandler, a.log)
	server := api.New(a.cfg, a.log, router)

	// Scheduler
	sched := scheduler.New(a.log)
	jobs := []scheduler.Job{
		scheduler.NewWeeklyPipelineJob(a.orchestrator),
		scheduler.NewMondayGapJob(a.portfolio, a.client, a.engine, a.log),
		scheduler.NewFridayReviewJob(a.execution, a.client, a.engine, a.log),
		scheduler.NewExpirySweepJob(a.recommendations, a.log),
	}
	for _, job := range jobs {
		if err := sched.AddJob(job); err != nil {
			return err
		}
	}
	sched.Start()
	defer sched.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		a.log.WithField("signal", sig.String()).Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
