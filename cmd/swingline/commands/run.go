package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the weekly pipeline once",
	Long: `Runs the full weekly pipeline for the current week: universe
build, momentum scoring, regime classification, consistency and
liquidity gates, setup detection, risk sizing, portfolio
construction and the final recommendation.`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := a.orchestrator.Run(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	fmt.Printf("Week %s completed in %s\n", res.Week.Format("2006-01-02"), res.Duration.Round(time.Millisecond))
	if res.Regime != nil {
		fmt.Printf("Regime: %s (composite %.1f, multiplier %.1f)\n",
			res.Regime.State, res.Regime.Composite, res.Regime.Multiplier)
	}
	for _, sr := range res.Stages {
		fmt.Printf("  %-6s in=%-5d out=%-5d %dms\n",
			sr.Stage.ShortName(), sr.InputCount, sr.OutputCount, sr.DurationMS)
	}
	if res.Recommendation != nil {
		fmt.Printf("Recommendation: %d trade cards, status %s\n",
			len(res.Recommendation.Cards), res.Recommendation.Status)
	}
	return nil
}
