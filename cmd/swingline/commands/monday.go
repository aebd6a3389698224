package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rohanmb/swingline/internal/scheduler"
)

var mondayCmd = &cobra.Command{
	Use:   "monday",
	Short: "Run the Monday pre-open gap analysis once",
	Long: `Fetches today's opening prices for the latest approved
allocation and classifies each position's overnight gap into
execute, adjust or skip. Normally run by the scheduler at
09:10 IST on Mondays; this command runs the same job on demand.`,
	RunE: runMonday,
}

func init() {
	rootCmd.AddCommand(mondayCmd)
}

func runMonday(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	job := scheduler.NewMondayGapJob(a.portfolio, a.client, a.engine, a.log)
	return job.Run(ctx)
}
