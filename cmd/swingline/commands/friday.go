package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rohanmb/swingline/internal/scheduler"
)

var fridayCmd = &cobra.Command{
	Use:   "friday",
	Short: "Run the Friday close review once",
	Long: `Marks open positions to Friday's close, computes the weekly
health score and records the summary. Normally run by the
scheduler at 15:45 IST on Fridays; this command runs the same
job on demand.`,
	RunE: runFriday,
}

func init() {
	rootCmd.AddCommand(fridayCmd)
}

func runFriday(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	job := scheduler.NewFridayReviewJob(a.execution, a.client, a.engine, a.log)
	return job.Run(ctx)
}
