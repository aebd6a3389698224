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

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest recommendation and regime",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := a.regimes.GetLatest(ctx)
	if err == nil {
		fmt.Printf("Regime: %s (composite %.1f, multiplier %.1f, week %s)\n",
			reg.State, reg.Composite, reg.Multiplier, reg.Week.Format("2006-01-02"))
	} else {
		fmt.Println("Regime: none recorded")
	}

	rec, err := a.recommendations.GetLatest(ctx)
	if err != nil {
		fmt.Println("Recommendation: none recorded")
		return nil
	}

	staleTag := ""
	if rec.Stale(time.Now()) {
		staleTag = " [stale]"
	}
	fmt.Printf("Recommendation: week %s, status %s, %d cards%s\n",
		rec.Week.Format("2006-01-02"), rec.Status, len(rec.Cards), staleTag)
	for _, card := range rec.Cards {
		fmt.Printf("  %-12s %-10s conviction %.1f (%s) entry %.2f-%.2f stop %.2f\n",
			card.Symbol, card.SetupType, card.Conviction10, card.ConvictionText,
			card.EntryLow, card.EntryHigh, card.Stop)
	}
	return nil
}
