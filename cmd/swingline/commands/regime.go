package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohanmb/swingline/internal/contracts"
)

var regimeCmd = &cobra.Command{
	Use:   "regime",
	Short: "Classify the current market regime",
	RunE:  runRegime,
}

func init() {
	rootCmd.AddCommand(regimeCmd)
}

func runRegime(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := a.classifier.Classify(ctx, contracts.WeekStart(time.Now()))
	if err != nil {
		return fmt.Errorf("classify regime: %w", err)
	}

	fmt.Printf("Week:       %s\n", reg.Week.Format("2006-01-02"))
	fmt.Printf("State:      %s\n", reg.State)
	fmt.Printf("Composite:  %.1f\n", reg.Composite)
	fmt.Printf("Confidence: %.2f\n", reg.Confidence)
	fmt.Printf("Multiplier: %.1f\n", reg.Multiplier)
	fmt.Printf("Subscores:  trend=%.1f breadth=%.1f volatility=%.1f leadership=%.1f\n",
		reg.Subscores.Trend, reg.Subscores.Breadth, reg.Subscores.Volatility, reg.Subscores.Leadership)
	return nil
}
