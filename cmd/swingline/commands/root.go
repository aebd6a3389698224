package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command when called without subcommands
var rootCmd = &cobra.Command{
	Use:   "swingline",
	Short: "Weekly NSE swing-trade selection engine",
	Long: `Swingline runs a weekly pipeline over the NSE equity universe:
quality tiering, momentum and consistency gates, chart setup
detection, risk sizing and constrained portfolio construction,
ending in a reviewable set of trade cards.

Usage:
  swingline run        Run the weekly pipeline
  swingline monday     Monday pre-open gap analysis
  swingline friday     Friday close review and health score
  swingline regime     Classify the current market regime
  swingline api        Serve the HTTP API with the scheduler
  swingline status     Show the latest recommendation and regime`,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}
