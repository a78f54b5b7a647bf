// Package cli implements the rodada command line.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rodada",
	Short: "Gamification engine for the club's membership platform",
	Long: `rodada runs the club's gamification engine: the points ledger,
membership tiers, the reward catalog and redemptions, leaderboards,
activity streaks, and achievements.

Start the API server with 'rodada serve'. Configuration lives in
~/.rodada/config.toml (override the directory with RODADA_HOME).`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
