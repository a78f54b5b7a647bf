package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/clubrodada/rodada/internal/daemon"
	"github.com/clubrodada/rodada/internal/domain"
)

func init() {
	rootCmd.AddCommand(leaderboardCmd)
	leaderboardCmd.AddCommand(leaderboardRecomputeCmd)
	leaderboardRecomputeCmd.Flags().StringP("period", "p", "monthly", "ranking period: monthly, annual or alltime")
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Inspect and recompute rankings",
}

var leaderboardRecomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Recompute a ranking period and print the standing",
	RunE:  runLeaderboardRecompute,
}

func runLeaderboardRecompute(cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetString("period")
	period := domain.Period(raw)
	if !period.Valid() {
		return fmt.Errorf("unknown period %q (monthly, annual, alltime)", raw)
	}

	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}
	d, err := daemon.New(cfg)
	if err != nil {
		return err
	}
	defer d.DB().Close()

	entries, err := d.Leaderboards.Recompute(period)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "POS\tUSER\tPOINTS\tCHANGE")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%d\t%+d\n", e.Position, e.UserID, e.Points, e.PositionChange)
	}
	return w.Flush()
}
