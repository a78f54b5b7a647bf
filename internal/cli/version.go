package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clubrodada/rodada/internal/api"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the rodada version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("rodada", api.Version)
	},
}
