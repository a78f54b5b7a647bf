package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clubrodada/rodada/internal/daemon"
	"github.com/clubrodada/rodada/internal/domain"
)

func init() {
	rootCmd.AddCommand(seedCmd)
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the starter reward catalog",
	Long: `Insert the club's starter reward catalog into the local database.
Existing rewards with the same IDs are updated in place; stock and
redemption counters of live rewards are preserved.`,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}
	d, err := daemon.New(cfg)
	if err != nil {
		return err
	}
	defer d.DB().Close()

	for _, r := range starterCatalog() {
		if err := d.DB().UpsertReward(r); err != nil {
			return fmt.Errorf("seed reward %s: %w", r.ID, err)
		}
		fmt.Printf("seeded %s (%d pts)\n", r.Name, r.CostPoints)
	}
	return nil
}

func starterCatalog() []domain.RewardDefinition {
	return []domain.RewardDefinition{
		{
			ID: "sticker-pack", Name: "Pack de stickers", Category: domain.CategoryMerch,
			Description: "Stickers oficiales del club",
			CostPoints:  100, Stock: domain.UnlimitedStock, Active: true,
		},
		{
			ID: "gorra-club", Name: "Gorra del club", Category: domain.CategoryMerch,
			Description: "Gorra bordada, edición anual",
			CostPoints:  600, Stock: 50, Active: true,
		},
		{
			ID: "descuento-tienda", Name: "10% en la tienda aliada", Category: domain.CategoryDiscount,
			Description: "Código de descuento de un solo uso",
			CostPoints:  300, Stock: domain.UnlimitedStock, Active: true,
		},
		{
			ID: "jersey-club", Name: "Jersey del club", Category: domain.CategoryMerch,
			Description: "Jersey oficial, talla a elección",
			CostPoints:  2500, Stock: 20, Active: true, MinTierID: 4,
		},
		{
			ID: "salida-pro", Name: "Salida con el equipo pro", Category: domain.CategoryExperience,
			Description: "Rodada acompañada con el equipo élite",
			CostPoints:  5000, Stock: 5, Active: true, MinTierID: 6,
		},
	}
}
