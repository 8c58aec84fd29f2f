package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pharmalink/m/internal/cache"
	"pharmalink/m/internal/repository"
	"pharmalink/m/internal/seed"
)

func (a *app) seedCommand() *cobra.Command {
	var (
		catalogPath string
		demo        bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the medication catalog and demo data",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			catalog := repository.NewCatalog(db)
			if catalogPath == "" {
				catalogPath = a.cfg.CatalogCSV
			}
			added := 0
			defer func() {
				if added > 0 {
					a.invalidateMedicationCache(ctx)
				}
			}()
			if catalogPath != "" {
				n, err := seed.LoadCatalogFile(ctx, catalog, catalogPath, a.log)
				if err != nil {
					return err
				}
				added += n
				fmt.Fprintf(cmd.OutOrStdout(), "catalog: %d medications added\n", n)
			}
			if !demo {
				return nil
			}

			sum, err := seed.NewDemo(repository.NewTxManager(db), catalog, repository.NewInventory(db), repository.NewUsers(db), a.log).Run(ctx)
			if err != nil {
				return err
			}
			added += sum.Medications
			fmt.Fprintf(cmd.OutOrStdout(), "demo: %d medications, %d users, %d pharmacies, %d inventory entries added\n",
				sum.Medications, sum.Users, sum.Pharmacies, sum.Inventory)
			return nil
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "medication CSV (name,category,generic_name,description); defaults to CATALOG_CSV")
	cmd.Flags().BoolVar(&demo, "demo", true, "create demo users, pharmacies and stock")
	return cmd
}

// invalidateMedicationCache purges cached autocomplete results so newly
// loaded medications show up before the entries expire.
func (a *app) invalidateMedicationCache(ctx context.Context) {
	c, err := cache.Open(ctx, a.cfg.RedisAddr, a.cfg.RedisPass, a.cfg.CacheTTL, a.log)
	if err != nil {
		a.log.Warn("redis unavailable, medication cache not purged", zap.Error(err))
		return
	}
	if c == nil {
		return
	}
	defer c.Close()
	a.purgeMedicationCache(ctx, c)
}

func (a *app) purgeMedicationCache(ctx context.Context, c *cache.Medications) {
	n, err := c.Purge(ctx)
	if err != nil {
		a.log.Warn("medication cache not purged", zap.Error(err))
		return
	}
	a.log.Info("medication cache purged", zap.Int("keys", n))
}
