package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"drills-server/config"
	"drills-server/db"
	"drills-server/drill"
)

var rootCmd = &cobra.Command{
	Use:   "drills-server",
	Short: "Multiple-choice exam drill server",
	Long:  "drills-server serves timed multiple-choice drills, tracks answers and reports progress KPIs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a config file (defaults to ./config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(kpisCmd)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openStore connects to the configured backend and makes sure the schema exists.
func openStore(ctx context.Context, cfg *config.Config) (db.Store, error) {
	store, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func newService(cfg *config.Config, store db.Store) (*drill.Service, error) {
	loc, err := cfg.Drill.Location()
	if err != nil {
		return nil, err
	}
	return drill.NewService(store,
		drill.WithLocation(loc),
		drill.WithRevealAnswers(cfg.Drill.RevealAnswers),
	), nil
}
