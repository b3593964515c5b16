package cmd

import (
	"github.com/spf13/cobra"

	"drills-server/ingestion"
)

var importCmd = &cobra.Command{
	Use:   "import [subject-slug...]",
	Short: "Ingest question bank subjects (all subjects when none are named)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		return ingestion.ProcessAll(cmd.Context(), store, cfg.Bank.Path, "cli", args...)
	},
}
