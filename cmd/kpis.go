package cmd

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"
)

var kpisCmd = &cobra.Command{
	Use:   "kpis",
	Short: "Print a user's KPI figures as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		if userID == "" {
			return errors.New("--user is required")
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		svc, err := newService(cfg, store)
		if err != nil {
			return err
		}
		kpis, err := svc.KPIs(cmd.Context(), userID)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(kpis)
	},
}

func init() {
	kpisCmd.Flags().String("user", "", "User id (token subject) to report on")
}
