package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats [--json]",
	Short: "Prints statistics for the latest snapshot.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		configs, err := a.store.ListBusinesses(ctx)
		if err != nil {
			return err
		}
		snap, err := a.store.LatestSnapshot(ctx)
		if err != nil {
			return err
		}

		svc := a.stats()
		st := svc.Generate(configs, snap)
		if statsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}
		svc.Print(os.Stdout, st)
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print the stats as JSON.")
	rootCmd.AddCommand(statsCmd)
}
