package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"review-monitor/storage"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export [--out reviews.csv]",
	Short: "Writes the reviews of the latest snapshot to CSV.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.store.LatestSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		if snap == nil {
			a.logger.Warn("Nothing scraped yet, writing an empty export")
		}

		out := exportOut
		if out == "" {
			out = filepath.Join(cfg.DataDir, "reviews.csv")
		}
		w, err := storage.NewCSVWriter(out)
		if err != nil {
			return err
		}
		n, err := w.WriteSnapshot(snap)
		if cerr := w.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		a.logger.Info("Exported %d reviews to %s", n, out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output path (default $DATA_DIR/reviews.csv).")
	rootCmd.AddCommand(exportCmd)
}
