package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scrapes every configured business once and prints the stats.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		a.logger.Info("=== Review monitor run starting ===")
		a.logger.Info("Config: store=%s max_reviews=%d scrolls=%d settle=%v target_delay=%v",
			cfg.StoreBackend, cfg.MaxReviews, cfg.ScrollIterations, cfg.SettleDelay, cfg.TargetDelay)

		jobs := a.jobManager()
		started, err := jobs.Run(ctx)
		if !started {
			return errors.New("a run is already in progress")
		}
		st := jobs.Status()
		if err != nil {
			return err
		}
		a.logger.Info("Run %s finished: %d/%d businesses processed", st.RunID, st.Progress, st.Total)

		configs, err := a.store.ListBusinesses(ctx)
		if err != nil {
			return err
		}
		snap, err := a.store.LatestSnapshot(ctx)
		if err != nil {
			return err
		}
		svc := a.stats()
		svc.Print(os.Stdout, svc.Generate(configs, snap))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
