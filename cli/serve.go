package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"review-monitor/config"
	"review-monitor/httpapi"
	"review-monitor/scheduler"
)

var (
	serveSchedule      bool
	serveScrapeOnStart bool
	serveSeed          string
)

var serveCmd = &cobra.Command{
	Use:   "serve [--seed businesses.yaml] [--schedule=false] [--scrape-on-start]",
	Short: "Serves the HTTP API and scrapes on a fixed interval.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if serveSeed != "" {
			seed, err := config.LoadSeed(serveSeed)
			if err != nil {
				return err
			}
			if err := seedIfEmpty(ctx, a, seed); err != nil {
				return err
			}
		}
		interval, err := checkInterval(ctx, a)
		if err != nil {
			return err
		}

		jobs := a.jobManager()
		handler := httpapi.NewHandler(httpapi.Deps{
			Store:      a.store,
			Jobs:       jobs,
			Stats:      a.stats(),
			Logger:     a.logger,
			RunContext: ctx,
		})
		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		if serveScrapeOnStart {
			a.logger.Info("[scheduler] Starting an initial scrape")
			jobs.TryStart(ctx)
		}
		if serveSchedule {
			a.logger.Info("[scheduler] Scraping every %v, first run in %v", interval, interval)
			go scheduler.Every(ctx, interval, "scheduler", func(ctx context.Context) error {
				if !jobs.TryStart(ctx) {
					return errors.New("previous run still in progress, skipping tick")
				}
				return nil
			}, a.logger)
		}

		errCh := make(chan error, 1)
		go func() {
			a.logger.Info("[http] Listening on %s", cfg.HTTPAddr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-ctx.Done():
			a.logger.Info("[http] Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("[http] shutdown: %v", err)
			}
		}

		jobs.Wait()
		return nil
	},
}

// checkInterval resolves the schedule: CHECK_INTERVAL_HOURS, then the
// stored settings, then the default.
func checkInterval(ctx context.Context, a *app) (time.Duration, error) {
	if a.cfg.CheckInterval > 0 {
		return a.cfg.CheckInterval, nil
	}
	settings, err := a.store.Settings(ctx)
	if err != nil {
		return 0, err
	}
	if h := settings.CheckIntervalHours; h > 0 {
		return time.Duration(h) * time.Hour, nil
	}
	return config.DefaultCheckInterval, nil
}

func init() {
	serveCmd.Flags().BoolVar(&serveSchedule, "schedule", true, "Trigger a scrape every check interval.")
	serveCmd.Flags().BoolVar(&serveScrapeOnStart, "scrape-on-start", false, "Scrape once at start-up instead of waiting one interval.")
	serveCmd.Flags().StringVar(&serveSeed, "seed", "", "YAML seed imported when the store has no businesses.")
	rootCmd.AddCommand(serveCmd)
}
