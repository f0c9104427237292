package cli

import (
	"fmt"
	"time"

	"review-monitor/config"
	"review-monitor/scraper"
	"review-monitor/scraper/browser"
	"review-monitor/scraper/google"
	"review-monitor/scraper/static"
	"review-monitor/services"
	"review-monitor/storage"
	"review-monitor/utils"
)

const navRetryDelay = 2 * time.Second

// app is the wired dependency graph shared by the commands.
type app struct {
	cfg    *config.Config
	logger *utils.Logger
	store  storage.Store
}

func newApp(cfg *config.Config) (*app, error) {
	logger := utils.NewLogger(cfg.Debug)
	store, err := storage.Open(storage.Options{
		Backend:     cfg.StoreBackend,
		DataDir:     cfg.DataDir,
		SQLitePath:  cfg.SQLitePath,
		PostgresDSN: cfg.DSN(),
		MongoURI:    cfg.MongoURI,
		MongoDB:     cfg.MongoDB,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	logger.Debug("[app] Using %s store", cfg.StoreBackend)
	return &app{cfg: cfg, logger: logger, store: store}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("[app] close store: %v", err)
	}
}

func (a *app) pageScraper() *scraper.PageScraper {
	launcher := browser.NewLauncher(browser.Options{
		ChromeBin:  a.cfg.ChromeBin,
		Headless:   a.cfg.Headless,
		NavTimeout: a.cfg.NavTimeout,
	})
	if bin := launcher.ChromeBin(); bin != "" {
		a.logger.Debug("[app] Chrome binary: %s", bin)
	} else {
		a.logger.Warn("[app] Chrome binary not found, relying on chromedp's default lookup")
	}

	loaderCfg := scraper.LoaderConfig{
		ScrollIterations: a.cfg.ScrollIterations,
		ScrollPause:      a.cfg.ScrollPause,
		ActivatePause:    a.cfg.ActivatePause,
		MaxItems:         a.cfg.MaxReviews,
		StableRounds:     a.cfg.StableRounds,
	}
	pageCfg := scraper.PageConfig{
		SettleDelay: a.cfg.SettleDelay,
		NavAttempts: a.cfg.NavAttempts,
		RetryDelay:  navRetryDelay,
	}
	// file:// targets replay saved pages without starting a browser
	opener := static.FileOpener{Next: launcher}
	return scraper.NewPageScraper(opener, google.Profile(), loaderCfg, pageCfg, a.logger)
}

func (a *app) jobManager() *services.JobManager {
	orch := services.NewOrchestrator(a.store, a.store, a.pageScraper(), a.cfg.TargetDelay, a.logger)
	return services.NewJobManager(orch, a.logger)
}

func (a *app) stats() *services.StatsService {
	return services.NewStatsService(a.logger)
}
