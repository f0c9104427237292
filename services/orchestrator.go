package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"review-monitor/models"
	"review-monitor/storage"
	"review-monitor/utils"
)

// PageScraper scrapes one business. Implementations must not fail: errors
// belong in the returned result.
type PageScraper interface {
	Scrape(ctx context.Context, biz models.BusinessConfig) *models.BusinessScrapeResult
}

// Progress receives run progress as the orchestrator moves through the
// business list.
type Progress interface {
	Begin(total int)
	Advance(target string)
}

// Orchestrator scrapes every configured business in order, one at a time,
// persisting the growing snapshot after each one.
type Orchestrator struct {
	businesses  storage.BusinessLister
	snapshots   storage.SnapshotStore
	scraper     PageScraper
	targetDelay time.Duration
	logger      *utils.Logger
	now         func() time.Time
}

// NewOrchestrator wires an Orchestrator. targetDelay is waited between two
// scraped targets to go easy on the site.
func NewOrchestrator(businesses storage.BusinessLister, snapshots storage.SnapshotStore, scraper PageScraper, targetDelay time.Duration, logger *utils.Logger) *Orchestrator {
	return &Orchestrator{
		businesses:  businesses,
		snapshots:   snapshots,
		scraper:     scraper,
		targetDelay: targetDelay,
		logger:      logger,
		now:         time.Now,
	}
}

// Run performs one pass over the configured businesses. Per-business
// failures are recorded in their results; the returned error is reserved
// for failures of the run itself (configuration unreadable, final save
// failed, process shutting down).
func (o *Orchestrator) Run(ctx context.Context, runID string, p Progress) (*models.Snapshot, error) {
	list, err := o.businesses.ListBusinesses(ctx)
	if err != nil {
		return nil, fmt.Errorf("load businesses: %w", err)
	}
	p.Begin(len(list))

	snap := &models.Snapshot{
		RunID:      runID,
		ScrapedAt:  o.now(),
		Businesses: []models.BusinessScrapeResult{},
	}
	o.logger.Info("[orchestrator] Run %s started: %d businesses", runID, len(list))

	scraped := 0
	for i, biz := range list {
		if err := ctx.Err(); err != nil {
			return snap, fmt.Errorf("run interrupted: %w", err)
		}
		p.Advance(biz.Name)

		if strings.TrimSpace(biz.TargetURL) == "" {
			o.logger.Warn("[orchestrator] %s has no target URL, skipping", biz.Name)
			continue
		}

		if scraped > 0 {
			if err := utils.Pause(ctx, o.targetDelay); err != nil {
				return snap, fmt.Errorf("run interrupted: %w", err)
			}
		}
		scraped++

		o.logger.Info("[orchestrator] === %s (%d/%d) ===", biz.Name, i+1, len(list))
		snap.Businesses = append(snap.Businesses, o.scrape(ctx, biz))

		if err := o.snapshots.SaveSnapshot(ctx, snap.Clone()); err != nil {
			o.logger.Warn("[orchestrator] partial save after %s failed: %v", biz.Name, err)
		}
	}

	if err := o.snapshots.SaveSnapshot(ctx, snap); err != nil {
		return snap, fmt.Errorf("save snapshot: %w", err)
	}

	failed := 0
	for _, b := range snap.Businesses {
		if b.Error != "" {
			failed++
		}
	}
	o.logger.Info("[orchestrator] Run %s complete: %d scraped, %d failed, %d skipped",
		runID, len(snap.Businesses), failed, len(list)-len(snap.Businesses))
	return snap, nil
}

func (o *Orchestrator) scrape(ctx context.Context, biz models.BusinessConfig) models.BusinessScrapeResult {
	res := o.scraper.Scrape(ctx, biz)
	if res == nil {
		return models.BusinessScrapeResult{
			BusinessID: biz.ID,
			Name:       biz.Name,
			URL:        biz.TargetURL,
			ScrapedAt:  o.now(),
			Reviews:    []models.Review{},
			Error:      "scraper returned no result",
		}
	}
	res.BusinessID = biz.ID
	if res.Reviews == nil {
		res.Reviews = []models.Review{}
	}
	return *res
}
