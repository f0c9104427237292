package scraper

import (
	"context"
	"fmt"
	"time"

	"review-monitor/models"
	"review-monitor/utils"
)

// ReviewFields are the per-item fields read from one review element.
type ReviewFields struct {
	Name     Field[string]
	Rating   Field[int]
	Text     Field[string]
	Date     Field[string]
	Response Field[string]
}

// Profile bundles everything site specific: the page-level fields, the
// per-review fields and the loader selector chains.
type Profile struct {
	OverallRating Field[float64]
	ReviewCount   Field[int]
	Review        ReviewFields
	Loader        LoaderQueries
}

// PageConfig holds the per-target timing knobs.
type PageConfig struct {
	// SettleDelay is waited after navigation; rendering continues after the
	// load event and there is no dependable ready signal.
	SettleDelay time.Duration
	NavAttempts int
	RetryDelay  time.Duration
}

// PageScraper produces one BusinessScrapeResult per business page. It owns
// the document lifecycle: open, extract, close.
type PageScraper struct {
	opener  Opener
	profile Profile
	loader  *ReviewListLoader
	cfg     PageConfig
	logger  *utils.Logger
	retry   *utils.RetryConfig
	now     func() time.Time
}

// NewPageScraper wires a scraper for the given site profile.
func NewPageScraper(opener Opener, profile Profile, loaderCfg LoaderConfig, cfg PageConfig, logger *utils.Logger) *PageScraper {
	return &PageScraper{
		opener:  opener,
		profile: profile,
		loader:  NewReviewListLoader(profile.Loader, loaderCfg, logger),
		cfg:     cfg,
		logger:  logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.NavAttempts,
			BaseDelay:   cfg.RetryDelay,
			Logger:      logger,
		},
		now: time.Now,
	}
}

// Scrape extracts the business page. It never fails: any error is recorded
// in the result's Error field and the review list is left empty.
func (s *PageScraper) Scrape(ctx context.Context, biz models.BusinessConfig) (result *models.BusinessScrapeResult) {
	result = &models.BusinessScrapeResult{
		BusinessID: biz.ID,
		Name:       biz.Name,
		URL:        biz.TargetURL,
		ScrapedAt:  s.now(),
		Reviews:    []models.Review{},
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("[scraper] %s: panic: %v", biz.Name, r)
			result.Error = fmt.Sprintf("scraper panic: %v", r)
			result.Reviews = []models.Review{}
		}
	}()

	s.logger.Info("[scraper] Loading: %s", biz.Name)
	if err := s.scrape(ctx, biz, result); err != nil {
		s.logger.Error("[scraper] %s: %v", biz.Name, err)
		result.Error = err.Error()
		result.Reviews = []models.Review{}
		return result
	}

	s.logger.Info("[scraper] %s: rating %s, reported reviews %s, extracted %d reviews",
		biz.Name, fmtFloat(result.OverallRating), fmtInt(result.TotalReviewsReported), len(result.Reviews))
	return result
}

func (s *PageScraper) scrape(ctx context.Context, biz models.BusinessConfig, result *models.BusinessScrapeResult) error {
	var doc Document
	err := s.retry.Do(ctx, "navigate "+biz.Name, func() error {
		d, err := s.opener.Open(ctx, biz.TargetURL)
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := doc.Close(); err != nil {
			s.logger.Warn("[scraper] %s: close document: %v", biz.Name, err)
		}
	}()

	if err := utils.Pause(ctx, s.cfg.SettleDelay); err != nil {
		return fmt.Errorf("settle: %w", err)
	}

	if v, ok := s.profile.OverallRating.Extract(ctx, doc); ok {
		result.OverallRating = &v
	}
	if v, ok := s.profile.ReviewCount.Extract(ctx, doc); ok {
		result.TotalReviewsReported = &v
	}

	items, err := s.loader.Load(ctx, doc)
	if err != nil {
		return fmt.Errorf("load reviews: %w", err)
	}
	s.logger.Debug("[scraper] %s: found %d review elements", biz.Name, len(items))

	seen := utils.NewKeySet()
	for _, item := range items {
		r, ok := s.review(ctx, item)
		if !ok {
			continue
		}
		if !seen.Add(reviewKey(r)) {
			continue
		}
		result.Reviews = append(result.Reviews, r)
	}
	return ctx.Err()
}

// review builds one Review from an item element. Items with neither a
// reviewer name nor text are not reviews.
func (s *PageScraper) review(ctx context.Context, item Element) (models.Review, bool) {
	f := s.profile.Review
	var r models.Review

	if v, ok := f.Name.Extract(ctx, item); ok {
		r.ReviewerName = &v
	}
	if v, ok := f.Rating.Extract(ctx, item); ok {
		r.Rating = &v
	}
	if v, ok := f.Text.Extract(ctx, item); ok {
		r.Text = v
	}
	if v, ok := f.Date.Extract(ctx, item); ok {
		r.Date = &v
	}
	if v, ok := f.Response.Extract(ctx, item); ok {
		r.OwnerResponse = &v
	}

	return r, r.ReviewerName != nil || r.Text != ""
}

func reviewKey(r models.Review) string {
	return deref(r.ReviewerName) + "\x00" + r.Text + "\x00" + deref(r.Date)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func fmtFloat(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", *v)
}

func fmtInt(v *int) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d", *v)
}
