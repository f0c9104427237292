package models

import "time"

// BusinessConfig is one monitored business as held by the configuration store.
// It is read-only for the duration of a scrape run.
type BusinessConfig struct {
	ID        int64   `json:"id" yaml:"id,omitempty" bson:"_id"`
	Name      string  `json:"name" yaml:"name" bson:"name"`
	TargetURL string  `json:"target_url" yaml:"target_url" bson:"target_url"`
	Address   *string `json:"address,omitempty" yaml:"address,omitempty" bson:"address,omitempty"`
}

// Settings are the monitor-wide options stored next to the business list.
type Settings struct {
	CheckIntervalHours int `json:"check_interval_hours,omitempty" yaml:"check_interval_hours" bson:"check_interval_hours"`
}

// Directory is the whole monitor configuration: the ordered business list
// and its settings.
type Directory struct {
	Businesses []BusinessConfig `json:"businesses" yaml:"businesses"`
	Settings   Settings         `json:"settings" yaml:"settings"`
}

// Review is a single extracted review item. Nil fields were not found on the
// page; they are never zero-filled.
type Review struct {
	ReviewerName  *string `json:"reviewer_name"`
	Rating        *int    `json:"rating"`
	Text          string  `json:"text"`
	Date          *string `json:"date"`
	OwnerResponse *string `json:"owner_response"`
}

// HasOwnerResponse reports whether the business replied to the review.
func (r Review) HasOwnerResponse() bool {
	return r.OwnerResponse != nil && *r.OwnerResponse != ""
}

// BusinessScrapeResult is the outcome of scraping one business page.
type BusinessScrapeResult struct {
	BusinessID           int64     `json:"id"`
	Name                 string    `json:"name"`
	URL                  string    `json:"url"`
	ScrapedAt            time.Time `json:"scraped_at"`
	OverallRating        *float64  `json:"overall_rating"`
	TotalReviewsReported *int      `json:"total_reviews"`
	Reviews              []Review  `json:"reviews"`
	Error                string    `json:"error,omitempty"`
}

// Snapshot is the result set of one orchestrator run. A newer snapshot
// supersedes older ones.
type Snapshot struct {
	RunID      string                 `json:"run_id"`
	ScrapedAt  time.Time              `json:"scraped_at"`
	Businesses []BusinessScrapeResult `json:"businesses"`
}

// Clone returns a copy whose business slice does not alias s.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Businesses = make([]BusinessScrapeResult, len(s.Businesses))
	copy(out.Businesses, s.Businesses)
	return &out
}

func (s *Snapshot) ResultsByID() map[int64]BusinessScrapeResult {
	byID := make(map[int64]BusinessScrapeResult)
	if s == nil {
		return byID
	}
	for _, b := range s.Businesses {
		byID[b.BusinessID] = b
	}
	return byID
}
