package models

import "time"

type JobState string

const (
	JobIdle      JobState = "idle"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobError     JobState = "error"
)

// JobStatus describes the current (or last) scrape run.
type JobStatus struct {
	State         JobState   `json:"status"`
	RunID         string     `json:"run_id,omitempty"`
	Progress      int        `json:"progress"`
	Total         int        `json:"total"`
	CurrentTarget string     `json:"current_target,omitempty"`
	Message       string     `json:"message,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// AggregateStats is derived from the business configuration and the latest
// snapshot. It is recomputed on demand and never stored.
type AggregateStats struct {
	TotalBusinesses    int               `json:"total_businesses"`
	TotalReviews       int               `json:"total_reviews"`
	AverageRating      float64           `json:"average_rating"`
	RatingDistribution map[int]int       `json:"rating_distribution"`
	Businesses         []BusinessSummary `json:"businesses_summary"`
	RecentReviews      []ReviewEntry     `json:"recent_reviews"`
	NeedsResponse      []ReviewEntry     `json:"needs_response"`
	ScrapedAt          *time.Time        `json:"scraped_at"`
}

type BusinessSummary struct {
	ID                   int64       `json:"id"`
	Name                 string      `json:"name"`
	Rating               *float64    `json:"rating"`
	ReviewCount          int         `json:"review_count"`
	TotalReviewsReported *int        `json:"total_reviews_reported"`
	URL                  string      `json:"url"`
	RatingDistribution   map[int]int `json:"rating_distribution"`
	Error                string      `json:"error,omitempty"`
}

// ReviewEntry is a review tagged with the business it belongs to.
type ReviewEntry struct {
	BusinessID   int64  `json:"business_id"`
	BusinessName string `json:"business_name"`
	Review
}
