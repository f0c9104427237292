package services

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"review-monitor/models"
	"review-monitor/utils"
)

const (
	NeedsResponseLimit = 20
	RecentPerBusiness  = 5
	RecentLimit        = 20
	// needsResponseTextRunes bounds the review text carried in needs_response.
	needsResponseTextRunes = 200
	// needsResponseMaxRating is the highest star rating still flagged.
	needsResponseMaxRating = 3
)

// Aggregate derives dashboard statistics from the configured businesses and
// their latest results. Results for ids not in configs are ignored.
func Aggregate(configs []models.BusinessConfig, results map[int64]models.BusinessScrapeResult) models.AggregateStats {
	stats := models.AggregateStats{
		TotalBusinesses:    len(configs),
		RatingDistribution: newDistribution(),
		Businesses:         make([]models.BusinessSummary, 0, len(configs)),
		RecentReviews:      []models.ReviewEntry{},
		NeedsResponse:      []models.ReviewEntry{},
	}

	var ratingSum float64
	var rated int

	for _, biz := range configs {
		summary := models.BusinessSummary{
			ID:                 biz.ID,
			Name:               biz.Name,
			URL:                biz.TargetURL,
			RatingDistribution: newDistribution(),
		}

		res, ok := results[biz.ID]
		if !ok {
			stats.Businesses = append(stats.Businesses, summary)
			continue
		}

		summary.Rating = res.OverallRating
		summary.TotalReviewsReported = res.TotalReviewsReported
		summary.ReviewCount = len(res.Reviews)
		summary.Error = res.Error
		if res.URL != "" {
			summary.URL = res.URL
		}
		if res.OverallRating != nil {
			ratingSum += *res.OverallRating
			rated++
		}

		stats.TotalReviews += len(res.Reviews)
		for i, r := range res.Reviews {
			if r.Rating != nil && *r.Rating >= 1 && *r.Rating <= 5 {
				summary.RatingDistribution[*r.Rating]++
				stats.RatingDistribution[*r.Rating]++
			}

			entry := models.ReviewEntry{BusinessID: biz.ID, BusinessName: biz.Name, Review: r}
			if i < RecentPerBusiness && len(stats.RecentReviews) < RecentLimit {
				stats.RecentReviews = append(stats.RecentReviews, entry)
			}
			if needsResponse(r) && len(stats.NeedsResponse) < NeedsResponseLimit {
				entry.Text = truncateRunes(entry.Text, needsResponseTextRunes)
				stats.NeedsResponse = append(stats.NeedsResponse, entry)
			}
		}

		stats.Businesses = append(stats.Businesses, summary)
	}

	if rated > 0 {
		stats.AverageRating = round2(ratingSum / float64(rated))
	}
	return stats
}

func needsResponse(r models.Review) bool {
	return r.Rating != nil && *r.Rating <= needsResponseMaxRating && !r.HasOwnerResponse()
}

func newDistribution() map[int]int {
	return map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// StatsService computes and renders statistics for the latest snapshot.
type StatsService struct {
	logger *utils.Logger
}

func NewStatsService(logger *utils.Logger) *StatsService {
	return &StatsService{logger: logger}
}

// Generate aggregates snap against configs. snap may be nil when nothing
// has been scraped yet.
func (s *StatsService) Generate(configs []models.BusinessConfig, snap *models.Snapshot) models.AggregateStats {
	var results map[int64]models.BusinessScrapeResult
	if snap != nil {
		results = snap.ResultsByID()
	}
	stats := Aggregate(configs, results)
	if snap != nil {
		t := snap.ScrapedAt
		stats.ScrapedAt = &t
	}
	s.logger.Debug("[stats] %d businesses, %d reviews, %d need a response",
		stats.TotalBusinesses, stats.TotalReviews, len(stats.NeedsResponse))
	return stats
}

// Print renders stats as terminal tables.
func (s *StatsService) Print(w io.Writer, st models.AggregateStats) {
	scraped := "never"
	if st.ScrapedAt != nil {
		scraped = st.ScrapedAt.Local().Format("2006-01-02 15:04")
	}

	bt := table.NewWriter()
	bt.SetOutputMirror(w)
	bt.SetStyle(table.StyleRounded)
	bt.SetTitle("REVIEW MONITOR (last scrape: %s)", scraped)
	bt.AppendHeader(table.Row{"#", "Business", "Rating", "Reviews", "Reported", "1★", "2★", "3★", "4★", "5★", "Status"})
	for _, b := range st.Businesses {
		status := "ok"
		switch {
		case b.Error != "":
			status = truncate(b.Error, 40)
		case b.Rating == nil && b.ReviewCount == 0:
			status = "no data"
		}
		d := b.RatingDistribution
		bt.AppendRow(table.Row{b.ID, truncate(b.Name, 36), fmtRating(b.Rating), b.ReviewCount,
			fmtCount(b.TotalReviewsReported), d[1], d[2], d[3], d[4], d[5], status})
	}
	d := st.RatingDistribution
	bt.AppendFooter(table.Row{"", fmt.Sprintf("%d businesses", st.TotalBusinesses),
		fmt.Sprintf("%.2f", st.AverageRating), st.TotalReviews, "", d[1], d[2], d[3], d[4], d[5], ""})
	bt.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	bt.Render()

	if len(st.NeedsResponse) == 0 {
		fmt.Fprintln(w, "\n  No low-rated reviews waiting for a response.")
		return
	}

	nt := table.NewWriter()
	nt.SetOutputMirror(w)
	nt.SetStyle(table.StyleRounded)
	nt.SetTitle("NEEDS RESPONSE (%d)", len(st.NeedsResponse))
	nt.AppendHeader(table.Row{"Business", "Reviewer", "Rating", "Date", "Review"})
	for _, e := range st.NeedsResponse {
		nt.AppendRow(table.Row{truncate(e.BusinessName, 24), truncate(deref(e.ReviewerName), 20),
			fmtStars(e.Rating), deref(e.Date), truncate(oneLine(e.Text), 60)})
	}
	fmt.Fprintln(w)
	nt.Render()
}

func fmtRating(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}

func fmtStars(v *int) string {
	if v == nil || *v < 1 {
		return "-"
	}
	return strings.Repeat("★", *v)
}

func fmtCount(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
