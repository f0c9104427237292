// Package google holds the selector chains for Google Maps place pages.
// Google ships obfuscated, frequently rotated class names, so every field
// carries several fallbacks ordered from most to least specific.
package google

import (
	"regexp"

	"review-monitor/scraper"
)

var (
	// starsLabelRegexp matches the "4.6 stars" label embedded in the page markup
	starsLabelRegexp = regexp.MustCompile(`"(\d[.,]\d)\s*stars"`)
	// reviewsCountRegexp matches "1,234 reviews" anywhere in a string
	reviewsCountRegexp = regexp.MustCompile(`(?i)(\d[\d,.\x{00a0}]*)\s*reviews`)
)

// Profile returns the Google Maps site profile.
func Profile() scraper.Profile {
	return scraper.Profile{
		OverallRating: scraper.Field[float64]{
			Name: "overall_rating",
			Strategies: []scraper.Strategy{
				{Name: "content-stars-label", Content: true, Pattern: starsLabelRegexp},
				{Name: "header-rating", Query: `div.F7nice span[aria-hidden="true"]`},
				{Name: "stars-img-label", Query: `div.F7nice span[role="img"]`, Attr: "aria-label"},
				{Name: "summary-rating", Query: `div.fontDisplayLarge`},
			},
			Parse: scraper.ParseRating,
		},
		ReviewCount: scraper.Field[int]{
			Name: "total_reviews",
			Strategies: []scraper.Strategy{
				{Name: "header-count-label", Query: `div.F7nice span[aria-label*="reviews"]`, Attr: "aria-label", Pattern: reviewsCountRegexp},
				{Name: "chart-button", Query: `button[jsaction*="reviewChart"]`, Pattern: reviewsCountRegexp},
				{Name: "content-count", Content: true, Pattern: reviewsCountRegexp},
			},
			Parse: scraper.ParseCount,
		},
		Review: scraper.ReviewFields{
			Name: scraper.Field[string]{
				Name: "reviewer_name",
				Strategies: []scraper.Strategy{
					{Name: "name-block", Query: `div.d4r55`},
					{Name: "contributor-button", Query: `button[data-href*="/contrib/"] div`},
					{Name: "item-label", Attr: "aria-label"},
				},
				Parse: scraper.ParseFirstLine,
			},
			Rating: scraper.Field[int]{
				Name: "rating",
				Strategies: []scraper.Strategy{
					{Name: "stars-span", Query: `span.kvMYJc`, Attr: "aria-label"},
					{Name: "stars-img", Query: `span[role="img"][aria-label*="star"]`, Attr: "aria-label"},
					{Name: "score-text", Query: `span.fzvQIb`},
				},
				Parse: scraper.ParseStars,
			},
			Text: scraper.Field[string]{
				Name: "text",
				Strategies: []scraper.Strategy{
					{Name: "text-span", Query: `span.wiI7pd`},
					{Name: "text-block", Query: `div.MyEned span`},
				},
				Parse: scraper.ParseText,
			},
			Date: scraper.Field[string]{
				Name: "date",
				Strategies: []scraper.Strategy{
					{Name: "date-span", Query: `span.rsqaWe`},
					{Name: "date-alt", Query: `span.xRkPPb`},
				},
				Parse: scraper.ParseText,
			},
			Response: scraper.Field[string]{
				Name: "owner_response",
				Strategies: []scraper.Strategy{
					{Name: "reply-text", Query: `div.CDe7pd div.wiI7pd`},
					{Name: "reply-block", Query: `div.CDe7pd`},
				},
				Parse: scraper.ParseText,
			},
		},
		Loader: scraper.LoaderQueries{
			Activate: []string{
				`button[aria-label*="Reviews"]`,
				`button[role="tab"][aria-label*="Reviews"]`,
				`button[jsaction*="pane.reviewChart.moreReviews"]`,
			},
			Container: []string{
				`div.m6QErb.DxyBCb`,
				`div.m6QErb`,
				`div[role="main"] div[tabindex="-1"]`,
			},
			Items: []string{
				`div.jftiEf[data-review-id]`,
				`div[data-review-id]`,
				`div.jftiEf`,
			},
		},
	}
}
