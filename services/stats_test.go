package services

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"review-monitor/models"
	"review-monitor/utils"
)

func floatPtr(f float64) *float64 { return &f }

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate(nil, nil)

	if got.TotalBusinesses != 0 || got.TotalReviews != 0 || got.AverageRating != 0 {
		t.Errorf("expected zero totals, got %+v", got)
	}
	want := map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
	if diff := cmp.Diff(want, got.RatingDistribution); diff != "" {
		t.Errorf("distribution mismatch (-want +got):\n%s", diff)
	}
	if got.Businesses == nil || got.RecentReviews == nil || got.NeedsResponse == nil {
		t.Error("expected empty, non-nil lists")
	}
}

func scenarioInput(rating *float64) ([]models.BusinessConfig, map[int64]models.BusinessScrapeResult) {
	configs := []models.BusinessConfig{
		{ID: 1, Name: "A", TargetURL: "https://maps.example/a"},
		{ID: 2, Name: "B", TargetURL: "https://maps.example/b"},
	}
	results := map[int64]models.BusinessScrapeResult{
		1: {
			BusinessID:    1,
			Name:          "A",
			OverallRating: rating,
			Reviews: []models.Review{
				{ReviewerName: strPtr("Ann"), Rating: intPtr(5), Text: "great", OwnerResponse: strPtr("thanks")},
				{ReviewerName: strPtr("Bob"), Rating: intPtr(2), Text: "slow service"},
				{ReviewerName: strPtr("Cy"), Rating: intPtr(4), Text: "good"},
			},
		},
	}
	return configs, results
}

func TestAggregateTwoBusinessScenario(t *testing.T) {
	configs, results := scenarioInput(floatPtr(4.3))
	got := Aggregate(configs, results)

	if got.TotalBusinesses != 2 {
		t.Errorf("got %d businesses, want 2", got.TotalBusinesses)
	}
	if got.TotalReviews != 3 {
		t.Errorf("got %d reviews, want 3", got.TotalReviews)
	}
	wantDist := map[int]int{1: 0, 2: 1, 3: 0, 4: 1, 5: 1}
	if diff := cmp.Diff(wantDist, got.RatingDistribution); diff != "" {
		t.Errorf("distribution mismatch (-want +got):\n%s", diff)
	}
	if len(got.NeedsResponse) != 1 || got.NeedsResponse[0].Text != "slow service" || got.NeedsResponse[0].BusinessID != 1 {
		t.Errorf("got needs_response %+v, want Bob's review", got.NeedsResponse)
	}
	if got.AverageRating != 4.3 {
		t.Errorf("got average %v, want 4.3", got.AverageRating)
	}

	b := got.Businesses[1]
	if b.ID != 2 || b.ReviewCount != 0 || b.Rating != nil {
		t.Errorf("B without a result: got %+v", b)
	}
	if b.URL != "https://maps.example/b" {
		t.Errorf("got url %q, want the configured one", b.URL)
	}
}

func TestAggregateAverageWithoutRatings(t *testing.T) {
	configs, results := scenarioInput(nil)
	if got := Aggregate(configs, results).AverageRating; got != 0 {
		t.Errorf("got average %v, want 0", got)
	}
}

func TestAggregateAverageRounding(t *testing.T) {
	configs := []models.BusinessConfig{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}, {ID: 3, Name: "C"}}
	results := map[int64]models.BusinessScrapeResult{
		1: {BusinessID: 1, OverallRating: floatPtr(4.0)},
		2: {BusinessID: 2, OverallRating: floatPtr(4.5)},
		3: {BusinessID: 3, OverallRating: floatPtr(4.6)},
	}
	if got := Aggregate(configs, results).AverageRating; got != 4.37 {
		t.Errorf("got %v, want 4.37", got)
	}
}

func TestAggregateIsDeterministic(t *testing.T) {
	configs, results := scenarioInput(floatPtr(4.3))
	first := Aggregate(configs, results)
	second := Aggregate(configs, results)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("aggregate is not deterministic (-first +second):\n%s", diff)
	}
}

func TestAggregateIgnoresUnknownBusinesses(t *testing.T) {
	configs, results := scenarioInput(floatPtr(4.3))
	results[99] = models.BusinessScrapeResult{
		BusinessID:    99,
		OverallRating: floatPtr(1.0),
		Reviews:       []models.Review{{Rating: intPtr(1), Text: "gone"}},
	}

	got := Aggregate(configs, results)
	if got.TotalReviews != 3 || got.AverageRating != 4.3 || len(got.Businesses) != 2 {
		t.Errorf("orphaned result leaked into stats: %+v", got)
	}
}

func TestAggregateNeedsResponseExcludesAnswered(t *testing.T) {
	configs := []models.BusinessConfig{{ID: 1, Name: "A"}}
	var reviews []models.Review
	for i := 1; i <= 5; i++ {
		rating := i
		reviews = append(reviews,
			models.Review{Rating: &rating, Text: fmt.Sprintf("answered %d", i), OwnerResponse: strPtr("sorry")},
			models.Review{Rating: &rating, Text: fmt.Sprintf("open %d", i)},
			models.Review{Rating: &rating, Text: fmt.Sprintf("blank reply %d", i), OwnerResponse: strPtr("")},
		)
	}
	reviews = append(reviews, models.Review{Text: "no rating"})

	got := Aggregate(configs, map[int64]models.BusinessScrapeResult{1: {BusinessID: 1, Reviews: reviews}})
	for _, e := range got.NeedsResponse {
		if e.HasOwnerResponse() {
			t.Errorf("answered review in needs_response: %q", e.Text)
		}
		if e.Rating == nil || *e.Rating > 3 {
			t.Errorf("review rated %v in needs_response", e.Rating)
		}
	}
	if len(got.NeedsResponse) != 6 {
		t.Errorf("got %d entries, want 6", len(got.NeedsResponse))
	}
}

func TestAggregateCapsAndTruncates(t *testing.T) {
	var configs []models.BusinessConfig
	results := map[int64]models.BusinessScrapeResult{}
	long := strings.Repeat("é", 250)
	for id := int64(1); id <= 6; id++ {
		configs = append(configs, models.BusinessConfig{ID: id, Name: fmt.Sprintf("B%d", id)})
		var reviews []models.Review
		for i := 0; i < 8; i++ {
			reviews = append(reviews, models.Review{Rating: intPtr(1), Text: long})
		}
		results[id] = models.BusinessScrapeResult{BusinessID: id, Reviews: reviews}
	}

	got := Aggregate(configs, results)
	if len(got.RecentReviews) != RecentLimit {
		t.Errorf("got %d recent, want %d", len(got.RecentReviews), RecentLimit)
	}
	if got.RecentReviews[RecentPerBusiness].BusinessID != 2 {
		t.Errorf("recent list should take %d per business before moving on", RecentPerBusiness)
	}
	if len(got.NeedsResponse) != NeedsResponseLimit {
		t.Errorf("got %d needs_response, want %d", len(got.NeedsResponse), NeedsResponseLimit)
	}
	if n := len([]rune(got.NeedsResponse[0].Text)); n != 200 {
		t.Errorf("got %d runes, want 200", n)
	}
	if n := len([]rune(results[1].Reviews[0].Text)); n != 250 {
		t.Errorf("input review was modified: %d runes", n)
	}
	if len([]rune(got.RecentReviews[0].Text)) != 250 {
		t.Error("recent reviews must keep the full text")
	}
}

func TestAggregateHistogramSkipsOutOfRange(t *testing.T) {
	configs := []models.BusinessConfig{{ID: 1, Name: "A"}}
	results := map[int64]models.BusinessScrapeResult{1: {BusinessID: 1, Reviews: []models.Review{
		{Rating: intPtr(0), Text: "zero"},
		{Rating: intPtr(7), Text: "seven"},
		{Rating: intPtr(3), Text: "three"},
	}}}

	got := Aggregate(configs, results)
	if got.TotalReviews != 3 {
		t.Errorf("got %d reviews, want 3", got.TotalReviews)
	}
	want := map[int]int{1: 0, 2: 0, 3: 1, 4: 0, 5: 0}
	if diff := cmp.Diff(want, got.Businesses[0].RatingDistribution); diff != "" {
		t.Errorf("distribution mismatch (-want +got):\n%s", diff)
	}
}

func TestStatsServiceGenerateAndPrint(t *testing.T) {
	svc := NewStatsService(utils.NewDiscardLogger())
	configs, results := scenarioInput(floatPtr(4.3))

	if st := svc.Generate(configs, nil); st.ScrapedAt != nil || st.TotalReviews != 0 {
		t.Errorf("without a snapshot: got %+v", st)
	}

	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	snap := &models.Snapshot{RunID: "r1", ScrapedAt: at, Businesses: []models.BusinessScrapeResult{results[1]}}
	st := svc.Generate(configs, snap)
	if st.ScrapedAt == nil || !st.ScrapedAt.Equal(at) {
		t.Errorf("got scraped_at %v, want %v", st.ScrapedAt, at)
	}

	var buf bytes.Buffer
	svc.Print(&buf, st)
	out := buf.String()
	for _, want := range []string{"REVIEW MONITOR", "NEEDS RESPONSE (1)", "slow service", "4.30"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
