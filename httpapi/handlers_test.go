package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"review-monitor/models"
	"review-monitor/services"
	"review-monitor/storage"
	"review-monitor/utils"
)

type fakeJobs struct {
	running bool
	starts  int
}

func (f *fakeJobs) TryStart(context.Context) bool {
	if f.running {
		return false
	}
	f.running = true
	f.starts++
	return true
}

func (f *fakeJobs) Status() models.JobStatus {
	if f.running {
		return models.JobStatus{State: models.JobRunning}
	}
	return models.JobStatus{State: models.JobIdle}
}

func newTestServer(t *testing.T) (*httptest.Server, *storage.JSONStore, *fakeJobs) {
	t.Helper()
	store, err := storage.NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	jobs := &fakeJobs{}
	logger := utils.NewDiscardLogger()
	srv := httptest.NewServer(NewHandler(Deps{
		Store:  store,
		Jobs:   jobs,
		Stats:  services.NewStatsService(logger),
		Logger: logger,
	}))
	t.Cleanup(srv.Close)
	return srv, store, jobs
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestScrapeRejectsWhileRunning(t *testing.T) {
	srv, _, jobs := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/scrape", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	var first map[string]any
	decode(t, resp, &first)
	if resp.StatusCode != http.StatusAccepted || first["ok"] != true {
		t.Errorf("first trigger: got %d %v", resp.StatusCode, first)
	}

	resp, err = http.Post(srv.URL+"/api/scrape", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	var second map[string]any
	decode(t, resp, &second)
	if resp.StatusCode != http.StatusConflict || second["msg"] != "already running" {
		t.Errorf("second trigger: got %d %v", resp.StatusCode, second)
	}
	if jobs.starts != 1 {
		t.Errorf("got %d starts, want 1", jobs.starts)
	}
}

func TestStatusReportsJobState(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	var st models.JobStatus
	decode(t, resp, &st)
	if st.State != models.JobIdle {
		t.Errorf("got %q, want idle", st.State)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/scrape")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("got %d, want 405", resp.StatusCode)
	}
}

func TestBusinessLifecycle(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/business", "application/json",
		strings.NewReader(`{"name":"Corner Cafe","target_url":"https://maps.example/cafe"}`))
	if err != nil {
		t.Fatal(err)
	}
	var added struct {
		OK       bool                  `json:"ok"`
		Business models.BusinessConfig `json:"business"`
	}
	decode(t, resp, &added)
	if resp.StatusCode != http.StatusCreated || added.Business.ID != 1 {
		t.Fatalf("add: got %d %+v", resp.StatusCode, added)
	}

	resp, err = http.Post(srv.URL+"/api/business", "application/json", strings.NewReader(`{"name":"  "}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("nameless business: got %d, want 400", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/businesses")
	if err != nil {
		t.Fatal(err)
	}
	var list struct {
		Businesses []models.BusinessConfig `json:"businesses"`
	}
	decode(t, resp, &list)
	if len(list.Businesses) != 1 || list.Businesses[0].Name != "Corner Cafe" {
		t.Errorf("list: got %+v", list.Businesses)
	}

	for _, tt := range []struct {
		path string
		want int
	}{
		{"/api/business/1", http.StatusOK},
		{"/api/business/1", http.StatusNotFound},
		{"/api/business/abc", http.StatusBadRequest},
	} {
		req, _ := http.NewRequest(http.MethodDelete, srv.URL+tt.path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.want {
			t.Errorf("DELETE %s: got %d, want %d", tt.path, resp.StatusCode, tt.want)
		}
	}
}

func TestReviewsAndStats(t *testing.T) {
	srv, store, _ := newTestServer(t)
	ctx := context.Background()

	resp, err := http.Get(srv.URL + "/api/reviews")
	if err != nil {
		t.Fatal(err)
	}
	var empty models.Snapshot
	decode(t, resp, &empty)
	if empty.Businesses == nil || len(empty.Businesses) != 0 {
		t.Errorf("expected an empty business list, got %+v", empty.Businesses)
	}

	biz, err := store.AddBusiness(ctx, models.BusinessConfig{Name: "Corner Cafe", TargetURL: "https://maps.example/cafe"})
	if err != nil {
		t.Fatal(err)
	}
	rating, two := 4.4, 2
	text := "too loud"
	snap := &models.Snapshot{
		RunID:     "run-1",
		ScrapedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		Businesses: []models.BusinessScrapeResult{{
			BusinessID:    biz.ID,
			Name:          biz.Name,
			OverallRating: &rating,
			Reviews:       []models.Review{{Rating: &two, Text: text}},
		}},
	}
	if err := store.SaveSnapshot(ctx, snap); err != nil {
		t.Fatal(err)
	}

	resp, err = http.Get(srv.URL + "/api/stats")
	if err != nil {
		t.Fatal(err)
	}
	var stats models.AggregateStats
	decode(t, resp, &stats)
	if stats.TotalReviews != 1 || stats.AverageRating != 4.4 {
		t.Errorf("got %d reviews avg %v, want 1 and 4.4", stats.TotalReviews, stats.AverageRating)
	}
	if len(stats.NeedsResponse) != 1 || stats.NeedsResponse[0].Text != text {
		t.Errorf("got needs_response %+v", stats.NeedsResponse)
	}
	if stats.RatingDistribution[2] != 1 {
		t.Errorf("got distribution %v", stats.RatingDistribution)
	}
}

func TestReplaceBusinesses(t *testing.T) {
	srv, store, _ := newTestServer(t)
	ctx := context.Background()

	if _, err := store.AddBusiness(ctx, models.BusinessConfig{Name: "Gone Soon"}); err != nil {
		t.Fatal(err)
	}

	body := `{"businesses":[{"id":4,"name":"Corner Cafe","target_url":"https://maps.example/cafe"},{"name":"Night Owl"}],
		"settings":{"check_interval_hours":6}}`
	resp, err := http.Post(srv.URL+"/api/businesses", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	var replaced struct {
		OK         bool                    `json:"ok"`
		Businesses []models.BusinessConfig `json:"businesses"`
	}
	decode(t, resp, &replaced)
	if resp.StatusCode != http.StatusOK || !replaced.OK {
		t.Fatalf("replace: got %d %+v", resp.StatusCode, replaced)
	}
	if len(replaced.Businesses) != 2 || replaced.Businesses[1].ID != 5 {
		t.Errorf("got %+v, want the new business numbered 5", replaced.Businesses)
	}

	resp, err = http.Get(srv.URL + "/api/businesses")
	if err != nil {
		t.Fatal(err)
	}
	var dir models.Directory
	decode(t, resp, &dir)
	if len(dir.Businesses) != 2 || dir.Businesses[0].Name != "Corner Cafe" || dir.Settings.CheckIntervalHours != 6 {
		t.Errorf("got %+v", dir)
	}

	for _, tt := range []struct {
		name string
		body string
	}{
		{"malformed", `{"businesses":`},
		{"nameless", `{"businesses":[{"name":""}]}`},
		{"duplicate id", `{"businesses":[{"id":1,"name":"A"},{"id":1,"name":"B"}]}`},
		{"negative interval", `{"settings":{"check_interval_hours":-1}}`},
	} {
		resp, err := http.Post(srv.URL+"/api/businesses", "application/json", strings.NewReader(tt.body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", tt.name, resp.StatusCode)
		}
	}

	list, err := store.ListBusinesses(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("rejected bodies changed the list: %+v", list)
	}
}

func TestSummaryWithoutSnapshot(t *testing.T) {
	store, err := storage.NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	h := DataHandler{Store: store, Stats: services.NewStatsService(utils.NewDiscardLogger())}

	rec := httptest.NewRecorder()
	h.Summary(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
	var stats models.AggregateStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalBusinesses != 0 || stats.TotalReviews != 0 {
		t.Errorf("got %+v, want empty stats", stats)
	}
}
