package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"review-monitor/models"
	"review-monitor/storage"
	"review-monitor/utils"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int { return &n }

type fakeScraper struct {
	mu      sync.Mutex
	calls   []string
	results map[string]*models.BusinessScrapeResult
	block   chan struct{}
}

func (f *fakeScraper) Scrape(ctx context.Context, biz models.BusinessConfig) *models.BusinessScrapeResult {
	f.mu.Lock()
	f.calls = append(f.calls, biz.Name)
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
	}
	if r, ok := f.results[biz.Name]; ok {
		return r
	}
	return &models.BusinessScrapeResult{Name: biz.Name, URL: biz.TargetURL, Reviews: []models.Review{}}
}

func (f *fakeScraper) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeBusinesses struct {
	list []models.BusinessConfig
	err  error
}

func (f fakeBusinesses) ListBusinesses(context.Context) ([]models.BusinessConfig, error) {
	return f.list, f.err
}

type recordingSnapshots struct {
	mu    sync.Mutex
	saves []int
	last  *models.Snapshot
	err   error
}

func (r *recordingSnapshots) SaveSnapshot(_ context.Context, s *models.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saves = append(r.saves, len(s.Businesses))
	r.last = s.Clone()
	return nil
}

func (r *recordingSnapshots) LatestSnapshot(context.Context) (*models.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, nil
}

type recordingProgress struct {
	total   int
	targets []string
}

func (p *recordingProgress) Begin(total int) { p.total = total }
func (p *recordingProgress) Advance(target string) { p.targets = append(p.targets, target) }

func threeBusinesses() []models.BusinessConfig {
	return []models.BusinessConfig{
		{ID: 1, Name: "Alpha", TargetURL: "https://maps.example/alpha"},
		{ID: 2, Name: "Bravo", TargetURL: ""},
		{ID: 3, Name: "Charlie", TargetURL: "https://maps.example/charlie"},
	}
}

func TestOrchestratorSkipsBusinessesWithoutURL(t *testing.T) {
	sc := &fakeScraper{}
	snaps := &recordingSnapshots{}
	o := NewOrchestrator(fakeBusinesses{list: threeBusinesses()}, snaps, sc, 0, utils.NewDiscardLogger())

	p := &recordingProgress{}
	snap, err := o.Run(context.Background(), "run-1", p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := sc.Calls(); len(got) != 2 || got[0] != "Alpha" || got[1] != "Charlie" {
		t.Errorf("scraped %v, want [Alpha Charlie]", got)
	}
	if len(snap.Businesses) != 2 {
		t.Fatalf("got %d results, want 2", len(snap.Businesses))
	}
	if snap.RunID != "run-1" {
		t.Errorf("got run id %q, want run-1", snap.RunID)
	}
	if p.total != 3 || len(p.targets) != 3 {
		t.Errorf("got progress %d/%d, want 3/3", len(p.targets), p.total)
	}
}

func TestOrchestratorSavesAfterEachBusiness(t *testing.T) {
	snaps := &recordingSnapshots{}
	o := NewOrchestrator(fakeBusinesses{list: threeBusinesses()}, snaps, &fakeScraper{}, 0, utils.NewDiscardLogger())

	if _, err := o.Run(context.Background(), "run-1", &recordingProgress{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []int{1, 2, 2}
	if len(snaps.saves) != len(want) {
		t.Fatalf("got saves %v, want %v", snaps.saves, want)
	}
	for i := range want {
		if snaps.saves[i] != want[i] {
			t.Errorf("save %d: got %d results, want %d", i, snaps.saves[i], want[i])
		}
	}
}

func TestOrchestratorKeepsFailedBusinessInResults(t *testing.T) {
	sc := &fakeScraper{results: map[string]*models.BusinessScrapeResult{
		"Alpha": {Name: "Alpha", Error: "navigate: timeout"},
	}}
	o := NewOrchestrator(fakeBusinesses{list: threeBusinesses()}, &recordingSnapshots{}, sc, 0, utils.NewDiscardLogger())

	snap, err := o.Run(context.Background(), "run-1", &recordingProgress{})
	if err != nil {
		t.Fatalf("a per-business failure must not fail the run: %v", err)
	}
	got := snap.ResultsByID()
	if got[1].Error == "" {
		t.Error("expected Alpha to carry its error")
	}
	if got[1].Reviews == nil {
		t.Error("expected an empty, non-nil review list")
	}
	if got[3].Error != "" {
		t.Errorf("Charlie: unexpected error %q", got[3].Error)
	}
}

func TestOrchestratorFailsWhenConfigUnreadable(t *testing.T) {
	o := NewOrchestrator(fakeBusinesses{err: errors.New("disk on fire")}, &recordingSnapshots{}, &fakeScraper{}, 0, utils.NewDiscardLogger())

	_, err := o.Run(context.Background(), "run-1", &recordingProgress{})
	if err == nil || !strings.Contains(err.Error(), "load businesses") {
		t.Fatalf("got %v, want load businesses error", err)
	}
}

func TestOrchestratorFailsWhenFinalSaveFails(t *testing.T) {
	snaps := &recordingSnapshots{err: errors.New("read-only")}
	o := NewOrchestrator(fakeBusinesses{list: threeBusinesses()}, snaps, &fakeScraper{}, 0, utils.NewDiscardLogger())

	snap, err := o.Run(context.Background(), "run-1", &recordingProgress{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if snap == nil || len(snap.Businesses) != 2 {
		t.Errorf("expected the collected results back alongside the error")
	}
}

func TestOrchestratorStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	o := NewOrchestrator(fakeBusinesses{list: threeBusinesses()}, &recordingSnapshots{}, &fakeScraper{}, time.Hour, utils.NewDiscardLogger())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := o.Run(ctx, "run-1", &recordingProgress{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestOrchestratorWithJSONStore(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	a, _ := store.AddBusiness(ctx, models.BusinessConfig{Name: "Alpha", TargetURL: "https://maps.example/alpha"})
	b, _ := store.AddBusiness(ctx, models.BusinessConfig{Name: "Bravo", TargetURL: "https://maps.example/bravo"})

	sc := &fakeScraper{results: map[string]*models.BusinessScrapeResult{
		"Alpha": {Name: "Alpha", Reviews: []models.Review{{ReviewerName: strPtr("Ann"), Rating: intPtr(2), Text: "cold"}}},
	}}
	o := NewOrchestrator(store, store, sc, 0, utils.NewDiscardLogger())
	if _, err := o.Run(ctx, "run-1", &recordingProgress{}); err != nil {
		t.Fatal(err)
	}

	snap, err := store.LatestSnapshot(ctx)
	if err != nil || snap == nil {
		t.Fatalf("latest snapshot: %v, %v", snap, err)
	}
	got := snap.ResultsByID()
	if len(got[a.ID].Reviews) != 1 {
		t.Errorf("got %d reviews for Alpha, want 1", len(got[a.ID].Reviews))
	}
	if _, ok := got[b.ID]; !ok {
		t.Error("missing Bravo result")
	}
}
