// Package httpapi exposes the job trigger, job status and dashboard data
// over HTTP.
package httpapi

import (
	"context"
	"net/http"

	"review-monitor/models"
	"review-monitor/services"
	"review-monitor/storage"
	"review-monitor/utils"
)

// Jobs is the part of the job manager the API needs.
type Jobs interface {
	TryStart(ctx context.Context) bool
	Status() models.JobStatus
}

type Deps struct {
	Store  storage.Store
	Jobs   Jobs
	Stats  *services.StatsService
	Logger *utils.Logger

	// RunContext bounds runs triggered over HTTP. When nil they are
	// detached from the triggering request only.
	RunContext context.Context
}

// NewMux wires every route.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	sh := ScrapeHandler{Jobs: d.Jobs, RunContext: d.RunContext}
	mux.HandleFunc("/api/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sh.Status,
	}))
	mux.HandleFunc("/api/scrape", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sh.Run,
	}))

	dh := DataHandler{Store: d.Store, Stats: d.Stats}
	mux.HandleFunc("/api/reviews", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: dh.Reviews,
	}))
	mux.HandleFunc("/api/stats", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: dh.Summary,
	}))

	bh := BusinessHandler{Store: d.Store, Logger: d.Logger}
	mux.HandleFunc("/api/businesses", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  bh.List,
		http.MethodPost: bh.Replace,
	}))
	mux.HandleFunc("/api/business", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: bh.Add,
	}))
	mux.HandleFunc("/api/business/", methodMux(map[string]http.HandlerFunc{
		http.MethodDelete: bh.DeleteByPath, // expects /api/business/{id}
	}))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	return mux
}

// NewHandler returns the mux wrapped in panic recovery and access logging.
func NewHandler(d Deps) http.Handler {
	return Chain(NewMux(d), Recover(d.Logger), AccessLog(d.Logger))
}
