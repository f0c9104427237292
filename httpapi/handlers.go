package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"review-monitor/models"
	"review-monitor/services"
	"review-monitor/storage"
	"review-monitor/utils"
)

type ScrapeHandler struct {
	Jobs       Jobs
	RunContext context.Context
}

func (h ScrapeHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Jobs.Status())
}

// Run triggers a scrape and returns at once; progress is read from Status.
func (h ScrapeHandler) Run(w http.ResponseWriter, r *http.Request) {
	ctx := h.RunContext
	if ctx == nil {
		// the run outlives the request
		ctx = context.WithoutCancel(r.Context())
	}
	if !h.Jobs.TryStart(ctx) {
		writeJSON(w, http.StatusConflict, map[string]any{"ok": false, "msg": "already running", "status": h.Jobs.Status()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true, "status": h.Jobs.Status()})
}

type DataHandler struct {
	Store storage.Store
	Stats *services.StatsService
}

// Reviews returns the latest snapshot, or an empty one if nothing has been
// scraped yet.
func (h DataHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Store.LatestSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if snap == nil {
		snap = &models.Snapshot{Businesses: []models.BusinessScrapeResult{}}
	}
	writeJSON(w, http.StatusOK, snap)
}

// Summary serves the aggregate stats of the latest snapshot.
func (h DataHandler) Summary(w http.ResponseWriter, r *http.Request) {
	configs, err := h.Store.ListBusinesses(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	snap, err := h.Store.LatestSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.Stats.Generate(configs, snap))
}

type BusinessHandler struct {
	Store  storage.BusinessStore
	Logger *utils.Logger
}

// List returns the whole directory: businesses and settings.
func (h BusinessHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.ListBusinesses(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	settings, err := h.Store.Settings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.Directory{Businesses: list, Settings: settings})
}

// Replace overwrites the directory with the posted one.
func (h BusinessHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var dir models.Directory
	if err := json.NewDecoder(r.Body).Decode(&dir); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	stored, err := h.Store.ReplaceBusinesses(r.Context(), dir)
	switch {
	case storage.IsInvalid(err):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.Logger.Info("[http] Replaced business list: %d businesses", len(stored.Businesses))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "businesses": stored.Businesses, "settings": stored.Settings})
}

func (h BusinessHandler) Add(w http.ResponseWriter, r *http.Request) {
	var b models.BusinessConfig
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	b.ID = 0

	added, err := h.Store.AddBusiness(r.Context(), b)
	switch {
	case storage.IsInvalid(err):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.Logger.Info("[http] Added business %d: %s", added.ID, added.Name)
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "business": added})
}

func (h BusinessHandler) DeleteByPath(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/business/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	err = h.Store.DeleteBusiness(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrBusinessNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.Logger.Info("[http] Removed business %d", id)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": id})
}
