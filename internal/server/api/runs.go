package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ayusman/beltcount/internal/store"
)

// RunsHandler serves stored runs and their crossing events.
type RunsHandler struct {
	store *store.Store
}

// NewRunsHandler creates a new RunsHandler with the given store.
func NewRunsHandler(s *store.Store) *RunsHandler {
	return &RunsHandler{store: s}
}

// ServeHTTP routes requests to the appropriate method.
// Expected paths: /api/runs, /api/runs/{id}, /api/runs/{id}/crossings
func (h *RunsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/runs")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id := parts[0]

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "crossings":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.crossings(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type runResponse struct {
	ID         string          `json:"id"`
	Source     string          `json:"source"`
	Policy     string          `json:"policy"`
	Frames     int             `json:"frames"`
	Count      int             `json:"count"`
	Settings   json.RawMessage `json:"settings,omitempty"`
	StartedAt  string          `json:"started_at"`
	FinishedAt string          `json:"finished_at,omitempty"`
	Age        string          `json:"age"`
}

type listRunsResponse struct {
	Runs []runResponse `json:"runs"`
}

type listCrossingsResponse struct {
	RunID     string                `json:"run_id"`
	Crossings []store.CrossingEvent `json:"crossings"`
}

func toResponse(run *store.Run) runResponse {
	resp := runResponse{
		ID:        run.ID,
		Source:    run.Source,
		Policy:    run.Policy,
		Frames:    run.Frames,
		Count:     run.Count,
		Settings:  run.Settings,
		StartedAt: run.StartedAt.Format(timeLayout),
		Age:       humanize.Time(run.StartedAt),
	}
	if run.FinishedAt != nil {
		resp.FinishedAt = run.FinishedAt.Format(timeLayout)
	}
	return resp
}

// list handles GET /api/runs?limit=N
func (h *RunsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	runs, err := h.store.Runs().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	response := listRunsResponse{
		Runs: make([]runResponse, 0, len(runs)),
	}
	for _, run := range runs {
		response.Runs = append(response.Runs, toResponse(run))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/runs/{id}
func (h *RunsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	run, err := h.store.Runs().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(run))
}

// delete handles DELETE /api/runs/{id}
func (h *RunsHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Runs().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete run")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// crossings handles GET /api/runs/{id}/crossings
func (h *RunsHandler) crossings(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.store.Runs().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to verify run")
		return
	}

	events, err := h.store.Crossings().ListByRun(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list crossings")
		return
	}

	writeJSON(w, http.StatusOK, listCrossingsResponse{RunID: id, Crossings: events})
}
