package httpapi

import (
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	app "github.com/lucasmieiro/finterm/internal/app"
	"github.com/lucasmieiro/finterm/internal/app/metrics"
	heatmapsvc "github.com/lucasmieiro/finterm/internal/app/services/heatmap"
	"github.com/lucasmieiro/finterm/internal/app/storage"
	"github.com/lucasmieiro/finterm/pkg/logger"
)

//go:embed static
var staticFiles embed.FS

// handler bundles the HTTP endpoints for the terminal.
type handler struct {
	app *app.Application
	log *logger.Logger
}

// NewHandler returns a router exposing the dashboard and its JSON API.
func NewHandler(application *app.Application, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/panels", h.panels).Methods(http.MethodGet)
	api.HandleFunc("/panels/{id}", h.panel).Methods(http.MethodGet)
	api.HandleFunc("/panels/{id}/history", h.panelHistory).Methods(http.MethodGet)
	api.HandleFunc("/news", h.news).Methods(http.MethodGet)
	api.HandleFunc("/heatmap", h.heatmap).Methods(http.MethodGet)
	api.HandleFunc("/status", h.status).Methods(http.MethodGet)
	api.HandleFunc("/stream", h.stream).Methods(http.MethodGet)

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	r.PathPrefix("/").Handler(http.FileServer(http.FS(static)))

	return r
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// panelSummary is the list view of one panel.
type panelSummary struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Unit        string     `json:"unit"`
	Price       *float64   `json:"price,omitempty"`
	Display     string     `json:"display"`
	Source      string     `json:"source,omitempty"`
	CollectedAt *time.Time `json:"collected_at,omitempty"`
}

func (h *handler) panels(w http.ResponseWriter, r *http.Request) {
	panels := h.app.Market.Panels()
	out := make([]panelSummary, 0, len(panels))
	for _, panel := range panels {
		summary := panelSummary{
			ID:      panel.ID,
			Title:   panel.Title,
			Unit:    panel.Unit,
			Display: "-",
		}
		snap, err := h.app.Market.Latest(r.Context(), panel.ID)
		if err == nil {
			price := snap.Price
			collected := snap.CollectedAt
			summary.Price = &price
			summary.Display = formatValue(panel.Unit, price)
			summary.Source = snap.Source
			summary.CollectedAt = &collected
		} else if !errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		out = append(out, summary)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) panel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	panel, err := h.app.Market.Panel(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	snap, err := h.app.Market.Latest(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"panel":    panel.ID,
		"title":    panel.Title,
		"unit":     panel.Unit,
		"display":  formatValue(panel.Unit, snap.Price),
		"snapshot": snap,
	})
}

func (h *handler) panelHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	snaps, err := h.app.Market.History(r.Context(), id, limit)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (h *handler) news(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.News.Headlines(r.Context(), 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) heatmap(w http.ResponseWriter, r *http.Request) {
	board, err := h.app.Heatmap.Board(r.Context())
	if errors.Is(err, heatmapsvc.ErrDisabled) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"process":         h.app.Status.Snapshot(r.Context()),
		"quiet_hours":     h.app.Refresher.QuietWindowDescription(),
		"quiet_active":    h.app.Refresher.QuietActive(),
		"jobs":            h.app.Refresher.Statuses(),
		"heatmap_enabled": h.app.Heatmap.Enabled(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
