package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/mailchimp-reporter/internal/export"
	"github.com/ignite/mailchimp-reporter/internal/opener"
	"github.com/ignite/mailchimp-reporter/internal/pkg/httputil"
	"github.com/ignite/mailchimp-reporter/internal/report"
	"github.com/ignite/mailchimp-reporter/internal/reports"
	"github.com/ignite/mailchimp-reporter/internal/settings"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	settings  *settings.Store
	reports   *reports.Store
	generator *report.Generator
	hub       *EventHub

	// open launches a file in the OS default viewer; injectable for tests
	open func(path string) error

	// genMu serialises report generation: one run per process
	genMu sync.Mutex
}

// NewHandlers creates a new Handlers instance
func NewHandlers(settingsStore *settings.Store, reportStore *reports.Store, generator *report.Generator, hub *EventHub) *Handlers {
	return &Handlers{
		settings:  settingsStore,
		reports:   reportStore,
		generator: generator,
		hub:       hub,
		open:      opener.Open,
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// GetSettings handles GET /api/settings
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.settings.Load()
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, cfg)
}

// SaveSettings handles POST /api/settings
func (h *Handlers) SaveSettings(w http.ResponseWriter, r *http.Request) {
	var cfg settings.Settings
	if !httputil.Decode(w, r, &cfg) {
		return
	}
	if err := h.settings.Save(cfg); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, cfg)
}

// GetSettingsPath handles GET /api/settings/path
func (h *Handlers) GetSettingsPath(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"path": h.settings.Path()})
}

// ListReports handles GET /api/reports
func (h *Handlers) ListReports(w http.ResponseWriter, r *http.Request) {
	list, err := h.reports.List()
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, list)
}

// SaveReport handles POST /api/reports
func (h *Handlers) SaveReport(w http.ResponseWriter, r *http.Request) {
	var saved report.SavedReport
	if !httputil.Decode(w, r, &saved) {
		return
	}
	if err := h.reports.Append(saved); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Created(w, saved)
}

// DeleteReport handles DELETE /api/reports/{id}
func (h *Handlers) DeleteReport(w http.ResponseWriter, r *http.Request) {
	if err := h.reports.Delete(chi.URLParam(r, "id")); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

// GenerateReport handles POST /api/reports/generate. The generation
// runs synchronously; progress streams to the front end over SSE while
// the request is in flight.
func (h *Handlers) GenerateReport(w http.ResponseWriter, r *http.Request) {
	var req report.ReportRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	if !h.genMu.TryLock() {
		httputil.Conflict(w, "a report generation is already running")
		return
	}
	defer h.genMu.Unlock()

	resp, err := h.generator.Generate(r.Context(), req, h.hub)
	if err != nil {
		var inputErr *report.InputError
		if errors.As(err, &inputErr) {
			httputil.BadRequest(w, inputErr.Message)
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, resp)
}

// findReport looks a saved report up by id.
func (h *Handlers) findReport(id string) (report.SavedReport, bool, error) {
	list, err := h.reports.List()
	if err != nil {
		return report.SavedReport{}, false, err
	}
	for _, saved := range list {
		if saved.ID == id {
			return saved, true, nil
		}
	}
	return report.SavedReport{}, false, nil
}

func (h *Handlers) lookupReport(w http.ResponseWriter, r *http.Request) (report.SavedReport, bool) {
	saved, found, err := h.findReport(chi.URLParam(r, "id"))
	if err != nil {
		httputil.InternalError(w, err)
		return report.SavedReport{}, false
	}
	if !found {
		httputil.NotFound(w, "report not found")
		return report.SavedReport{}, false
	}
	return saved, true
}

// OpenReportInExcel handles POST /api/reports/{id}/excel: writes the
// CSV to the OS temp directory, hands it to the default spreadsheet
// application, and returns the written path.
func (h *Handlers) OpenReportInExcel(w http.ResponseWriter, r *http.Request) {
	saved, ok := h.lookupReport(w, r)
	if !ok {
		return
	}
	path, err := export.WriteTempCSV(saved)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if err := h.open(path); err != nil {
		log.Printf("[api] open in excel failed: %v", err)
	}
	httputil.OK(w, map[string]string{"path": path})
}

// DownloadReport handles POST /api/reports/{id}/download: writes the
// full report JSON into the configured download directory.
func (h *Handlers) DownloadReport(w http.ResponseWriter, r *http.Request) {
	saved, ok := h.lookupReport(w, r)
	if !ok {
		return
	}
	cfg, err := h.settings.Load()
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	path, err := export.WriteJSON(saved, cfg.DownloadDirectory)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"path": path})
}

// DownloadCSV handles POST /api/reports/{id}/csv: writes the
// metric-selected CSV into the configured download directory.
func (h *Handlers) DownloadCSV(w http.ResponseWriter, r *http.Request) {
	saved, ok := h.lookupReport(w, r)
	if !ok {
		return
	}
	cfg, err := h.settings.Load()
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	path, err := export.WriteCSV(saved, cfg.DownloadDirectory)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"path": path})
}

// OpenPath handles POST /api/open: opens an arbitrary previously
// exported file in the OS default application.
func (h *Handlers) OpenPath(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Path string `json:"path"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	if body.Path == "" {
		httputil.BadRequest(w, "path is required")
		return
	}
	if err := h.open(body.Path); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

// WriteReportFile handles POST /api/report-file: writes an arbitrary
// report document pretty-printed to the given path (the front end's
// save-as dialog supplies the path).
func (h *Handlers) WriteReportFile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Path   string          `json:"path"`
		Report json.RawMessage `json:"report"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	if body.Path == "" {
		httputil.BadRequest(w, "path is required")
		return
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body.Report, "", "  "); err != nil {
		httputil.BadRequest(w, "invalid report document: "+err.Error())
		return
	}
	if err := os.WriteFile(body.Path, pretty.Bytes(), 0644); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}
