// Package reports persists generated reports as a single JSON array
// (reports.json) in the per-user config directory.
package reports

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ignite/mailchimp-reporter/internal/report"
)

const fileName = "reports.json"

// Store reads and writes the reports document rooted at a directory.
// Stored order is insertion order; callers sort for display.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path() string {
	return filepath.Join(s.dir, fileName)
}

// savedReportDoc mirrors report.SavedReport with a nullable metric
// selection, so documents written before metric selection existed can
// be read back (they default to all metrics enabled).
type savedReportDoc struct {
	ID         string                  `json:"id"`
	Name       string                  `json:"name"`
	Advertiser string                  `json:"advertiser"`
	ReportType string                  `json:"report_type"`
	DateRange  report.DateRange        `json:"date_range"`
	Created    string                  `json:"created"`
	Data       report.ReportData       `json:"data"`
	Metrics    *report.MetricSelection `json:"metrics"`
}

func (d savedReportDoc) toSavedReport() report.SavedReport {
	metrics := report.AllMetrics()
	if d.Metrics != nil {
		metrics = *d.Metrics
	}
	return report.SavedReport{
		ID:         d.ID,
		Name:       d.Name,
		Advertiser: d.Advertiser,
		ReportType: d.ReportType,
		DateRange:  d.DateRange,
		Created:    d.Created,
		Data:       d.Data,
		Metrics:    metrics,
	}
}

// List reads the reports document, returning the empty sequence when
// it does not exist. Each element is decoded tolerantly: a record that
// fails the typed decode is re-read field by field with defaults, so
// older-schema records never break the whole list.
func (s *Store) List() ([]report.SavedReport, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return []report.SavedReport{}, nil
		}
		return nil, fmt.Errorf("reading reports: %w", err)
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, fmt.Errorf("parsing reports: %w", err)
	}

	reports := make([]report.SavedReport, 0, len(elements))
	for _, raw := range elements {
		var doc savedReportDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			doc = fromUntyped(raw)
		}
		reports = append(reports, doc.toSavedReport())
	}
	return reports, nil
}

// fromUntyped extracts the scalar fields best-effort from a record
// that failed the typed decode. The data payload of such a record is
// left empty rather than guessed at.
func fromUntyped(raw json.RawMessage) savedReportDoc {
	var tree map[string]interface{}
	if err := json.Unmarshal(raw, &tree); err != nil {
		return savedReportDoc{}
	}

	var doc savedReportDoc
	doc.ID, _ = tree["id"].(string)
	doc.Name, _ = tree["name"].(string)
	doc.Advertiser, _ = tree["advertiser"].(string)
	doc.ReportType, _ = tree["report_type"].(string)
	doc.Created, _ = tree["created"].(string)
	if dr, ok := tree["date_range"].(map[string]interface{}); ok {
		doc.DateRange.StartDate, _ = dr["start_date"].(string)
		doc.DateRange.EndDate, _ = dr["end_date"].(string)
	}
	return doc
}

// Append adds a report to the current list and rewrites the whole
// document pretty-printed.
func (s *Store) Append(r report.SavedReport) error {
	reports, err := s.List()
	if err != nil {
		return err
	}
	reports = append(reports, r)
	return s.write(reports)
}

// Delete removes the report with the given id. A missing reports
// document is a no-op; a document that cannot be parsed is fatal.
func (s *Store) Delete(id string) error {
	if _, err := os.Stat(s.path()); os.IsNotExist(err) {
		return nil
	}

	reports, err := s.List()
	if err != nil {
		return err
	}

	kept := reports[:0]
	for _, r := range reports {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	return s.write(kept)
}

func (s *Store) write(reports []report.SavedReport) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing reports: %w", err)
	}
	if err := os.WriteFile(s.path(), data, 0644); err != nil {
		return fmt.Errorf("writing reports: %w", err)
	}
	return nil
}
