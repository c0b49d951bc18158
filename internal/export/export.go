// Package export serialises saved reports for download: pretty-printed
// JSON and column-selectable CSV.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/mailchimp-reporter/internal/report"
)

// timestampLayout is the local-time suffix appended to every export
// file name.
const timestampLayout = "20060102_150405"

// Timestamp formats an export file-name timestamp.
func Timestamp(t time.Time) string {
	return t.Format(timestampLayout)
}

// advertiserCleaner replaces every character that is unsafe or
// awkward in a file name with an underscore.
var advertiserCleaner = strings.NewReplacer(
	" ", "_", ",", "_", ".", "_", "/", "_", "\\", "_",
	":", "_", ";", "_", "\"", "_", "'", "_", "!", "_",
	"?", "_", "*", "_", "(", "_", ")", "_", "[", "_",
	"]", "_", "{", "_", "}", "_", "<", "_", ">", "_",
)

// CleanAdvertiser sanitises an advertiser display name for use in a
// CSV file name.
func CleanAdvertiser(advertiser string) string {
	return advertiserCleaner.Replace(advertiser)
}

// BuildCSV renders a saved report as CSV. Columns follow the report's
// metric selection; Date is always first and always present. Integers
// render as plain decimal digits, CTR as fixed-point with six
// fractional digits.
func BuildCSV(r report.SavedReport) string {
	m := r.Metrics

	header := []string{"Date"}
	if m.UniqueOpens {
		header = append(header, "Unique Opens")
	}
	if m.TotalOpens {
		header = append(header, "Total Opens")
	}
	if m.TotalRecipients {
		header = append(header, "Total Recipients")
	}
	if m.TotalClicks {
		header = append(header, "Total Clicks")
	}
	if m.CTR {
		header = append(header, "CTR")
	}

	var b strings.Builder
	b.WriteString(strings.Join(header, ","))
	b.WriteByte('\n')

	for _, entry := range r.Data.ReportData {
		row := []string{entry.SendDate}
		if m.UniqueOpens {
			row = append(row, strconv.FormatInt(entry.UniqueOpens, 10))
		}
		if m.TotalOpens {
			row = append(row, strconv.FormatInt(entry.TotalOpens, 10))
		}
		if m.TotalRecipients {
			row = append(row, strconv.FormatInt(entry.TotalRecipients, 10))
		}
		if m.TotalClicks {
			row = append(row, strconv.FormatInt(entry.TotalClicks, 10))
		}
		if m.CTR {
			row = append(row, strconv.FormatFloat(entry.CTR, 'f', 6, 64))
		}
		b.WriteString(strings.Join(row, ","))
		b.WriteByte('\n')
	}

	return b.String()
}

// CSVFileName builds the export name for a report's CSV download.
func CSVFileName(r report.SavedReport, now time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%s_%s.csv",
		CleanAdvertiser(r.Advertiser), r.ReportType,
		r.DateRange.StartDate, r.DateRange.EndDate, Timestamp(now))
}

// JSONFileName builds the export name for a report's JSON download.
func JSONFileName(r report.SavedReport, now time.Time) string {
	return fmt.Sprintf("%s_%s.json", r.Name, Timestamp(now))
}

// WriteJSON writes the whole saved report pretty-printed into dir,
// creating the directory if missing. Returns the written path.
func WriteJSON(r report.SavedReport, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating download directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serializing report: %w", err)
	}

	path := filepath.Join(dir, JSONFileName(r, time.Now()))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

// WriteCSV writes the metric-selected CSV into dir, creating the
// directory if missing. Returns the written path.
func WriteCSV(r report.SavedReport, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating download directory: %w", err)
	}

	path := filepath.Join(dir, CSVFileName(r, time.Now()))
	if err := os.WriteFile(path, []byte(BuildCSV(r)), 0644); err != nil {
		return "", fmt.Errorf("writing CSV: %w", err)
	}
	return path, nil
}

// WriteTempCSV writes the CSV into the OS temp directory for the
// "open in Excel" preview and returns its absolute path.
func WriteTempCSV(r report.SavedReport) (string, error) {
	path := filepath.Join(os.TempDir(), CSVFileName(r, time.Now()))
	if err := os.WriteFile(path, []byte(BuildCSV(r)), 0644); err != nil {
		return "", fmt.Errorf("writing CSV: %w", err)
	}
	return path, nil
}
