// Package report implements the campaign report pipeline: request
// validation, campaign fetching and filtering, per-campaign click
// aggregation against an advertiser's tracking URLs, and persistence
// of the finished report.
package report

import (
	"context"

	"github.com/ignite/mailchimp-reporter/internal/mailchimp"
	"github.com/ignite/mailchimp-reporter/internal/settings"
)

// DateRange is an inclusive calendar-date range in YYYY-MM-DD form.
type DateRange struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// MetricSelection controls which columns appear in CSV exports. The
// five metrics are independent; Date is always exported.
type MetricSelection struct {
	UniqueOpens     bool `json:"unique_opens"`
	TotalOpens      bool `json:"total_opens"`
	TotalRecipients bool `json:"total_recipients"`
	TotalClicks     bool `json:"total_clicks"`
	CTR             bool `json:"ctr"`
}

// AllMetrics returns a selection with every metric enabled. Reports
// persisted before metric selection existed are read back with this.
func AllMetrics() MetricSelection {
	return MetricSelection{
		UniqueOpens:     true,
		TotalOpens:      true,
		TotalRecipients: true,
		TotalClicks:     true,
		CTR:             true,
	}
}

// ReportRequest is the input to the pipeline.
type ReportRequest struct {
	NewsletterType string          `json:"newsletter_type"`
	Advertiser     string          `json:"advertiser"`
	TrackingURLs   []string        `json:"tracking_urls"`
	DateRange      DateRange       `json:"date_range"`
	Metrics        MetricSelection `json:"metrics"`
}

// ReportEntry is one row of the finished report: a qualifying campaign
// with its ad-scoped click total and click-through rate.
type ReportEntry struct {
	SendDate        string  `json:"send_date"`
	UniqueOpens     int64   `json:"unique_opens"`
	TotalOpens      int64   `json:"total_opens"`
	TotalRecipients int64   `json:"total_recipients"`
	TotalClicks     int64   `json:"total_clicks"`
	CTR             float64 `json:"ctr"`
}

// ReportData is the final report document: the raw filtered campaigns
// as received from the API, the sorted report rows, and the metric
// selection snapshot.
type ReportData struct {
	Campaigns  []map[string]interface{} `json:"campaigns"`
	ReportData []ReportEntry            `json:"report_data"`
	Metrics    MetricSelection          `json:"metrics"`
}

// SavedReport is the persisted record of one successful generation.
// Identity is the ID; records are appended once and only ever deleted.
type SavedReport struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Advertiser string          `json:"advertiser"`
	ReportType string          `json:"report_type"`
	DateRange  DateRange       `json:"date_range"`
	Created    string          `json:"created"`
	Data       ReportData      `json:"data"`
	Metrics    MetricSelection `json:"metrics"`
}

// ReportResponse is the pipeline result. Success=false with a message
// is a structured failure: the caller still receives the progress
// history accumulated before the pipeline stopped.
type ReportResponse struct {
	Success         bool             `json:"success"`
	Message         string           `json:"message"`
	Data            *ReportData      `json:"data,omitempty"`
	ProgressUpdates []ProgressUpdate `json:"progress_updates"`
}

// CampaignAPI is the slice of the Mailchimp client the pipeline uses.
type CampaignAPI interface {
	ListCampaigns(ctx context.Context, startDate, endDate string) (map[string]interface{}, error)
	GetClickDetails(ctx context.Context, campaignID string) (*mailchimp.ClickDetails, error)
}

// SettingsSource loads the current application settings.
type SettingsSource interface {
	Load() (settings.Settings, error)
}

// ReportSink persists finished reports.
type ReportSink interface {
	Append(report SavedReport) error
}

// Observer receives pipeline events: "report-progress" carrying a
// ProgressUpdate and "report-generated" carrying the saved report.
// Observer failures never fail the pipeline.
type Observer interface {
	Emit(event string, payload interface{}) error
}
