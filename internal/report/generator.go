package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ignite/mailchimp-reporter/internal/mailchimp"
	"github.com/ignite/mailchimp-reporter/internal/pkg/logger"
)

// GeneratedEvent is the observer event published once the report has
// been persisted, carrying {"report": SavedReport}.
const GeneratedEvent = "report-generated"

// Generator drives the report pipeline. One generation runs at a time;
// callers serialise invocations.
type Generator struct {
	settings  SettingsSource
	store     ReportSink
	newClient func(apiKey string) CampaignAPI
}

// NewGenerator creates a Generator. newClient builds the campaign API
// client for the credential found in settings at generation time.
func NewGenerator(settings SettingsSource, store ReportSink, newClient func(apiKey string) CampaignAPI) *Generator {
	return &Generator{
		settings:  settings,
		store:     store,
		newClient: newClient,
	}
}

// structured returns a non-error structured failure carrying the
// progress history accumulated so far.
func structured(emitter *progressEmitter, message string) *ReportResponse {
	return &ReportResponse{
		Success:         false,
		Message:         message,
		ProgressUpdates: emitter.history,
	}
}

// Generate runs the pipeline for one request. Validation failures and
// fatal errors return a non-nil error; remote-API failures and empty
// results return a structured failure so the front end still receives
// the progress history.
func (g *Generator) Generate(ctx context.Context, req ReportRequest, observer Observer) (*ReportResponse, error) {
	if err := ValidateTrackingURLs(req.TrackingURLs); err != nil {
		return nil, err
	}

	emitter := newProgressEmitter(observer)
	emitter.emit(StageInitializing, 0, "Initializing report generation", nil)

	cfg, err := g.settings.Load()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if cfg.MailchimpAPIKey == "" || cfg.MailchimpAudienceID == "" {
		return structured(emitter, "Mailchimp API settings not configured"), nil
	}

	emitter.emit(StageFetchingCampaigns, 10, "Fetching campaigns from Mailchimp", nil)

	if _, err := time.Parse("2006-01-02", req.DateRange.EndDate); err != nil {
		return nil, &InputError{Message: fmt.Sprintf("Invalid end date '%s': expected YYYY-MM-DD", req.DateRange.EndDate)}
	}

	client := g.newClient(cfg.MailchimpAPIKey)

	doc, err := client.ListCampaigns(ctx, req.DateRange.StartDate, req.DateRange.EndDate)
	if err != nil {
		var httpErr *mailchimp.HTTPError
		if errors.As(err, &httpErr) {
			return structured(emitter, "Mailchimp API error: "+httpErr.Body), nil
		}
		return nil, err
	}

	campaigns, ok := campaignArray(doc)
	if !ok {
		return structured(emitter, "No campaigns found in response"), nil
	}

	emitter.emit(StageFetchingCampaigns, 20, fmt.Sprintf("Fetched %d campaigns", len(campaigns)), nil)

	if err := ValidateCampaignSet(campaigns, req.NewsletterType); err != nil {
		return nil, err
	}

	emitter.emit(StageFilteringCampaigns, 30, "Filtering campaigns by newsletter type", nil)

	filtered := make([]map[string]interface{}, 0, len(campaigns))
	for _, c := range campaigns {
		if MatchesNewsletterType(campaignTitle(c), req.NewsletterType) {
			filtered = append(filtered, c)
		}
	}

	entries := make([]ReportEntry, 0, len(filtered))
	for i, campaign := range filtered {
		emitter.emitProcessing(i, len(filtered))

		id, ok := campaignString(campaign, "id")
		if !ok {
			continue
		}
		sendTime, ok := campaignString(campaign, "send_time")
		if !ok {
			continue
		}
		sentAt, err := time.Parse(time.RFC3339, sendTime)
		if err != nil {
			continue
		}

		uniqueOpens := summaryInt(campaign, "unique_opens")
		totalOpens := summaryInt(campaign, "opens")
		totalRecipients := campaignInt(campaign, "emails_sent")

		adClicks := g.countAdClicks(ctx, client, id, req.TrackingURLs)

		ctr := 0.0
		if uniqueOpens > 0 {
			ctr = float64(adClicks) / float64(uniqueOpens) * 100
		}

		if adClicks > 0 {
			entries = append(entries, ReportEntry{
				SendDate:        sentAt.Format("2006-01-02"),
				UniqueOpens:     uniqueOpens,
				TotalOpens:      totalOpens,
				TotalRecipients: totalRecipients,
				TotalClicks:     adClicks,
				CTR:             ctr,
			})
		}
	}

	if len(entries) == 0 {
		msg := fmt.Sprintf("No data found for the specified tracking URLs in '%s' campaigns for the selected date range", req.NewsletterType)
		return structured(emitter, msg), nil
	}

	emitter.emit(StageFinalizingReport, 80, "Finalizing report", seconds(15))

	sort.Slice(entries, func(a, b int) bool {
		return entries[a].SendDate < entries[b].SendDate
	})

	data := &ReportData{
		Campaigns:  filtered,
		ReportData: entries,
		Metrics:    req.Metrics,
	}

	emitter.emit(StageSavingReport, 90, "Saving report", seconds(5))

	now := time.Now()
	today := now.UTC().Format("2006-01-02")
	saved := SavedReport{
		ID:         fmt.Sprintf("report-%d", now.UnixMilli()),
		Name:       fmt.Sprintf("%s-%s-%s", req.Advertiser, req.NewsletterType, today),
		Advertiser: req.Advertiser,
		ReportType: req.NewsletterType,
		DateRange:  req.DateRange,
		Created:    today,
		Data:       *data,
		Metrics:    req.Metrics,
	}
	if err := g.store.Append(saved); err != nil {
		return nil, fmt.Errorf("saving report: %w", err)
	}

	if observer != nil {
		if err := observer.Emit(GeneratedEvent, map[string]interface{}{"report": saved}); err != nil {
			logger.Warn("report-generated emit failed", "report_id", saved.ID, "error", err)
		}
	}

	emitter.emit(StageComplete, 100, "Report generated successfully", seconds(0))

	return &ReportResponse{
		Success:         true,
		Message:         "Report generated successfully",
		Data:            data,
		ProgressUpdates: emitter.history,
	}, nil
}

// countAdClicks sums total_clicks over every clicked URL containing
// any non-empty tracking fragment. A URL matching several fragments
// counts once per fragment. Click-details failures are best-effort:
// the campaign simply contributes zero ad-clicks.
func (g *Generator) countAdClicks(ctx context.Context, client CampaignAPI, campaignID string, trackingURLs []string) int64 {
	details, err := client.GetClickDetails(ctx, campaignID)
	if err != nil {
		logger.Warn("click details unavailable", "campaign_id", campaignID, "error", err)
		return 0
	}

	var adClicks int64
	for _, clicked := range details.URLsClicked {
		for _, fragment := range trackingURLs {
			if fragment != "" && strings.Contains(clicked.URL, fragment) {
				adClicks += clicked.TotalClicks
			}
		}
	}
	return adClicks
}

// campaignArray extracts the `campaigns` array from the listing
// response, dropping non-object elements.
func campaignArray(doc map[string]interface{}) ([]map[string]interface{}, bool) {
	raw, ok := doc["campaigns"].([]interface{})
	if !ok {
		return nil, false
	}
	campaigns := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if c, ok := item.(map[string]interface{}); ok {
			campaigns = append(campaigns, c)
		}
	}
	return campaigns, true
}
