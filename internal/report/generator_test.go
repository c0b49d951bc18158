package report

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/mailchimp-reporter/internal/mailchimp"
	"github.com/ignite/mailchimp-reporter/internal/settings"
)

// testCampaign builds a campaign document the way it arrives from the
// API: decoded JSON with float64 numerics.
func testCampaign(id, title, sendTime string, uniqueOpens, opens, emailsSent float64) map[string]interface{} {
	return map[string]interface{}{
		"id":        id,
		"send_time": sendTime,
		"settings":  map[string]interface{}{"title": title},
		"report_summary": map[string]interface{}{
			"unique_opens": uniqueOpens,
			"opens":        opens,
		},
		"emails_sent": emailsSent,
	}
}

func listDoc(campaigns ...map[string]interface{}) map[string]interface{} {
	arr := make([]interface{}, len(campaigns))
	for i, c := range campaigns {
		arr[i] = c
	}
	return map[string]interface{}{"campaigns": arr}
}

func clicks(pairs ...interface{}) *mailchimp.ClickDetails {
	details := &mailchimp.ClickDetails{}
	for i := 0; i < len(pairs)-1; i += 2 {
		details.URLsClicked = append(details.URLsClicked, mailchimp.URLClicked{
			URL:         pairs[i].(string),
			TotalClicks: int64(pairs[i+1].(int)),
		})
	}
	return details
}

type stubAPI struct {
	list  func(ctx context.Context, startDate, endDate string) (map[string]interface{}, error)
	click func(ctx context.Context, campaignID string) (*mailchimp.ClickDetails, error)
}

func (s *stubAPI) ListCampaigns(ctx context.Context, startDate, endDate string) (map[string]interface{}, error) {
	return s.list(ctx, startDate, endDate)
}

func (s *stubAPI) GetClickDetails(ctx context.Context, campaignID string) (*mailchimp.ClickDetails, error) {
	return s.click(ctx, campaignID)
}

type stubSettings struct {
	cfg settings.Settings
	err error
}

func (s stubSettings) Load() (settings.Settings, error) { return s.cfg, s.err }

type memSink struct {
	saved []SavedReport
	err   error
}

func (m *memSink) Append(r SavedReport) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, r)
	return nil
}

type recordedEvent struct {
	name    string
	payload interface{}
}

type recordingObserver struct {
	events []recordedEvent
}

func (o *recordingObserver) Emit(event string, payload interface{}) error {
	o.events = append(o.events, recordedEvent{name: event, payload: payload})
	return nil
}

func configuredSettings() stubSettings {
	return stubSettings{cfg: settings.Settings{
		MailchimpAPIKey:     "key-us1",
		MailchimpAudienceID: "aud-1",
		DownloadDirectory:   "/tmp",
	}}
}

func newTestGenerator(api *stubAPI, src SettingsSource, sink *memSink) *Generator {
	return NewGenerator(src, sink, func(apiKey string) CampaignAPI { return api })
}

func testRequest() ReportRequest {
	return ReportRequest{
		NewsletterType: "hbcb",
		Advertiser:     "Horizon Blue Cross Blue Shield",
		TrackingURLs:   []string{"horizonblue.com"},
		DateRange:      DateRange{StartDate: "2024-01-01", EndDate: "2024-01-31"},
		Metrics:        AllMetrics(),
	}
}

func assertMonotonic(t *testing.T, updates []ProgressUpdate) {
	t.Helper()
	for i := 1; i < len(updates); i++ {
		assert.GreaterOrEqual(t, updates[i].Progress, updates[i-1].Progress,
			"progress regressed at update %d (%s)", i, updates[i].Stage)
	}
}

func TestGenerateHappyPath(t *testing.T) {
	api := &stubAPI{
		list: func(ctx context.Context, startDate, endDate string) (map[string]interface{}, error) {
			assert.Equal(t, "2024-01-01", startDate)
			assert.Equal(t, "2024-01-31", endDate)
			return listDoc(testCampaign("c1", "HBCB Weekly", "2024-01-15T14:00:00Z", 200, 250, 1000)), nil
		},
		click: func(ctx context.Context, campaignID string) (*mailchimp.ClickDetails, error) {
			assert.Equal(t, "c1", campaignID)
			return clicks("https://www.horizonblue.com/plan", 20), nil
		},
	}
	sink := &memSink{}
	observer := &recordingObserver{}
	g := newTestGenerator(api, configuredSettings(), sink)

	resp, err := g.Generate(context.Background(), testRequest(), observer)
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.NotNil(t, resp.Data)

	require.Len(t, resp.Data.ReportData, 1)
	entry := resp.Data.ReportData[0]
	assert.Equal(t, "2024-01-15", entry.SendDate)
	assert.Equal(t, int64(200), entry.UniqueOpens)
	assert.Equal(t, int64(250), entry.TotalOpens)
	assert.Equal(t, int64(1000), entry.TotalRecipients)
	assert.Equal(t, int64(20), entry.TotalClicks)
	assert.Equal(t, 10.0, entry.CTR)

	assert.Len(t, resp.Data.Campaigns, 1)
	assert.Equal(t, AllMetrics(), resp.Data.Metrics)

	// Persisted exactly once, with the request's metric selection
	require.Len(t, sink.saved, 1)
	saved := sink.saved[0]
	assert.True(t, strings.HasPrefix(saved.ID, "report-"))
	assert.Equal(t, "Horizon Blue Cross Blue Shield", saved.Advertiser)
	assert.Equal(t, "hbcb", saved.ReportType)
	assert.Equal(t, AllMetrics(), saved.Metrics)

	// Progress is monotonic and ends at 100
	require.NotEmpty(t, resp.ProgressUpdates)
	assertMonotonic(t, resp.ProgressUpdates)
	last := resp.ProgressUpdates[len(resp.ProgressUpdates)-1]
	assert.Equal(t, StageComplete, last.Stage)
	assert.Equal(t, 100, last.Progress)

	// Observer saw the generated report
	var generated bool
	for _, ev := range observer.events {
		if ev.name == GeneratedEvent {
			generated = true
		}
	}
	assert.True(t, generated)
}

func TestGenerateHCAlias(t *testing.T) {
	api := &stubAPI{
		list: func(ctx context.Context, startDate, endDate string) (map[string]interface{}, error) {
			return listDoc(
				testCampaign("c1", "Health Care Roundup", "2024-01-10T09:00:00Z", 100, 120, 400),
				testCampaign("c2", "HC Briefing", "2024-01-12T09:00:00Z", 100, 120, 400),
				testCampaign("c3", "Weekly Digest", "2024-01-14T09:00:00Z", 100, 120, 400),
			), nil
		},
		click: func(ctx context.Context, campaignID string) (*mailchimp.ClickDetails, error) {
			return clicks("https://ads.example.com/track", 5), nil
		},
	}
	sink := &memSink{}
	g := newTestGenerator(api, configuredSettings(), sink)

	req := testRequest()
	req.NewsletterType = "hc"
	req.TrackingURLs = []string{"ads.example.com"}

	resp, err := g.Generate(context.Background(), req, nil)
	require.NoError(t, err)
	require.True(t, resp.Success)

	assert.Len(t, resp.Data.Campaigns, 2)
	assert.Len(t, resp.Data.ReportData, 2)
}

func TestGenerateNoMatchingType(t *testing.T) {
	api := &stubAPI{
		list: func(ctx context.Context, startDate, endDate string) (map[string]interface{}, error) {
			return listDoc(testCampaign("c1", "Weekly Digest", "2024-01-10T09:00:00Z", 100, 120, 400)), nil
		},
	}
	g := newTestGenerator(api, configuredSettings(), &memSink{})

	req := testRequest()
	req.NewsletterType = "xyz"

	resp, err := g.Generate(context.Background(), req, nil)
	require.Error(t, err)
	assert.Nil(t, resp)

	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Contains(t, inputErr.Message, "'xyz'")
}

func TestGenerateUnconfigured(t *testing.T) {
	src := stubSettings{cfg: settings.Settings{MailchimpAPIKey: "", MailchimpAudienceID: "aud-1"}}
	g := newTestGenerator(&stubAPI{}, src, &memSink{})

	resp, err := g.Generate(context.Background(), testRequest(), nil)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "Mailchimp API settings not configured", resp.Message)

	require.Len(t, resp.ProgressUpdates, 1)
	assert.Equal(t, StageInitializing, resp.ProgressUpdates[0].Stage)
}

func TestGenerateEmptyResult(t *testing.T) {
	api := &stubAPI{
		list: func(ctx context.Context, startDate, endDate string) (map[string]interface{}, error) {
			return listDoc(testCampaign("c1", "HBCB Weekly", "2024-01-15T14:00:00Z", 200, 250, 1000)), nil
		},
		click: func(ctx context.Context, campaignID string) (*mailchimp.ClickDetails, error) {
			return clicks("https://other.example.com/x", 9), nil
		},
	}
	sink := &memSink{}
	g := newTestGenerator(api, configuredSettings(), sink)

	resp, err := g.Generate(context.Background(), testRequest(), nil)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "hbcb")
	assert.Empty(t, sink.saved)

	require.NotEmpty(t, resp.ProgressUpdates)
	last := resp.ProgressUpdates[len(resp.ProgressUpdates)-1]
	assert.Equal(t, StageProcessingCampaigns, last.Stage)
	for _, update := range resp.ProgressUpdates {
		assert.NotEqual(t, StageSavingReport, update.Stage)
		assert.NotEqual(t, StageComplete, update.Stage)
	}
}

func TestGenerateAPIErrorIsStructuredFailure(t *testing.T) {
	api := &stubAPI{
		list: func(ctx context.Context, startDate, endDate string) (map[string]interface{}, error) {
			return nil, &mailchimp.HTTPError{StatusCode: 503, Body: "service unavailable"}
		},
	}
	g := newTestGenerator(api, configuredSettings(), &memSink{})

	resp, err := g.Generate(context.Background(), testRequest(), nil)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "service unavailable")
	assert.NotEmpty(t, resp.ProgressUpdates)
}

func TestGenerateParseErrorIsFatal(t *testing.T) {
	api := &stubAPI{
		list: func(ctx context.Context, startDate, endDate string) (map[string]interface{}, error) {
			return nil, &mailchimp.ParseError{Err: errors.New("unexpected end of JSON input")}
		},
	}
	g := newTestGenerator(api, configuredSettings(), &memSink{})

	resp, err := g.Generate(context.Background(), testRequest(), nil)
	require.Error(t, err)
	assert.Nil(t, resp)
}

func TestGenerateMissingCampaignsArray(t *testing.T) {
	api := &stubAPI{
		list: func(ctx context.Context, startDate, endDate string) (map[string]interface{}, error) {
			return map[string]interface{}{"total_items": float64(0)}, nil
		},
	}
	g := newTestGenerator(api, configuredSettings(), &memSink{})

	resp, err := g.Generate(context.Background(), testRequest(), nil)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "No campaigns found in response", resp.Message)
}

func TestGenerateInvalidEndDate(t *testing.T) {
	g := newTestGenerator(&stubAPI{}, configuredSettings(), &memSink{})

	req := testRequest()
	req.DateRange.EndDate = "01-31-2024"

	_, err := g.Generate(context.Background(), req, nil)

	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Contains(t, inputErr.Message, "01-31-2024")
}

func TestGenerateEmptyTrackingURLsFailFast(t *testing.T) {
	src := stubSettings{err: errors.New("should not be called")}
	g := newTestGenerator(&stubAPI{}, src, &memSink{})

	req := testRequest()
	req.TrackingURLs = nil

	_, err := g.Generate(context.Background(), req, nil)

	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
}

func TestGenerateZeroUniqueOpensYieldsZeroCTR(t *testing.T) {
	api := &stubAPI{
		list: func(ctx context.Context, startDate, endDate string) (map[string]interface{}, error) {
			return listDoc(testCampaign("c1", "HBCB Weekly", "2024-01-15T14:00:00Z", 0, 0, 1000)), nil
		},
		click: func(ctx context.Context, campaignID string) (*mailchimp.ClickDetails, error) {
			return clicks("https://www.horizonblue.com/plan", 7), nil
		},
	}
	g := newTestGenerator(api, configuredSettings(), &memSink{})

	resp, err := g.Generate(context.Background(), testRequest(), nil)
	require.NoError(t, err)
	require.True(t, resp.Success)

	require.Len(t, resp.Data.ReportData, 1)
	assert.Equal(t, int64(7), resp.Data.ReportData[0].TotalClicks)
	assert.Equal(t, 0.0, resp.Data.ReportData[0].CTR)
}

func TestGenerateSortsEntriesBySendDate(t *testing.T) {
	api := &stubAPI{
		list: func(ctx context.Context, startDate, endDate string) (map[string]interface{}, error) {
			return listDoc(
				testCampaign("c2", "HBCB Weekly", "2024-01-22T14:00:00Z", 100, 110, 400),
				testCampaign("c1", "HBCB Weekly", "2024-01-08T14:00:00Z", 100, 110, 400),
			), nil
		},
		click: func(ctx context.Context, campaignID string) (*mailchimp.ClickDetails, error) {
			return clicks("https://www.horizonblue.com/plan", 3), nil
		},
	}
	g := newTestGenerator(api, configuredSettings(), &memSink{})

	resp, err := g.Generate(context.Background(), testRequest(), nil)
	require.NoError(t, err)
	require.Len(t, resp.Data.ReportData, 2)
	assert.Equal(t, "2024-01-08", resp.Data.ReportData[0].SendDate)
	assert.Equal(t, "2024-01-22", resp.Data.ReportData[1].SendDate)
}

func TestGenerateSkipsMalformedCampaigns(t *testing.T) {
	missingID := testCampaign("", "HBCB Weekly", "2024-01-10T14:00:00Z", 100, 110, 400)
	delete(missingID, "id")
	badSendTime := testCampaign("c3", "HBCB Weekly", "not-a-timestamp", 100, 110, 400)

	api := &stubAPI{
		list: func(ctx context.Context, startDate, endDate string) (map[string]interface{}, error) {
			return listDoc(
				missingID,
				badSendTime,
				testCampaign("c1", "HBCB Weekly", "2024-01-15T14:00:00Z", 200, 250, 1000),
			), nil
		},
		click: func(ctx context.Context, campaignID string) (*mailchimp.ClickDetails, error) {
			return clicks("https://www.horizonblue.com/plan", 20), nil
		},
	}
	g := newTestGenerator(api, configuredSettings(), &memSink{})

	resp, err := g.Generate(context.Background(), testRequest(), nil)
	require.NoError(t, err)
	require.True(t, resp.Success)

	// Malformed campaigns stay in the raw campaign list but produce no rows
	assert.Len(t, resp.Data.Campaigns, 3)
	require.Len(t, resp.Data.ReportData, 1)
	assert.Equal(t, "2024-01-15", resp.Data.ReportData[0].SendDate)
}

func TestGenerateClickDetailsFailureSwallowed(t *testing.T) {
	api := &stubAPI{
		list: func(ctx context.Context, startDate, endDate string) (map[string]interface{}, error) {
			return listDoc(
				testCampaign("c1", "HBCB Weekly", "2024-01-10T14:00:00Z", 100, 110, 400),
				testCampaign("c2", "HBCB Weekly", "2024-01-12T14:00:00Z", 100, 110, 400),
			), nil
		},
		click: func(ctx context.Context, campaignID string) (*mailchimp.ClickDetails, error) {
			if campaignID == "c1" {
				return nil, &mailchimp.HTTPError{StatusCode: 404, Body: "report not found"}
			}
			return clicks("https://www.horizonblue.com/plan", 4), nil
		},
	}
	g := newTestGenerator(api, configuredSettings(), &memSink{})

	resp, err := g.Generate(context.Background(), testRequest(), nil)
	require.NoError(t, err)
	require.True(t, resp.Success)

	require.Len(t, resp.Data.ReportData, 1)
	assert.Equal(t, "2024-01-12", resp.Data.ReportData[0].SendDate)
}

func TestGenerateFragmentMatchesAddIndependently(t *testing.T) {
	api := &stubAPI{
		list: func(ctx context.Context, startDate, endDate string) (map[string]interface{}, error) {
			return listDoc(testCampaign("c1", "HBCB Weekly", "2024-01-15T14:00:00Z", 100, 110, 400)), nil
		},
		click: func(ctx context.Context, campaignID string) (*mailchimp.ClickDetails, error) {
			return clicks("https://www.horizonblue.com/medicare/plan", 10), nil
		},
	}
	g := newTestGenerator(api, configuredSettings(), &memSink{})

	req := testRequest()
	// Both fragments match the same clicked URL; each adds independently
	req.TrackingURLs = []string{"horizonblue.com", "medicare", ""}

	resp, err := g.Generate(context.Background(), req, nil)
	require.NoError(t, err)
	require.Len(t, resp.Data.ReportData, 1)
	assert.Equal(t, int64(20), resp.Data.ReportData[0].TotalClicks)
}

func TestGeneratePersistenceErrorAborts(t *testing.T) {
	api := &stubAPI{
		list: func(ctx context.Context, startDate, endDate string) (map[string]interface{}, error) {
			return listDoc(testCampaign("c1", "HBCB Weekly", "2024-01-15T14:00:00Z", 200, 250, 1000)), nil
		},
		click: func(ctx context.Context, campaignID string) (*mailchimp.ClickDetails, error) {
			return clicks("https://www.horizonblue.com/plan", 20), nil
		},
	}
	sink := &memSink{err: errors.New("disk full")}
	observer := &recordingObserver{}
	g := newTestGenerator(api, configuredSettings(), sink)

	resp, err := g.Generate(context.Background(), testRequest(), observer)
	require.Error(t, err)
	assert.Nil(t, resp)

	// No report-generated event without a persisted report
	for _, ev := range observer.events {
		assert.NotEqual(t, GeneratedEvent, ev.name)
	}
}

func TestGenerateSettingsLoadErrorSurfaced(t *testing.T) {
	src := stubSettings{err: errors.New("permission denied")}
	g := newTestGenerator(&stubAPI{}, src, &memSink{})

	_, err := g.Generate(context.Background(), testRequest(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading settings")
}
