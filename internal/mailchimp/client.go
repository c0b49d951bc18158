// Package mailchimp is a thin typed client for the two Mailchimp v3
// endpoints the report pipeline uses: campaign listing and per-campaign
// click details.
package mailchimp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultDatacenter = "us1"

// HTTPDoer is the interface for executing HTTP requests. *http.Client
// satisfies it; tests substitute their own.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a Mailchimp API client bound to one API key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPDoer
}

// NewClient creates a Mailchimp client for the given API key. The data
// center is derived from the key itself.
func NewClient(apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: BaseURL(apiKey),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL derives the API base URL from the credential: the substring
// after the last '-' is the data-center tag, defaulting to us1 when the
// key contains no '-'.
func BaseURL(apiKey string) string {
	dc := defaultDatacenter
	if i := strings.LastIndex(apiKey, "-"); i >= 0 {
		dc = apiKey[i+1:]
	}
	return fmt.Sprintf("https://%s.api.mailchimp.com/3.0", dc)
}

// authHeader builds the Basic header Mailchimp expects: any username,
// the API key as password.
func authHeader(apiKey string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte("anystring:"+apiKey))
}

// doRequest makes a GET request and returns the body and status code.
// Transport failures are returned as wrapped errors; non-2xx statuses
// are left to the caller, which decides per endpoint whether they are
// fatal.
func (c *Client) doRequest(ctx context.Context, path string, params url.Values) ([]byte, int, error) {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", authHeader(c.apiKey))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("reading response: %w", err)
	}

	return body, resp.StatusCode, nil
}

// ListCampaigns fetches all campaigns sent within the inclusive
// calendar-date range. The decoded response document is returned as-is;
// the caller reads the `campaigns` array out of it.
func (c *Client) ListCampaigns(ctx context.Context, startDate, endDate string) (map[string]interface{}, error) {
	params := url.Values{}
	params.Set("since_send_time", startDate+"T00:00:00Z")
	params.Set("before_send_time", endDate+"T23:59:59Z")
	params.Set("count", "1000")

	body, status, err := c.doRequest(ctx, "/campaigns", params)
	if err != nil {
		return nil, fmt.Errorf("fetching campaigns: %w", err)
	}
	if status/100 != 2 {
		return nil, &HTTPError{StatusCode: status, Body: string(body)}
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &ParseError{Err: err}
	}

	return doc, nil
}

// GetClickDetails fetches the per-URL click tallies for one campaign.
// Non-2xx responses come back as *HTTPError; the pipeline treats those
// as zero ad-clicks for that campaign.
func (c *Client) GetClickDetails(ctx context.Context, campaignID string) (*ClickDetails, error) {
	params := url.Values{}
	params.Set("count", "1000")

	body, status, err := c.doRequest(ctx, "/reports/"+campaignID+"/click-details", params)
	if err != nil {
		return nil, fmt.Errorf("fetching click details for %s: %w", campaignID, err)
	}
	if status/100 != 2 {
		return nil, &HTTPError{StatusCode: status, Body: string(body)}
	}

	var details ClickDetails
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, &ParseError{Err: err}
	}

	return &details, nil
}
