package mailchimp

import "fmt"

// ClickDetails is the subset of the click-details report the pipeline
// consumes: one tally per clicked URL.
type ClickDetails struct {
	URLsClicked []URLClicked `json:"urls_clicked"`
}

// URLClicked is a per-URL click tally.
type URLClicked struct {
	URL         string `json:"url"`
	TotalClicks int64  `json:"total_clicks"`
}

// HTTPError is a non-2xx response from the Mailchimp API. The response
// body text is preserved so the front end can show the API's own
// diagnostic.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("mailchimp API error (status %d): %s", e.StatusCode, e.Body)
}

// ParseError is a malformed JSON body in a Mailchimp API response.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing mailchimp response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
