package report

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

// ValidateTrackingURLs checks the tracking-URL list before the
// pipeline touches the network. Each element is either a full URL
// (must parse) or a bare substring (no whitespace, no angle brackets).
// Empty elements are permitted; the aggregation skips them.
func ValidateTrackingURLs(urls []string) error {
	if len(urls) == 0 {
		return &InputError{Message: "No tracking URLs provided"}
	}

	for _, raw := range urls {
		if raw == "" {
			continue
		}
		if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
			parsed, err := url.Parse(raw)
			if err != nil || parsed.Host == "" {
				return &InputError{Message: fmt.Sprintf("Invalid tracking URL: %s", raw)}
			}
			continue
		}
		if strings.IndexFunc(raw, unicode.IsSpace) >= 0 || strings.ContainsAny(raw, "<>") {
			return &InputError{Message: fmt.Sprintf("Invalid tracking URL: %s", raw)}
		}
	}

	return nil
}

// MatchesNewsletterType reports whether a campaign title matches the
// newsletter-type keyword. Matching is case-insensitive substring
// containment; the special keyword "hc" also matches "health care".
func MatchesNewsletterType(title, newsletterType string) bool {
	t := strings.ToLower(title)
	keyword := strings.ToLower(newsletterType)
	if keyword == "hc" {
		return strings.Contains(t, "hc") || strings.Contains(t, "health care")
	}
	return strings.Contains(t, keyword)
}

// ValidateCampaignSet checks the fetched campaigns mid-flight: the set
// must be non-empty and at least one title must match the newsletter
// type.
func ValidateCampaignSet(campaigns []map[string]interface{}, newsletterType string) error {
	if len(campaigns) == 0 {
		return &InputError{Message: "No campaigns found in the selected date range"}
	}
	for _, c := range campaigns {
		if MatchesNewsletterType(campaignTitle(c), newsletterType) {
			return nil
		}
	}
	return &InputError{Message: fmt.Sprintf("No campaigns found matching the newsletter type '%s' in the selected date range", newsletterType)}
}
