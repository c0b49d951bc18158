package report

// Campaign documents arrive as decoded JSON trees and are passed
// through to the final report as received. These helpers read the few
// fields the pipeline consumes, tolerating absent or wrong-typed
// values.

func campaignString(c map[string]interface{}, key string) (string, bool) {
	v, ok := c[key].(string)
	return v, ok
}

// campaignTitle reads settings.title, returning "" when absent.
func campaignTitle(c map[string]interface{}) string {
	s, ok := c["settings"].(map[string]interface{})
	if !ok {
		return ""
	}
	title, _ := s["title"].(string)
	return title
}

// campaignInt reads a top-level numeric field. JSON numbers decode as
// float64; anything else counts as missing and yields 0.
func campaignInt(c map[string]interface{}, key string) int64 {
	v, ok := c[key].(float64)
	if !ok {
		return 0
	}
	return int64(v)
}

// summaryInt reads a numeric field from report_summary, yielding 0
// when the summary or the field is missing.
func summaryInt(c map[string]interface{}, key string) int64 {
	summary, ok := c["report_summary"].(map[string]interface{})
	if !ok {
		return 0
	}
	v, ok := summary[key].(float64)
	if !ok {
		return 0
	}
	return int64(v)
}
