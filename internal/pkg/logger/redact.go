package logger

import "strings"

// credentialKeys are field-name fragments whose values must never be
// logged in full (the Mailchimp API key in particular).
var credentialKeys = []string{"api_key", "apikey", "credential", "token", "password", "secret"}

// RedactCredential masks a credential, keeping only the trailing
// datacenter tag (the part after the last '-') so log lines stay
// attributable to an account without exposing the key.
func RedactCredential(val string) string {
	if val == "" {
		return val
	}
	if i := strings.LastIndex(val, "-"); i >= 0 {
		return "****-" + val[i+1:]
	}
	return "****"
}

func redactValue(key, val string) string {
	key = strings.ToLower(key)
	for _, fragment := range credentialKeys {
		if strings.Contains(key, fragment) {
			return RedactCredential(val)
		}
	}
	return val
}
