// Package settings implements the per-user application settings
// document (settings.json): Mailchimp credentials, the advertiser
// list, and the download directory.
package settings

import (
	"os"
	"path/filepath"
)

// Settings is the persisted configuration record. All fields are
// mutated only through the settings-save operation.
type Settings struct {
	MailchimpAPIKey     string   `json:"mailchimp_api_key"`
	MailchimpAudienceID string   `json:"mailchimp_audience_id"`
	Advertisers         []string `json:"advertisers"`
	DownloadDirectory   string   `json:"download_directory"`
}

// DefaultAudienceID is written on first load. The pipeline never
// consults it; it is kept in the schema for compatibility with
// documents written by earlier versions.
const DefaultAudienceID = "primary"

// DefaultAdvertisers returns the built-in advertiser list used when no
// settings document exists yet. Editable through the settings screen.
func DefaultAdvertisers() []string {
	return []string{
		"Horizon Blue Cross Blue Shield",
		"Hackensack Meridian Health",
		"RWJBarnabas Health",
	}
}

// appDirName is the directory under the OS per-user config root.
const appDirName = "mailchimp-reporter"

// DefaultDir resolves the per-user app config directory.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appDirName), nil
}

// defaultDownloadDir returns the OS downloads directory, falling back
// to <home>/Downloads when the OS does not report one.
func defaultDownloadDir() (string, error) {
	if dir := os.Getenv("XDG_DOWNLOAD_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Downloads"), nil
}

// Defaults returns the Settings record created on first load.
func Defaults() (Settings, error) {
	downloadDir, err := defaultDownloadDir()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		MailchimpAPIKey:     "",
		MailchimpAudienceID: DefaultAudienceID,
		Advertisers:         DefaultAdvertisers(),
		DownloadDirectory:   downloadDir,
	}, nil
}
