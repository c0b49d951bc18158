package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ignite/mailchimp-reporter/internal/pkg/logger"
)

const fileName = "settings.json"

// Store reads and writes the settings document rooted at a directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the absolute path of the settings document. The front
// end uses it to reveal the file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, fileName)
}

// Load reads the settings document. A missing file yields the default
// Settings. A document that does not decode as a Settings record is
// re-parsed as an untyped tree and populated field by field, so that
// files written by earlier schema versions keep working.
func (s *Store) Load() (Settings, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults()
		}
		return Settings{}, fmt.Errorf("reading settings: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		settings, err = fromUntyped(data)
		if err != nil {
			return Settings{}, fmt.Errorf("parsing settings: %w", err)
		}
	}

	if settings.DownloadDirectory == "" {
		dir, err := defaultDownloadDir()
		if err != nil {
			return Settings{}, fmt.Errorf("resolving downloads directory: %w", err)
		}
		settings.DownloadDirectory = dir
	}

	return settings, nil
}

// fromUntyped extracts each Settings field best-effort from a document
// that failed the strict decode, substituting defaults for anything
// missing or wrong-typed.
func fromUntyped(data []byte) (Settings, error) {
	var tree map[string]interface{}
	if err := json.Unmarshal(data, &tree); err != nil {
		return Settings{}, err
	}

	settings := Settings{
		MailchimpAudienceID: DefaultAudienceID,
		Advertisers:         DefaultAdvertisers(),
	}
	if v, ok := tree["mailchimp_api_key"].(string); ok {
		settings.MailchimpAPIKey = v
	}
	if v, ok := tree["mailchimp_audience_id"].(string); ok {
		settings.MailchimpAudienceID = v
	}
	if list, ok := tree["advertisers"].([]interface{}); ok {
		advertisers := make([]string, 0, len(list))
		for _, item := range list {
			if name, ok := item.(string); ok {
				advertisers = append(advertisers, name)
			}
		}
		settings.Advertisers = advertisers
	}
	if v, ok := tree["download_directory"].(string); ok {
		settings.DownloadDirectory = v
	}
	return settings, nil
}

// Save writes the settings document pretty-printed, creating the
// config directory if needed. After writing it re-reads the file and
// byte-compares as a best-effort verification; a mismatch is logged,
// never raised.
func (s *Store) Save(settings Settings) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing settings: %w", err)
	}

	if err := os.WriteFile(s.Path(), data, 0644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}

	// Best-effort read-back verification
	written, err := os.ReadFile(s.Path())
	if err != nil {
		logger.Warn("settings verification read failed", "path", s.Path(), "error", err)
	} else if !bytes.Equal(written, data) {
		logger.Warn("settings verification failed: content mismatch", "path", s.Path())
	}

	return nil
}
